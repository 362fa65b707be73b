package app

import (
	"context"
	"fmt"

	"github.com/timmy/facefinder/internal/cloud"
	"github.com/timmy/facefinder/internal/config"
	"github.com/timmy/facefinder/internal/logger"
	"github.com/timmy/facefinder/internal/queue"
	"github.com/timmy/facefinder/internal/recognition"
	"github.com/timmy/facefinder/internal/repository"
	"github.com/timmy/facefinder/internal/service"
	"github.com/timmy/facefinder/internal/storage"
	"gorm.io/gorm"
)

// App holds the clients and services shared by the binaries.
type App struct {
	Config      *config.Config
	DB          *gorm.DB
	Store       *repository.FaceRepository
	Recognition *recognition.Client
	Queue       *queue.SQSQueue // nil when no queue URL is configured
	Publisher   *service.Publisher
	Intake      *service.IntakeService
	Search      *service.SearchService
}

// New connects every collaborator described by cfg and makes sure the face
// collection exists.
// Parameters:
//   - ctx: context for startup calls.
//   - cfg: loaded application configuration.
//
// Returns:
//   - *App: wired application; call Close when done.
//   - error: non-nil if any collaborator cannot be initialized.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}
	a := &App{Config: cfg, DB: db, Store: repository.NewFaceRepository(db)}

	awsCfg, err := cloud.LoadAWSConfig(ctx, cfg.AWS)
	if err != nil {
		a.Close()
		return nil, err
	}

	objectStorage, err := storage.NewStorage(cfg.Storage, cfg.AWS.Region)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init storage: %w", err)
	}

	a.Recognition = recognition.NewClient(awsCfg, cfg.Recognition)
	if err := a.Recognition.EnsureCollection(ctx); err != nil {
		a.Close()
		return nil, err
	}

	if cfg.Queue.URL != "" {
		a.Queue, err = queue.NewSQSQueue(awsCfg, cfg.Queue)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.Publisher = service.NewPublisher(a.Queue, cfg.Queue.BatchSize)
	} else {
		logger.Warn("queue.url is not set, queued ingestion is disabled")
	}

	fetcher := service.NewImageFetcher(cfg.Ingest.MaxImageBytes, cfg.Ingest.FetchTimeout, cfg.Ingest.UserAgent)

	a.Intake = service.NewIntakeService(
		service.NewDedupFilter(cfg.Ingest.ExcludedSites),
		fetcher,
		newDetector(cfg, a.Recognition),
		a.Recognition,
		objectStorage,
		&service.IntakeConfig{
			Workers:            cfg.Ingest.Workers,
			RecognitionTimeout: cfg.Recognition.Timeout,
		},
	)
	a.Search = service.NewSearchService(fetcher, a.Recognition, a.Store, cfg.Recognition.Timeout)

	return a, nil
}

func newDetector(cfg *config.Config, rec *recognition.Client) service.FaceDetector {
	if cfg.Detector.Provider == "rekognition" {
		return service.NewBytesFaceDetector(rec, cfg.Detector.Timeout)
	}
	return service.NewHTTPFaceDetector(cfg.Detector.URL, cfg.Detector.Timeout)
}

// PingDB checks the database connection.
func (a *App) PingDB(ctx context.Context) error {
	sqlDB, err := a.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the database pool.
func (a *App) Close() {
	if a.DB == nil {
		return
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		sqlDB.Close()
	}
}
