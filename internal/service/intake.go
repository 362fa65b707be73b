package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/timmy/facefinder/internal/domain"
	"github.com/timmy/facefinder/internal/logger"
	"github.com/timmy/facefinder/internal/repository"
	"github.com/timmy/facefinder/internal/storage"
	"golang.org/x/sync/errgroup"
)

// FaceIndexer adds the faces of an image to the recognition collection.
type FaceIndexer interface {
	IndexFaces(ctx context.Context, image []byte) ([]string, error)
}

var errNotAttempted = errors.New("candidate not attempted")

// IntakeService runs candidates through dedup, download, validation,
// detection, indexing, upload and persistence.
type IntakeService struct {
	dedup              *DedupFilter
	fetcher            ImageSource
	detector           FaceDetector
	indexer            FaceIndexer
	storage            storage.ObjectStorage
	workers            int
	recognitionTimeout time.Duration
}

// IntakeConfig holds configuration for the intake service
type IntakeConfig struct {
	Workers            int
	RecognitionTimeout time.Duration
}

// NewIntakeService creates a new intake service
func NewIntakeService(
	dedup *DedupFilter,
	fetcher ImageSource,
	detector FaceDetector,
	indexer FaceIndexer,
	objectStorage storage.ObjectStorage,
	cfg *IntakeConfig,
) *IntakeService {
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	return &IntakeService{
		dedup:              dedup,
		fetcher:            fetcher,
		detector:           detector,
		indexer:            indexer,
		storage:            objectStorage,
		workers:            workers,
		recognitionTimeout: cfg.RecognitionTimeout,
	}
}

// IntakeStats holds statistics for one batch
type IntakeStats struct {
	Total        int
	Indexed      int
	Excluded     int
	AlreadyKnown int
	Rejected     int
	NoFace       int
	Failed       int
	StartTime    time.Time
	EndTime      time.Time
}

func (s *IntakeStats) add(r domain.Result) {
	s.Total++
	switch r.Outcome {
	case domain.OutcomeIndexed:
		s.Indexed++
	case domain.OutcomeExcluded:
		s.Excluded++
	case domain.OutcomeAlreadyKnown:
		s.AlreadyKnown++
	case domain.OutcomeRejected:
		s.Rejected++
	case domain.OutcomeNoFace:
		s.NoFace++
	default:
		s.Failed++
	}
}

// ProcessBatch ingests candidates with up to the configured number of workers.
// Every worker pins one store connection for its lifetime. Results are
// positionally aligned with candidates; a candidate that was never attempted
// (cancellation, connection failure) is reported as a retryable failure.
// Parameters:
//   - ctx: context for cancellation.
//   - store: store the workers check out connections from.
//   - candidates: candidates to ingest.
//
// Returns:
//   - []domain.Result: one result per candidate.
//   - *IntakeStats: outcome counts.
//   - error: non-nil if a worker could not obtain a store connection or ctx ended.
func (s *IntakeService) ProcessBatch(ctx context.Context, store repository.FaceStore, candidates []domain.Candidate) ([]domain.Result, *IntakeStats, error) {
	stats := &IntakeStats{StartTime: time.Now()}
	results := make([]domain.Result, len(candidates))
	for i, c := range candidates {
		results[i] = domain.Result{Candidate: c, Outcome: domain.OutcomeFailed, Retryable: true, Err: errNotAttempted}
	}

	jobs := make(chan int)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(jobs)
		for i := range candidates {
			select {
			case jobs <- i:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	for w := 0; w < min(s.workers, len(candidates)); w++ {
		g.Go(func() error {
			return store.WithConnection(gctx, func(conn repository.FaceStore) error {
				for i := range jobs {
					if err := gctx.Err(); err != nil {
						return err
					}
					results[i] = s.Ingest(gctx, conn, candidates[i])
				}
				return nil
			})
		})
	}

	err := g.Wait()

	for _, r := range results {
		stats.add(r)
	}
	stats.EndTime = time.Now()

	logger.FromContext(ctx).WithFields(logger.Fields{
		"total":         stats.Total,
		"indexed":       stats.Indexed,
		"excluded":      stats.Excluded,
		"already_known": stats.AlreadyKnown,
		"rejected":      stats.Rejected,
		"no_face":       stats.NoFace,
		"failed":        stats.Failed,
		"duration":      stats.EndTime.Sub(stats.StartTime).String(),
	}).Info("Batch completed")

	return results, stats, err
}

// Ingest runs one candidate through the pipeline using store for every query.
// Every early exit is reported as a Result; nothing is returned as an error.
func (s *IntakeService) Ingest(ctx context.Context, store repository.FaceStore, c domain.Candidate) domain.Result {
	ctx = logger.SetCandidate(ctx, c.SiteURL, c.ImageURL)
	if c.ClientID != "" {
		ctx = logger.WithField(ctx, logger.FieldClientID, c.ClientID)
	}
	start := time.Now()

	res := s.ingest(ctx, store, c)
	res.Candidate = c

	entry := logger.With(logger.Fields{logger.FieldCount: len(res.FaceIDs)}).
		WithOutcome(string(res.Outcome)).
		WithDuration(time.Since(start))
	switch {
	case res.Outcome == domain.OutcomeFailed:
		entry.With(logger.Fields{"error": res.Err.Error(), "retryable": res.Retryable}).Warn(ctx, "Candidate failed")
	case res.Err != nil:
		entry.With(logger.Fields{"reason": res.Err.Error()}).Info(ctx, "Candidate skipped")
	default:
		entry.Info(ctx, "Candidate processed")
	}
	return res
}

func (s *IntakeService) ingest(ctx context.Context, store repository.FaceStore, c domain.Candidate) domain.Result {
	verdict, err := s.dedup.Check(ctx, store, c)
	switch {
	case errors.Is(err, domain.ErrBadSiteURL), errors.Is(err, domain.ErrURLTooLong):
		return domain.Result{Outcome: domain.OutcomeRejected, Err: err}
	case err != nil:
		return failure(ctx, err, true)
	case verdict == Excluded:
		return domain.Result{Outcome: domain.OutcomeExcluded}
	case verdict == AlreadyKnown:
		return domain.Result{Outcome: domain.OutcomeAlreadyKnown}
	}

	data, err := s.fetcher.Fetch(ctx, c.ImageURL)
	if errors.Is(err, domain.ErrImageTooLarge) {
		return domain.Result{Outcome: domain.OutcomeRejected, Err: err}
	}
	if err != nil {
		return failure(ctx, err, false)
	}

	contentType, err := SniffImage(data)
	if err != nil {
		return domain.Result{Outcome: domain.OutcomeRejected, Err: err}
	}

	hasFace, err := s.detector.HasFace(ctx, c.ImageURL, data)
	if err != nil {
		if ctx.Err() != nil {
			return failure(ctx, err, true)
		}
		logger.FromContext(ctx).WithError(err).Warn("Face detection failed, treating as no face")
		return domain.Result{Outcome: domain.OutcomeNoFace, Err: err}
	}
	if !hasFace {
		return domain.Result{Outcome: domain.OutcomeNoFace}
	}

	faceIDs, err := s.indexFaces(ctx, data)
	if err != nil {
		return failure(ctx, err, true)
	}
	if len(faceIDs) == 0 {
		logger.CtxInfo(ctx, "Recognition service indexed no faces")
		return domain.Result{Outcome: domain.OutcomeNoFace}
	}

	key := c.StorageKey()
	if err := s.upload(ctx, key, data, contentType); err != nil {
		return failure(ctx, err, true)
	}

	for _, faceID := range faceIDs {
		inserted, err := store.Insert(ctx, &domain.FaceRecord{
			FaceID:         faceID,
			SourceImageURL: c.ImageURL,
			SourceSiteURL:  c.SiteURL,
			StorageKey:     key,
			StorageBucket:  s.storage.Bucket(),
		})
		if err != nil {
			return failure(ctx, fmt.Errorf("store face %s: %w", faceID, err), true)
		}
		if !inserted {
			logger.FromContext(ctx).WithField(logger.FieldFaceID, faceID).Debug("Face already stored")
		}
	}

	return domain.Result{Outcome: domain.OutcomeIndexed, FaceIDs: faceIDs}
}

func (s *IntakeService) indexFaces(ctx context.Context, data []byte) ([]string, error) {
	if s.recognitionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.recognitionTimeout)
		defer cancel()
	}
	return s.indexer.IndexFaces(ctx, data)
}

// upload stores data under key unless an earlier attempt already did.
func (s *IntakeService) upload(ctx context.Context, key string, data []byte, contentType string) error {
	exists, err := s.storage.Exists(ctx, key)
	if err != nil {
		return err
	}
	if exists {
		logger.FromContext(ctx).WithField("storage_key", key).Debug("Image already in storage, skipping upload")
		return nil
	}
	return s.storage.Put(ctx, key, data, contentType)
}

// failure builds a Failed result. Failures caused by cancellation are always retryable.
func failure(ctx context.Context, err error, retryable bool) domain.Result {
	return domain.Result{
		Outcome:   domain.OutcomeFailed,
		Retryable: retryable || ctx.Err() != nil,
		Err:       err,
	}
}
