package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/timmy/facefinder/internal/app"
	"github.com/timmy/facefinder/internal/config"
	"github.com/timmy/facefinder/internal/logger"
	"github.com/timmy/facefinder/internal/worker"
)

var errQueueRequired = errors.New("queue.url is required to run the worker")

type options struct {
	configPath string
	once       bool
	backoff    time.Duration
}

func main() {
	appLogger := logger.NewDefault().WithField(logger.FieldComponent, "worker")
	logger.SetDefaultLogger(appLogger)

	var opts options
	flag.StringVar(&opts.configPath, "config", os.Getenv("CONFIG_PATH"), "Path to config file")
	flag.BoolVar(&opts.once, "once", false, "Process a single receive and exit")
	flag.DurationVar(&opts.backoff, "backoff", 5*time.Second, "Pause after a failed receive")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx, opts)
	stop()
	if err != nil {
		appLogger.WithError(err).Error("Worker failed")
		logger.Sync()
		os.Exit(1)
	}
	logger.Sync()
}

// run owns every resource it opens, so they are released before main exits.
func run(ctx context.Context, opts options) error {
	appLogger := logger.GetDefault()

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}

	a, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer a.Close()

	consumer, err := newConsumer(a, opts.backoff)
	if err != nil {
		return err
	}

	appLogger.WithFields(logger.Fields{
		"workers":    cfg.Ingest.Workers,
		"collection": cfg.Recognition.Collection,
		"once":       opts.once,
	}).Info("Starting worker")

	if opts.once {
		deleted, err := consumer.Poll(ctx)
		if err != nil {
			return fmt.Errorf("poll failed: %w", err)
		}
		appLogger.WithField(logger.FieldCount, deleted).Info("Single poll completed")
		return nil
	}

	if err := consumer.Run(ctx); err != nil {
		return fmt.Errorf("worker stopped: %w", err)
	}
	appLogger.Info("Worker stopped")
	return nil
}

func newConsumer(a *app.App, backoff time.Duration) (*worker.Consumer, error) {
	if a.Queue == nil {
		return nil, errQueueRequired
	}
	return worker.NewConsumer(a.Queue, a.Intake, a.Store, backoff), nil
}
