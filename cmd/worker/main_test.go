package main

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/timmy/facefinder/internal/app"
)

func TestNewConsumerRequiresQueue(t *testing.T) {
	_, err := newConsumer(&app.App{}, time.Second)
	if !errors.Is(err, errQueueRequired) {
		t.Fatalf("newConsumer() error = %v, want %v", err, errQueueRequired)
	}
}

func TestRunReturnsConfigErrors(t *testing.T) {
	opts := options{configPath: filepath.Join(t.TempDir(), "missing.yaml"), backoff: time.Second}
	if err := run(context.Background(), opts); err == nil {
		t.Fatal("expected error for a missing config file")
	}
}
