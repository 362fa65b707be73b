package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/timmy/facefinder/internal/domain"
	"github.com/timmy/facefinder/internal/logger"
	"github.com/timmy/facefinder/internal/queue"
	"github.com/timmy/facefinder/internal/repository"
	"github.com/timmy/facefinder/internal/service"
)

// MessageQueue is the receiving side of the candidate queue.
type MessageQueue interface {
	Receive(ctx context.Context) ([]queue.Message, error)
	Delete(ctx context.Context, receiptHandle string) error
}

// BatchProcessor ingests a batch of candidates.
type BatchProcessor interface {
	ProcessBatch(ctx context.Context, store repository.FaceStore, candidates []domain.Candidate) ([]domain.Result, *service.IntakeStats, error)
}

// Consumer drains the candidate queue into the intake pipeline.
// Messages whose outcome is terminal are deleted; the rest become visible
// again after the visibility timeout and are redelivered.
type Consumer struct {
	queue   MessageQueue
	intake  BatchProcessor
	store   repository.FaceStore
	backoff time.Duration
}

// NewConsumer creates a new consumer. backoff is the pause after a failed receive.
func NewConsumer(q MessageQueue, intake BatchProcessor, store repository.FaceStore, backoff time.Duration) *Consumer {
	return &Consumer{queue: q, intake: intake, store: store, backoff: backoff}
}

// Run polls until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	ctx = logger.SetComponent(ctx, "worker")
	logger.CtxInfo(ctx, "Consumer started")

	for {
		if _, err := c.Poll(ctx); err != nil {
			if ctx.Err() != nil {
				logger.CtxInfo(ctx, "Consumer stopped")
				return nil
			}
			logger.FromContext(ctx).WithError(err).Error("Poll failed")
			select {
			case <-time.After(c.backoff):
			case <-ctx.Done():
				return nil
			}
		}
	}
}

// Poll runs one receive, process and acknowledge cycle.
// Parameters:
//   - ctx: context for cancellation.
//
// Returns:
//   - int: number of messages deleted from the queue.
//   - error: non-nil if receiving failed or the batch could not be completed.
func (c *Consumer) Poll(ctx context.Context) (int, error) {
	msgs, err := c.queue.Receive(ctx)
	if err != nil {
		return 0, err
	}
	if len(msgs) == 0 {
		return 0, nil
	}

	deleted := 0
	candidates := make([]domain.Candidate, 0, len(msgs))
	pending := make([]queue.Message, 0, len(msgs))
	for _, m := range msgs {
		var cand domain.Candidate
		if err := json.Unmarshal([]byte(m.Body), &cand); err != nil || cand.SiteURL == "" || cand.ImageURL == "" {
			logger.FromContext(ctx).WithField(logger.FieldMessageID, m.ID).Warn("Dropping malformed message")
			if c.ack(ctx, m) {
				deleted++
			}
			continue
		}
		candidates = append(candidates, cand)
		pending = append(pending, m)
	}

	results, _, batchErr := c.intake.ProcessBatch(ctx, c.store, candidates)
	for i, r := range results {
		if !r.Terminal() {
			continue
		}
		if c.ack(ctx, pending[i]) {
			deleted++
		}
	}
	return deleted, batchErr
}

func (c *Consumer) ack(ctx context.Context, m queue.Message) bool {
	// Acknowledge even when ctx was cancelled mid-batch so finished work is not redone.
	if err := c.queue.Delete(context.WithoutCancel(ctx), m.ReceiptHandle); err != nil {
		logger.FromContext(ctx).WithField(logger.FieldMessageID, m.ID).WithError(err).Error("Failed to delete message")
		return false
	}
	return true
}
