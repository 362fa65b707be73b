package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/timmy/facefinder/internal/domain"
	"github.com/timmy/facefinder/internal/logger"
	"github.com/timmy/facefinder/internal/queue"
)

// Chunk splits items into consecutive slices of at most size elements.
// Chunk k holds items[k*size : (k+1)*size]; only the last chunk may be shorter.
// Parameters:
//   - items: input sequence, left unmodified.
//   - size: maximum chunk length; values below 1 are treated as 1.
//
// Returns:
//   - [][]T: ceil(len(items)/size) chunks whose concatenation equals items.
func Chunk[T any](items []T, size int) [][]T {
	if size < 1 {
		size = 1
	}
	chunks := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		chunks = append(chunks, items[start:end:end])
	}
	return chunks
}

// BatchSender submits one batch of message bodies to the queue.
type BatchSender interface {
	SendBatch(ctx context.Context, bodies []string) ([]queue.EntryFailure, error)
}

// BatchError records why one batch, or some of its entries, was not queued.
type BatchError struct {
	Batch   int
	Entries int
	Err     error
}

// PublishReport summarizes a Publish call.
type PublishReport struct {
	BatchID string
	Batches int
	Sent    int
	Failed  int
	Errors  []BatchError
}

// Publisher queues candidates for the intake workers.
type Publisher struct {
	sender    BatchSender
	batchSize int
}

// NewPublisher creates a publisher sending batches of at most batchSize messages.
func NewPublisher(sender BatchSender, batchSize int) *Publisher {
	if batchSize < 1 || batchSize > queue.MaxBatchEntries {
		batchSize = queue.MaxBatchEntries
	}
	return &Publisher{sender: sender, batchSize: batchSize}
}

// Publish splits candidates into batches and submits each one independently.
// A failed batch is recorded in the report and does not stop later batches.
// Parameters:
//   - ctx: context for cancellation; batches not yet sent when it ends are reported as failed.
//   - candidates: candidates in delivery order.
//   - clientID: when non-empty, stamped on every message.
//
// Returns:
//   - *PublishReport: per-batch outcome.
func (p *Publisher) Publish(ctx context.Context, candidates []domain.Candidate, clientID string) *PublishReport {
	report := &PublishReport{BatchID: uuid.New().String()}
	ctx = logger.SetBatchID(ctx, report.BatchID)
	if clientID != "" {
		ctx = logger.WithField(ctx, logger.FieldClientID, clientID)
	}
	start := time.Now()

	for n, batch := range Chunk(candidates, p.batchSize) {
		report.Batches++
		if err := ctx.Err(); err != nil {
			report.fail(n, len(batch), err)
			continue
		}

		bodies, err := encodeCandidates(batch, clientID)
		if err != nil {
			report.fail(n, len(batch), err)
			continue
		}

		failures, err := p.sender.SendBatch(ctx, bodies)
		if err != nil {
			logger.FromContext(ctx).WithError(err).WithField("batch", n).Error("Failed to publish batch")
			report.fail(n, len(batch), err)
			continue
		}
		report.Sent += len(batch) - len(failures)
		for _, f := range failures {
			logger.FromContext(ctx).WithFields(logger.Fields{
				"batch": n,
				"entry": f.Index,
			}).Warn(f.Error())
			report.fail(n, 1, f)
		}
	}

	logger.With(logger.Fields{
		"batches": report.Batches,
		"sent":    report.Sent,
		"failed":  report.Failed,
	}).WithDuration(time.Since(start)).Info(ctx, "Published candidates")

	return report
}

func (r *PublishReport) fail(batch, entries int, err error) {
	r.Failed += entries
	r.Errors = append(r.Errors, BatchError{Batch: batch, Entries: entries, Err: err})
}

func encodeCandidates(batch []domain.Candidate, clientID string) ([]string, error) {
	bodies := make([]string, len(batch))
	for i, c := range batch {
		if clientID != "" {
			c.ClientID = clientID
		}
		b, err := json.Marshal(c)
		if err != nil {
			return nil, fmt.Errorf("encode candidate: %w", err)
		}
		bodies[i] = string(b)
	}
	return bodies, nil
}
