package queue

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/timmy/facefinder/internal/config"
)

// MaxBatchEntries is the most messages SQS accepts in one SendMessageBatch call.
const MaxBatchEntries = 10

var ErrBatchTooLarge = errors.New("batch exceeds queue limit")

// Message is one received queue message.
type Message struct {
	ID            string
	ReceiptHandle string
	Body          string
}

// EntryFailure is a batch entry the queue refused.
type EntryFailure struct {
	Index       int
	Code        string
	Message     string
	SenderFault bool
}

func (f EntryFailure) Error() string {
	return fmt.Sprintf("entry %d rejected: %s: %s", f.Index, f.Code, f.Message)
}

type sqsAPI interface {
	SendMessageBatch(ctx context.Context, in *sqs.SendMessageBatchInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageBatchOutput, error)
	ReceiveMessage(ctx context.Context, in *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, in *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// SQSQueue sends and receives candidate messages on one SQS queue.
type SQSQueue struct {
	client            sqsAPI
	url               string
	delaySeconds      int32
	waitTimeSeconds   int32
	visibilityTimeout int32
	maxMessages       int32
}

// NewSQSQueue creates a queue client.
// Parameters:
//   - awsCfg: shared SDK configuration.
//   - cfg: queue URL and tuning.
//
// Returns:
//   - *SQSQueue: client bound to cfg.URL.
//   - error: non-nil if no queue URL is configured.
func NewSQSQueue(awsCfg aws.Config, cfg config.QueueConfig) (*SQSQueue, error) {
	if cfg.URL == "" {
		return nil, errors.New("queue url is required (set QUEUE_URL)")
	}
	return newSQSQueue(sqs.NewFromConfig(awsCfg), cfg), nil
}

func newSQSQueue(client sqsAPI, cfg config.QueueConfig) *SQSQueue {
	maxMessages := cfg.MaxMessages
	if maxMessages < 1 || maxMessages > MaxBatchEntries {
		maxMessages = MaxBatchEntries
	}
	return &SQSQueue{
		client:            client,
		url:               cfg.URL,
		delaySeconds:      cfg.DelaySeconds,
		waitTimeSeconds:   cfg.WaitTimeSeconds,
		visibilityTimeout: cfg.VisibilityTimeout,
		maxMessages:       maxMessages,
	}
}

// SendBatch submits bodies as a single SendMessageBatch request.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - bodies: message bodies, at most MaxBatchEntries.
//
// Returns:
//   - []EntryFailure: entries the queue rejected, indexed into bodies.
//   - error: non-nil if the request as a whole failed.
func (q *SQSQueue) SendBatch(ctx context.Context, bodies []string) ([]EntryFailure, error) {
	if len(bodies) == 0 {
		return nil, nil
	}
	if len(bodies) > MaxBatchEntries {
		return nil, fmt.Errorf("%w: %d entries", ErrBatchTooLarge, len(bodies))
	}

	entries := make([]types.SendMessageBatchRequestEntry, len(bodies))
	for i, body := range bodies {
		entries[i] = types.SendMessageBatchRequestEntry{
			Id:           aws.String(strconv.Itoa(i)),
			MessageBody:  aws.String(body),
			DelaySeconds: q.delaySeconds,
		}
	}

	out, err := q.client.SendMessageBatch(ctx, &sqs.SendMessageBatchInput{
		QueueUrl: aws.String(q.url),
		Entries:  entries,
	})
	if err != nil {
		return nil, fmt.Errorf("send message batch: %w", err)
	}

	var failures []EntryFailure
	for _, f := range out.Failed {
		idx, convErr := strconv.Atoi(aws.ToString(f.Id))
		if convErr != nil {
			idx = -1
		}
		failures = append(failures, EntryFailure{
			Index:       idx,
			Code:        aws.ToString(f.Code),
			Message:     aws.ToString(f.Message),
			SenderFault: f.SenderFault,
		})
	}
	return failures, nil
}

// Receive long-polls for up to the configured number of messages.
func (q *SQSQueue) Receive(ctx context.Context) ([]Message, error) {
	out, err := q.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(q.url),
		MaxNumberOfMessages: q.maxMessages,
		WaitTimeSeconds:     q.waitTimeSeconds,
		VisibilityTimeout:   q.visibilityTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("receive messages: %w", err)
	}

	msgs := make([]Message, 0, len(out.Messages))
	for _, m := range out.Messages {
		msgs = append(msgs, Message{
			ID:            aws.ToString(m.MessageId),
			ReceiptHandle: aws.ToString(m.ReceiptHandle),
			Body:          aws.ToString(m.Body),
		})
	}
	return msgs, nil
}

// Delete acknowledges a message so it is not redelivered.
func (q *SQSQueue) Delete(ctx context.Context, receiptHandle string) error {
	_, err := q.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(q.url),
		ReceiptHandle: aws.String(receiptHandle),
	})
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	return nil
}
