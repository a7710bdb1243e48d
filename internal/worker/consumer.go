// Package worker polls an SQS queue and hands each message to a Processor.
package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// SQSClient is the subset of the SQS API the worker uses.
type SQSClient interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
	ChangeMessageVisibility(ctx context.Context, params *sqs.ChangeMessageVisibilityInput, optFns ...func(*sqs.Options)) (*sqs.ChangeMessageVisibilityOutput, error)
}

// Processor handles a single message. A nil error deletes the message. An
// error with shouldRetry hides it for retryDelay seconds; any other error
// drops it.
type Processor interface {
	Process(ctx context.Context, msg types.Message) (shouldRetry bool, retryDelay int32, err error)
}

// Worker is a long-polling SQS consumer with a fixed pool of processors.
type Worker struct {
	client         SQSClient
	queueURL       string
	processor      Processor
	concurrency    int
	waitSeconds    int32
	receiveBackoff time.Duration // pause after a failed receive
}

func NewWorker(client SQSClient, queueURL string, processor Processor, concurrency int) *Worker {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Worker{
		client:         client,
		queueURL:       queueURL,
		processor:      processor,
		concurrency:    concurrency,
		waitSeconds:    20,
		receiveBackoff: 5 * time.Second,
	}
}

// Start polls until ctx is cancelled, then waits for in-flight messages.
func (w *Worker) Start(ctx context.Context) {
	slog.Info("recompute worker started", "queue_url", w.queueURL, "concurrency", w.concurrency)

	messages := make(chan types.Message, w.concurrency)

	var wg sync.WaitGroup
	for i := 0; i < w.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for msg := range messages {
				// In-flight work finishes even after shutdown starts
				w.handle(context.WithoutCancel(ctx), msg)
			}
		}()
	}

	w.poll(ctx, messages)
	wg.Wait()
	slog.Info("recompute worker stopped")
}

func (w *Worker) poll(ctx context.Context, messages chan<- types.Message) {
	defer close(messages)

	for {
		if ctx.Err() != nil {
			return
		}

		out, err := w.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:                    aws.String(w.queueURL),
			MaxNumberOfMessages:         int32(min(w.concurrency, 10)),
			WaitTimeSeconds:             w.waitSeconds,
			MessageSystemAttributeNames: []types.MessageSystemAttributeName{types.MessageSystemAttributeNameApproximateReceiveCount},
		})
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Error("failed to receive messages", "error", err, "retry_in", w.receiveBackoff)
			select {
			case <-time.After(w.receiveBackoff):
			case <-ctx.Done():
				return
			}
			continue
		}

		for _, msg := range out.Messages {
			select {
			case messages <- msg:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (w *Worker) handle(ctx context.Context, msg types.Message) {
	log := slog.With("message_id", aws.ToString(msg.MessageId))

	shouldRetry, retryDelay, err := w.processor.Process(ctx, msg)
	if err != nil && shouldRetry {
		log.Warn("message processing failed, will retry", "error", err, "retry_delay", retryDelay)
		if _, verr := w.client.ChangeMessageVisibility(ctx, &sqs.ChangeMessageVisibilityInput{
			QueueUrl:          aws.String(w.queueURL),
			ReceiptHandle:     msg.ReceiptHandle,
			VisibilityTimeout: retryDelay,
		}); verr != nil {
			log.Error("failed to change message visibility", "error", verr)
		}
		return
	}

	if err != nil {
		log.Error("dropping message", "error", err)
	}
	if _, derr := w.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(w.queueURL),
		ReceiptHandle: msg.ReceiptHandle,
	}); derr != nil {
		log.Error("failed to delete message", "error", derr)
	}
}
