package policyattachment

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"go.uber.org/zap"
)

// --- SQS Consumer Configuration ---
const (
	// defaultMaxMessages is the maximum number of requests to retrieve in one SQS API call.
	defaultMaxMessages = 5
	// defaultWaitTimeSeconds enables SQS Long Polling, reducing cost and empty responses.
	defaultWaitTimeSeconds = 10
	// deleteTimeout sets a client-side timeout for the DeleteMessage API call.
	deleteTimeout = 5 * time.Second
	// reportTimeout sets a client-side timeout for publishing a response.
	reportTimeout = 5 * time.Second
	// defaultProcessingTimeout bounds a single request. It must exceed the
	// handlers' 40s contention budget and stay under the queue's visibility timeout.
	defaultProcessingTimeout = 90 * time.Second
	// receiveRetryDelay is the pause after a failed ReceiveMessage call.
	receiveRetryDelay = 2 * time.Second
)

// SQSClient defines the interface for SQS operations needed by the Consumer.
// This allows for easier testing by mocking the SQS client.
type SQSClient interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// Consumer polls the request queue and processes lifecycle requests.
type Consumer struct {
	client   SQSClient
	queueURL string
	router   *Router
	reporter Reporter
	logger   *zap.Logger

	maxMessages       int32
	waitTimeSeconds   int32
	processingTimeout time.Duration
}

// ConsumerOption configures a Consumer at construction time.
type ConsumerOption func(*Consumer)

// WithReporter sets where terminal results are published.
func WithReporter(r Reporter) ConsumerOption {
	return func(c *Consumer) {
		if r != nil {
			c.reporter = r
		}
	}
}

// WithConsumerLogger sets the consumer's logger.
func WithConsumerLogger(l *zap.Logger) ConsumerOption {
	return func(c *Consumer) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithPolling sets the batch size and long-poll wait. Non-positive values keep the defaults.
func WithPolling(maxMessages, waitTimeSeconds int32) ConsumerOption {
	return func(c *Consumer) {
		if maxMessages > 0 {
			c.maxMessages = maxMessages
		}
		if waitTimeSeconds > 0 {
			c.waitTimeSeconds = waitTimeSeconds
		}
	}
}

// WithProcessingTimeout bounds the processing of a single request.
func WithProcessingTimeout(d time.Duration) ConsumerOption {
	return func(c *Consumer) {
		if d > 0 {
			c.processingTimeout = d
		}
	}
}

// NewConsumer creates a new SQS request consumer.
func NewConsumer(client SQSClient, queueURL string, router *Router, opts ...ConsumerOption) *Consumer {
	c := &Consumer{
		client:            client,
		queueURL:          queueURL,
		router:            router,
		reporter:          NopReporter{},
		logger:            zap.NewNop(),
		maxMessages:       defaultMaxMessages,
		waitTimeSeconds:   defaultWaitTimeSeconds,
		processingTimeout: defaultProcessingTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start begins the consumer's polling loop. It blocks until the context is
// canceled and all in-flight requests have finished.
func (c *Consumer) Start(ctx context.Context) {
	c.logger.Info("consumer started", zap.String("queueUrl", c.queueURL))
	var wg sync.WaitGroup

	for {
		// Before polling, check if a shutdown has been initiated.
		if ctx.Err() != nil {
			c.logger.Info("shutdown initiated, no longer polling for new requests")
			break
		}

		output, err := c.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(c.queueURL),
			MaxNumberOfMessages: c.maxMessages,
			WaitTimeSeconds:     c.waitTimeSeconds,
		})

		if err != nil {
			if errors.Is(err, context.Canceled) {
				c.logger.Info("context canceled by shutdown signal, stopping poller")
				break
			}
			c.logger.Error("failed to receive requests, retrying", zap.Error(err))
			select {
			case <-time.After(receiveRetryDelay):
			case <-ctx.Done():
			}
			continue
		}

		if len(output.Messages) == 0 {
			continue
		}

		c.logger.Debug("received requests", zap.Int("count", len(output.Messages)))

		for _, msg := range output.Messages {
			wg.Add(1)
			go func(m types.Message) {
				defer wg.Done()
				// Derived from Background so shutdown does not abort in-flight work.
				msgCtx, cancelMsg := context.WithTimeout(context.Background(), c.processingTimeout)
				defer cancelMsg()
				c.processMessage(msgCtx, &m)
			}(msg)
		}
	}

	c.logger.Info("waiting for in-flight requests to be processed")
	wg.Wait()
	c.logger.Info("graceful shutdown complete")
}

// processMessage routes, handles, reports and deletes a single SQS message.
// Empty bodies are routed too, so the failure policy decides their fate.
func (c *Consumer) processMessage(ctx context.Context, msg *types.Message) {
	var body []byte
	if msg.Body != nil {
		body = []byte(*msg.Body)
	} else {
		c.logger.Warn("received request without body", zap.String("messageId", aws.ToString(msg.MessageId)))
	}

	routed := c.router.Route(ctx, body)
	fields := []zap.Field{
		zap.String("requestId", routed.RequestID),
		zap.String("typeName", routed.TypeName),
		zap.String("action", routed.Action),
		zap.String("timestamp", routed.Timestamp),
	}
	if p := routed.HandlerResult.Progress; p != nil {
		fields = append(fields, zap.String("status", string(p.OperationStatus)), zap.String("errorCode", string(p.HandlerErrorCode)))
	}

	if routed.HandlerResult.Error != nil {
		c.logger.Error("request failed", append(fields, zap.Error(routed.HandlerResult.Error))...)
	} else {
		c.logger.Info("request handled", fields...)
	}

	if !routed.HandlerResult.ShouldDelete {
		c.logger.Warn("leaving request for redelivery after visibility timeout", fields...)
		return
	}

	reportCtx, cancelReport := context.WithTimeout(context.Background(), reportTimeout)
	defer cancelReport()
	if err := c.reporter.Report(reportCtx, routed); err != nil {
		// Keep the request so the answer is produced again on redelivery.
		c.logger.Error("failed to report result", append(fields, zap.Error(err))...)
		return
	}

	deleteCtx, cancelDelete := context.WithTimeout(context.Background(), deleteTimeout)
	defer cancelDelete()

	_, err := c.client.DeleteMessage(deleteCtx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(c.queueURL),
		ReceiptHandle: msg.ReceiptHandle,
	})
	if err != nil {
		c.logger.Error("failed to delete request", append(fields, zap.Error(err))...)
		return
	}
	c.logger.Debug("deleted request", fields...)
}
