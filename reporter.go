package policyattachment

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"github.com/hatsunemiku3939/policyattachment/resource"
)

// Reporter publishes the terminal result of a lifecycle request.
type Reporter interface {
	Report(ctx context.Context, routed RoutedResult) error
}

// NopReporter discards results.
type NopReporter struct{}

// Report implements Reporter.
func (NopReporter) Report(context.Context, RoutedResult) error { return nil }

// SQSSender defines the SQS operation needed by SQSReporter.
type SQSSender interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// Response is the message body published to the response queue.
type Response struct {
	RequestID string                 `json:"requestId"`
	TypeName  string                 `json:"typeName"`
	Action    string                 `json:"action"`
	Progress  resource.ProgressEvent `json:"progress"`
}

// SQSReporter sends each result as a JSON Response to a response queue.
type SQSReporter struct {
	client   SQSSender
	queueURL string
}

// NewSQSReporter creates a reporter publishing to queueURL.
func NewSQSReporter(client SQSSender, queueURL string) *SQSReporter {
	return &SQSReporter{client: client, queueURL: queueURL}
}

// Report implements Reporter. Results without a progress event (malformed or
// unroutable requests) are reported as InternalFailure with the routing error.
func (r *SQSReporter) Report(ctx context.Context, routed RoutedResult) error {
	resp := Response{
		RequestID: routed.RequestID,
		TypeName:  routed.TypeName,
		Action:    routed.Action,
	}
	switch {
	case routed.HandlerResult.Progress != nil:
		resp.Progress = *routed.HandlerResult.Progress
	case routed.HandlerResult.Error != nil:
		resp.Progress = resource.ProgressEvent{
			OperationStatus:  resource.StatusFailed,
			HandlerErrorCode: resource.ErrorCodeInternalFailure,
			Message:          routed.HandlerResult.Error.Error(),
		}
	default:
		resp.Progress = resource.ProgressEvent{OperationStatus: resource.StatusSuccess}
	}

	body, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("failed to encode response: %w", err)
	}

	input := &sqs.SendMessageInput{
		QueueUrl:    aws.String(r.queueURL),
		MessageBody: aws.String(string(body)),
	}
	if routed.RequestID != "" {
		input.MessageAttributes = map[string]sqstypes.MessageAttributeValue{
			"requestId": {DataType: aws.String("String"), StringValue: aws.String(routed.RequestID)},
		}
	}
	if _, err := r.client.SendMessage(ctx, input); err != nil {
		return fmt.Errorf("failed to send response for request %s: %w", routed.RequestID, err)
	}
	return nil
}
