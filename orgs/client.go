// Package orgs is the boundary to the AWS Organizations API.
package orgs

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/organizations"
)

// API defines the Organizations operations needed by the resource handlers.
// *organizations.Client satisfies it; tests substitute a mock.
type API interface {
	AttachPolicy(ctx context.Context, params *organizations.AttachPolicyInput, optFns ...func(*organizations.Options)) (*organizations.AttachPolicyOutput, error)
	DetachPolicy(ctx context.Context, params *organizations.DetachPolicyInput, optFns ...func(*organizations.Options)) (*organizations.DetachPolicyOutput, error)
	ListTargetsForPolicy(ctx context.Context, params *organizations.ListTargetsForPolicyInput, optFns ...func(*organizations.Options)) (*organizations.ListTargetsForPolicyOutput, error)
}

var _ API = (*organizations.Client)(nil)

// ClientOption tunes the SDK client built by NewClient.
type ClientOption func(*organizations.Options)

// WithEndpoint points the client at a non-default endpoint (e.g. a local emulator).
func WithEndpoint(url string) ClientOption {
	return func(o *organizations.Options) {
		if url != "" {
			o.BaseEndpoint = aws.String(url)
		}
	}
}

// NewClient creates an Organizations client from a loaded AWS config. The
// SDK retryer is disabled: every handler attempt is exactly one request, and
// contention is retried only by the handlers' own policy.
func NewClient(cfg aws.Config, opts ...ClientOption) *organizations.Client {
	return organizations.NewFromConfig(cfg, func(o *organizations.Options) {
		for _, opt := range opts {
			opt(o)
		}
		o.Retryer = aws.NopRetryer{}
		o.RetryMaxAttempts = 0
	})
}
