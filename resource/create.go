package resource

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/organizations"
	"go.uber.org/zap"

	"github.com/hatsunemiku3939/policyattachment/orgs"
	"github.com/hatsunemiku3939/policyattachment/retry"
)

const opAttachPolicy = "AttachPolicy"

// Attach attaches the policy to the target under the same contention retry
// policy as Detach.
func (h *Handler) Attach(ctx context.Context, m Model) Outcome {
	out, err := retry.Do(ctx, h.retryPolicy(opAttachPolicy, m), func(ctx context.Context) (*organizations.AttachPolicyOutput, error) {
		return h.client.AttachPolicy(ctx, &organizations.AttachPolicyInput{
			PolicyId: aws.String(m.PolicyID),
			TargetId: aws.String(m.TargetID),
		})
	}, orgs.IsTransient)
	if err != nil {
		if !retry.IsExhausted(err) && orgs.Classify(err) == orgs.KindDuplicateAttachment {
			msg := alreadyAttachedMessage(m)
			h.logger.Error(msg, zap.String("operation", opAttachPolicy))
			return Outcome{Kind: AlreadyExists, Message: msg}
		}
		return h.resolveFailure(opAttachPolicy, m, err)
	}

	h.logger.Debug("attach policy response", zap.Any("response", out))
	h.logger.Debug("successfully attached policy",
		zap.String("policyId", m.PolicyID),
		zap.String("targetId", m.TargetID),
	)
	return Outcome{Kind: Success}
}

// Create is the CREATE lifecycle handler.
func (h *Handler) Create(ctx context.Context, m Model) ProgressEvent {
	return h.Attach(ctx, m).ProgressEvent(&m)
}
