package resource

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/organizations"
	"go.uber.org/zap"

	"github.com/hatsunemiku3939/policyattachment/orgs"
	"github.com/hatsunemiku3939/policyattachment/retry"
)

const opDetachPolicy = "DetachPolicy"

// Detach removes the policy from the target. Contention is retried under the
// handler's retry policy; a missing policy, target or attachment yields
// NotFound since the desired end state already holds.
func (h *Handler) Detach(ctx context.Context, m Model) Outcome {
	out, err := retry.Do(ctx, h.retryPolicy(opDetachPolicy, m), func(ctx context.Context) (*organizations.DetachPolicyOutput, error) {
		return h.client.DetachPolicy(ctx, &organizations.DetachPolicyInput{
			PolicyId: aws.String(m.PolicyID),
			TargetId: aws.String(m.TargetID),
		})
	}, orgs.IsTransient)
	if err != nil {
		return h.resolveFailure(opDetachPolicy, m, err)
	}

	h.logger.Debug("detach policy response", zap.Any("response", out))
	h.logger.Debug("successfully deleted policy attachment",
		zap.String("policyId", m.PolicyID),
		zap.String("targetId", m.TargetID),
	)
	return Outcome{Kind: Success}
}

// Delete is the DELETE lifecycle handler.
func (h *Handler) Delete(ctx context.Context, m Model) ProgressEvent {
	return h.Detach(ctx, m).ProgressEvent(nil)
}
