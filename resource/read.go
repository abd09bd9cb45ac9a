package resource

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/organizations"
	"go.uber.org/zap"

	"github.com/hatsunemiku3939/policyattachment/orgs"
	"github.com/hatsunemiku3939/policyattachment/retry"
)

const opListTargetsForPolicy = "ListTargetsForPolicy"

// Lookup checks whether the policy is currently attached to the target by
// paging through the policy's targets. Each page request is retried on
// contention.
func (h *Handler) Lookup(ctx context.Context, m Model) Outcome {
	policy := h.retryPolicy(opListTargetsForPolicy, m)
	pager := organizations.NewListTargetsForPolicyPaginator(h.client, &organizations.ListTargetsForPolicyInput{
		PolicyId: aws.String(m.PolicyID),
	})

	pages := 0
	for pager.HasMorePages() {
		page, err := retry.Do(ctx, policy, func(ctx context.Context) (*organizations.ListTargetsForPolicyOutput, error) {
			return pager.NextPage(ctx)
		}, orgs.IsTransient)
		if err != nil {
			return h.resolveFailure(opListTargetsForPolicy, m, err)
		}
		pages++

		for _, target := range page.Targets {
			if aws.ToString(target.TargetId) == m.TargetID {
				h.logger.Debug("found policy attachment",
					zap.String("policyId", m.PolicyID),
					zap.String("targetId", m.TargetID),
					zap.Int("pages", pages),
				)
				return Outcome{Kind: Success}
			}
		}
	}

	msg := notAttachedMessage(m)
	h.logger.Error(msg, zap.String("operation", opListTargetsForPolicy), zap.Int("pages", pages))
	return Outcome{Kind: NotFound, Message: msg}
}

// Read is the READ lifecycle handler.
func (h *Handler) Read(ctx context.Context, m Model) ProgressEvent {
	return h.Lookup(ctx, m).ProgressEvent(&m)
}
