package resource

import (
	"time"

	goerrors "github.com/goliatone/go-errors"
	"go.uber.org/zap"

	"github.com/hatsunemiku3939/policyattachment/orgs"
	"github.com/hatsunemiku3939/policyattachment/retry"
)

// Handler runs the lifecycle operations against the Organizations API.
// It holds no per-request state and is safe for concurrent use.
type Handler struct {
	client orgs.API
	retry  retry.Policy
	logger *zap.Logger
}

// Option configures a Handler at construction time.
type Option func(*Handler)

// WithRetryPolicy replaces the contention retry policy.
func WithRetryPolicy(p retry.Policy) Option {
	return func(h *Handler) { h.retry = p }
}

// WithLogger sets the logger. A nil logger is ignored.
func WithLogger(l *zap.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

// NewHandler creates a Handler. By default contention is retried every
// second plus up to one second of jitter, for at most 40 seconds.
func NewHandler(client orgs.API, opts ...Option) *Handler {
	h := &Handler{
		client: client,
		retry:  retry.Constant(retry.DefaultInterval, retry.DefaultJitter, retry.DefaultMaxElapsed),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// retryPolicy returns the handler's policy with a logging hook bound to op.
func (h *Handler) retryPolicy(op string, m Model) retry.Policy {
	p := h.retry
	if p.OnRetry == nil {
		p.OnRetry = func(attempt int, err error, delay time.Duration) {
			h.logger.Warn("retrying after contention",
				zap.String("operation", op),
				zap.String("policyId", m.PolicyID),
				zap.String("targetId", m.TargetID),
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
				zap.Stringer("kind", orgs.Classify(err)),
				zap.Error(err),
			)
		}
	}
	return p
}

// resolveFailure maps a final error from op onto an outcome. Retry
// exhaustion and unclassified errors become InternalFailure; the not-found
// family becomes NotFound.
func (h *Handler) resolveFailure(op string, m Model, err error) Outcome {
	if retry.IsExhausted(err) {
		return h.internalFailure(op, m, err)
	}

	kind := orgs.Classify(err)
	var msg string
	switch kind {
	case orgs.KindPolicyNotFound:
		msg = policyNotFoundMessage(m)
	case orgs.KindTargetNotFound:
		msg = targetNotFoundMessage(m)
	case orgs.KindPolicyNotAttached:
		msg = notAttachedMessage(m)
	default:
		return h.internalFailure(op, m, err)
	}

	h.logger.Error(msg,
		zap.String("operation", op),
		zap.Stringer("kind", kind),
	)
	return Outcome{Kind: NotFound, Message: msg}
}

func (h *Handler) internalFailure(op string, m Model, err error) Outcome {
	h.logger.Error("could not complete "+op,
		zap.String("policyId", m.PolicyID),
		zap.String("targetId", m.TargetID),
		zap.Error(err),
	)
	return Outcome{
		Kind:    InternalFailure,
		Message: err.Error(),
		Err:     internalError(op, m, err),
	}
}

// internalError wraps the source error in a go-errors envelope.
func internalError(op string, m Model, source error) error {
	return goerrors.Wrap(source, goerrors.CategoryExternal, source.Error()).
		WithTextCode(string(ErrorCodeInternalFailure)).
		WithMetadata(map[string]any{
			"operation": op,
			"policy_id": m.PolicyID,
			"target_id": m.TargetID,
		})
}
