package failure

import "context"

// SQSRedrivePolicy always returns ShouldDelete=false for failures so the
// queue's redrive policy moves poison requests to the dead-letter queue.
type SQSRedrivePolicy struct{}

// Decide implements the Policy interface for SQS redrive delegation.
func (p SQSRedrivePolicy) Decide(_ context.Context, kind Kind, inner error, current Result) Result {
	if kind == FailNone {
		return current
	}
	current.ShouldDelete = false
	if inner != nil && current.Error == nil {
		current.Error = inner
	}
	return current
}
