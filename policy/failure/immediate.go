package failure

import "context"

// ImmediateDeletePolicy deletes requests that can never succeed (malformed
// envelope or model, no handler, panic). Handler and middleware failures keep
// the handler's own decision.
type ImmediateDeletePolicy struct{}

// Decide implements ImmediateDeletePolicy behavior.
func (p ImmediateDeletePolicy) Decide(_ context.Context, kind Kind, inner error, current Result) Result {
	switch kind {
	case FailNone:
		return current
	case FailEnvelopeSchema, FailEnvelopeParse, FailModelSchema, FailNoHandler, FailHandlerPanic:
		current.ShouldDelete = true
		if inner != nil && current.Error == nil {
			current.Error = inner
		}
		return current
	case FailMiddlewareError, FailHandlerError:
		if inner != nil && current.Error == nil {
			current.Error = inner
		}
		return current
	default:
		return current
	}
}
