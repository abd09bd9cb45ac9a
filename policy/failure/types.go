package failure

import (
	"context"
	"fmt"
	"strings"
)

// Kind enumerates where in the dispatch pipeline a failure occurred.
type Kind int

const (
	// FailNone indicates no failure occurred.
	FailNone Kind = iota
	// FailEnvelopeSchema indicates the request envelope failed schema validation.
	FailEnvelopeSchema
	// FailEnvelopeParse indicates the request envelope could not be parsed.
	FailEnvelopeParse
	// FailModelSchema indicates the resource properties failed the registered model schema.
	FailModelSchema
	// FailNoHandler indicates no handler was registered or selected for the request.
	FailNoHandler
	// FailHandlerError indicates the lifecycle handler reported a hard failure.
	// Policy may choose to respect or override the handler's ShouldDelete decision.
	FailHandlerError
	// FailHandlerPanic indicates a panic occurred inside the handler or outer recovery.
	FailHandlerPanic
	// FailMiddlewareError indicates an error was returned by the middleware-wrapped core pipeline.
	FailMiddlewareError
)

func (k Kind) String() string {
	switch k {
	case FailNone:
		return "none"
	case FailEnvelopeSchema:
		return "envelope_schema"
	case FailEnvelopeParse:
		return "envelope_parse"
	case FailModelSchema:
		return "model_schema"
	case FailNoHandler:
		return "no_handler"
	case FailHandlerError:
		return "handler_error"
	case FailHandlerPanic:
		return "handler_panic"
	case FailMiddlewareError:
		return "middleware_error"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Result represents the delete decision and error to attach.
type Result struct {
	ShouldDelete bool
	Error        error
}

// Policy decides the final Result given a failure classification and current decision.
type Policy interface {
	Decide(ctx context.Context, kind Kind, inner error, current Result) Result
}

// Policy names accepted by ByName.
const (
	NameImmediate = "immediate"
	NameRedrive   = "redrive"
)

// ByName returns the built-in policy registered under name.
func ByName(name string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case NameImmediate:
		return ImmediateDeletePolicy{}, nil
	case NameRedrive:
		return SQSRedrivePolicy{}, nil
	default:
		return nil, fmt.Errorf("unknown failure policy %q", name)
	}
}
