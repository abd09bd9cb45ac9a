package policyattachment

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/hatsunemiku3939/policyattachment/pkg/jsonschema"
	failure "github.com/hatsunemiku3939/policyattachment/policy/failure"
	"github.com/hatsunemiku3939/policyattachment/policy/routing"
	"github.com/hatsunemiku3939/policyattachment/types"
)

// Router routes incoming lifecycle requests to the handler registered for
// their resource type and action. It is safe for concurrent use.
type Router struct {
	mu             sync.RWMutex
	handlers       map[types.HandlerKey]RequestHandler
	schemas        map[types.HandlerKey]jsonschema.JSONLoader
	envelopeSchema jsonschema.JSONLoader
	middlewares    []Middleware

	failurePolicy failure.Policy
	routingPolicy types.RoutingPolicy
	logger        *zap.Logger
}

// NewRouter creates and initializes a new Router with a given envelope schema.
func NewRouter(envelopeSchema string, opts ...RouterOption) (*Router, error) {
	// Validate the schema itself upon creation to fail fast.
	loader, err := jsonschema.Compile(envelopeSchema)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidEnvelopeSchema, err)
	}

	r := &Router{
		handlers:       make(map[types.HandlerKey]RequestHandler),
		schemas:        make(map[types.HandlerKey]jsonschema.JSONLoader),
		envelopeSchema: loader,
		failurePolicy:  failure.ImmediateDeletePolicy{},
		routingPolicy:  routing.ExactMatchPolicy{},
		logger:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Register adds a handler for a resource type and action.
func (r *Router) Register(typeName, action string, handler RequestHandler) {
	key := routing.Key(typeName, action)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[key] = handler
}

// RegisterSchema adds a JSON schema for validating the resource properties of
// a resource type and action.
func (r *Router) RegisterSchema(typeName, action string, schema string) error {
	loader, err := jsonschema.Compile(schema)
	if err != nil {
		return fmt.Errorf("%w for %s:%s: %w", ErrInvalidSchema, typeName, action, err)
	}

	key := routing.Key(typeName, action)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.schemas[key] = loader
	return nil
}

// Use appends middlewares. The first one added is the outermost.
func (r *Router) Use(mws ...Middleware) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.middlewares = append(r.middlewares, mws...)
}

// Route validates and dispatches a raw request to the appropriate registered handler.
func (r *Router) Route(ctx context.Context, rawMessage []byte) RoutedResult {
	r.mu.RLock()
	mws := make([]Middleware, len(r.middlewares))
	copy(mws, r.middlewares)
	r.mu.RUnlock()

	h := HandlerFunc(r.core)
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}

	state := &RouteState{Raw: rawMessage}
	rr, err := r.invoke(ctx, h, state)
	if err != nil {
		if rr.TypeName == "" {
			rr.TypeName, rr.Action = "unknown", "unknown"
		}
		return r.decide(ctx, failure.FailMiddlewareError, err, rr)
	}
	return rr
}

// invoke runs the chain and turns a panic anywhere in it into a routed failure.
func (r *Router) invoke(ctx context.Context, h HandlerFunc, state *RouteState) (rr RoutedResult, err error) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("recovered panic while routing request", zap.Any("panic", p))
			rr = unknownResult(state)
			rr = r.fail(ctx, failure.FailHandlerPanic, fmt.Errorf("%w: %v", ErrHandlerPanic, p), rr)
			err = nil
		}
	}()
	return h(ctx, state)
}

func (r *Router) core(ctx context.Context, state *RouteState) (RoutedResult, error) {
	if len(state.Raw) == 0 {
		return r.fail(ctx, failure.FailEnvelopeParse, ErrEmptyMessageBody, unknownResult(state)), nil
	}

	// 1. Validate the request against the envelope schema.
	if err := jsonschema.ValidateBytes(r.envelopeSchema, state.Raw); err != nil {
		return r.fail(ctx, failure.FailEnvelopeSchema, fmt.Errorf("%w: %w", ErrInvalidEnvelope, err), unknownResult(state)), nil
	}

	// 2. Unmarshal the envelope to access routing info and properties.
	var envelope types.Envelope
	if err := json.Unmarshal(state.Raw, &envelope); err != nil {
		return r.fail(ctx, failure.FailEnvelopeParse, fmt.Errorf("%w: %w", ErrFailedToParseEnvelope, err), unknownResult(state)), nil
	}
	state.Envelope = &envelope

	rr := RoutedResult{
		TypeName:  envelope.TypeName,
		Action:    envelope.Action,
		RequestID: envelope.Metadata.RequestID,
		Timestamp: envelope.Metadata.Timestamp,
	}

	// 3. Let the routing policy pick a handler.
	r.mu.RLock()
	available := make([]types.HandlerKey, 0, len(r.handlers))
	for k := range r.handlers {
		available = append(available, k)
	}
	sort.Slice(available, func(i, j int) bool { return available[i] < available[j] })
	key := r.routingPolicy.Decide(ctx, &envelope, available)
	handler, handlerExists := r.handlers[key]
	schemaLoader, schemaExists := r.schemas[key]
	r.mu.RUnlock()

	state.HandlerKey = key
	state.HandlerExists = handlerExists
	state.SchemaExists = schemaExists
	state.Handler = handler
	state.Schema = schemaLoader

	if key == "" || !handlerExists {
		return r.fail(ctx, failure.FailNoHandler, fmt.Errorf("%w for %s", ErrNoHandlerRegistered, routing.Key(envelope.TypeName, envelope.Action)), rr), nil
	}

	// 4. If a model schema is registered, validate the resource properties.
	if schemaExists {
		if err := jsonschema.ValidateBytes(schemaLoader, envelope.ResourceProperties); err != nil {
			return r.fail(ctx, failure.FailModelSchema, fmt.Errorf("%w: %w", ErrInvalidResourceProperties, err), rr), nil
		}
	}

	// 5. Execute the handler with the validated properties.
	rr.HandlerResult = handler(ctx, envelope.ResourceProperties, envelope.Metadata)
	if rr.HandlerResult.Error != nil {
		return r.decide(ctx, failure.FailHandlerError, rr.HandlerResult.Error, rr), nil
	}
	return rr, nil
}

// fail records inner on rr and lets the failure policy decide deletion.
func (r *Router) fail(ctx context.Context, kind failure.Kind, inner error, rr RoutedResult) RoutedResult {
	rr.HandlerResult.ShouldDelete = false
	rr.HandlerResult.Error = inner
	return r.decide(ctx, kind, inner, rr)
}

func (r *Router) decide(ctx context.Context, kind failure.Kind, inner error, rr RoutedResult) RoutedResult {
	res := r.failurePolicy.Decide(ctx, kind, inner, failure.Result{
		ShouldDelete: rr.HandlerResult.ShouldDelete,
		Error:        rr.HandlerResult.Error,
	})
	rr.HandlerResult.ShouldDelete = res.ShouldDelete
	rr.HandlerResult.Error = res.Error
	return rr
}

func unknownResult(state *RouteState) RoutedResult {
	if state != nil && state.Envelope != nil {
		return RoutedResult{
			TypeName:  state.Envelope.TypeName,
			Action:    state.Envelope.Action,
			RequestID: state.Envelope.Metadata.RequestID,
			Timestamp: state.Envelope.Metadata.Timestamp,
		}
	}
	return RoutedResult{TypeName: "unknown", Action: "unknown"}
}

// --- Schemas ---

// EnvelopeSchema is the JSON schema every lifecycle request must satisfy.
var EnvelopeSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "schemaVersion": { "type": "string" },
    "typeName": { "type": "string" },
    "action": { "type": "string" },
    "resourceProperties": { "type": "object" },
    "metadata": {
      "type": "object",
      "properties": {
        "timestamp": { "type": "string" },
        "source": { "type": "string" },
        "requestId": { "type": "string" }
      }
    }
  },
  "required": ["schemaVersion", "typeName", "action", "resourceProperties", "metadata"]
}`
