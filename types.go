package policyattachment

import (
	"context"

	"github.com/hatsunemiku3939/policyattachment/pkg/jsonschema"
	"github.com/hatsunemiku3939/policyattachment/resource"
	"github.com/hatsunemiku3939/policyattachment/types"
)

// HandlerResult indicates the outcome of processing a lifecycle request.
type HandlerResult struct {
	// ShouldDelete is true if the request was answered (successfully or not) and should be deleted from the queue.
	// Set to false when the request should be redelivered.
	ShouldDelete bool
	// Error contains any error that occurred during processing. nil for success.
	Error error
	// Progress is the event reported back to the requester, if the handler produced one.
	Progress *resource.ProgressEvent
}

// RoutedResult contains the complete result after a request has been routed and handled.
type RoutedResult struct {
	TypeName      string
	Action        string
	HandlerResult HandlerResult
	RequestID     string
	Timestamp     string
}

// RequestHandler processes one lifecycle action of one resource type.
// It receives the raw resource properties and the request metadata.
type RequestHandler func(ctx context.Context, propertiesJSON []byte, metadata types.Metadata) HandlerResult

// RouteState carries per-request routing context through the middleware and core routing pipeline.
type RouteState struct {
	Raw           []byte
	Envelope      *types.Envelope
	HandlerKey    types.HandlerKey
	HandlerExists bool
	SchemaExists  bool
	Handler       RequestHandler
	Schema        jsonschema.JSONLoader
}

// HandlerFunc is the function signature wrapped by middlewares.
type HandlerFunc func(ctx context.Context, state *RouteState) (RoutedResult, error)

// Middleware composes cross-cutting concerns around the routing core, forming a chain of HandlerFunc.
type Middleware func(next HandlerFunc) HandlerFunc
