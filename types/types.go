package types

import (
	"context"
	"encoding/json"
)

// Envelope is the outer layer of a lifecycle request message.
// It names the resource type and action and carries the resource properties.
type Envelope struct {
	SchemaVersion      string          `json:"schemaVersion"`
	TypeName           string          `json:"typeName"`
	Action             string          `json:"action"`
	ResourceProperties json.RawMessage `json:"resourceProperties"`
	Metadata           Metadata        `json:"metadata"`
}

// Metadata holds common request metadata found in every message.
type Metadata struct {
	Timestamp string `json:"timestamp"`
	Source    string `json:"source"`
	RequestID string `json:"requestId"`
}

// Lifecycle actions.
const (
	ActionCreate = "CREATE"
	ActionRead   = "READ"
	ActionDelete = "DELETE"
)

// HandlerKey is the unique identifier for a registered handler (e.g., "typeName:action").
type HandlerKey string

// RoutingPolicy decides which handler should process an incoming request.
// Returning an empty HandlerKey means no handler selected.
type RoutingPolicy interface {
	Decide(ctx context.Context, envelope *Envelope, availableHandlers []HandlerKey) HandlerKey
}
