// Package routing holds RoutingPolicy implementations for the lifecycle router.
package routing

import (
	"context"
	"strings"

	"github.com/hatsunemiku3939/policyattachment/types"
)

// Key builds the handler key for a type name and action.
func Key(typeName, action string) types.HandlerKey {
	return types.HandlerKey(typeName + ":" + action)
}

// ExactMatchPolicy selects the handler strictly matching typeName:action.
type ExactMatchPolicy struct{}

// Decide returns the exact key if present; otherwise empty.
func (ExactMatchPolicy) Decide(_ context.Context, envelope *types.Envelope, available []types.HandlerKey) types.HandlerKey { //nolint:revive
	return pick(Key(envelope.TypeName, envelope.Action), available)
}

// NormalizedActionPolicy matches like ExactMatchPolicy after upper-casing the
// action, so "Delete" and "delete" both select the DELETE handler.
type NormalizedActionPolicy struct{}

// Decide returns the key for the normalized action if present; otherwise empty.
func (NormalizedActionPolicy) Decide(_ context.Context, envelope *types.Envelope, available []types.HandlerKey) types.HandlerKey { //nolint:revive
	action := strings.ToUpper(strings.TrimSpace(envelope.Action))
	return pick(Key(envelope.TypeName, action), available)
}

func pick(want types.HandlerKey, available []types.HandlerKey) types.HandlerKey {
	for _, k := range available {
		if k == want {
			return k
		}
	}
	return ""
}
