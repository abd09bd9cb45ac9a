package policyattachment

import (
	"go.uber.org/zap"

	failure "github.com/hatsunemiku3939/policyattachment/policy/failure"
	stypes "github.com/hatsunemiku3939/policyattachment/types"
)

// RouterOption configures a Router at construction time.
type RouterOption func(*Router)

// WithFailurePolicy sets a custom failure policy for the Router.
func WithFailurePolicy(p failure.Policy) RouterOption {
	return func(r *Router) { r.failurePolicy = p }
}

// WithRoutingPolicy sets a custom routing policy for the Router.
func WithRoutingPolicy(p stypes.RoutingPolicy) RouterOption {
	return func(r *Router) { r.routingPolicy = p }
}

// WithRouterLogger sets the logger used for recovered panics.
func WithRouterLogger(l *zap.Logger) RouterOption {
	return func(r *Router) {
		if l != nil {
			r.logger = l
		}
	}
}
