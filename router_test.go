package policyattachment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hatsunemiku3939/policyattachment/pkg/jsonschema"
	failure "github.com/hatsunemiku3939/policyattachment/policy/failure"
	"github.com/hatsunemiku3939/policyattachment/policy/routing"
	"github.com/hatsunemiku3939/policyattachment/resource"
	"github.com/hatsunemiku3939/policyattachment/types"
)

const (
	testTypeName = resource.TypeName
	testAction   = types.ActionDelete
	testProps    = `{"PolicyId": "p-examplepolicyid111", "TargetId": "ou-examplerootid111-exampleouid111"}`
)

// --- Test Helper Functions ---

func newTestRouter(t *testing.T, opts ...RouterOption) *Router {
	r, err := NewRouter(EnvelopeSchema, opts...)
	require.NoError(t, err, "NewRouter should not fail with a valid schema")
	return r
}

func testSuccessHandler(_ context.Context, _ []byte, _ types.Metadata) HandlerResult {
	return HandlerResult{ShouldDelete: true, Error: nil}
}

func testErrorHandler(_ context.Context, _ []byte, _ types.Metadata) HandlerResult {
	return HandlerResult{ShouldDelete: true, Error: errors.New("handler failed")}
}

func testRetryHandler(_ context.Context, _ []byte, _ types.Metadata) HandlerResult {
	return HandlerResult{ShouldDelete: false, Error: errors.New("transient error")}
}

func createTestRequest(typeName, action, props string) []byte {
	raw := fmt.Sprintf(`{
		"schemaVersion": "1.0",
		"typeName": "%s",
		"action": "%s",
		"resourceProperties": %s,
		"metadata": {
			"timestamp": "2024-01-01T00:00:00Z",
			"source": "test",
			"requestId": "req-123"
		}
	}`, typeName, action, props)
	return []byte(raw)
}

// --- Test Cases ---

func TestNewRouter(t *testing.T) {
	t.Run("should create router with valid schema", func(t *testing.T) {
		r, err := NewRouter(EnvelopeSchema)
		require.NoError(t, err)
		assert.IsType(t, failure.ImmediateDeletePolicy{}, r.failurePolicy)
		assert.IsType(t, routing.ExactMatchPolicy{}, r.routingPolicy)
	})

	t.Run("should fail with invalid schema", func(t *testing.T) {
		_, err := NewRouter(`{"type": "invalid"`)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidEnvelopeSchema)
	})
}

func TestRouter_Register(t *testing.T) {
	r := newTestRouter(t)
	r.Register(testTypeName, testAction, testSuccessHandler)

	_, exists := r.handlers[routing.Key(testTypeName, testAction)]
	assert.True(t, exists, "Handler should be registered")
}

func TestRouter_RegisterSchema(t *testing.T) {
	r := newTestRouter(t)

	t.Run("should register a valid schema", func(t *testing.T) {
		err := r.RegisterSchema(testTypeName, testAction, jsonschema.PolicyAttachmentSchema)
		assert.NoError(t, err)

		_, exists := r.schemas[routing.Key(testTypeName, testAction)]
		assert.True(t, exists, "Schema should be registered")
	})

	t.Run("should fail to register an invalid schema", func(t *testing.T) {
		err := r.RegisterSchema("Test::Type", "CREATE", `{"type": "invalid"`)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidSchema)
		assert.Contains(t, err.Error(), "Test::Type:CREATE")
	})
}

func TestRouter_Route(t *testing.T) {
	t.Run("should route to correct handler on success", func(t *testing.T) {
		r := newTestRouter(t)
		var gotProps []byte
		var gotMeta types.Metadata
		r.Register(testTypeName, testAction, func(_ context.Context, props []byte, meta types.Metadata) HandlerResult {
			gotProps, gotMeta = props, meta
			return HandlerResult{ShouldDelete: true}
		})

		result := r.Route(context.Background(), createTestRequest(testTypeName, testAction, testProps))

		assert.NoError(t, result.HandlerResult.Error)
		assert.True(t, result.HandlerResult.ShouldDelete)
		assert.Equal(t, testTypeName, result.TypeName)
		assert.Equal(t, testAction, result.Action)
		assert.Equal(t, "req-123", result.RequestID)
		assert.Equal(t, "2024-01-01T00:00:00Z", result.Timestamp)
		assert.JSONEq(t, testProps, string(gotProps))
		assert.Equal(t, "test", gotMeta.Source)
	})

	t.Run("should return error from handler", func(t *testing.T) {
		r := newTestRouter(t)
		r.Register(testTypeName, testAction, testErrorHandler)

		result := r.Route(context.Background(), createTestRequest(testTypeName, testAction, testProps))

		require.Error(t, result.HandlerResult.Error)
		assert.Equal(t, "handler failed", result.HandlerResult.Error.Error())
		assert.True(t, result.HandlerResult.ShouldDelete)
	})

	t.Run("policy can override handler error decision", func(t *testing.T) {
		tp := policyFunc(func(_ context.Context, kind failure.Kind, inner error, current failure.Result) failure.Result {
			if kind == failure.FailHandlerError {
				current.ShouldDelete = false
				if inner != nil && current.Error == nil {
					current.Error = inner
				}
			}
			return current
		})
		r := newTestRouter(t, WithFailurePolicy(tp))
		r.Register(testTypeName, testAction, func(_ context.Context, _ []byte, _ types.Metadata) HandlerResult {
			return HandlerResult{ShouldDelete: true, Error: errors.New("boom")}
		})

		result := r.Route(context.Background(), createTestRequest(testTypeName, testAction, testProps))

		require.Error(t, result.HandlerResult.Error)
		assert.Equal(t, "boom", result.HandlerResult.Error.Error())
		assert.False(t, result.HandlerResult.ShouldDelete, "policy override should force retry")
	})

	t.Run("redrive policy keeps failed requests", func(t *testing.T) {
		r := newTestRouter(t, WithFailurePolicy(failure.SQSRedrivePolicy{}))
		r.Register(testTypeName, testAction, testErrorHandler)

		result := r.Route(context.Background(), createTestRequest(testTypeName, testAction, testProps))

		assert.Error(t, result.HandlerResult.Error)
		assert.False(t, result.HandlerResult.ShouldDelete)
	})

	t.Run("should handle retry logic from handler", func(t *testing.T) {
		r := newTestRouter(t)
		r.Register(testTypeName, testAction, testRetryHandler)

		result := r.Route(context.Background(), createTestRequest(testTypeName, testAction, testProps))

		require.Error(t, result.HandlerResult.Error)
		assert.Equal(t, "transient error", result.HandlerResult.Error.Error())
		assert.False(t, result.HandlerResult.ShouldDelete)
	})

	t.Run("should fail for unregistered handler", func(t *testing.T) {
		r := newTestRouter(t)

		result := r.Route(context.Background(), createTestRequest("Unknown::Type", "CREATE", testProps))

		require.Error(t, result.HandlerResult.Error)
		assert.True(t, result.HandlerResult.ShouldDelete, "Should delete request with no handler")
		assert.ErrorIs(t, result.HandlerResult.Error, ErrNoHandlerRegistered)
		assert.Contains(t, result.HandlerResult.Error.Error(), "Unknown::Type:CREATE")
		assert.Equal(t, "req-123", result.RequestID)
	})

	t.Run("exact match is case sensitive", func(t *testing.T) {
		r := newTestRouter(t)
		r.Register(testTypeName, testAction, testSuccessHandler)

		result := r.Route(context.Background(), createTestRequest(testTypeName, "delete", testProps))

		assert.ErrorIs(t, result.HandlerResult.Error, ErrNoHandlerRegistered)
	})

	t.Run("normalized policy accepts lower-case actions", func(t *testing.T) {
		r := newTestRouter(t, WithRoutingPolicy(routing.NormalizedActionPolicy{}))
		r.Register(testTypeName, testAction, testSuccessHandler)

		result := r.Route(context.Background(), createTestRequest(testTypeName, " delete ", testProps))

		assert.NoError(t, result.HandlerResult.Error)
		assert.True(t, result.HandlerResult.ShouldDelete)
	})

	t.Run("should fail on invalid envelope", func(t *testing.T) {
		r := newTestRouter(t)

		result := r.Route(context.Background(), []byte(`{"invalid": "message"}`))

		require.Error(t, result.HandlerResult.Error)
		assert.True(t, result.HandlerResult.ShouldDelete, "Should delete malformed envelope")
		assert.ErrorIs(t, result.HandlerResult.Error, ErrInvalidEnvelope)
		assert.Equal(t, "unknown", result.TypeName)
		assert.Equal(t, "unknown", result.Action)
	})

	t.Run("should fail on empty body", func(t *testing.T) {
		r := newTestRouter(t)
		called := false
		r.Use(func(next HandlerFunc) HandlerFunc {
			return func(ctx context.Context, s *RouteState) (RoutedResult, error) {
				called = true
				return next(ctx, s)
			}
		})

		result := r.Route(context.Background(), nil)

		require.Error(t, result.HandlerResult.Error)
		assert.ErrorIs(t, result.HandlerResult.Error, ErrEmptyMessageBody)
		assert.True(t, result.HandlerResult.ShouldDelete, "immediate policy deletes empty requests")
		assert.Equal(t, "unknown", result.TypeName)
		assert.True(t, called, "middlewares see empty requests")
	})

	t.Run("empty body is kept under the redrive policy", func(t *testing.T) {
		r := newTestRouter(t, WithFailurePolicy(failure.SQSRedrivePolicy{}))

		result := r.Route(context.Background(), []byte{})

		assert.ErrorIs(t, result.HandlerResult.Error, ErrEmptyMessageBody)
		assert.False(t, result.HandlerResult.ShouldDelete)
	})

	t.Run("should fail on malformed envelope json", func(t *testing.T) {
		r := newTestRouter(t)

		result := r.Route(context.Background(), []byte(`{"typeName": "test"`))

		require.Error(t, result.HandlerResult.Error)
		assert.True(t, result.HandlerResult.ShouldDelete)
		assert.Contains(t, result.HandlerResult.Error.Error(), "invalid envelope")
	})

	t.Run("should fail on invalid resource properties", func(t *testing.T) {
		r := newTestRouter(t)
		called := false
		r.Register(testTypeName, testAction, func(_ context.Context, _ []byte, _ types.Metadata) HandlerResult {
			called = true
			return HandlerResult{ShouldDelete: true}
		})
		require.NoError(t, r.RegisterSchema(testTypeName, testAction, jsonschema.PolicyAttachmentSchema))

		result := r.Route(context.Background(), createTestRequest(testTypeName, testAction, `{"PolicyId": "p-examplepolicyid111"}`))

		require.Error(t, result.HandlerResult.Error)
		assert.True(t, result.HandlerResult.ShouldDelete, "Should delete invalid properties")
		assert.ErrorIs(t, result.HandlerResult.Error, ErrInvalidResourceProperties)
		assert.False(t, called, "handler must not be invoked when properties are invalid")
	})

	t.Run("should not invoke handler when metadata is not an object", func(t *testing.T) {
		r := newTestRouter(t)

		called := false
		r.Register(testTypeName, testAction, func(_ context.Context, _ []byte, _ types.Metadata) HandlerResult {
			called = true
			return HandlerResult{ShouldDelete: true, Error: nil}
		})

		raw := fmt.Sprintf(`{
			"schemaVersion": "1.0",
			"typeName": "%s",
			"action": "%s",
			"resourceProperties": %s,
			"metadata": 123
		}`, testTypeName, testAction, testProps)

		result := r.Route(context.Background(), []byte(raw))

		assert.True(t, result.HandlerResult.ShouldDelete)
		assert.Error(t, result.HandlerResult.Error)
		assert.False(t, called, "handler must not be invoked when the envelope is invalid")
	})

	t.Run("should recover handler panic", func(t *testing.T) {
		r := newTestRouter(t)
		r.Register(testTypeName, testAction, func(_ context.Context, _ []byte, _ types.Metadata) HandlerResult {
			panic("kaboom")
		})

		result := r.Route(context.Background(), createTestRequest(testTypeName, testAction, testProps))

		require.Error(t, result.HandlerResult.Error)
		assert.ErrorIs(t, result.HandlerResult.Error, ErrHandlerPanic)
		assert.Contains(t, result.HandlerResult.Error.Error(), "kaboom")
		assert.True(t, result.HandlerResult.ShouldDelete)
	})
}

// policyFunc allows using a function as a failure.Policy for tests.
type policyFunc func(ctx context.Context, kind failure.Kind, inner error, current failure.Result) failure.Result

func (f policyFunc) Decide(ctx context.Context, kind failure.Kind, inner error, current failure.Result) failure.Result {
	return f(ctx, kind, inner, current)
}

func TestRouter_Concurrency(t *testing.T) {
	r := newTestRouter(t)
	r.Register(testTypeName, testAction, testSuccessHandler)

	var wg sync.WaitGroup
	numGoroutines := 50

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result := r.Route(context.Background(), createTestRequest(testTypeName, testAction, testProps))
			assert.NoError(t, result.HandlerResult.Error)
		}()
	}

	// Concurrently register a new handler
	wg.Add(1)
	go func() {
		defer wg.Done()
		r.Register(testTypeName, types.ActionCreate, testSuccessHandler)
	}()

	wg.Wait()

	r.mu.RLock()
	_, exists := r.handlers[routing.Key(testTypeName, types.ActionCreate)]
	r.mu.RUnlock()
	assert.True(t, exists, "New handler should be registered concurrently")
}
