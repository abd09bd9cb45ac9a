package policyattachment

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hatsunemiku3939/policyattachment/pkg/jsonschema"
	"github.com/hatsunemiku3939/policyattachment/resource"
	"github.com/hatsunemiku3939/policyattachment/types"
)

// LifecycleHandler is implemented by *resource.Handler.
type LifecycleHandler interface {
	Attach(ctx context.Context, m resource.Model) resource.Outcome
	Lookup(ctx context.Context, m resource.Model) resource.Outcome
	Detach(ctx context.Context, m resource.Model) resource.Outcome
}

var _ LifecycleHandler = (*resource.Handler)(nil)

// RegisterLifecycleHandlers wires CREATE, READ and DELETE for the policy
// attachment resource type, each guarded by the resource model schema.
func RegisterLifecycleHandlers(r *Router, h LifecycleHandler) error {
	actions := []struct {
		action      string
		run         func(context.Context, resource.Model) resource.Outcome
		echoesModel bool
	}{
		{types.ActionCreate, h.Attach, true},
		{types.ActionRead, h.Lookup, true},
		{types.ActionDelete, h.Detach, false},
	}

	for _, a := range actions {
		r.Register(resource.TypeName, a.action, lifecycleHandler(a.run, a.echoesModel))
		if err := r.RegisterSchema(resource.TypeName, a.action, jsonschema.PolicyAttachmentSchema); err != nil {
			return err
		}
	}
	return nil
}

// lifecycleHandler adapts an outcome-returning operation to a RequestHandler.
// Every outcome answers the request; InternalFailure also carries its error
// so the failure policy can choose redelivery instead.
func lifecycleHandler(run func(context.Context, resource.Model) resource.Outcome, echoesModel bool) RequestHandler {
	return func(ctx context.Context, propertiesJSON []byte, _ types.Metadata) HandlerResult {
		var m resource.Model
		if err := json.Unmarshal(propertiesJSON, &m); err != nil {
			return HandlerResult{
				ShouldDelete: true,
				Error:        fmt.Errorf("%w: %w", ErrInvalidResourceProperties, err),
			}
		}

		out := run(ctx, m)
		var model *resource.Model
		if echoesModel {
			model = &m
		}
		ev := out.ProgressEvent(model)

		res := HandlerResult{ShouldDelete: true, Progress: &ev}
		if out.Failed() {
			res.Error = out.Err
			if res.Error == nil {
				res.Error = fmt.Errorf("%s: %s", out.Kind, out.Message)
			}
		}
		return res
	}
}
