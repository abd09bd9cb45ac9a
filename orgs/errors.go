package orgs

import (
	"errors"

	"github.com/aws/aws-sdk-go-v2/service/organizations/types"
	"github.com/aws/smithy-go"
)

// Kind classifies an Organizations error for the handlers.
type Kind int

const (
	// KindNone means there was no error.
	KindNone Kind = iota
	// KindConcurrentModification is a conflicting change in flight; retryable.
	KindConcurrentModification
	// KindTooManyRequests is request throttling; retryable.
	KindTooManyRequests
	// KindPolicyNotFound means the policy id does not exist.
	KindPolicyNotFound
	// KindTargetNotFound means the root, OU or account does not exist.
	KindTargetNotFound
	// KindPolicyNotAttached means the policy exists but is not attached to the target.
	KindPolicyNotAttached
	// KindDuplicateAttachment means the policy is already attached to the target.
	KindDuplicateAttachment
	// KindUnclassified is any other error.
	KindUnclassified
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "None"
	case KindConcurrentModification:
		return "ConcurrentModification"
	case KindTooManyRequests:
		return "TooManyRequests"
	case KindPolicyNotFound:
		return "PolicyNotFound"
	case KindTargetNotFound:
		return "TargetNotFound"
	case KindPolicyNotAttached:
		return "PolicyNotAttached"
	case KindDuplicateAttachment:
		return "DuplicateAttachment"
	default:
		return "Unclassified"
	}
}

// Transient reports whether the kind is temporary contention worth retrying.
func (k Kind) Transient() bool {
	return k == KindConcurrentModification || k == KindTooManyRequests
}

// NotFound reports whether the kind means the policy, the target or the
// attachment is absent.
func (k Kind) NotFound() bool {
	return k == KindPolicyNotFound || k == KindTargetNotFound || k == KindPolicyNotAttached
}

// errorCodes maps service error codes for errors that did not deserialize
// into their modeled types.
var errorCodes = map[string]Kind{
	"ConcurrentModificationException":    KindConcurrentModification,
	"TooManyRequestsException":           KindTooManyRequests,
	"PolicyNotFoundException":            KindPolicyNotFound,
	"TargetNotFoundException":            KindTargetNotFound,
	"PolicyNotAttachedException":         KindPolicyNotAttached,
	"DuplicatePolicyAttachmentException": KindDuplicateAttachment,
}

// Classify maps an error returned by the Organizations API to a Kind.
func Classify(err error) Kind {
	if err == nil {
		return KindNone
	}

	var (
		concurrent  *types.ConcurrentModificationException
		throttled   *types.TooManyRequestsException
		noPolicy    *types.PolicyNotFoundException
		noTarget    *types.TargetNotFoundException
		notAttached *types.PolicyNotAttachedException
		duplicate   *types.DuplicatePolicyAttachmentException
	)
	switch {
	case errors.As(err, &concurrent):
		return KindConcurrentModification
	case errors.As(err, &throttled):
		return KindTooManyRequests
	case errors.As(err, &noPolicy):
		return KindPolicyNotFound
	case errors.As(err, &noTarget):
		return KindTargetNotFound
	case errors.As(err, &notAttached):
		return KindPolicyNotAttached
	case errors.As(err, &duplicate):
		return KindDuplicateAttachment
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		if kind, ok := errorCodes[apiErr.ErrorCode()]; ok {
			return kind
		}
	}
	return KindUnclassified
}

// IsTransient reports whether err is retryable contention.
func IsTransient(err error) bool {
	return Classify(err).Transient()
}
