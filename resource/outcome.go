package resource

// OutcomeKind is the normalized result of one lifecycle operation.
type OutcomeKind int

const (
	// Success means the operation was fully applied.
	Success OutcomeKind = iota
	// NotFound means the policy, the target or the attachment does not exist.
	// For Delete this is the desired end state already holding.
	NotFound
	// AlreadyExists means Create found the attachment in place.
	AlreadyExists
	// TransientFailure is retryable contention. The retry loop absorbs it, so
	// handlers never return it.
	TransientFailure
	// InternalFailure is any other error, including a spent retry budget.
	InternalFailure
)

func (k OutcomeKind) String() string {
	switch k {
	case Success:
		return "Success"
	case NotFound:
		return "NotFound"
	case AlreadyExists:
		return "AlreadyExists"
	case TransientFailure:
		return "TransientFailure"
	default:
		return "InternalFailure"
	}
}

// Outcome carries the kind plus a human-readable message. Err is set only
// for InternalFailure and holds the original error.
type Outcome struct {
	Kind    OutcomeKind
	Message string
	Err     error
}

// Failed reports whether the outcome should be surfaced to the caller as an error.
func (o Outcome) Failed() bool {
	return o.Kind == InternalFailure || o.Kind == TransientFailure
}

// OperationStatus is the terminal status reported for a lifecycle request.
type OperationStatus string

const (
	StatusSuccess OperationStatus = "SUCCESS"
	StatusFailed  OperationStatus = "FAILED"
)

// HandlerErrorCode qualifies a FAILED status.
type HandlerErrorCode string

const (
	ErrorCodeNotFound        HandlerErrorCode = "NotFound"
	ErrorCodeAlreadyExists   HandlerErrorCode = "AlreadyExists"
	ErrorCodeThrottling      HandlerErrorCode = "Throttling"
	ErrorCodeInternalFailure HandlerErrorCode = "InternalFailure"
)

// ProgressEvent is what a lifecycle handler reports back to its caller.
type ProgressEvent struct {
	OperationStatus  OperationStatus  `json:"status"`
	HandlerErrorCode HandlerErrorCode `json:"errorCode,omitempty"`
	Message          string           `json:"message,omitempty"`
	ResourceModel    *Model           `json:"resourceModel,omitempty"`
}

// ProgressEvent converts the outcome. model is attached on success and may be nil.
func (o Outcome) ProgressEvent(model *Model) ProgressEvent {
	switch o.Kind {
	case Success:
		return ProgressEvent{OperationStatus: StatusSuccess, Message: o.Message, ResourceModel: model}
	case NotFound:
		return ProgressEvent{OperationStatus: StatusFailed, HandlerErrorCode: ErrorCodeNotFound, Message: o.Message}
	case AlreadyExists:
		return ProgressEvent{OperationStatus: StatusFailed, HandlerErrorCode: ErrorCodeAlreadyExists, Message: o.Message}
	case TransientFailure:
		return ProgressEvent{OperationStatus: StatusFailed, HandlerErrorCode: ErrorCodeThrottling, Message: o.Message}
	default:
		return ProgressEvent{OperationStatus: StatusFailed, HandlerErrorCode: ErrorCodeInternalFailure, Message: o.Message}
	}
}
