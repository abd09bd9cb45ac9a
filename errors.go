package policyattachment

import "errors"

var (
	ErrInvalidEnvelopeSchema     = errors.New("invalid envelope schema")
	ErrInvalidSchema             = errors.New("invalid schema")
	ErrInvalidEnvelope           = errors.New("invalid envelope")
	ErrFailedToParseEnvelope     = errors.New("failed to parse envelope")
	ErrInvalidResourceProperties = errors.New("invalid resource properties")
	ErrNoHandlerRegistered       = errors.New("no handler registered")
	ErrHandlerPanic              = errors.New("handler panic")
	ErrEmptyMessageBody          = errors.New("empty message body")
)
