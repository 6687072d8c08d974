package workflow

import (
	"errors"
	"fmt"
)

// Code is a stable, machine-readable error code surfaced to callers of
// the transition request surface. Codes never change meaning between
// releases; collaborators switch on them.
type Code string

const (
	CodeNoSuchTransition     Code = "NoSuchTransition"
	CodeActorNotPermitted    Code = "ActorNotPermitted"
	CodePreconditionFailed   Code = "PreconditionFailed"
	CodeInvalidCreationState Code = "InvalidCreationState"
	CodeWorkflowTerminated   Code = "WorkflowTerminated"
	CodeConflict             Code = "Conflict"
	CodeUnknownWorkflow      Code = "UnknownWorkflow"
	CodeUnknownState         Code = "UnknownState"
)

// Error carries a stable code plus a human-readable message. Detail
// holds machine-readable context (e.g. the failed precondition field).
type Error struct {
	Code    Code           `json:"code"`
	Message string         `json:"message"`
	Detail  map[string]any `json:"detail,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewError builds an Error with a formatted message.
func NewError(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// IsRetryable reports whether the caller may re-read and retry. Only
// optimistic-concurrency conflicts qualify; validation denials are
// final for the state they were validated against.
func (e *Error) IsRetryable() bool {
	return e.Code == CodeConflict
}

// AsError unwraps a workflow Error from err, if one is in the chain.
func AsError(err error) (*Error, bool) {
	var we *Error
	if errors.As(err, &we) {
		return we, true
	}
	return nil, false
}
