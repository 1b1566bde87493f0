package errors

import (
	"errors"
	"fmt"
)

var (
	ErrAuthentication   = fmt.Errorf("invalid or missing token")
	ErrSelfMessage      = fmt.Errorf("you cannot message yourself")
	ErrEmptyContent     = fmt.Errorf("message content is empty")
	ErrContentTooLong   = fmt.Errorf("message content too long")
	ErrPersistence      = fmt.Errorf("message could not be persisted")
	ErrSelfCall         = fmt.Errorf("you cannot call yourself")
	ErrCallConflict     = fmt.Errorf("a call already exists for this pair")
	ErrInvalidCallState = fmt.Errorf("no matching call session")
	ErrUnknownEventType = fmt.Errorf("unknown event type")
	ErrMalformedFrame   = fmt.Errorf("malformed frame")
	ErrWorkerPanic      = fmt.Errorf("worker panic")
)

// Wire-level error codes surfaced to the originating connection.
const (
	CodeAuthentication   = "AUTHENTICATION"
	CodeSelfMessage      = "SELF_MESSAGE"
	CodeValidation       = "VALIDATION"
	CodePersistence      = "PERSISTENCE"
	CodeCallConflict     = "CALL_CONFLICT"
	CodeInvalidCallState = "INVALID_CALL_STATE"
	CodeInternal         = "INTERNAL"
)

// CodeOf maps an error to its wire code at the gateway boundary.
// Every failure stays local to the connection that caused it; nothing
// mapped here is ever fatal to the process.
func CodeOf(err error) string {
	switch {
	case errors.Is(err, ErrAuthentication):
		return CodeAuthentication
	case errors.Is(err, ErrSelfMessage):
		return CodeSelfMessage
	case errors.Is(err, ErrEmptyContent),
		errors.Is(err, ErrContentTooLong),
		errors.Is(err, ErrSelfCall),
		errors.Is(err, ErrUnknownEventType),
		errors.Is(err, ErrMalformedFrame):
		return CodeValidation
	case errors.Is(err, ErrPersistence):
		return CodePersistence
	case errors.Is(err, ErrCallConflict):
		return CodeCallConflict
	case errors.Is(err, ErrInvalidCallState):
		return CodeInvalidCallState
	}
	return CodeInternal
}
