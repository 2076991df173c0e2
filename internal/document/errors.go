package document

import (
	"errors"
	"fmt"
)

// Code categorizes reducer failures.
type Code string

const (
	// CodeValidation indicates malformed or missing event fields.
	CodeValidation Code = "VALIDATION"

	// CodeEntityIDMismatch indicates entityId and payload.id disagree.
	CodeEntityIDMismatch Code = "ENTITY_ID_MISMATCH"

	// CodeMissingEntityID indicates neither entityId nor payload.id is present.
	CodeMissingEntityID Code = "MISSING_ENTITY_ID"

	// CodeAlreadyExists indicates a creation event targeting an existing id.
	CodeAlreadyExists Code = "ALREADY_EXISTS"

	// CodeNotFound indicates a mutation or terminal event targeting an absent id.
	CodeNotFound Code = "NOT_FOUND"

	// CodeUnhandledEventType indicates no reducer handles the event type.
	CodeUnhandledEventType Code = "UNHANDLED_EVENT_TYPE"
)

// Error is a reducer-level failure. Any Error aborts the whole dispatch
// batch; the document is left unchanged.
type Error struct {
	Code      Code
	Message   string
	EventID   string
	EventType string
	EntityID  string
}

func (e *Error) Error() string {
	if e.EntityID != "" {
		return fmt.Sprintf("%s: %s (event=%s, type=%s, entity=%s)",
			e.Code, e.Message, e.EventID, e.EventType, e.EntityID)
	}
	return fmt.Sprintf("%s: %s (event=%s, type=%s)", e.Code, e.Message, e.EventID, e.EventType)
}

// CodeOf extracts the reducer error code, or "" for other errors.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// IsAlreadyExists reports whether err is a creation-guard failure.
func IsAlreadyExists(err error) bool { return CodeOf(err) == CodeAlreadyExists }

// IsNotFound reports whether err is a mutation-guard failure.
func IsNotFound(err error) bool { return CodeOf(err) == CodeNotFound }

// IsEntityIDMismatch reports whether err is an id consistency failure.
func IsEntityIDMismatch(err error) bool { return CodeOf(err) == CodeEntityIDMismatch }

// IsUnhandledEventType reports whether err is a dispatch failure.
func IsUnhandledEventType(err error) bool { return CodeOf(err) == CodeUnhandledEventType }
