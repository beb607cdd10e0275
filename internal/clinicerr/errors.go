// Package clinicerr defines the error taxonomy shared by every workflow
// component. Handlers map these to HTTP statuses; services never wrap one
// inside another.
package clinicerr

import (
	"fmt"
	"strings"
)

// ValidationError covers missing or malformed input. Capacity-style
// rejections (slot full, insufficient stock) are ValidationErrors with
// Capacity set, distinguished only by message.
type ValidationError struct {
	Field    string
	Reason   string
	Capacity bool
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Reason)
	}
	return e.Reason
}

func NewValidation(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func NewCapacity(reason string) *ValidationError {
	return &ValidationError{Reason: reason, Capacity: true}
}

// StateTransitionError rejects an action attempted from a state it is not
// allowed in. The message names the required source states so the caller can
// see exactly what was expected.
type StateTransitionError struct {
	Action   string
	Current  string
	Required []string
	Detail   string
}

func (e *StateTransitionError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("action %q is not allowed from status %q, requires %s",
		e.Action, e.Current, strings.Join(e.Required, " or "))
}

// ConflictError means the caller lost a race: a version mismatch on an
// optimistically versioned entity, or a slot/stock race lost at commit time.
// The caller must reload and retry; the core never retries on its behalf.
type ConflictError struct {
	Entity string
	Reason string
}

func (e *ConflictError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s: %s", e.Entity, e.Reason)
	}
	return fmt.Sprintf("%s was updated by another user, refresh and retry", e.Entity)
}

func NewConflict(entity, reason string) *ConflictError {
	return &ConflictError{Entity: entity, Reason: reason}
}

// NotFoundError is terminal, no retry.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

func NewNotFound(entity, id string) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: id}
}
