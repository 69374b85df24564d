package models

import (
	"errors"
	"fmt"
)

// ErrorMessageResponse returns the error message response struct
type ErrorMessageResponse struct {
	Response MessageError `json:"response"`
}

// MessageError contains the inner details for the error message response
type MessageError struct {
	Message   string `json:"message"`
	Error     string `json:"error"`
	Retryable bool   `json:"retryable,omitempty"`
}

// HealthCheckResponse returns the health check response duh
type HealthCheckResponse struct {
	Alive bool `json:"alive"`
}

// Engine errors. Match them with errors.Is.
var (
	ErrNotFound           = errors.New("not found")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidTransition  = errors.New("invalid transition")
	ErrStaleWrite         = errors.New("stale write")
	ErrTransportFailure   = errors.New("transport failure")
	ErrInvalidReport      = errors.New("invalid report")
	ErrInvalidAssignee    = errors.New("invalid assignee")
	ErrNoOfficerAvailable = errors.New("no officer available")
)

// TransitionError is returned when a status change is not legal from the
// current status, or a guard on it failed.
type TransitionError struct {
	From   Status
	To     Status
	Reason string
}

func (e *TransitionError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("invalid transition from %s to %s: %s", e.From, e.To, e.Reason)
	}
	return fmt.Sprintf("invalid transition from %s to %s", e.From, e.To)
}

// Is makes errors.Is(err, ErrInvalidTransition) work
func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// StaleWriteError means the caller computed its write against an old version.
// Refetch and retry.
type StaleWriteError struct {
	ReportID string
	Expected int64
	Actual   int64
}

func (e *StaleWriteError) Error() string {
	return fmt.Sprintf("stale write on report %s: expected version %d, found %d", e.ReportID, e.Expected, e.Actual)
}

// Is makes errors.Is(err, ErrStaleWrite) work
func (e *StaleWriteError) Is(target error) bool {
	return target == ErrStaleWrite
}

// UnauthorizedError means the actor's role or identity forbids the action
type UnauthorizedError struct {
	Actor  string
	Role   Role
	Action string
}

func (e *UnauthorizedError) Error() string {
	return fmt.Sprintf("actor %s (%s) may not %s", e.Actor, e.Role, e.Action)
}

// Is makes errors.Is(err, ErrUnauthorized) work
func (e *UnauthorizedError) Is(target error) bool {
	return target == ErrUnauthorized
}
