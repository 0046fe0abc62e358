// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package apperr

import (
	"errors"
	"fmt"
)

// Kind groups codes by how the caller should react to them.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindUnauthorized
	KindConflict
	KindForbidden
	KindExternal
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindUnauthorized:
		return "unauthorized"
	case KindConflict:
		return "conflict"
	case KindForbidden:
		return "forbidden"
	case KindExternal:
		return "external_failure"
	default:
		return "internal"
	}
}

// Code is the stable, machine-readable identifier returned to clients.
type Code string

const (
	CodeInvalidInput     Code = "INVALID_INPUT"
	CodeSessionNotFound  Code = "SESSION_NOT_FOUND"
	CodeVoterNotFound    Code = "VOTER_NOT_FOUND"
	CodeMovieNotFound    Code = "MOVIE_NOT_FOUND"
	CodeCodeNotFound     Code = "CODE_NOT_FOUND"
	CodeNoVote           Code = "NO_VOTE"
	CodeUnauthorized     Code = "UNAUTHORIZED"
	CodeDuplicate        Code = "DUPLICATE"
	CodeAlreadyUsed      Code = "ALREADY_USED"
	CodeFullyClaimed     Code = "FULLY_CLAIMED"
	CodeAlreadyVoted     Code = "ALREADY_VOTED"
	CodeSlugTaken        Code = "SLUG_TAKEN"
	CodeSessionClosed    Code = "SESSION_CLOSED"
	CodeRevoked          Code = "REVOKED"
	CodeRequestsDisabled Code = "REQUESTS_DISABLED"
	CodeDepthExceeded    Code = "DEPTH_EXCEEDED"
	CodeBudgetExhausted  Code = "BUDGET_EXHAUSTED"
	CodeNotNominator     Code = "NOT_NOMINATOR"
	CodeNotOwner         Code = "NOT_OWNER"
	CodeSlotsExhausted   Code = "SLOTS_EXHAUSTED"
	CodeExternalFailure  Code = "EXTERNAL_FAILURE"
	CodeInternal         Code = "INTERNAL"
)

// Error carries a kind and code plus a message safe to show to users.
// The wrapped cause is for logs only.
type Error struct {
	Kind       Kind
	Code       Code
	Message    string
	Details    map[string]any
	ExistingID string
	cause      error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// Is matches another *Error with the same code.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// With returns a copy of e carrying an extra detail.
func (e *Error) With(key string, value any) *Error {
	cp := *e
	cp.Details = make(map[string]any, len(e.Details)+1)
	for k, v := range e.Details {
		cp.Details[k] = v
	}
	cp.Details[key] = value
	return &cp
}

// Wrap returns a copy of e with cause attached.
func (e *Error) Wrap(cause error) *Error {
	cp := *e
	cp.cause = cause
	return &cp
}

func newError(kind Kind, code Code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Message: msg}
}

func Validation(msg string) *Error {
	return newError(KindValidation, CodeInvalidInput, msg)
}

func Validationf(format string, args ...any) *Error {
	return Validation(fmt.Sprintf(format, args...))
}

func NotFound(code Code, msg string) *Error {
	return newError(KindNotFound, code, msg)
}

func Unauthorized(msg string) *Error {
	return newError(KindUnauthorized, CodeUnauthorized, msg)
}

func Conflict(code Code, msg string) *Error {
	return newError(KindConflict, code, msg)
}

func Forbidden(code Code, msg string) *Error {
	return newError(KindForbidden, code, msg)
}

func External(msg string, cause error) *Error {
	e := newError(KindExternal, CodeExternalFailure, msg)
	e.cause = cause
	return e
}

// Duplicate reports a nomination that already exists as existingID.
func Duplicate(existingID string) *Error {
	e := newError(KindConflict, CodeDuplicate, "This movie has already been nominated")
	e.ExistingID = existingID
	return e.With("existing_movie_id", existingID)
}

// As extracts the *Error in err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// CodeOf returns err's code, or CodeInternal for anything unclassified.
func CodeOf(err error) Code {
	if e, ok := As(err); ok {
		return e.Code
	}
	return CodeInternal
}

// KindOf returns err's kind, or KindInternal for anything unclassified.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindInternal
}
