package cms

import (
	"errors"
	"fmt"
)

type OutcomeKind string

const (
	KindOK       OutcomeKind = "ok"
	KindNotFound OutcomeKind = "not_found"
	KindError    OutcomeKind = "error"
)

// Outcome is the result of every read against the CMS. NotFound is an
// authoritative answer from the upstream; Error means the upstream could not
// be asked (or did not answer usefully) and says nothing about the content.
type Outcome[T any] struct {
	Kind    OutcomeKind `json:"kind"`
	Value   T           `json:"value,omitempty"`
	Status  int         `json:"status,omitempty"`
	Message string      `json:"message,omitempty"`
}

func Ok[T any](v T) Outcome[T] {
	return Outcome[T]{Kind: KindOK, Value: v}
}

func NotFound[T any]() Outcome[T] {
	return Outcome[T]{Kind: KindNotFound}
}

func Failed[T any](status int, message string) Outcome[T] {
	return Outcome[T]{Kind: KindError, Status: status, Message: message}
}

func (o Outcome[T]) IsOK() bool       { return o.Kind == KindOK }
func (o Outcome[T]) IsNotFound() bool { return o.Kind == KindNotFound }
func (o Outcome[T]) IsError() bool    { return o.Kind == KindError }

// Err returns a non-nil error only for KindError outcomes.
func (o Outcome[T]) Err() error {
	if o.Kind != KindError {
		return nil
	}
	if o.Status != 0 {
		return fmt.Errorf("cms: %s (status %d)", o.Message, o.Status)
	}
	return fmt.Errorf("cms: %s", o.Message)
}

// Items returns the listing carried by o, or an empty non-nil slice when the
// outcome is not Ok.
func Items[T any](o Outcome[[]T]) []T {
	if o.Kind != KindOK || o.Value == nil {
		return []T{}
	}
	return o.Value
}

// failure converts an error from the fetch/decode path into an Error outcome.
func failure[T any](err error) Outcome[T] {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return Failed[T](statusErr.StatusCode, statusErr.Error())
	}
	if errors.Is(err, ErrNotConfigured) {
		return Failed[T](0, ErrNotConfigured.Error())
	}
	return Failed[T](0, err.Error())
}

// Convert maps the value of an Ok outcome and passes other kinds through.
func Convert[T, U any](o Outcome[T], fn func(T) U) Outcome[U] {
	if o.Kind != KindOK {
		return Outcome[U]{Kind: o.Kind, Status: o.Status, Message: o.Message}
	}
	return Ok(fn(o.Value))
}
