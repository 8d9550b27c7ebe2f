// Package apperr holds the sentinel errors and the failure taxonomy shared
// by the library service and the document store.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")
	ErrTooLarge      = errors.New("too large")
)

// TransportError reports a failed list or byte fetch against the remote store.
type TransportError struct {
	Op     string // "list", "fetch", "upload"
	Target string
	Status int // HTTP status, 0 when the request never completed
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("transport: %s %s: status %d", e.Op, e.Target, e.Status)
	}
	return fmt.Sprintf("transport: %s %s: %v", e.Op, e.Target, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// RenderError reports that bytes were retrieved but the renderer failed.
type RenderError struct {
	Kind string
	Err  error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render %s: %v", e.Kind, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// UnsupportedTypeError marks a document kind with no registered renderer.
// It resolves to a placeholder preview, never to a failed one.
type UnsupportedTypeError struct {
	Kind string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("no renderer for type %q", e.Kind)
}

// IsTransport reports whether err is, or wraps, a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsRender reports whether err is, or wraps, a RenderError.
func IsRender(err error) bool {
	var re *RenderError
	return errors.As(err, &re)
}

// IsUnsupported reports whether err is, or wraps, an UnsupportedTypeError.
func IsUnsupported(err error) bool {
	var ue *UnsupportedTypeError
	return errors.As(err, &ue)
}
