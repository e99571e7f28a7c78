// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

package model

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindAlreadyExists
	KindNotFound
	KindStorage
	KindExternalTool
	KindGeneration
	KindInvalidConfig
)

func (k Kind) String() string {
	switch k {
	case KindAlreadyExists:
		return "RepositoryAlreadyExists"
	case KindNotFound:
		return "RepositoryNotFound"
	case KindStorage:
		return "StorageError"
	case KindExternalTool:
		return "ExternalToolFailure"
	case KindGeneration:
		return "GenerationError"
	case KindInvalidConfig:
		return "InvalidConfiguration"
	}
	return "Unknown"
}

// Sentinel errors, one per kind. errors.Is matches any *Error of that kind.
var (
	ErrAlreadyExists = &Error{Kind: KindAlreadyExists}
	ErrNotFound      = &Error{Kind: KindNotFound}
	ErrStorage       = &Error{Kind: KindStorage}
	ErrExternalTool  = &Error{Kind: KindExternalTool}
	ErrGeneration    = &Error{Kind: KindGeneration}
	ErrInvalidConfig = &Error{Kind: KindInvalidConfig}
)

// Error is the typed failure returned by every repository operation.
type Error struct {
	Kind Kind
	Op   string // operation, e.g. "backup" or "certs"
	Path string // file or directory involved, if any
	Err  error
}

// E builds an *Error. Path may be empty.
func E(kind Kind, op, path string, err error) *Error {
	return &Error{Kind: kind, Op: op, Path: path, Err: err}
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Path != "" {
		msg += " (" + e.Path + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches sentinel errors by kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Path == "" && t.Err == nil && t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error found in err's chain,
// including errors aggregated with multierr.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Errorf is a shorthand for E with a formatted cause.
func Errorf(kind Kind, op, path, format string, args ...any) *Error {
	return E(kind, op, path, fmt.Errorf(format, args...))
}

// Classify returns err unchanged when it already carries a kind and wraps
// it as kind otherwise. A nil err stays nil.
func Classify(kind Kind, op, path string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return E(kind, op, path, err)
}
