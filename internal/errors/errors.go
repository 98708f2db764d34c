// Package errors defines the engine's structured error type and the fixed
// taxonomy of error kinds it can surface.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind names one of the engine's error categories. Unlike the teacher's
// open-ended string error codes, Kind is a closed set matching the nine
// categories the engine distinguishes.
type Kind string

const (
	KindIO              Kind = "io"
	KindEncoding        Kind = "encoding"
	KindDecoding        Kind = "decoding"
	KindCompression     Kind = "compression"
	KindDocIDGeneration Kind = "doc_id_generation"
	KindDocIDParse      Kind = "doc_id_parse"
	KindClock           Kind = "clock"
	KindNotFound        Kind = "not_found"
	KindQueryParse      Kind = "query_parse"
)

// Error is the engine's structured error type. Every public operation that
// fails returns one of these, or an error that wraps one.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
	Details map[string]string
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("minisearch: %s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("minisearch: %s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports equality by Kind, so errors.Is(err, errors.New(KindNotFound, ""))
// matches any not-found error regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// WithDetail attaches a key/value detail and returns the receiver for
// chaining.
func (e *Error) WithDetail(key, value string) *Error {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// New constructs an *Error with no cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap constructs an *Error around an existing error. Returns nil if err is
// nil, matching the teacher's Wrap semantics.
func Wrap(kind Kind, message string, cause error) *Error {
	if cause == nil {
		return nil
	}
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Per-kind convenience constructors, mirroring the teacher's IOError/
// ConfigError/... helpers. Unlike Wrap, they always return a non-nil *Error;
// cause may be nil.
func IOError(message string, cause error) *Error {
	return &Error{Kind: KindIO, Message: message, Cause: cause}
}
func EncodingError(message string, cause error) *Error {
	return &Error{Kind: KindEncoding, Message: message, Cause: cause}
}
func DecodingError(message string, cause error) *Error {
	return &Error{Kind: KindDecoding, Message: message, Cause: cause}
}
func CompressionError(message string, cause error) *Error {
	return &Error{Kind: KindCompression, Message: message, Cause: cause}
}
func ClockError(message string, cause error) *Error {
	return &Error{Kind: KindClock, Message: message, Cause: cause}
}

func DocIDGenerationError(cause error) *Error {
	return Wrap(KindDocIDGeneration, "failed to generate document id", cause)
}

func DocIDParseError(text string) *Error {
	return New(KindDocIDParse, "invalid document id "+text)
}

func NotFound(idText string) *Error {
	return New(KindNotFound, "document not found: "+idText)
}

func QueryParseError(message string) *Error { return New(KindQueryParse, message) }

// Is reports whether err's Kind equals kind, unwrapping through any chain.
func Is(err error, kind Kind) bool {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf extracts the Kind of err, if it is or wraps an *Error.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}
