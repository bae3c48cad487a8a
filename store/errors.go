package store

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when no committed record matches a lookup.
	ErrNotFound = errors.New("store: record not found")

	// ErrDeserialization is returned when a record exists but cannot be decoded.
	ErrDeserialization = errors.New("store: record cannot be deserialized")

	// ErrInvalidArgument is returned for malformed keys or parameters.
	ErrInvalidArgument = errors.New("store: invalid argument")

	// ErrConcurrencyConflict is returned in WriteExclusive mode when a matching
	// record was committed by another writer.
	ErrConcurrencyConflict = errors.New("store: concurrent write conflict")
)

// NotFoundError describes a cache miss.
type NotFoundError struct {
	Namespace Namespace
	Key1      string
	Key2      string
	ParamsKey string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("store: no record for %s/%s/%s with params %q", e.Namespace, e.Key1, e.Key2, e.ParamsKey)
}

// Is reports whether target is ErrNotFound.
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// DeserializationError describes a corrupt or incomplete record.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type DeserializationError struct {
	Key   string
	cause error
}

func (e *DeserializationError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("store: deserialize %s: %v", e.Key, e.cause)
	}
	return "store: deserialize " + e.Key
}

func (e *DeserializationError) Unwrap() error { return e.cause }

// Is reports whether target is ErrDeserialization.
func (e *DeserializationError) Is(target error) bool { return target == ErrDeserialization }

// InvalidArgumentError describes a rejected argument.
type InvalidArgumentError struct {
	Field  string
	Reason string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("store: invalid %s: %s", e.Field, e.Reason)
}

// Is reports whether target is ErrInvalidArgument.
func (e *InvalidArgumentError) Is(target error) bool { return target == ErrInvalidArgument }

// ConflictError reports the record that made an exclusive write fail.
type ConflictError struct {
	Existing *Record
}

func (e *ConflictError) Error() string {
	return "store: matching record already committed: " + e.Existing.InfoKey
}

// Is reports whether target is ErrConcurrencyConflict.
func (e *ConflictError) Is(target error) bool { return target == ErrConcurrencyConflict }
