package ler

import (
	"fmt"
	"strings"

	"github.com/hupe1980/relate/store"
)

var (
	// ErrEmptyEntity is returned when an entity has no vectors.
	ErrEmptyEntity = fmt.Errorf("%w: entity has no vectors", store.ErrInvalidArgument)

	// ErrMissingDescription is returned when an upstream description is not stored.
	ErrMissingDescription = fmt.Errorf("%w: missing upstream description", store.ErrInvalidArgument)
)

// EmptyEntityError names the entity without vectors.
type EmptyEntityError struct {
	Entity string
}

func (e *EmptyEntityError) Error() string {
	return fmt.Sprintf("ler: entity %q has no vectors", e.Entity)
}

func (e *EmptyEntityError) Unwrap() error { return ErrEmptyEntity }

// MissingDescriptionError lists the entities whose upstream description is
// not stored.
type MissingDescriptionError struct {
	Descriptor string
	Entities   []string
}

func (e *MissingDescriptionError) Error() string {
	return fmt.Sprintf("ler: %s must be computed first for %s", e.Descriptor, strings.Join(e.Entities, ", "))
}

func (e *MissingDescriptionError) Unwrap() error { return ErrMissingDescription }

func invalid(field, format string, args ...any) error {
	return &store.InvalidArgumentError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
