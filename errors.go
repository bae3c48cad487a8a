package relate

import (
	"errors"
	"fmt"

	"github.com/hupe1980/relate/ler"
	"github.com/hupe1980/relate/store"
)

var (
	// ErrNotFound is returned when no stored record matches.
	ErrNotFound = store.ErrNotFound

	// ErrDeserialization is returned when a stored record cannot be decoded.
	ErrDeserialization = store.ErrDeserialization

	// ErrInvalidArgument is returned for malformed input.
	ErrInvalidArgument = store.ErrInvalidArgument

	// ErrConcurrencyConflict is returned by exclusive writes that lose a race.
	ErrConcurrencyConflict = store.ErrConcurrencyConflict

	// ErrEmptyEntity is returned when an entity has no vectors.
	ErrEmptyEntity = ler.ErrEmptyEntity

	// ErrMissingDescription is returned when an upstream description is not stored.
	ErrMissingDescription = ler.ErrMissingDescription

	// ErrNilFunc is returned when no computation function is given.
	ErrNilFunc = fmt.Errorf("%w: function must not be nil", store.ErrInvalidArgument)

	// ErrDuplicateEntity is returned when an entity id is added twice.
	ErrDuplicateEntity = fmt.Errorf("%w: duplicate entity", store.ErrInvalidArgument)
)

// ErrEntity indicates that describing one entity failed. Other entities of
// the same call are unaffected.
//
// The original underlying error can be accessed via errors.Unwrap.
type ErrEntity struct {
	Entity     string
	Descriptor string
	cause      error
}

func (e *ErrEntity) Error() string {
	return fmt.Sprintf("describe %s for %s: %v", e.Descriptor, e.Entity, e.cause)
}

func (e *ErrEntity) Unwrap() error { return e.cause }

// FailedEntities returns the entities named by ErrEntity values in err.
func FailedEntities(err error) []string {
	var out []string
	var walk func(error)
	walk = func(err error) {
		if err == nil {
			return
		}
		if joined, ok := err.(interface{ Unwrap() []error }); ok {
			for _, e := range joined.Unwrap() {
				walk(e)
			}
			return
		}
		var ee *ErrEntity
		if errors.As(err, &ee) {
			out = append(out, ee.Entity)
		}
	}
	walk(err)
	return out
}
