package anthem

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptySchema indicates a FieldSchema with no fields.
	ErrEmptySchema = errors.New("anthem: field schema is empty")

	// ErrNonPositiveBudget indicates a sample budget ≤ 0.
	ErrNonPositiveBudget = errors.New("anthem: sample budget must be positive")

	// ErrInternal classifies unexpected failures during synthesis.
	ErrInternal = errors.New("anthem: internal error")

	// ErrUnsupportedValue is reported when a present value has no canonical form.
	ErrUnsupportedValue = errors.New("anthem: unsupported value")
)

// SchemaError is fatal for a run and is reported before any encoding begins.
type SchemaError struct {
	Kind RecordKind
	Err  error
}

func (e *SchemaError) Error() string {
	if e.Kind == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }

// EncodingWarning records a field that failed conversion and was encoded as 0.
type EncodingWarning struct {
	Kind  RecordKind
	Field string
	Err   error
}

func (w EncodingWarning) String() string {
	if w.Kind == "" {
		return fmt.Sprintf("field %q: %v", w.Field, w.Err)
	}
	return fmt.Sprintf("%s field %q: %v", w.Kind, w.Field, w.Err)
}

// MarshalText lets warnings serialise as their message.
func (w EncodingWarning) MarshalText() ([]byte, error) {
	return []byte(w.String()), nil
}

// InternalError wraps an unexpected failure with the ErrInternal classification.
type InternalError struct {
	Op  string
	Err error
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("%v: %s: %v", ErrInternal, e.Op, e.Err)
}

func (e *InternalError) Unwrap() []error { return []error{ErrInternal, e.Err} }
