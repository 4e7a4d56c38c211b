// Package draft implements the form-submission core shared by the patient,
// prescription, and appointment flows: an in-progress draft record held as a
// field-name → value mapping, and a fire-once submission pipeline that runs
// an ordered sequence of dependent remote calls (session resolution, optional
// file upload, record insert) against an injected set of step functions.
package draft

import (
	"errors"
	"fmt"
)

// Draft holds the not-yet-persisted field values for an entity being created.
// All values are strings, mirroring form inputs.
type Draft map[string]string

// New returns a blank draft containing the given fields.
func New(fields ...string) Draft {
	d := make(Draft, len(fields))
	for _, f := range fields {
		d[f] = ""
	}
	return d
}

// Set returns a copy of the draft with one field replaced. The receiver is
// never mutated.
func (d Draft) Set(field, value string) Draft {
	out := make(Draft, len(d))
	for k, v := range d {
		out[k] = v
	}
	out[field] = value
	return out
}

// Get returns the current value of a field ("" if the field is unknown).
func (d Draft) Get(field string) string {
	return d[field]
}

// Reset returns a blank draft with the same fields.
func (d Draft) Reset() Draft {
	out := make(Draft, len(d))
	for k := range d {
		out[k] = ""
	}
	return out
}

// ValidationError reports a required field that is missing or blank. It is
// raised before any remote call is made.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s is required", e.Field)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// RequireFields returns a ValidationError for the first listed field whose
// value is blank.
func (d Draft) RequireFields(fields ...string) error {
	for _, f := range fields {
		if d[f] == "" {
			return &ValidationError{Field: f}
		}
	}
	return nil
}
