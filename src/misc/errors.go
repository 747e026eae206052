package misc

import (
	"fmt"
)

// ConfigurationMismatchError is returned when sketches, stores or matrices built with
// different settings are combined or compared.
type ConfigurationMismatchError struct {
	Field string
	Want  interface{}
	Got   interface{}
}

func (e *ConfigurationMismatchError) Error() string {
	return fmt.Sprintf("configuration mismatch on %s: expected %v, got %v", e.Field, e.Want, e.Got)
}

// NoReadsError indicates a sample that produced no usable k-mers.
type NoReadsError struct {
	Sample string
}

func (e *NoReadsError) Error() string {
	return fmt.Sprintf("no usable k-mers found for sample %q", e.Sample)
}

// FormatError indicates a persisted sketch store or matrix that failed validation on read.
//
// The underlying decode error (if any) can be accessed via errors.Unwrap.
type FormatError struct {
	Path   string
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	msg := "malformed file"
	if e.Path != "" {
		msg += " " + e.Path
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FormatError) Unwrap() error { return e.Err }

// MissingInputError indicates a referenced file or directory that does not exist.
type MissingInputError struct {
	Path string
	Err  error
}

func (e *MissingInputError) Error() string {
	return fmt.Sprintf("input does not exist: %s", e.Path)
}

func (e *MissingInputError) Unwrap() error { return e.Err }
