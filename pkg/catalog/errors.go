package catalog

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTemplateNotFound is returned when a template ID is not registered.
	ErrTemplateNotFound = errors.New("template not found")

	// ErrPersonaNotFound is returned when a persona ID is not registered.
	ErrPersonaNotFound = errors.New("persona not found")

	// ErrDuplicateID is returned when two definitions share an ID.
	ErrDuplicateID = errors.New("duplicate id")

	// ErrInvalidDefinition is the sentinel wrapped by DefinitionError.
	ErrInvalidDefinition = errors.New("invalid definition")
)

// DefinitionError describes an invalid template or persona definition.
type DefinitionError struct {
	// Kind is "template" or "persona".
	Kind string

	// ID is the definition ID, if known.
	ID string

	// Field is the offending field path.
	Field string

	// Message describes the problem.
	Message string
}

// Error implements the error interface.
func (e *DefinitionError) Error() string {
	parts := []string{"invalid " + e.Kind}
	if e.ID != "" {
		parts = append(parts, fmt.Sprintf("%q", e.ID))
	}
	if e.Field != "" {
		parts = append(parts, "at "+e.Field)
	}
	return strings.Join(parts, " ") + ": " + e.Message
}

// Unwrap returns ErrInvalidDefinition so callers can match with errors.Is.
func (e *DefinitionError) Unwrap() error {
	return ErrInvalidDefinition
}

// LoadError represents a failure to read a catalog file.
type LoadError struct {
	// FilePath is the path to the file that failed to load.
	FilePath string

	// Cause is the underlying error.
	Cause error
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load catalog file %q: %v", e.FilePath, e.Cause)
}

// Unwrap implements the errors.Unwrap interface for error chain support.
func (e *LoadError) Unwrap() error {
	return e.Cause
}

// ParseError represents a YAML parsing failure.
type ParseError struct {
	// FilePath is the path to the file that failed to parse.
	FilePath string

	// Message describes the parsing error.
	Message string

	// Cause is the underlying parser error.
	Cause error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error in %q: %s", e.FilePath, e.Message)
}

// Unwrap implements the errors.Unwrap interface for error chain support.
func (e *ParseError) Unwrap() error {
	return e.Cause
}
