package synthesis

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failed generation. Every kind produces the fallback
// prompt; none is retried.
type ErrorKind string

const (
	KindTemplateNotFound        ErrorKind = "TemplateNotFound"
	KindPersonaNotFound         ErrorKind = "PersonaNotFound"
	KindPersonaIncompatible     ErrorKind = "PersonaIncompatible"
	KindMissingRequiredVariable ErrorKind = "MissingRequiredVariable"
	KindInternal                ErrorKind = "InternalGenerationError"
)

var (
	// ErrPersonaIncompatible is returned when a template's allowed personas
	// exclude the requested persona.
	ErrPersonaIncompatible = errors.New("persona not allowed for template")

	// ErrInternal wraps a recovered panic.
	ErrInternal = errors.New("internal generation error")
)

// GenerationError is the typed cause behind a fallback prompt.
type GenerationError struct {
	Kind       ErrorKind
	TemplateID string
	PersonaID  string
	Err        error
}

// Error implements the error interface.
func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s (template=%s persona=%s): %v", e.Kind, e.TemplateID, e.PersonaID, e.Err)
}

// Unwrap returns the underlying error.
func (e *GenerationError) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of a generation error, or KindInternal for any
// other non-nil error.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var ge *GenerationError
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return KindInternal
}
