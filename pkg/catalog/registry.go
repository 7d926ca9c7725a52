package catalog

import (
	"fmt"
	"sort"
)

// TemplateRegistry holds immutable template definitions.
// It is read-only after construction and needs no locking.
type TemplateRegistry struct {
	templates map[string]Template
	ids       []string
}

// NewTemplateRegistry validates and registers templates. Duplicate IDs are
// rejected with ErrDuplicateID.
func NewTemplateRegistry(templates ...Template) (*TemplateRegistry, error) {
	r := &TemplateRegistry{templates: make(map[string]Template, len(templates))}

	for _, t := range templates {
		if err := t.Validate(); err != nil {
			return nil, err
		}
		if _, exists := r.templates[t.ID]; exists {
			return nil, fmt.Errorf("template %q: %w", t.ID, ErrDuplicateID)
		}
		r.templates[t.ID] = t.clone()
		r.ids = append(r.ids, t.ID)
	}
	sort.Strings(r.ids)

	return r, nil
}

// Get returns a copy of the template with the given ID.
func (r *TemplateRegistry) Get(id string) (Template, error) {
	t, ok := r.templates[id]
	if !ok {
		return Template{}, fmt.Errorf("%w: %q", ErrTemplateNotFound, id)
	}
	return t.clone(), nil
}

// Has reports whether a template is registered under id.
func (r *TemplateRegistry) Has(id string) bool {
	_, ok := r.templates[id]
	return ok
}

// List returns the registered template IDs in sorted order.
func (r *TemplateRegistry) List() []string {
	return append([]string(nil), r.ids...)
}

// Len returns the number of registered templates.
func (r *TemplateRegistry) Len() int {
	return len(r.ids)
}

// PersonaRegistry holds immutable persona definitions.
// It is read-only after construction and needs no locking.
type PersonaRegistry struct {
	personas map[string]Persona
	ids      []string
}

// NewPersonaRegistry validates and registers personas. Duplicate IDs are
// rejected with ErrDuplicateID.
func NewPersonaRegistry(personas ...Persona) (*PersonaRegistry, error) {
	r := &PersonaRegistry{personas: make(map[string]Persona, len(personas))}

	for _, p := range personas {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		if _, exists := r.personas[p.ID]; exists {
			return nil, fmt.Errorf("persona %q: %w", p.ID, ErrDuplicateID)
		}
		r.personas[p.ID] = p.clone()
		r.ids = append(r.ids, p.ID)
	}
	sort.Strings(r.ids)

	return r, nil
}

// Get returns a copy of the persona with the given ID.
func (r *PersonaRegistry) Get(id string) (Persona, error) {
	p, ok := r.personas[id]
	if !ok {
		return Persona{}, fmt.Errorf("%w: %q", ErrPersonaNotFound, id)
	}
	return p.clone(), nil
}

// List returns the registered persona IDs in sorted order.
func (r *PersonaRegistry) List() []string {
	return append([]string(nil), r.ids...)
}

// Len returns the number of registered personas.
func (r *PersonaRegistry) Len() int {
	return len(r.ids)
}
