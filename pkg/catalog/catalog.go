package catalog

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Catalog bundles the template and persona registries with a content
// version. A catalog is never mutated; reloading produces a new one.
type Catalog struct {
	Templates *TemplateRegistry
	Personas  *PersonaRegistry

	// Version is a content hash of the definitions.
	Version string

	// Source is the file the catalog was loaded from, or "builtin".
	Source string

	// LoadedAt is when the catalog was built.
	LoadedAt time.Time
}

// File is the on-disk catalog format.
type File struct {
	Templates []Template `yaml:"templates" json:"templates"`
	Personas  []Persona  `yaml:"personas" json:"personas"`
}

// New builds a catalog from definitions. Every persona named in a template's
// AllowedPersonas must be defined.
func New(templates []Template, personas []Persona) (*Catalog, error) {
	tr, err := NewTemplateRegistry(templates...)
	if err != nil {
		return nil, err
	}
	pr, err := NewPersonaRegistry(personas...)
	if err != nil {
		return nil, err
	}

	for _, t := range templates {
		for _, pid := range t.AllowedPersonas {
			if _, ok := pr.personas[pid]; !ok {
				return nil, &DefinitionError{
					Kind:    "template",
					ID:      t.ID,
					Field:   "allowed_personas",
					Message: fmt.Sprintf("unknown persona %q", pid),
				}
			}
		}
	}

	version, err := contentVersion(File{Templates: templates, Personas: personas})
	if err != nil {
		return nil, err
	}

	return &Catalog{
		Templates: tr,
		Personas:  pr,
		Version:   version,
		LoadedAt:  time.Now(),
	}, nil
}

// Load reads and parses a YAML catalog file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{FilePath: path, Cause: err}
	}
	return Parse(data, path)
}

// Parse parses YAML catalog content. source names the content in errors.
func Parse(data []byte, source string) (*Catalog, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, &ParseError{FilePath: source, Message: err.Error(), Cause: err}
	}
	if len(f.Templates) == 0 && len(f.Personas) == 0 {
		return nil, &ParseError{FilePath: source, Message: "catalog defines no templates or personas"}
	}

	c, err := New(f.Templates, f.Personas)
	if err != nil {
		return nil, fmt.Errorf("catalog %q: %w", source, err)
	}
	c.Source = source
	return c, nil
}

// LoadOrBuiltin loads the catalog at path, or returns the built-in catalog
// when path is empty.
func LoadOrBuiltin(path string) (*Catalog, error) {
	if path == "" {
		return Builtin(), nil
	}
	return Load(path)
}

// Export returns the catalog's definitions in file form.
func (c *Catalog) Export() File {
	var f File
	for _, id := range c.Templates.List() {
		t, _ := c.Templates.Get(id)
		f.Templates = append(f.Templates, t)
	}
	for _, id := range c.Personas.List() {
		p, _ := c.Personas.Get(id)
		f.Personas = append(f.Personas, p)
	}
	return f
}

// contentVersion hashes the definitions.
func contentVersion(f File) (string, error) {
	data, err := yaml.Marshal(f)
	if err != nil {
		return "", fmt.Errorf("failed to hash catalog: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:8]), nil
}

// IsNotFound reports whether err is a template or persona lookup miss.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrTemplateNotFound) || errors.Is(err, ErrPersonaNotFound)
}
