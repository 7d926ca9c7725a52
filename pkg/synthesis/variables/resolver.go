package variables

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"mercator-hq/concierge/pkg/catalog"
	"mercator-hq/concierge/pkg/conversation"
)

// placeholderPattern matches {{name}} with optional inner whitespace.
var placeholderPattern = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_.-]*)\s*\}\}`)

// MissingRequiredVariableError lists every required variable that did not
// resolve.
type MissingRequiredVariableError struct {
	TemplateID string
	Missing    []string
}

// Error implements the error interface.
func (e *MissingRequiredVariableError) Error() string {
	return fmt.Sprintf("template %q: missing required variables: %s", e.TemplateID, strings.Join(e.Missing, ", "))
}

// Placeholders returns the distinct placeholder names in body, in order of
// first appearance.
func Placeholders(body string) []string {
	var names []string
	seen := make(map[string]bool)
	for _, m := range placeholderPattern.FindAllStringSubmatch(body, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names
}

// Resolve merges template defaults, context-derived values, and explicit
// values, in increasing precedence, for every declared variable and every
// placeholder in the template body. Placeholders without a declaration are
// optional. Unresolved optional variables are omitted from the result.
func Resolve(tmpl catalog.Template, conv *conversation.Context, explicit map[string]any) (map[string]string, error) {
	names := declaredNames(tmpl)
	values := make(map[string]string, len(names))
	var missing []string

	for _, name := range names {
		decl, declared := tmpl.Variable(name)

		value, ok := resolveOne(name, decl, conv, explicit)
		if ok {
			values[name] = value
			continue
		}
		if declared && decl.Required {
			missing = append(missing, name)
		}
	}

	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, &MissingRequiredVariableError{TemplateID: tmpl.ID, Missing: missing}
	}
	return values, nil
}

// resolveOne applies explicit > context > default.
func resolveOne(name string, decl catalog.Variable, conv *conversation.Context, explicit map[string]any) (string, bool) {
	if v, ok := explicit[name]; ok && v != nil {
		if s := Format(v, decl.Type); s != "" {
			return s, true
		}
	}
	if v, ok := conv.Lookup(name); ok {
		return v, true
	}
	if decl.Default != nil {
		if s := Format(decl.Default, decl.Type); s != "" {
			return s, true
		}
	}
	return "", false
}

// declaredNames returns declared variables followed by undeclared
// placeholders.
func declaredNames(tmpl catalog.Template) []string {
	names := make([]string, 0, len(tmpl.Variables))
	seen := make(map[string]bool)
	for _, v := range tmpl.Variables {
		names = append(names, v.Name)
		seen[v.Name] = true
	}
	for _, p := range Placeholders(tmpl.Body) {
		if !seen[p] {
			names = append(names, p)
			seen[p] = true
		}
	}
	return names
}

// Format renders a value according to its semantic type. Lists are joined
// with ", ".
func Format(v any, typ catalog.VariableType) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		if typ == catalog.TypeList {
			return joinList(strings.Split(val, ","))
		}
		return strings.TrimSpace(val)
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case []string:
		return joinList(val)
	case []any:
		items := make([]string, 0, len(val))
		for _, item := range val {
			items = append(items, Format(item, catalog.TypeString))
		}
		return joinList(items)
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

func joinList(items []string) string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s := strings.TrimSpace(item); s != "" {
			out = append(out, s)
		}
	}
	return strings.Join(out, ", ")
}

// braces strips placeholder delimiters from substituted values.
var braces = strings.NewReplacer("{{", "", "}}", "")

// Render substitutes resolved values into body. Placeholders without a value
// render as empty text and values are stripped of "{{" and "}}", so no
// placeholder syntax survives.
func Render(body string, values map[string]string) string {
	return placeholderPattern.ReplaceAllStringFunc(body, func(match string) string {
		name := placeholderPattern.FindStringSubmatch(match)[1]
		return neutralize(values[name])
	})
}

// neutralize removes delimiters until none remain; one pass can join a
// stray "{" or "}" into a new pair.
func neutralize(v string) string {
	for strings.Contains(v, "{{") || strings.Contains(v, "}}") {
		v = braces.Replace(v)
	}
	return v
}
