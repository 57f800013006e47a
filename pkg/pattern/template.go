package pattern

import (
	"fmt"
	"slices"
	"strings"
)

// Syntax selects the placeholder marker a template text uses.
type Syntax int

const (
	// DollarBraces marks placeholders as ${name}. Templates authored in Go use it.
	DollarBraces Syntax = iota
	// PercentAngles marks placeholders as <%name%>. Extension descriptors use it.
	PercentAngles
)

func (s Syntax) delimiters() (open, closing string) {
	if s == PercentAngles {
		return "<%", "%>"
	}

	return "${", "}"
}

// Template is literal text interleaved with placeholder references.
// Fragments always has one more element than Placeholders.
type Template struct {
	Source       string
	Fragments    []string
	Placeholders []string
}

// ParseTemplate splits text on the placeholder markers of the given syntax.
func ParseTemplate(text string, syn Syntax) (Template, error) {
	open, closing := syn.delimiters()
	tmpl := Template{Source: text}
	rest := text

	for {
		start := strings.Index(rest, open)
		if start < 0 {
			tmpl.Fragments = append(tmpl.Fragments, rest)

			return tmpl, nil
		}

		end := strings.Index(rest[start+len(open):], closing)
		if end < 0 {
			return Template{}, &TemplateCompilationError{
				Template: text,
				Reason:   "unterminated placeholder marker " + open,
			}
		}

		name := strings.TrimSpace(rest[start+len(open) : start+len(open)+end])
		if !isPlaceholderName(name) {
			return Template{}, &TemplateCompilationError{
				Template:    text,
				Placeholder: name,
				Reason:      "invalid placeholder name",
			}
		}

		tmpl.Fragments = append(tmpl.Fragments, rest[:start])
		tmpl.Placeholders = append(tmpl.Placeholders, name)
		rest = rest[start+len(open)+end+len(closing):]
	}
}

// MustParseTemplate is ParseTemplate for ${name} templates known to be well formed.
func MustParseTemplate(text string) Template {
	tmpl, err := ParseTemplate(text, DollarBraces)
	if err != nil {
		panic(err)
	}

	return tmpl
}

// Names returns the distinct placeholder names in order of first appearance.
func (t Template) Names() []string {
	names := make([]string, 0, len(t.Placeholders))

	for _, name := range t.Placeholders {
		if !slices.Contains(names, name) {
			names = append(names, name)
		}
	}

	return names
}

// Expand substitutes values for placeholders. Missing values expand to the
// placeholder name in angle brackets.
func (t Template) Expand(values map[string]string) string {
	var sb strings.Builder

	for i, fragment := range t.Fragments {
		sb.WriteString(fragment)

		if i >= len(t.Placeholders) {
			continue
		}

		name := t.Placeholders[i]
		if value, ok := values[name]; ok {
			sb.WriteString(value)
		} else {
			fmt.Fprintf(&sb, "<%s>", name)
		}
	}

	return sb.String()
}

func (t Template) String() string {
	return t.Source
}

func isPlaceholderName(name string) bool {
	if name == "" {
		return false
	}

	for i, r := range name {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}

	return true
}
