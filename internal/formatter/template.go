package formatter

import (
	"fmt"
	"strings"
)

const (
	openDelim  = "{{"
	closeDelim = "}}"
)

// Template is a compiled status line. Placeholders name an unread variable
// and may carry a fallback used when the value is empty, as in
// {{latest-sender|nobody}}.
type Template struct {
	raw   string
	parts []part
}

type part struct {
	text     string
	variable string
	fallback string
}

// Parse compiles raw, rejecting unbalanced delimiters and unknown variables.
func Parse(raw string) (*Template, error) {
	t := &Template{raw: raw}
	rest := raw
	for rest != "" {
		open := strings.Index(rest, openDelim)
		if stray := strings.Index(rest, closeDelim); stray >= 0 && (open < 0 || stray < open) {
			return nil, fmt.Errorf("unexpected %q at offset %d", closeDelim, len(raw)-len(rest)+stray)
		}
		if open < 0 {
			t.parts = append(t.parts, part{text: rest})
			break
		}
		if open > 0 {
			t.parts = append(t.parts, part{text: rest[:open]})
		}
		rest = rest[open+len(openDelim):]
		end := strings.Index(rest, closeDelim)
		if end < 0 {
			return nil, fmt.Errorf("unclosed %q at offset %d", openDelim, len(raw)-len(rest)-len(openDelim))
		}
		p, err := placeholder(rest[:end])
		if err != nil {
			return nil, err
		}
		t.parts = append(t.parts, p)
		rest = rest[end+len(closeDelim):]
	}
	return t, nil
}

func placeholder(body string) (part, error) {
	name, fallback, _ := strings.Cut(body, "|")
	name = strings.TrimSpace(name)
	if name == "" {
		return part{}, fmt.Errorf("empty variable name")
	}
	if strings.Contains(name, openDelim) {
		return part{}, fmt.Errorf("nested %q in %q", openDelim, body)
	}
	if !IsVariable(name) {
		return part{}, fmt.Errorf("unknown variable: %s", name)
	}
	return part{variable: name, fallback: fallback}, nil
}

// Variables returns the distinct variables in the order they first appear.
func (t *Template) Variables() []string {
	seen := make(map[string]bool)
	out := []string{}
	for _, p := range t.parts {
		if p.variable == "" || seen[p.variable] {
			continue
		}
		seen[p.variable] = true
		out = append(out, p.variable)
	}
	return out
}

// Execute renders the template against ctx.
func (t *Template) Execute(ctx VariableContext) string {
	var b strings.Builder
	for _, p := range t.parts {
		if p.variable == "" {
			b.WriteString(p.text)
			continue
		}
		value := resolve(p.variable, ctx)
		if value == "" {
			value = p.fallback
		}
		b.WriteString(value)
	}
	return b.String()
}

// String returns the source text.
func (t *Template) String() string {
	return t.raw
}

// Render parses raw and executes it in one step.
func Render(raw string, ctx VariableContext) (string, error) {
	t, err := Parse(raw)
	if err != nil {
		return "", err
	}
	return t.Execute(ctx), nil
}
