// Package formatter renders unread summaries through {{variable}} templates
// and named presets.
package formatter

import (
	"errors"
	"fmt"
)

// Preset is a named, compiled status template.
type Preset struct {
	Name        string
	Description string
	Template    *Template
}

var builtinPresets = []struct {
	name, description, source string
}{
	{"compact", "Unread total followed by the channels that have unread messages",
		"[{{unread-count}}] {{channel-list}}"},
	{"detailed", "Counts, manual marks and the most recent message",
		"{{unread-count}} unread in {{channel-count}} channels, {{manual-count}} marked | Latest: {{latest-sender}} in #{{latest-channel}}"},
	{"json", "JSON object for scripts and status bars",
		`{"unread":{{unread-count}},"channels":{{channel-count}},"direct":{{direct-count}},"manual":{{manual-count}}}`},
	{"count-only", "Only the unread total", "{{unread-count}}"},
}

// Presets holds named templates in registration order.
type Presets struct {
	byName map[string]Preset
	order  []string
}

// NewPresets returns the built-in presets.
func NewPresets() *Presets {
	p := &Presets{byName: make(map[string]Preset)}
	for _, b := range builtinPresets {
		if err := p.Register(b.name, b.source, b.description); err != nil {
			panic(fmt.Sprintf("builtin preset %s: %v", b.name, err))
		}
	}
	return p
}

// Register compiles source and stores it under name, replacing any preset
// with the same name.
func (p *Presets) Register(name, source, description string) error {
	if name == "" {
		return errors.New("preset name cannot be empty")
	}
	if source == "" {
		return fmt.Errorf("preset %s: template cannot be empty", name)
	}
	tmpl, err := Parse(source)
	if err != nil {
		return fmt.Errorf("preset %s: %w", name, err)
	}
	if _, exists := p.byName[name]; !exists {
		p.order = append(p.order, name)
	}
	p.byName[name] = Preset{Name: name, Description: description, Template: tmpl}
	return nil
}

// Get returns the preset called name.
func (p *Presets) Get(name string) (Preset, bool) {
	preset, ok := p.byName[name]
	return preset, ok
}

// List returns the presets in registration order.
func (p *Presets) List() []Preset {
	out := make([]Preset, 0, len(p.order))
	for _, name := range p.order {
		out = append(out, p.byName[name])
	}
	return out
}

// Resolve returns the preset named format, or format compiled as a
// template when no preset has that name.
func (p *Presets) Resolve(format string) (*Template, error) {
	if preset, ok := p.byName[format]; ok {
		return preset.Template, nil
	}
	return Parse(format)
}
