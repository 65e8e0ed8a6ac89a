/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package promptbuilder

import (
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"
)

// Prompt is a parsed template together with the values bound to its placeholders
type Prompt struct {
	template string
	bindings map[string]binding
}

// Parse validates the template and records its placeholders as unbound
func Parse(template string) (*Prompt, error) {
	bindings := make(map[string]binding)

	if _, err := walkTemplate(template, func(name string) (string, error) {
		if _, ok := bindings[name]; !ok {
			bindings[name] = &unboundBinding{name: name}
		}
		return "", nil
	}); err != nil {
		return nil, err
	}

	return &Prompt{
		template: template,
		bindings: bindings,
	}, nil
}

// Load reads a template from path and parses it.
// A missing file yields an error matching fs.ErrNotExist.
func Load(path string) (*Prompt, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading prompt template: %w", err)
	}
	p, err := Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("parsing prompt template %s: %w", path, err)
	}
	return p, nil
}

// Placeholders returns the sorted placeholder names found in the template
func (p *Prompt) Placeholders() []string {
	return slices.Sorted(maps.Keys(p.bindings))
}

// Expect returns an error unless the template's placeholders are exactly names
func (p *Prompt) Expect(names ...string) error {
	want := slices.Sorted(slices.Values(names))
	want = slices.Compact(want)
	if got := p.Placeholders(); !slices.Equal(got, want) {
		for _, name := range want {
			if _, ok := p.bindings[name]; !ok && strings.Contains(p.template, "{"+name+"}") {
				return fmt.Errorf("template placeholders: got = %v, wanted = %v: %w", got, want, ErrFormatStyle)
			}
		}
		return fmt.Errorf("template placeholders: got = %v, wanted = %v", got, want)
	}
	return nil
}

// with returns a copy of p with name bound to b
func (p *Prompt) with(name string, b binding) (*Prompt, error) {
	if err := checkUnbound(p.bindings, name); err != nil {
		return nil, err
	}
	next := &Prompt{
		template: p.template,
		bindings: maps.Clone(p.bindings),
	}
	next.bindings[name] = b
	return next, nil
}

// BindJSON binds data rendered as indented JSON
func (p *Prompt) BindJSON(name string, data any) (*Prompt, error) {
	return p.with(name, &jsonBinding{data: data})
}

// BindYAML binds data rendered as YAML
func (p *Prompt) BindYAML(name string, data any) (*Prompt, error) {
	return p.with(name, &yamlBinding{data: data})
}

// Build renders the template, failing if any placeholder is still unbound
func (p *Prompt) Build() (string, error) {
	values := make(map[string]string, len(p.bindings))
	for name, b := range p.bindings {
		v, err := b.value()
		if err != nil {
			return "", err
		}
		values[name] = v
	}

	return walkTemplate(p.template, func(name string) (string, error) {
		v, ok := values[name]
		if !ok {
			return "", fmt.Errorf("internal error: placeholder %q has no value", name)
		}
		return v, nil
	})
}
