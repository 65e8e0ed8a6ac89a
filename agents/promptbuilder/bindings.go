/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package promptbuilder

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// binding is a value waiting to be substituted into a template
type binding interface {
	value() (string, error)
}

// unboundBinding marks a placeholder that has not been bound yet
type unboundBinding struct {
	name string
}

func (u *unboundBinding) value() (string, error) {
	return "", fmt.Errorf("unbound placeholder: %s", u.name)
}

// jsonBinding holds data rendered as indented JSON.
// Non-ASCII and HTML-significant characters are written literally.
type jsonBinding struct {
	data any
}

func (j *jsonBinding) value() (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(j.data); err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	// Encode terminates the document with a newline.
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// yamlBinding holds data rendered as YAML
type yamlBinding struct {
	data any
}

func (y *yamlBinding) value() (string, error) {
	b, err := yaml.Marshal(y.data)
	if err != nil {
		return "", fmt.Errorf("failed to marshal YAML: %w", err)
	}
	return string(b), nil
}

// checkUnbound returns an error unless name is a placeholder of the template
// that has not been bound yet
func checkUnbound(bindings map[string]binding, name string) error {
	b, ok := bindings[name]
	if !ok {
		return fmt.Errorf("placeholder %q not found in template", name)
	}
	if _, unbound := b.(*unboundBinding); !unbound {
		return fmt.Errorf("placeholder %q already bound", name)
	}
	return nil
}
