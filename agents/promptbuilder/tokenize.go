/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package promptbuilder

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// ErrFormatStyle reports a template written for single-brace substitution,
// where {name} is a placeholder and {{ }} escapes a literal brace. Here double
// braces always mark a placeholder and JSON is written with single braces.
var ErrFormatStyle = errors.New("template uses {name} placeholders with {{ }} brace escapes; write {{name}} placeholders and single-brace JSON instead")

// resolveFunc returns the replacement text for a placeholder name
type resolveFunc func(name string) (string, error)

// walkTemplate scans the template once, replacing each {{name}} with the
// result of resolve. Replacement text is written out verbatim and never rescanned.
func walkTemplate(template string, resolve resolveFunc) (string, error) {
	var out strings.Builder
	out.Grow(len(template))

	for rest := template; len(rest) > 0; {
		open := strings.Index(rest, "{{")
		if open == -1 {
			out.WriteString(rest)
			break
		}
		out.WriteString(rest[:open])

		closeIdx := strings.Index(rest[open:], "}}")
		if closeIdx == -1 {
			return "", errors.New("unclosed placeholder: missing '}}'")
		}
		closeIdx += open

		name := strings.TrimSpace(rest[open+2 : closeIdx])
		if !isIdentifier(name) {
			if strings.ContainsAny(name, "\":") {
				return "", fmt.Errorf("invalid placeholder identifier %q: %w", name, ErrFormatStyle)
			}
			return "", fmt.Errorf("invalid placeholder identifier %q", name)
		}

		replacement, err := resolve(name)
		if err != nil {
			return "", err
		}
		out.WriteString(replacement)

		rest = rest[closeIdx+2:]
	}

	return out.String(), nil
}

// isIdentifier reports whether s starts with a letter and continues with
// letters, digits or underscores.
func isIdentifier(s string) bool {
	for i, r := range s {
		if i == 0 && !unicode.IsLetter(r) {
			return false
		}
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			return false
		}
	}
	return s != ""
}
