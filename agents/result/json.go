/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package result turns the text payload of a model response into typed values.
package result

import (
	"encoding/json"
	"strings"
)

// ExtractJSON returns the JSON document carried by a model response.
//
// Models asked for JSON sometimes wrap it in a markdown fence anyway. If the
// text contains a line that is exactly "```json", the lines up to the next
// "```" line are returned. Otherwise surrounding whitespace and any leading
// or trailing fence markers are stripped.
func ExtractJSON(text string) string {
	var (
		body    []string
		inFence bool
	)
	for _, line := range strings.Split(text, "\n") {
		switch {
		case !inFence && strings.TrimRight(line, "\r") == "```json":
			inFence = true
		case inFence && strings.TrimRight(line, "\r") == "```":
			return strings.TrimSpace(strings.Join(body, "\n"))
		case inFence:
			body = append(body, line)
		}
	}
	if inFence {
		// Unterminated fence: use everything after the opening marker.
		return strings.TrimSpace(strings.Join(body, "\n"))
	}

	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

// Extract pulls the JSON document out of text and unmarshals it into T.
// Errors are those of encoding/json, so callers can match *json.SyntaxError
// and friends.
func Extract[T any](text string) (T, error) {
	var out T
	if err := json.Unmarshal([]byte(ExtractJSON(text)), &out); err != nil {
		return out, err
	}
	return out, nil
}
