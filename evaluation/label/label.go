/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package label turns a compliance object into a binary compliance label by
// thresholding its overall confidence score.
package label

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/chainguard-dev/clog"
)

// Label is a binary compliance label.
type Label int

const (
	// Compliant means the confidence score met the threshold.
	Compliant Label = 0
	// NonCompliant means the confidence score fell below the threshold.
	NonCompliant Label = 1
)

func (l Label) String() string {
	switch l {
	case Compliant:
		return "Compliant (0)"
	case NonCompliant:
		return "Non-Compliant (1)"
	default:
		return fmt.Sprintf("Label(%d)", int(l))
	}
}

// defaultConfidence stands in for a missing overall_confidence.
const defaultConfidence = "0"

// ErrUnparseable is returned by Classify when no confidence score can be read
// from the object.
var ErrUnparseable = errors.New("unparseable confidence score")

// Classify reads overall_compliance.overall_confidence from object and returns
// NonCompliant when the score is below threshold.
//
// The confidence may be a "<score>/<max>" string, a bare numeric string or a
// JSON number; only the part before the first "/" is used. A missing field
// counts as "0". Anything else yields Compliant together with an error
// wrapping ErrUnparseable.
func Classify(object map[string]any, threshold float64) (Label, error) {
	score, err := confidence(object)
	if err != nil {
		return Compliant, fmt.Errorf("%w: %w", ErrUnparseable, err)
	}
	if score < threshold {
		return NonCompliant, nil
	}
	return Compliant, nil
}

// Derive is Classify for callers that cannot act on a failure: an unparseable
// confidence is logged as a warning and treated as Compliant.
func Derive(ctx context.Context, object map[string]any, threshold float64) Label {
	l, err := Classify(object, threshold)
	if err != nil {
		clog.FromContext(ctx).With("data", object).
			With("error", err).
			Warn("Could not parse confidence score from data, defaulting to label 0")
	}
	return l
}

func confidence(object map[string]any) (float64, error) {
	if object == nil {
		return 0, errors.New("object is nil")
	}

	raw := any(defaultConfidence)
	if oc, ok := object["overall_compliance"]; ok {
		overall, ok := oc.(map[string]any)
		if !ok {
			return 0, fmt.Errorf("overall_compliance is %T, not an object", oc)
		}
		if v, ok := overall["overall_confidence"]; ok {
			raw = v
		}
	}

	switch v := raw.(type) {
	case string:
		head, _, _ := strings.Cut(v, "/")
		score, err := strconv.ParseFloat(strings.TrimSpace(head), 64)
		if err != nil {
			return 0, fmt.Errorf("overall_confidence %q: %w", v, err)
		}
		return score, nil
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case json.Number:
		return v.Float64()
	default:
		return 0, fmt.Errorf("overall_confidence is %T, not a string or number", raw)
	}
}
