/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package label_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"chainguard.dev/xafc/evaluation/label"
)

func compliance(confidence any) map[string]any {
	return map[string]any{
		"overall_compliance": map[string]any{
			"overall_confidence": confidence,
		},
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		object    map[string]any
		threshold float64
		want      label.Label
		wantErr   bool
	}{{
		name:      "score over max below threshold",
		object:    compliance("4/10"),
		threshold: 6,
		want:      label.NonCompliant,
	}, {
		name:      "score over max at threshold",
		object:    compliance("6/10"),
		threshold: 6,
		want:      label.Compliant,
	}, {
		name:      "score over max above threshold",
		object:    compliance("8/10"),
		threshold: 6,
		want:      label.Compliant,
	}, {
		name:      "same score under a lower threshold",
		object:    compliance("4/10"),
		threshold: 3,
		want:      label.Compliant,
	}, {
		name:      "max is ignored",
		object:    compliance("5/3"),
		threshold: 6,
		want:      label.NonCompliant,
	}, {
		name:      "bare numeric string",
		object:    compliance("5.5"),
		threshold: 6,
		want:      label.NonCompliant,
	}, {
		name:      "whitespace around score",
		object:    compliance(" 7 / 10 "),
		threshold: 6,
		want:      label.Compliant,
	}, {
		name:      "json number",
		object:    compliance(3.0),
		threshold: 6,
		want:      label.NonCompliant,
	}, {
		name:      "json.Number",
		object:    compliance(json.Number("9")),
		threshold: 6,
		want:      label.Compliant,
	}, {
		name:      "missing confidence defaults to zero",
		object:    map[string]any{"overall_compliance": map[string]any{}},
		threshold: 6,
		want:      label.NonCompliant,
	}, {
		name:      "missing overall_compliance defaults to zero",
		object:    map[string]any{"other": true},
		threshold: 6,
		want:      label.NonCompliant,
	}, {
		name:      "default zero with zero threshold",
		object:    map[string]any{},
		threshold: 0,
		want:      label.Compliant,
	}, {
		name:      "non-numeric confidence",
		object:    compliance("high"),
		threshold: 6,
		want:      label.Compliant,
		wantErr:   true,
	}, {
		name:      "empty confidence",
		object:    compliance(""),
		threshold: 6,
		want:      label.Compliant,
		wantErr:   true,
	}, {
		name:      "confidence of wrong type",
		object:    compliance([]any{"4", "10"}),
		threshold: 6,
		want:      label.Compliant,
		wantErr:   true,
	}, {
		name:      "overall_compliance not an object",
		object:    map[string]any{"overall_compliance": "4/10"},
		threshold: 6,
		want:      label.Compliant,
		wantErr:   true,
	}, {
		name:      "nil object",
		threshold: 6,
		want:      label.Compliant,
		wantErr:   true,
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := label.Classify(tt.object, tt.threshold)
			if got != tt.want {
				t.Errorf("Classify(): got = %v, wanted = %v", got, tt.want)
			}
			if (err != nil) != tt.wantErr {
				t.Fatalf("Classify() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, label.ErrUnparseable) {
				t.Errorf("Classify() error: got = %v, wanted ErrUnparseable", err)
			}
		})
	}
}

func TestDeriveNeverFails(t *testing.T) {
	ctx := context.Background()
	objects := []map[string]any{
		nil,
		{},
		compliance("4/10"),
		compliance("garbage"),
		compliance(nil),
		{"overall_compliance": 42},
	}
	for _, obj := range objects {
		got := label.Derive(ctx, obj, 6)
		want, _ := label.Classify(obj, 6)
		if got != want {
			t.Errorf("Derive(%v): got = %v, wanted = %v", obj, got, want)
		}
		if got != label.Compliant && got != label.NonCompliant {
			t.Errorf("Derive(%v): got = %v, wanted 0 or 1", obj, got)
		}
	}
}

func TestLabelString(t *testing.T) {
	if got, want := label.Compliant.String(), "Compliant (0)"; got != want {
		t.Errorf("String(): got = %q, wanted = %q", got, want)
	}
	if got, want := label.NonCompliant.String(), "Non-Compliant (1)"; got != want {
		t.Errorf("String(): got = %q, wanted = %q", got, want)
	}
}

func TestDeriveIsPure(t *testing.T) {
	ctx := context.Background()
	obj := compliance("5.9/10")
	first := label.Derive(ctx, obj, 6)
	for range 3 {
		if got := label.Derive(ctx, obj, 6); got != first {
			t.Errorf("Derive(): got = %v, wanted = %v", got, first)
		}
	}
	if first != label.NonCompliant {
		t.Errorf("Derive(): got = %v, wanted = %v", first, label.NonCompliant)
	}
}
