/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package judge

import (
	"errors"
	"fmt"
	"math"

	"chainguard.dev/xafc/agents/result"
)

// wireDimension mirrors DimensionScore with a pointer score so a missing
// score can be told apart from a score of zero.
type wireDimension struct {
	Score     *float64 `json:"score"`
	Reasoning string   `json:"reasoning"`
}

type wireEvaluation struct {
	FidelityAccuracy       *wireDimension `json:"fidelity_accuracy"`
	JustificationSoundness *wireDimension `json:"justification_soundness"`
	ClarityCoherence       *wireDimension `json:"clarity_coherence"`
}

// ParseEvaluation decodes a judge reply. The reply must be a JSON object
// (optionally inside a markdown fence) holding all three rubric dimensions,
// each with a score in [0, MaxScore]. Any violation yields a *ResponseError.
func ParseEvaluation(text string) (*Evaluation, error) {
	wire, err := result.Extract[wireEvaluation](text)
	if err != nil {
		return nil, &ResponseError{Response: text, Err: fmt.Errorf("decoding JSON: %w", err)}
	}

	var errs []error
	convert := func(name string, d *wireDimension) DimensionScore {
		switch {
		case d == nil:
			errs = append(errs, fmt.Errorf("missing dimension %q", name))
		case d.Score == nil:
			errs = append(errs, fmt.Errorf("dimension %q has no score", name))
		case math.IsNaN(*d.Score) || *d.Score < 0 || *d.Score > MaxScore:
			errs = append(errs, fmt.Errorf("dimension %q score %v is out of range [0, %v]", name, *d.Score, MaxScore))
		default:
			return DimensionScore{Score: *d.Score, Reasoning: d.Reasoning}
		}
		return DimensionScore{}
	}

	eval := &Evaluation{
		FidelityAccuracy:       convert(FidelityAccuracy, wire.FidelityAccuracy),
		JustificationSoundness: convert(JustificationSoundness, wire.JustificationSoundness),
		ClarityCoherence:       convert(ClarityCoherence, wire.ClarityCoherence),
	}
	if len(errs) > 0 {
		return nil, &ResponseError{Response: text, Err: errors.Join(errs...)}
	}
	return eval, nil
}
