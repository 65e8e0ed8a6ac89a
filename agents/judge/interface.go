/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package judge

import (
	"context"
	"fmt"
	"strings"
)

// Rubric dimension names, as they appear in the judge's JSON reply.
const (
	FidelityAccuracy       = "fidelity_accuracy"
	JustificationSoundness = "justification_soundness"
	ClarityCoherence       = "clarity_coherence"
)

// Dimensions lists the rubric dimensions in report order.
var Dimensions = []string{FidelityAccuracy, JustificationSoundness, ClarityCoherence}

// MaxScore is the top of the rubric scale; scores range over [0, MaxScore].
const MaxScore = 5.0

// DimensionScore is the judge's verdict on a single rubric dimension
type DimensionScore struct {
	// Score is the rubric score from 0 (worst) to 5 (best).
	Score float64 `json:"score" jsonschema:"minimum=0,maximum=5,description=Rubric score from 0 (worst) to 5 (best)"`

	// Reasoning is the judge's free-text rationale for the score.
	Reasoning string `json:"reasoning" jsonschema:"description=Short rationale for the score"`
}

// Evaluation is the judge's assessment of one explanation
type Evaluation struct {
	FidelityAccuracy       DimensionScore `json:"fidelity_accuracy"`
	JustificationSoundness DimensionScore `json:"justification_soundness"`
	ClarityCoherence       DimensionScore `json:"clarity_coherence"`
}

// Score returns the score for a dimension name, or 0 if the name is unknown.
func (e *Evaluation) Score(dimension string) float64 {
	switch dimension {
	case FidelityAccuracy:
		return e.FidelityAccuracy.Score
	case JustificationSoundness:
		return e.JustificationSoundness.Score
	case ClarityCoherence:
		return e.ClarityCoherence.Score
	default:
		return 0
	}
}

// String returns a one-line summary of the three scores
func (e *Evaluation) String() string {
	var sb strings.Builder
	for i, name := range Dimensions {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(fmt.Sprintf("%s=%.1f", name, e.Score(name)))
	}
	return sb.String()
}

// Backend submits a fully rendered prompt to a judge model and returns the
// text of its reply. Implementations return *ServiceError when the call to
// the model provider fails.
type Backend interface {
	Submit(ctx context.Context, prompt string) (string, error)
}

// BackendFunc adapts a function to the Backend interface.
type BackendFunc func(ctx context.Context, prompt string) (string, error)

// Submit implements Backend
func (f BackendFunc) Submit(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}
