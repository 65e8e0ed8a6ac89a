/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package explanation

import (
	"fmt"
	"io"

	"chainguard.dev/xafc/agents/judge"
	"chainguard.dev/xafc/evaluation/report"
)

// Report summarizes the successful judge evaluations of a run.
type Report struct {
	// Samples is the number of evaluations aggregated.
	Samples int

	// Averages holds the mean score of each rubric dimension, keyed by
	// dimension name (see judge.Dimensions).
	Averages map[string]float64

	// Composite is the FIDES score: the unweighted mean of the dimension averages.
	Composite float64
}

// Aggregate averages evals per dimension and computes the composite score.
// It returns nil when evals holds no evaluations.
func Aggregate(evals []*judge.Evaluation) *Report {
	var n int
	sums := make(map[string]float64, len(judge.Dimensions))
	for _, e := range evals {
		if e == nil {
			continue
		}
		n++
		for _, d := range judge.Dimensions {
			sums[d] += e.Score(d)
		}
	}
	if n == 0 {
		return nil
	}

	rep := &Report{
		Samples:  n,
		Averages: make(map[string]float64, len(judge.Dimensions)),
	}
	for _, d := range judge.Dimensions {
		avg := sums[d] / float64(n)
		rep.Averages[d] = avg
		rep.Composite += avg
	}
	rep.Composite /= float64(len(judge.Dimensions))
	return rep
}

var dimensionTitles = map[string]string{
	judge.FidelityAccuracy:       "Avg. Fidelity & Accuracy",
	judge.JustificationSoundness: "Avg. Justification Soundness",
	judge.ClarityCoherence:       "Avg. Clarity & Coherence",
}

// Section returns the report as a table.
func (r *Report) Section() report.Section {
	rows := [][]string{{"Samples Evaluated", fmt.Sprintf("%d", r.Samples)}}
	for _, d := range judge.Dimensions {
		rows = append(rows, []string{dimensionTitles[d], report.Score(r.Averages[d], judge.MaxScore)})
	}
	rows = append(rows, []string{"Overall Average FIDES-Score", report.Score(r.Composite, judge.MaxScore)})

	return report.Section{
		Title:   "Explanation Quality Analysis (FIDES-Score)",
		Headers: []string{"Metric", "Score"},
		Rows:    rows,
	}
}

// Render writes the report to w.
func (r *Report) Render(w io.Writer) error {
	return report.Write(w, r.Section())
}
