/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package classification scores predicted compliance labels against the
// ground truth: per-class precision, recall and F1, accuracy, averages and a
// 2x2 confusion matrix.
package classification

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"chainguard.dev/xafc/agents/metrics"
	"chainguard.dev/xafc/evaluation/dataset"
	"chainguard.dev/xafc/evaluation/label"
	"chainguard.dev/xafc/evaluation/report"
	"github.com/chainguard-dev/clog"
)

// ConfusionMatrixFile is the name of the confusion matrix artifact written by
// SaveConfusionMatrix.
const ConfusionMatrixFile = "confusion_matrix.md"

// Classes lists the labels in report order.
var Classes = []label.Label{label.Compliant, label.NonCompliant}

// Metrics holds precision, recall and F1 for one class or one average.
type Metrics struct {
	Precision float64
	Recall    float64
	F1        float64
	Support   int
}

// Result is a classification report.
type Result struct {
	// Matrix counts rows by actual label (first index) and predicted label (second index).
	Matrix [2][2]int

	// PerClass is indexed by label.
	PerClass [2]Metrics

	Accuracy float64
	Macro    Metrics
	Weighted Metrics

	// Total is the number of scored rows.
	Total int
}

// Analyze labels the ground truth and the prediction of every record with
// label.Derive and scores the predictions.
func Analyze(ctx context.Context, records []dataset.Record, threshold float64) *Result {
	clog.FromContext(ctx).With("rows", len(records)).
		With("threshold", threshold).
		Info("Starting classification performance analysis")

	actual := make([]label.Label, 0, len(records))
	predicted := make([]label.Label, 0, len(records))
	for _, rec := range records {
		rctx := clog.WithLogger(ctx, clog.FromContext(ctx).With("id", rec.ID))
		actual = append(actual, label.Derive(rctx, rec.Compliance, threshold))
		predicted = append(predicted, label.Derive(rctx, rec.Output, threshold))
	}

	res := Compute(actual, predicted)
	metrics.RecordClassification(res.Accuracy, res.Macro.F1)
	return res
}

// Compute scores predicted against actual. The slices are paired by index
// and must have equal length; extra entries in the longer slice are ignored,
// as is any pair holding a label other than Compliant or NonCompliant.
// Any ratio with a zero denominator is 0.
func Compute(actual, predicted []label.Label) *Result {
	res := &Result{}
	n := 0
	for i := range min(len(actual), len(predicted)) {
		a, p := actual[i], predicted[i]
		if !known(a) || !known(p) {
			continue
		}
		res.Matrix[a][p]++
		n++
	}
	res.Total = n

	correct := 0
	for _, c := range Classes {
		tp := res.Matrix[c][c]
		correct += tp

		predictedPositive, support := 0, 0
		for _, o := range Classes {
			predictedPositive += res.Matrix[o][c]
			support += res.Matrix[c][o]
		}

		m := Metrics{
			Precision: ratio(tp, predictedPositive),
			Recall:    ratio(tp, support),
			Support:   support,
		}
		if m.Precision+m.Recall > 0 {
			m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
		}
		res.PerClass[c] = m
	}
	res.Accuracy = ratio(correct, n)

	for _, m := range res.PerClass {
		res.Macro.Precision += m.Precision / float64(len(Classes))
		res.Macro.Recall += m.Recall / float64(len(Classes))
		res.Macro.F1 += m.F1 / float64(len(Classes))
		if n > 0 {
			w := float64(m.Support) / float64(n)
			res.Weighted.Precision += m.Precision * w
			res.Weighted.Recall += m.Recall * w
			res.Weighted.F1 += m.F1 * w
		}
	}
	res.Macro.Support = n
	res.Weighted.Support = n
	return res
}

func known(l label.Label) bool {
	return l == label.Compliant || l == label.NonCompliant
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

func metricsRow(name string, m Metrics) []string {
	return []string{
		name,
		fmt.Sprintf("%.2f", m.Precision),
		fmt.Sprintf("%.2f", m.Recall),
		fmt.Sprintf("%.2f", m.F1),
		fmt.Sprintf("%d", m.Support),
	}
}

// Report returns the classification report table.
func (r *Result) Report() report.Section {
	rows := make([][]string, 0, len(Classes)+3)
	for _, c := range Classes {
		rows = append(rows, metricsRow(c.String(), r.PerClass[c]))
	}
	rows = append(rows,
		[]string{"accuracy", "", "", fmt.Sprintf("%.2f", r.Accuracy), fmt.Sprintf("%d", r.Total)},
		metricsRow("macro avg", r.Macro),
		metricsRow("weighted avg", r.Weighted),
	)
	return report.Section{
		Title:   "Classification Performance Analysis",
		Headers: []string{"Class", "Precision", "Recall", "F1-Score", "Support"},
		Rows:    rows,
	}
}

// ConfusionMatrix returns the confusion matrix table, actual labels by row.
func (r *Result) ConfusionMatrix() report.Section {
	return report.Section{
		Title:   "Confusion Matrix",
		Headers: []string{"Actual \\ Predicted", "Predicted Compliant", "Predicted Non-Compliant"},
		Rows: [][]string{
			{"Actual Compliant", fmt.Sprintf("%d", r.Matrix[label.Compliant][label.Compliant]), fmt.Sprintf("%d", r.Matrix[label.Compliant][label.NonCompliant])},
			{"Actual Non-Compliant", fmt.Sprintf("%d", r.Matrix[label.NonCompliant][label.Compliant]), fmt.Sprintf("%d", r.Matrix[label.NonCompliant][label.NonCompliant])},
		},
	}
}

// Render writes the classification report followed by the confusion matrix.
func (r *Result) Render(w io.Writer) error {
	return report.Write(w, r.Report(), r.ConfusionMatrix())
}

// SaveConfusionMatrix writes the confusion matrix to ConfusionMatrixFile in
// dir, creating dir if needed, and returns the file's path.
func (r *Result) SaveConfusionMatrix(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating results directory: %w", err)
	}
	path := filepath.Join(dir, ConfusionMatrixFile)
	if err := os.WriteFile(path, []byte(r.ConfusionMatrix().String()), 0o644); err != nil { //nolint: gosec
		return "", fmt.Errorf("writing confusion matrix: %w", err)
	}
	return path, nil
}
