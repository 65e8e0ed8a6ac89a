/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	classificationAccuracy = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "xafc_classification_accuracy",
			Help: "Accuracy of the predicted compliance labels in the last run",
		},
	)

	classificationMacroF1 = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "xafc_classification_macro_f1",
			Help: "Macro-averaged F1 score of the predicted compliance labels in the last run",
		},
	)
)

// RecordClassification publishes the headline numbers of a classification report.
func RecordClassification(accuracy, macroF1 float64) {
	classificationAccuracy.Set(accuracy)
	classificationMacroF1.Set(macroF1)
}

// ClassificationAccuracy returns the accuracy gauge. It is exposed for tests.
func ClassificationAccuracy() prometheus.Gauge {
	return classificationAccuracy
}
