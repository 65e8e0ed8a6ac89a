/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome classifies a single judge call.
type Outcome string

const (
	OutcomeSuccess         Outcome = "success"
	OutcomeServiceError    Outcome = "service_error"
	OutcomeRateLimited     Outcome = "rate_limited"
	OutcomeMalformed       Outcome = "malformed_response"
	OutcomeUnexpectedError Outcome = "unexpected_error"
)

var (
	judgeCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xafc_judge_calls_total",
			Help: "Judge calls by model and outcome",
		},
		[]string{"model", "outcome"},
	)

	dimensionAverage = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "xafc_fides_dimension_average",
			Help: "Average judge score (0-5) per rubric dimension in the last run",
		},
		[]string{"dimension"},
	)

	compositeAverage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "xafc_fides_composite_average",
			Help: "Composite FIDES score (0-5) of the last run",
		},
	)

	evaluatedSamples = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "xafc_fides_samples_evaluated",
			Help: "Number of successful judge evaluations in the last run",
		},
	)
)

// RecordJudgeCall counts one judge call.
func RecordJudgeCall(model string, outcome Outcome) {
	judgeCalls.With(prometheus.Labels{
		"model":   model,
		"outcome": string(outcome),
	}).Inc()
}

// JudgeCalls returns the counter for model and outcome. It is exposed for tests.
func JudgeCalls(model string, outcome Outcome) prometheus.Counter {
	return judgeCalls.With(prometheus.Labels{
		"model":   model,
		"outcome": string(outcome),
	})
}

// RecordAggregate publishes the averages of a completed run.
func RecordAggregate(samples int, dimensions map[string]float64, composite float64) {
	evaluatedSamples.Set(float64(samples))
	for name, avg := range dimensions {
		dimensionAverage.WithLabelValues(name).Set(avg)
	}
	compositeAverage.Set(composite)
}

// DimensionAverage returns the gauge for a rubric dimension. It is exposed for tests.
func DimensionAverage(dimension string) prometheus.Gauge {
	return dimensionAverage.WithLabelValues(dimension)
}

// CompositeAverage returns the composite score gauge. It is exposed for tests.
func CompositeAverage() prometheus.Gauge {
	return compositeAverage
}

// WriteTextfile writes every registered metric to path in the Prometheus text
// format, for collection by a node exporter textfile collector.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
