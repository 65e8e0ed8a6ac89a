/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package main implements xafc, which evaluates a compliance-classification
// model: it scores the predicted compliance labels against the ground truth
// and asks an LLM judge to grade the model's explanations (the FIDES score).
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"chainguard.dev/xafc/agents/judge"
	"chainguard.dev/xafc/agents/metrics"
	"chainguard.dev/xafc/evaluation/classification"
	"chainguard.dev/xafc/evaluation/dataset"
	"chainguard.dev/xafc/evaluation/explanation"
	"github.com/chainguard-dev/clog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sethvargo/go-envconfig"
	"github.com/spf13/cobra"
)

// backendFactory creates the judge backend for a model.
type backendFactory func(ctx context.Context, model, apiKey string) (judge.Backend, error)

// suite runs the evaluation steps in order.
type suite struct {
	cfg        config
	stdout     io.Writer
	newBackend backendFactory
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	stopMetrics := installMeterProvider(ctx)
	code := 0
	if err := newRootCommand(envconfig.OsLookuper(), judge.NewBackend).ExecuteContext(ctx); err != nil {
		code = 1
	}
	stopMetrics()
	cancel()
	os.Exit(code)
}

// installMeterProvider exports OpenTelemetry metrics through the default
// Prometheus registry, next to the xafc_* series. It returns the shutdown.
func installMeterProvider(ctx context.Context) func() {
	shutdown, err := metrics.InstallMeterProvider(prometheus.DefaultRegisterer)
	if err != nil {
		clog.WarnContextf(ctx, "Token usage metrics are disabled: %v", err)
		return func() {}
	}
	return func() { _ = shutdown(context.Background()) }
}

func newRootCommand(lookuper envconfig.Lookuper, newBackend backendFactory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "xafc",
		Short: "Evaluate compliance classifications and their explanations",
		Long: `xafc loads a CSV dataset of ground-truth and predicted compliance objects,
reports how well the predicted labels match the ground truth, and asks an LLM
judge to score the predicted explanations for fidelity, justification and clarity.

Every setting can come from the environment, a .env file or a flag; flags win.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			verbose, _ := cmd.Flags().GetBool("verbose")
			ctx := withLogger(cmd.Context(), cmd.ErrOrStderr(), verbose)

			envFile, _ := cmd.Flags().GetString("env-file")
			if err := loadDotEnv(envFile); err != nil {
				clog.WarnContextf(ctx, "Ignoring dotenv file: %v", err)
			}

			stopTracing := metrics.InstallTracerProvider(ctx)
			defer func() { _ = stopTracing(context.Background()) }()

			cfg := loadConfig(ctx, lookuper, cmd.Flags())
			s := &suite{cfg: cfg, stdout: cmd.OutOrStdout(), newBackend: newBackend}
			if err := s.run(ctx); err != nil {
				clog.ErrorContextf(ctx, "%v. Terminating.", err)
				return err
			}
			return nil
		},
	}
	registerFlags(cmd.Flags())
	return cmd
}

// withLogger installs a text logger writing to w.
func withLogger(ctx context.Context, w io.Writer, verbose bool) context.Context {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return clog.WithLogger(ctx, clog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

// run executes the suite. Only a dataset that cannot be loaded, or that has
// no usable rows, is an error; every later step logs its failure and moves on.
// Malformed command-line flags are rejected by cobra before run starts.
func (s *suite) run(ctx context.Context) error {
	clog.InfoContextf(ctx, "Launching XAFC evaluation suite")

	records, err := dataset.Load(ctx, s.cfg.DataPath)
	if err != nil {
		return fmt.Errorf("data loading failed: %w", err)
	}
	if len(records) == 0 {
		return errors.New("data loading returned no usable rows")
	}

	s.classify(ctx, records)
	s.explain(ctx, records)

	if s.cfg.MetricsFile != "" {
		if err := metrics.WriteTextfile(s.cfg.MetricsFile); err != nil {
			clog.ErrorContextf(ctx, "Failed to write metrics to %s: %v", s.cfg.MetricsFile, err)
		} else {
			clog.InfoContextf(ctx, "Metrics written to %s", s.cfg.MetricsFile)
		}
	}

	clog.InfoContextf(ctx, "Evaluation suite finished")
	return nil
}

func (s *suite) classify(ctx context.Context, records []dataset.Record) {
	res := classification.Analyze(ctx, records, s.cfg.Threshold)
	if err := res.Render(s.stdout); err != nil {
		clog.ErrorContextf(ctx, "Failed to print classification report: %v", err)
	}

	path, err := res.SaveConfusionMatrix(s.cfg.ResultsDir)
	if err != nil {
		clog.ErrorContextf(ctx, "Failed to save confusion matrix: %v", err)
		return
	}
	clog.InfoContextf(ctx, "Confusion matrix saved to %s", path)
}

func (s *suite) explain(ctx context.Context, records []dataset.Record) {
	apiKey, envVar := s.cfg.apiKey()
	if apiKey == "" {
		clog.WarnContextf(ctx, "%s is not configured. Skipping FIDES-Score evaluation.", envVar)
		return
	}

	backend, err := s.newBackend(ctx, s.cfg.Model, apiKey)
	if err != nil {
		clog.ErrorContextf(ctx, "Failed to create judge backend, skipping FIDES-Score evaluation: %v", err)
		return
	}

	o, err := explanation.New(backend, explanation.Config{
		PromptPath: s.cfg.PromptPath,
		Model:      s.cfg.Model,
		Format:     s.cfg.OutputFormat,
		Timeout:    s.cfg.Timeout,
		Delay:      s.cfg.Delay,
		MaxRows:    s.cfg.MaxRows,
	})
	if err != nil {
		clog.ErrorContextf(ctx, "Failed to set up FIDES-Score evaluation: %v", err)
		return
	}

	rep, err := o.Run(ctx, records)
	switch {
	case errors.Is(err, explanation.ErrPromptNotFound):
		// Already logged by the orchestrator.
		return
	case err != nil:
		clog.ErrorContextf(ctx, "FIDES-Score evaluation failed: %v", err)
		return
	case rep == nil:
		return
	}

	if err := rep.Render(s.stdout); err != nil {
		clog.ErrorContextf(ctx, "Failed to print FIDES-Score report: %v", err)
	}
}
