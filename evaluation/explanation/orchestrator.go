/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package explanation

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"chainguard.dev/xafc/agents/judge"
	"chainguard.dev/xafc/agents/metrics"
	"chainguard.dev/xafc/agents/promptbuilder"
	"chainguard.dev/xafc/evaluation/dataset"
	"github.com/chainguard-dev/clog"
)

// ErrPromptNotFound is returned by Run when the prompt template file does not exist.
var ErrPromptNotFound = errors.New("prompt template not found")

// Config controls an explanation evaluation run.
type Config struct {
	// PromptPath is the judge prompt template. It must contain the
	// {{llm_output_json}} placeholder and no other.
	PromptPath string

	// Model labels logs and metrics; the backend decides which model is called.
	Model string

	// Format renders the output object into the prompt. Empty means JSON.
	Format judge.Format

	// Timeout bounds each judge call. Zero means no per-call deadline.
	Timeout time.Duration

	// Delay is the pause after every judge call.
	Delay time.Duration

	// MaxRows caps how many rows are judged, taken from the start of the
	// dataset. Zero or less judges every row.
	MaxRows int
}

// Orchestrator runs the judge over a dataset.
type Orchestrator struct {
	backend judge.Backend
	cfg     Config
	sleep   func(context.Context, time.Duration) error
}

// Option configures an Orchestrator
type Option func(*Orchestrator) error

// WithSleep replaces the function that waits between judge calls.
func WithSleep(sleep func(context.Context, time.Duration) error) Option {
	return func(o *Orchestrator) error {
		if sleep == nil {
			return errors.New("sleep function cannot be nil")
		}
		o.sleep = sleep
		return nil
	}
}

// New creates an Orchestrator that judges with backend.
func New(backend judge.Backend, cfg Config, opts ...Option) (*Orchestrator, error) {
	if backend == nil {
		return nil, errors.New("backend cannot be nil")
	}
	if cfg.PromptPath == "" {
		return nil, errors.New("prompt path cannot be empty")
	}
	if cfg.Timeout < 0 || cfg.Delay < 0 {
		return nil, fmt.Errorf("timeout and delay cannot be negative, got %v and %v", cfg.Timeout, cfg.Delay)
	}

	o := &Orchestrator{
		backend: backend,
		cfg:     cfg,
		sleep:   sleepContext,
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}
	return o, nil
}

// Run judges the Output of the selected records in order and aggregates the
// successful evaluations. It returns (nil, nil) when every call failed.
// Cancelling ctx stops the run and discards what was collected.
func (o *Orchestrator) Run(ctx context.Context, records []dataset.Record) (*Report, error) {
	log := clog.FromContext(ctx).With("model", o.cfg.Model)
	log.Info("Starting explanation quality evaluation (FIDES-Score)")

	j, err := o.newJudge()
	if err != nil {
		if errors.Is(err, ErrPromptNotFound) {
			log.With("path", o.cfg.PromptPath).Error("Prompt file not found")
		}
		return nil, err
	}

	rows := records
	if o.cfg.MaxRows > 0 && o.cfg.MaxRows < len(rows) {
		rows = rows[:o.cfg.MaxRows]
	}
	log.Infof("Processing a maximum of %d rows with the judge", len(rows))

	evals := make([]*judge.Evaluation, 0, len(rows))
	for i, rec := range rows {
		rowLog := log.With("row", i+1).With("id", rec.ID)
		rowLog.Infof("Judging row %d", i+1)

		eval, err := j.Evaluate(clog.WithLogger(ctx, rowLog), rec.Output)
		if err == nil {
			evals = append(evals, eval)
		}

		if err := o.sleep(ctx, o.cfg.Delay); err != nil {
			return nil, fmt.Errorf("explanation evaluation interrupted after row %d: %w", i+1, err)
		}
	}

	rep := Aggregate(evals)
	if rep == nil {
		log.Warn("No evaluations were successfully completed by the judge")
		return nil, nil
	}
	metrics.RecordAggregate(rep.Samples, rep.Averages, rep.Composite)

	log.With("samples", rep.Samples).
		With("composite", rep.Composite).
		Info("Explanation quality evaluation complete")
	return rep, nil
}

// newJudge loads the prompt template and binds it to the backend.
func (o *Orchestrator) newJudge() (*judge.Judge, error) {
	prompt, err := promptbuilder.Load(o.cfg.PromptPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrPromptNotFound, o.cfg.PromptPath)
		}
		return nil, fmt.Errorf("loading prompt template: %w", err)
	}

	opts := []judge.Option{judge.WithTimeout(o.cfg.Timeout)}
	if o.cfg.Model != "" {
		opts = append(opts, judge.WithModel(o.cfg.Model))
	}
	if o.cfg.Format != "" {
		opts = append(opts, judge.WithFormat(o.cfg.Format))
	}
	j, err := judge.New(o.backend, prompt, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating judge: %w", err)
	}
	return j, nil
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
