/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package judge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chainguard.dev/xafc/agents/metrics"
	"chainguard.dev/xafc/agents/promptbuilder"
	"github.com/chainguard-dev/clog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Placeholder is the template placeholder that receives the serialized output object.
const Placeholder = "llm_output_json"

// Format selects how the output object is rendered into the prompt.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Judge scores one predicted-output object per call against a rubric prompt.
type Judge struct {
	backend Backend
	prompt  *promptbuilder.Prompt
	model   string
	format  Format
	timeout time.Duration
	tracer  trace.Tracer
}

// Option configures a Judge
type Option func(*Judge) error

// WithModel sets the model name used to label logs, spans and metrics.
// It does not change which model the backend calls.
func WithModel(model string) Option {
	return func(j *Judge) error {
		if model == "" {
			return errors.New("model cannot be empty")
		}
		j.model = model
		return nil
	}
}

// WithFormat sets how the output object is rendered. The default is FormatJSON.
func WithFormat(format Format) Option {
	return func(j *Judge) error {
		switch format {
		case FormatJSON, FormatYAML:
			j.format = format
			return nil
		default:
			return fmt.Errorf("unknown output format %q, wanted %q or %q", format, FormatJSON, FormatYAML)
		}
	}
}

// WithTimeout bounds each backend call. Zero means no deadline beyond the caller's context.
func WithTimeout(d time.Duration) Option {
	return func(j *Judge) error {
		if d < 0 {
			return fmt.Errorf("timeout cannot be negative, got %v", d)
		}
		j.timeout = d
		return nil
	}
}

// New creates a Judge. The prompt must contain exactly the {{llm_output_json}} placeholder.
func New(backend Backend, prompt *promptbuilder.Prompt, opts ...Option) (*Judge, error) {
	if backend == nil {
		return nil, errors.New("backend cannot be nil")
	}
	if prompt == nil {
		return nil, errors.New("prompt cannot be nil")
	}
	if err := prompt.Expect(Placeholder); err != nil {
		return nil, fmt.Errorf("invalid judge prompt: %w", err)
	}

	j := &Judge{
		backend: backend,
		prompt:  prompt,
		model:   "unknown",
		format:  FormatJSON,
		tracer:  otel.Tracer("chainguard.dev/xafc/agents/judge"),
	}
	for _, opt := range opts {
		if err := opt(j); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}
	return j, nil
}

// Evaluate asks the judge to score output. Failures are logged here, once per
// call, and returned as *ServiceError, *ResponseError or a plain error for
// anything unexpected. Evaluate never retries.
func (j *Judge) Evaluate(ctx context.Context, output map[string]any) (*Evaluation, error) {
	ctx, span := j.tracer.Start(ctx, "judge.evaluate",
		trace.WithAttributes(
			attribute.String("judge.model", j.model),
			attribute.String("judge.format", string(j.format)),
		))
	defer span.End()

	log := clog.FromContext(ctx).With("model", j.model)

	eval, err := j.evaluate(ctx, output)
	if err == nil {
		metrics.RecordJudgeCall(j.model, metrics.OutcomeSuccess)
		span.SetStatus(codes.Ok, "")
		return eval, nil
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	var (
		svcErr  *ServiceError
		respErr *ResponseError
	)
	switch {
	case errors.As(err, &svcErr) && svcErr.RateLimited:
		metrics.RecordJudgeCall(j.model, metrics.OutcomeRateLimited)
		log.With("provider", svcErr.Provider).
			With("status", svcErr.StatusCode).
			With("error", svcErr.Err).
			Error("Judge service rate limited the request")
	case errors.As(err, &svcErr):
		metrics.RecordJudgeCall(j.model, metrics.OutcomeServiceError)
		log.With("provider", svcErr.Provider).
			With("status", svcErr.StatusCode).
			With("timeout", svcErr.Timeout()).
			With("error", svcErr.Err).
			Error("Judge service error")
	case errors.As(err, &respErr):
		metrics.RecordJudgeCall(j.model, metrics.OutcomeMalformed)
		log.With("response", respErr.Response).
			With("error", respErr.Err).
			Error("Failed to decode JSON response from judge")
	default:
		metrics.RecordJudgeCall(j.model, metrics.OutcomeUnexpectedError)
		log.With("error", err).
			Error("Unexpected error during judge evaluation")
	}
	return nil, err
}

func (j *Judge) evaluate(ctx context.Context, output map[string]any) (*Evaluation, error) {
	bind := j.prompt.BindJSON
	if j.format == FormatYAML {
		bind = j.prompt.BindYAML
	}
	bound, err := bind(Placeholder, output)
	if err != nil {
		return nil, fmt.Errorf("binding output to prompt: %w", err)
	}
	prompt, err := bound.Build()
	if err != nil {
		return nil, fmt.Errorf("building prompt: %w", err)
	}

	callCtx := ctx
	if j.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, j.timeout)
		defer cancel()
	}

	text, err := j.backend.Submit(callCtx, prompt)
	if err != nil {
		var svcErr *ServiceError
		if !errors.As(err, &svcErr) && errors.Is(err, context.DeadlineExceeded) {
			return nil, &ServiceError{Provider: "unknown", Err: err}
		}
		return nil, err
	}
	if text == "" {
		return nil, errors.New("judge returned an empty response")
	}

	return ParseEvaluation(text)
}
