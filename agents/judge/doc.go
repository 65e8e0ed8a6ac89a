/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

/*
Package judge scores compliance explanations with an LLM acting as a judge.

A Judge binds one predicted-output object into a rubric prompt, sends it to a
Backend and decodes the reply into an Evaluation with three rubric
dimensions, each scored from 0 to 5:

  - fidelity_accuracy: does the explanation faithfully reflect the data and verdict
  - justification_soundness: is the reasoning behind the verdict sound
  - clarity_coherence: is the explanation clear and internally consistent

# Usage

	backend, err := judge.NewBackend(ctx, "gpt-4o", os.Getenv("OPENAI_API_KEY"))
	if err != nil {
		return err
	}
	prompt, err := promptbuilder.Load("prompts/fides_score_judge.txt")
	if err != nil {
		return err
	}
	j, err := judge.New(backend, prompt,
		judge.WithModel("gpt-4o"),
		judge.WithTimeout(60*time.Second))
	if err != nil {
		return err
	}
	eval, err := j.Evaluate(ctx, output)

The template must contain exactly one placeholder, {{llm_output_json}}.

# Backends

NewBackend picks the provider from the model name: claude-* models use the
Anthropic Messages API, gemini-* models use the Gemini API and every other
model uses OpenAI chat completions. All backends request deterministic
(temperature 0) JSON output and have SDK retries disabled.

# Failures

Evaluate never retries. Each failure is logged once and returned as one of:

  - *ServiceError when the backend call itself failed (rate limit, timeout, server error)
  - *ResponseError when the reply is not valid JSON or misses a rubric dimension
  - any other error for unexpected conditions such as an empty reply

Callers that only care about success can treat every error as "no result".
*/
package judge
