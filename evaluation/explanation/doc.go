/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package explanation scores the free-text explanations of a compliance
// model with an LLM judge and aggregates the rubric scores into the FIDES
// score.
//
// An Orchestrator walks the dataset in order, one judge call at a time:
//
//	o, err := explanation.New(backend, explanation.Config{
//		PromptPath: "prompts/fides_score_judge.txt",
//		Model:      "gpt-4o",
//		Timeout:    time.Minute,
//		Delay:      time.Second,
//		MaxRows:    5,
//	})
//	if err != nil {
//		return err
//	}
//	rep, err := o.Run(ctx, records)
//	if err != nil {
//		return err
//	}
//	if rep != nil {
//		rep.Render(os.Stdout)
//	}
//
// A failed judge call is logged and skipped; it is neither retried nor
// counted. The configured delay follows every call, failed or not. Run
// returns a nil Report when no call succeeded.
package explanation
