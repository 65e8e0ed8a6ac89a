/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

/*
Package promptbuilder builds judge prompts from plain-text templates with
named placeholders.

Templates are usually kept outside the binary (for example
prompts/fides_score_judge.txt) so that the rubric can be tuned without a
rebuild. Placeholders use double braces:

	Evaluate the explanation below.

	{{llm_output_json}}

Braces that are not doubled are literal text, so JSON examples in a rubric
are written as is. Templates in the single-brace format-string convention,
with {llm_output_json} placeholders and {{ }} escaping literal JSON braces,
are not accepted: Parse and Expect reject them with ErrFormatStyle.

Structured values are encoded as JSON (BindJSON) or YAML (BindYAML) so that
the inserted text is always well formed:

	p, err := promptbuilder.Load("prompts/fides_score_judge.txt")
	if err != nil {
		// handle missing or malformed template
	}
	p, err = p.BindJSON("llm_output_json", output)
	if err != nil {
		// handle unknown or already bound placeholder
	}
	text, err := p.Build()

Every Bind method returns a new Prompt and leaves the receiver untouched, so
a parsed template can be shared and bound once per request. Substitution is
single pass: text produced by a binding is never scanned for further
placeholders.
*/
package promptbuilder
