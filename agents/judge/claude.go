/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package judge

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"chainguard.dev/xafc/agents/metrics"
	"chainguard.dev/xafc/agents/schema"
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// claudeMaxTokens bounds the reply; three short rationales fit comfortably.
const claudeMaxTokens = 4096

// claude implements Backend with the Anthropic Messages API
type claude struct {
	client anthropic.Client
	model  string
	system string
	tokens *metrics.GenAI
}

// NewClaude creates a Backend for Claude models. The Messages API has no JSON
// mode, so the Evaluation schema is sent as a system instruction instead.
func NewClaude(apiKey, model string, opts ...option.RequestOption) (Backend, error) {
	evalSchema, err := schema.IndentedJSON[Evaluation]()
	if err != nil {
		return nil, fmt.Errorf("building response schema: %w", err)
	}

	reqOpts := []option.RequestOption{ //nolint: prealloc
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	reqOpts = append(reqOpts, opts...)

	return &claude{
		client: anthropic.NewClient(reqOpts...),
		model:  model,
		system: "Respond with a single JSON object and nothing else. " +
			"The object must conform to this JSON schema:\n" + evalSchema,
		tokens: metrics.NewGenAI(metrics.MeterName),
	}, nil
}

// Submit implements Backend
func (c *claude) Submit(ctx context.Context, prompt string) (string, error) {
	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: claudeMaxTokens,
		System:    []anthropic.TextBlockParam{{Text: c.system}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
		Temperature: anthropic.Float(0),
	})
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			svcErr := newServiceError(string(ProviderAnthropic), apiErr.StatusCode, err)
			// 529 is Anthropic's "overloaded" status.
			svcErr.RateLimited = svcErr.RateLimited || apiErr.StatusCode == 529
			return "", svcErr
		}
		return "", newServiceError(string(ProviderAnthropic), 0, err)
	}

	c.tokens.RecordTokens(ctx, string(ProviderAnthropic), c.model, msg.Usage.InputTokens, msg.Usage.OutputTokens)

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", errors.New("claude: response has no text content")
	}
	return text.String(), nil
}
