/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package judge

import (
	"context"
	"errors"

	"chainguard.dev/xafc/agents/metrics"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// openAI implements Backend with OpenAI chat completions
type openAI struct {
	client openai.Client
	model  string
	tokens *metrics.GenAI
}

// NewOpenAI creates a Backend that sends each prompt as a single user message
// with temperature 0 and the JSON object response format. SDK retries are
// disabled; extra request options (e.g. a base URL) are applied last.
func NewOpenAI(apiKey, model string, opts ...option.RequestOption) Backend {
	reqOpts := []option.RequestOption{ //nolint: prealloc
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	reqOpts = append(reqOpts, opts...)

	return &openAI{
		client: openai.NewClient(reqOpts...),
		model:  model,
		tokens: metrics.NewGenAI(metrics.MeterName),
	}
}

// Submit implements Backend
func (o *openAI) Submit(ctx context.Context, prompt string) (string, error) {
	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(0),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return "", newServiceError(string(ProviderOpenAI), apiErr.StatusCode, err)
		}
		return "", newServiceError(string(ProviderOpenAI), 0, err)
	}

	o.tokens.RecordTokens(ctx, string(ProviderOpenAI), o.model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)

	if len(resp.Choices) == 0 {
		return "", errors.New("openai: response has no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
