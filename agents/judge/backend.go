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
)

// Provider identifies the API family that serves a judge model.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderGoogle    Provider = "google"
)

// ProviderFor returns the provider serving model. Claude models are served
// by Anthropic, Gemini models by Google and everything else by OpenAI.
func ProviderFor(model string) Provider {
	m := strings.ToLower(model)
	switch {
	case strings.HasPrefix(m, "claude-"):
		return ProviderAnthropic
	case strings.HasPrefix(m, "gemini-"):
		return ProviderGoogle
	default:
		return ProviderOpenAI
	}
}

// NewBackend creates the Backend for model, authenticated with apiKey.
func NewBackend(ctx context.Context, model, apiKey string) (Backend, error) {
	if model == "" {
		return nil, errors.New("model cannot be empty")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("no API key configured for %s model %q", ProviderFor(model), model)
	}

	switch ProviderFor(model) {
	case ProviderAnthropic:
		return NewClaude(apiKey, model)
	case ProviderGoogle:
		return NewGemini(ctx, apiKey, model)
	default:
		return NewOpenAI(apiKey, model), nil
	}
}
