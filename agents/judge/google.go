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
	"google.golang.org/genai"
)

// gemini implements Backend with the Gemini API
type gemini struct {
	client *genai.Client
	model  string
	config *genai.GenerateContentConfig
	tokens *metrics.GenAI
}

// GeminiOption adjusts the client configuration of a Gemini backend
type GeminiOption func(*genai.ClientConfig)

// WithGeminiBaseURL points the client at a different endpoint.
func WithGeminiBaseURL(url string) GeminiOption {
	return func(cfg *genai.ClientConfig) {
		cfg.HTTPOptions.BaseURL = url
	}
}

// evaluationSchema constrains Gemini's structured output to an Evaluation.
var evaluationSchema = func() *genai.Schema {
	dimension := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"score": {
				Type:        genai.TypeNumber,
				Description: "Rubric score from 0 (worst) to 5 (best)",
				Minimum:     genai.Ptr[float64](0),
				Maximum:     genai.Ptr(MaxScore),
			},
			"reasoning": {
				Type:        genai.TypeString,
				Description: "Short rationale for the score",
			},
		},
		Required: []string{"score", "reasoning"},
	}
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			FidelityAccuracy:       dimension,
			JustificationSoundness: dimension,
			ClarityCoherence:       dimension,
		},
		Required: Dimensions,
	}
}()

// NewGemini creates a Backend for Gemini models with temperature 0, a JSON
// response MIME type and a response schema matching Evaluation.
func NewGemini(ctx context.Context, apiKey, model string, opts ...GeminiOption) (Backend, error) {
	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Google AI client: %w", err)
	}

	return &gemini{
		client: client,
		model:  model,
		config: &genai.GenerateContentConfig{
			Temperature:      genai.Ptr[float32](0),
			ResponseMIMEType: "application/json",
			ResponseSchema:   evaluationSchema,
		},
		tokens: metrics.NewGenAI(metrics.MeterName),
	}, nil
}

// Submit implements Backend
func (g *gemini) Submit(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), g.config)
	if err != nil {
		statusCode := 0
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			statusCode = apiErr.Code
		}
		svcErr := newServiceError(string(ProviderGoogle), statusCode, err)
		svcErr.RateLimited = svcErr.RateLimited || isRateLimitedGeminiError(err)
		return "", svcErr
	}

	if resp.UsageMetadata != nil {
		g.tokens.RecordTokens(ctx, string(ProviderGoogle), g.model,
			int64(resp.UsageMetadata.PromptTokenCount), int64(resp.UsageMetadata.CandidatesTokenCount))
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("gemini: no content generated")
	}
	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && !part.Thought {
			text.WriteString(part.Text)
		}
	}
	if text.Len() == 0 {
		return "", errors.New("gemini: response has no text parts")
	}
	return text.String(), nil
}

// isRateLimitedGeminiError recognizes quota and rate limit failures, which
// the Gemini API reports as 429 RESOURCE_EXHAUSTED.
func isRateLimitedGeminiError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "RESOURCE_EXHAUSTED") ||
		strings.Contains(msg, "Resource exhausted") ||
		strings.Contains(msg, "quota exceeded")
}
