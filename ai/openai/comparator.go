// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package openai

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/poiesic/findorigin/ai"
	"github.com/poiesic/findorigin/core"
)

// Comparator implements ai.Comparator using OpenAI-compatible chat APIs.
type Comparator struct {
	client      llms.Model
	temperature float64
	timeout     time.Duration
	logger      *slog.Logger
}

// newComparator is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance. Without an API key no client is
// created and every comparison fails with ai.ErrMissingCredentials.
func newComparator(config *ai.Config) (*Comparator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var client llms.Model
	if config.Configured() {
		c, err := openai.New(
			openai.WithBaseURL(config.Host),
			openai.WithToken(config.APIKey),
			openai.WithModel(config.Model),
		)
		if err != nil {
			return nil, err
		}
		client = c
	}

	return newComparatorWithModel(config, client), nil
}

func newComparatorWithModel(config *ai.Config, client llms.Model) *Comparator {
	return &Comparator{
		client:      client,
		temperature: config.Temperature,
		timeout:     config.Timeout,
		logger:      slog.Default().With("component", "openai-comparator"),
	}
}

// NewComparator creates a new relevance comparator using the provided configuration.
//
// Returns ai.Comparator interface to enforce abstraction.
func NewComparator(config *ai.Config) (ai.Comparator, error) {
	return newComparator(config)
}

// Compare scores candidates against originalText in a single chat completion.
// The call is bounded by the configured timeout and is never retried.
func (c *Comparator) Compare(ctx context.Context, originalText string, candidates []*core.SearchResult) ([]*core.ComparisonResult, error) {
	if len(candidates) == 0 {
		return []*core.ComparisonResult{}, nil
	}
	if c.client == nil {
		c.logger.Error("reasoning service is not configured")
		return nil, &ai.ReasoningServiceError{Err: ai.ErrMissingCredentials}
	}

	content := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{
				llms.TextPart(systemPrompt),
			},
		},
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextPart(buildComparisonPrompt(originalText, candidates)),
			},
		},
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	c.logger.Debug("requesting relevance verdict", "candidates", len(candidates))
	start := time.Now()
	response, err := c.client.GenerateContent(callCtx, content,
		llms.WithTemperature(c.temperature),
		llms.WithJSONMode(),
	)
	if err != nil {
		timedOut := errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded)
		c.logger.Error("failed to generate content", "elapsed", time.Since(start), "timeout", timedOut, "err", err)
		return nil, &ai.ReasoningServiceError{Timeout: timedOut, Err: err}
	}

	if len(response.Choices) < 1 || response.Choices[0].Content == "" {
		c.logger.Error("no content returned from model")
		return nil, &ai.ReasoningServiceError{Err: ai.ErrEmptyResponse}
	}

	responseText := repairJSON(stripCodeFences(response.Choices[0].Content))

	comparisons, err := ai.ParseVerdict(responseText, candidates)
	if err != nil {
		c.logger.Warn("invalid verdict format, using fallback scores",
			"response", responseText,
			"err", err)
		return ai.FallbackComparisons(candidates, ai.ExplanationUnassessed), nil
	}

	c.logger.Debug("compared candidates",
		"candidates", len(candidates),
		"scored", len(comparisons),
		"elapsed", time.Since(start))
	return comparisons, nil
}
