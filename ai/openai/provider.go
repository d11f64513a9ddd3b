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
	"log/slog"

	"github.com/poiesic/findorigin/ai"
)

// Provider implements ai.Provider using an OpenAI-compatible service.
type Provider struct {
	config     *ai.Config
	comparator *Comparator
	logger     *slog.Logger
}

// NewProvider creates a new AI provider backed by an OpenAI-compatible API.
// The config is validated and normalized before use. A config without an
// API key is accepted; Configured then reports false.
//
// Returns ai.Provider interface (not *Provider) to enforce abstraction
// and prevent coupling to OpenAI-specific implementation details.
func NewProvider(config *ai.Config) (ai.Provider, error) {
	comparator, err := newComparator(config)
	if err != nil {
		return nil, err
	}

	return &Provider{
		config:     config,
		comparator: comparator,
		logger:     slog.Default().With("component", "openai-provider"),
	}, nil
}

// Comparator returns the relevance comparator.
func (p *Provider) Comparator() ai.Comparator {
	return p.comparator
}

// Configured reports whether an API key was supplied.
func (p *Provider) Configured() bool {
	return p.config.Configured()
}

// Close releases resources held by the provider.
// Currently a no-op as the underlying client doesn't require explicit cleanup.
func (p *Provider) Close() error {
	p.logger.Debug("closing OpenAI provider")
	return nil
}
