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

package findorigin

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/poiesic/findorigin/ai"
	"github.com/poiesic/findorigin/ai/openai"
	"github.com/poiesic/findorigin/config"
	"github.com/poiesic/findorigin/core"
	"github.com/poiesic/findorigin/metrics"
	"github.com/poiesic/findorigin/pipeline"
	"github.com/poiesic/findorigin/search"
	"github.com/poiesic/findorigin/search/providers"
	"github.com/poiesic/findorigin/server"
	"github.com/poiesic/findorigin/storage/badger"
	"github.com/poiesic/findorigin/telegram"
)

// Service wires configuration, search providers, the reasoning service and
// the ranking pipeline together.
type Service struct {
	config     *config.Config
	provider   ai.Provider
	aggregator *search.Aggregator
	pipeline   *pipeline.Pipeline
	ledger     *badger.Ledger
	bot        *telegram.Client
	recorder   *metrics.Recorder
	logger     *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*serviceOptions)

type serviceOptions struct {
	logger     *slog.Logger
	providers  []search.Provider
	aiProvider ai.Provider
	httpClient *http.Client
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(o *serviceOptions) {
		o.logger = logger
	}
}

// WithSearchProviders replaces the configured provider chain.
func WithSearchProviders(chain ...search.Provider) ServiceOption {
	return func(o *serviceOptions) {
		o.providers = chain
	}
}

// WithAIProvider replaces the configured reasoning service.
// The Service takes ownership and closes it on Close.
func WithAIProvider(provider ai.Provider) ServiceOption {
	return func(o *serviceOptions) {
		o.aiProvider = provider
	}
}

// WithHTTPClient sets the HTTP client used for search providers and Telegram.
func WithHTTPClient(hc *http.Client) ServiceOption {
	return func(o *serviceOptions) {
		o.httpClient = hc
	}
}

// NewService builds every component from cfg.
func NewService(cfg *config.Config, opts ...ServiceOption) (*Service, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	options := &serviceOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}
	logger := options.logger

	recorder := metrics.NewRecorder()

	chain := options.providers
	if chain == nil {
		providerOpts := []providers.Option{
			providers.WithTimeout(cfg.Search.Timeout),
			providers.WithLogger(logger),
		}
		if options.httpClient != nil {
			providerOpts = append(providerOpts, providers.WithHTTPClient(options.httpClient))
		}
		chain = providers.Chain(cfg.Credentials(), providerOpts...)
	}
	aggregator, err := search.NewAggregator(chain,
		search.WithLogger(logger),
		search.WithMonitor(recorder),
	)
	if err != nil {
		return nil, err
	}

	provider := options.aiProvider
	if provider == nil {
		provider, err = openai.NewProvider(cfg.AIServiceConfig())
		if err != nil {
			return nil, err
		}
	}

	var bot *telegram.Client
	if cfg.Telegram.Configured() {
		botOpts := []telegram.Option{telegram.WithLogger(logger)}
		if cfg.Telegram.APIURL != "" {
			botOpts = append(botOpts, telegram.WithAPIURL(cfg.Telegram.APIURL))
		}
		if options.httpClient != nil {
			botOpts = append(botOpts, telegram.WithHTTPClient(options.httpClient))
		}
		bot, err = telegram.NewClient(cfg.Telegram.Token, botOpts...)
		if err != nil {
			provider.Close()
			return nil, err
		}
	}

	ledger, err := badger.OpenLedger(cfg.Ledger.Path, cfg.Ledger.TTL)
	if err != nil {
		provider.Close()
		return nil, err
	}

	pipelineOpts := []pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithObserver(recorder),
		pipeline.WithPoolSize(cfg.Pipeline.PoolSize),
		pipeline.WithTopN(cfg.Pipeline.TopN),
		pipeline.WithRunTimeout(cfg.Pipeline.RunTimeout),
	}
	if bot != nil {
		pipelineOpts = append(pipelineOpts, pipeline.WithNotifier(bot))
	}
	p, err := pipeline.NewPipeline(aggregator, provider.Comparator(), pipelineOpts...)
	if err != nil {
		ledger.Close()
		provider.Close()
		return nil, err
	}

	return &Service{
		config:     cfg,
		provider:   provider,
		aggregator: aggregator,
		pipeline:   p,
		ledger:     ledger,
		bot:        bot,
		recorder:   recorder,
		logger:     logger.With("component", "service"),
	}, nil
}

// Close waits for running pipelines, then releases every component.
func (s *Service) Close() error {
	s.pipeline.Release()

	if err := s.provider.Close(); err != nil {
		s.logger.Error("error closing AI provider", "err", err)
	}
	if err := s.ledger.Close(); err != nil {
		s.logger.Error("error closing update ledger", "err", err)
		return err
	}
	return nil
}

// Rank runs the pipeline once without notifications.
func (s *Service) Rank(ctx context.Context, text string, preferred ...core.SourceType) (*pipeline.Report, error) {
	return s.pipeline.Rank(ctx, text, preferred...)
}

// NewServer creates the HTTP server for this service. Extra options are
// applied after the service's own.
func (s *Service) NewServer(opts ...server.Option) (*server.Server, error) {
	serverOpts := []server.Option{
		server.WithLogger(s.logger),
		server.WithLedger(s.ledger),
		server.WithRecorder(s.recorder),
		server.WithWebhookSecret(s.config.Telegram.WebhookSecret),
		server.WithStatus(s.aggregator.EligibleProviders(), s.provider.Configured()),
	}
	if s.bot != nil {
		serverOpts = append(serverOpts, server.WithBot(s.bot))
	}
	return server.New(s.pipeline, append(serverOpts, opts...)...)
}

func (s *Service) Config() *config.Config { return s.config }

func (s *Service) Pipeline() *pipeline.Pipeline { return s.pipeline }

func (s *Service) Aggregator() *search.Aggregator { return s.aggregator }

// Bot returns the Telegram client, or nil when no token is configured.
func (s *Service) Bot() *telegram.Client { return s.bot }

func (s *Service) Ledger() *badger.Ledger { return s.ledger }

func (s *Service) Recorder() *metrics.Recorder { return s.recorder }
