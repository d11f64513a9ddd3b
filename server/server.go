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

package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/poiesic/findorigin/core"
	"github.com/poiesic/findorigin/metrics"
	"github.com/poiesic/findorigin/pipeline"
	"github.com/poiesic/findorigin/storage"
)

const (
	// SecretHeader carries the secret token registered with setWebhook.
	SecretHeader = "X-Telegram-Bot-Api-Secret-Token"

	// DefaultAnalyzeTimeout bounds a synchronous ranking request.
	DefaultAnalyzeTimeout = 30 * time.Second

	shutdownTimeout = 10 * time.Second
)

// Ranker runs the ranking pipeline.
type Ranker interface {
	Rank(ctx context.Context, text string, preferred ...core.SourceType) (*pipeline.Report, error)
	Submit(ctx context.Context, sessionID, text string) (string, error)
}

// Bot is the part of the Telegram client the server talks to.
type Bot interface {
	Notify(ctx context.Context, sessionID, text string) error
	SetWebhook(ctx context.Context, url, secret string) error
}

// Server exposes the webhook and analysis API over HTTP.
type Server struct {
	ranker         Ranker
	bot            Bot
	ledger         storage.UpdateLedger
	recorder       *metrics.Recorder
	secret         string
	providers      []string
	reasoning      bool
	analyzeTimeout time.Duration
	now            func() time.Time
	logger         *slog.Logger
}

// Option configures a Server.
type Option func(*Server) error

// WithBot enables the Telegram webhook and webhook registration routes.
func WithBot(bot Bot) Option {
	return func(s *Server) error {
		s.bot = bot
		return nil
	}
}

// WithLedger installs the replay guard for webhook updates.
// Without a ledger every delivery is processed.
func WithLedger(ledger storage.UpdateLedger) Option {
	return func(s *Server) error {
		s.ledger = ledger
		return nil
	}
}

// WithRecorder counts webhook updates and serves /metrics.
func WithRecorder(recorder *metrics.Recorder) Option {
	return func(s *Server) error {
		s.recorder = recorder
		return nil
	}
}

// WithWebhookSecret requires SecretHeader on webhook deliveries.
func WithWebhookSecret(secret string) Option {
	return func(s *Server) error {
		s.secret = secret
		return nil
	}
}

// WithStatus sets what the health endpoint reports: the eligible search
// providers and whether the reasoning service holds credentials.
func WithStatus(providers []string, reasoning bool) Option {
	return func(s *Server) error {
		s.providers = append([]string(nil), providers...)
		s.reasoning = reasoning
		return nil
	}
}

// WithAnalyzeTimeout bounds synchronous ranking requests.
// Default is DefaultAnalyzeTimeout.
func WithAnalyzeTimeout(d time.Duration) Option {
	return func(s *Server) error {
		if d <= 0 {
			return errors.New("analyze timeout must be positive")
		}
		s.analyzeTimeout = d
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// New creates a Server around ranker.
func New(ranker Ranker, opts ...Option) (*Server, error) {
	if ranker == nil {
		return nil, ErrRankerRequired
	}
	s := &Server{
		ranker:         ranker,
		analyzeTimeout: DefaultAnalyzeTimeout,
		now:            time.Now,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "server")
	return s, nil
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Post("/telegram", s.handleTelegram)
		r.Post("/mini-app/analyze", s.handleAnalyze)
		r.Post("/test-analyze", s.handleTestAnalyze)
		r.Post("/webhook/set", s.handleSetWebhook)
	})
	if s.recorder != nil {
		r.Handle("/metrics", s.recorder.Handler())
	}
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      s.analyzeTimeout + 15*time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func (s *Server) countUpdate(disposition string) {
	if s.recorder != nil {
		s.recorder.UpdateReceived(disposition)
	}
}
