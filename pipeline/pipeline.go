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

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/findorigin/ai"
	"github.com/poiesic/findorigin/analysis"
	"github.com/poiesic/findorigin/core"
	"github.com/poiesic/findorigin/search"
)

// DefaultRunTimeout bounds a detached run.
const DefaultRunTimeout = 2 * time.Minute

// Searcher finds candidate sources for a list of queries.
// *search.Aggregator satisfies it.
type Searcher interface {
	SearchMultipleQueries(ctx context.Context, queries []string, opts search.Options) ([]*core.SearchResult, error)
	Configured() bool
}

// Report describes one ranking run.
type Report struct {
	RunID   string  `json:"runId"`
	Outcome Outcome `json:"outcome"`
	// States lists every state the run passed through, in order.
	States   []State             `json:"states"`
	Analysis *core.ExtractedData `json:"analysis,omitempty"`
	// Queries are the queries actually sent to the searcher.
	Queries     []string                 `json:"queries"`
	Candidates  []*core.SearchResult     `json:"candidates"`
	Comparisons []*core.ComparisonResult `json:"comparisons"`
}

// Fallback reports whether the comparisons carry heuristic scores.
func (r *Report) Fallback() bool {
	return r.Outcome == OutcomeFallback
}

func (r *Report) enter(s State) {
	r.States = append(r.States, s)
}

// Pipeline drives text analysis, source search, relevance comparison and
// delivery for incoming requests. Runs share no mutable state; detached runs
// execute on a worker pool.
type Pipeline struct {
	searcher   Searcher
	comparator ai.Comparator
	notifier   Notifier
	observer   Observer
	pool       *ants.Pool
	topN       int
	maxResults int
	preferred  []core.SourceType
	runTimeout time.Duration
	logger     *slog.Logger

	mu       sync.Mutex
	closed   bool
	inflight sync.WaitGroup
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for detached runs.
// Default is runtime.NumCPU(), with a minimum of 4. Submit fails with
// ErrPipelineBusy while every worker is occupied.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		if p.pool != nil {
			p.pool.Release()
		}

		pool, err := newPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger.With("component", "pipeline")
		return nil
	}
}

// WithNotifier sets the transport used by Run and Submit.
func WithNotifier(notifier Notifier) Option {
	return func(p *Pipeline) error {
		p.notifier = notifier
		return nil
	}
}

// WithObserver installs run lifecycle hooks.
func WithObserver(observer Observer) Option {
	return func(p *Pipeline) error {
		if observer == nil {
			observer = noopObserver{}
		}
		p.observer = observer
		return nil
	}
}

// WithTopN sets how many sources a run delivers.
// Default is ai.DefaultTopN.
func WithTopN(n int) Option {
	return func(p *Pipeline) error {
		if n < 1 {
			return fmt.Errorf("top n must be positive, got %d", n)
		}
		p.topN = n
		return nil
	}
}

// WithMaxResults sets the search result limit passed to the searcher.
// Zero keeps the searcher defaults.
func WithMaxResults(n int) Option {
	return func(p *Pipeline) error {
		if n < 0 {
			return fmt.Errorf("max results must not be negative, got %d", n)
		}
		p.maxResults = n
		return nil
	}
}

// WithPreferredTypes sets the source types moved to the front of the
// candidate list.
func WithPreferredTypes(types ...core.SourceType) Option {
	return func(p *Pipeline) error {
		p.preferred = append([]core.SourceType(nil), types...)
		return nil
	}
}

// WithRunTimeout bounds each detached run.
// Default is DefaultRunTimeout.
func WithRunTimeout(d time.Duration) Option {
	return func(p *Pipeline) error {
		if d <= 0 {
			return fmt.Errorf("run timeout must be positive, got %s", d)
		}
		p.runTimeout = d
		return nil
	}
}

// NewPipeline creates a new pipeline.
func NewPipeline(searcher Searcher, comparator ai.Comparator, opts ...Option) (*Pipeline, error) {
	if searcher == nil {
		return nil, ErrSearcherRequired
	}
	if comparator == nil {
		return nil, ErrComparatorRequired
	}

	pool, err := newPool(max(4, runtime.NumCPU()))
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		searcher:   searcher,
		comparator: comparator,
		observer:   noopObserver{},
		pool:       pool,
		topN:       ai.DefaultTopN,
		runTimeout: DefaultRunTimeout,
		logger:     slog.Default().With("component", "pipeline"),
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	return p, nil
}

// Rank analyzes text, searches for candidate sources and scores them,
// without notifying anyone. Preferred source types, when given, override the
// pipeline's defaults for this call.
//
// Negative outcomes (no providers, no sources, nothing relevant) are
// reported through Report.Outcome, not as errors. Rank returns ErrEmptyText
// for blank input and the context error if ctx ends during the search.
func (p *Pipeline) Rank(ctx context.Context, text string, preferred ...core.SourceType) (*Report, error) {
	return p.rank(ctx, uuid.NewString(), text, preferred, nil)
}

// Run performs a complete run for sessionID and returns once the final
// notification has been attempted. Failed acknowledgment and status
// notifications are logged; a failed final notification is returned as
// *DeliveryError alongside the report.
func (p *Pipeline) Run(ctx context.Context, sessionID, text string) (*Report, error) {
	if p.notifier == nil {
		return nil, ErrNotifierRequired
	}
	runID := uuid.NewString()
	p.notify(ctx, runID, sessionID, NotificationAck, MessageAck)
	return p.execute(ctx, runID, sessionID, text)
}

// Submit schedules a run on the worker pool, acknowledges the request,
// and returns the run ID without waiting for the run. The run continues with
// its own deadline; the caller's cancellation does not stop it, and its
// errors only reach the log.
//
// Submit never waits for a worker. When the pool is saturated it returns
// ErrPipelineBusy, and after Release it returns ErrPipelineClosed. In both
// cases nothing is sent to the session.
func (p *Pipeline) Submit(ctx context.Context, sessionID, text string) (string, error) {
	if p.notifier == nil {
		return "", ErrNotifierRequired
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return "", ErrPipelineClosed
	}
	p.inflight.Add(1)
	p.mu.Unlock()

	runID := uuid.NewString()
	detached := context.WithoutCancel(ctx)
	acked := make(chan struct{})
	err := p.pool.Submit(func() {
		defer p.inflight.Done()
		<-acked
		runCtx, cancel := context.WithTimeout(detached, p.runTimeout)
		defer cancel()
		if _, err := p.execute(runCtx, runID, sessionID, text); err != nil {
			p.logger.Error("detached run failed", "run", runID, "session", sessionID, "err", err)
		}
	})
	if err != nil {
		p.inflight.Done()
		if errors.Is(err, ants.ErrPoolOverload) {
			p.logger.Warn("worker pool saturated", "run", runID, "session", sessionID)
			return "", fmt.Errorf("schedule run: %w", ErrPipelineBusy)
		}
		p.logger.Error("failed to schedule run", "run", runID, "err", err)
		return "", fmt.Errorf("schedule run: %w", err)
	}

	p.notify(ctx, runID, sessionID, NotificationAck, MessageAck)
	close(acked)
	return runID, nil
}

// Wait blocks until every submitted run has finished.
// It must not be called concurrently with Submit.
func (p *Pipeline) Wait() {
	p.inflight.Wait()
}

// Release stops accepting runs, waits for submitted ones, then releases the
// worker pool. The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	p.inflight.Wait()
	if p.pool != nil {
		p.pool.Release()
	}
}

// validComparisons drops verdicts that break the ComparisonResult invariants.
func validComparisons(logger *slog.Logger, comparisons []*core.ComparisonResult) []*core.ComparisonResult {
	valid := make([]*core.ComparisonResult, 0, len(comparisons))
	for _, c := range comparisons {
		if err := core.ValidateComparisonResult(c); err != nil {
			logger.Warn("discarding comparison", "err", err)
			continue
		}
		valid = append(valid, c)
	}
	return valid
}

func newPool(size int) (*ants.Pool, error) {
	return ants.NewPool(size, ants.WithNonblocking(true))
}

// execute runs every stage after the acknowledgment and delivers exactly one
// final notification.
func (p *Pipeline) execute(ctx context.Context, runID, sessionID, text string) (*Report, error) {
	progress := func(s State) {
		switch s {
		case StateSearching:
			p.notify(ctx, runID, sessionID, NotificationStatus, MessageSearching)
		case StateComparing:
			p.notify(ctx, runID, sessionID, NotificationStatus, MessageComparing)
		}
	}

	report, err := p.rank(ctx, runID, text, nil, progress)
	switch {
	case errors.Is(err, ErrEmptyText):
		report = &Report{RunID: runID, Outcome: OutcomeEmptyText, States: []State{StateReceived}}
		p.observer.RunFinished(OutcomeEmptyText, 0)
	case err != nil:
		p.logger.Error("run aborted", "run", runID, "err", err)
		report = &Report{RunID: runID, Outcome: OutcomeFailed}
		p.observer.RunFinished(OutcomeFailed, 0)
	}

	// The final notification is still attempted when ctx has ended.
	deliverCtx := ctx
	if ctx.Err() != nil {
		deliverCtx = context.WithoutCancel(ctx)
	}
	if derr := p.notify(deliverCtx, runID, sessionID, NotificationFinal, FormatReport(report)); derr != nil {
		return report, derr
	}
	report.enter(StateDelivered)
	return report, nil
}

func (p *Pipeline) rank(ctx context.Context, runID, text string, preferred []core.SourceType, progress func(State)) (*Report, error) {
	if progress == nil {
		progress = func(State) {}
	}
	logger := p.logger.With("run", runID)
	start := time.Now()
	stage := start

	report := &Report{RunID: runID}
	advance := func(s State) {
		report.enter(s)
		now := time.Now()
		p.observer.StageFinished(s, now.Sub(stage))
		stage = now
		progress(s)
	}
	finish := func(o Outcome) (*Report, error) {
		report.Outcome = o
		p.observer.RunFinished(o, time.Since(start))
		logger.Info("run finished", "outcome", o, "elapsed", time.Since(start),
			"candidates", len(report.Candidates), "selected", len(report.Comparisons))
		return report, nil
	}

	report.enter(StateReceived)
	cleaned := analysis.CleanText(text)
	if cleaned == "" {
		return nil, ErrEmptyText
	}

	report.Analysis = analysis.Analyze(cleaned)
	report.Queries = report.Analysis.SearchQueries
	if len(report.Queries) == 0 {
		report.Queries = []string{cleaned}
	}
	advance(StateAnalyzed)
	logger.Debug("text analyzed",
		"claims", len(report.Analysis.KeyClaims),
		"names", len(report.Analysis.Names),
		"queries", len(report.Queries))

	advance(StateSearching)
	if !p.searcher.Configured() {
		logger.Warn("no search provider configured")
		advance(StateSearchFailed)
		return finish(OutcomeNoProviders)
	}

	if len(preferred) == 0 {
		preferred = p.preferred
	}
	candidates, err := p.searcher.SearchMultipleQueries(ctx, report.Queries, search.Options{
		MaxResults:     p.maxResults,
		PreferredTypes: preferred,
	})
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	if len(candidates) == 0 {
		advance(StateSearchEmpty)
		return finish(OutcomeNoSources)
	}
	report.Candidates = candidates
	advance(StateSearchOk)

	advance(StateComparing)
	outcome := OutcomeRanked
	comparisons, err := p.comparator.Compare(ctx, cleaned, candidates)
	if err != nil {
		logger.Warn("comparison failed, using heuristic scores", "candidates", len(candidates), "err", err)
		advance(StateCompareFailed)
		report.Comparisons = ai.HeuristicComparisons(candidates, p.topN)
		advance(StateFallbackScored)
		outcome = OutcomeFallback
	} else {
		advance(StateCompareOk)
		report.Comparisons = ai.SelectTop(validComparisons(logger, comparisons), p.topN)
	}
	advance(StateSelected)

	if len(report.Comparisons) == 0 {
		return finish(OutcomeNoRelevant)
	}
	return finish(outcome)
}

// notify delivers one notification. Failures are logged and reported to the
// observer; only final notifications return an error.
func (p *Pipeline) notify(ctx context.Context, runID, sessionID string, kind NotificationKind, text string) error {
	err := p.notifier.Notify(ctx, sessionID, text)
	if err == nil {
		return nil
	}
	p.observer.NotificationFailed(kind)
	p.logger.Error("failed to deliver notification", "run", runID, "session", sessionID, "kind", kind, "err", err)
	if kind != NotificationFinal {
		return nil
	}
	return &DeliveryError{SessionID: sessionID, Kind: kind, Err: err}
}
