package search

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/poiesic/findorigin/core"
)

const (
	// DefaultMaxResults is the per-provider result limit when none is given.
	DefaultMaxResults = 10
	// DefaultMultiQueryLimit caps the combined multi-query result list.
	DefaultMultiQueryLimit = 20
)

// Options tunes SearchMultipleQueries.
type Options struct {
	// MaxResults is both the per-query provider limit and the final cap.
	// Zero means DefaultMaxResults per query and DefaultMultiQueryLimit overall.
	MaxResults int
	// PreferredTypes are moved to the front of the result list.
	PreferredTypes []core.SourceType
}

// Aggregator walks an ordered provider chain, one provider at a time,
// until one of them answers.
type Aggregator struct {
	providers []Provider
	monitor   Monitor
	logger    *slog.Logger
}

// Option configures an Aggregator.
type Option func(*Aggregator) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(a *Aggregator) error {
		if logger == nil {
			logger = slog.Default()
		}
		a.logger = logger
		return nil
	}
}

// WithMonitor installs hooks that observe every provider attempt.
func WithMonitor(monitor Monitor) Option {
	return func(a *Aggregator) error {
		if monitor == nil {
			monitor = &noopMonitor{}
		}
		a.monitor = monitor
		return nil
	}
}

// NewAggregator creates an aggregator over providers in priority order.
// An empty chain is allowed; every search then returns no results.
func NewAggregator(providers []Provider, opts ...Option) (*Aggregator, error) {
	for _, p := range providers {
		if p == nil {
			return nil, ErrNilProvider
		}
	}

	a := &Aggregator{
		providers: append([]Provider(nil), providers...),
		monitor:   &noopMonitor{},
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, err
		}
	}
	a.logger = a.logger.With("component", "search")

	return a, nil
}

// Configured reports whether at least one provider is eligible.
func (a *Aggregator) Configured() bool {
	return len(a.EligibleProviders()) > 0
}

// EligibleProviders returns the names of eligible providers in chain order.
func (a *Aggregator) EligibleProviders() []string {
	names := make([]string, 0, len(a.providers))
	for _, p := range a.providers {
		if p.Eligible() {
			names = append(names, p.Name())
		}
	}
	return names
}

// Search queries providers in order and returns the first successful answer,
// even an empty one. Provider failures advance the chain; when the chain is
// exhausted the result is empty. The error is non-nil only when ctx is done.
func (a *Aggregator) Search(ctx context.Context, query string, maxResults int) ([]*core.SearchResult, error) {
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return []*core.SearchResult{}, nil
	}

	attempted := 0
	for _, p := range a.providers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := p.Name()
		if !p.Eligible() {
			a.logger.Debug("skipping provider without credentials", "provider", name)
			a.monitor.ProviderSkipped(name)
			continue
		}

		attempted++
		a.monitor.ProviderAttempt(name, query)
		start := time.Now()
		results, err := p.Search(ctx, query, maxResults)
		elapsed := time.Since(start)
		if err != nil {
			a.monitor.ProviderFailed(name, err, elapsed)
			switch {
			case errors.Is(err, ErrProviderTimeout):
				a.logger.Warn("provider timed out, trying next", "provider", name, "elapsed", elapsed)
			default:
				a.logger.Warn("provider failed, trying next", "provider", name, "err", err)
			}
			continue
		}

		if len(results) > maxResults {
			results = results[:maxResults]
		}
		a.monitor.ProviderSucceeded(name, len(results), elapsed)
		a.logger.Debug("provider answered", "provider", name, "results", len(results), "elapsed", elapsed)
		return results, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if attempted == 0 {
		a.logger.Warn("no search provider configured", "query", query)
	} else {
		a.logger.Warn("all search providers failed", "query", query, "attempted", attempted)
	}
	a.monitor.Exhausted(query)
	return []*core.SearchResult{}, nil
}

// SearchMultipleQueries runs Search for each query in order, then
// deduplicates by URL (earlier queries win), moves preferred source types to
// the front and truncates the list.
func (a *Aggregator) SearchMultipleQueries(ctx context.Context, queries []string, opts Options) ([]*core.SearchResult, error) {
	perQuery := opts.MaxResults
	if perQuery <= 0 {
		perQuery = DefaultMaxResults
	}
	limit := opts.MaxResults
	if limit <= 0 {
		limit = DefaultMultiQueryLimit
	}

	var all []*core.SearchResult
	for _, q := range queries {
		results, err := a.Search(ctx, q, perQuery)
		if err != nil {
			return nil, err
		}
		all = append(all, results...)
	}

	unique := Deduplicate(all)
	ordered := FilterBySourceType(unique, opts.PreferredTypes)
	if len(ordered) > limit {
		ordered = ordered[:limit]
	}
	a.logger.Debug("multi-query search finished",
		"queries", len(queries), "collected", len(all), "unique", len(unique), "returned", len(ordered))
	return ordered, nil
}
