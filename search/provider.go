package search

import (
	"context"

	"github.com/poiesic/findorigin/core"
)

// Provider is one external web-search service behind a common contract.
//
// Search returns at most maxResults results built with core.NewSearchResult.
// A timed-out call returns a *ProviderTimeoutError, a non-success response
// a *ProviderError, and zero hits an empty slice with a nil error.
type Provider interface {
	// Name identifies the provider in logs and metrics.
	Name() string
	// Eligible reports whether the provider's credential bundle is complete.
	Eligible() bool
	Search(ctx context.Context, query string, maxResults int) ([]*core.SearchResult, error)
}
