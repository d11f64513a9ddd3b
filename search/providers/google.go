package providers

import (
	"context"
	"net/url"
	"strconv"

	"github.com/poiesic/findorigin/core"
	"github.com/poiesic/findorigin/search"
)

const (
	googleEndpoint   = "https://www.googleapis.com/customsearch/v1"
	googleMaxPerPage = 10
)

// GoogleCredentials is the Custom Search credential bundle.
type GoogleCredentials struct {
	APIKey         string
	SearchEngineID string
}

// Eligible reports whether both the key and the engine id are present.
func (c GoogleCredentials) Eligible() bool {
	return c.APIKey != "" && c.SearchEngineID != ""
}

// Google queries the Google Custom Search JSON API.
type Google struct {
	client
	creds GoogleCredentials
}

var _ search.Provider = (*Google)(nil)

// NewGoogle creates a Google Custom Search adapter.
func NewGoogle(creds GoogleCredentials, opts ...Option) *Google {
	return &Google{client: newClient("google", googleEndpoint, opts), creds: creds}
}

func (g *Google) Name() string   { return g.name }
func (g *Google) Eligible() bool { return g.creds.Eligible() }

// Search returns up to min(maxResults, 10) results; the API serves ten per page.
func (g *Google) Search(ctx context.Context, query string, maxResults int) ([]*core.SearchResult, error) {
	if !g.Eligible() {
		return nil, search.ErrProviderNotConfigured
	}
	params := url.Values{}
	params.Set("key", g.creds.APIKey)
	params.Set("cx", g.creds.SearchEngineID)
	params.Set("q", query)
	params.Set("num", strconv.Itoa(min(maxResults, googleMaxPerPage)))

	body, err := g.get(ctx, params, nil)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Items []struct {
			Title   string `json:"title"`
			Link    string `json:"link"`
			Snippet string `json:"snippet"`
		} `json:"items"`
	}
	if err := g.decodeJSON(body, &resp); err != nil {
		return nil, err
	}

	items := make([]rawItem, 0, len(resp.Items))
	for _, it := range resp.Items {
		items = append(items, rawItem{title: it.Title, url: it.Link, snippet: it.Snippet})
	}
	return g.collect(items, maxResults), nil
}
