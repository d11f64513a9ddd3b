package providers

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/poiesic/findorigin/core"
	"github.com/poiesic/findorigin/search"
)

const (
	bingEndpoint = "https://api.bing.microsoft.com/v7.0/search"
	bingMaxCount = 50
)

// BingCredentials is the Bing Web Search credential bundle.
type BingCredentials struct {
	APIKey string
}

func (c BingCredentials) Eligible() bool { return c.APIKey != "" }

// Bing queries the Bing Web Search v7 API.
type Bing struct {
	client
	creds BingCredentials
}

var _ search.Provider = (*Bing)(nil)

// NewBing creates a Bing Web Search adapter.
func NewBing(creds BingCredentials, opts ...Option) *Bing {
	return &Bing{client: newClient("bing", bingEndpoint, opts), creds: creds}
}

func (b *Bing) Name() string   { return b.name }
func (b *Bing) Eligible() bool { return b.creds.Eligible() }

func (b *Bing) Search(ctx context.Context, query string, maxResults int) ([]*core.SearchResult, error) {
	if !b.Eligible() {
		return nil, search.ErrProviderNotConfigured
	}
	params := url.Values{}
	params.Set("q", query)
	params.Set("count", strconv.Itoa(min(maxResults, bingMaxCount)))

	header := http.Header{}
	header.Set("Ocp-Apim-Subscription-Key", b.creds.APIKey)

	body, err := b.get(ctx, params, header)
	if err != nil {
		return nil, err
	}

	var resp struct {
		WebPages struct {
			Value []struct {
				Name    string `json:"name"`
				URL     string `json:"url"`
				Snippet string `json:"snippet"`
			} `json:"value"`
		} `json:"webPages"`
	}
	if err := b.decodeJSON(body, &resp); err != nil {
		return nil, err
	}

	items := make([]rawItem, 0, len(resp.WebPages.Value))
	for _, v := range resp.WebPages.Value {
		items = append(items, rawItem{title: v.Name, url: v.URL, snippet: v.Snippet})
	}
	return b.collect(items, maxResults), nil
}
