package providers

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/poiesic/findorigin/core"
	"github.com/poiesic/findorigin/search"
)

const (
	serpAPIEndpoint = "https://serpapi.com/search"
	serpAPIMaxNum   = 100
)

// SerpAPICredentials is the SerpAPI credential bundle.
type SerpAPICredentials struct {
	APIKey string
}

func (c SerpAPICredentials) Eligible() bool { return c.APIKey != "" }

// SerpAPI queries Google through SerpAPI.
type SerpAPI struct {
	client
	creds SerpAPICredentials
}

var _ search.Provider = (*SerpAPI)(nil)

// NewSerpAPI creates a SerpAPI adapter.
func NewSerpAPI(creds SerpAPICredentials, opts ...Option) *SerpAPI {
	return &SerpAPI{client: newClient("serpapi", serpAPIEndpoint, opts), creds: creds}
}

func (s *SerpAPI) Name() string   { return s.name }
func (s *SerpAPI) Eligible() bool { return s.creds.Eligible() }

// Search returns organic results. SerpAPI reports an empty result page as a
// successful response carrying an error string; that case yields no results.
func (s *SerpAPI) Search(ctx context.Context, query string, maxResults int) ([]*core.SearchResult, error) {
	if !s.Eligible() {
		return nil, search.ErrProviderNotConfigured
	}
	params := url.Values{}
	params.Set("engine", "google")
	params.Set("q", query)
	params.Set("api_key", s.creds.APIKey)
	params.Set("num", strconv.Itoa(min(maxResults, serpAPIMaxNum)))

	body, err := s.get(ctx, params, nil)
	if err != nil {
		return nil, err
	}

	var resp struct {
		OrganicResults []struct {
			Position int    `json:"position"`
			Title    string `json:"title"`
			Link     string `json:"link"`
			Snippet  string `json:"snippet"`
		} `json:"organic_results"`
		Error string `json:"error"`
	}
	if err := s.decodeJSON(body, &resp); err != nil {
		return nil, err
	}

	if len(resp.OrganicResults) == 0 && resp.Error != "" {
		if strings.Contains(strings.ToLower(resp.Error), "hasn't returned any results") {
			return []*core.SearchResult{}, nil
		}
		return nil, &search.ProviderError{Provider: s.name, Description: resp.Error}
	}

	items := make([]rawItem, 0, len(resp.OrganicResults))
	for _, r := range resp.OrganicResults {
		items = append(items, rawItem{title: r.Title, url: r.Link, snippet: r.Snippet})
	}
	return s.collect(items, maxResults), nil
}
