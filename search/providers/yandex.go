package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/poiesic/findorigin/analysis"
	"github.com/poiesic/findorigin/core"
	"github.com/poiesic/findorigin/search"
)

const (
	yandexEndpoint     = "https://yandex.ru/search/xml"
	yandexMaxPerPage   = 100
	yandexNoResultCode = "15"
)

// YandexCredentials is the Yandex Search API credential bundle.
// FolderID is optional.
type YandexCredentials struct {
	APIKey   string
	FolderID string
}

func (c YandexCredentials) Eligible() bool { return c.APIKey != "" }

// Yandex queries the Yandex XML search API. The service answers either with
// a JSON document carrying a results array or with the classic XML format.
type Yandex struct {
	client
	creds YandexCredentials
}

var _ search.Provider = (*Yandex)(nil)

// NewYandex creates a Yandex search adapter.
func NewYandex(creds YandexCredentials, opts ...Option) *Yandex {
	return &Yandex{client: newClient("yandex", yandexEndpoint, opts), creds: creds}
}

func (y *Yandex) Name() string   { return y.name }
func (y *Yandex) Eligible() bool { return y.creds.Eligible() }

func (y *Yandex) Search(ctx context.Context, query string, maxResults int) ([]*core.SearchResult, error) {
	if !y.Eligible() {
		return nil, search.ErrProviderNotConfigured
	}
	params := url.Values{}
	if y.creds.FolderID != "" {
		params.Set("folderid", y.creds.FolderID)
	}
	params.Set("key", y.creds.APIKey)
	params.Set("query", query)
	params.Set("page", "0")
	params.Set("groupby", fmt.Sprintf("attr=d.mode=deep.groups-on-page=%d", min(maxResults, yandexMaxPerPage)))

	header := http.Header{}
	header.Set("Accept", "application/xml, text/xml, application/json")
	header.Set("Authorization", "Api-Key "+y.creds.APIKey)

	body, err := y.get(ctx, params, header)
	if err != nil {
		return nil, err
	}

	var items []rawItem
	if looksLikeJSON(body) {
		items, err = y.parseJSON(body)
	} else {
		items, err = y.parseXML(body)
	}
	if err != nil {
		return nil, err
	}
	return y.collect(items, maxResults), nil
}

func (y *Yandex) parseJSON(body []byte) ([]rawItem, error) {
	var resp struct {
		Results []struct {
			Title       string `json:"title"`
			Name        string `json:"name"`
			URL         string `json:"url"`
			Link        string `json:"link"`
			Snippet     string `json:"snippet"`
			Description string `json:"description"`
		} `json:"results"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &search.ProviderError{Provider: y.name, Description: "malformed response", Err: err}
	}
	items := make([]rawItem, 0, len(resp.Results))
	for _, r := range resp.Results {
		items = append(items, rawItem{
			title:   firstNonEmpty(r.Title, r.Name),
			url:     firstNonEmpty(r.URL, r.Link),
			snippet: firstNonEmpty(r.Snippet, r.Description),
		})
	}
	return items, nil
}

type yandexMarkup struct {
	Inner string `xml:",innerxml"`
}

func (m yandexMarkup) text() string {
	return strings.TrimSpace(analysis.StripTags(m.Inner))
}

type yandexDoc struct {
	URL      string         `xml:"url"`
	Title    yandexMarkup   `xml:"title"`
	Headline yandexMarkup   `xml:"headline"`
	Passages []yandexMarkup `xml:"passages>passage"`
}

type yandexError struct {
	Code    string `xml:"code,attr"`
	Message string `xml:",chardata"`
}

// parseXML streams the document and decodes every <doc> element. An <error>
// element with the no-results code means an empty page.
func (y *Yandex) parseXML(body []byte) ([]rawItem, error) {
	dec := xml.NewDecoder(bytes.NewReader(body))
	dec.Strict = false

	var items []rawItem
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &search.ProviderError{Provider: y.name, Description: "malformed xml", Err: err}
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		switch start.Name.Local {
		case "error":
			var e yandexError
			if err := dec.DecodeElement(&e, &start); err != nil {
				return nil, &search.ProviderError{Provider: y.name, Description: "malformed xml", Err: err}
			}
			if e.Code == yandexNoResultCode {
				return []rawItem{}, nil
			}
			return nil, &search.ProviderError{Provider: y.name, Description: strings.TrimSpace(e.Code + " " + e.Message)}
		case "doc":
			var d yandexDoc
			if err := dec.DecodeElement(&d, &start); err != nil {
				return nil, &search.ProviderError{Provider: y.name, Description: "malformed xml", Err: err}
			}
			snippet := d.Headline.text()
			if len(d.Passages) > 0 {
				snippet = d.Passages[0].text()
			}
			items = append(items, rawItem{title: d.Title.text(), url: d.URL, snippet: snippet})
		}
	}
	return items, nil
}

func looksLikeJSON(body []byte) bool {
	trimmed := bytes.TrimSpace(body)
	return len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[')
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
