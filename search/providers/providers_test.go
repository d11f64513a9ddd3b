package providers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/findorigin/core"
	"github.com/poiesic/findorigin/search"
)

func serve(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func stalled(w http.ResponseWriter, r *http.Request) {
	<-r.Context().Done()
}

func TestGoogle_Search(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "k", q.Get("key"))
		assert.Equal(t, "cx-id", q.Get("cx"))
		assert.Equal(t, "инфляция 2024", q.Get("q"))
		assert.Equal(t, "10", q.Get("num"))
		assert.Equal(t, userAgent, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items":[
			{"title":"Минфин","link":"https://minfin.gov.ru/a","snippet":"s1","kind":"news"},
			{"title":"broken","link":"not-a-url","snippet":"x"},
			{"title":"ТАСС","link":"https://tass.ru/b","snippet":""}
		]}`))
	})

	g := NewGoogle(GoogleCredentials{APIKey: "k", SearchEngineID: "cx-id"}, WithBaseURL(srv.URL))
	results, err := g.Search(context.Background(), "инфляция 2024", 50)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "Минфин", results[0].Title)
	assert.Equal(t, core.SourceTypeOfficial, results[0].SourceType)
	assert.Equal(t, core.SourceTypeNews, results[1].SourceType)
	assert.Equal(t, "", results[1].Snippet)
}

func TestGoogle_Eligibility(t *testing.T) {
	assert.False(t, NewGoogle(GoogleCredentials{APIKey: "k"}).Eligible())
	assert.False(t, NewGoogle(GoogleCredentials{SearchEngineID: "cx"}).Eligible())
	assert.True(t, NewGoogle(GoogleCredentials{APIKey: "k", SearchEngineID: "cx"}).Eligible())

	_, err := NewGoogle(GoogleCredentials{}).Search(context.Background(), "q", 5)
	assert.ErrorIs(t, err, search.ErrProviderNotConfigured)
}

func TestGoogle_ErrorStatus(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":403,"message":"Daily Limit Exceeded"}}`))
	})

	g := NewGoogle(GoogleCredentials{APIKey: "k", SearchEngineID: "cx"}, WithBaseURL(srv.URL))
	_, err := g.Search(context.Background(), "q", 5)
	require.Error(t, err)
	assert.ErrorIs(t, err, search.ErrProviderFailed)
	assert.NotErrorIs(t, err, search.ErrProviderTimeout)

	var perr *search.ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "google", perr.Provider)
	assert.Equal(t, http.StatusForbidden, perr.StatusCode)
	assert.Equal(t, "Daily Limit Exceeded", perr.Description)
}

func TestGoogle_Timeout(t *testing.T) {
	srv := serve(t, stalled)

	g := NewGoogle(GoogleCredentials{APIKey: "k", SearchEngineID: "cx"},
		WithBaseURL(srv.URL), WithTimeout(50*time.Millisecond))
	start := time.Now()
	_, err := g.Search(context.Background(), "q", 5)
	require.Error(t, err)
	assert.ErrorIs(t, err, search.ErrProviderTimeout)
	assert.Less(t, time.Since(start), 5*time.Second)

	var terr *search.ProviderTimeoutError
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, 50*time.Millisecond, terr.Timeout)
}

func TestGoogle_ZeroResultsAndMalformed(t *testing.T) {
	t.Run("zero results", func(t *testing.T) {
		srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"searchInformation":{"totalResults":"0"}}`))
		})
		g := NewGoogle(GoogleCredentials{APIKey: "k", SearchEngineID: "cx"}, WithBaseURL(srv.URL))
		results, err := g.Search(context.Background(), "q", 5)
		require.NoError(t, err)
		assert.NotNil(t, results)
		assert.Empty(t, results)
	})

	t.Run("malformed payload", func(t *testing.T) {
		srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`<html>oops</html>`))
		})
		g := NewGoogle(GoogleCredentials{APIKey: "k", SearchEngineID: "cx"}, WithBaseURL(srv.URL))
		_, err := g.Search(context.Background(), "q", 5)
		assert.ErrorIs(t, err, search.ErrProviderFailed)
	})
}

func TestYandex_XML(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "yk", q.Get("key"))
		assert.Equal(t, "folder", q.Get("folderid"))
		assert.Equal(t, "0", q.Get("page"))
		assert.Equal(t, "attr=d.mode=deep.groups-on-page=3", q.Get("groupby"))
		assert.Equal(t, "Api-Key yk", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "text/xml; charset=utf-8")
		_, _ = w.Write([]byte(`<?xml version="1.0" encoding="utf-8"?>
<yandexsearch version="1.0"><response><results><grouping>
<group><doc><url>https://ria.ru/20240101/news.html</url><title>Новость о <hlword>ценах</hlword></title>
<passages><passage>Цены выросли на <hlword>15%</hlword></passage></passages></doc></group>
<group><doc><url>https://example.com/page</url><title>Example &amp; Co</title><headline>Short headline</headline></doc></group>
<group><doc><title>no url</title></doc></group>
</grouping></results></response></yandexsearch>`))
	})

	y := NewYandex(YandexCredentials{APIKey: "yk", FolderID: "folder"}, WithBaseURL(srv.URL))
	results, err := y.Search(context.Background(), "цены", 3)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "Новость о ценах", results[0].Title)
	assert.Equal(t, "Цены выросли на 15%", results[0].Snippet)
	assert.Equal(t, core.SourceTypeNews, results[0].SourceType)
	assert.Equal(t, "Example & Co", results[1].Title)
	assert.Equal(t, "Short headline", results[1].Snippet)
}

func TestYandex_JSON(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.URL.Query().Get("folderid"))
		_, _ = w.Write([]byte(`{"results":[
			{"name":"Alt name","link":"https://habr.com/x","description":"d"},
			{"title":"T","url":"https://example.com","snippet":"s"}
		]}`))
	})

	y := NewYandex(YandexCredentials{APIKey: "yk"}, WithBaseURL(srv.URL))
	results, err := y.Search(context.Background(), "q", 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "Alt name", results[0].Title)
	assert.Equal(t, "https://habr.com/x", results[0].URL)
	assert.Equal(t, "d", results[0].Snippet)
	assert.Equal(t, core.SourceTypeBlog, results[0].SourceType)
}

func TestYandex_XMLErrors(t *testing.T) {
	t.Run("no results code", func(t *testing.T) {
		srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`<yandexsearch><response><error code="15">Sorry, there are no results for this search</error></response></yandexsearch>`))
		})
		y := NewYandex(YandexCredentials{APIKey: "yk"}, WithBaseURL(srv.URL))
		results, err := y.Search(context.Background(), "q", 10)
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("other error code", func(t *testing.T) {
		srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`<yandexsearch><response><error code="32">Limit exceeded</error></response></yandexsearch>`))
		})
		y := NewYandex(YandexCredentials{APIKey: "yk"}, WithBaseURL(srv.URL))
		_, err := y.Search(context.Background(), "q", 10)
		require.ErrorIs(t, err, search.ErrProviderFailed)
		assert.Contains(t, err.Error(), "Limit exceeded")
	})

	t.Run("gateway rejection", func(t *testing.T) {
		srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "old authorization type is not supported", http.StatusUnauthorized)
		})
		y := NewYandex(YandexCredentials{APIKey: "yk"}, WithBaseURL(srv.URL))
		_, err := y.Search(context.Background(), "q", 10)
		var perr *search.ProviderError
		require.True(t, errors.As(err, &perr))
		assert.Equal(t, http.StatusUnauthorized, perr.StatusCode)
		assert.Equal(t, "old authorization type is not supported", perr.Description)
	})
}

func TestBing_Search(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "bk", r.Header.Get("Ocp-Apim-Subscription-Key"))
		assert.Equal(t, "50", r.URL.Query().Get("count"))
		_, _ = w.Write([]byte(`{"webPages":{"value":[
			{"name":"BBC","url":"https://www.bbc.com/news/1","snippet":"story"}
		]}}`))
	})

	b := NewBing(BingCredentials{APIKey: "bk"}, WithBaseURL(srv.URL))
	results, err := b.Search(context.Background(), "q", 80)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "BBC", results[0].Title)
	assert.Equal(t, core.SourceTypeNews, results[0].SourceType)

	t.Run("no web pages", func(t *testing.T) {
		srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"_type":"SearchResponse"}`))
		})
		b := NewBing(BingCredentials{APIKey: "bk"}, WithBaseURL(srv.URL))
		results, err := b.Search(context.Background(), "q", 10)
		require.NoError(t, err)
		assert.Empty(t, results)
	})
}

func TestSerpAPI_Search(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "sk", q.Get("api_key"))
		assert.Equal(t, "google", q.Get("engine"))
		assert.Equal(t, "2", q.Get("num"))
		_, _ = w.Write([]byte(`{"organic_results":[
			{"position":1,"title":"A","link":"https://arxiv.org/abs/1","snippet":"a"},
			{"position":2,"title":"B","link":"https://example.com/b","snippet":"b"},
			{"position":3,"title":"C","link":"https://example.com/c","snippet":"c"}
		]}`))
	})

	s := NewSerpAPI(SerpAPICredentials{APIKey: "sk"}, WithBaseURL(srv.URL))
	results, err := s.Search(context.Background(), "q", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, core.SourceTypeResearch, results[0].SourceType)
	assert.Equal(t, "B", results[1].Title)
}

func TestSerpAPI_Errors(t *testing.T) {
	t.Run("invalid key", func(t *testing.T) {
		srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"Invalid API key."}`))
		})
		s := NewSerpAPI(SerpAPICredentials{APIKey: "sk"}, WithBaseURL(srv.URL))
		_, err := s.Search(context.Background(), "q", 5)
		var perr *search.ProviderError
		require.True(t, errors.As(err, &perr))
		assert.Equal(t, "Invalid API key.", perr.Description)
	})

	t.Run("empty page reported as error string", func(t *testing.T) {
		srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"error":"Google hasn't returned any results for this query."}`))
		})
		s := NewSerpAPI(SerpAPICredentials{APIKey: "sk"}, WithBaseURL(srv.URL))
		results, err := s.Search(context.Background(), "q", 5)
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("account error with 200", func(t *testing.T) {
		srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"error":"Your account has run out of searches."}`))
		})
		s := NewSerpAPI(SerpAPICredentials{APIKey: "sk"}, WithBaseURL(srv.URL))
		_, err := s.Search(context.Background(), "q", 5)
		assert.ErrorIs(t, err, search.ErrProviderFailed)
	})
}

func TestChain_Order(t *testing.T) {
	chain := Chain(Credentials{
		Yandex: YandexCredentials{APIKey: "y"},
		Bing:   BingCredentials{APIKey: "b"},
	})
	names := make([]string, 0, len(chain))
	eligible := make([]bool, 0, len(chain))
	for _, p := range chain {
		names = append(names, p.Name())
		eligible = append(eligible, p.Eligible())
	}
	assert.Equal(t, []string{"google", "yandex", "bing", "serpapi"}, names)
	assert.Equal(t, []bool{false, true, true, false}, eligible)
}

func TestDescribeFailure(t *testing.T) {
	assert.Equal(t, "empty response", describeFailure(nil))
	assert.Equal(t, "nested", describeFailure([]byte(`{"error":{"message":"nested"}}`)))
	assert.Equal(t, "flat", describeFailure([]byte(`{"error":"flat"}`)))
	assert.Equal(t, "plain text", describeFailure([]byte("  plain text \n")))
}
