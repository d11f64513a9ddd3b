package providers

import "github.com/poiesic/findorigin/search"

// Credentials bundles the credentials of every supported provider.
type Credentials struct {
	Google  GoogleCredentials
	Yandex  YandexCredentials
	Bing    BingCredentials
	SerpAPI SerpAPICredentials
}

// Chain returns every adapter in fallback order: Google, Yandex, Bing, SerpAPI.
// Adapters without credentials are included; the aggregator skips them.
func Chain(creds Credentials, opts ...Option) []search.Provider {
	return []search.Provider{
		NewGoogle(creds.Google, opts...),
		NewYandex(creds.Yandex, opts...),
		NewBing(creds.Bing, opts...),
		NewSerpAPI(creds.SerpAPI, opts...),
	}
}
