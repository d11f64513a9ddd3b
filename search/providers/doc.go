// Package providers contains the web-search adapters used by the search
// aggregator: Google Custom Search, Yandex XML, Bing Web Search and SerpAPI.
//
// Every adapter normalizes its provider's items into core.SearchResult,
// recomputing the source type from the URL, bounds each request with a
// timeout, and reports failures as *search.ProviderTimeoutError or
// *search.ProviderError. Adapters never retry.
package providers
