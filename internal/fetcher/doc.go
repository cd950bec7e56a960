// Package fetcher provides the page fetch capability the crawl engine
// depends on.
//
// A Fetcher turns a URL into a *model.Page holding HTML. Three
// implementations are provided:
//
//   - HTTPFetcher downloads pages with net/http, decoding gzip, deflate and
//     brotli bodies and rejecting non-2xx and non-HTML responses.
//   - ChromedpRenderer loads pages in a shared headless Chrome session and
//     exports the rendered DOM.
//   - Composite tries a primary fetcher and falls back to a secondary one.
//
// Batch fetches several URLs concurrently with a bounded number of workers.
//
// Every failure is returned as a *FetchError carrying the URL.
package fetcher
