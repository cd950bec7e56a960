// Package model defines the data structures shared by the crawler, the
// fetchers, the report writers and the crawl archive.
//
// This package contains the following main types:
//   - Page: a fetched (optionally rendered) HTML document
//   - Visit: metadata recorded for every successfully fetched URL
//   - Failure: a URL that could not be fetched or processed
//   - CrawlResult: the outcome of a single crawl, including the ordered
//     list of visited URLs
//
// The models are serializable to JSON for report output and archive storage.
package model
