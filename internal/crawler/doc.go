// Package crawler implements the breadth-first crawl engine.
//
// # Architecture
//
// An Engine owns three pieces of state for the length of one crawl:
//
//   - the frontier, an insertion-ordered queue of URLs waiting to be fetched
//   - the seen set, every URL fetched successfully so far
//   - the result list, the seen URLs in the order they were visited
//
// A single coordinator goroutine mutates all three. Fetching is delegated
// to a fetcher.Fetcher; with more than one worker the coordinator hands a
// round of URLs to fetcher.Batch and applies the results as they come back.
// A URL never sits in the frontier and the seen set at the same time, and
// the seen set never grows past the visit budget.
//
// Links are read with the extract package and admitted by a scope.Filter
// built from the start URL. Optional glob patterns narrow the crawl to
// parts of the site.
//
// # Lifecycle
//
//	Idle -> Running -> Draining (budget reached) -> Done
//	                -> Exhausted (frontier empty) -> Done
//
// A wall-clock deadline or cancelled context also moves the engine to Done.
//
// # Usage
//
//	engine, err := crawler.New("https://example.com", fetcher.NewHTTPFetcher(),
//	    crawler.WithMaxSeenURLs(50),
//	    crawler.WithWorkers(4),
//	)
//	if err != nil {
//	    return err
//	}
//	result, err := engine.Crawl(ctx)
package crawler
