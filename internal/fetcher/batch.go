package fetcher

import (
	"context"
	"sync"

	"github.com/nao1215/scopecrawl/internal/model"
	"golang.org/x/sync/errgroup"
)

// Result is the outcome of fetching one URL in a batch.
// Exactly one of Page and Err is set.
type Result struct {
	URL  string
	Page *model.Page
	Err  error
}

// Batch fetches urls with at most limit concurrent fetches and returns one
// Result per URL in completion order. Failures never cancel the other
// fetches; cancelling ctx does, and the affected URLs get ctx's error.
func Batch(ctx context.Context, f Fetcher, urls []string, limit int) []Result {
	if limit <= 0 {
		limit = 1
	}

	var (
		mu      sync.Mutex
		results = make([]Result, 0, len(urls))
	)

	var g errgroup.Group
	g.SetLimit(limit)

	for _, u := range urls {
		g.Go(func() error {
			res := Result{URL: u}
			if err := ctx.Err(); err != nil {
				res.Err = &FetchError{URL: u, Err: err}
			} else {
				page, err := f.Fetch(ctx, u)
				switch {
				case err != nil:
					res.Err = wrap(u, err)
				case page == nil:
					res.Err = &FetchError{URL: u, Err: ErrNoPage}
				default:
					res.Page = page
				}
			}

			mu.Lock()
			results = append(results, res)
			mu.Unlock()
			return nil
		})
	}

	_ = g.Wait() //nolint:errcheck // workers never return errors
	return results
}
