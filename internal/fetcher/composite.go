package fetcher

import (
	"context"
	"log/slog"

	"github.com/nao1215/scopecrawl/internal/model"
)

// Composite fetches with a primary Fetcher and retries failed URLs with a
// fallback, typically a renderer backed by plain HTTP.
type Composite struct {
	primary  Fetcher
	fallback Fetcher
	logger   *slog.Logger
}

// NewComposite creates a Composite. A nil fallback disables fallback.
func NewComposite(primary, fallback Fetcher, logger *slog.Logger) *Composite {
	if logger == nil {
		logger = slog.Default()
	}
	return &Composite{primary: primary, fallback: fallback, logger: logger}
}

// Fetch implements Fetcher.
func (c *Composite) Fetch(ctx context.Context, url string) (*model.Page, error) {
	page, err := c.primary.Fetch(ctx, url)
	if err == nil || c.fallback == nil || ctx.Err() != nil {
		return page, err
	}

	c.logger.Warn("primary fetcher failed, falling back", "url", url, "error", err)
	return c.fallback.Fetch(ctx, url)
}
