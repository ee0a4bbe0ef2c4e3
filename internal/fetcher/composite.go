// CLAUDE:SUMMARY Composite fetcher routing playwright attempts to the browser and all else to the HTTP fetcher.
package fetcher

import "context"

// Composite routes each attempt to the implementation that owns its
// strategy: playwright to the browser fetcher, everything else to the HTTP
// fetcher. Used when no external fetch tool is configured.
type Composite struct {
	HTTP    Fetcher
	Browser Fetcher
}

// Fetch dispatches on the strategy name.
func (c *Composite) Fetch(ctx context.Context, url string, opts Options) (*Response, error) {
	if opts.Strategy == StrategyPlaywright && c.Browser != nil {
		return c.Browser.Fetch(ctx, url, opts)
	}
	return c.HTTP.Fetch(ctx, url, opts)
}
