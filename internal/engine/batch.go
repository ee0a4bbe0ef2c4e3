// CLAUDE:SUMMARY Bounded-concurrency batch exhaustion preserving input order.
package engine

import (
	"context"
	"sync"
)

// FetchBatch runs Exhaust for each URL under a bounded worker pool of size
// concurrency. Completion order is unspecified; the returned slice matches
// the input order. Each URL's exhaustion is independent — within one URL
// strategies stay strictly sequential.
func (e *Engine) FetchBatch(ctx context.Context, urls []string, concurrency int) []*Result {
	if concurrency <= 0 {
		concurrency = 3
	}
	results := make([]*Result, len(urls))
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for i, u := range urls {
		wg.Add(1)
		go func(i int, u string) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				results[i] = &Result{
					URL:             u,
					WinningStrategy: AllFailed,
					Attempts: []Attempt{{
						Strategy: "none",
						Verdict:  "cancelled",
						Error:    ctx.Err().Error(),
					}},
				}
				return
			}
			defer func() { <-sem }()
			results[i] = e.Exhaust(ctx, u)
		}(i, u)
	}
	wg.Wait()

	for i := range results {
		if results[i] != nil && results[i].FinalAttempt == nil && len(results[i].Attempts) > 0 {
			results[i].FinalAttempt = &results[i].Attempts[len(results[i].Attempts)-1]
		}
	}
	return results
}
