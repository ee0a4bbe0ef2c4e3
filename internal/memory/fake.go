// CLAUDE:SUMMARY In-memory Memory fake for tests: substring recall, optional injected failures.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Fake is an in-memory Memory for tests. Recall matches items whose problem
// or tags contain the query as a substring. Set FailRecall/FailLearn to
// simulate an unavailable store.
type Fake struct {
	mu         sync.Mutex
	items      map[string]Item // keyed by problem (last-write-wins)
	order      []string
	FailRecall error
	FailLearn  error
}

// NewFake creates an empty Fake.
func NewFake() *Fake {
	return &Fake{items: make(map[string]Item)}
}

// Recall returns items whose problem or tag list contains any term of the
// query, mirroring the OR semantics of the full-text implementation.
func (f *Fake) Recall(_ context.Context, query string) (*RecallResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailRecall != nil {
		return nil, f.FailRecall
	}
	terms := strings.Fields(query)
	var out []Item
	for _, problem := range f.order {
		it := f.items[problem]
		haystack := it.Problem + " " + strings.Join(it.Tags, " ")
		for _, term := range terms {
			if strings.Contains(haystack, term) {
				out = append(out, it)
				break
			}
		}
	}
	return &RecallResult{Found: len(out) > 0, Items: out}, nil
}

// Learn stores a problem/solution pair, overwriting on the same problem.
func (f *Fake) Learn(_ context.Context, problem, solution string, tags []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailLearn != nil {
		return f.FailLearn
	}
	if _, exists := f.items[problem]; !exists {
		f.order = append(f.order, problem)
	}
	f.items[problem] = Item{
		Problem:  problem,
		Solution: solution,
		Tags:     tags,
		StoredAt: time.Now().UnixMilli(),
	}
	return nil
}

// Len reports the number of stored items.
func (f *Fake) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items)
}

// Get returns the item filed under problem, if any.
func (f *Fake) Get(problem string) (Item, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	it, ok := f.items[problem]
	return it, ok
}
