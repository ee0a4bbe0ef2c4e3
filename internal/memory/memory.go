// CLAUDE:SUMMARY Memory capability contract: recall(query) and learn(problem, solution, tags).
// Package memory abstracts the persistent key/value memory capability.
//
// The capability speaks two verbs: recall, a fuzzy full-text query returning
// candidate items, and learn, which files a problem/solution pair under a
// tag list. This package ships a subprocess implementation for sibling
// memory tools and a SQLite implementation for standalone deployments.
package memory

import "context"

// Item is one recalled memory entry. Solution carries the opaque payload;
// this system never relies on structure beyond substring relevance.
type Item struct {
	ID       string   `json:"id,omitempty"`
	Problem  string   `json:"problem"`
	Solution string   `json:"solution"`
	Tags     []string `json:"tags,omitempty"`
	StoredAt int64    `json:"stored_at,omitempty"` // unix ms
}

// RecallResult is the recall verb's reply.
type RecallResult struct {
	Found bool   `json:"found"`
	Items []Item `json:"items"`
}

// Memory is the external memory capability.
//
// Both verbs are network/subprocess-bound; callers bound them with short
// context timeouts and degrade to no-ops when they fail.
type Memory interface {
	Recall(ctx context.Context, query string) (*RecallResult, error)
	Learn(ctx context.Context, problem, solution string, tags []string) error
}

// FetchLogger is an optional extension: implementations that can persist a
// per-attempt fetch log expose it here. Callers discover it by type
// assertion and treat every write as best-effort.
type FetchLogger interface {
	LogFetch(ctx context.Context, url, strategy string, statusCode int, verdict string, timingMs int64) error
}
