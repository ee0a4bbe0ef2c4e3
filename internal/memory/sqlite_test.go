package memory

import (
	"context"
	"path/filepath"
	"testing"
)

func openTestMemory(t *testing.T) *SQLiteMemory {
	t.Helper()
	m, err := OpenSQLite(filepath.Join(t.TempDir(), "memory.db"), nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m
}

func TestSQLiteMemory_LearnAndRecall(t *testing.T) {
	// WHAT: a stored problem/solution pair comes back from a term query.
	// WHY: the strategy store depends on full-text recall, not keyed reads.
	m := openTestMemory(t)
	ctx := context.Background()

	if err := m.Learn(ctx, "fetch strategy for example.com/*", `{"domain":"example.com"}`, []string{"example.com", "fetch_strategy"}); err != nil {
		t.Fatalf("learn: %v", err)
	}

	res, err := m.Recall(ctx, "example.com")
	if err != nil {
		t.Fatalf("recall: %v", err)
	}
	if !res.Found || len(res.Items) != 1 {
		t.Fatalf("recall = %+v, want 1 item", res)
	}
	it := res.Items[0]
	if it.Solution != `{"domain":"example.com"}` {
		t.Errorf("solution = %q", it.Solution)
	}
	if len(it.Tags) != 2 || it.Tags[0] != "example.com" {
		t.Errorf("tags = %v", it.Tags)
	}
	if it.ID == "" || it.StoredAt == 0 {
		t.Errorf("item missing id/timestamp: %+v", it)
	}
}

func TestSQLiteMemory_SameProblemOverwrites(t *testing.T) {
	// WHAT: learning the same problem twice keeps one row with the latest
	// solution.
	// WHY: record identity is the problem text; updates are last-write-wins.
	m := openTestMemory(t)
	ctx := context.Background()

	m.Learn(ctx, "fetch strategy for x.test/*", "old", nil)
	m.Learn(ctx, "fetch strategy for x.test/*", "new", nil)

	res, err := m.Recall(ctx, "x.test")
	if err != nil {
		t.Fatalf("recall: %v", err)
	}
	if len(res.Items) != 1 {
		t.Fatalf("items = %d, want 1", len(res.Items))
	}
	if res.Items[0].Solution != "new" {
		t.Errorf("solution = %q, want new", res.Items[0].Solution)
	}
}

func TestSQLiteMemory_RecallMiss(t *testing.T) {
	// WHAT: a query matching nothing returns found=false, not an error.
	// WHY: an empty store is a normal state on first run.
	m := openTestMemory(t)

	res, err := m.Recall(context.Background(), "nothing-here")
	if err != nil {
		t.Fatalf("recall: %v", err)
	}
	if res.Found || len(res.Items) != 0 {
		t.Errorf("recall = %+v, want empty miss", res)
	}
}

func TestSQLiteMemory_FetchLog(t *testing.T) {
	// WHAT: LogFetch appends rows without touching recall results.
	// WHY: the fetch log is observability only; it must never surface as a
	// memory item.
	m := openTestMemory(t)
	ctx := context.Background()

	if err := m.LogFetch(ctx, "https://example.com/a", "direct", 403, "blocked", 120); err != nil {
		t.Fatalf("log fetch: %v", err)
	}
	if err := m.LogFetch(ctx, "https://example.com/a", "wayback", 200, "ok", 340); err != nil {
		t.Fatalf("log fetch: %v", err)
	}

	var n int
	if err := m.db.QueryRow(`SELECT COUNT(*) FROM fetch_log WHERE url = ?`, "https://example.com/a").Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 2 {
		t.Errorf("fetch_log rows = %d, want 2", n)
	}

	res, err := m.Recall(ctx, "example.com")
	if err != nil {
		t.Fatalf("recall: %v", err)
	}
	if res.Found {
		t.Errorf("fetch log leaked into recall: %+v", res)
	}
}

func TestSQLiteMemory_MultiTermQuery(t *testing.T) {
	// WHAT: a multi-term query matches items containing any term.
	// WHY: the strategy store queries "<domain> fetch_strategy" and
	// filters locally.
	m := openTestMemory(t)
	ctx := context.Background()

	m.Learn(ctx, "fetch strategy for a.test/x", "a", []string{"a.test", "fetch_strategy"})
	m.Learn(ctx, "grocery list", "milk", nil)

	res, err := m.Recall(ctx, "a.test fetch_strategy")
	if err != nil {
		t.Fatalf("recall: %v", err)
	}
	if len(res.Items) != 1 || res.Items[0].Solution != "a" {
		t.Errorf("recall = %+v, want just the strategy item", res)
	}
}
