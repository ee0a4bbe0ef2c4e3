package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
)

func allowAll(string) error { return nil }

func newTestFetcher(t *testing.T, cfg HTTPConfig) *HTTPFetcher {
	t.Helper()
	cfg.URLValidator = allowAll
	f, err := NewHTTP(cfg)
	if err != nil {
		t.Fatalf("NewHTTP: %v", err)
	}
	return f
}

func TestHTTPFetcher_DirectVerdicts(t *testing.T) {
	// WHAT: status codes map to verdicts: 200 ok, 403/429 blocked, 500 error.
	// WHY: the engine advances strategies based on the verdict, not the code.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			fmt.Fprint(w, "content here")
		case "/blocked":
			w.WriteHeader(403)
		case "/ratelimited":
			w.WriteHeader(429)
		default:
			w.WriteHeader(500)
		}
	}))
	defer srv.Close()
	f := newTestFetcher(t, HTTPConfig{})

	cases := []struct {
		path, verdict string
	}{
		{"/ok", VerdictOK},
		{"/blocked", VerdictBlocked},
		{"/ratelimited", VerdictBlocked},
		{"/boom", VerdictError},
	}
	for _, c := range cases {
		resp, err := f.Fetch(context.Background(), srv.URL+c.path, Options{Strategy: StrategyDirect})
		if err != nil {
			t.Fatalf("%s: %v", c.path, err)
		}
		if resp.Verdict != c.verdict {
			t.Errorf("%s: verdict = %q, want %q", c.path, resp.Verdict, c.verdict)
		}
	}
}

func TestHTTPFetcher_EmptyBodyVerdict(t *testing.T) {
	// WHAT: a 200 with an empty body is verdict "empty", not "ok".
	// WHY: SPA shells and soft-blocks often return blank 200s; treating
	// them as success would teach the store a useless strategy.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(200)
	}))
	defer srv.Close()
	f := newTestFetcher(t, HTTPConfig{})

	resp, err := f.Fetch(context.Background(), srv.URL+"/", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Verdict != VerdictEmpty {
		t.Errorf("verdict = %q, want empty", resp.Verdict)
	}
}

func TestHTTPFetcher_UARotation(t *testing.T) {
	// WHAT: successive ua_rotation attempts send different browser UAs.
	// WHY: rotating past a blocked UA is the strategy's entire value.
	var agents []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agents = append(agents, r.UserAgent())
		fmt.Fprint(w, "ok")
	}))
	defer srv.Close()
	f := newTestFetcher(t, HTTPConfig{})

	for i := 0; i < 2; i++ {
		if _, err := f.Fetch(context.Background(), srv.URL, Options{Strategy: StrategyUARotation}); err != nil {
			t.Fatal(err)
		}
	}
	if len(agents) != 2 || agents[0] == agents[1] {
		t.Errorf("agents = %v, want two distinct", agents)
	}
	for _, ua := range agents {
		if !strings.Contains(ua, "Mozilla") {
			t.Errorf("ua %q does not look like a browser", ua)
		}
	}
}

func TestHTTPFetcher_UARotationConcurrent(t *testing.T) {
	// WHAT: concurrent ua_rotation fetches against one shared fetcher all
	// complete and send browser UAs.
	// WHY: batch exhaustion runs many URLs through the same instance at
	// once; the rotation counter must survive that without a data race.
	var mu sync.Mutex
	var agents []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		agents = append(agents, r.UserAgent())
		mu.Unlock()
		fmt.Fprint(w, "ok")
	}))
	defer srv.Close()
	f := newTestFetcher(t, HTTPConfig{})

	const n = 8
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.Fetch(context.Background(), srv.URL, Options{Strategy: StrategyUARotation}); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatal(err)
	}

	if len(agents) != n {
		t.Fatalf("requests = %d, want %d", len(agents), n)
	}
	for _, ua := range agents {
		if !strings.Contains(ua, "Mozilla") {
			t.Errorf("ua %q does not look like a browser", ua)
		}
	}
}

func TestHTTPFetcher_Wayback(t *testing.T) {
	// WHAT: the wayback strategy resolves the availability API, then
	// fetches the snapshot URL.
	// WHY: two-step resolution is easy to break when refactoring.
	var snapshotHit bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/avail"):
			snapshot := fmt.Sprintf("http://%s/snapshot", r.Host)
			json.NewEncoder(w).Encode(map[string]any{
				"archived_snapshots": map[string]any{
					"closest": map[string]any{"available": true, "url": snapshot},
				},
			})
		case r.URL.Path == "/snapshot":
			snapshotHit = true
			fmt.Fprint(w, "archived content")
		default:
			w.WriteHeader(404)
		}
	}))
	defer srv.Close()

	f := newTestFetcher(t, HTTPConfig{})
	f.waybackAPI = srv.URL + "/avail?url="

	resp, err := f.Fetch(context.Background(), "https://gone.example/page", Options{Strategy: StrategyWayback})
	if err != nil {
		t.Fatal(err)
	}
	if !snapshotHit {
		t.Error("snapshot URL was never fetched")
	}
	if resp.Verdict != VerdictOK || resp.ContentLength == 0 {
		t.Errorf("resp = %+v", resp)
	}
}

func TestHTTPFetcher_WaybackNoSnapshot(t *testing.T) {
	// WHAT: no archived snapshot yields verdict "empty" without an error.
	// WHY: a clean non-timeout reply must advance the engine terminally.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"archived_snapshots": map[string]any{}})
	}))
	defer srv.Close()

	f := newTestFetcher(t, HTTPConfig{})
	f.waybackAPI = srv.URL + "/avail?url="

	resp, err := f.Fetch(context.Background(), "https://gone.example/page", Options{Strategy: StrategyWayback})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Verdict != VerdictEmpty {
		t.Errorf("verdict = %q, want empty", resp.Verdict)
	}
}

func TestHTTPFetcher_ProxyUnconfigured(t *testing.T) {
	// WHAT: the proxy strategy without a proxy fails terminally in-band.
	// WHY: a missing proxy should advance the engine, not retry forever.
	f := newTestFetcher(t, HTTPConfig{})
	resp, err := f.Fetch(context.Background(), "https://x.test/a", Options{Strategy: StrategyProxy})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Verdict != VerdictError || resp.Error == "" {
		t.Errorf("resp = %+v, want in-band error", resp)
	}
}

func TestHTTPFetcher_BraveResolvesFirstResult(t *testing.T) {
	// WHAT: brave queries the search API with the subscription token and
	// fetches the first result.
	// WHY: the strategy is a search-API detour, not a direct fetch.
	var gotToken string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/search":
			gotToken = r.Header.Get("X-Subscription-Token")
			target := fmt.Sprintf("http://%s/cached", r.Host)
			json.NewEncoder(w).Encode(map[string]any{
				"web": map[string]any{"results": []map[string]string{{"url": target}}},
			})
		case "/cached":
			fmt.Fprint(w, "cached page")
		default:
			w.WriteHeader(404)
		}
	}))
	defer srv.Close()

	f := newTestFetcher(t, HTTPConfig{BraveAPIKey: "test-key"})
	f.braveAPI = srv.URL + "/search"

	resp, err := f.Fetch(context.Background(), "https://blocked.example/doc", Options{Strategy: StrategyBrave})
	if err != nil {
		t.Fatal(err)
	}
	if gotToken != "test-key" {
		t.Errorf("token = %q", gotToken)
	}
	if resp.Verdict != VerdictOK {
		t.Errorf("verdict = %q", resp.Verdict)
	}
}

func TestHTTPFetcher_SavesBody(t *testing.T) {
	// WHAT: with an output dir, the body lands in a content-addressed file
	// and the response carries its path.
	// WHY: downstream health checks read the file, not the response.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "saved content")
	}))
	defer srv.Close()
	f := newTestFetcher(t, HTTPConfig{})

	dir := t.TempDir()
	resp, err := f.Fetch(context.Background(), srv.URL+"/doc.html", Options{OutputDir: dir})
	if err != nil {
		t.Fatal(err)
	}
	if resp.FilePath == "" {
		t.Fatal("no file path")
	}
	data, err := os.ReadFile(resp.FilePath)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "saved content" {
		t.Errorf("file content = %q", data)
	}
	if !strings.HasSuffix(resp.FilePath, ".html") {
		t.Errorf("path %q lost its extension", resp.FilePath)
	}
}

func TestHTTPFetcher_ValidatorBlocks(t *testing.T) {
	// WHAT: a rejecting URL validator stops the request before any I/O.
	// WHY: SSRF prevention must run on every strategy entry point.
	f, err := NewHTTP(HTTPConfig{URLValidator: func(string) error {
		return fmt.Errorf("blocked by policy")
	}})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.Fetch(context.Background(), "https://internal/", Options{}); err == nil {
		t.Error("validator did not block the fetch")
	}
}
