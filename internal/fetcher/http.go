// CLAUDE:SUMMARY Bundled HTTP fetcher: direct, wayback, jina, proxy, ua_rotation, brave strategies over net/http.
package fetcher

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/hazyhaar/repeche/horosafe"
)

// rotatedUserAgents is the pool for the ua_rotation strategy: common browser
// User-Agents that bypass naive bot blocking.
var rotatedUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0",
}

// HTTPConfig configures the bundled HTTP fetcher.
type HTTPConfig struct {
	Timeout   time.Duration // per attempt. Default: 60s.
	MaxBytes  int64         // response body cap. Default: 10MB.
	UserAgent string        // default User-Agent for the direct strategy.

	// ProxyURL enables the proxy strategy. Empty = proxy attempts fail
	// terminally with an explanatory error.
	ProxyURL string

	// BraveAPIKey enables the brave strategy (cached-page lookup through the
	// Brave Search API). Empty = brave attempts fail terminally.
	BraveAPIKey string

	// URLValidator rejects URLs before any request (SSRF prevention).
	// Default: horosafe.ValidateURL.
	URLValidator func(string) error
}

func (c *HTTPConfig) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = 60 * time.Second
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = 10 * 1024 * 1024
	}
	if c.UserAgent == "" {
		c.UserAgent = "repeche/1.0"
	}
	if c.URLValidator == nil {
		c.URLValidator = horosafe.ValidateURL
	}
}

// HTTPFetcher implements the non-browser strategies over net/http. Safe for
// concurrent use; batch exhaustion shares one instance across goroutines.
type HTTPFetcher struct {
	client      *http.Client
	proxyClient *http.Client
	config      HTTPConfig
	rotation    atomic.Int64

	// Endpoint bases, overridable in tests.
	waybackAPI string
	braveAPI   string
	jinaBase   string
}

// NewHTTP creates an HTTPFetcher.
func NewHTTP(cfg HTTPConfig) (*HTTPFetcher, error) {
	cfg.defaults()
	validate := cfg.URLValidator
	redirectCap := func(req *http.Request, via []*http.Request) error {
		if len(via) >= 5 {
			return fmt.Errorf("too many redirects (%d)", len(via))
		}
		if err := validate(req.URL.String()); err != nil {
			return fmt.Errorf("redirect blocked: %w", err)
		}
		return nil
	}

	f := &HTTPFetcher{
		client: &http.Client{
			Timeout:       cfg.Timeout,
			CheckRedirect: redirectCap,
		},
		config:     cfg,
		waybackAPI: "https://archive.org/wayback/available?url=",
		braveAPI:   "https://api.search.brave.com/res/v1/web/search",
		jinaBase:   "https://r.jina.ai/",
	}

	if cfg.ProxyURL != "" {
		proxyURL, err := url.Parse(cfg.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("fetcher: invalid proxy url: %w", err)
		}
		f.proxyClient = &http.Client{
			Timeout:       cfg.Timeout,
			CheckRedirect: redirectCap,
			Transport:     &http.Transport{Proxy: http.ProxyURL(proxyURL)},
		}
	}
	return f, nil
}

// Fetch retrieves rawURL with the strategy named in opts.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string, opts Options) (*Response, error) {
	if err := f.config.URLValidator(rawURL); err != nil {
		return nil, fmt.Errorf("url blocked: %w", err)
	}

	switch opts.Strategy {
	case StrategyDirect, "":
		return f.get(ctx, rawURL, rawURL, opts, nil)

	case StrategyUARotation:
		n := f.rotation.Add(1) - 1
		ua := rotatedUserAgents[int(n)%len(rotatedUserAgents)]
		return f.get(ctx, rawURL, rawURL, opts, map[string]string{"User-Agent": ua})

	case StrategyWayback:
		return f.wayback(ctx, rawURL, opts)

	case StrategyJina:
		// r.jina.ai renders the page server-side and returns readable text.
		return f.get(ctx, rawURL, f.jinaBase+rawURL, opts, nil)

	case StrategyProxy:
		if f.proxyClient == nil {
			return &Response{Verdict: VerdictError, Error: "no proxy configured"}, nil
		}
		return f.getWith(ctx, f.proxyClient, rawURL, rawURL, opts, nil)

	case StrategyBrave:
		return f.brave(ctx, rawURL, opts)

	default:
		return &Response{Verdict: VerdictError,
			Error: fmt.Sprintf("strategy %q not supported by http fetcher", opts.Strategy)}, nil
	}
}

func (f *HTTPFetcher) get(ctx context.Context, origURL, reqURL string, opts Options, extraHeaders map[string]string) (*Response, error) {
	return f.getWith(ctx, f.client, origURL, reqURL, opts, extraHeaders)
}

func (f *HTTPFetcher) getWith(ctx context.Context, client *http.Client, origURL, reqURL string, opts Options, extraHeaders map[string]string) (*Response, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = f.config.Timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}

	ua := opts.UserAgent
	if ua == "" {
		ua = f.config.UserAgent
	}
	req.Header.Set("User-Agent", ua)
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}
	for k, v := range extraHeaders {
		req.Header.Set(k, v)
	}
	for name, value := range opts.Cookies {
		req.AddCookie(&http.Cookie{Name: name, Value: value})
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.config.MaxBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	out := &Response{
		StatusCode:    resp.StatusCode,
		ContentLength: int64(len(body)),
		Verdict:       VerdictForStatus(resp.StatusCode),
	}
	if out.Verdict == VerdictOK && len(body) == 0 {
		out.Verdict = VerdictEmpty
	}
	if out.Verdict != VerdictOK {
		out.Error = fmt.Sprintf("http %d", resp.StatusCode)
		return out, nil
	}

	if opts.OutputDir != "" {
		path, err := saveBody(opts.OutputDir, origURL, resp.Header.Get("Content-Type"), body)
		if err != nil {
			return nil, fmt.Errorf("save body: %w", err)
		}
		out.FilePath = path
	}
	return out, nil
}

// wayback fetches the most recent archived snapshot of rawURL via the
// availability API, then retrieves the snapshot itself.
func (f *HTTPFetcher) wayback(ctx context.Context, rawURL string, opts Options) (*Response, error) {
	availURL := f.waybackAPI + url.QueryEscape(rawURL)
	snapshot, err := f.readSnapshotURL(ctx, availURL, opts)
	if err != nil {
		return nil, err
	}
	if snapshot == "" {
		return &Response{Verdict: VerdictEmpty, Error: "no archived snapshot"}, nil
	}
	return f.get(ctx, rawURL, snapshot, opts, nil)
}

func (f *HTTPFetcher) readSnapshotURL(ctx context.Context, availURL string, opts Options) (string, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = f.config.Timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, availURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("wayback availability: %w", err)
	}
	defer resp.Body.Close()

	var payload struct {
		ArchivedSnapshots struct {
			Closest struct {
				Available bool   `json:"available"`
				URL       string `json:"url"`
			} `json:"closest"`
		} `json:"archived_snapshots"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&payload); err != nil {
		return "", fmt.Errorf("wayback availability: decode: %w", err)
	}
	if !payload.ArchivedSnapshots.Closest.Available {
		return "", nil
	}
	return payload.ArchivedSnapshots.Closest.URL, nil
}

// brave looks the URL up through the Brave Search API and fetches the best
// matching result. One request per second per key is the API's limit; the
// engine's sequential attempt loop keeps us under it.
func (f *HTTPFetcher) brave(ctx context.Context, rawURL string, opts Options) (*Response, error) {
	if f.config.BraveAPIKey == "" {
		return &Response{Verdict: VerdictError, Error: "no brave api key configured"}, nil
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = f.config.Timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	q := url.Values{}
	q.Set("q", rawURL)
	q.Set("count", "3")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		f.braveAPI+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", f.config.BraveAPIKey)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("brave search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &Response{StatusCode: resp.StatusCode,
			Verdict: VerdictForStatus(resp.StatusCode),
			Error:   fmt.Sprintf("brave search http %d", resp.StatusCode)}, nil
	}

	var payload struct {
		Web struct {
			Results []struct {
				URL string `json:"url"`
			} `json:"results"`
		} `json:"web"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&payload); err != nil {
		return nil, fmt.Errorf("brave search: decode: %w", err)
	}
	if len(payload.Web.Results) == 0 {
		return &Response{Verdict: VerdictEmpty, Error: "no brave results"}, nil
	}
	return f.get(ctx, rawURL, payload.Web.Results[0].URL, opts, nil)
}

// saveBody persists a retrieved body under dir with a content-addressed name.
func saveBody(dir, rawURL, contentType string, body []byte) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	h := sha256.Sum256([]byte(rawURL))
	name := fmt.Sprintf("%x%s", h[:8], extensionFor(rawURL, contentType))
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func extensionFor(rawURL, contentType string) string {
	if u, err := url.Parse(rawURL); err == nil {
		if ext := filepath.Ext(u.Path); ext != "" && len(ext) <= 5 {
			return ext
		}
	}
	switch {
	case strings.Contains(contentType, "pdf"):
		return ".pdf"
	case strings.Contains(contentType, "html"):
		return ".html"
	case strings.Contains(contentType, "json"):
		return ".json"
	case strings.Contains(contentType, "text"):
		return ".txt"
	}
	return ".bin"
}
