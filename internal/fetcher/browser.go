// CLAUDE:SUMMARY Rod-driven browser fetcher for the playwright strategy: stealth page, navigate, wait, persist HTML.
package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/hazyhaar/repeche/horosafe"
)

// BrowserConfig configures the browser fetcher.
type BrowserConfig struct {
	// RemoteURL is the WebSocket URL of an external Chrome. Empty = launch
	// a local headless Chrome via the rod launcher.
	RemoteURL string

	// Timeout bounds a full navigate+render. Default: 60s.
	Timeout time.Duration

	// URLValidator rejects URLs before navigation. Default: horosafe.ValidateURL.
	URLValidator func(string) error

	Logger *slog.Logger
}

func (c *BrowserConfig) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = 60 * time.Second
	}
	if c.URLValidator == nil {
		c.URLValidator = horosafe.ValidateURL
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// BrowserFetcher implements the playwright strategy with a headless Chrome
// driven through rod. The browser launches lazily on first use and is shared
// across attempts; rod serializes page creation internally.
type BrowserFetcher struct {
	config BrowserConfig

	mu      sync.Mutex
	browser *rod.Browser
	lnch    *launcher.Launcher
}

// NewBrowser creates a BrowserFetcher. Chrome is not launched until the
// first Fetch call.
func NewBrowser(cfg BrowserConfig) *BrowserFetcher {
	cfg.defaults()
	return &BrowserFetcher{config: cfg}
}

// Fetch navigates to rawURL in a stealth page and persists the rendered HTML.
func (b *BrowserFetcher) Fetch(ctx context.Context, rawURL string, opts Options) (*Response, error) {
	if err := b.config.URLValidator(rawURL); err != nil {
		return nil, fmt.Errorf("url blocked: %w", err)
	}

	browser, err := b.connect()
	if err != nil {
		return nil, err
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = b.config.Timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	page, err := stealth.Page(browser)
	if err != nil {
		return nil, fmt.Errorf("browser: create page: %w", err)
	}
	defer page.Close()
	page = page.Context(ctx)

	if ua := opts.UserAgent; ua != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: ua}); err != nil {
			b.config.Logger.Debug("browser: set user-agent failed", "error", err)
		}
	}

	if err := page.Navigate(rawURL); err != nil {
		return nil, fmt.Errorf("browser: navigate: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		b.config.Logger.Warn("browser: wait load timeout", "url", rawURL, "error", err)
	}
	// Give SPAs a moment to hydrate before reading the DOM.
	page.WaitRequestIdle(2*time.Second, nil, nil, nil)()

	html, err := page.HTML()
	if err != nil {
		return nil, fmt.Errorf("browser: read html: %w", err)
	}

	out := &Response{
		StatusCode:    200,
		ContentLength: int64(len(html)),
		Verdict:       VerdictOK,
	}
	if len(html) == 0 {
		out.Verdict = VerdictEmpty
		return out, nil
	}
	if opts.OutputDir != "" {
		path, err := saveBody(opts.OutputDir, rawURL, "text/html", []byte(html))
		if err != nil {
			return nil, fmt.Errorf("save body: %w", err)
		}
		out.FilePath = path
	}
	return out, nil
}

// connect launches or reuses the shared browser.
func (b *BrowserFetcher) connect() (*rod.Browser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.browser != nil {
		return b.browser, nil
	}

	wsURL := b.config.RemoteURL
	if wsURL == "" {
		l := launcher.New().
			Headless(true).
			Set("disable-blink-features", "AutomationControlled")
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("browser: launch: %w", err)
		}
		wsURL = u
		b.lnch = l
		b.config.Logger.Info("browser: launched local chrome")
	}

	browser := rod.New().ControlURL(wsURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("browser: connect: %w", err)
	}
	b.browser = browser
	return browser, nil
}

// Close shuts down the shared browser.
func (b *BrowserFetcher) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.browser == nil {
		return nil
	}
	err := b.browser.Close()
	if b.lnch != nil {
		b.lnch.Cleanup()
	}
	b.browser = nil
	return err
}
