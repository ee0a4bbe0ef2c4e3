// CLAUDE:SUMMARY Fetcher capability contract: per-strategy options, categorical verdicts, Response shape.
// Package fetcher abstracts the byte-level retrieval capability.
//
// The engine never fetches directly: it invokes a Fetcher with the URL and
// the options for one named strategy, and interprets the categorical verdict
// in the reply. Implementations: a subprocess bridge to a sibling fetch
// tool, a bundled HTTP fetcher, and a rod-driven browser fetcher.
package fetcher

import (
	"context"
	"time"
)

// The fixed strategy vocabulary. StrategyYoutube is a hard-coded
// specialization for video-platform hosts, not part of the generic order.
const (
	StrategyDirect     = "direct"
	StrategyPlaywright = "playwright"
	StrategyWayback    = "wayback"
	StrategyBrave      = "brave"
	StrategyJina       = "jina"
	StrategyProxy      = "proxy"
	StrategyUARotation = "ua_rotation"
	StrategyYoutube    = "youtube"
)

// Categorical verdicts reported by fetchers. Only VerdictOK declares success.
const (
	VerdictOK      = "ok"
	VerdictBlocked = "blocked"
	VerdictEmpty   = "empty"
	VerdictError   = "error"
	VerdictUnknown = "unknown"
)

// Options carries the strategy name and per-strategy knobs for one attempt.
// Strategy-specific behavior maps 1:1 to the name: "playwright" forces a
// headless browser, "wayback" goes through the web archive, "ua_rotation"
// swaps the User-Agent, and so on.
type Options struct {
	Strategy  string
	Headers   map[string]string
	Cookies   map[string]string
	UserAgent string

	// Timeout bounds the whole attempt. Zero means the implementation default.
	Timeout time.Duration

	// OutputDir, when set, asks the fetcher to persist retrieved content
	// there and report the file path.
	OutputDir string
}

// Response is one attempt's raw outcome.
type Response struct {
	StatusCode    int    `json:"status_code"`
	Verdict       string `json:"verdict"`
	ContentLength int64  `json:"content_length"`
	FilePath      string `json:"file_path,omitempty"`
	Error         string `json:"error,omitempty"`
}

// Fetcher retrieves one URL with one strategy's options.
//
// A returned error means the attempt itself failed (transport error,
// timeout, tool crash); protocol-level failures arrive as a Response with a
// non-ok verdict. Timeout-like errors are retried by the engine, anything
// else is terminal for the strategy.
type Fetcher interface {
	Fetch(ctx context.Context, url string, opts Options) (*Response, error)
}

// VideoRetriever extracts content from video-platform URLs. It is one
// strategy among many, consulted first for recognized video hosts.
type VideoRetriever interface {
	Retrieve(ctx context.Context, url string, outputDir string) (*Response, error)
}

// VerdictForStatus maps an HTTP status to a categorical verdict for
// responses without a more specific signal.
func VerdictForStatus(status int) string {
	switch {
	case status == 0:
		return VerdictUnknown
	case status == 401 || status == 403 || status == 429:
		return VerdictBlocked
	case status >= 200 && status < 300:
		return VerdictOK
	default:
		return VerdictError
	}
}
