// CLAUDE:SUMMARY Subprocess fetcher and video retriever: JSON over stdin/stdout to sibling fetch tools.
package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
	"time"
)

// ExecFetcher shells out to a sibling fetch tool. The request carries the
// URL and the strategy options flattened into the tool's flag vocabulary:
// playwright maps to a force-headless-browser flag, wayback to a use-archive
// flag, and so on.
type ExecFetcher struct {
	command string
	args    []string
	logger  *slog.Logger
}

// NewExec creates an ExecFetcher invoking command with base args.
func NewExec(command string, args []string, logger *slog.Logger) *ExecFetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExecFetcher{command: command, args: args, logger: logger}
}

type execRequest struct {
	URL       string            `json:"url"`
	Strategy  string            `json:"strategy"`
	Headers   map[string]string `json:"headers,omitempty"`
	Cookies   map[string]string `json:"cookies,omitempty"`
	UserAgent string            `json:"user_agent,omitempty"`
	OutputDir string            `json:"output_dir,omitempty"`

	// Strategy-specific flags, 1:1 with the strategy name.
	HeadlessBrowser bool `json:"headless_browser,omitempty"`
	UseArchive      bool `json:"use_archive,omitempty"`
	UseProxy        bool `json:"use_proxy,omitempty"`
	RotateUA        bool `json:"rotate_ua,omitempty"`
}

// Fetch invokes the tool once and decodes its Response reply.
func (f *ExecFetcher) Fetch(ctx context.Context, url string, opts Options) (*Response, error) {
	req := execRequest{
		URL:             url,
		Strategy:        opts.Strategy,
		Headers:         opts.Headers,
		Cookies:         opts.Cookies,
		UserAgent:       opts.UserAgent,
		OutputDir:       opts.OutputDir,
		HeadlessBrowser: opts.Strategy == StrategyPlaywright,
		UseArchive:      opts.Strategy == StrategyWayback,
		UseProxy:        opts.Strategy == StrategyProxy,
		RotateUA:        opts.Strategy == StrategyUARotation,
	}
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}
	return runTool(ctx, f.command, append(append([]string{}, f.args...), "fetch"), req, f.logger)
}

// ExecVideoRetriever shells out to a sibling transcript-extraction tool for
// video-platform URLs.
type ExecVideoRetriever struct {
	command string
	args    []string
	timeout time.Duration
	logger  *slog.Logger
}

// NewExecVideo creates an ExecVideoRetriever. Timeout default: 120s —
// transcript extraction is slower than a page fetch.
func NewExecVideo(command string, args []string, timeout time.Duration, logger *slog.Logger) *ExecVideoRetriever {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ExecVideoRetriever{command: command, args: args, timeout: timeout, logger: logger}
}

// Retrieve extracts the transcript/content for a video URL.
func (v *ExecVideoRetriever) Retrieve(ctx context.Context, url, outputDir string) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()
	req := map[string]string{"url": url, "output_dir": outputDir}
	return runTool(ctx, v.command, append(append([]string{}, v.args...), "transcript"), req, v.logger)
}

func runTool(ctx context.Context, command string, args []string, req any, logger *slog.Logger) (*Response, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("fetch tool: encode request: %w", err)
	}

	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Stdin = bytes.NewReader(payload)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			// Surface the deadline so the engine classifies this as transient.
			return nil, fmt.Errorf("fetch tool: %w", ctx.Err())
		}
		logger.Debug("fetch tool failed", "error", err, "stderr", stderr.String())
		return nil, fmt.Errorf("fetch tool: %w", err)
	}

	var resp Response
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return nil, fmt.Errorf("fetch tool: decode reply: %w", err)
	}
	if resp.Verdict == "" {
		resp.Verdict = VerdictForStatus(resp.StatusCode)
	}
	return &resp, nil
}
