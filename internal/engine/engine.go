// CLAUDE:SUMMARY Strategy Engine: learned-first ordering, sequential exhaustion with retries, learning and health notification.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/hazyhaar/repeche/internal/fetcher"
	"github.com/hazyhaar/repeche/internal/health"
	"github.com/hazyhaar/repeche/internal/memory"
	"github.com/hazyhaar/repeche/internal/strategy"
)

// DefaultOrder is the fallback strategy sequence when nothing was learned
// for a URL.
var DefaultOrder = []string{
	fetcher.StrategyDirect,
	fetcher.StrategyPlaywright,
	fetcher.StrategyWayback,
	fetcher.StrategyBrave,
	fetcher.StrategyJina,
	fetcher.StrategyProxy,
	fetcher.StrategyUARotation,
}

// videoHosts are platforms handled by the video retriever before any
// generic strategy runs.
var videoHosts = map[string]bool{
	"youtube.com": true,
	"youtu.be":    true,
	"vimeo.com":   true,
}

// Config configures the Engine.
type Config struct {
	// Strategies overrides the default try-order. Every name must belong to
	// the fixed vocabulary; unknown names fail construction.
	Strategies []string

	// MaxRetries is the number of attempts per strategy. Default: 2.
	MaxRetries int

	// AttemptTimeout bounds one generic fetch attempt. Default: 60s.
	AttemptTimeout time.Duration

	// OutputDir is where fetchers persist retrieved content.
	OutputDir string
}

func (c *Config) defaults() {
	if len(c.Strategies) == 0 {
		c.Strategies = DefaultOrder
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 2
	}
	if c.AttemptTimeout <= 0 {
		c.AttemptTimeout = 60 * time.Second
	}
}

var knownStrategies = map[string]bool{
	fetcher.StrategyDirect:     true,
	fetcher.StrategyPlaywright: true,
	fetcher.StrategyWayback:    true,
	fetcher.StrategyBrave:      true,
	fetcher.StrategyJina:       true,
	fetcher.StrategyProxy:      true,
	fetcher.StrategyUARotation: true,
	fetcher.StrategyYoutube:    true,
}

// Engine tries strategies for a URL in a principled order. Fetch failures
// are data, never errors: every outcome comes back as a Result.
type Engine struct {
	fetch    fetcher.Fetcher
	video    fetcher.VideoRetriever
	store    *strategy.Store
	notifier health.Notifier
	fetchLog memory.FetchLogger
	logger   *slog.Logger
	config   Config

	// checkFile is health.CheckFile, injectable in tests.
	checkFile func(string) []string
}

// New creates an Engine. The store, video retriever and notifier are
// optional; fetch is not. Unknown strategy names in cfg are a construction
// error — the only hard error this package produces.
func New(fetch fetcher.Fetcher, st *strategy.Store, cfg Config, logger *slog.Logger, opts ...Option) (*Engine, error) {
	if fetch == nil {
		return nil, fmt.Errorf("engine: fetcher is required")
	}
	cfg.defaults()
	for _, name := range cfg.Strategies {
		if !knownStrategies[name] {
			return nil, fmt.Errorf("engine: unknown strategy %q", name)
		}
	}
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		fetch:     fetch,
		store:     st,
		logger:    logger,
		config:    cfg,
		checkFile: health.CheckFile,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.notifier == nil {
		e.notifier = &health.LogNotifier{Logger: logger}
	}
	return e, nil
}

// Option customises an Engine.
type Option func(*Engine)

// WithVideoRetriever wires the video-platform retriever.
func WithVideoRetriever(v fetcher.VideoRetriever) Option {
	return func(e *Engine) { e.video = v }
}

// WithNotifier wires the downstream document-health consumer.
func WithNotifier(n health.Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

// WithFetchLog wires a per-attempt fetch log. Writes are best-effort.
func WithFetchLog(fl memory.FetchLogger) Option {
	return func(e *Engine) { e.fetchLog = fl }
}

// ExhaustOpts restricts one exhaustion run.
type ExhaustOpts struct {
	// Strategies, when non-empty, replaces the try-order entirely
	// (learned-first reordering is skipped too).
	Strategies []string

	// NoLearn disables persisting the winner. Used when re-fetching mirror
	// URLs: the lesson belongs to the original URL, not the mirror.
	NoLearn bool
}

// Exhaust tries strategies for rawURL until one succeeds or all fail.
func (e *Engine) Exhaust(ctx context.Context, rawURL string) *Result {
	return e.ExhaustWith(ctx, rawURL, ExhaustOpts{})
}

// ExhaustWith is Exhaust with explicit options.
func (e *Engine) ExhaustWith(ctx context.Context, rawURL string, opts ExhaustOpts) *Result {
	log := e.logger.With("url", rawURL)
	res := &Result{URL: rawURL}

	// Video platforms get their specialized retriever first. A failure here
	// does not exclude the URL from the generic sequence.
	if len(opts.Strategies) == 0 && e.video != nil && isVideoHost(rawURL) {
		att := e.videoAttempt(ctx, rawURL)
		res.Attempts = append(res.Attempts, att)
		e.logAttempt(ctx, rawURL, att)
		if att.Success {
			res.Success = true
			res.WinningStrategy = fetcher.StrategyYoutube
			res.FinalAttempt = &res.Attempts[len(res.Attempts)-1]
			if !opts.NoLearn {
				e.learn(ctx, rawURL, fetcher.StrategyYoutube, att.TimingMs)
			}
			return res
		}
		log.Debug("video retriever failed, falling through", "error", att.Error)
	}

	var learned *strategy.Record
	order := opts.Strategies
	if len(order) == 0 {
		if e.store != nil {
			learned = e.store.BestForURL(ctx, rawURL)
		}
		order = buildOrder(learned, e.config.Strategies)
	}

	for _, name := range order {
		att, success := e.tryStrategy(ctx, rawURL, name, learned)
		res.Attempts = append(res.Attempts, att...)
		if success {
			last := &res.Attempts[len(res.Attempts)-1]
			res.Success = true
			res.WinningStrategy = name
			res.FinalAttempt = last
			if !opts.NoLearn {
				e.learn(ctx, rawURL, name, last.TimingMs)
			}
			e.checkHealth(ctx, rawURL, name, last)
			return res
		}
		if e.store != nil && !opts.NoLearn {
			// Fold the failure into an existing record, if any.
			e.store.MarkFailure(ctx, rawURL, name)
		}
	}

	res.WinningStrategy = AllFailed
	if n := len(res.Attempts); n > 0 {
		res.FinalAttempt = &res.Attempts[n-1]
	}
	log.Info("all strategies failed", "attempts", len(res.Attempts))
	e.notifyFailure(ctx, rawURL, order)
	return res
}

// tryStrategy runs one strategy with retries. Returns every attempt made
// and whether the last one succeeded.
func (e *Engine) tryStrategy(ctx context.Context, rawURL, name string, learned *strategy.Record) ([]Attempt, bool) {
	log := e.logger.With("url", rawURL, "strategy", name)
	var attempts []Attempt

	fetchOpts := fetcher.Options{
		Strategy:  name,
		Timeout:   e.config.AttemptTimeout,
		OutputDir: e.config.OutputDir,
	}
	if learned != nil && learned.Strategy == name {
		fetchOpts.Headers = learned.Headers
		fetchOpts.Cookies = learned.Cookies
		fetchOpts.UserAgent = learned.UserAgent
	}

	for try := 0; try < e.config.MaxRetries; try++ {
		start := time.Now()
		resp, err := e.fetch.Fetch(ctx, rawURL, fetchOpts)
		att := Attempt{
			Strategy: name,
			TimingMs: time.Since(start).Milliseconds(),
		}

		switch {
		case err != nil:
			att.Error = err.Error()
			att.Verdict = fetcher.VerdictError
			attempts = append(attempts, att)
			e.logAttempt(ctx, rawURL, att)
			if !isTransient(err) {
				log.Debug("terminal failure, advancing", "error", err)
				return attempts, false
			}
			log.Debug("transient failure, retrying", "try", try+1, "error", err)

		default:
			att.StatusCode = resp.StatusCode
			att.Verdict = resp.Verdict
			att.ContentLength = resp.ContentLength
			att.FilePath = resp.FilePath
			att.Error = resp.Error
			att.Success = resp.Verdict == fetcher.VerdictOK
			attempts = append(attempts, att)
			e.logAttempt(ctx, rawURL, att)
			if att.Success {
				log.Info("fetch succeeded", "status", resp.StatusCode, "bytes", resp.ContentLength)
				return attempts, true
			}
			// A clean reply with a bad verdict is terminal for this strategy.
			return attempts, false
		}
	}
	return attempts, false
}

func (e *Engine) videoAttempt(ctx context.Context, rawURL string) Attempt {
	start := time.Now()
	resp, err := e.video.Retrieve(ctx, rawURL, e.config.OutputDir)
	att := Attempt{
		Strategy: fetcher.StrategyYoutube,
		TimingMs: time.Since(start).Milliseconds(),
	}
	if err != nil {
		att.Error = err.Error()
		att.Verdict = fetcher.VerdictError
		return att
	}
	att.StatusCode = resp.StatusCode
	att.Verdict = resp.Verdict
	att.ContentLength = resp.ContentLength
	att.FilePath = resp.FilePath
	att.Error = resp.Error
	att.Success = resp.Verdict == fetcher.VerdictOK
	return att
}

// logAttempt records one attempt in the fetch log when one is wired.
func (e *Engine) logAttempt(ctx context.Context, rawURL string, att Attempt) {
	if e.fetchLog == nil {
		return
	}
	if err := e.fetchLog.LogFetch(ctx, rawURL, att.Strategy, att.StatusCode, att.Verdict, att.TimingMs); err != nil {
		e.logger.Warn("fetch log write failed", "url", rawURL, "error", err)
	}
}

// learn persists the winning strategy, best-effort.
func (e *Engine) learn(ctx context.Context, rawURL, name string, timingMs int64) {
	if e.store == nil {
		return
	}
	if ok := e.store.Learn(ctx, rawURL, name, timingMs, strategy.LearnOpts{}); !ok {
		e.logger.Warn("learn failed, continuing", "url", rawURL, "strategy", name)
	}
}

// checkHealth runs the content-health check on document targets and
// notifies the downstream consumer when issues surface. Best-effort: the
// returned Result is never affected.
func (e *Engine) checkHealth(ctx context.Context, rawURL, strategyUsed string, att *Attempt) {
	if !health.IsDocumentTarget(rawURL) || att.FilePath == "" {
		return
	}
	issues := e.checkFile(att.FilePath)
	if len(issues) == 0 {
		return
	}
	if err := e.notifier.Notify(ctx, rawURL, issues, strategyUsed, health.Summary(issues, 1)); err != nil {
		e.logger.Warn("health notification failed", "url", rawURL, "error", err)
	}
}

// notifyFailure tells the downstream consumer a document URL is
// unrecoverable, listing the strategies tried. Best-effort.
func (e *Engine) notifyFailure(ctx context.Context, rawURL string, tried []string) {
	if !health.IsDocumentTarget(rawURL) {
		return
	}
	ctxText := "strategies tried: " + strings.Join(tried, ", ")
	if err := e.notifier.Notify(ctx, rawURL, []string{health.IssueFetchFail}, AllFailed, ctxText); err != nil {
		e.logger.Warn("health notification failed", "url", rawURL, "error", err)
	}
}

// buildOrder moves the learned strategy to the front of the default order,
// deduplicated. Records naming a non-fetchable strategy (human-driven
// outcomes like "manual_file", or records written by other tools) are
// ignored rather than fronted.
func buildOrder(learned *strategy.Record, defaults []string) []string {
	if learned == nil || !knownStrategies[learned.Strategy] {
		return defaults
	}
	order := []string{learned.Strategy}
	for _, name := range defaults {
		if name != learned.Strategy {
			order = append(order, name)
		}
	}
	return order
}

func isVideoHost(rawURL string) bool {
	host, _, err := splitURL(rawURL)
	if err != nil {
		return false
	}
	host = strings.TrimPrefix(host, "www.")
	host = strings.TrimPrefix(host, "m.")
	return videoHosts[host]
}

func splitURL(rawURL string) (host, path string, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", err
	}
	return strings.ToLower(u.Hostname()), u.Path, nil
}
