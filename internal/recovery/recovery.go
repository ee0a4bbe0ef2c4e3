// CLAUDE:SUMMARY Recovery executor: dispatches human-decided actions and feeds successes back into the store.
// Package recovery executes the actions a human chose during an escalation
// interview. Every non-skip success is written back into the strategy
// store as a human-provided record, so the next automatic run benefits
// from the intervention.
package recovery

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/hazyhaar/repeche/horosafe"
	"github.com/hazyhaar/repeche/internal/engine"
	"github.com/hazyhaar/repeche/internal/fetcher"
	"github.com/hazyhaar/repeche/internal/interview"
	"github.com/hazyhaar/repeche/internal/strategy"
)

// Executor runs recovery actions. The engine handles the actions that need
// a re-fetch; the store records what the human taught us.
type Executor struct {
	engine *engine.Engine
	store  *strategy.Store
	logger *slog.Logger
}

func New(eng *engine.Engine, st *strategy.Store, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{engine: eng, store: st, logger: logger.With("component", "recovery")}
}

// Execute runs each action in order and returns one result per (action,
// URL) pair. Actions never abort the batch; a failed action becomes a
// failed result.
func (x *Executor) Execute(ctx context.Context, actions []interview.RecoveryAction, outputDir string) []*engine.Result {
	var results []*engine.Result
	for _, action := range actions {
		for _, rawURL := range action.URLs {
			res := x.executeOne(ctx, action, rawURL, outputDir)
			results = append(results, res)
			if res.Success && action.Type != interview.ActionSkip {
				x.learnFromHuman(ctx, rawURL, action, res)
			}
		}
	}
	return results
}

func (x *Executor) executeOne(ctx context.Context, action interview.RecoveryAction, rawURL, outputDir string) *engine.Result {
	switch action.Type {
	case interview.ActionSkip:
		return &engine.Result{
			URL:             rawURL,
			Success:         true,
			WinningStrategy: engine.WinnerSkipped,
		}
	case interview.ActionMirror:
		return x.executeMirror(ctx, action, rawURL)
	case interview.ActionManualFile:
		return x.executeManualFile(action, rawURL, outputDir)
	case interview.ActionCredentials:
		// Credential-based fetching is not implemented. The result
		// records whether the credentials were at least parseable so a
		// future implementation can pick them up.
		return failure(rawURL, "credential-based recovery not implemented", map[string]any{
			"credentials_parsed": action.Username != "" && action.Password != "",
			"hint_recorded":      action.Hint != "",
		})
	case interview.ActionRetry:
		return failure(rawURL, "deferred for retry", map[string]any{
			"retry_after_seconds": action.RetryAfterSeconds,
		})
	case interview.ActionCustomStrategy:
		return x.executeCustomStrategy(ctx, action, rawURL)
	case interview.ActionExpandDomain:
		// Resolved by the caller re-running the interview generator in
		// per-URL mode; nothing to execute here.
		return failure(rawURL, "domain expanded into per-url questions", map[string]any{
			"expand_domain": action.Domain,
		})
	default:
		return failure(rawURL, fmt.Sprintf("unknown recovery action %q", action.Type), nil)
	}
}

func (x *Executor) executeMirror(ctx context.Context, action interview.RecoveryAction, rawURL string) *engine.Result {
	if action.MirrorURL == "" {
		return failure(rawURL, "no mirror url could be parsed from the answer", nil)
	}
	res := x.engine.ExhaustWith(ctx, action.MirrorURL, engine.ExhaustOpts{NoLearn: true})
	// Relabel under the original URL so callers can correlate.
	res.URL = rawURL
	if res.Metadata == nil {
		res.Metadata = make(map[string]any)
	}
	res.Metadata["original_url"] = rawURL
	res.Metadata["mirror_url"] = action.MirrorURL
	if res.Success {
		res.WinningStrategy = engine.WinnerMirror
	}
	return res
}

func (x *Executor) executeManualFile(action interview.RecoveryAction, rawURL, outputDir string) *engine.Result {
	path := strings.TrimSpace(action.FilePath)
	if path == "" {
		return failure(rawURL, "no file path given", nil)
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return failure(rawURL, fmt.Sprintf("file not found: %s", path), nil)
	}

	finalPath := path
	if outputDir != "" {
		dest, err := horosafe.SafePath(outputDir, filepath.Base(path))
		if err != nil {
			return failure(rawURL, fmt.Sprintf("unsafe destination: %v", err), nil)
		}
		if err := copyFile(path, dest); err != nil {
			return failure(rawURL, fmt.Sprintf("copy to output dir: %v", err), nil)
		}
		finalPath = dest
	}

	att := engine.Attempt{
		Strategy:      engine.WinnerManual,
		Success:       true,
		Verdict:       fetcher.VerdictOK,
		ContentLength: info.Size(),
		FilePath:      finalPath,
	}
	return &engine.Result{
		URL:             rawURL,
		Success:         true,
		WinningStrategy: engine.WinnerManual,
		Attempts:        []engine.Attempt{att},
		FinalAttempt:    &att,
	}
}

func (x *Executor) executeCustomStrategy(ctx context.Context, action interview.RecoveryAction, rawURL string) *engine.Result {
	hints := strategyHints(action.Notes)
	if len(hints) == 0 {
		return failure(rawURL, fmt.Sprintf("could not parse a strategy from notes: %q", action.Notes), nil)
	}
	return x.engine.ExhaustWith(ctx, rawURL, engine.ExhaustOpts{Strategies: hints})
}

// strategyHints maps free-text keywords onto known strategy names,
// preserving discovery order and dropping duplicates.
func strategyHints(notes string) []string {
	lower := strings.ToLower(notes)
	var hints []string
	add := func(name string) {
		for _, h := range hints {
			if h == name {
				return
			}
		}
		hints = append(hints, name)
	}
	if strings.Contains(lower, "proxy") || strings.Contains(lower, "vpn") {
		add(fetcher.StrategyProxy)
	}
	if strings.Contains(lower, "playwright") || strings.Contains(lower, "browser") || strings.Contains(lower, "js") {
		add(fetcher.StrategyPlaywright)
	}
	if strings.Contains(lower, "wayback") || strings.Contains(lower, "archive") {
		add(fetcher.StrategyWayback)
	}
	if strings.Contains(lower, "jina") {
		add(fetcher.StrategyJina)
	}
	return hints
}

func (x *Executor) learnFromHuman(ctx context.Context, rawURL string, action interview.RecoveryAction, res *engine.Result) {
	if x.store == nil {
		return
	}
	strategyName := res.WinningStrategy
	var timingMs int64
	if res.FinalAttempt != nil {
		timingMs = res.FinalAttempt.TimingMs
	}
	opts := strategy.LearnOpts{
		HumanProvided: true,
		HumanNotes:    action.Notes,
	}
	if action.Type == interview.ActionMirror {
		opts.MirrorURL = action.MirrorURL
		// The relabel keeps the attempt list, so the final attempt names the
		// strategy that actually fetched the mirror. Learn that one: a
		// record fronting "mirror" would cost a dead attempt on every
		// future exhaust.
		if res.FinalAttempt != nil {
			strategyName = res.FinalAttempt.Strategy
		}
	}
	if !x.store.Learn(ctx, rawURL, strategyName, timingMs, opts) {
		x.logger.Warn("could not record human-provided strategy", "url", rawURL, "strategy", strategyName)
	}
}

func failure(rawURL, errText string, metadata map[string]any) *engine.Result {
	att := engine.Attempt{
		Strategy: engine.AllFailed,
		Verdict:  fetcher.VerdictError,
		Error:    errText,
	}
	return &engine.Result{
		URL:             rawURL,
		WinningStrategy: engine.AllFailed,
		Attempts:        []engine.Attempt{att},
		FinalAttempt:    &att,
		Metadata:        metadata,
	}
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
