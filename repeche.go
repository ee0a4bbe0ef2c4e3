// CLAUDE:SUMMARY Main Service orchestrator: fetch, batch, analysis, escalation, and recovery entry points.
// Package repeche is a resilient fetch service that learns which retrieval
// strategy works for which site, escalates what it cannot fetch to a
// human, and folds the human's answers back into its own decisions.
package repeche

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/hazyhaar/repeche/internal/analyze"
	"github.com/hazyhaar/repeche/internal/engine"
	"github.com/hazyhaar/repeche/internal/fetcher"
	"github.com/hazyhaar/repeche/internal/health"
	"github.com/hazyhaar/repeche/internal/interview"
	"github.com/hazyhaar/repeche/internal/memory"
	"github.com/hazyhaar/repeche/internal/recovery"
	"github.com/hazyhaar/repeche/internal/strategy"
)

// Service is the main repeche orchestrator.
type Service struct {
	engine   *engine.Engine
	store    *strategy.Store
	mem      memory.Memory
	executor *recovery.Executor
	runner   interview.Runner
	logger   *slog.Logger
	config   *Config
	closeMem func() error

	mu        sync.Mutex
	lastBatch []*engine.Result
}

// ServiceOption configures a Service during creation.
type ServiceOption func(*serviceDeps)

type serviceDeps struct {
	mem      memory.Memory
	fetch    fetcher.Fetcher
	video    fetcher.VideoRetriever
	notifier health.Notifier
	runner   interview.Runner
}

// WithMemory injects a memory capability, replacing the built-in SQLite
// one. The service will not close an injected memory.
func WithMemory(m memory.Memory) ServiceOption {
	return func(d *serviceDeps) { d.mem = m }
}

// WithFetcher overrides the built-in HTTP+browser fetcher. Used for
// subprocess-based fetch tools and in tests.
func WithFetcher(f fetcher.Fetcher) ServiceOption {
	return func(d *serviceDeps) { d.fetch = f }
}

// WithVideoRetriever wires the video-platform transcript retriever.
func WithVideoRetriever(v fetcher.VideoRetriever) ServiceOption {
	return func(d *serviceDeps) { d.video = v }
}

// WithNotifier wires the downstream document-health consumer.
func WithNotifier(n health.Notifier) ServiceOption {
	return func(d *serviceDeps) { d.notifier = n }
}

// WithInterviewRunner wires the interview capability used by
// EscalateAndRecover. Without one, escalation stops at BuildInterview.
func WithInterviewRunner(r interview.Runner) ServiceOption {
	return func(d *serviceDeps) { d.runner = r }
}

// New creates a repeche Service.
func New(cfg *Config, logger *slog.Logger, opts ...ServiceOption) (*Service, error) {
	if cfg == nil {
		cfg = defaultConfig()
	}
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}

	var deps serviceDeps
	for _, opt := range opts {
		opt(&deps)
	}

	svc := &Service{logger: logger, config: cfg, runner: deps.runner}

	// Memory capability: injected, or the built-in SQLite store.
	svc.mem = deps.mem
	if svc.mem == nil {
		sq, err := memory.OpenSQLite(cfg.MemoryDB, logger)
		if err != nil {
			return nil, fmt.Errorf("open memory db: %w", err)
		}
		svc.mem = sq
		svc.closeMem = sq.Close
	}

	storeCfg := cfg.storeConfig()
	storeCfg.Logger = logger
	svc.store = strategy.NewStore(svc.mem, storeCfg)

	// Fetcher: injected, or HTTP+browser composite.
	fetch := deps.fetch
	if fetch == nil {
		httpF, err := fetcher.NewHTTP(cfg.httpConfig())
		if err != nil {
			return nil, fmt.Errorf("http fetcher: %w", err)
		}
		browserCfg := cfg.browserConfig()
		browserCfg.Logger = logger
		fetch = &fetcher.Composite{
			HTTP:    httpF,
			Browser: fetcher.NewBrowser(browserCfg),
		}
	}

	video := deps.video
	if video == nil && cfg.VideoCommand != "" {
		video = fetcher.NewExecVideo(cfg.VideoCommand, cfg.VideoArgs, 0, logger)
	}

	var engOpts []engine.Option
	if video != nil {
		engOpts = append(engOpts, engine.WithVideoRetriever(video))
	}
	if deps.notifier != nil {
		engOpts = append(engOpts, engine.WithNotifier(deps.notifier))
	}
	if fl, ok := svc.mem.(memory.FetchLogger); ok {
		engOpts = append(engOpts, engine.WithFetchLog(fl))
	}
	eng, err := engine.New(fetch, svc.store, cfg.engineConfig(), logger, engOpts...)
	if err != nil {
		return nil, err
	}
	svc.engine = eng
	svc.executor = recovery.New(eng, svc.store, logger)
	return svc, nil
}

// Close releases the built-in memory store. Injected capabilities are the
// caller's to close.
func (svc *Service) Close() error {
	if svc.closeMem != nil {
		return svc.closeMem()
	}
	return nil
}

// FetchURL runs the full strategy exhaustion for one URL.
func (svc *Service) FetchURL(ctx context.Context, rawURL string) *engine.Result {
	return svc.engine.Exhaust(ctx, rawURL)
}

// FetchBatch fetches a set of URLs with bounded concurrency. The returned
// slice matches the input order. The batch is remembered so a subsequent
// EscalateAndRecover without arguments operates on it.
func (svc *Service) FetchBatch(ctx context.Context, urls []string) []*engine.Result {
	results := svc.engine.FetchBatch(ctx, urls, svc.config.BatchConcurrency)
	svc.mu.Lock()
	svc.lastBatch = results
	svc.mu.Unlock()
	return results
}

// LastBatch returns the most recent FetchBatch results, or nil.
func (svc *Service) LastBatch() []*engine.Result {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return svc.lastBatch
}

// AnalyzeBatch derives failure patterns from a batch of results.
func (svc *Service) AnalyzeBatch(results []*engine.Result) *analyze.BatchAnalysis {
	return analyze.Analyze(results)
}

// BuildInterview turns unrecoverable failures into human-answerable
// questions.
func (svc *Service) BuildInterview(results []*engine.Result, groupByDomain bool) *interview.Interview {
	return interview.Build(results, interview.BuildOpts{
		MaxQuestions:  svc.config.MaxQuestions,
		GroupByDomain: groupByDomain,
	})
}

// ProcessAnswers classifies human answers into recovery actions.
func (svc *Service) ProcessAnswers(iv *interview.Interview, resp *interview.Response) []interview.RecoveryAction {
	return interview.ProcessAnswers(iv, resp)
}

// ExecuteRecovery runs recovery actions. Non-skip successes are written
// back into the strategy store as human-provided records.
func (svc *Service) ExecuteRecovery(ctx context.Context, actions []interview.RecoveryAction) []*engine.Result {
	return svc.executor.Execute(ctx, actions, svc.config.OutputDir)
}

// StrategiesForDomain lists the learned records for a domain.
func (svc *Service) StrategiesForDomain(ctx context.Context, domain string) []*strategy.Record {
	return svc.store.RecallForDomain(ctx, domain)
}

// LearnStrategy records a working strategy directly, bypassing a fetch.
// Used when an operator already knows what works for a site.
func (svc *Service) LearnStrategy(ctx context.Context, rawURL, strategyName, notes string) bool {
	return svc.store.Learn(ctx, rawURL, strategyName, 0, strategy.LearnOpts{
		HumanProvided: notes != "",
		HumanNotes:    notes,
	})
}

// EscalateAndRecover runs the full escalation loop on results: build the
// interview, present it through the configured runner, classify the
// answers, and execute the resulting actions. With a nil results slice the
// last FetchBatch is used. Expand-domain answers trigger one per-URL
// follow-up round.
func (svc *Service) EscalateAndRecover(ctx context.Context, results []*engine.Result) ([]*engine.Result, error) {
	if svc.runner == nil {
		return nil, fmt.Errorf("no interview runner configured")
	}
	if results == nil {
		results = svc.LastBatch()
	}

	recovered, expand, err := svc.escalateRound(ctx, results, true)
	if err != nil {
		return recovered, err
	}
	if len(expand) > 0 {
		more, _, err := svc.escalateRound(ctx, expand, false)
		recovered = append(recovered, more...)
		if err != nil {
			return recovered, err
		}
	}
	return recovered, nil
}

func (svc *Service) escalateRound(ctx context.Context, results []*engine.Result, groupByDomain bool) (recovered, expand []*engine.Result, err error) {
	iv := svc.BuildInterview(results, groupByDomain)
	if iv.Empty() {
		return nil, nil, nil
	}
	resp, err := svc.runner.Run(ctx, iv)
	if err != nil {
		return nil, nil, fmt.Errorf("interview: %w", err)
	}
	actions := interview.ProcessAnswers(iv, resp)

	var execute []interview.RecoveryAction
	expandURLs := map[string]bool{}
	for _, action := range actions {
		if action.Type == interview.ActionExpandDomain {
			for _, u := range action.URLs {
				expandURLs[u] = true
			}
			continue
		}
		execute = append(execute, action)
	}
	for _, res := range results {
		if res != nil && expandURLs[res.URL] {
			expand = append(expand, res)
		}
	}
	return svc.executor.Execute(ctx, execute, svc.config.OutputDir), expand, nil
}
