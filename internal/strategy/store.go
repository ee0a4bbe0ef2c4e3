// CLAUDE:SUMMARY Strategy Store: domain-scoped recall with local filtering, best-record scoring, best-effort learn.
package strategy

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/hazyhaar/repeche/internal/memory"
)

// Store reads and writes Records through the memory capability.
//
// Recall is a fuzzy full-text query, not a keyed lookup, so the Store
// over-fetches and filters locally. All operations are best-effort: an
// unreachable memory capability degrades to empty recalls and false learns,
// never to an error on the fetch path.
type Store struct {
	mem     memory.Memory
	logger  *slog.Logger
	timeout time.Duration
}

// StoreConfig configures a Store.
type StoreConfig struct {
	// Timeout bounds each memory call. Default: 30s.
	Timeout time.Duration
	Logger  *slog.Logger
}

func (c *StoreConfig) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// NewStore creates a Store backed by mem.
func NewStore(mem memory.Memory, cfg StoreConfig) *Store {
	cfg.defaults()
	return &Store{mem: mem, logger: cfg.Logger, timeout: cfg.Timeout}
}

// RecallForDomain returns every learned record relevant to domain.
// Items that fail to decode, or whose domain does not contain the query
// domain, are silently dropped: recall over an external store is noisy by
// contract. Returns nil on total unavailability.
func (s *Store) RecallForDomain(ctx context.Context, domain string) []*Record {
	domain = strings.ToLower(domain)
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.mem.Recall(ctx, domain+" "+RecordTag)
	if err != nil {
		s.logger.Warn("strategy store: recall unavailable", "domain", domain, "error", err)
		return nil
	}
	if res == nil || !res.Found {
		return nil
	}

	var records []*Record
	for _, item := range res.Items {
		rec, err := DecodeRecord([]byte(item.Solution))
		if err != nil {
			s.logger.Debug("strategy store: dropping undecodable item", "error", err)
			continue
		}
		if !strings.Contains(rec.Domain, domain) {
			continue
		}
		records = append(records, rec)
	}
	return records
}

// BestForURL returns the highest-scoring record matching rawURL, or nil.
// Score = specificity(pattern) * success_rate; ties keep first-seen order.
func (s *Store) BestForURL(ctx context.Context, rawURL string) *Record {
	domain, _, err := SplitURL(rawURL)
	if err != nil || domain == "" {
		return nil
	}

	var best *Record
	for _, rec := range s.RecallForDomain(ctx, domain) {
		if !rec.MatchesURL(rawURL) {
			continue
		}
		if best == nil || rec.Score() > best.Score() {
			best = rec
		}
	}
	return best
}

// LearnOpts carries optional record fields for Learn.
type LearnOpts struct {
	Headers       map[string]string
	Cookies       map[string]string
	UserAgent     string
	HumanProvided bool
	HumanNotes    string
	MirrorURL     string
	Tags          []string
}

// Learn records a successful strategy for rawURL. The existing record for
// the same (domain, path pattern) identity is re-read and updated; otherwise
// a fresh record is created. Persistence is best-effort: returns false and
// logs when the memory capability is unreachable.
func (s *Store) Learn(ctx context.Context, rawURL, strategyName string, timingMs int64, opts LearnOpts) bool {
	domain, path, err := SplitURL(rawURL)
	if err != nil || domain == "" {
		s.logger.Warn("strategy store: learn skipped, unparseable url", "url", rawURL)
		return false
	}
	pattern := GeneralizePath(path)

	// Re-read before re-write: fold this success into the existing record
	// for the same identity when one exists.
	rec := s.findExisting(ctx, domain, pattern, strategyName)
	if rec != nil {
		rec.UpdateStats(true, timingMs)
	} else {
		rec = NewRecord(domain, pattern, strategyName, timingMs)
	}

	if opts.Headers != nil {
		rec.Headers = opts.Headers
	}
	if opts.Cookies != nil {
		rec.Cookies = opts.Cookies
	}
	if opts.UserAgent != "" {
		rec.UserAgent = opts.UserAgent
	}
	if opts.HumanProvided {
		rec.HumanProvided = true
	}
	if opts.HumanNotes != "" {
		rec.HumanNotes = opts.HumanNotes
	}
	if opts.MirrorURL != "" {
		rec.MirrorURL = opts.MirrorURL
	}
	if len(opts.Tags) > 0 {
		rec.Tags = mergeTags(rec.Tags, opts.Tags)
	}

	return s.persist(ctx, rec)
}

// MarkFailure folds a failed attempt into an existing record's statistics,
// if one exists for the URL. Missing records are not created: a record is
// only born from a first success.
func (s *Store) MarkFailure(ctx context.Context, rawURL, strategyName string) bool {
	domain, path, err := SplitURL(rawURL)
	if err != nil || domain == "" {
		return false
	}
	rec := s.findExisting(ctx, domain, GeneralizePath(path), strategyName)
	if rec == nil {
		return false
	}
	rec.UpdateStats(false, 0)
	return s.persist(ctx, rec)
}

func (s *Store) findExisting(ctx context.Context, domain, pattern, strategyName string) *Record {
	for _, rec := range s.RecallForDomain(ctx, domain) {
		if rec.Domain == domain && rec.PathPattern == pattern && rec.Strategy == strategyName {
			return rec
		}
	}
	return nil
}

func (s *Store) persist(ctx context.Context, rec *Record) bool {
	solution, tags, err := EncodeRecord(rec)
	if err != nil {
		s.logger.Warn("strategy store: encode failed", "domain", rec.Domain, "error", err)
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	problem := Problem(rec.Domain, rec.PathPattern)
	if err := s.mem.Learn(ctx, problem, solution, tags); err != nil {
		s.logger.Warn("strategy store: learn unavailable",
			"domain", rec.Domain, "pattern", rec.PathPattern, "error", err)
		return false
	}
	s.logger.Debug("strategy store: persisted",
		"domain", rec.Domain, "pattern", rec.PathPattern,
		"strategy", rec.Strategy, "success_rate", rec.SuccessRate)
	return true
}

func mergeTags(existing, extra []string) []string {
	seen := make(map[string]bool, len(existing))
	out := append([]string{}, existing...)
	for _, t := range existing {
		seen[t] = true
	}
	for _, t := range extra {
		if !seen[t] {
			out = append(out, t)
			seen[t] = true
		}
	}
	return out
}
