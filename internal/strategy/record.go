// CLAUDE:SUMMARY StrategyRecord entity: identity, statistics update rule, path-pattern generalization and URL matching.
// Package strategy holds the learned-strategy data model and its store.
//
// A Record is a recipe for retrieving content from a (domain, path pattern)
// pair. Records accumulate success/failure statistics across fetches and are
// persisted through the external memory capability as opaque blobs.
package strategy

import (
	"net/url"
	"strings"
	"time"
)

// Record is a learned retrieval recipe for a domain/path shape.
type Record struct {
	Domain      string            `json:"domain"`       // lowercased host
	PathPattern string            `json:"path_pattern"` // literal path or wildcard pattern
	Strategy    string            `json:"strategy_name"`
	Headers     map[string]string `json:"headers,omitempty"`
	Cookies     map[string]string `json:"cookies,omitempty"`
	UserAgent   string            `json:"user_agent,omitempty"`

	SuccessCount int     `json:"success_count"`
	FailureCount int     `json:"failure_count"`
	SuccessRate  float64 `json:"success_rate"`
	AvgTimingMs  float64 `json:"avg_timing_ms"` // running average, success-only

	DiscoveredAt  int64    `json:"discovered_at"` // unix ms
	LastUsedAt    int64    `json:"last_used_at"`  // unix ms
	HumanProvided bool     `json:"human_provided"`
	HumanNotes    string   `json:"human_notes,omitempty"`
	MirrorURL     string   `json:"mirror_url,omitempty"`
	Tags          []string `json:"tags,omitempty"`
}

// NewRecord creates a Record for a first successful fetch.
func NewRecord(domain, pathPattern, strategyName string, timingMs int64) *Record {
	now := time.Now().UnixMilli()
	return &Record{
		Domain:       strings.ToLower(domain),
		PathPattern:  pathPattern,
		Strategy:     strategyName,
		SuccessCount: 1,
		FailureCount: 0,
		SuccessRate:  1.0,
		AvgTimingMs:  float64(timingMs),
		DiscoveredAt: now,
		LastUsedAt:   now,
	}
}

// Valid reports whether the record may be persisted.
// A record that was never observed (zero total attempts) is invalid.
func (r *Record) Valid() bool {
	return r.Domain != "" && r.Strategy != "" && r.SuccessCount+r.FailureCount > 0
}

// UpdateStats folds one attempt outcome into the record's statistics.
// The timing average is updated only on success:
// new_avg = (old_avg*(n-1) + timing) / n where n is the new success count.
func (r *Record) UpdateStats(success bool, timingMs int64) {
	if success {
		r.SuccessCount++
		n := float64(r.SuccessCount)
		r.AvgTimingMs = (r.AvgTimingMs*(n-1) + float64(timingMs)) / n
	} else {
		r.FailureCount++
	}
	total := r.SuccessCount + r.FailureCount
	r.SuccessRate = float64(r.SuccessCount) / float64(total)
	r.LastUsedAt = time.Now().UnixMilli()
}

// MatchesURL reports whether the record applies to rawURL: the URL's host
// must contain the record's domain, and the path must match the pattern.
// A "*" pattern matches any path; otherwise the pattern is split on "*" and
// the path must start with the first piece and contain the remaining pieces
// in order.
func (r *Record) MatchesURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	if host == "" || !strings.Contains(host, r.Domain) {
		return false
	}
	return matchPattern(r.PathPattern, u.Path)
}

func matchPattern(pattern, path string) bool {
	if pattern == "" || pattern == "*" {
		return true
	}
	pieces := strings.Split(pattern, "*")
	rest := path
	for i, piece := range pieces {
		if piece == "" {
			continue
		}
		idx := strings.Index(rest, piece)
		if idx < 0 {
			return false
		}
		if i == 0 && idx != 0 {
			// First literal piece must anchor at the path start.
			return false
		}
		rest = rest[idx+len(piece):]
	}
	return true
}

// Specificity scores how specific a path pattern is: the character length of
// the pattern with wildcards stripped. Used to prefer precise patterns over
// catch-alls when several records match one URL.
func Specificity(pattern string) int {
	return len(strings.ReplaceAll(pattern, "*", ""))
}

// Score is the ranking key for candidate records: specific patterns that
// have historically worked beat lucky one-off catch-alls.
func (r *Record) Score() float64 {
	return float64(Specificity(r.PathPattern)) * r.SuccessRate
}

// SplitURL parses rawURL into (lowercased host, path).
func SplitURL(rawURL string) (domain, path string, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", err
	}
	return strings.ToLower(u.Hostname()), u.Path, nil
}

// GeneralizePath turns a literal URL path into a reusable pattern.
// Digit runs in the last segment are replaced by "*" when the segment
// carries digits or is unusually long, and fully-numeric intermediate
// segments become "*". "/report123.pdf" generalizes to "/report*.pdf" so a
// later "/report999.pdf" reuses the learned strategy.
func GeneralizePath(path string) string {
	if path == "" || path == "/" {
		return "*"
	}
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		if seg == "" {
			continue
		}
		last := i == len(segments)-1
		switch {
		case isNumeric(seg):
			segments[i] = "*"
		case last && strings.ContainsAny(seg, "0123456789"):
			segments[i] = wildcardDigits(seg)
		case last && len(seg) > 32:
			segments[i] = "*"
		}
	}
	return strings.Join(segments, "/")
}

// wildcardDigits collapses every digit run in s into a single "*".
func wildcardDigits(s string) string {
	var b strings.Builder
	inRun := false
	for _, r := range s {
		if r >= '0' && r <= '9' {
			if !inRun {
				b.WriteByte('*')
				inRun = true
			}
			continue
		}
		inRun = false
		b.WriteRune(r)
	}
	return b.String()
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
