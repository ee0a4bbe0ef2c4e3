// CLAUDE:SUMMARY Pure batch failure analyzer: status/verdict/domain tallies and deterministic pattern heuristics.
// Package analyze derives failure patterns from a batch of engine results.
//
// Analysis is pure and deterministic: the same input always produces the
// same BatchAnalysis, and nothing is cached or mutated.
package analyze

import (
	"fmt"
	"sort"

	"github.com/hazyhaar/repeche/internal/engine"
)

// BatchAnalysis is the derived view over one batch of results. Rebuilt on
// every call, never persisted.
type BatchAnalysis struct {
	Total      int `json:"total"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`

	ByStatus  map[int]int    `json:"by_status"`
	ByVerdict map[string]int `json:"by_verdict"`
	// ByDomain counts per-domain failures: "total" plus "status_<code>"
	// keys.
	ByDomain map[string]map[string]int `json:"by_domain"`

	Patterns      []string `json:"patterns"`
	Unrecoverable []string `json:"unrecoverable"`
}

// Analyze tallies a batch of results and detects systemic failure patterns.
func Analyze(results []*engine.Result) *BatchAnalysis {
	a := &BatchAnalysis{
		Total:     len(results),
		ByStatus:  make(map[int]int),
		ByVerdict: make(map[string]int),
		ByDomain:  make(map[string]map[string]int),
	}

	for _, res := range results {
		if res == nil {
			continue
		}
		if res.Success {
			a.Successful++
			continue
		}
		a.Failed++

		status, verdict := 0, "unknown"
		if res.FinalAttempt != nil {
			status = res.FinalAttempt.StatusCode
			if res.FinalAttempt.Verdict != "" {
				verdict = res.FinalAttempt.Verdict
			}
		}
		domain := res.Domain()
		if domain == "" {
			domain = "unknown"
		}

		a.ByStatus[status]++
		a.ByVerdict[verdict]++
		if a.ByDomain[domain] == nil {
			a.ByDomain[domain] = make(map[string]int)
		}
		a.ByDomain[domain]["total"]++
		a.ByDomain[domain][fmt.Sprintf("status_%d", status)]++

		if res.WinningStrategy == engine.AllFailed {
			a.Unrecoverable = append(a.Unrecoverable, res.URL)
		}
	}

	a.Patterns = detectPatterns(a)
	return a
}

// detectPatterns applies the heuristics in a fixed order. Map keys are
// sorted before iteration so the output is stable.
func detectPatterns(a *BatchAnalysis) []string {
	var patterns []string

	// Single status code covering an entire domain's failures (≥3).
	for _, domain := range sortedKeys(a.ByDomain) {
		counts := a.ByDomain[domain]
		total := counts["total"]
		if total < 3 {
			continue
		}
		for key, n := range counts {
			var code int
			if _, err := fmt.Sscanf(key, "status_%d", &code); err != nil {
				continue
			}
			if n == total {
				patterns = append(patterns,
					fmt.Sprintf("All %d URLs from %s returned HTTP %d", total, domain, code))
				break
			}
		}
	}

	// A verdict shared by many failures.
	if a.Failed > 0 {
		for _, verdict := range sortedStrKeys(a.ByVerdict) {
			n := a.ByVerdict[verdict]
			pct := float64(n) / float64(a.Failed) * 100
			if n >= 5 && pct >= 30 {
				patterns = append(patterns,
					fmt.Sprintf("%d URLs (%.0f%%) failed with: %s", n, pct, verdict))
			}
		}
	}

	// Overall failure rate.
	if a.Total > 0 && a.Failed*2 >= a.Total {
		patterns = append(patterns,
			fmt.Sprintf("High failure rate: %d/%d URLs failed (%.0f%%)",
				a.Failed, a.Total, float64(a.Failed)/float64(a.Total)*100))
	}

	// One domain dominating the failures.
	if a.Failed > 0 {
		for _, domain := range sortedKeys(a.ByDomain) {
			n := a.ByDomain[domain]["total"]
			pct := float64(n) / float64(a.Failed) * 100
			if n >= 5 && pct >= 40 {
				patterns = append(patterns,
					fmt.Sprintf("Domain %s accounts for %d of %d failures (%.0f%%)",
						domain, n, a.Failed, pct))
			}
		}
	}

	return patterns
}

func sortedKeys(m map[string]map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedStrKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
