package analyze

import (
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/hazyhaar/repeche/internal/engine"
)

func failedResult(url string, status int, verdict string) *engine.Result {
	att := engine.Attempt{Strategy: "direct", StatusCode: status, Verdict: verdict, Error: fmt.Sprintf("http %d", status)}
	return &engine.Result{
		URL:             url,
		WinningStrategy: engine.AllFailed,
		Attempts:        []engine.Attempt{att},
		FinalAttempt:    &att,
	}
}

func okResult(url string) *engine.Result {
	att := engine.Attempt{Strategy: "direct", Success: true, StatusCode: 200, Verdict: "ok"}
	return &engine.Result{URL: url, Success: true, WinningStrategy: "direct",
		Attempts: []engine.Attempt{att}, FinalAttempt: &att}
}

func TestAnalyze_DomainStatusPattern(t *testing.T) {
	// WHAT: 10 failures, 6 of them 403s all from example.com, emit the
	// "All 6 URLs from example.com returned HTTP 403" pattern.
	// WHY: a uniform status across a domain means one fix covers them all.
	var results []*engine.Result
	for i := 0; i < 6; i++ {
		results = append(results, failedResult(fmt.Sprintf("https://example.com/p%d", i), 403, "blocked"))
	}
	for i := 0; i < 4; i++ {
		results = append(results, failedResult(fmt.Sprintf("https://other%d.test/x", i), 500, "error"))
	}

	a := Analyze(results)
	if a.Failed != 10 || a.Successful != 0 {
		t.Fatalf("tally = %d failed / %d ok", a.Failed, a.Successful)
	}
	want := "All 6 URLs from example.com returned HTTP 403"
	if !hasPattern(a.Patterns, want) {
		t.Errorf("patterns = %v, want %q", a.Patterns, want)
	}
	if a.ByDomain["example.com"]["status_403"] != 6 {
		t.Errorf("by_domain = %v", a.ByDomain["example.com"])
	}
}

func TestAnalyze_VerdictPattern(t *testing.T) {
	// WHAT: a verdict shared by ≥5 URLs and ≥30% of failures is reported.
	// WHY: the share matters — 5 blocked URLs out of 200 failures is noise.
	var results []*engine.Result
	for i := 0; i < 5; i++ {
		results = append(results, failedResult(fmt.Sprintf("https://d%d.test/x", i), 403, "blocked"))
	}
	for i := 0; i < 3; i++ {
		results = append(results, failedResult(fmt.Sprintf("https://e%d.test/x", i), 500, "error"))
	}

	a := Analyze(results)
	if !hasPatternContaining(a.Patterns, "failed with: blocked") {
		t.Errorf("patterns = %v, want a blocked-verdict pattern", a.Patterns)
	}
	// 3 errors = 37.5%, but below the 5-URL floor.
	if hasPatternContaining(a.Patterns, "failed with: error") {
		t.Errorf("patterns = %v, error verdict is under the floor", a.Patterns)
	}
}

func TestAnalyze_HighFailureRate(t *testing.T) {
	// WHAT: a batch failing at 50% or more yields the failure-rate warning.
	// WHY: a systemic failure deserves a systemic headline.
	results := []*engine.Result{
		okResult("https://a.test/1"),
		failedResult("https://b.test/1", 500, "error"),
	}
	a := Analyze(results)
	if !hasPatternContaining(a.Patterns, "High failure rate: 1/2") {
		t.Errorf("patterns = %v", a.Patterns)
	}
}

func TestAnalyze_DomainDominance(t *testing.T) {
	// WHAT: one domain with ≥5 failures covering ≥40% of all failures is
	// called out, even across mixed status codes.
	// WHY: mixed statuses defeat the per-status pattern, but the domain is
	// still the story.
	var results []*engine.Result
	statuses := []int{403, 404, 500, 429, 403}
	for i, st := range statuses {
		results = append(results, failedResult(fmt.Sprintf("https://big.test/p%d", i), st, "error"))
	}
	for i := 0; i < 5; i++ {
		results = append(results, failedResult(fmt.Sprintf("https://s%d.test/x", i), 500, "error"))
	}

	a := Analyze(results)
	if !hasPatternContaining(a.Patterns, "Domain big.test accounts for 5 of 10 failures") {
		t.Errorf("patterns = %v", a.Patterns)
	}
}

func TestAnalyze_UnrecoverableList(t *testing.T) {
	// WHAT: unrecoverable is exactly the all_failed URLs.
	// WHY: the interview generator consumes this list verbatim.
	partial := failedResult("https://p.test/x", 403, "blocked")
	partial.WinningStrategy = "skipped"
	results := []*engine.Result{
		failedResult("https://u.test/1", 500, "error"),
		partial,
		okResult("https://a.test/1"),
	}
	a := Analyze(results)
	if len(a.Unrecoverable) != 1 || a.Unrecoverable[0] != "https://u.test/1" {
		t.Errorf("unrecoverable = %v", a.Unrecoverable)
	}
}

func TestAnalyze_MissingFinalAttemptDefaults(t *testing.T) {
	// WHAT: a failure with no final attempt counts as status 0, verdict
	// "unknown".
	// WHY: cancelled or malformed results must still be tallied.
	res := &engine.Result{URL: "https://x.test/a", WinningStrategy: engine.AllFailed}
	a := Analyze([]*engine.Result{res})
	if a.ByStatus[0] != 1 || a.ByVerdict["unknown"] != 1 {
		t.Errorf("by_status = %v, by_verdict = %v", a.ByStatus, a.ByVerdict)
	}
}

func TestAnalyze_Idempotent(t *testing.T) {
	// WHAT: analyzing the same input twice yields identical output.
	// WHY: the analyzer must be pure — no hidden state between calls.
	var results []*engine.Result
	for i := 0; i < 6; i++ {
		results = append(results, failedResult(fmt.Sprintf("https://example.com/p%d", i), 403, "blocked"))
	}
	results = append(results, okResult("https://a.test/1"))

	first := Analyze(results)
	second := Analyze(results)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("not idempotent:\n%+v\n%+v", first, second)
	}
}

func hasPattern(patterns []string, want string) bool {
	for _, p := range patterns {
		if p == want {
			return true
		}
	}
	return false
}

func hasPatternContaining(patterns []string, substr string) bool {
	for _, p := range patterns {
		if strings.Contains(p, substr) {
			return true
		}
	}
	return false
}
