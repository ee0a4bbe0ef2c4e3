// CLAUDE:SUMMARY Engine result types: FetchAttempt, StrategyResult, the all_failed sentinel.
// Package engine orders and executes retrieval strategies for URLs,
// learning winners back into the strategy store.
package engine

// Sentinel winning-strategy values. AllFailed marks a URL that exhausted
// every strategy; the recovery executor adds "skipped" and "mirror" for
// human-driven outcomes.
const (
	AllFailed       = "all_failed"
	WinnerSkipped   = "skipped"
	WinnerMirror    = "mirror"
	WinnerManual    = "manual_file"
)

// Attempt is the outcome of trying exactly one strategy once.
type Attempt struct {
	Strategy      string         `json:"strategy"`
	Success       bool           `json:"success"`
	StatusCode    int            `json:"status_code,omitempty"`
	Verdict       string         `json:"content_verdict,omitempty"`
	ContentLength int64          `json:"content_length,omitempty"`
	TimingMs      int64          `json:"timing_ms"`
	Error         string         `json:"error,omitempty"`
	FilePath      string         `json:"file_path,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// Result is the engine's final verdict for one URL: every attempt in order,
// the winner (or AllFailed), and the overall outcome. Immutable once
// returned.
type Result struct {
	URL             string         `json:"url"`
	Success         bool           `json:"success"`
	WinningStrategy string         `json:"winning_strategy"`
	Attempts        []Attempt      `json:"attempts"`
	FinalAttempt    *Attempt       `json:"final_attempt,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`
}

// Domain returns the lowercased host of the result's URL, or "" when the
// URL does not parse.
func (r *Result) Domain() string {
	d, _, err := splitURL(r.URL)
	if err != nil {
		return ""
	}
	return d
}
