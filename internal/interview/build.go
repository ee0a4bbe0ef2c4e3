// CLAUDE:SUMMARY Interview generator: per-URL or per-domain questions for unrecoverable failures.
package interview

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hazyhaar/repeche/internal/analyze"
	"github.com/hazyhaar/repeche/internal/engine"
)

// BuildOpts tunes interview generation.
type BuildOpts struct {
	// MaxQuestions caps the number of questions emitted. Zero means the
	// default of 10.
	MaxQuestions int
	// GroupByDomain asks one question per failing domain instead of one
	// per URL.
	GroupByDomain bool
}

const defaultMaxQuestions = 10

var perURLOptions = []Option{
	{Label: "I have credentials", Description: "provide login details in the text field"},
	{Label: "Try this mirror", Description: "paste an alternate URL in the text field"},
	{Label: "I'll download manually", Description: "paste the local file path in the text field"},
	{Label: "Skip it"},
}

var perDomainOptions = []Option{
	{Label: "I have credentials", Description: "provide login details in the text field"},
	{Label: "Try different strategy", Description: "describe how to fetch (proxy, browser, archive...)"},
	{Label: "Skip all"},
	{Label: "Handle individually", Description: "ask about each URL separately"},
}

// Build filters results to the unrecoverable ones and produces an
// interview. An empty interview (no questions) means nothing needs human
// attention.
func Build(results []*engine.Result, opts BuildOpts) *Interview {
	if opts.MaxQuestions <= 0 {
		opts.MaxQuestions = defaultMaxQuestions
	}

	var failed []*engine.Result
	totalAttempts := 0
	for _, res := range results {
		if res == nil || res.WinningStrategy != engine.AllFailed {
			continue
		}
		failed = append(failed, res)
		totalAttempts += len(res.Attempts)
	}
	if len(failed) == 0 {
		return &Interview{Title: "Fetch failures"}
	}

	iv := &Interview{
		Title:   "Fetch failures",
		Context: buildContext(failed, totalAttempts),
	}
	if opts.GroupByDomain {
		iv.Questions = domainQuestions(failed, opts.MaxQuestions)
	} else {
		iv.Questions = urlQuestions(failed, opts.MaxQuestions)
	}
	return iv
}

func buildContext(failed []*engine.Result, totalAttempts int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d URLs could not be fetched after %d attempts.", len(failed), totalAttempts)
	patterns := analyze.Analyze(failed).Patterns
	if len(patterns) > 3 {
		patterns = patterns[:3]
	}
	for _, p := range patterns {
		b.WriteString("\n- ")
		b.WriteString(p)
	}
	return b.String()
}

func urlQuestions(failed []*engine.Result, max int) []Question {
	var questions []Question
	for i, res := range failed {
		if len(questions) >= max {
			break
		}
		questions = append(questions, Question{
			ID:      fmt.Sprintf("url_%d", i),
			Header:  truncate(res.Domain(), 12),
			Body:    fmt.Sprintf("%s\nfailed after %d attempts: %s", res.URL, len(res.Attempts), bestError(res)),
			Options: perURLOptions,
			URLs:    []string{res.URL},
			Domain:  res.Domain(),
		})
	}
	return questions
}

func domainQuestions(failed []*engine.Result, max int) []Question {
	byDomain := make(map[string][]*engine.Result)
	for _, res := range failed {
		d := res.Domain()
		byDomain[d] = append(byDomain[d], res)
	}

	domains := make([]string, 0, len(byDomain))
	for d := range byDomain {
		domains = append(domains, d)
	}
	// Worst domains first; name breaks ties so output stays stable.
	sort.Slice(domains, func(i, j int) bool {
		a, b := len(byDomain[domains[i]]), len(byDomain[domains[j]])
		if a != b {
			return a > b
		}
		return domains[i] < domains[j]
	})

	var questions []Question
	for _, d := range domains {
		if len(questions) >= max {
			break
		}
		group := byDomain[d]
		var b strings.Builder
		fmt.Fprintf(&b, "%d URLs failed on %s:", len(group), d)
		for i, res := range group {
			if i == 3 {
				fmt.Fprintf(&b, "\n  +%d more", len(group)-3)
				break
			}
			b.WriteString("\n  ")
			b.WriteString(res.URL)
		}
		fmt.Fprintf(&b, "\nfirst error: %s", bestError(group[0]))

		urls := make([]string, len(group))
		for i, res := range group {
			urls[i] = res.URL
		}
		questions = append(questions, Question{
			ID:      "domain_" + d,
			Header:  truncate(d, 12),
			Body:    b.String(),
			Options: perDomainOptions,
			URLs:    urls,
			Domain:  d,
		})
	}
	return questions
}

// bestError picks the most informative error text from a result's attempt
// history.
func bestError(res *engine.Result) string {
	if res.FinalAttempt != nil && res.FinalAttempt.Error != "" {
		return res.FinalAttempt.Error
	}
	for i := len(res.Attempts) - 1; i >= 0; i-- {
		if res.Attempts[i].Error != "" {
			return res.Attempts[i].Error
		}
		if res.Attempts[i].StatusCode != 0 {
			return fmt.Sprintf("HTTP %d (%s)", res.Attempts[i].StatusCode, res.Attempts[i].Verdict)
		}
	}
	return "unknown error"
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
