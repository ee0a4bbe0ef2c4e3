// CLAUDE:SUMMARY Answer processor: classifies human answers into typed recovery actions.
package interview

import (
	"regexp"
	"strings"
)

// Recovery action types. Each one maps to a distinct execution path in
// the recovery executor.
const (
	ActionCredentials    = "credentials"
	ActionMirror         = "mirror"
	ActionManualFile     = "manual_file"
	ActionSkip           = "skip"
	ActionRetry          = "retry"
	ActionCustomStrategy = "custom_strategy"
	ActionExpandDomain   = "expand_domain"
)

const defaultRetryAfterSeconds = 3600

// RecoveryAction is a typed, executable instruction derived from one
// answered question.
type RecoveryAction struct {
	Type   string   `json:"action_type"`
	URLs   []string `json:"urls"`
	Domain string   `json:"domain,omitempty"`

	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
	// Hint carries unparsed credential text verbatim.
	Hint string `json:"hint,omitempty"`

	MirrorURL         string `json:"mirror_url,omitempty"`
	FilePath          string `json:"file_path,omitempty"`
	Notes             string `json:"notes,omitempty"`
	RetryAfterSeconds int    `json:"retry_after_seconds,omitempty"`
}

var (
	credColonRe = regexp.MustCompile(`(?i)username:\s*(\S+)\s+password:\s*(\S+)`)
	credEqRe    = regexp.MustCompile(`(?i)user=(\S+)\s+pass=(\S+)`)
	credSlashRe = regexp.MustCompile(`^\s*(\S+)\s*/\s*(\S+)\s*$`)
	urlRe       = regexp.MustCompile(`https?://\S+`)
	wwwRe       = regexp.MustCompile(`\bwww\.\S+`)
)

// ProcessAnswers maps each answered question to at most one recovery
// action. Unanswered or unclassifiable answers produce no action, so the
// returned list may be shorter than the question list.
func ProcessAnswers(iv *Interview, resp *Response) []RecoveryAction {
	if iv == nil || resp == nil || len(resp.Responses) == 0 {
		return nil
	}

	var actions []RecoveryAction
	for _, q := range iv.Questions {
		answer, ok := resp.Responses[q.ID]
		if !ok || answer.Decision == "" {
			continue
		}
		if action, ok := classify(q, answer); ok {
			actions = append(actions, action)
		}
	}
	return actions
}

func classify(q Question, answer Answer) (RecoveryAction, bool) {
	decision := strings.ToLower(answer.Decision)
	text := strings.TrimSpace(answer.Text())
	action := RecoveryAction{URLs: q.URLs, Domain: q.Domain, Notes: text}

	switch {
	case strings.Contains(decision, "credentials"):
		action.Type = ActionCredentials
		action.Username, action.Password, action.Hint = parseCredentials(text)
	case strings.Contains(decision, "mirror") || strings.Contains(decision, "alternate"):
		action.Type = ActionMirror
		action.MirrorURL = extractURL(text)
	case strings.Contains(decision, "download") || strings.Contains(decision, "manually"):
		action.Type = ActionManualFile
		action.FilePath = text
	case strings.Contains(decision, "skip"):
		action.Type = ActionSkip
	case strings.Contains(decision, "retry") || strings.Contains(decision, "later"):
		action.Type = ActionRetry
		action.RetryAfterSeconds = defaultRetryAfterSeconds
	case strings.Contains(decision, "different strategy"):
		action.Type = ActionCustomStrategy
	case strings.Contains(decision, "individually"):
		action.Type = ActionExpandDomain
	default:
		return RecoveryAction{}, false
	}
	return action, true
}

// parseCredentials tries the supported credential spellings in priority
// order. When none match, the whole text is kept as a hint.
func parseCredentials(text string) (username, password, hint string) {
	if m := credColonRe.FindStringSubmatch(text); m != nil {
		return m[1], m[2], ""
	}
	if m := credEqRe.FindStringSubmatch(text); m != nil {
		return m[1], m[2], ""
	}
	if m := credSlashRe.FindStringSubmatch(text); m != nil {
		return m[1], m[2], ""
	}
	return "", "", text
}

// extractURL finds the first well-formed URL in free text. Bare
// www-prefixed tokens get an https scheme.
func extractURL(text string) string {
	if m := urlRe.FindString(text); m != "" {
		return strings.TrimRight(m, ".,;")
	}
	if m := wwwRe.FindString(text); m != "" {
		return "https://" + strings.TrimRight(m, ".,;")
	}
	return ""
}
