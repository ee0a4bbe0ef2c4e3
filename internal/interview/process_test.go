package interview

import (
	"testing"
)

func oneQuestionInterview() *Interview {
	return &Interview{
		Title: "Fetch failures",
		Questions: []Question{{
			ID:      "q1",
			Header:  "x.test",
			Options: perDomainOptions,
			URLs:    []string{"https://x.test/doc"},
			Domain:  "x.test",
		}},
	}
}

func processOne(t *testing.T, decision, text string) RecoveryAction {
	t.Helper()
	iv := oneQuestionInterview()
	actions := ProcessAnswers(iv, &Response{
		Completed: true,
		Responses: map[string]Answer{"q1": {Decision: decision, OtherText: text}},
	})
	if len(actions) != 1 {
		t.Fatalf("actions = %d, want 1", len(actions))
	}
	return actions[0]
}

func TestProcessAnswers_MirrorExtractsURL(t *testing.T) {
	// WHAT: a mirror answer with "try https://mirror.example.org/doc"
	// yields a mirror action carrying that URL.
	// WHY: the executor re-fetches exactly what the human typed.
	a := processOne(t, "Try this mirror", "try https://mirror.example.org/doc")
	if a.Type != ActionMirror {
		t.Fatalf("type = %q", a.Type)
	}
	if a.MirrorURL != "https://mirror.example.org/doc" {
		t.Errorf("mirror_url = %q", a.MirrorURL)
	}
}

func TestProcessAnswers_MirrorNormalizesBareWWW(t *testing.T) {
	// WHAT: a bare www. token gets an https scheme.
	// WHY: humans type hostnames, not URLs.
	a := processOne(t, "Try this mirror", "use www.mirror.example instead")
	if a.MirrorURL != "https://www.mirror.example" {
		t.Errorf("mirror_url = %q", a.MirrorURL)
	}
}

func TestProcessAnswers_CredentialFormats(t *testing.T) {
	// WHAT: the three credential spellings parse in priority order; an
	// unparseable text is kept as a hint.
	// WHY: losing a typed password silently would burn the human's trust.
	cases := []struct {
		text       string
		user, pass string
		hint       string
	}{
		{"username: alice password: s3cret", "alice", "s3cret", ""},
		{"user=bob pass=hunter2", "bob", "hunter2", ""},
		{"carol / letmein", "carol", "letmein", ""},
		{"ask the intranet wiki", "", "", "ask the intranet wiki"},
	}
	for _, c := range cases {
		a := processOne(t, "I have credentials", c.text)
		if a.Type != ActionCredentials {
			t.Fatalf("%q: type = %q", c.text, a.Type)
		}
		if a.Username != c.user || a.Password != c.pass || a.Hint != c.hint {
			t.Errorf("%q: got (%q, %q, hint %q), want (%q, %q, hint %q)",
				c.text, a.Username, a.Password, a.Hint, c.user, c.pass, c.hint)
		}
	}
}

func TestProcessAnswers_RemainingDecisions(t *testing.T) {
	// WHAT: the remaining labels map to their action types, matched
	// case-insensitively on substrings.
	// WHY: the mapping is the protocol between generator and executor.
	cases := []struct {
		decision string
		text     string
		want     string
	}{
		{"I'll download manually", "/tmp/doc.pdf", ActionManualFile},
		{"Skip it", "", ActionSkip},
		{"skip all", "", ActionSkip},
		{"retry later", "", ActionRetry},
		{"Try different strategy", "use the proxy", ActionCustomStrategy},
		{"Handle individually", "", ActionExpandDomain},
	}
	for _, c := range cases {
		a := processOne(t, c.decision, c.text)
		if a.Type != c.want {
			t.Errorf("%q: type = %q, want %q", c.decision, a.Type, c.want)
		}
	}
}

func TestProcessAnswers_ManualFileKeepsPath(t *testing.T) {
	// WHAT: the manual_file action uses the free text verbatim as a path.
	a := processOne(t, "I'll download manually", "/home/op/report.pdf")
	if a.FilePath != "/home/op/report.pdf" {
		t.Errorf("file_path = %q", a.FilePath)
	}
}

func TestProcessAnswers_RetryCarriesDefaultDelay(t *testing.T) {
	// WHAT: retry actions default to a 3600s delay.
	a := processOne(t, "retry later", "")
	if a.RetryAfterSeconds != 3600 {
		t.Errorf("retry_after = %d", a.RetryAfterSeconds)
	}
}

func TestProcessAnswers_UnansweredYieldNothing(t *testing.T) {
	// WHAT: missing or empty answers produce no action, not an error.
	// WHY: a smaller action list than questions asked is the contract.
	iv := oneQuestionInterview()
	actions := ProcessAnswers(iv, &Response{Completed: true, Responses: map[string]Answer{}})
	if len(actions) != 0 {
		t.Errorf("actions = %v, want none", actions)
	}
	actions = ProcessAnswers(iv, &Response{
		Responses: map[string]Answer{"q1": {Decision: "press the any key"}},
	})
	if len(actions) != 0 {
		t.Errorf("unclassifiable decision yielded %v", actions)
	}
	if ProcessAnswers(iv, nil) != nil {
		t.Error("nil response yielded actions")
	}
}
