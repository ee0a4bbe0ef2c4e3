// CLAUDE:SUMMARY Escalation interview types: questions with fixed options, responses keyed by question ID.
// Package interview turns unrecoverable fetch failures into human-answerable
// questions and maps the answers back into typed recovery actions.
package interview

// Option is one selectable answer for a question. Labels drive the answer
// classification in ProcessAnswers, so they stay stable.
type Option struct {
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
}

// Question asks a human what to do about one failed URL or one failing
// domain. URLs carries the concrete targets the answer applies to.
type Question struct {
	ID      string   `json:"id"`
	Header  string   `json:"header"`
	Body    string   `json:"body"`
	Options []Option `json:"options"`
	URLs    []string `json:"urls"`
	Domain  string   `json:"domain,omitempty"`
}

// Interview is the payload handed to the interview capability.
type Interview struct {
	Title     string     `json:"title"`
	Context   string     `json:"context"`
	Questions []Question `json:"questions"`
}

// Empty reports whether there is nothing to ask.
func (iv *Interview) Empty() bool {
	return iv == nil || len(iv.Questions) == 0
}

// Answer is one human response: the selected option label plus optional
// free text.
type Answer struct {
	Decision  string `json:"decision"`
	Value     string `json:"value,omitempty"`
	OtherText string `json:"other_text,omitempty"`
}

// Text returns the free-text supplement, preferring OtherText.
func (a Answer) Text() string {
	if a.OtherText != "" {
		return a.OtherText
	}
	return a.Value
}

// Response is what the interview capability returns. Responses is keyed by
// Question.ID; missing keys mean the question went unanswered.
type Response struct {
	Completed bool              `json:"completed"`
	Responses map[string]Answer `json:"responses"`
}
