// CLAUDE:SUMMARY Interview capability: Runner interface, subprocess implementation, in-memory fake.
package interview

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
	"time"
)

// Runner presents an interview to a human and collects the answers. A nil
// or failing runner means escalation is unavailable; callers treat that as
// "no answers", not as a fetch failure.
type Runner interface {
	Run(ctx context.Context, iv *Interview) (*Response, error)
}

// ExecRunner shells out to an external interview tool. The interview is
// written to stdin as JSON; the tool prints a Response as JSON on stdout.
type ExecRunner struct {
	Command string
	Args    []string
	Timeout time.Duration
	Logger  *slog.Logger
}

// Run blocks until the human completes or dismisses the interview, or the
// timeout elapses.
func (r *ExecRunner) Run(ctx context.Context, iv *Interview) (*Response, error) {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	payload, err := json.Marshal(iv)
	if err != nil {
		return nil, fmt.Errorf("encode interview: %w", err)
	}

	cmd := exec.CommandContext(ctx, r.Command, r.Args...)
	cmd.Stdin = bytes.NewReader(payload)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("interview tool: %w", ctx.Err())
		}
		return nil, fmt.Errorf("interview tool: %w (stderr: %s)", err, stderr.String())
	}

	var resp Response
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return nil, fmt.Errorf("decode interview response: %w", err)
	}
	if r.Logger != nil {
		r.Logger.Debug("interview completed",
			"questions", len(iv.Questions), "answers", len(resp.Responses))
	}
	return &resp, nil
}

// FakeRunner answers every question with a fixed decision. Test helper.
type FakeRunner struct {
	Decision string
	Text     string
	Err      error

	LastInterview *Interview
}

func (f *FakeRunner) Run(ctx context.Context, iv *Interview) (*Response, error) {
	f.LastInterview = iv
	if f.Err != nil {
		return nil, f.Err
	}
	resp := &Response{Completed: true, Responses: make(map[string]Answer)}
	for _, q := range iv.Questions {
		resp.Responses[q.ID] = Answer{Decision: f.Decision, OtherText: f.Text}
	}
	return resp, nil
}
