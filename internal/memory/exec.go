// CLAUDE:SUMMARY Subprocess Memory implementation: JSON over stdin/stdout to a sibling memory tool.
package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
)

// ExecMemory shells out to a sibling memory tool. Each verb is one process
// invocation: the request is written to stdin as JSON, the reply read from
// stdout. The tool's CLI contract is `<cmd> recall` and `<cmd> learn`.
type ExecMemory struct {
	command string
	args    []string
	logger  *slog.Logger
}

// NewExec creates an ExecMemory invoking command with the given base args.
func NewExec(command string, args []string, logger *slog.Logger) *ExecMemory {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExecMemory{command: command, args: args, logger: logger}
}

// Recall runs the recall verb.
func (m *ExecMemory) Recall(ctx context.Context, query string) (*RecallResult, error) {
	req := map[string]string{"query": query}
	out, err := m.run(ctx, "recall", req)
	if err != nil {
		return nil, err
	}
	var res RecallResult
	if err := json.Unmarshal(out, &res); err != nil {
		return nil, fmt.Errorf("memory recall: decode reply: %w", err)
	}
	return &res, nil
}

// Learn runs the learn verb.
func (m *ExecMemory) Learn(ctx context.Context, problem, solution string, tags []string) error {
	req := map[string]any{"problem": problem, "solution": solution, "tags": tags}
	out, err := m.run(ctx, "learn", req)
	if err != nil {
		return err
	}
	var res struct {
		OK    bool   `json:"ok"`
		Error string `json:"error"`
	}
	if err := json.Unmarshal(out, &res); err != nil {
		return fmt.Errorf("memory learn: decode reply: %w", err)
	}
	if !res.OK {
		return fmt.Errorf("memory learn: tool refused: %s", res.Error)
	}
	return nil
}

func (m *ExecMemory) run(ctx context.Context, verb string, req any) ([]byte, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("memory %s: encode request: %w", verb, err)
	}

	args := append(append([]string{}, m.args...), verb)
	cmd := exec.CommandContext(ctx, m.command, args...)
	cmd.Stdin = bytes.NewReader(payload)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		m.logger.Debug("memory: tool invocation failed",
			"verb", verb, "error", err, "stderr", stderr.String())
		return nil, fmt.Errorf("memory %s: %w", verb, err)
	}
	return stdout.Bytes(), nil
}
