// CLAUDE:SUMMARY Transient-vs-terminal error classification for the retry loop.
package engine

import (
	"context"
	"errors"
	"net"
	"strings"
)

// isTransient reports whether a fetch error is worth a retry of the same
// strategy. Only timeout-shaped failures qualify; everything else is
// terminal for the strategy and the engine advances to the next one.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "timed out") ||
		strings.Contains(msg, "deadline exceeded")
}
