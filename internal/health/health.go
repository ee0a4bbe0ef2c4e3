// CLAUDE:SUMMARY Content-health checks on retrieved artifacts plus the downstream notifier contract.
// Package health runs lightweight quality checks on retrieved artifacts and
// reports issues to a downstream document consumer.
//
// The checks do not extract content for use; they only measure whether the
// retrieved bytes look like the document the caller wanted (readable text,
// not a block page, not an encrypted PDF).
package health

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// Known issue labels surfaced by checks.
const (
	IssueUnreadable = "unreadable_content"
	IssueProtected  = "protected_content"
	IssueBlockPage  = "block_page"
	IssueEmpty      = "empty_content"
	IssueFetchFail  = "fetch_failed"
)

// Notifier is the downstream document-health consumer. Notifications are
// fire-and-forget: callers log the returned error and move on.
type Notifier interface {
	Notify(ctx context.Context, url string, issues []string, strategyUsed, contextText string) error
}

// LogNotifier is the default Notifier: it records the notification in the
// service log and nothing else.
type LogNotifier struct {
	Logger *slog.Logger
}

// Notify logs the health notification.
func (n *LogNotifier) Notify(_ context.Context, url string, issues []string, strategyUsed, contextText string) error {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("document health notification",
		"url", url, "issues", strings.Join(issues, ","),
		"strategy", strategyUsed, "context", contextText)
	return nil
}

// documentExtensions are URL path suffixes treated as document-retrieval
// targets. Only these trigger health checks and notifications.
var documentExtensions = map[string]bool{
	".pdf": true, ".doc": true, ".docx": true, ".odt": true,
	".rtf": true, ".epub": true,
}

// IsDocumentTarget reports whether rawURL points at a document artifact.
func IsDocumentTarget(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return documentExtensions[strings.ToLower(filepath.Ext(u.Path))]
}

// CheckFile inspects a retrieved artifact and returns the issues found.
// An empty slice means the artifact looks healthy. Unknown formats yield no
// issues: the check is advisory, not a gate.
func CheckFile(path string) []string {
	info, err := os.Stat(path)
	if err != nil {
		return []string{IssueUnreadable}
	}
	if info.Size() == 0 {
		return []string{IssueEmpty}
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return checkPDF(path)
	case ".html", ".htm", ".md", ".txt":
		data, err := os.ReadFile(path)
		if err != nil {
			return []string{IssueUnreadable}
		}
		return checkText(path, data)
	default:
		return nil
	}
}

// Summary renders a short context line for a notification.
func Summary(issues []string, attempts int) string {
	if len(issues) == 0 {
		return fmt.Sprintf("healthy after %d attempts", attempts)
	}
	return fmt.Sprintf("issues after %d attempts: %s", attempts, strings.Join(issues, ", "))
}
