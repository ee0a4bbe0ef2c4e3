// CLAUDE:SUMMARY PDF health probe via pdfcpu: encrypted and page-less documents.
package health

import (
	"os"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// checkPDF probes a PDF without extracting it: encrypted files surface as
// protected content, structurally broken or page-less files as unreadable.
func checkPDF(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return []string{IssueUnreadable}
	}
	defer f.Close()

	conf := model.NewDefaultConfiguration()
	ctx, err := api.ReadValidateAndOptimize(f, conf)
	if err != nil {
		msg := strings.ToLower(err.Error())
		if strings.Contains(msg, "encrypt") || strings.Contains(msg, "password") {
			return []string{IssueProtected}
		}
		return []string{IssueUnreadable}
	}

	if ctx.XRefTable != nil && ctx.XRefTable.Encrypt != nil {
		return []string{IssueProtected}
	}
	if ctx.PageCount == 0 {
		return []string{IssueEmpty}
	}
	return nil
}
