// CLAUDE:SUMMARY Text/HTML health probe: markdown rendition, printable/wordlike ratios, block-page and SPA-shell detection.
package health

import (
	"bytes"
	"strings"
	"unicode"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// blockPhrases mark anti-bot or access-denial pages regardless of status
// code: a 200 with one of these is still a failed retrieval.
var blockPhrases = []string{
	"access denied",
	"are you a robot",
	"verify you are human",
	"enable javascript and cookies",
	"captcha",
	"request blocked",
	"attention required",
}

// spaShells are empty single-page-app mount points: a page whose body is
// just one of these rendered nothing.
var spaShells = []string{
	`<div id="root"></div>`,
	`<div id="app"></div>`,
	`<div id="__next"></div>`,
}

var mdConverter = converter.NewConverter(
	converter.WithPlugins(
		base.NewBasePlugin(),
		commonmark.NewCommonmarkPlugin(),
	),
)

// checkText measures the readable-text quality of an HTML/markdown/plain
// artifact. HTML is reduced to markdown first so markup does not count as
// text.
func checkText(path string, data []byte) []string {
	text := string(data)
	lower := strings.ToLower(text)

	if strings.HasSuffix(path, ".html") || strings.HasSuffix(path, ".htm") ||
		bytes.Contains(data[:min(len(data), 512)], []byte("<")) {
		for _, shell := range spaShells {
			if strings.Contains(lower, shell) && visibleTextLen(data) < 200 {
				return []string{IssueEmpty}
			}
		}
		if md, err := mdConverter.ConvertString(text); err == nil && strings.TrimSpace(md) != "" {
			text = md
			lower = strings.ToLower(md)
		}
	}

	var issues []string
	for _, phrase := range blockPhrases {
		if strings.Contains(lower, phrase) {
			issues = append(issues, IssueBlockPage)
			break
		}
	}

	trimmed := strings.TrimSpace(text)
	switch {
	case len(trimmed) < 50:
		issues = append(issues, IssueEmpty)
	case printableRatio(trimmed) < 0.85 || wordlikeRatio(trimmed) < 0.4:
		issues = append(issues, IssueUnreadable)
	}
	return issues
}

// visibleTextLen parses HTML and counts the bytes of rendered text outside
// script/style nodes.
func visibleTextLen(data []byte) int {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return len(bytes.TrimSpace(data))
	}
	total := 0
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode &&
			(n.DataAtom == atom.Script || n.DataAtom == atom.Style || n.DataAtom == atom.Noscript) {
			return
		}
		if n.Type == html.TextNode {
			total += len(strings.TrimSpace(n.Data))
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return total
}

// printableRatio is the share of printable characters, excluding Private Use
// Area runes, replacement characters, and stray control bytes.
func printableRatio(text string) float64 {
	if text == "" {
		return 1.0
	}
	total, printable := 0, 0
	for _, r := range text {
		total++
		if isGarbageRune(r) {
			continue
		}
		if unicode.IsPrint(r) || r == '\n' || r == '\r' || r == '\t' {
			printable++
		}
	}
	return float64(printable) / float64(total)
}

func isGarbageRune(r rune) bool {
	if r >= 0xE000 && r <= 0xF8FF {
		return true
	}
	if r == 0xFFFD {
		return true
	}
	if r < 0x0020 && r != '\n' && r != '\r' && r != '\t' {
		return true
	}
	return false
}

// wordlikeRatio is the share of whitespace-split tokens with a plausible
// word length (2-15 runes). Garbled extractions score low here.
func wordlikeRatio(text string) float64 {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return 0
	}
	wordlike := 0
	for _, f := range fields {
		n := len([]rune(f))
		if n >= 2 && n <= 15 {
			wordlike++
		}
	}
	return float64(wordlike) / float64(len(fields))
}
