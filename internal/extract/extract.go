// Package extract narrows fetched HTML to the watched signal text.
package extract

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var spaceRe = regexp.MustCompile(`\s+`)

// Result is the normalized text the fingerprint engine consumes.
type Result struct {
	Text string
	// SelectorMissed is set when a selector was configured but matched no
	// elements; the whole-page text is used instead. Non-fatal.
	SelectorMissed bool
}

// Extract parses the body and returns normalized visible text. When selector
// is non-empty the text of all matching elements is concatenated; zero
// matches fall back to the whole page. Whitespace (including NBSP) is
// collapsed and trimmed. Case is preserved: the content hash stays sensitive
// to case-only edits, keyword matching folds case separately.
func Extract(body []byte, selector string) (Result, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("parse html: %w", err)
	}

	if selector != "" {
		sel := doc.Find(selector)
		if sel.Length() > 0 {
			var parts []string
			sel.Each(func(_ int, s *goquery.Selection) {
				parts = append(parts, s.Text())
			})
			return Result{Text: Normalize(strings.Join(parts, " "))}, nil
		}
		return Result{Text: wholePageText(doc), SelectorMissed: true}, nil
	}

	return Result{Text: wholePageText(doc)}, nil
}

func wholePageText(doc *goquery.Document) string {
	// Script and style bodies are not visible text.
	doc.Find("script, style, noscript").Remove()
	return Normalize(doc.Text())
}

// Normalize collapses runs of whitespace to single spaces and trims.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, " ", " ")
	text = spaceRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
