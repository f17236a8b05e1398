package scraper

import (
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const maxPenaltyClauses = 3

var (
	penaltyPattern = regexp.MustCompile(
		`(?i)[^.;]*\b(punishable by|felony of the \w+ degree|capital felony|class [a-e] (?:misdemeanor|felony))\b[^.;]*[.;]?`,
	)
	effectivePattern = regexp.MustCompile(`Effective ([A-Z][a-z]+ \d{1,2}, \d{4})`)
)

// NormalizeText collapses runs of whitespace (including non-breaking spaces) into single spaces.
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// ExtractPenalties returns up to three sentences that state a punishment.
func ExtractPenalties(text string) string {
	matches := penaltyPattern.FindAllString(text, -1)
	seen := make(map[string]struct{}, len(matches))
	clauses := make([]string, 0, maxPenaltyClauses)
	for _, m := range matches {
		m = NormalizeText(m)
		if m == "" {
			continue
		}
		if _, dup := seen[m]; dup {
			continue
		}
		seen[m] = struct{}{}
		clauses = append(clauses, m)
		if len(clauses) == maxPenaltyClauses {
			break
		}
	}
	return strings.Join(clauses, " ")
}

// ExtractEffectiveDate finds the last "Effective Month D, YYYY" note in text.
func ExtractEffectiveDate(text string) *time.Time {
	matches := effectivePattern.FindAllStringSubmatch(text, -1)
	for i := len(matches) - 1; i >= 0; i-- {
		ts, err := time.Parse("January 2, 2006", matches[i][1])
		if err == nil {
			return &ts
		}
	}
	return nil
}

// selectionText joins the normalized text of each node, one paragraph per node.
func selectionText(sel *goquery.Selection) string {
	parts := make([]string, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		if text := NormalizeText(s.Text()); text != "" {
			parts = append(parts, text)
		}
	})
	return strings.Join(parts, "\n\n")
}

// firstText returns the normalized text of the first selector that yields any.
func firstText(doc *goquery.Document, selectors ...string) string {
	for _, selector := range selectors {
		if text := NormalizeText(doc.Find(selector).First().Text()); text != "" {
			return text
		}
	}
	return ""
}
