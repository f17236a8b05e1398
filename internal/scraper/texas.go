package scraper

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/statute-crawler/internal/statute"
)

const texasBaseURL = "https://statutes.capitol.texas.gov"

var texasTargets = []Target{
	texasPenal("19.02", "Murder", "homicide"),
	texasPenal("19.03", "Capital murder", "homicide"),
	texasPenal("22.01", "Assault", "assault"),
	texasPenal("22.02", "Aggravated assault", "assault"),
	texasPenal("29.02", "Robbery", "robbery"),
	texasPenal("30.02", "Burglary", "burglary"),
	texasPenal("31.03", "Theft", "theft"),
}

func texasPenal(section, title, category string) Target {
	chapter, _, _ := strings.Cut(section, ".")
	return Target{
		Citation: "Tex. Penal Code § " + section,
		Path:     fmt.Sprintf("/Docs/PE/htm/PE.%s.htm", chapter),
		Section:  section,
		Title:    title,
		Category: category,
	}
}

// Texas scrapes whole-chapter pages from Texas Constitution and Statutes and
// slices out the requested section.
type Texas struct {
	baseSource
}

// NewTexas builds the TX source.
func NewTexas(code string, cfg SourceConfig) Source {
	return &Texas{baseSource: cfg.base(code, "Texas Constitution and Statutes", texasBaseURL, texasTargets)}
}

// Parse collects the paragraph opening "Sec. N." and every following paragraph
// up to the next section heading.
func (t *Texas) Parse(target Target, doc *goquery.Document) (statute.Statute, error) {
	heading := "Sec. " + target.Section + "."
	var (
		paragraphs []string
		title      string
		inSection  bool
	)
	doc.Find("p").EachWithBreak(func(_ int, p *goquery.Selection) bool {
		text := NormalizeText(p.Text())
		switch {
		case strings.HasPrefix(text, heading):
			inSection = true
			title = texasCaption(strings.TrimSpace(strings.TrimPrefix(text, heading)))
		case inSection && strings.HasPrefix(text, "Sec. "):
			return false
		}
		if inSection && text != "" {
			paragraphs = append(paragraphs, text)
		}
		return true
	})
	if len(paragraphs) == 0 {
		return statute.Statute{}, fmt.Errorf("%w: %s", ErrNoContent, target.Citation)
	}
	return t.record(target, title, strings.Join(paragraphs, "\n\n")), nil
}

// texasCaption turns "MURDER. (a) A person..." into "Murder".
func texasCaption(rest string) string {
	caption, _, found := strings.Cut(rest, ". ")
	if !found || caption == "" || strings.ToUpper(caption) != caption {
		return ""
	}
	words := strings.Fields(strings.ToLower(caption))
	if len(words) > 0 {
		words[0] = strings.ToUpper(words[0][:1]) + words[0][1:]
	}
	return strings.Join(words, " ")
}
