package scraper

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/statute-crawler/internal/statute"
)

const (
	defaultTitleSelector   = "h1"
	defaultContentSelector = "main, article, body"
)

// Generic scrapes any site described entirely by configuration.
type Generic struct {
	baseSource
	titleSelector   string
	contentSelector string
}

// NewGeneric builds a config-driven source for a jurisdiction without a dedicated one.
func NewGeneric(code string, cfg SourceConfig) Source {
	g := &Generic{
		baseSource:      cfg.base(code, "Generic "+code, "", nil),
		titleSelector:   cfg.TitleSelector,
		contentSelector: cfg.ContentSelector,
	}
	if g.titleSelector == "" {
		g.titleSelector = defaultTitleSelector
	}
	if g.contentSelector == "" {
		g.contentSelector = defaultContentSelector
	}
	return g
}

// Parse takes the first content selector, in listed order, that yields text.
func (g *Generic) Parse(target Target, doc *goquery.Document) (statute.Statute, error) {
	var content string
	for _, selector := range strings.Split(g.contentSelector, ",") {
		body := doc.Find(strings.TrimSpace(selector)).First()
		body.Find("script, style, nav, header, footer").Remove()
		if content = NormalizeText(body.Text()); content != "" {
			break
		}
	}
	if content == "" {
		return statute.Statute{}, fmt.Errorf("%w: %s", ErrNoContent, target.Citation)
	}
	return g.record(target, firstText(doc, g.titleSelector), content), nil
}
