package scraper

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/statute-crawler/internal/statute"
)

// The Legislative Bill Drafting Commission site (public.leginfo.state.ny.us)
// disallows crawlers, so New York statutes come from the Senate's Open Legislation pages.
const nySenateBaseURL = "https://www.nysenate.gov"

var nySenateTargets = []Target{
	nyPenal("125.25", "Murder in the second degree", "homicide"),
	nyPenal("125.20", "Manslaughter in the first degree", "homicide"),
	nyPenal("120.00", "Assault in the third degree", "assault"),
	nyPenal("160.05", "Robbery in the third degree", "robbery"),
	nyPenal("140.20", "Burglary in the third degree", "burglary"),
	nyPenal("155.25", "Petit larceny", "theft"),
}

func nyPenal(section, title, category string) Target {
	return Target{
		Citation: "N.Y. Penal Law § " + section,
		Path:     "/legislation/laws/PEN/" + section,
		Section:  section,
		Title:    title,
		Category: category,
	}
}

// NYSenate scrapes New York consolidated law sections from nysenate.gov.
type NYSenate struct {
	baseSource
}

// NewNYSenate builds the New York Senate Open Legislation source.
func NewNYSenate(code string, cfg SourceConfig) Source {
	return &NYSenate{baseSource: cfg.base(code, "New York State Senate Open Legislation", nySenateBaseURL, nySenateTargets)}
}

// Parse reads the Open Legislation result title and text blocks.
func (n *NYSenate) Parse(target Target, doc *goquery.Document) (statute.Statute, error) {
	content := selectionText(doc.Find(".nys-openleg-result-text"))
	if content == "" {
		return statute.Statute{}, fmt.Errorf("%w: %s", ErrNoContent, target.Citation)
	}
	title := firstText(doc, ".nys-openleg-result-title-short", ".nys-openleg-result-title")
	title = strings.TrimSpace(strings.TrimPrefix(title, "SECTION "+target.Section))
	return n.record(target, title, content), nil
}
