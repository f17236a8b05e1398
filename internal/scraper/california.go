package scraper

import (
	"fmt"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/statute-crawler/internal/statute"
)

const californiaBaseURL = "https://leginfo.legislature.ca.gov"

var californiaTargets = []Target{
	californiaPenal("187", "Murder", "homicide"),
	californiaPenal("192", "Manslaughter", "homicide"),
	californiaPenal("211", "Robbery", "robbery"),
	californiaPenal("242", "Battery", "assault"),
	californiaPenal("245", "Assault with a deadly weapon", "assault"),
	californiaPenal("459", "Burglary", "burglary"),
	californiaPenal("484", "Theft", "theft"),
	californiaPenal("487", "Grand theft", "theft"),
}

func californiaPenal(section, title, category string) Target {
	return Target{
		Citation: "Cal. Penal Code § " + section,
		Path:     fmt.Sprintf("/faces/codes_displaySection.xhtml?lawCode=PEN&sectionNum=%s.", section),
		Section:  section,
		Title:    title,
		Category: category,
	}
}

// California scrapes single-section pages from the California Legislative Information site.
type California struct {
	baseSource
}

// NewCalifornia builds the CA source. An empty cfg.BaseURL uses the public site.
func NewCalifornia(code string, cfg SourceConfig) Source {
	return &California{baseSource: cfg.base(code, "California Legislative Information", californiaBaseURL, californiaTargets)}
}

// Parse reads the section body rendered inside #codeLawSectionNoHead.
func (c *California) Parse(target Target, doc *goquery.Document) (statute.Statute, error) {
	section := doc.Find("#codeLawSectionNoHead").First()
	if section.Length() == 0 {
		return statute.Statute{}, fmt.Errorf("%w: %s", ErrNoContent, target.Citation)
	}
	content := selectionText(section.Find("p"))
	if content == "" {
		content = NormalizeText(section.Text())
	}
	if content == "" {
		return statute.Statute{}, fmt.Errorf("%w: %s", ErrNoContent, target.Citation)
	}
	return c.record(target, "", content), nil
}
