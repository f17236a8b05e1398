package scraper

import (
	"fmt"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/statute-crawler/internal/statute"
)

const floridaBaseURL = "https://www.leg.state.fl.us"

var floridaTargets = []Target{
	floridaStatute("782", "04", "Murder", "homicide"),
	floridaStatute("782", "07", "Manslaughter", "homicide"),
	floridaStatute("784", "03", "Battery", "assault"),
	floridaStatute("812", "014", "Theft", "theft"),
	floridaStatute("812", "13", "Robbery", "robbery"),
	floridaStatute("810", "02", "Burglary", "burglary"),
}

func floridaStatute(chapter, section, title, category string) Target {
	number := chapter + "." + section
	return Target{
		Citation: "Fla. Stat. § " + number,
		Path: fmt.Sprintf(
			"/statutes/index.cfm?App_mode=Display_Statute&URL=%s/0%s/Sections/0%s.html",
			floridaRange(chapter), chapter, number,
		),
		Section:  number,
		Title:    title,
		Category: category,
	}
}

// floridaRange maps chapter 782 to its "0700-0799" directory.
func floridaRange(chapter string) string {
	if len(chapter) != 3 {
		return "0000-0099"
	}
	return "0" + chapter[:1] + "00-0" + chapter[:1] + "99"
}

// Florida scrapes the Online Sunshine statute display pages.
type Florida struct {
	baseSource
}

// NewFlorida builds the FL source.
func NewFlorida(code string, cfg SourceConfig) Source {
	return &Florida{baseSource: cfg.base(code, "The Florida Legislature Online Sunshine", floridaBaseURL, floridaTargets)}
}

// Parse reads the catchline as the title and the section body as content.
func (f *Florida) Parse(target Target, doc *goquery.Document) (statute.Statute, error) {
	content := selectionText(doc.Find("span.SectionBody"))
	if content == "" {
		return statute.Statute{}, fmt.Errorf("%w: %s", ErrNoContent, target.Citation)
	}
	title := firstText(doc, "span.CatchlineText")
	return f.record(target, title, content), nil
}
