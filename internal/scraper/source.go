// Package scraper drives per-jurisdiction statute acquisition: policy-guarded
// fetches, source-specific parsing, and idempotent persistence with session tracking.
package scraper

import (
	"errors"
	"net/url"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/statute-crawler/internal/statute"
)

// ErrNoContent is returned by a parser when the page has no statute text.
var ErrNoContent = errors.New("statute content not found")

// Target is one curated document a source knows how to fetch.
type Target struct {
	Citation string `mapstructure:"citation"`
	// Path is absolute or relative to the source's base URL.
	Path     string `mapstructure:"path"`
	Section  string `mapstructure:"section"`
	Title    string `mapstructure:"title"`
	Category string `mapstructure:"category"`
}

// Source is the jurisdiction-specific half of a scraper: where documents live and
// how a fetched page becomes a statute record.
type Source interface {
	Jurisdiction() string
	Name() string
	BaseURL() string
	Targets() []Target
	Parse(target Target, doc *goquery.Document) (statute.Statute, error)
}

// ResolveURL joins a target path onto the source's base URL.
func ResolveURL(baseURL, path string) (string, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}
	ref, err := url.Parse(path)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(ref).String(), nil
}

// baseSource carries the fields every concrete source shares.
type baseSource struct {
	jurisdiction string
	name         string
	baseURL      string
	targets      []Target
}

func (b baseSource) Jurisdiction() string { return b.jurisdiction }

func (b baseSource) Name() string { return b.name }

func (b baseSource) BaseURL() string { return b.baseURL }

func (b baseSource) Targets() []Target {
	out := make([]Target, len(b.targets))
	copy(out, b.targets)
	return out
}

func (b baseSource) record(target Target, title, content string) statute.Statute {
	if title == "" {
		title = target.Title
	}
	return statute.Statute{
		Citation:      target.Citation,
		Title:         title,
		Content:       content,
		Jurisdiction:  b.jurisdiction,
		Category:      target.Category,
		Penalties:     ExtractPenalties(content),
		EffectiveDate: ExtractEffectiveDate(content),
	}
}
