package scraper

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrUnknownJurisdiction is returned when no dedicated or generic source exists.
var ErrUnknownJurisdiction = errors.New("unknown jurisdiction")

// SourceConfig is the per-jurisdiction configuration block. Dedicated sources
// only honor BaseURL and Name; the generic source uses every field.
type SourceConfig struct {
	Name            string   `mapstructure:"name"`
	BaseURL         string   `mapstructure:"base_url"`
	TitleSelector   string   `mapstructure:"title_selector"`
	ContentSelector string   `mapstructure:"content_selector"`
	Targets         []Target `mapstructure:"targets"`
}

func (c SourceConfig) base(code, name, baseURL string, targets []Target) baseSource {
	if c.Name != "" {
		name = c.Name
	}
	if c.BaseURL != "" {
		baseURL = c.BaseURL
	}
	if len(c.Targets) > 0 && targets == nil {
		targets = c.Targets
	}
	return baseSource{jurisdiction: code, name: name, baseURL: baseURL, targets: targets}
}

// Constructor builds a source for a jurisdiction code.
type Constructor func(code string, cfg SourceConfig) Source

// Registry maps jurisdiction codes to source constructors.
type Registry struct {
	constructors map[string]Constructor
	routes       map[string]string
	configs      map[string]SourceConfig
}

// NewRegistry builds a registry with the dedicated sources and the New York
// route already registered. configs is keyed by jurisdiction code.
func NewRegistry(configs map[string]SourceConfig) *Registry {
	r := &Registry{
		constructors: make(map[string]Constructor),
		routes:       make(map[string]string),
		configs:      make(map[string]SourceConfig, len(configs)),
	}
	for code, cfg := range configs {
		r.configs[normalizeCode(code)] = cfg
	}
	r.Register("CA", NewCalifornia)
	r.Register("TX", NewTexas)
	r.Register("FL", NewFlorida)
	r.Register("NY-SENATE", NewNYSenate)
	r.Route("NY", "NY-SENATE")
	return r
}

// Register adds or replaces the constructor for key.
func (r *Registry) Register(key string, ctor Constructor) {
	r.constructors[normalizeCode(key)] = ctor
}

// Route sends jurisdiction from to the constructor registered under to. It is used
// when the obvious primary site disallows crawling.
func (r *Registry) Route(from, to string) {
	r.routes[normalizeCode(from)] = normalizeCode(to)
}

// Resolve returns the source for jurisdiction. With generic set, or when no
// dedicated constructor exists, it falls back to a configured generic source.
func (r *Registry) Resolve(jurisdiction string, generic bool) (Source, error) {
	code := normalizeCode(jurisdiction)
	if code == "" {
		return nil, fmt.Errorf("%w: empty code", ErrUnknownJurisdiction)
	}
	cfg := r.configs[code]
	if !generic {
		key := code
		if routed, ok := r.routes[code]; ok {
			key = routed
		}
		if ctor, ok := r.constructors[key]; ok {
			return ctor(code, cfg), nil
		}
	}
	if len(cfg.Targets) > 0 && cfg.BaseURL != "" {
		return NewGeneric(code, cfg), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownJurisdiction, code)
}

// Known reports whether Resolve would succeed for jurisdiction.
func (r *Registry) Known(jurisdiction string) bool {
	_, err := r.Resolve(jurisdiction, false)
	return err == nil
}

// Jurisdictions lists every code Resolve accepts, sorted.
func (r *Registry) Jurisdictions() []string {
	set := make(map[string]struct{})
	for key := range r.constructors {
		set[key] = struct{}{}
	}
	for from := range r.routes {
		set[from] = struct{}{}
	}
	for code, cfg := range r.configs {
		if len(cfg.Targets) > 0 && cfg.BaseURL != "" {
			set[code] = struct{}{}
		}
	}
	for _, to := range r.routes {
		delete(set, to)
	}
	out := make([]string, 0, len(set))
	for code := range set {
		out = append(out, code)
	}
	slices.Sort(out)
	return out
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
