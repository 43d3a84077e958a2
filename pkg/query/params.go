// Package query keeps the region/country/state/city selection in the form of
// URL query parameters.
package query

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/adrianmross/geo-tree/pkg/geo"
)

// Params is the selection mirrored into the query string.
type Params struct {
	Region  string `json:"region,omitempty" yaml:"region,omitempty"`
	Country string `json:"country,omitempty" yaml:"country,omitempty"`
	State   string `json:"state,omitempty" yaml:"state,omitempty"`
	City    string `json:"city,omitempty" yaml:"city,omitempty"`
}

// Parse accepts a full URL, a "?a=b" string, or a bare "a=b&c=d" string.
func Parse(raw string) (Params, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Params{}, nil
	}
	q := raw
	if strings.Contains(raw, "://") {
		u, err := url.Parse(raw)
		if err != nil {
			return Params{}, fmt.Errorf("parse url: %w", err)
		}
		q = u.RawQuery
	} else if i := strings.Index(raw, "?"); i >= 0 {
		q = raw[i+1:]
	}
	vals, err := url.ParseQuery(q)
	if err != nil {
		return Params{}, fmt.Errorf("parse query: %w", err)
	}
	return FromValues(vals), nil
}

// FromValues reads the four parameters from vals.
func FromValues(vals url.Values) Params {
	return Params{
		Region:  vals.Get("region"),
		Country: vals.Get("country"),
		State:   vals.Get("state"),
		City:    vals.Get("city"),
	}
}

// Values returns the non-empty parameters as url.Values.
func (p Params) Values() url.Values {
	vals := url.Values{}
	for l := geo.Regions; l <= geo.Cities; l++ {
		if v := p.Get(l); v != "" {
			vals.Set(l.Param(), v)
		}
	}
	return vals
}

// Encode renders the parameters in hierarchy order (region first).
func (p Params) Encode() string {
	parts := make([]string, 0, 4)
	for l := geo.Regions; l <= geo.Cities; l++ {
		if v := p.Get(l); v != "" {
			parts = append(parts, l.Param()+"="+url.QueryEscape(v))
		}
	}
	return strings.Join(parts, "&")
}

func (p Params) String() string { return p.Encode() }


// Get returns the parameter bound to level.
func (p Params) Get(level geo.Level) string {
	switch level {
	case geo.Regions:
		return p.Region
	case geo.Countries:
		return p.Country
	case geo.States:
		return p.State
	case geo.Cities:
		return p.City
	}
	return ""
}

// Set returns a copy with level set to value and every deeper level cleared.
func (p Params) Set(level geo.Level, value string) Params {
	switch level {
	case geo.Regions:
		return Params{Region: value}
	case geo.Countries:
		return Params{Region: p.Region, Country: value}
	case geo.States:
		return Params{Region: p.Region, Country: p.Country, State: value}
	case geo.Cities:
		p.City = value
	}
	return p
}

// Depth is the deepest level set, or -1 when empty. Gaps end the walk, so
// "region=&country=X" has depth -1.
func (p Params) Depth() geo.Level {
	depth := geo.Level(-1)
	for l := geo.Regions; l <= geo.Cities; l++ {
		if p.Get(l) == "" {
			break
		}
		depth = l
	}
	return depth
}

// FromChain builds parameters from an ancestor chain starting at a region.
// Names are normalized, deeper levels are left empty.
func FromChain(chain []geo.Node) Params {
	var p Params
	for _, n := range chain {
		p = p.Set(n.Level, n.DisplayName())
	}
	return p
}
