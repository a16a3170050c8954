// Package pricing classifies model names into pricing families and
// estimates USD cost from token deltas.
//
// Rates ship with the binary at current public API prices and can be
// overridden by a YAML table so stale builds keep producing honest numbers.
package pricing

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hmcrab/bakeoff/internal/usage"
)

// Family is a pricing tier for cost lookup.
type Family string

const (
	Opus    Family = "opus"
	Sonnet  Family = "sonnet"
	Haiku   Family = "haiku"
	Local   Family = "local"   // locally served, costs nothing
	Unknown Family = "unknown" // API model with no known rate
)

// Classify maps a model identifier to its pricing family.
//
// Family keywords win over vendor keywords: "claude-sonnet-4-5" is Sonnet,
// not Unknown. An API model without a family keyword is Unknown; anything
// else is assumed locally served.
func Classify(name string) Family {
	n := strings.ToLower(name)
	switch {
	case strings.Contains(n, "opus"):
		return Opus
	case strings.Contains(n, "sonnet"):
		return Sonnet
	case strings.Contains(n, "haiku"):
		return Haiku
	case strings.Contains(n, "claude"), strings.Contains(n, "anthropic"):
		return Unknown
	default:
		return Local
	}
}

// Rates holds USD per 1M tokens for a family.
type Rates struct {
	Input  float64 `yaml:"input"`
	Output float64 `yaml:"output"`
}

// Table holds the full rate configuration.
type Table struct {
	Rates map[Family]Rates `yaml:"rates"`

	// Cache reads cost a fraction of the input rate; cache creation costs
	// a multiple of it.
	CacheReadDiscount   float64 `yaml:"cache_read_discount"`
	CacheCreationMarkup float64 `yaml:"cache_creation_markup"`
}

// DefaultTable returns the built-in public API rates.
func DefaultTable() *Table {
	return &Table{
		Rates: map[Family]Rates{
			Opus:   {Input: 15.00, Output: 75.00},
			Sonnet: {Input: 3.00, Output: 15.00},
			Haiku:  {Input: 0.80, Output: 4.00},
		},
		CacheReadDiscount:   0.10,
		CacheCreationMarkup: 1.25,
	}
}

// LoadTable reads a YAML rate table from path, filling omitted fields from
// the defaults.
func LoadTable(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading pricing table: %w", err)
	}
	t := DefaultTable()
	var override Table
	if err := yaml.Unmarshal(data, &override); err != nil {
		return nil, fmt.Errorf("parsing pricing table %s: %w", path, err)
	}
	for fam, r := range override.Rates {
		t.Rates[fam] = r
	}
	if override.CacheReadDiscount > 0 {
		t.CacheReadDiscount = override.CacheReadDiscount
	}
	if override.CacheCreationMarkup > 0 {
		t.CacheCreationMarkup = override.CacheCreationMarkup
	}
	return t, nil
}

// Estimate returns the USD cost for one model's token counters.
//
// known is false when the model is an API model with no rate on file and it
// actually consumed tokens; a zero for such a model would be a lie, not a
// price. Local models are free and known.
func (t *Table) Estimate(fam Family, c usage.Counters) (usd float64, known bool) {
	if fam == Local {
		return 0, true
	}
	r, ok := t.Rates[fam]
	if !ok {
		return 0, c.IsZero()
	}
	usd = float64(c.Input)/1e6*r.Input +
		float64(c.Output)/1e6*r.Output +
		float64(c.CacheRead)/1e6*r.Input*t.CacheReadDiscount +
		float64(c.CacheCreation)/1e6*r.Input*t.CacheCreationMarkup
	return usd, true
}

// EstimateDelta sums cost over every model in a run's token delta.
func (t *Table) EstimateDelta(d usage.Delta) (usd float64, known bool) {
	known = true
	for model, c := range d {
		cost, ok := t.Estimate(Classify(model), c)
		usd += cost
		known = known && ok
	}
	return usd, known
}
