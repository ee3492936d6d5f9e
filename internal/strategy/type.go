package strategy

import (
	"fmt"
	"strings"
)

// Type is one of the seven strategy families the trading backend knows.
// Its string value is the URL slug used by every upstream endpoint.
type Type string

const (
	GrowthDCA   Type = "growth-dca"
	HumanGrid   Type = "human-grid"
	SmartGrid   Type = "smart-grid"
	IndyLESI    Type = "indy-lesi"
	IndyTrend   Type = "indy-trend"
	IndyUTC     Type = "indy-utc"
	PriceAction Type = "price-action"
)

// Types lists every known type in display order.
var Types = []Type{GrowthDCA, HumanGrid, SmartGrid, IndyLESI, IndyTrend, IndyUTC, PriceAction}

var displayNames = map[Type]string{
	GrowthDCA:   "Growth DCA",
	HumanGrid:   "Human Grid",
	SmartGrid:   "Smart Grid",
	IndyLESI:    "Indie LESI",
	IndyTrend:   "Indie Trend",
	IndyUTC:     "Indie UTC",
	PriceAction: "Price Action",
}

func (t Type) Known() bool {
	_, ok := displayNames[t]
	return ok
}

// Resolve maps unknown types to GrowthDCA, which is the route every
// upstream lookup falls back to.
func (t Type) Resolve() Type {
	if t.Known() {
		return t
	}
	return GrowthDCA
}

func (t Type) Slug() string {
	return string(t.Resolve())
}

// Backend is the snake_case name sent as strategy_type in create payloads.
func (t Type) Backend() string {
	return strings.ReplaceAll(t.Slug(), "-", "_")
}

func (t Type) DisplayName() string {
	return displayNames[t.Resolve()]
}

func (t Type) String() string {
	return string(t)
}

// Parse accepts a slug (growth-dca), a backend name (growth_dca) or a
// display name (Growth DCA, Indie LESI), case-insensitively. Indy and Indie
// spellings both resolve.
func Parse(s string) (Type, error) {
	key := normalizeKey(s)
	if key == "" {
		return "", fmt.Errorf("strategy type is empty")
	}
	for _, t := range Types {
		if key == normalizeKey(string(t)) || key == normalizeKey(displayNames[t]) {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown strategy type: %q", s)
}

// DetectFromBot guesses the strategy type of a bot from its name or mode,
// defaulting to GrowthDCA.
func DetectFromBot(name, mode string) Type {
	hay := strings.ToLower(name + " " + mode)
	switch {
	case strings.Contains(hay, "human") && strings.Contains(hay, "grid"):
		return HumanGrid
	case strings.Contains(hay, "smart") && strings.Contains(hay, "grid"):
		return SmartGrid
	case strings.Contains(hay, "lesi"):
		return IndyLESI
	case strings.Contains(hay, "trend"):
		return IndyTrend
	case strings.Contains(hay, "utc"):
		return IndyUTC
	case strings.Contains(hay, "price") && strings.Contains(hay, "action"):
		return PriceAction
	default:
		return GrowthDCA
	}
}

func normalizeKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	r := strings.NewReplacer("-", "", "_", "", " ", "")
	return r.Replace(s)
}
