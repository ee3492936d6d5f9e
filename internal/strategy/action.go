package strategy

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

// Scalar is a form value that decodes from either a JSON string or a JSON
// number, so clients may send initial_balance as 10000 or "10000".
type Scalar string

func (s *Scalar) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return err
	}
	str, err := scalarString(v)
	if err != nil {
		return err
	}
	*s = Scalar(str)
	return nil
}

func (s Scalar) String() string {
	return strings.TrimSpace(string(s))
}

func (s Scalar) Or(def string) string {
	if v := s.String(); v != "" {
		return v
	}
	return def
}

// BacktestForm is the input of a backtest run. Name is a local label only.
// BotID, when known, is where results are fetched from once the run alert
// closes; it is never inferred from the strategy id.
type BacktestForm struct {
	Name            Scalar `json:"name" yaml:"name"`
	StartDate       Scalar `json:"start_date" yaml:"start_date"`
	EndDate         Scalar `json:"end_date" yaml:"end_date"`
	InitialBalance  Scalar `json:"initial_balance" yaml:"initial_balance"`
	SimulationSpeed Scalar `json:"simulation_speed,omitempty" yaml:"simulation_speed"`
	TestMode        Scalar `json:"test_mode,omitempty" yaml:"test_mode"`
	GridLevels      Scalar `json:"grid_levels,omitempty" yaml:"grid_levels"`
	BotID           Scalar `json:"bot_id,omitempty" yaml:"bot_id"`
}

type PaperTradeForm struct {
	InitialBalance      Scalar `json:"initial_balance" yaml:"initial_balance"`
	TradeExecuted       *bool  `json:"trade_executed,omitempty" yaml:"trade_executed"`
	DailySummary        *bool  `json:"daily_summary,omitempty" yaml:"daily_summary"`
	NotificationEnabled *bool  `json:"notification_enabled,omitempty" yaml:"notification_enabled"`
}

const DefaultPaperBalance = "10000"

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	time.RFC3339,
}

func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ValidateBacktest requires name, start and end dates and a positive initial
// balance, then requires start < end. The date order check runs whenever
// both dates parse, so it is reported even when other fields are missing.
func ValidateBacktest(b BacktestForm) error {
	verr := &ValidationError{}
	if b.StartDate.String() == "" {
		verr.Fields = append(verr.Fields, "Start Date")
	}
	if b.EndDate.String() == "" {
		verr.Fields = append(verr.Fields, "End Date")
	}
	if d, ok := parseDecimal(b.InitialBalance.String()); !ok || !d.IsPositive() {
		verr.Fields = append(verr.Fields, "Initial Balance")
	}
	if b.Name.String() == "" {
		verr.Fields = append(verr.Fields, "Name")
	}

	start, okStart := ParseDate(b.StartDate.String())
	end, okEnd := ParseDate(b.EndDate.String())
	switch {
	case b.StartDate.String() != "" && !okStart:
		verr.Problems = append(verr.Problems, "Start date is not a valid date")
	case b.EndDate.String() != "" && !okEnd:
		verr.Problems = append(verr.Problems, "End date is not a valid date")
	case okStart && okEnd && !start.Before(end):
		verr.Problems = append(verr.Problems, "End date must be after start date")
	}
	if gl := b.GridLevels.String(); gl != "" {
		if d, ok := parseDecimal(gl); !ok || !d.IsPositive() || !d.IsInteger() {
			verr.Problems = append(verr.Problems, "Grid levels must be a positive whole number")
		}
	}
	return verr.orNil()
}

func ValidatePaperTrade(p PaperTradeForm) error {
	if d, ok := parseDecimal(p.InitialBalance.String()); !ok || !d.IsPositive() {
		return &ValidationError{Fields: []string{"Initial Balance"}}
	}
	return nil
}
