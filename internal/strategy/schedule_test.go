package strategy

import (
	"encoding/json"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestScheduleString(t *testing.T) {
	cases := []struct {
		in   Schedule
		want string
	}{
		{Schedule{Type: Daily, Time: "9:30", Meridiem: "am"}, "daily 09:30 AM"},
		{Schedule{Type: Daily}, "daily 12:00 AM"},
		{Schedule{Type: Weekly, Time: "10:15", Meridiem: "PM", Days: []string{"Wednesday", "mon", "wed"}}, "weekly mon,wed 10:15 PM"},
		{Schedule{Type: Monthly, Time: "08:00", Meridiem: "AM", Date: 15}, "monthly 15 08:00 AM"},
		{Schedule{Type: Hourly, Hours: 4}, "hourly every 4h"},
	}
	for _, c := range cases {
		if err := c.in.Validate(); err != nil {
			t.Fatalf("%+v: validate=%v", c.in, err)
		}
		if got := c.in.String(); got != c.want {
			t.Fatalf("String()=%q want=%q", got, c.want)
		}
		parsed, err := ParseSchedule(c.want)
		if err != nil {
			t.Fatalf("ParseSchedule(%q)=%v", c.want, err)
		}
		if parsed.String() != c.want {
			t.Fatalf("reparsed=%q want=%q", parsed.String(), c.want)
		}
	}
}

func TestScheduleValidateRejects(t *testing.T) {
	bad := []Schedule{
		{Type: "yearly"},
		{Type: Hourly, Hours: 0},
		{Type: Hourly, Hours: 24},
		{Type: Daily, Time: "13:00"},
		{Type: Daily, Time: "09:00", Meridiem: "XM"},
		{Type: Weekly, Time: "09:00"},
		{Type: Monthly, Time: "09:00", Date: 32},
	}
	for _, s := range bad {
		if err := s.Validate(); err == nil {
			t.Fatalf("%+v accepted", s)
		}
	}
}

func TestFrequencyHours(t *testing.T) {
	cases := map[string]int{"daily": 24, "Weekly": 168, "monthly": 720, "hourly": 1, "": 24, "fortnightly": 24}
	for in, want := range cases {
		if got := FrequencyHours(in); got != want {
			t.Fatalf("FrequencyHours(%q)=%d want=%d", in, got, want)
		}
	}
}

func TestFormDecodesScalars(t *testing.T) {
	var f Form
	if err := json.Unmarshal([]byte(`{"name":" dca ","investment":1500.5,"levels":20,"manual_control":true,"stop_grid_loss":null}`), &f); err != nil {
		t.Fatalf("json: %v", err)
	}
	if f.Get("name") != "dca" || f.Get("investment") != "1500.5" || f.Get("levels") != "20" || f.Get("manual_control") != "true" {
		t.Fatalf("form=%v", f)
	}
	if f.Has("stop_grid_loss") {
		t.Fatalf("null should decode to empty")
	}
	if err := json.Unmarshal([]byte(`{"pair":["BTC"]}`), &f); err == nil {
		t.Fatalf("array value accepted")
	}

	var y Form
	src := "name: grid\ninvestment: 2500\nsegment: Futures\nleverage: 3\nstop_grid_loss: ~\n"
	if err := yaml.Unmarshal([]byte(src), &y); err != nil {
		t.Fatalf("yaml: %v", err)
	}
	if y.Get("investment") != "2500" || y.Get("leverage") != "3" || y.Has("stop_grid_loss") {
		t.Fatalf("yaml form=%v", y)
	}
	if err := yaml.Unmarshal([]byte("pair:\n  - BTC\n"), &y); err == nil {
		t.Fatalf("yaml list value accepted")
	}
}

func TestScalarDecodesNumberOrString(t *testing.T) {
	var b BacktestForm
	if err := json.Unmarshal([]byte(`{"name":"x","initial_balance":10000,"grid_levels":"15"}`), &b); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if b.InitialBalance.String() != "10000" || b.GridLevels.String() != "15" {
		t.Fatalf("form=%+v", b)
	}
}
