package strategy

import (
	"encoding/json"
	"testing"
)

func TestParse(t *testing.T) {
	cases := map[string]Type{
		"growth-dca":   GrowthDCA,
		"growth_dca":   GrowthDCA,
		"Growth DCA":   GrowthDCA,
		"HUMAN-GRID":   HumanGrid,
		"Indie LESI":   IndyLESI,
		"indy lesi":    IndyLESI,
		"indie_trend":  IndyTrend,
		"indy-utc":     IndyUTC,
		"Price Action": PriceAction,
		"smart_grid":   SmartGrid,
	}
	for in, want := range cases {
		got, err := Parse(in)
		if err != nil || got != want {
			t.Fatalf("Parse(%q)=%q,%v want=%q", in, got, err, want)
		}
	}
	if _, err := Parse("martingale"); err == nil {
		t.Fatalf("Parse(martingale) want error")
	}
}

func TestTypeResolveFallsBackToGrowthDCA(t *testing.T) {
	unknown := Type("martingale")
	if unknown.Slug() != "growth-dca" || unknown.DisplayName() != "Growth DCA" {
		t.Fatalf("slug=%s name=%s", unknown.Slug(), unknown.DisplayName())
	}
	if IndyLESI.Backend() != "indy_lesi" {
		t.Fatalf("backend=%s want=indy_lesi", IndyLESI.Backend())
	}
}

func TestDetectFromBot(t *testing.T) {
	cases := []struct {
		name, mode string
		want       Type
	}{
		{"My Human Grid #2", "", HumanGrid},
		{"bot-7", "smart_grid", SmartGrid},
		{"LESI scalper", "paper", IndyLESI},
		{"", "indy-trend", IndyTrend},
		{"Indie UTC", "", IndyUTC},
		{"price action v2", "", PriceAction},
		{"whatever", "live", GrowthDCA},
	}
	for _, c := range cases {
		if got := DetectFromBot(c.name, c.mode); got != c.want {
			t.Fatalf("DetectFromBot(%q,%q)=%s want=%s", c.name, c.mode, got, c.want)
		}
	}
}

func TestVariantsCoverEveryType(t *testing.T) {
	vs := Variants()
	if len(vs) != len(Types) {
		t.Fatalf("variants=%d want=%d", len(vs), len(Types))
	}
	for i, v := range vs {
		if v.Type != Types[i] || v.DisplayName == "" || v.Provider == "" {
			t.Fatalf("variant %d=%+v", i, v)
		}
		if v.CreatePath() != "/"+string(Types[i])+"/create" {
			t.Fatalf("create path=%s", v.CreatePath())
		}
	}
}

func roundTrip(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return out
}

func TestBuildCreate_GrowthDCANesting(t *testing.T) {
	f := validForm(GrowthDCA)
	f["frequency"] = "weekly"
	f["book_profit_percentage"] = "2.5"
	f["price_trigger_start"] = "100"
	body := roundTrip(t, Lookup(GrowthDCA).BuildCreate(f, "42"))

	bp, ok := body["book_profit_by"].(map[string]any)
	if !ok || bp["percentage"] != 2.5 || bp["method"] != "percentage" {
		t.Fatalf("book_profit_by=%v", body["book_profit_by"])
	}
	adv, ok := body["advanced_settings"].(map[string]any)
	if !ok || adv["price_trigger_start"] != float64(100) || adv["stop_loss_by"] != nil {
		t.Fatalf("advanced_settings=%v", body["advanced_settings"])
	}
	if body["api_id"] != float64(42) || body["strategy_type"] != "growth_dca" {
		t.Fatalf("api_id=%v strategy_type=%v", body["api_id"], body["strategy_type"])
	}
	conds := body["conditions"].([]any)
	if conds[0].(map[string]any)["value"] != float64(168) {
		t.Fatalf("conditions=%v want 168h", conds)
	}
	if _, ok := body["leverage"]; ok {
		t.Fatalf("leverage present on spot")
	}
}

func TestBuildCreate_HumanGridLeverageConditional(t *testing.T) {
	f := validForm(HumanGrid)
	f["leverage"] = "3"
	body := roundTrip(t, Lookup(HumanGrid).BuildCreate(f, "7"))
	if _, ok := body["leverage"]; ok {
		t.Fatalf("leverage sent for spot segment")
	}
	if body["lower_limit"] != float64(10) || body["upper_limit"] != float64(20) {
		t.Fatalf("limits=%v/%v", body["lower_limit"], body["upper_limit"])
	}

	f["segment"] = "Futures"
	body = roundTrip(t, Lookup(HumanGrid).BuildCreate(f, "7"))
	if body["leverage"] != float64(3) {
		t.Fatalf("leverage=%v want=3", body["leverage"])
	}
	if _, ok := body["book_profit_by"]; ok {
		t.Fatalf("human grid body must be flat")
	}
}

func TestBuildCreate_SmartGridNullables(t *testing.T) {
	f := validForm(SmartGrid)
	body := roundTrip(t, Lookup(SmartGrid).BuildCreate(f, "abc"))
	for _, k := range []string{"profit_per_level_min", "profit_per_level_max", "minimum_investment", "stop_grid_loss"} {
		v, ok := body[k]
		if !ok || v != nil {
			t.Fatalf("%s=%v present=%v want null", k, v, ok)
		}
	}
	if body["stop_grid_point"] != "point-9" || body["type"] != "Neutral" {
		t.Fatalf("defaults=%v/%v", body["stop_grid_point"], body["type"])
	}
	if body["api_connection_id"] != "abc" {
		t.Fatalf("api_connection_id=%v", body["api_connection_id"])
	}
}

func TestBuildBacktest_ExtraFieldPerType(t *testing.T) {
	b := BacktestForm{Name: "n", StartDate: "2024-01-01", EndDate: "2024-02-01", InitialBalance: "5000"}
	cases := []struct {
		typ  Type
		key  string
		want any
	}{
		{GrowthDCA, "simulation_speed", "normal"},
		{IndyLESI, "simulation_speed", "normal"},
		{PriceAction, "simulation_speed", "normal"},
		{Type("unknown"), "simulation_speed", "normal"},
		{HumanGrid, "test_mode", "full"},
		{SmartGrid, "grid_levels", float64(20)},
	}
	for _, c := range cases {
		body := roundTrip(t, Lookup(c.typ).BuildBacktest(b))
		if body[c.key] != c.want {
			t.Fatalf("%s: %s=%v want=%v", c.typ, c.key, body[c.key], c.want)
		}
		if _, ok := body["name"]; ok {
			t.Fatalf("%s: name must not be sent", c.typ)
		}
		if body["initial_balance"] != float64(5000) || body["start_date"] != "2024-01-01" {
			t.Fatalf("%s: body=%v", c.typ, body)
		}
	}

	b.GridLevels = "35"
	body := roundTrip(t, Lookup(SmartGrid).BuildBacktest(b))
	if body["grid_levels"] != float64(35) {
		t.Fatalf("grid_levels=%v want=35", body["grid_levels"])
	}
}

func TestBuildPaperTrade_NotificationShapes(t *testing.T) {
	off := false
	p := PaperTradeForm{InitialBalance: "10000", DailySummary: &off}

	body := roundTrip(t, Lookup(GrowthDCA).BuildPaperTrade(p))
	ns, ok := body["notification_settings"].(map[string]any)
	if !ok || ns["trade_executed"] != true || ns["daily_summary"] != false {
		t.Fatalf("notification_settings=%v", body["notification_settings"])
	}

	body = roundTrip(t, Lookup(HumanGrid).BuildPaperTrade(p))
	if body["notification_enabled"] != true {
		t.Fatalf("notification_enabled=%v", body["notification_enabled"])
	}

	body = roundTrip(t, Lookup(SmartGrid).BuildPaperTrade(p))
	if len(body) != 1 || body["initial_balance"] != float64(10000) {
		t.Fatalf("smart grid paper body=%v", body)
	}
}
