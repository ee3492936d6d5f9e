package strategy

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Variant is one row of the strategy table: the form fields of a type and
// the builders that turn a form into upstream request bodies.
type Variant struct {
	Type        Type        `json:"type"`
	DisplayName string      `json:"display_name"`
	Provider    string      `json:"provider"`
	Fields      []FieldSpec `json:"fields"`

	build         func(f Form, brokerageID string) map[string]any
	backtestExtra func(b BacktestForm) (string, any)
	paperTrade    func(p PaperTradeForm) map[string]any
}

var variants = map[Type]Variant{
	GrowthDCA: {
		Provider: "DcaBotService",
		Fields: []FieldSpec{
			text("name", "Name"),
			segmentField,
			text("pair", "Pair"),
			positive("investment", "Investment"),
			optionalNumber("investment_cap", "Investment Cap"),
			{Key: "frequency", Label: "Frequency", Kind: KindEnum, Required: true, Default: "daily", Options: []string{"daily", "weekly", "monthly", "hourly"}},
			{Key: "duration", Label: "Duration", Kind: KindText},
			positive("book_profit_percentage", "Book Profit By"),
			enum("book_profit_method", "Book Profit Method", "percentage", "percentage", "price"),
			optionalNumber("price_trigger_start", "Price Trigger Start"),
			optionalNumber("price_trigger_stop", "Price Trigger Stop"),
			optionalNumber("stop_loss_by", "Stop Loss By"),
			enum("direction", "Direction", "buy", "buy", "sell"),
			enum("risk_level", "Risk Level", "low", "low", "medium", "high"),
		},
		build:         buildGrowthDCA,
		backtestExtra: simulationSpeed,
		paperTrade:    notificationSettings,
	},
	HumanGrid: {
		Provider: "HumanGridService",
		Fields: []FieldSpec{
			text("name", "Name"),
			segmentField,
			text("pair", "Pair"),
			positive("investment", "Investment"),
			positive("lower_limit", "Lower Limit"),
			positive("upper_limit", "Upper Limit"),
			positive("entry_interval", "Entry Interval"),
			positive("book_profit", "Book Profit"),
			{Key: "manual_grid_levels", Label: "Manual Grid Levels", Kind: KindNumber, Positive: true, Integer: true},
			optionalNumber("custom_grid_spacing", "Custom Grid Spacing"),
			{Key: "manual_control", Label: "Manual Control", Kind: KindBool, Default: "true"},
			{Key: "require_confirmation", Label: "Require Confirmation", Kind: KindBool, Default: "true"},
			enum("direction", "Direction", "both", "buy", "sell", "both"),
			enum("risk_level", "Risk Level", "medium", "low", "medium", "high"),
		},
		build: buildHumanGrid,
		backtestExtra: func(b BacktestForm) (string, any) {
			return "test_mode", b.TestMode.Or("full")
		},
		paperTrade: func(p PaperTradeForm) map[string]any {
			return map[string]any{"notification_enabled": boolOr(p.NotificationEnabled, true)}
		},
	},
	SmartGrid: {
		Provider: "SmartGridService",
		Fields: []FieldSpec{
			text("strategy_name", "Strategy Name"),
			segmentField,
			text("pair", "Pair"),
			enum("type", "Type", "Neutral", "Neutral", "Long", "Short"),
			enum("data_set", "Data Set", "7D", "3D", "7D", "30D", "180D", "365D"),
			positive("lower_limit", "Lower Limit"),
			positive("upper_limit", "Upper Limit"),
			{Key: "levels", Label: "Levels", Kind: KindNumber, Required: true, Positive: true, Integer: true},
			optionalNumber("profit_per_level_min", "Profit Per Level Min"),
			optionalNumber("profit_per_level_max", "Profit Per Level Max"),
			positive("investment", "Investment"),
			optionalNumber("minimum_investment", "Minimum Investment"),
			optionalNumber("stop_grid_loss", "Stop Grid Loss"),
			{Key: "stop_grid_point", Label: "Stop Grid Point", Kind: KindText, Default: "point-9"},
		},
		build: buildSmartGrid,
		backtestExtra: func(b BacktestForm) (string, any) {
			if d, ok := parseDecimal(b.GridLevels.String()); ok {
				return "grid_levels", numberOf(d)
			}
			return "grid_levels", 20
		},
		paperTrade: func(p PaperTradeForm) map[string]any {
			return map[string]any{}
		},
	},
	IndyLESI: {
		Provider: "IndyLesiService",
		Fields: []FieldSpec{
			text("name", "Name"),
			segmentField,
			text("asset", "Asset"),
			positive("quantity", "Quantity"),
			positive("support_level", "Support Level"),
			positive("rsi", "RSI"),
			positive("lesi_threshold", "LESI Threshold"),
			positive("entry_validation_score", "Entry Validation Score"),
			positive("risk_reward_ratio", "Risk Reward Ratio"),
			positive("confidence_threshold", "Confidence Threshold"),
			enum("direction", "Direction", "buy", "buy", "sell"),
			enum("risk_level", "Risk Level", "medium", "low", "medium", "high"),
		},
		build:         buildIndyLESI,
		backtestExtra: simulationSpeed,
		paperTrade:    notificationSettings,
	},
	IndyTrend: {
		Provider: "IndyTrendService",
		Fields: []FieldSpec{
			text("name", "Name"),
			segmentField,
			text("asset", "Asset"),
			positive("quantity", "Quantity"),
			positive("moving_average", "Moving Average"),
			positive("rsi", "RSI"),
			positive("trend_strength_threshold", "Trend Strength Threshold"),
			enum("trend_timeframe", "Trend Timeframe", "4h", "15m", "1h", "4h", "1d"),
			enum("confirmation_timeframe", "Confirmation Timeframe", "1h", "15m", "1h", "4h", "1d"),
			enum("operator", "Operator", "AND", "AND", "OR"),
			enum("direction", "Direction", "buy", "buy", "sell"),
			enum("risk_level", "Risk Level", "medium", "low", "medium", "high"),
		},
		build:         buildIndyTrend,
		backtestExtra: simulationSpeed,
		paperTrade:    notificationSettings,
	},
	IndyUTC: {
		Provider: "IndyUTCService",
		Fields: []FieldSpec{
			text("name", "Name"),
			segmentField,
			text("asset", "Asset"),
			positive("quantity", "Quantity"),
			{Key: "trading_window_start", Label: "Trading Window Start", Kind: KindTime, Required: true},
			{Key: "trading_window_end", Label: "Trading Window End", Kind: KindTime, Required: true},
			enum("utc_session", "UTC Session", "london_open", "london_open", "new_york_open", "tokyo_open", "sydney_open"),
			{Key: "timezone", Label: "Timezone", Kind: KindText, Default: "UTC"},
			{Key: "ut_buy", Label: "UT Buy", Kind: KindBool},
			{Key: "ut_sell", Label: "UT Sell", Kind: KindBool},
			optionalNumber("sensitivity", "Sensitivity"),
			{Key: "atr_period", Label: "ATR Period", Kind: KindNumber, Positive: true, Integer: true},
			{Key: "length", Label: "Length", Kind: KindNumber, Positive: true, Integer: true},
			{Key: "fast_length", Label: "Fast Length", Kind: KindNumber, Positive: true, Integer: true},
			enum("direction", "Direction", "buy", "buy", "sell"),
			enum("risk_level", "Risk Level", "medium", "low", "medium", "high"),
		},
		build:         buildIndyUTC,
		backtestExtra: simulationSpeed,
		paperTrade:    notificationSettings,
	},
	PriceAction: {
		Provider: "PriceActionService",
		Fields: []FieldSpec{
			text("name", "Name"),
			segmentField,
			{Key: "pair", Label: "Pair", Kind: KindText},
			positive("investment", "Investment"),
			positive("investment_cap", "Investment Cap"),
			positive("price_trigger_start", "Price Trigger Start"),
			positive("price_trigger_stop", "Price Trigger Stop"),
			positive("take_profit", "Take Profit"),
			positive("stop_loss", "Stop Loss"),
			enum("risk_level", "Risk Level", "medium", "low", "medium", "high"),
		},
		build:         buildPriceAction,
		backtestExtra: simulationSpeed,
		paperTrade:    notificationSettings,
	},
}

func init() {
	for t, v := range variants {
		v.Type = t
		v.DisplayName = t.DisplayName()
		variants[t] = v
	}
}

// Lookup returns the table row for t. Unknown types get the GrowthDCA row.
func Lookup(t Type) Variant {
	return variants[t.Resolve()]
}

// Variants returns every row in display order.
func Variants() []Variant {
	out := make([]Variant, 0, len(Types))
	for _, t := range Types {
		out = append(out, variants[t])
	}
	return out
}

func (v Variant) CreatePath() string {
	return "/" + v.Type.Slug() + "/create"
}

// BuildCreate renders the create-strategy body. The form should have
// passed Check first; unparsable numbers are sent as null.
func (v Variant) BuildCreate(f Form, brokerageID string) map[string]any {
	body := v.build(f, brokerageID)
	if IsFutures(f.Get("segment")) {
		body["leverage"] = number(f, "leverage")
	}
	return body
}

// BuildBacktest renders the backtest body. The backtest name is a local
// label and is not sent.
func (v Variant) BuildBacktest(b BacktestForm) map[string]any {
	body := map[string]any{
		"start_date":      b.StartDate.String(),
		"end_date":        b.EndDate.String(),
		"initial_balance": decimalOrNil(b.InitialBalance.String()),
	}
	key, val := v.backtestExtra(b)
	body[key] = val
	return body
}

func (v Variant) BuildPaperTrade(p PaperTradeForm) map[string]any {
	body := v.paperTrade(p)
	body["initial_balance"] = decimalOrNil(p.InitialBalance.String())
	return body
}

func simulationSpeed(b BacktestForm) (string, any) {
	return "simulation_speed", b.SimulationSpeed.Or("normal")
}

func notificationSettings(p PaperTradeForm) map[string]any {
	return map[string]any{
		"notification_settings": map[string]any{
			"trade_executed": boolOr(p.TradeExecuted, true),
			"daily_summary":  boolOr(p.DailySummary, true),
		},
	}
}

func buildGrowthDCA(f Form, brokerageID string) map[string]any {
	freq := strings.ToLower(f.Or("frequency", "daily"))
	body := map[string]any{
		"name":          f.Get("name"),
		"strategy_type": GrowthDCA.Backend(),
		"provider":      "DcaBotService",
		"conditions": []map[string]any{
			{"indicator": "Time Interval", "action": "equals", "value": FrequencyHours(freq)},
		},
		"segment":    f.Or("segment", SegmentSpot),
		"pair":       f.Get("pair"),
		"asset":      f.Get("pair"),
		"investment": number(f, "investment"),
		"frequency":  freq,
		"book_profit_by": map[string]any{
			"percentage": number(f, "book_profit_percentage"),
			"method":     f.Or("book_profit_method", "percentage"),
		},
		"advanced_settings": map[string]any{
			"price_trigger_start": number(f, "price_trigger_start"),
			"price_trigger_stop":  number(f, "price_trigger_stop"),
			"stop_loss_by":        number(f, "stop_loss_by"),
		},
		"direction":  f.Or("direction", "buy"),
		"risk_level": f.Or("risk_level", "low"),
		"api_id":     idValue(brokerageID),
	}
	setNumber(body, f, "investment_cap")
	if d := f.Get("duration"); d != "" {
		body["duration"] = d
	}
	return body
}

func buildHumanGrid(f Form, brokerageID string) map[string]any {
	body := map[string]any{
		"name":                 f.Get("name"),
		"strategy_type":        HumanGrid.Backend(),
		"provider":             "HumanGridService",
		"segment":              f.Or("segment", SegmentSpot),
		"pair":                 f.Get("pair"),
		"asset":                f.Get("pair"),
		"investment":           number(f, "investment"),
		"lower_limit":          number(f, "lower_limit"),
		"upper_limit":          number(f, "upper_limit"),
		"entry_interval":       number(f, "entry_interval"),
		"book_profit":          number(f, "book_profit"),
		"manual_control":       flag(f, "manual_control", true),
		"require_confirmation": flag(f, "require_confirmation", true),
		"direction":            f.Or("direction", "both"),
		"risk_level":           f.Or("risk_level", "medium"),
		"api_id":               idValue(brokerageID),
	}
	if f.Has("manual_grid_levels") {
		body["conditions"] = []map[string]any{
			{"indicator": "Manual Grid Levels", "action": "user_defined", "value": number(f, "manual_grid_levels")},
		}
	}
	setNumber(body, f, "manual_grid_levels")
	setNumber(body, f, "custom_grid_spacing")
	return body
}

func buildSmartGrid(f Form, brokerageID string) map[string]any {
	return map[string]any{
		"strategy_name":        f.Get("strategy_name"),
		"api_connection_id":    idValue(brokerageID),
		"segment":              f.Or("segment", SegmentSpot),
		"pair":                 f.Get("pair"),
		"type":                 f.Or("type", "Neutral"),
		"data_set":             f.Or("data_set", "7D"),
		"lower_limit":          number(f, "lower_limit"),
		"upper_limit":          number(f, "upper_limit"),
		"levels":               number(f, "levels"),
		"profit_per_level_min": number(f, "profit_per_level_min"),
		"profit_per_level_max": number(f, "profit_per_level_max"),
		"investment":           number(f, "investment"),
		"minimum_investment":   number(f, "minimum_investment"),
		"stop_grid_loss":       number(f, "stop_grid_loss"),
		"stop_grid_point":      f.Or("stop_grid_point", "point-9"),
	}
}

func buildIndyLESI(f Form, brokerageID string) map[string]any {
	return map[string]any{
		"name":          f.Get("name"),
		"strategy_type": IndyLESI.Backend(),
		"provider":      "IndyLesiService",
		"conditions": []map[string]any{
			{"indicator": "Support Level", "action": "near_support", "value": number(f, "support_level")},
			{"indicator": "RSI", "action": "less_than", "value": number(f, "rsi")},
		},
		"segment":                f.Or("segment", SegmentSpot),
		"direction":              f.Or("direction", "buy"),
		"quantity":               number(f, "quantity"),
		"asset":                  f.Get("asset"),
		"lesi_threshold":         number(f, "lesi_threshold"),
		"entry_validation_score": number(f, "entry_validation_score"),
		"risk_reward_ratio":      number(f, "risk_reward_ratio"),
		"confidence_threshold":   number(f, "confidence_threshold"),
		"risk_level":             f.Or("risk_level", "medium"),
		"api_id":                 idValue(brokerageID),
	}
}

func buildIndyTrend(f Form, brokerageID string) map[string]any {
	return map[string]any{
		"name":          f.Get("name"),
		"strategy_type": IndyTrend.Backend(),
		"provider":      "IndyTrendService",
		"conditions": []map[string]any{
			{"indicator": "Moving Average", "action": "crosses_above", "value": number(f, "moving_average")},
			{"indicator": "RSI", "action": "greater_than", "value": number(f, "rsi")},
		},
		"operators":                []string{strings.ToUpper(f.Or("operator", "AND"))},
		"segment":                  f.Or("segment", SegmentSpot),
		"direction":                f.Or("direction", "buy"),
		"quantity":                 number(f, "quantity"),
		"asset":                    f.Get("asset"),
		"trend_timeframe":          f.Or("trend_timeframe", "4h"),
		"confirmation_timeframe":   f.Or("confirmation_timeframe", "1h"),
		"trend_strength_threshold": number(f, "trend_strength_threshold"),
		"risk_level":               f.Or("risk_level", "medium"),
		"api_id":                   idValue(brokerageID),
	}
}

func buildIndyUTC(f Form, brokerageID string) map[string]any {
	session := f.Or("utc_session", "london_open")
	body := map[string]any{
		"name":          f.Get("name"),
		"strategy_type": IndyUTC.Backend(),
		"provider":      "IndyUTCService",
		"conditions": []map[string]any{
			{"indicator": "UTC Session", "action": "active_during", "value": session},
		},
		"segment":              f.Or("segment", SegmentSpot),
		"direction":            f.Or("direction", "buy"),
		"quantity":             number(f, "quantity"),
		"asset":                strings.ToUpper(f.Get("asset")),
		"utc_session":          session,
		"trading_window_start": f.Get("trading_window_start"),
		"trading_window_end":   f.Get("trading_window_end"),
		"timezone":             f.Or("timezone", "UTC"),
		"risk_level":           f.Or("risk_level", "medium"),
		"api_id":               idValue(brokerageID),
	}
	if f.Has("ut_buy") {
		body["ut_buy"] = flag(f, "ut_buy", false)
	}
	if f.Has("ut_sell") {
		body["ut_sell"] = flag(f, "ut_sell", false)
	}
	for _, k := range []string{"sensitivity", "atr_period", "length", "fast_length"} {
		setNumber(body, f, k)
	}
	return body
}

func buildPriceAction(f Form, brokerageID string) map[string]any {
	body := map[string]any{
		"name":                f.Get("name"),
		"strategy_type":       PriceAction.Backend(),
		"provider":            "PriceActionService",
		"segment":             f.Or("segment", SegmentSpot),
		"investment":          number(f, "investment"),
		"investment_cap":      number(f, "investment_cap"),
		"risk_level":          f.Or("risk_level", "medium"),
		"price_trigger_start": number(f, "price_trigger_start"),
		"price_trigger_stop":  number(f, "price_trigger_stop"),
		"take_profit":         number(f, "take_profit"),
		"stop_loss":           number(f, "stop_loss"),
		"api_id":              idValue(brokerageID),
	}
	if p := f.Get("pair"); p != "" {
		body["pair"] = p
	}
	return body
}

// number renders key as a JSON number, or nil when it is empty or invalid.
func number(f Form, key string) any {
	return decimalOrNil(f.Get(key))
}

func decimalOrNil(s string) any {
	d, ok := parseDecimal(s)
	if !ok {
		return nil
	}
	return numberOf(d)
}

func numberOf(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

func setNumber(body map[string]any, f Form, key string) {
	if v := number(f, key); v != nil {
		body[key] = v
	}
}

func flag(f Form, key string, def bool) bool {
	v := f.Get(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

// idValue sends numeric brokerage ids as numbers and anything else as-is.
func idValue(id string) any {
	id = strings.TrimSpace(id)
	if n, err := strconv.ParseInt(id, 10, 64); err == nil {
		return n
	}
	return id
}
