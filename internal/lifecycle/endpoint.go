package lifecycle

import (
	"fmt"
	"strings"

	"github.com/safin-krmavi/Bulltrek/internal/strategy"
)

type Kind string

const (
	KindBacktest       Kind = "backtest"
	KindPaperTrade     Kind = "paper-trade"
	KindLiveTrade      Kind = "live-trade"
	KindBacktestResult Kind = "backtest-result"
)

// Kinds are the actions a user can trigger.
var Kinds = []Kind{KindBacktest, KindPaperTrade, KindLiveTrade}

func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindBacktest, KindPaperTrade, KindLiveTrade, KindBacktestResult:
		return k, nil
	case "paper", "paper_trade":
		return KindPaperTrade, nil
	case "live", "live_trade":
		return KindLiveTrade, nil
	}
	return "", fmt.Errorf("unknown action %q", s)
}

// ResolveEndpoint returns the upstream path for kind. id is the strategy id,
// or the bot id for KindBacktestResult. Unknown strategy types resolve to
// growth-dca. Live trading is addressed with its /api/v1 prefix, which the
// client strips before joining with the base URL.
func ResolveEndpoint(kind Kind, t strategy.Type, id string) string {
	slug := t.Resolve().Slug()
	id = strings.TrimSpace(id)
	switch kind {
	case KindBacktest:
		return "/" + slug + "/" + id + "/backtest"
	case KindPaperTrade:
		return "/" + slug + "/" + id + "/paper/start"
	case KindLiveTrade:
		return "/api/v1/" + slug + "/" + id + "/start"
	case KindBacktestResult:
		return "/bots/" + id + "/backtest-result"
	}
	return ""
}
