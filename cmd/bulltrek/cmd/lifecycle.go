package cmd

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/safin-krmavi/Bulltrek/internal/alert"
	"github.com/safin-krmavi/Bulltrek/internal/client"
	"github.com/safin-krmavi/Bulltrek/internal/lifecycle"
	"github.com/safin-krmavi/Bulltrek/internal/strategy"
)

type targetFlags struct {
	typ       *string
	id        *string
	brokerage *string
	botName   *string
	botMode   *string
}

func addTarget(fs *flag.FlagSet) targetFlags {
	return targetFlags{
		typ:       fs.String("type", "", "Strategy type"),
		id:        fs.String("id", "", "Strategy id"),
		brokerage: fs.String("brokerage", "", "Brokerage connection id"),
		botName:   fs.String("bot-name", "", "Selected bot's name, used to infer --type"),
		botMode:   fs.String("bot-mode", "", "Selected bot's mode, used to infer --type"),
	}
}

// strategyType is --type when given, else the type inferred from the
// selected bot.
func (f targetFlags) strategyType() (strategy.Type, error) {
	if strings.TrimSpace(*f.typ) == "" && strings.TrimSpace(*f.botName+*f.botMode) != "" {
		return strategy.DetectFromBot(*f.botName, *f.botMode), nil
	}
	return parseType(*f.typ)
}

func (f targetFlags) target() (lifecycle.Target, error) {
	t, err := f.strategyType()
	if err != nil {
		return lifecycle.Target{}, err
	}
	if strings.TrimSpace(*f.id) == "" {
		return lifecycle.Target{}, errors.New("--id required")
	}
	return lifecycle.Target{Type: t, StrategyID: *f.id, BrokerageID: *f.brokerage}, nil
}

func backtestCmd(ctx Context, args []string) error {
	fs := flag.NewFlagSet("bulltrek backtest", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	tf := addTarget(fs)
	name := fs.String("name", "", "Backtest name")
	start := fs.String("start", "", "Start date (YYYY-MM-DD)")
	end := fs.String("end", "", "End date (YYYY-MM-DD)")
	balance := fs.String("balance", "", "Initial balance")
	speed := fs.String("speed", "", "Simulation speed")
	testMode := fs.String("test-mode", "", "Test mode (human grid)")
	gridLevels := fs.String("grid-levels", "", "Grid levels (smart grid)")
	botID := fs.String("bot", "", "Bot id to fetch results from")
	wait := fs.Bool("wait", false, "Wait for the run alert and fetch results (requires --bot)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	tgt, err := tf.target()
	if err != nil {
		return err
	}
	if *wait && strings.TrimSpace(*botID) == "" {
		return fmt.Errorf("--wait: %w", lifecycle.ErrNoBot)
	}
	form := strategy.BacktestForm{
		Name:            strategy.Scalar(*name),
		StartDate:       strategy.Scalar(*start),
		EndDate:         strategy.Scalar(*end),
		InitialBalance:  strategy.Scalar(*balance),
		SimulationSpeed: strategy.Scalar(*speed),
		TestMode:        strategy.Scalar(*testMode),
		GridLevels:      strategy.Scalar(*gridLevels),
		BotID:           strategy.Scalar(*botID),
	}

	alerts := alert.NewManager()
	defer alerts.Close()
	out, err := ctx.dispatcher(alerts).StartBacktest(ctx.context(), ctx.Session, tgt, form)
	if err != nil {
		return err
	}
	if err := ctx.write(out); err != nil || !*wait {
		return err
	}
	select {
	case res, ok := <-out.Result:
		if !ok {
			return errors.New("backtest alert dismissed before results were fetched")
		}
		if res.Err != nil {
			return res.Err
		}
		return ctx.write(rawView(res.Data))
	case <-ctx.context().Done():
		return ctx.context().Err()
	}
}

func paperCmd(ctx Context, args []string) error {
	fs := flag.NewFlagSet("bulltrek paper", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	tf := addTarget(fs)
	balance := fs.String("balance", strategy.DefaultPaperBalance, "Initial balance")
	tradeExecuted := fs.Bool("notify-trades", true, "Notify on executed trades")
	dailySummary := fs.Bool("daily-summary", false, "Send a daily summary")
	if err := fs.Parse(args); err != nil {
		return err
	}
	tgt, err := tf.target()
	if err != nil {
		return err
	}
	form := strategy.PaperTradeForm{
		InitialBalance:      strategy.Scalar(*balance),
		TradeExecuted:       tradeExecuted,
		DailySummary:        dailySummary,
		NotificationEnabled: tradeExecuted,
	}
	out, err := ctx.dispatcher(nil).StartPaperTrade(ctx.context(), ctx.Session, tgt, form)
	if err != nil {
		return err
	}
	return ctx.write(out)
}

func liveCmd(ctx Context, args []string) error {
	fs := flag.NewFlagSet("bulltrek live", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	tf := addTarget(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	tgt, err := tf.target()
	if err != nil {
		return err
	}
	out, err := ctx.dispatcher(nil).StartLiveTrade(ctx.context(), ctx.Session, tgt)
	if err != nil {
		return err
	}
	return ctx.write(out)
}

func resultCmd(ctx Context, args []string) error {
	fs := flag.NewFlagSet("bulltrek result", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	botID := fs.String("bot", "", "Bot id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	data, err := ctx.dispatcher(nil).FetchBacktestResult(ctx.context(), ctx.Session, *botID)
	if err != nil {
		return err
	}
	return ctx.write(rawView(data))
}

func endpointCmd(ctx Context, args []string) error {
	fs := flag.NewFlagSet("bulltrek endpoint", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	kind := fs.String("kind", "", "backtest|paper-trade|live-trade|backtest-result")
	typ := fs.String("type", "", "Strategy type")
	id := fs.String("id", "", "Strategy or bot id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	k, err := lifecycle.ParseKind(*kind)
	if err != nil {
		return err
	}
	var t strategy.Type
	if k != lifecycle.KindBacktestResult {
		if t, err = parseType(*typ); err != nil {
			return err
		}
	}
	path := lifecycle.ResolveEndpoint(k, t, strings.TrimSpace(*id))
	return ctx.write(map[string]any{
		"kind":     string(k),
		"endpoint": path,
		"url":      strings.TrimRight(ctx.Config.APIBase, "/") + client.NormalizePath(path),
	})
}
