package cmd

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/safin-krmavi/Bulltrek/internal/strategy"
)

func strategyCmd(ctx Context, args []string) error {
	if len(args) == 0 {
		return errors.New("strategy subcommand required: types|validate|create|custom")
	}
	switch args[0] {
	case "types":
		fs := flag.NewFlagSet("bulltrek strategy types", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		typ := fs.String("type", "", "Show the fields of one type")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		if *typ != "" {
			t, err := parseType(*typ)
			if err != nil {
				return err
			}
			return ctx.write(strategy.Lookup(t).Fields)
		}
		rows := lo.Map(strategy.Variants(), func(v strategy.Variant, _ int) map[string]any {
			return map[string]any{
				"type":         v.Type.Slug(),
				"display_name": v.DisplayName,
				"provider":     v.Provider,
				"create_path":  v.CreatePath(),
			}
		})
		return ctx.write(rows)

	case "validate":
		fs := flag.NewFlagSet("bulltrek strategy validate", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		typ := fs.String("type", "", "Strategy type")
		file := fs.String("file", "", "Form file (yaml or json)")
		var sets setFlags
		fs.Var(&sets, "set", "Form field key=value (repeatable)")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		t, err := parseType(*typ)
		if err != nil {
			return err
		}
		form, err := readForm(*file, sets)
		if err != nil {
			return err
		}
		if err := strategy.Check(form, t); err != nil {
			return err
		}
		return ctx.write(map[string]any{"valid": true, "type": t.Slug()})

	case "create":
		fs := flag.NewFlagSet("bulltrek strategy create", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		typ := fs.String("type", "", "Strategy type")
		file := fs.String("file", "", "Form file (yaml or json)")
		brokerageID := fs.String("brokerage", "", "Brokerage connection id")
		var sets setFlags
		fs.Var(&sets, "set", "Form field key=value (repeatable)")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		t, err := parseType(*typ)
		if err != nil {
			return err
		}
		form, err := readForm(*file, sets)
		if err != nil {
			return err
		}
		res, err := ctx.submitter().CreateStrategy(ctx.context(), ctx.Session, t, form, *brokerageID)
		if err != nil {
			return err
		}
		return ctx.write(res)

	case "custom":
		fs := flag.NewFlagSet("bulltrek strategy custom", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		file := fs.String("file", "", "Strategy file (yaml or json)")
		name := fs.String("name", "", "Strategy name")
		exit := fs.String("exit", "", "Exit condition")
		var entries, frames listFlags
		fs.Var(&entries, "entry", "Entry condition (repeatable)")
		fs.Var(&frames, "timeframe", "Timeframe such as 15M (repeatable or comma separated)")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		cs, err := readCustom(*file, *name, *exit, entries, frames)
		if err != nil {
			return err
		}
		res, err := ctx.submitter().CreateCustomStrategy(ctx.context(), ctx.Session, cs)
		if err != nil {
			return err
		}
		if res.BotError != "" && ctx.Logger != nil {
			ctx.Logger.Warn("bot not created", zap.String("strategy_id", res.StrategyID), zap.String("error", res.BotError))
		}
		return ctx.write(res)

	default:
		return fmt.Errorf("unknown strategy subcommand: %s", args[0])
	}
}
