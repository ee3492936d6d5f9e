package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"go.uber.org/zap"

	"github.com/safin-krmavi/Bulltrek/internal/config"
	"github.com/safin-krmavi/Bulltrek/internal/output"
	"github.com/safin-krmavi/Bulltrek/internal/session"
)

type Context struct {
	Ctx     context.Context
	Config  config.ClientConfig
	Session session.Session
	Store   session.CredentialStore
	Output  output.Format
	HTTP    *http.Client
	Logger  *zap.Logger
	Stdout  io.Writer
}

func (c Context) out() io.Writer {
	if c.Stdout != nil {
		return c.Stdout
	}
	return os.Stdout
}

func (c Context) context() context.Context {
	if c.Ctx != nil {
		return c.Ctx
	}
	return context.Background()
}

func (c Context) write(v any) error {
	return output.Write(c.out(), c.Output, v)
}

func Usage(w io.Writer) {
	fmt.Fprint(w, `bulltrek <command> <subcommand> [flags]

Global Flags:
  --api-base    Trading API base URL (env: BT_API_BASE)
  --token       Bearer token (env: BT_TOKEN)
  --output      json|text|table (default json)
  --log-level   debug|info|warn|error (default warn)

Commands:
  auth       login/register/logout/status
  brokerage  list/link
  strategy   types/validate/create/custom
  backtest   start a backtest for a created strategy
  paper      start paper trading
  live       start live trading
  result     fetch a bot's backtest result
  endpoint   print the upstream endpoint for an action
`)
}

func Dispatch(ctx Context, args []string) error {
	if len(args) == 0 {
		Usage(os.Stderr)
		return errors.New("missing command")
	}
	switch args[0] {
	case "auth":
		return authCmd(ctx, args[1:])
	case "brokerage", "brokerages":
		return brokerageCmd(ctx, args[1:])
	case "strategy", "strategies":
		return strategyCmd(ctx, args[1:])
	case "backtest":
		return backtestCmd(ctx, args[1:])
	case "paper":
		return paperCmd(ctx, args[1:])
	case "live":
		return liveCmd(ctx, args[1:])
	case "result":
		return resultCmd(ctx, args[1:])
	case "endpoint":
		return endpointCmd(ctx, args[1:])
	case "help", "-h", "--help":
		Usage(os.Stdout)
		return nil
	default:
		Usage(os.Stderr)
		return fmt.Errorf("unknown command: %s", args[0])
	}
}
