package cmd

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/safin-krmavi/Bulltrek/internal/brokerage"
)

func brokerageCmd(ctx Context, args []string) error {
	if len(args) == 0 {
		return errors.New("brokerage subcommand required: list|link")
	}
	switch args[0] {
	case "list":
		items, err := ctx.brokerages().List(ctx.context(), ctx.Session)
		if err != nil {
			return err
		}
		return ctx.write(items)

	case "link":
		fs := flag.NewFlagSet("bulltrek brokerage link", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		name := fs.String("name", "", "Brokerage: "+strings.Join(brokerage.Names, "|"))
		apiKey := fs.String("api-key", "", "API key")
		apiSecret := fs.String("api-secret", "", "API secret")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		req := brokerage.LinkRequest{BrokerageName: *name, APIKey: *apiKey, APISecret: *apiSecret}
		if err := req.Validate(); err != nil {
			return fmt.Errorf("%w\nusage: bulltrek brokerage link --name <%s> --api-key <k> --api-secret <s>", err, strings.Join(brokerage.Names, "|"))
		}
		if err := ctx.brokerages().Link(ctx.context(), ctx.Session, req); err != nil {
			return err
		}
		return ctx.write(map[string]any{"linked": true, "brokerage_name": strings.ToLower(strings.TrimSpace(*name))})

	default:
		return fmt.Errorf("unknown brokerage subcommand: %s", args[0])
	}
}
