package cmd

import (
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/safin-krmavi/Bulltrek/internal/client"
	"github.com/safin-krmavi/Bulltrek/internal/session"
)

func authCmd(ctx Context, args []string) error {
	if len(args) == 0 {
		return errors.New("auth subcommand required: login|register|logout|status")
	}
	switch args[0] {
	case "login":
		fs := flag.NewFlagSet("bulltrek auth login", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		username := fs.String("username", "", "Username")
		email := fs.String("email", "", "Email")
		password := fs.String("password", "", "Password")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		if strings.TrimSpace(*password) == "" || (strings.TrimSpace(*username) == "" && strings.TrimSpace(*email) == "") {
			return errors.New("usage: bulltrek auth login (--username <u> | --email <e>) --password <p>")
		}

		c := client.New(session.New(ctx.Config.APIBase, ""), ctx.HTTP, ctx.Logger)
		var raw []byte
		err := c.DoJSON(ctx.context(), http.MethodPost, "/auth", map[string]any{
			"username": strings.TrimSpace(*username),
			"email":    strings.TrimSpace(*email),
			"password": *password,
		}, &raw)
		if err != nil {
			return client.Fail(err, "Login failed")
		}
		token := session.TokenFromResponse(raw)
		if token == "" {
			return errors.New("login response did not include a token")
		}

		sess := session.New(ctx.Config.APIBase, token)
		cred := session.Credentials{
			Token:    token,
			UserID:   sess.UserID,
			Username: lo.CoalesceOrEmpty(strings.TrimSpace(*username), strings.TrimSpace(*email)),
		}
		if !sess.ExpiresAt.IsZero() {
			cred.ExpiresAt = sess.ExpiresAt.UTC().Format(time.RFC3339)
		}
		if err := ctx.Store.Save(cred); err != nil {
			return fmt.Errorf("save credentials: %w", err)
		}
		return ctx.write(statusView(sess, ctx.Config.APIBase))

	case "register":
		fs := flag.NewFlagSet("bulltrek auth register", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		username := fs.String("username", "", "Username")
		email := fs.String("email", "", "Email")
		password := fs.String("password", "", "Password")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		if strings.TrimSpace(*username) == "" || strings.TrimSpace(*email) == "" || strings.TrimSpace(*password) == "" {
			return errors.New("usage: bulltrek auth register --username <u> --email <e> --password <p>")
		}
		c := client.New(session.New(ctx.Config.APIBase, ""), ctx.HTTP, ctx.Logger)
		var raw []byte
		err := c.DoJSON(ctx.context(), http.MethodPost, "/signup", map[string]any{
			"username": strings.TrimSpace(*username),
			"email":    strings.TrimSpace(*email),
			"password": *password,
		}, &raw)
		if err != nil {
			return client.Fail(err, "Registration failed")
		}
		return ctx.write(rawView(raw))

	case "logout":
		if err := ctx.Store.Delete(); err != nil {
			return err
		}
		return ctx.write(map[string]any{"logged_in": false})

	case "status":
		return ctx.write(statusView(ctx.Session, ctx.Config.APIBase))

	default:
		return fmt.Errorf("unknown auth subcommand: %s", args[0])
	}
}

func statusView(sess session.Session, apiBase string) map[string]any {
	v := map[string]any{
		"api_base":  apiBase,
		"logged_in": sess.Require() == nil,
	}
	if sess.UserID != "" {
		v["user_id"] = sess.UserID
	}
	if !sess.ExpiresAt.IsZero() {
		v["expires_at"] = sess.ExpiresAt.UTC().Format(time.RFC3339)
	}
	return v
}
