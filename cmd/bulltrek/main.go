package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/safin-krmavi/Bulltrek/cmd/bulltrek/cmd"
	"github.com/safin-krmavi/Bulltrek/internal/config"
	"github.com/safin-krmavi/Bulltrek/internal/logger"
	"github.com/safin-krmavi/Bulltrek/internal/output"
	"github.com/safin-krmavi/Bulltrek/internal/session"
)

func main() {
	var (
		apiBase  = flag.String("api-base", "", "Trading API base URL (env: BT_API_BASE)")
		token    = flag.String("token", "", "Bearer token (env: BT_TOKEN)")
		outFmt   = flag.String("output", "json", "Output format: json|text|table")
		logLevel = flag.String("log-level", "", "Log level (default warn)")
	)
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		cmd.Usage(os.Stderr)
		os.Exit(2)
	}

	cfg, err := config.LoadClient()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(1)
	}
	if strings.TrimSpace(*apiBase) != "" {
		cfg.APIBase = strings.TrimRight(strings.TrimSpace(*apiBase), "/")
	}
	if strings.TrimSpace(*logLevel) != "" {
		cfg.LogLevel = strings.TrimSpace(*logLevel)
	}

	format, err := output.Parse(*outFmt)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}

	log, err := logger.New(config.LogConfig{
		Level:             cfg.LogLevel,
		Encoding:          "console",
		DisableStacktrace: true,
		OutputPaths:       []string{"stderr"},
	}, "bulltrek")
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger error:", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	credPath, err := config.CredentialsPath()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(1)
	}
	store := session.CredentialStore{Path: credPath}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cctx := cmd.Context{
		Ctx:     ctx,
		Config:  cfg,
		Session: session.Resolve(cfg.APIBase, *token, store),
		Store:   store,
		Output:  format,
		HTTP:    &http.Client{Timeout: cfg.Timeout},
		Logger:  log,
	}

	if err := cmd.Dispatch(cctx, args); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		stop()
		os.Exit(1)
	}
}
