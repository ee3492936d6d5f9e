package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_EnvOnlyDefaults(t *testing.T) {
	cfg, err := Load("", true)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Upstream.BaseURL != DefaultUpstreamBaseURL {
		t.Fatalf("base_url=%q want=%q", cfg.Upstream.BaseURL, DefaultUpstreamBaseURL)
	}
	if cfg.Alerts.Backtest != 5*time.Second || cfg.Alerts.PaperTrade != 3*time.Second || cfg.Alerts.LiveTrade != 5*time.Second {
		t.Fatalf("alerts=%+v want 5s/3s/5s", cfg.Alerts)
	}
	if cfg.Lifecycle.ExclusivePerStrategy {
		t.Fatalf("exclusive_per_strategy=true want=false")
	}
	if cfg.Cache.Driver != "memory" {
		t.Fatalf("cache.driver=%q want=memory", cfg.Cache.Driver)
	}
}

func TestLoad_FileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "config.yaml")
	body := "server:\n  http_addr: \":9090\"\nalerts:\n  paper_trade: 7s\n"
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("BT_LIFECYCLE_EXCLUSIVE_PER_STRATEGY", "true")

	cfg, err := Load(p, false)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.HTTPAddr != ":9090" {
		t.Fatalf("http_addr=%q want=:9090", cfg.Server.HTTPAddr)
	}
	if cfg.Alerts.PaperTrade != 7*time.Second {
		t.Fatalf("paper_trade=%v want=7s", cfg.Alerts.PaperTrade)
	}
	if !cfg.Lifecycle.ExclusivePerStrategy {
		t.Fatalf("exclusive_per_strategy=false want=true")
	}
}

func TestLoadClient_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("BULLTREK_DIR", t.TempDir())
	cfg, err := LoadClient()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIBase != DefaultUpstreamBaseURL {
		t.Fatalf("api_base=%q want=%q", cfg.APIBase, DefaultUpstreamBaseURL)
	}
	if !cfg.PreflightGrowthDCA {
		t.Fatalf("preflight_growth_dca=false want=true")
	}
}

func TestLoadClient_EnvOverrideTrimsSlash(t *testing.T) {
	t.Setenv("BULLTREK_DIR", t.TempDir())
	t.Setenv("BT_API_BASE", "http://localhost:3000/api/v1/")
	cfg, err := LoadClient()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIBase != "http://localhost:3000/api/v1" {
		t.Fatalf("api_base=%q", cfg.APIBase)
	}
}
