package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ClientConfig is the CLI view of the configuration. It lives in
// <Dir>/config.yaml next to credentials.json.
type ClientConfig struct {
	APIBase            string        `mapstructure:"api_base"`
	Timeout            time.Duration `mapstructure:"timeout"`
	LogLevel           string        `mapstructure:"log_level"`
	PreflightGrowthDCA bool          `mapstructure:"preflight_growth_dca"`
	Alerts             AlertsConfig  `mapstructure:"alerts"`
}

func Dir() (string, error) {
	if v := strings.TrimSpace(os.Getenv("BULLTREK_DIR")); v != "" {
		return v, nil
	}
	if v := strings.TrimSpace(os.Getenv("BULLTREK_HOME")); v != "" {
		return filepath.Join(v, ".bulltrek"), nil
	}
	h, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(h, ".bulltrek"), nil
}

func ClientConfigPath() (string, error) {
	d, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(d, "config.yaml"), nil
}

func CredentialsPath() (string, error) {
	d, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(d, "credentials.json"), nil
}

// LoadClient reads the CLI config file if present and applies BT_* env
// overrides. A missing file is not an error.
func LoadClient() (ClientConfig, error) {
	v := viper.New()
	v.SetEnvPrefix("BT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetConfigType("yaml")
	v.SetDefault("api_base", DefaultUpstreamBaseURL)
	v.SetDefault("timeout", "15s")
	v.SetDefault("log_level", "warn")
	v.SetDefault("preflight_growth_dca", true)
	v.SetDefault("alerts.backtest", "5s")
	v.SetDefault("alerts.paper_trade", "3s")
	v.SetDefault("alerts.live_trade", "5s")
	v.SetDefault("alerts.dashboard_route", "/dashboard")

	p, err := ClientConfigPath()
	if err != nil {
		return ClientConfig{}, err
	}
	if _, statErr := os.Stat(p); statErr == nil {
		v.SetConfigFile(p)
		if err := v.ReadInConfig(); err != nil {
			return ClientConfig{}, err
		}
	}

	var cfg ClientConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return ClientConfig{}, err
	}
	cfg.APIBase = strings.TrimRight(strings.TrimSpace(cfg.APIBase), "/")
	if cfg.APIBase == "" {
		return ClientConfig{}, errors.New("api_base is empty")
	}
	return cfg, nil
}
