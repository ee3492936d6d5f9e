package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

const DefaultUpstreamBaseURL = "https://newterminals.marketsverse.com/api/v1"

type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	DB        DBConfig        `mapstructure:"db"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Upstream  UpstreamConfig  `mapstructure:"upstream"`
	Alerts    AlertsConfig    `mapstructure:"alerts"`
	Lifecycle LifecycleConfig `mapstructure:"lifecycle"`
	Notify    NotifyConfig    `mapstructure:"notify"`
	Cron      CronConfig      `mapstructure:"cron"`
	Retention RetentionConfig `mapstructure:"retention"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
	// OutputPaths defaults to stdout. The CLI points this at stderr.
	OutputPaths []string `mapstructure:"output_paths"`
}

type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Timezone        string        `mapstructure:"timezone"`
}

type CacheConfig struct {
	Driver        string        `mapstructure:"driver"`
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	BrokerageTTL  time.Duration `mapstructure:"brokerage_ttl"`
}

type UpstreamConfig struct {
	BaseURL            string        `mapstructure:"base_url"`
	Timeout            time.Duration `mapstructure:"timeout"`
	PreflightGrowthDCA bool          `mapstructure:"preflight_growth_dca"`
}

type AlertsConfig struct {
	Backtest       time.Duration `mapstructure:"backtest"`
	PaperTrade     time.Duration `mapstructure:"paper_trade"`
	LiveTrade      time.Duration `mapstructure:"live_trade"`
	DashboardRoute string        `mapstructure:"dashboard_route"`
}

type LifecycleConfig struct {
	ExclusivePerStrategy bool `mapstructure:"exclusive_per_strategy"`
}

type NotifyConfig struct {
	Telegram TelegramConfig `mapstructure:"telegram"`
	Webhook  WebhookConfig  `mapstructure:"webhook"`
	Slack    SlackConfig    `mapstructure:"slack"`
}

type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
}

type WebhookConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
}

type SlackConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	WebhookURL string `mapstructure:"webhook_url"`
	Channel    string `mapstructure:"channel"`
}

type CronConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Purge   string `mapstructure:"purge"`
}

type RetentionConfig struct {
	ActionMaxAge time.Duration `mapstructure:"action_max_age"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("BT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("log.output_paths", []string{"stdout"})
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("cache.driver", "memory")
	v.SetDefault("cache.redis_addr", "127.0.0.1:6379")
	v.SetDefault("cache.redis_password", "")
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("cache.brokerage_ttl", "1m")
	v.SetDefault("upstream.base_url", DefaultUpstreamBaseURL)
	v.SetDefault("upstream.timeout", "15s")
	v.SetDefault("upstream.preflight_growth_dca", true)
	v.SetDefault("alerts.backtest", "5s")
	v.SetDefault("alerts.paper_trade", "3s")
	v.SetDefault("alerts.live_trade", "5s")
	v.SetDefault("alerts.dashboard_route", "/dashboard")
	v.SetDefault("lifecycle.exclusive_per_strategy", false)
	v.SetDefault("notify.telegram.enabled", false)
	v.SetDefault("notify.webhook.enabled", false)
	v.SetDefault("notify.slack.enabled", false)
	v.SetDefault("cron.enabled", true)
	v.SetDefault("cron.purge", "0 0 * * * *")
	v.SetDefault("retention.action_max_age", "720h")

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
