package notify

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/safin-krmavi/Bulltrek/internal/config"
)

// remoteEvents are the events worth a chat message; alert bookkeeping
// stays local.
var remoteEvents = []string{
	EventStrategyCreated,
	EventBacktestStarted,
	EventBacktestResult,
	EventPaperTradeStarted,
	EventLiveTradeStarted,
	EventActionFailed,
}

// FromConfig builds the notifier chain: the log, the hub when given, and
// every enabled remote channel.
func FromConfig(cfg config.NotifyConfig, httpClient *http.Client, logger *zap.Logger, hub *Hub) Notifier {
	out := Multi{LogNotifier{Logger: logger}}
	if hub != nil {
		out = append(out, hub)
	}
	if cfg.Telegram.Enabled && strings.TrimSpace(cfg.Telegram.BotToken) != "" {
		out = append(out, Filter{Types: remoteEvents, Next: TelegramNotifier{
			HTTP:     httpClient,
			BotToken: strings.TrimSpace(cfg.Telegram.BotToken),
			ChatID:   strings.TrimSpace(cfg.Telegram.ChatID),
		}})
	}
	if cfg.Webhook.Enabled && strings.TrimSpace(cfg.Webhook.URL) != "" {
		out = append(out, Filter{Types: remoteEvents, Next: WebhookNotifier{
			HTTP: httpClient,
			URL:  strings.TrimSpace(cfg.Webhook.URL),
		}})
	}
	if cfg.Slack.Enabled && strings.TrimSpace(cfg.Slack.WebhookURL) != "" {
		out = append(out, Filter{Types: remoteEvents, Next: SlackNotifier{
			HTTP:       httpClient,
			WebhookURL: strings.TrimSpace(cfg.Slack.WebhookURL),
			Channel:    strings.TrimSpace(cfg.Slack.Channel),
		}})
	}
	return out
}
