package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/slack-go/slack"
)

// SlackNotifier posts to an incoming webhook.
type SlackNotifier struct {
	HTTP       *http.Client
	WebhookURL string
	Channel    string
}

var slackColors = map[Level]string{
	LevelSuccess: "good",
	LevelError:   "danger",
	LevelInfo:    "#439FE0",
}

func (n SlackNotifier) Notify(ctx context.Context, ev Event) error {
	client := n.HTTP
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	att := slack.Attachment{
		Color:  slackColors[ev.Level],
		Title:  ev.Type,
		Text:   ev.Message,
		Footer: "bulltrek",
		Ts:     slackTimestamp(ev.Time),
	}
	if ev.StrategyType != "" {
		att.Fields = append(att.Fields, slack.AttachmentField{Title: "Strategy", Value: ev.StrategyType, Short: true})
	}
	if ev.StrategyID != "" {
		att.Fields = append(att.Fields, slack.AttachmentField{Title: "ID", Value: ev.StrategyID, Short: true})
	}
	msg := &slack.WebhookMessage{
		Channel:     n.Channel,
		Text:        Text(ev),
		Attachments: []slack.Attachment{att},
	}
	return slack.PostWebhookCustomHTTPContext(ctx, n.WebhookURL, client, msg)
}

func slackTimestamp(t time.Time) json.Number {
	if t.IsZero() {
		return ""
	}
	return json.Number(strconv.FormatInt(t.Unix(), 10))
}
