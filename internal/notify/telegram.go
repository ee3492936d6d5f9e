package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
)

const telegramAPI = "https://api.telegram.org"

// TelegramNotifier sends events through the Bot API sendMessage method.
// Only error events ring; everything else is delivered silently.
type TelegramNotifier struct {
	HTTP     *http.Client
	BotToken string
	ChatID   string
	// APIBase overrides the Bot API host.
	APIBase string
}

type telegramSendMessageRequest struct {
	ChatID              string `json:"chat_id"`
	Text                string `json:"text"`
	DisableNotification bool   `json:"disable_notification,omitempty"`
}

type telegramReply struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

func (n TelegramNotifier) Notify(ctx context.Context, ev Event) error {
	if strings.TrimSpace(n.BotToken) == "" || strings.TrimSpace(n.ChatID) == "" {
		return errors.New("telegram: missing bot_token/chat_id")
	}
	base := strings.TrimRight(n.APIBase, "/")
	if base == "" {
		base = telegramAPI
	}
	msg := telegramSendMessageRequest{
		ChatID:              n.ChatID,
		Text:                Text(ev),
		DisableNotification: ev.Level != LevelError,
	}
	_, err := postJSON(ctx, n.HTTP, "telegram", base+"/bot"+url.PathEscape(n.BotToken)+"/sendMessage", msg, nil)
	var se *StatusError
	if errors.As(err, &se) {
		var reply telegramReply
		if json.Unmarshal([]byte(se.Detail), &reply) == nil && reply.Description != "" {
			se.Detail = reply.Description
		}
	}
	return err
}
