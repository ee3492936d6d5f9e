package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/safin-krmavi/Bulltrek/internal/config"
)

func TestHubFanout(t *testing.T) {
	h := NewHub(1)
	a, closeA := h.Subscribe()
	b, closeB := h.Subscribe()
	defer closeB()

	_ = h.Notify(context.Background(), Event{Type: EventBacktestStarted, Message: "one"})
	if ev := <-a; ev.Message != "one" {
		t.Fatalf("a got=%q", ev.Message)
	}
	if ev := <-b; ev.Message != "one" {
		t.Fatalf("b got=%q", ev.Message)
	}

	_ = h.Notify(context.Background(), Event{Message: "two"})
	_ = h.Notify(context.Background(), Event{Message: "dropped"})
	if ev := <-a; ev.Message != "two" {
		t.Fatalf("a got=%q want=two", ev.Message)
	}

	closeA()
	closeA()
	if _, ok := <-a; ok {
		t.Fatalf("channel should be closed")
	}
	if n := h.Subscribers(); n != 1 {
		t.Fatalf("subscribers=%d want=1", n)
	}
}

func TestWebhookAndTelegram(t *testing.T) {
	var hook Event
	var hookHeader string
	var tg telegramSendMessageRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/hook":
			hookHeader = r.Header.Get("X-Bulltrek-Event")
			_ = json.NewDecoder(r.Body).Decode(&hook)
		case r.URL.Path == "/botBAD/sendMessage":
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"ok":false,"error_code":401,"description":"Unauthorized"}`))
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			if r.URL.Path != "/botT0K/sendMessage" {
				t.Errorf("path=%s", r.URL.Path)
			}
			_ = json.NewDecoder(r.Body).Decode(&tg)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	ev := Event{Type: EventLiveTradeStarted, Message: "live", StrategyType: "smart-grid", StrategyID: "9"}.Stamp()
	if err := (WebhookNotifier{HTTP: srv.Client(), URL: srv.URL + "/hook"}).Notify(context.Background(), ev); err != nil {
		t.Fatalf("webhook: %v", err)
	}
	if hook.Type != EventLiveTradeStarted || hook.ID == "" || hookHeader != EventLiveTradeStarted {
		t.Fatalf("hook=%+v header=%q", hook, hookHeader)
	}

	tn := TelegramNotifier{HTTP: srv.Client(), BotToken: "T0K", ChatID: "42", APIBase: srv.URL}
	if err := tn.Notify(context.Background(), ev); err != nil {
		t.Fatalf("telegram: %v", err)
	}
	if tg.ChatID != "42" || tg.Text != "[smart-grid #9] live" || !tg.DisableNotification {
		t.Fatalf("telegram=%+v", tg)
	}

	bad := TelegramNotifier{HTTP: srv.Client(), BotToken: "BAD", ChatID: "42", APIBase: srv.URL}
	err := bad.Notify(context.Background(), ev)
	var se *StatusError
	if !errors.As(err, &se) || se.Status != http.StatusUnauthorized || se.Detail != "Unauthorized" {
		t.Fatalf("err=%v", err)
	}

	if err := (WebhookNotifier{HTTP: srv.Client(), URL: srv.URL + "/missing"}).Notify(context.Background(), ev); err == nil {
		t.Fatalf("expected error on 404")
	}
}

func TestSlackNotifier(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&body)
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	n := SlackNotifier{HTTP: srv.Client(), WebhookURL: srv.URL, Channel: "#desk"}
	ev := Event{Type: EventActionFailed, Level: LevelError, Message: "Failed to start backtest", Time: time.Unix(1700000000, 0)}
	if err := n.Notify(context.Background(), ev); err != nil {
		t.Fatalf("slack: %v", err)
	}
	if body["channel"] != "#desk" || body["text"] != "Failed to start backtest" {
		t.Fatalf("body=%v", body)
	}
}

func TestFilterAndFromConfig(t *testing.T) {
	h := NewHub(4)
	ch, done := h.Subscribe()
	defer done()

	f := Filter{Next: h, Types: []string{EventBacktestResult}}
	_ = f.Notify(context.Background(), Event{Type: EventAlertClosed})
	_ = f.Notify(context.Background(), Event{Type: EventBacktestResult})
	if ev := <-ch; ev.Type != EventBacktestResult {
		t.Fatalf("type=%s", ev.Type)
	}

	n := FromConfig(config.NotifyConfig{Slack: config.SlackConfig{Enabled: true}}, nil, nil, h)
	m, ok := n.(Multi)
	if !ok || len(m) != 2 {
		t.Fatalf("notifier=%T len=%d want log+hub only", n, len(m))
	}
}
