package notify

import (
	"context"
	"net/http"
)

// WebhookNotifier posts each event as JSON. The event type is repeated in
// the X-Bulltrek-Event header for receivers that route before parsing.
type WebhookNotifier struct {
	HTTP *http.Client
	URL  string
}

func (n WebhookNotifier) Notify(ctx context.Context, ev Event) error {
	h := http.Header{}
	h.Set("X-Bulltrek-Event", ev.Type)
	_, err := postJSON(ctx, n.HTTP, "webhook", n.URL, ev, h)
	return err
}
