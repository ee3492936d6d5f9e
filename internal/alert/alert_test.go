package alert

import (
	"encoding/json"
	"testing"
	"time"
)

func TestShowExpires(t *testing.T) {
	m := NewManager()
	done := make(chan bool, 1)
	a := m.Show(Alert{Kind: "backtest", Message: "started", TTL: 20 * time.Millisecond}, func(a Alert, expired bool) {
		done <- expired
	})
	if a.ID == "" || a.Level != LevelInfo {
		t.Fatalf("alert=%+v", a)
	}
	if got := m.List(); len(got) != 1 {
		t.Fatalf("list=%d want=1", len(got))
	}

	select {
	case expired := <-done:
		if !expired {
			t.Fatalf("expired=false want=true")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("alert did not expire")
	}
	if _, ok := m.Get(a.ID); ok {
		t.Fatalf("expired alert still listed")
	}
}

func TestDismissCancelsExpiry(t *testing.T) {
	m := NewManager()
	calls := make(chan bool, 2)
	a := m.Show(Alert{Message: "x", TTL: 30 * time.Millisecond}, func(a Alert, expired bool) {
		calls <- expired
	})
	if !m.Dismiss(a.ID) {
		t.Fatalf("dismiss=false want=true")
	}
	if m.Dismiss(a.ID) {
		t.Fatalf("second dismiss should report false")
	}
	if expired := <-calls; expired {
		t.Fatalf("dismissal reported as expiry")
	}
	time.Sleep(60 * time.Millisecond)
	select {
	case <-calls:
		t.Fatalf("close callback ran twice")
	default:
	}
}

func TestZeroTTLStaysUntilDismissed(t *testing.T) {
	m := NewManager()
	a := m.Show(Alert{Message: "sticky"}, nil)
	if !a.ExpiresAt.IsZero() {
		t.Fatalf("expires_at=%v want zero", a.ExpiresAt)
	}
	m.Close()
	if got := m.List(); len(got) != 0 {
		t.Fatalf("list=%d want=0", len(got))
	}
}

func TestAlertJSONUsesMilliseconds(t *testing.T) {
	a := Alert{ID: "a1", Kind: "paper-trade", Message: "ok", TTL: 3 * time.Second}
	b, err := json.Marshal(a)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var raw map[string]any
	_ = json.Unmarshal(b, &raw)
	if raw["ttl_ms"] != float64(3000) {
		t.Fatalf("ttl_ms=%v want=3000 body=%s", raw["ttl_ms"], b)
	}
	if _, ok := raw["ttl"]; ok {
		t.Fatalf("nanosecond ttl still present: %s", b)
	}
	if raw["id"] != "a1" || raw["kind"] != "paper-trade" {
		t.Fatalf("body=%s", b)
	}

	var back Alert
	if err := json.Unmarshal(b, &back); err != nil || back.TTL != 3*time.Second || back.ID != "a1" {
		t.Fatalf("back=%+v err=%v", back, err)
	}
}
