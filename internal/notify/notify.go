package notify

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Event types emitted by the desk.
const (
	EventStrategyCreated   = "strategy.created"
	EventBacktestStarted   = "backtest.started"
	EventBacktestResult    = "backtest.result"
	EventPaperTradeStarted = "paper_trade.started"
	EventLiveTradeStarted  = "live_trade.started"
	EventActionFailed      = "action.failed"
	EventAlertClosed       = "alert.closed"
)

type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

type Event struct {
	ID           string          `json:"id"`
	Type         string          `json:"type"`
	Level        Level           `json:"level"`
	Message      string          `json:"message"`
	StrategyType string          `json:"strategy_type,omitempty"`
	StrategyID   string          `json:"strategy_id,omitempty"`
	BotID        string          `json:"bot_id,omitempty"`
	AlertID      string          `json:"alert_id,omitempty"`
	Data         json.RawMessage `json:"data,omitempty"`
	Time         time.Time       `json:"time"`
}

// Stamp fills ID and Time when they are unset.
func (e Event) Stamp() Event {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Time.IsZero() {
		e.Time = time.Now().UTC()
	}
	if e.Level == "" {
		e.Level = LevelInfo
	}
	return e
}

type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// Multi delivers to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, ev Event) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Filter forwards only the listed event types. An empty list forwards
// everything.
type Filter struct {
	Next  Notifier
	Types []string
}

func (f Filter) Notify(ctx context.Context, ev Event) error {
	if f.Next == nil {
		return nil
	}
	if len(f.Types) == 0 {
		return f.Next.Notify(ctx, ev)
	}
	for _, t := range f.Types {
		if t == ev.Type {
			return f.Next.Notify(ctx, ev)
		}
	}
	return nil
}

// Text renders ev as a single chat line.
func Text(ev Event) string {
	s := ev.Message
	if ev.StrategyType != "" {
		s = "[" + ev.StrategyType
		if ev.StrategyID != "" {
			s += " #" + ev.StrategyID
		}
		s += "] " + ev.Message
	}
	return s
}
