package lifecycle

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/safin-krmavi/Bulltrek/internal/alert"
	"github.com/safin-krmavi/Bulltrek/internal/client"
	"github.com/safin-krmavi/Bulltrek/internal/config"
	"github.com/safin-krmavi/Bulltrek/internal/models"
	"github.com/safin-krmavi/Bulltrek/internal/notify"
	"github.com/safin-krmavi/Bulltrek/internal/repository"
	"github.com/safin-krmavi/Bulltrek/internal/session"
	"github.com/safin-krmavi/Bulltrek/internal/strategy"
	"github.com/safin-krmavi/Bulltrek/internal/submission"
)

var (
	ErrNoBot        = errors.New("No bot selected for results")
	ErrNoStrategyID = errors.New("strategy id is required")
)

const (
	fallbackBacktest   = "Failed to start backtest"
	fallbackPaperTrade = "Failed to start paper trading"
	fallbackLiveTrade  = "Failed to start live market trading"
	fallbackResult     = "Failed to fetch backtest results"

	msgBacktest   = "Backtest started successfully."
	msgPaperTrade = "Paper trading started successfully."
	msgLiveTrade  = "Live market trading started successfully!"
)

// Target is the strategy an action applies to.
type Target struct {
	Type        strategy.Type
	StrategyID  string
	BrokerageID string
}

func (t Target) key(kind Kind) Key {
	return Key{Type: t.Type.Resolve(), StrategyID: strings.TrimSpace(t.StrategyID), Kind: kind}
}

// Outcome is the result of a started action. Result is set for backtests
// only: it yields the backtest result once the success alert expires, and
// is closed without a value when the alert is dismissed.
type Outcome struct {
	Kind     Kind                  `json:"kind"`
	ActionID string                `json:"action_id"`
	Endpoint string                `json:"endpoint"`
	Message  string                `json:"message"`
	Data     json.RawMessage       `json:"data,omitempty"`
	Alert    *alert.Alert          `json:"alert,omitempty"`
	Result   <-chan BacktestResult `json:"-"`
}

type BacktestResult struct {
	BotID string
	Data  json.RawMessage
	Err   error
}

// Dispatcher starts backtest, paper-trade and live-trade runs for created
// strategies. Repo, Alerts and Notifier are optional.
type Dispatcher struct {
	HTTP     *http.Client
	Logger   *zap.Logger
	Repo     repository.Repository
	Alerts   *alert.Manager
	Notifier notify.Notifier
	Machines *Machines
	TTL      config.AlertsConfig
}

func (d *Dispatcher) StartBacktest(ctx context.Context, sess session.Session, tgt Target, form strategy.BacktestForm) (Outcome, error) {
	if err := d.precheck(sess, tgt); err != nil {
		return Outcome{}, err
	}
	if err := strategy.ValidateBacktest(form); err != nil {
		return Outcome{}, err
	}
	body := strategy.Lookup(tgt.Type).BuildBacktest(form)
	res, err := d.run(ctx, sess, tgt, KindBacktest, form.BotID.String(), body, fallbackBacktest)
	if err != nil {
		return Outcome{}, err
	}
	res.outcome.Message = msgBacktest

	botID := form.BotID.String()
	results := make(chan BacktestResult, 1)
	res.outcome.Result = results
	a := alert.Alert{
		Kind:    string(KindBacktest),
		Level:   alert.LevelSuccess,
		Message: res.outcome.Message,
		TTL:     d.ttl(KindBacktest),
	}
	d.emit(notify.Event{
		Type:         notify.EventBacktestStarted,
		Level:        notify.LevelSuccess,
		Message:      res.outcome.Message,
		StrategyType: tgt.Type.Resolve().Slug(),
		StrategyID:   tgt.StrategyID,
		BotID:        botID,
	})
	d.showAlert(&res, a, func(expired bool) {
		defer close(results)
		if !expired {
			return
		}
		fctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		data, err := d.FetchBacktestResult(fctx, sess, botID)
		results <- BacktestResult{BotID: botID, Data: data, Err: err}
	})
	return res.outcome, nil
}

func (d *Dispatcher) StartPaperTrade(ctx context.Context, sess session.Session, tgt Target, form strategy.PaperTradeForm) (Outcome, error) {
	if err := d.precheck(sess, tgt); err != nil {
		return Outcome{}, err
	}
	if err := strategy.ValidatePaperTrade(form); err != nil {
		return Outcome{}, err
	}
	body := strategy.Lookup(tgt.Type).BuildPaperTrade(form)
	res, err := d.run(ctx, sess, tgt, KindPaperTrade, "", body, fallbackPaperTrade)
	if err != nil {
		return Outcome{}, err
	}
	if res.outcome.Message == "" {
		res.outcome.Message = msgPaperTrade
	}
	d.emit(notify.Event{
		Type:         notify.EventPaperTradeStarted,
		Level:        notify.LevelSuccess,
		Message:      res.outcome.Message,
		StrategyType: tgt.Type.Resolve().Slug(),
		StrategyID:   tgt.StrategyID,
	})
	d.showAlert(&res, alert.Alert{
		Kind:    string(KindPaperTrade),
		Level:   alert.LevelSuccess,
		Message: res.outcome.Message,
		TTL:     d.ttl(KindPaperTrade),
	}, nil)
	return res.outcome, nil
}

func (d *Dispatcher) StartLiveTrade(ctx context.Context, sess session.Session, tgt Target) (Outcome, error) {
	if err := d.precheck(sess, tgt); err != nil {
		return Outcome{}, err
	}
	res, err := d.run(ctx, sess, tgt, KindLiveTrade, "", map[string]any{}, fallbackLiveTrade)
	if err != nil {
		return Outcome{}, err
	}
	if res.outcome.Message == "" {
		res.outcome.Message = msgLiveTrade
	}
	d.emit(notify.Event{
		Type:         notify.EventLiveTradeStarted,
		Level:        notify.LevelSuccess,
		Message:      res.outcome.Message,
		StrategyType: tgt.Type.Resolve().Slug(),
		StrategyID:   tgt.StrategyID,
	})
	route := d.TTL.DashboardRoute
	if route == "" {
		route = "/dashboard"
	}
	d.showAlert(&res, alert.Alert{
		Kind:    string(KindLiveTrade),
		Level:   alert.LevelSuccess,
		Message: res.outcome.Message,
		TTL:     d.ttl(KindLiveTrade),
		Action:  &alert.Action{Label: "Go to Dashboard", Route: route},
	}, nil)
	return res.outcome, nil
}

// FetchBacktestResult reads the stored result of a bot's backtest.
func (d *Dispatcher) FetchBacktestResult(ctx context.Context, sess session.Session, botID string) (json.RawMessage, error) {
	botID = strings.TrimSpace(botID)
	if botID == "" {
		d.emit(notify.Event{Type: notify.EventActionFailed, Level: notify.LevelError, Message: ErrNoBot.Error()})
		return nil, ErrNoBot
	}
	if err := sess.Require(); err != nil {
		return nil, err
	}
	c := client.New(sess, d.HTTP, d.Logger)
	var raw []byte
	if err := c.DoJSON(ctx, http.MethodGet, ResolveEndpoint(KindBacktestResult, "", botID), nil, &raw); err != nil {
		err = client.Fail(err, fallbackResult)
		d.emit(notify.Event{Type: notify.EventActionFailed, Level: notify.LevelError, Message: err.Error(), BotID: botID})
		return nil, err
	}
	data := jsonOrString(raw)
	d.emit(notify.Event{
		Type:    notify.EventBacktestResult,
		Level:   notify.LevelSuccess,
		Message: "Backtest results ready",
		BotID:   botID,
		Data:    data,
	})
	return data, nil
}

// States returns the state of every action kind for one strategy.
func (d *Dispatcher) States(t strategy.Type, strategyID string) map[Kind]State {
	return d.machines().Snapshot(t, strategyID)
}

func (d *Dispatcher) precheck(sess session.Session, tgt Target) error {
	if err := sess.Require(); err != nil {
		return err
	}
	if strings.TrimSpace(tgt.BrokerageID) == "" {
		return submission.ErrNoBrokerage
	}
	if strings.TrimSpace(tgt.StrategyID) == "" {
		return ErrNoStrategyID
	}
	return nil
}

type runResult struct {
	key     Key
	ticket  uint64
	outcome Outcome
}

func (d *Dispatcher) run(ctx context.Context, sess session.Session, tgt Target, kind Kind, botID string, body any, fallback string) (runResult, error) {
	key := tgt.key(kind)
	ticket, err := d.machines().Begin(key)
	if err != nil {
		return runResult{}, err
	}

	endpoint := ResolveEndpoint(kind, key.Type, key.StrategyID)
	rec := &models.ActionRecord{
		ID:           uuid.NewString(),
		StrategyType: key.Type.Slug(),
		StrategyID:   key.StrategyID,
		BotID:        strings.TrimSpace(botID),
		Kind:         string(kind),
		State:        string(StateSubmitting),
		Endpoint:     endpoint,
		UserID:       sess.UserID,
		Request:      marshalJSON(body),
		StartedAt:    time.Now().UTC(),
	}
	d.insert(ctx, rec)

	log := d.log().With(
		zap.String("action", string(kind)),
		zap.String("strategy_type", key.Type.Slug()),
		zap.String("strategy_id", key.StrategyID),
	)

	c := client.New(sess, d.HTTP, d.Logger)
	var raw []byte
	if err := c.DoJSON(ctx, http.MethodPost, endpoint, body, &raw); err != nil {
		d.machines().Fail(key, ticket)
		err = client.Fail(err, fallback)
		log.Warn("action failed", zap.Error(err))
		d.finish(ctx, rec, StateFailed, err.Error(), nil)
		d.emit(notify.Event{
			Type:         notify.EventActionFailed,
			Level:        notify.LevelError,
			Message:      err.Error(),
			StrategyType: key.Type.Slug(),
			StrategyID:   key.StrategyID,
		})
		return runResult{}, err
	}

	d.machines().Succeed(key, ticket)
	data := jsonOrString(raw)
	msg := messageOf(raw)
	d.finish(ctx, rec, StateSucceeded, msg, data)
	log.Info("action started", zap.String("endpoint", endpoint))

	return runResult{
		key:    key,
		ticket: ticket,
		outcome: Outcome{
			Kind:     kind,
			ActionID: rec.ID,
			Endpoint: endpoint,
			Message:  msg,
			Data:     data,
		},
	}, nil
}

// showAlert shows a and returns the machine to idle when it closes. With no
// alert manager the machine is released at once and then is treated as
// dismissed.
func (d *Dispatcher) showAlert(res *runResult, a alert.Alert, after func(expired bool)) {
	key, ticket := res.key, res.ticket
	if d.Alerts == nil {
		d.machines().Release(key, ticket)
		if after != nil {
			after(false)
		}
		return
	}
	shown := d.Alerts.Show(a, func(closed alert.Alert, expired bool) {
		d.machines().Release(key, ticket)
		d.emit(notify.Event{
			Type:         notify.EventAlertClosed,
			Message:      closed.Message,
			StrategyType: key.Type.Slug(),
			StrategyID:   key.StrategyID,
			AlertID:      closed.ID,
		})
		if after != nil {
			after(expired)
		}
	})
	res.outcome.Alert = &shown
}

func (d *Dispatcher) ttl(kind Kind) time.Duration {
	switch kind {
	case KindBacktest:
		if d.TTL.Backtest > 0 {
			return d.TTL.Backtest
		}
		return 5 * time.Second
	case KindPaperTrade:
		if d.TTL.PaperTrade > 0 {
			return d.TTL.PaperTrade
		}
		return 3 * time.Second
	case KindLiveTrade:
		if d.TTL.LiveTrade > 0 {
			return d.TTL.LiveTrade
		}
		return 5 * time.Second
	}
	return 0
}

func (d *Dispatcher) machines() *Machines {
	if d.Machines == nil {
		d.Machines = NewMachines(false)
	}
	return d.Machines
}

func (d *Dispatcher) insert(ctx context.Context, rec *models.ActionRecord) {
	if d.Repo == nil {
		return
	}
	if err := d.Repo.InsertAction(ctx, rec); err != nil {
		d.log().Warn("record action failed", zap.String("action_id", rec.ID), zap.Error(err))
	}
}

func (d *Dispatcher) finish(ctx context.Context, rec *models.ActionRecord, st State, msg string, resp json.RawMessage) {
	now := time.Now().UTC()
	rec.State = string(st)
	rec.Message = msg
	rec.FinishedAt = &now
	if len(resp) > 0 {
		rec.Response = datatypes.JSON(resp)
	}
	if d.Repo == nil {
		return
	}
	if err := d.Repo.SaveAction(context.WithoutCancel(ctx), rec); err != nil {
		d.log().Warn("update action failed", zap.String("action_id", rec.ID), zap.Error(err))
	}
}

func (d *Dispatcher) emit(ev notify.Event) {
	if d.Notifier == nil {
		return
	}
	ev = ev.Stamp()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := d.Notifier.Notify(ctx, ev); err != nil {
			d.log().Warn("notify failed", zap.String("event", ev.Type), zap.Error(err))
		}
	}()
}

func (d *Dispatcher) log() *zap.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return zap.NewNop()
}

func messageOf(raw []byte) string {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}
	return strings.TrimSpace(body.Message)
}

// jsonOrString keeps a JSON body as is and wraps anything else as a JSON
// string so it can be stored and re-encoded.
func jsonOrString(raw []byte) json.RawMessage {
	if len(strings.TrimSpace(string(raw))) == 0 {
		return nil
	}
	if json.Valid(raw) {
		return json.RawMessage(raw)
	}
	b, _ := json.Marshal(string(raw))
	return b
}

func marshalJSON(v any) datatypes.JSON {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return datatypes.JSON(b)
}
