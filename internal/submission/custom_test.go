package submission

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/safin-krmavi/Bulltrek/internal/repository"
	"github.com/safin-krmavi/Bulltrek/internal/session"
	"github.com/safin-krmavi/Bulltrek/internal/strategy"
)

func rsiStrategy() CustomStrategy {
	return CustomStrategy{
		Name:            "RSI bounce",
		EntryConditions: []string{"RSI < 30", " close > ema20 "},
		ExitCondition:   "RSI > 70",
		Timeframes:      []string{"5M", "15M", "15M"},
	}
}

type customUpstream struct {
	mu     sync.Mutex
	paths  []string
	bodies map[string]map[string]any
}

func (u *customUpstream) record(r *http.Request) {
	var body map[string]any
	_ = json.NewDecoder(r.Body).Decode(&body)
	u.mu.Lock()
	defer u.mu.Unlock()
	u.paths = append(u.paths, r.URL.Path)
	if u.bodies == nil {
		u.bodies = map[string]map[string]any{}
	}
	u.bodies[r.URL.Path] = body
}

func (u *customUpstream) snapshot() ([]string, map[string]map[string]any) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]string(nil), u.paths...), u.bodies
}

func TestCreateCustomStrategy_FallsBackOn404AndCreatesBot(t *testing.T) {
	up := &customUpstream{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		up.record(r)
		switch r.URL.Path {
		case "/api/v1/strategies":
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"data":{"id":77}}`))
		case "/api/v1/bots":
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"data":{"id":"bot-9"}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message":"not found"}`))
		}
	}))
	defer srv.Close()

	repo := repository.NewMemoryStore()
	s := &Submitter{HTTP: srv.Client(), Repo: repo}
	res, err := s.CreateCustomStrategy(context.Background(), session.New(srv.URL+"/api/v1", "tok"), rsiStrategy())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	paths, bodies := up.snapshot()
	wantPaths := []string{"/api/v1/strategy", "/api/v1/strategies", "/api/v1/bots"}
	if !reflect.DeepEqual(paths, wantPaths) {
		t.Fatalf("paths=%v want=%v", paths, wantPaths)
	}
	if res.StrategyID != "77" || res.BotID != "bot-9" || res.BotError != "" {
		t.Fatalf("result=%+v", res)
	}
	if res.Message != "Strategy and Bot created successfully! Strategy ID: 77" {
		t.Fatalf("message=%q", res.Message)
	}

	sent := bodies["/api/v1/strategies"]
	if sent["entry_condition"] != "RSI < 30; close > ema20" || sent["timeframes"] != "5M,15M" {
		t.Fatalf("strategy body=%v", sent)
	}
	bot := bodies["/api/v1/bots"]
	if bot["name"] != "RSI bounce Bot" || bot["strategy_id"] != float64(77) || bot["mode"] != "paper" || bot["execution_type"] != "manual" {
		t.Fatalf("bot body=%v", bot)
	}

	items, _ := repo.ListStrategies(context.Background(), repository.ListStrategiesParams{})
	if len(items) != 1 || items[0].Type != CustomType || items[0].RemoteID != "77" {
		t.Fatalf("records=%+v", items)
	}
}

func TestCreateCustomStrategy_BotFailureIsPartialSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/strategy":
			_, _ = w.Write([]byte(`{"id":"s-1"}`))
		case "/api/v1/bots":
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"message":"bot limit reached"}`))
		}
	}))
	defer srv.Close()

	s := &Submitter{HTTP: srv.Client()}
	res, err := s.CreateCustomStrategy(context.Background(), session.New(srv.URL+"/api/v1", "tok"), rsiStrategy())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if res.StrategyID != "s-1" || res.BotID != "" {
		t.Fatalf("result=%+v", res)
	}
	if res.Message != "Strategy created successfully! (Bot creation failed)" || res.BotError != "bot limit reached" {
		t.Fatalf("message=%q bot_error=%q", res.Message, res.BotError)
	}
}

func TestCreateCustomStrategy_ErrorsAndValidation(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"name taken"}`))
	}))
	defer srv.Close()
	s := &Submitter{HTTP: srv.Client()}
	ctx := context.Background()

	cs := rsiStrategy()
	cs.EntryConditions = append(cs.EntryConditions, "  ")
	cs.ExitCondition = ""
	_, err := s.CreateCustomStrategy(ctx, session.New(srv.URL, "tok"), cs)
	var verr *strategy.ValidationError
	if !errors.As(err, &verr) || !reflect.DeepEqual(verr.Fields, []string{"Entry Condition", "Exit Condition"}) {
		t.Fatalf("validation err=%v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 0 {
		t.Fatalf("calls=%d want=0", n)
	}

	_, err = s.CreateCustomStrategy(ctx, session.New(srv.URL, "tok"), rsiStrategy())
	if err == nil || err.Error() != "name taken" {
		t.Fatalf("err=%v want=name taken", err)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("calls=%d want=1 (no legacy retry on 400)", n)
	}
}
