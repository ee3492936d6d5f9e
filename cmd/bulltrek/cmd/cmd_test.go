package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/safin-krmavi/Bulltrek/internal/config"
	"github.com/safin-krmavi/Bulltrek/internal/output"
	"github.com/safin-krmavi/Bulltrek/internal/session"
	"github.com/safin-krmavi/Bulltrek/internal/strategy"
)

type recorded struct {
	Method string
	Path   string
	Body   map[string]any
}

type fakeUpstream struct {
	mu    sync.Mutex
	calls []recorded
}

func (f *fakeUpstream) handler(routes map[string]string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		var body map[string]any
		_ = json.Unmarshal(b, &body)
		f.mu.Lock()
		f.calls = append(f.calls, recorded{Method: r.Method, Path: r.URL.Path, Body: body})
		f.mu.Unlock()
		resp, ok := routes[r.Method+" "+r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message":"not found"}`))
			return
		}
		_, _ = w.Write([]byte(resp))
	}
}

func (f *fakeUpstream) Calls() []recorded {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recorded(nil), f.calls...)
}

func newContext(t *testing.T, baseURL, token string) (Context, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	store := session.CredentialStore{Path: filepath.Join(t.TempDir(), "credentials.json")}
	return Context{
		Config:  config.ClientConfig{APIBase: baseURL, Alerts: config.AlertsConfig{Backtest: 20 * time.Millisecond}},
		Session: session.New(baseURL, token),
		Store:   store,
		Output:  output.FormatJSON,
		HTTP:    http.DefaultClient,
		Stdout:  &buf,
	}, &buf
}

func signedToken(t *testing.T, sub string) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": sub,
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("test"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return tok
}

func TestAuthLoginSavesCredentials(t *testing.T) {
	token := signedToken(t, "42")
	up := &fakeUpstream{}
	srv := httptest.NewServer(up.handler(map[string]string{
		"POST /api/v1/auth": `{"data":{"token":"` + token + `"}}`,
	}))
	defer srv.Close()

	ctx, buf := newContext(t, srv.URL+"/api/v1", "")
	if err := Dispatch(ctx, []string{"auth", "login", "--email", "a@b.c", "--password", "pw"}); err != nil {
		t.Fatalf("login: %v", err)
	}
	cred, err := ctx.Store.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cred.Token != token || cred.UserID != "42" || cred.Username != "a@b.c" {
		t.Fatalf("cred=%+v", cred)
	}
	var status map[string]any
	if err := json.Unmarshal(buf.Bytes(), &status); err != nil || status["logged_in"] != true {
		t.Fatalf("status=%v err=%v", status, err)
	}

	if err := Dispatch(ctx, []string{"auth", "logout"}); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := os.Stat(ctx.Store.Path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("credentials file still present: %v", err)
	}
}

func TestStrategyCreateFromFile(t *testing.T) {
	up := &fakeUpstream{}
	srv := httptest.NewServer(up.handler(map[string]string{
		"POST /api/v1/smart-grid/create": `{"id":77,"message":"created"}`,
	}))
	defer srv.Close()

	file := filepath.Join(t.TempDir(), "grid.yaml")
	form := "strategy_name: sg\npair: BTCUSDT\ninvestment: 500\nlower_limit: 100\nupper_limit: 200\nlevels: 10\n" +
		"profit_per_level_min: 0.5\nprofit_per_level_max: 1\n"
	if err := os.WriteFile(file, []byte(form), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	ctx, buf := newContext(t, srv.URL+"/api/v1", "tok")
	err := Dispatch(ctx, []string{"strategy", "create", "--type", "Smart Grid", "--file", file, "--brokerage", "5", "--set", "segment=Futures", "--set", "leverage=3"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	calls := up.Calls()
	if len(calls) != 1 {
		t.Fatalf("calls=%d want=1", len(calls))
	}
	if calls[0].Body["leverage"] != float64(3) || calls[0].Body["pair"] != "BTCUSDT" {
		t.Fatalf("body=%v", calls[0].Body)
	}
	var res map[string]any
	if err := json.Unmarshal(buf.Bytes(), &res); err != nil || res["id"] != "77" {
		t.Fatalf("res=%v err=%v", res, err)
	}
}

func TestStrategyCustomCreatesBot(t *testing.T) {
	up := &fakeUpstream{}
	srv := httptest.NewServer(up.handler(map[string]string{
		"POST /api/v1/strategies": `{"data":{"id":5}}`,
		"POST /api/v1/bots":       `{"data":{"id":8}}`,
	}))
	defer srv.Close()

	ctx, buf := newContext(t, srv.URL+"/api/v1", "tok")
	err := Dispatch(ctx, []string{"strategy", "custom", "--name", "swing", "--entry", "rsi < 30", "--entry", "vol > 2x",
		"--exit", "rsi > 70", "--timeframe", "5M,15M"})
	if err != nil {
		t.Fatalf("custom: %v", err)
	}
	calls := up.Calls()
	if len(calls) != 3 || calls[0].Path != "/api/v1/strategy" || calls[1].Path != "/api/v1/strategies" {
		t.Fatalf("calls=%+v", calls)
	}
	if calls[1].Body["entry_condition"] != "rsi < 30; vol > 2x" || calls[1].Body["timeframes"] != "5M,15M" {
		t.Fatalf("body=%v", calls[1].Body)
	}
	var res map[string]any
	if err := json.Unmarshal(buf.Bytes(), &res); err != nil || res["strategy_id"] != "5" || res["bot_id"] != "8" {
		t.Fatalf("res=%v err=%v", res, err)
	}
}

func TestStrategyValidateReportsMissing(t *testing.T) {
	ctx, _ := newContext(t, "http://127.0.0.1:1/api/v1", "tok")
	err := Dispatch(ctx, []string{"strategy", "validate", "--type", "human-grid", "--set", "name=x"})
	var verr *strategy.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err=%v want ValidationError", err)
	}
	if len(verr.Fields) == 0 || verr.Fields[0] != "Pair" {
		t.Fatalf("fields=%v", verr.Fields)
	}
}

func TestBacktestWaitFetchesResult(t *testing.T) {
	up := &fakeUpstream{}
	srv := httptest.NewServer(up.handler(map[string]string{
		"POST /api/v1/indy-trend/9/backtest":  `{"status":"queued"}`,
		"GET /api/v1/bots/11/backtest-result": `{"pnl":12.5}`,
	}))
	defer srv.Close()

	ctx, buf := newContext(t, srv.URL+"/api/v1", "tok")
	err := Dispatch(ctx, []string{"backtest", "--type", "indy-trend", "--id", "9", "--brokerage", "5",
		"--name", "bt", "--start", "2024-01-01", "--end", "2024-02-01", "--balance", "1000", "--bot", "11", "--wait"})
	if err != nil {
		t.Fatalf("backtest: %v", err)
	}
	if !strings.Contains(buf.String(), `"pnl": 12.5`) {
		t.Fatalf("output=%s", buf.String())
	}
	calls := up.Calls()
	if len(calls) != 2 || calls[1].Path != "/api/v1/bots/11/backtest-result" {
		t.Fatalf("calls=%+v", calls)
	}
	if _, ok := calls[0].Body["name"]; ok {
		t.Fatalf("backtest name should stay local: %v", calls[0].Body)
	}
}

func TestPaperInfersTypeFromBot(t *testing.T) {
	up := &fakeUpstream{}
	srv := httptest.NewServer(up.handler(map[string]string{
		"POST /api/v1/human-grid/4/paper/start": `{"message":"paper on"}`,
	}))
	defer srv.Close()

	ctx, _ := newContext(t, srv.URL+"/api/v1", "tok")
	if err := Dispatch(ctx, []string{"paper", "--bot-name", "ETH Human-Grid", "--id", "4", "--brokerage", "5"}); err != nil {
		t.Fatalf("paper: %v", err)
	}
	calls := up.Calls()
	if len(calls) != 1 || calls[0].Path != "/api/v1/human-grid/4/paper/start" {
		t.Fatalf("calls=%+v", calls)
	}

	ctx, _ = newContext(t, srv.URL+"/api/v1", "tok")
	err := Dispatch(ctx, []string{"paper", "--type", "smart-grid", "--bot-name", "ETH Human-Grid", "--id", "4", "--brokerage", "5"})
	if err == nil {
		t.Fatalf("explicit --type should win over the bot name")
	}
	if calls := up.Calls(); calls[len(calls)-1].Path != "/api/v1/smart-grid/4/paper/start" {
		t.Fatalf("calls=%+v", calls)
	}
}

func TestBacktestWaitNeedsBot(t *testing.T) {
	ctx, _ := newContext(t, "http://127.0.0.1:1/api/v1", "tok")
	err := Dispatch(ctx, []string{"backtest", "--type", "indy-trend", "--id", "9", "--brokerage", "5", "--wait"})
	if err == nil || !strings.Contains(err.Error(), "No bot selected") {
		t.Fatalf("err=%v", err)
	}
}

func TestEndpoint(t *testing.T) {
	ctx, buf := newContext(t, "https://api.example.com/api/v1", "")
	if err := Dispatch(ctx, []string{"endpoint", "--kind", "live", "--type", "price_action", "--id", "3"}); err != nil {
		t.Fatalf("endpoint: %v", err)
	}
	var v map[string]any
	_ = json.Unmarshal(buf.Bytes(), &v)
	if v["endpoint"] != "/api/v1/price-action/3/start" {
		t.Fatalf("v=%v", v)
	}
}

func TestUnknownCommand(t *testing.T) {
	ctx, _ := newContext(t, "http://127.0.0.1:1/api/v1", "")
	if err := Dispatch(ctx, []string{"nope"}); err == nil {
		t.Fatalf("expected error")
	}
}
