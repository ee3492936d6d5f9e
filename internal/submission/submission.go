package submission

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/safin-krmavi/Bulltrek/internal/client"
	"github.com/safin-krmavi/Bulltrek/internal/models"
	"github.com/safin-krmavi/Bulltrek/internal/repository"
	"github.com/safin-krmavi/Bulltrek/internal/session"
	"github.com/safin-krmavi/Bulltrek/internal/strategy"
)

var ErrNoBrokerage = errors.New("Please select an API connection")

const (
	fallbackCreate    = "Failed to create strategy."
	fallbackPreflight = "Investment validation failed."
	preflightPath     = "/growth-dca/validate-investment"
)

// Submitter creates strategies upstream. Repo is optional; when set, every
// created strategy is also recorded locally.
type Submitter struct {
	HTTP               *http.Client
	Logger             *zap.Logger
	PreflightGrowthDCA bool
	Repo               repository.Repository
}

type Result struct {
	ID      string         `json:"id"`
	Message string         `json:"message,omitempty"`
	Payload map[string]any `json:"payload,omitempty"`
}

type createResponse struct {
	ID      json.RawMessage `json:"id"`
	Message string          `json:"message"`
	Data    struct {
		ID json.RawMessage `json:"id"`
	} `json:"data"`
}

// CreateStrategy validates form for t and posts it to the type's create
// endpoint. Blocking errors (session, brokerage, validation) are returned
// before any network call. A 2xx response without an id is not an error;
// the returned id is empty.
func (s *Submitter) CreateStrategy(ctx context.Context, sess session.Session, t strategy.Type, form strategy.Form, brokerageID string) (Result, error) {
	if err := sess.Require(); err != nil {
		return Result{}, err
	}
	brokerageID = strings.TrimSpace(brokerageID)
	if brokerageID == "" {
		return Result{}, ErrNoBrokerage
	}
	t = t.Resolve()
	if err := strategy.Check(form, t); err != nil {
		return Result{}, err
	}

	c := client.New(sess, s.HTTP, s.Logger)
	if t == strategy.GrowthDCA && s.PreflightGrowthDCA {
		if err := s.preflight(ctx, c, form); err != nil {
			return Result{}, err
		}
	}

	v := strategy.Lookup(t)
	payload := v.BuildCreate(form, brokerageID)
	var raw []byte
	if err := c.DoJSON(ctx, http.MethodPost, v.CreatePath(), payload, &raw); err != nil {
		s.log().Warn("create strategy failed",
			zap.String("strategy_type", t.Slug()),
			zap.Error(err),
		)
		return Result{}, client.Fail(err, fallbackCreate)
	}
	var resp createResponse
	_ = json.Unmarshal(raw, &resp)

	id := rawID(resp.Data.ID)
	if id == "" {
		id = rawID(resp.ID)
	}
	if id == "" {
		s.log().Warn("create strategy response has no id", zap.String("strategy_type", t.Slug()))
	}
	s.log().Info("strategy created",
		zap.String("strategy_type", t.Slug()),
		zap.String("strategy_id", id),
	)

	s.record(ctx, sess, t, form, brokerageID, id, payload)
	return Result{ID: id, Message: resp.Message, Payload: payload}, nil
}

func (s *Submitter) preflight(ctx context.Context, c *client.Client, form strategy.Form) error {
	amount, _ := form.Decimal("investment")
	body := map[string]any{
		"amount":    json.Number(amount.String()),
		"frequency": strings.ToLower(form.Or("frequency", "daily")),
		"asset":     form.Get("pair"),
	}
	if err := c.DoJSON(ctx, http.MethodPost, preflightPath, body, nil); err != nil {
		return client.Fail(err, fallbackPreflight)
	}
	return nil
}

func (s *Submitter) record(ctx context.Context, sess session.Session, t strategy.Type, form strategy.Form, brokerageID, id string, payload map[string]any) {
	if s.Repo == nil {
		return
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return
	}
	item := &models.StrategyRecord{
		RemoteID:    id,
		Type:        t.Slug(),
		Name:        form.Or("name", form.Get("strategy_name")),
		BrokerageID: brokerageID,
		UserID:      sess.UserID,
		Payload:     datatypes.JSON(b),
	}
	if err := s.Repo.InsertStrategy(ctx, item); err != nil {
		s.log().Warn("record strategy failed", zap.String("strategy_id", id), zap.Error(err))
	}
}

func (s *Submitter) log() *zap.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return zap.NewNop()
}

// rawID reads an id that may be a JSON string or number.
func rawID(raw json.RawMessage) string {
	r := strings.TrimSpace(string(raw))
	if r == "" || r == "null" {
		return ""
	}
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		return strings.TrimSpace(str)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}
