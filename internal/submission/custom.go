package submission

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/safin-krmavi/Bulltrek/internal/client"
	"github.com/safin-krmavi/Bulltrek/internal/models"
	"github.com/safin-krmavi/Bulltrek/internal/session"
	"github.com/safin-krmavi/Bulltrek/internal/strategy"
)

const (
	// CustomType is the record type of strategies built from free-form
	// entry and exit conditions.
	CustomType = "custom"

	customPath       = "/strategy"
	customLegacyPath = "/strategies"
	botsPath         = "/bots"

	botMode          = "paper"
	botExecutionType = "manual"

	msgCustomCreated = "Strategy created successfully!"
	msgCustomNoBot   = "Strategy created successfully! (Bot creation failed)"
)

// CustomStrategy is a strategy described by conditions rather than one of
// the fixed form types.
type CustomStrategy struct {
	Name            string   `json:"name" yaml:"name"`
	EntryConditions []string `json:"entry_conditions" yaml:"entry_conditions"`
	ExitCondition   string   `json:"exit_condition" yaml:"exit_condition"`
	Timeframes      []string `json:"timeframes,omitempty" yaml:"timeframes"`
}

// Check reports the empty inputs by label. Every entry condition counts.
func (c CustomStrategy) Check() error {
	var missing []string
	if strings.TrimSpace(c.Name) == "" {
		missing = append(missing, "Name")
	}
	conds := c.EntryConditions
	if len(conds) == 0 {
		conds = []string{""}
	}
	if lo.SomeBy(conds, func(s string) bool { return strings.TrimSpace(s) == "" }) {
		missing = append(missing, "Entry Condition")
	}
	if strings.TrimSpace(c.ExitCondition) == "" {
		missing = append(missing, "Exit Condition")
	}
	if len(missing) == 0 {
		return nil
	}
	return &strategy.ValidationError{Fields: missing}
}

func (c CustomStrategy) payload() map[string]any {
	conds := lo.Map(c.EntryConditions, func(s string, _ int) string { return strings.TrimSpace(s) })
	frames := lo.Uniq(lo.Compact(lo.Map(c.Timeframes, func(s string, _ int) string { return strings.TrimSpace(s) })))
	return map[string]any{
		"name":            strings.TrimSpace(c.Name),
		"entry_condition": strings.Join(conds, "; "),
		"exit_condition":  strings.TrimSpace(c.ExitCondition),
		"timeframes":      strings.Join(frames, ","),
	}
}

// CustomResult is a created custom strategy and, when bot creation worked,
// the paper bot linked to it. BotError is set when the strategy exists but
// the bot could not be created.
type CustomResult struct {
	StrategyID string         `json:"strategy_id"`
	BotID      string         `json:"bot_id,omitempty"`
	BotError   string         `json:"bot_error,omitempty"`
	Message    string         `json:"message"`
	Payload    map[string]any `json:"payload,omitempty"`
}

// CreateCustomStrategy posts a custom strategy, retrying on the plural
// route when the singular one is not found, then creates a manual paper
// bot for it. A failed bot is reported in the result, not as an error.
func (s *Submitter) CreateCustomStrategy(ctx context.Context, sess session.Session, cs CustomStrategy) (CustomResult, error) {
	if err := sess.Require(); err != nil {
		return CustomResult{}, err
	}
	if err := cs.Check(); err != nil {
		return CustomResult{}, err
	}

	c := client.New(sess, s.HTTP, s.Logger)
	payload := cs.payload()
	var raw []byte
	err := c.DoJSON(ctx, http.MethodPost, customPath, payload, &raw)
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
		s.log().Debug("custom strategy route not found, using legacy route")
		err = c.DoJSON(ctx, http.MethodPost, customLegacyPath, payload, &raw)
	}
	if err != nil {
		s.log().Warn("create custom strategy failed", zap.Error(err))
		return CustomResult{}, client.Fail(err, fallbackCreate)
	}

	res := CustomResult{StrategyID: responseID(raw), Message: msgCustomCreated, Payload: payload}
	if res.StrategyID == "" {
		s.log().Warn("create custom strategy response has no id")
		return res, nil
	}
	s.recordCustom(ctx, sess, cs, res.StrategyID, payload)

	botID, err := s.createBot(ctx, c, cs.Name, res.StrategyID)
	if err != nil {
		s.log().Warn("create bot failed", zap.String("strategy_id", res.StrategyID), zap.Error(err))
		res.BotError = client.MessageOf(err, "Failed to create bot")
		res.Message = msgCustomNoBot
		return res, nil
	}
	res.BotID = botID
	res.Message = "Strategy and Bot created successfully! Strategy ID: " + res.StrategyID
	s.log().Info("custom strategy created",
		zap.String("strategy_id", res.StrategyID),
		zap.String("bot_id", botID),
	)
	return res, nil
}

func (s *Submitter) createBot(ctx context.Context, c *client.Client, name, strategyID string) (string, error) {
	body := map[string]any{
		"name":           strings.TrimSpace(name) + " Bot",
		"strategy_id":    idValue(strategyID),
		"mode":           botMode,
		"execution_type": botExecutionType,
	}
	var raw []byte
	if err := c.DoJSON(ctx, http.MethodPost, botsPath, body, &raw); err != nil {
		return "", err
	}
	return responseID(raw), nil
}

func (s *Submitter) recordCustom(ctx context.Context, sess session.Session, cs CustomStrategy, id string, payload map[string]any) {
	if s.Repo == nil {
		return
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return
	}
	item := &models.StrategyRecord{
		RemoteID: id,
		Type:     CustomType,
		Name:     strings.TrimSpace(cs.Name),
		UserID:   sess.UserID,
		Payload:  datatypes.JSON(b),
	}
	if err := s.Repo.InsertStrategy(ctx, item); err != nil {
		s.log().Warn("record strategy failed", zap.String("strategy_id", id), zap.Error(err))
	}
}

// responseID reads data.id, falling back to a top-level id.
func responseID(raw []byte) string {
	var resp createResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return ""
	}
	if id := rawID(resp.Data.ID); id != "" {
		return id
	}
	return rawID(resp.ID)
}

// idValue sends numeric ids as JSON numbers.
func idValue(id string) any {
	n := json.Number(id)
	if _, err := n.Int64(); err == nil {
		return n
	}
	return id
}
