package brokerage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/safin-krmavi/Bulltrek/internal/cache"
	"github.com/safin-krmavi/Bulltrek/internal/client"
	"github.com/safin-krmavi/Bulltrek/internal/session"
)

const (
	pathConnections = "/brokerage/api-connections"
	pathDetails     = "/users/%s/brokerages/details/fetch"
	pathLink        = "/users/%s/brokerages/details/link"

	fallbackList = "Failed to fetch brokerages"
	fallbackLink = "Failed to link brokerage"
)

// Names are the brokerages that can be linked with an API key pair.
var Names = []string{"zerodha", "binance"}

// Connection is a linked brokerage account as shown in the strategy forms.
type Connection struct {
	ID            string `json:"id"`
	DisplayName   string `json:"display_name"`
	Connected     bool   `json:"connected"`
	BrokerageType string `json:"brokerage_type,omitempty"`
}

type LinkRequest struct {
	BrokerageName string `json:"brokerage_name"`
	APIKey        string `json:"brokerage_api_key"`
	APISecret     string `json:"brokerage_api_secret"`
}

func (r LinkRequest) Validate() error {
	name := strings.ToLower(strings.TrimSpace(r.BrokerageName))
	if !lo.Contains(Names, name) {
		return fmt.Errorf("brokerage_name must be one of %s", strings.Join(Names, ", "))
	}
	if strings.TrimSpace(r.APIKey) == "" || strings.TrimSpace(r.APISecret) == "" {
		return errors.New("API key and secret are required")
	}
	return nil
}

// Service reads and links brokerage connections. Cache is optional; lists
// are cached per user for TTL.
type Service struct {
	HTTP   *http.Client
	Logger *zap.Logger
	Cache  cache.Store
	TTL    time.Duration
}

// List merges the account's linked brokerage details with its API
// connections. One failing source is tolerated; both failing is an error.
func (s *Service) List(ctx context.Context, sess session.Session) ([]Connection, error) {
	if err := sess.Require(); err != nil {
		return nil, err
	}
	key := cacheKey(sess)
	if key != "" {
		var cached []Connection
		if ok, err := cache.GetJSON(ctx, s.Cache, key, &cached); err == nil && ok {
			return cached, nil
		}
	}

	c := client.New(sess, s.HTTP, s.Logger)
	var details, conns []Connection
	var detailsErr, connsErr error
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		details, detailsErr = fetch(gctx, c, fmt.Sprintf(pathDetails, userPath(sess)), true)
		return nil
	})
	g.Go(func() error {
		conns, connsErr = fetch(gctx, c, pathConnections, false)
		return nil
	})
	_ = g.Wait()

	if detailsErr != nil && connsErr != nil {
		s.log().Warn("list brokerages failed", zap.Error(detailsErr), zap.NamedError("connections_error", connsErr))
		return nil, client.Fail(detailsErr, fallbackList)
	}
	if detailsErr != nil {
		s.log().Warn("brokerage details unavailable", zap.Error(detailsErr))
	}
	if connsErr != nil {
		s.log().Warn("api connections unavailable", zap.Error(connsErr))
	}

	out := lo.UniqBy(append(details, conns...), func(c Connection) string { return c.ID })
	if key != "" && detailsErr == nil && connsErr == nil {
		if err := cache.SetJSON(ctx, s.Cache, key, out, s.TTL); err != nil {
			s.log().Debug("cache brokerages failed", zap.Error(err))
		}
	}
	return out, nil
}

// Find returns the connection with id, if the account has one.
func (s *Service) Find(ctx context.Context, sess session.Session, id string) (Connection, bool, error) {
	all, err := s.List(ctx, sess)
	if err != nil {
		return Connection{}, false, err
	}
	c, ok := lo.Find(all, func(c Connection) bool { return c.ID == strings.TrimSpace(id) })
	return c, ok, nil
}

func (s *Service) Link(ctx context.Context, sess session.Session, req LinkRequest) error {
	if err := sess.Require(); err != nil {
		return err
	}
	if err := req.Validate(); err != nil {
		return err
	}
	req.BrokerageName = strings.ToLower(strings.TrimSpace(req.BrokerageName))
	req.APIKey = strings.TrimSpace(req.APIKey)
	req.APISecret = strings.TrimSpace(req.APISecret)

	c := client.New(sess, s.HTTP, s.Logger)
	if err := c.DoJSON(ctx, http.MethodPut, fmt.Sprintf(pathLink, userPath(sess)), req, nil); err != nil {
		return client.Fail(err, fallbackLink)
	}
	if key := cacheKey(sess); key != "" && s.Cache != nil {
		_ = s.Cache.Delete(ctx, key)
	}
	s.log().Info("brokerage linked", zap.String("brokerage", req.BrokerageName))
	return nil
}

func (s *Service) log() *zap.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return zap.NewNop()
}

// userPath is the {id} segment of the user routes. Without a known user id
// the placeholder is sent as is and the server resolves it from the token.
func userPath(sess session.Session) string {
	if id := strings.TrimSpace(sess.UserID); id != "" {
		return id
	}
	return "{id}"
}

func cacheKey(sess session.Session) string {
	if strings.TrimSpace(sess.UserID) == "" {
		return ""
	}
	return "brokerages:" + strings.TrimSpace(sess.UserID)
}

type row struct {
	ID            json.RawMessage `json:"id"`
	Name          string          `json:"name"`
	BrokerageName string          `json:"brokerage_name"`
	BrokerageType string          `json:"brokerage_type"`
	Connected     *bool           `json:"connected"`
	Status        string          `json:"status"`
	Brokerage     *struct {
		Name          string `json:"name"`
		BrokerageType string `json:"brokerage_type"`
	} `json:"brokerage"`
}

func fetch(ctx context.Context, c *client.Client, path string, linked bool) ([]Connection, error) {
	var raw []byte
	if err := c.DoJSON(ctx, http.MethodGet, path, nil, &raw); err != nil {
		return nil, err
	}
	rows, err := decodeRows(raw)
	if err != nil {
		return nil, err
	}
	out := make([]Connection, 0, len(rows))
	for _, r := range rows {
		id := rawString(r.ID)
		if id == "" {
			continue
		}
		conn := Connection{
			ID:            id,
			DisplayName:   lo.CoalesceOrEmpty(r.BrokerageName, r.Name),
			BrokerageType: r.BrokerageType,
			Connected:     linked,
		}
		if r.Brokerage != nil {
			conn.DisplayName = lo.CoalesceOrEmpty(conn.DisplayName, r.Brokerage.Name)
			conn.BrokerageType = lo.CoalesceOrEmpty(conn.BrokerageType, r.Brokerage.BrokerageType)
		}
		if r.Connected != nil {
			conn.Connected = *r.Connected
		} else if r.Status != "" {
			conn.Connected = strings.EqualFold(r.Status, "connected") || strings.EqualFold(r.Status, "active")
		}
		if conn.DisplayName == "" {
			conn.DisplayName = "Brokerage " + id
		}
		out = append(out, conn)
	}
	return out, nil
}

// decodeRows accepts a bare array or an object with a data array.
func decodeRows(raw []byte) ([]row, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return nil, nil
	}
	var rows []row
	if strings.HasPrefix(trimmed, "[") {
		err := json.Unmarshal(raw, &rows)
		return rows, err
	}
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, err
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil, nil
	}
	if err := json.Unmarshal(env.Data, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func rawString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}
