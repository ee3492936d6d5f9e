package session

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrNotLoggedIn = errors.New("You are not logged in. Please log in again.")
	ErrNoBaseURL   = errors.New("API base URL is not configured")
)

// Session is the resolved authentication state for one user: the upstream
// base URL and bearer token, plus what could be read from the token itself.
// It is built once and passed to every component that calls upstream.
type Session struct {
	BaseURL   string
	Token     string
	UserID    string
	ExpiresAt time.Time
}

// New trims its inputs and inspects token as an unverified JWT to learn the
// user id and expiry. Opaque tokens are accepted as-is.
func New(baseURL, token string) Session {
	s := Session{
		BaseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		Token:   strings.TrimSpace(token),
	}
	if s.Token == "" {
		return s
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(s.Token, claims); err != nil {
		return s
	}
	for _, k := range []string{"sub", "user_id", "userId", "id"} {
		if v := claimString(claims[k]); v != "" {
			s.UserID = v
			break
		}
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		s.ExpiresAt = exp.Time
	}
	return s
}

func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Require reports the blocking error, if any, that prevents an upstream
// call: a missing base URL or a missing or expired token.
func (s Session) Require() error {
	if s.BaseURL == "" {
		return ErrNoBaseURL
	}
	if s.Token == "" || s.Expired(time.Now()) {
		return ErrNotLoggedIn
	}
	return nil
}

func claimString(v any) string {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return ""
	}
}

type ctxKey int

const sessionKey ctxKey = 1

func WithSession(ctx context.Context, s Session) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, sessionKey, s)
}

func FromContext(ctx context.Context) (Session, bool) {
	if ctx == nil {
		return Session{}, false
	}
	s, ok := ctx.Value(sessionKey).(Session)
	return s, ok
}
