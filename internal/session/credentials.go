package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// legacyTokenKeys are the keys older clients stored the bearer token under,
// in lookup order. They are only read when loading the credentials file.
var legacyTokenKeys = []string{"AUTH_TOKEN", "access_token", "token", "authToken", "accessToken"}

type Credentials struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at,omitempty"`
	UserID    string `json:"user_id,omitempty"`
	Username  string `json:"username,omitempty"`
}

func (c Credentials) ExpiresAtTime() (time.Time, bool) {
	v := strings.TrimSpace(c.ExpiresAt)
	if v == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// CredentialStore persists credentials as a JSON file.
type CredentialStore struct {
	Path string
}

// Load reads the file and resolves the token from the first non-empty
// legacy key. A file that only had a legacy key is rewritten in the
// current layout.
func (s CredentialStore) Load() (Credentials, error) {
	b, err := os.ReadFile(s.Path)
	if err != nil {
		return Credentials{}, err
	}
	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		return Credentials{}, fmt.Errorf("parse %s: %w", s.Path, err)
	}
	var c Credentials
	if err := json.Unmarshal(b, &c); err != nil {
		return Credentials{}, fmt.Errorf("parse %s: %w", s.Path, err)
	}
	c.Token = ""
	key := ""
	for _, k := range legacyTokenKeys {
		if v, ok := raw[k].(string); ok && strings.TrimSpace(v) != "" {
			c.Token = strings.TrimSpace(v)
			key = k
			break
		}
	}
	if key != "" && key != "token" {
		_ = s.Save(c)
	}
	return c, nil
}

func (s CredentialStore) Save(c Credentials) error {
	if strings.TrimSpace(s.Path) == "" {
		return errors.New("credentials path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.Path, b, 0o600)
}

func (s CredentialStore) Delete() error {
	err := os.Remove(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// Resolve builds the session once, taking the token from the first
// non-empty source: explicit flag, the BT_TOKEN environment variable, then
// the credentials store.
func Resolve(baseURL, flagToken string, store CredentialStore) Session {
	if tok := strings.TrimSpace(flagToken); tok != "" {
		return New(baseURL, tok)
	}
	if tok := strings.TrimSpace(os.Getenv("BT_TOKEN")); tok != "" {
		return New(baseURL, tok)
	}
	c, err := store.Load()
	if err != nil {
		return New(baseURL, "")
	}
	s := New(baseURL, c.Token)
	if s.UserID == "" {
		s.UserID = strings.TrimSpace(c.UserID)
	}
	if s.ExpiresAt.IsZero() {
		if t, ok := c.ExpiresAtTime(); ok {
			s.ExpiresAt = t
		}
	}
	return s
}

// TokenFromResponse pulls the bearer token out of a login response, which
// may carry it as data.token, token, access_token or data.access_token.
func TokenFromResponse(body []byte) string {
	var r struct {
		Token       string `json:"token"`
		AccessToken string `json:"access_token"`
		Data        struct {
			Token       string `json:"token"`
			AccessToken string `json:"access_token"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &r); err != nil {
		return ""
	}
	for _, v := range []string{r.Data.Token, r.Token, r.AccessToken, r.Data.AccessToken} {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
