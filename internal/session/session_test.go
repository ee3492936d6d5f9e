package session

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signed(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return tok
}

func TestNew_ReadsClaims(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	tok := signed(t, jwt.MapClaims{"user_id": float64(1234), "exp": exp.Unix()})
	s := New("https://api.example.com/api/v1/", tok)
	if s.BaseURL != "https://api.example.com/api/v1" {
		t.Fatalf("base=%q", s.BaseURL)
	}
	if s.UserID != "1234" {
		t.Fatalf("user_id=%q want=1234", s.UserID)
	}
	if !s.ExpiresAt.Equal(exp) {
		t.Fatalf("expires=%v want=%v", s.ExpiresAt, exp)
	}
	if err := s.Require(); err != nil {
		t.Fatalf("require=%v want nil", err)
	}
}

func TestRequire(t *testing.T) {
	if err := New("", "tok").Require(); !errors.Is(err, ErrNoBaseURL) {
		t.Fatalf("err=%v want ErrNoBaseURL", err)
	}
	if err := New("http://x", "  ").Require(); !errors.Is(err, ErrNotLoggedIn) {
		t.Fatalf("err=%v want ErrNotLoggedIn", err)
	}
	expired := signed(t, jwt.MapClaims{"sub": "u1", "exp": time.Now().Add(-time.Minute).Unix()})
	if err := New("http://x", expired).Require(); !errors.Is(err, ErrNotLoggedIn) {
		t.Fatalf("expired err=%v want ErrNotLoggedIn", err)
	}
	if err := New("http://x", "opaque-token").Require(); err != nil {
		t.Fatalf("opaque err=%v want nil", err)
	}
}

func TestCredentialStore_LegacyKeyOrder(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "credentials.json")
	raw := map[string]string{"authToken": "from-authToken", "access_token": "from-access", "accessToken": "from-accessToken"}
	b, _ := json.Marshal(raw)
	if err := os.WriteFile(p, b, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	store := CredentialStore{Path: p}
	c, err := store.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Token != "from-access" {
		t.Fatalf("token=%q want=from-access", c.Token)
	}

	// The file is rewritten under the current key.
	b, _ = os.ReadFile(p)
	var onDisk map[string]any
	_ = json.Unmarshal(b, &onDisk)
	if onDisk["token"] != "from-access" || onDisk["authToken"] != nil {
		t.Fatalf("on disk=%v", onDisk)
	}
}

func TestCredentialStore_SaveDelete(t *testing.T) {
	store := CredentialStore{Path: filepath.Join(t.TempDir(), "nested", "credentials.json")}
	if err := store.Save(Credentials{Token: "abc", UserID: "7"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	c, err := store.Load()
	if err != nil || c.Token != "abc" || c.UserID != "7" {
		t.Fatalf("load=%+v err=%v", c, err)
	}
	if err := store.Delete(); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.Delete(); err != nil {
		t.Fatalf("second delete: %v", err)
	}
}

func TestResolve_SourceOrder(t *testing.T) {
	store := CredentialStore{Path: filepath.Join(t.TempDir(), "credentials.json")}
	if err := store.Save(Credentials{Token: "from-file", UserID: "9"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	t.Setenv("BT_TOKEN", "")

	if s := Resolve("http://x", "from-flag", store); s.Token != "from-flag" {
		t.Fatalf("token=%q want=from-flag", s.Token)
	}
	s := Resolve("http://x", "", store)
	if s.Token != "from-file" || s.UserID != "9" {
		t.Fatalf("session=%+v want file token", s)
	}
	t.Setenv("BT_TOKEN", "from-env")
	if s := Resolve("http://x", "", store); s.Token != "from-env" {
		t.Fatalf("token=%q want=from-env", s.Token)
	}
}

func TestTokenFromResponse(t *testing.T) {
	cases := map[string]string{
		`{"data":{"token":"a"},"token":"b"}`:     "a",
		`{"token":"b","access_token":"c"}`:       "b",
		`{"access_token":"c"}`:                   "c",
		`{"data":{"access_token":"d"}}`:          "d",
		`{"message":"ok"}`:                       "",
		`not json`:                               "",
	}
	for body, want := range cases {
		if got := TokenFromResponse([]byte(body)); got != want {
			t.Fatalf("TokenFromResponse(%s)=%q want=%q", body, got, want)
		}
	}
}

func TestContextRoundTrip(t *testing.T) {
	ctx := WithSession(context.Background(), New("http://x", "t"))
	s, ok := FromContext(ctx)
	if !ok || s.Token != "t" {
		t.Fatalf("session=%+v ok=%v", s, ok)
	}
	if _, ok := FromContext(context.Background()); ok {
		t.Fatalf("empty context returned a session")
	}
}
