package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/safin-krmavi/Bulltrek/internal/session"
)

// Client talks to the trading backend on behalf of one session.
type Client struct {
	BaseURL string
	Token   string

	HTTP   *http.Client
	Logger *zap.Logger
}

// APIError is a non-2xx upstream response. Message is the body's message
// (or error) field when it has one.
type APIError struct {
	Status  int
	Message string
	Body    []byte
}

func (e *APIError) Error() string {
	if strings.TrimSpace(e.Message) != "" {
		return e.Message
	}
	return fmt.Sprintf("http %d", e.Status)
}

type errorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func New(s session.Session, httpClient *http.Client, logger *zap.Logger) *Client {
	return &Client{BaseURL: s.BaseURL, Token: s.Token, HTTP: httpClient, Logger: logger}
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return &http.Client{Timeout: 15 * time.Second}
}

var apiPrefix = regexp.MustCompile(`(?i)^/+api/v1(/|$)`)

// NormalizePath gives relative paths exactly one leading slash and drops a
// leading /api/v1, which the base URL already carries. Absolute URLs are
// returned unchanged.
func NormalizePath(path string) string {
	path = strings.TrimSpace(path)
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	path = "/" + strings.TrimLeft(path, "/")
	return apiPrefix.ReplaceAllString(path, "/")
}

func (c *Client) URL(path string) string {
	p := NormalizePath(path)
	if strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://") {
		return p
	}
	return strings.TrimRight(c.BaseURL, "/") + p
}

func (c *Client) NewRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	if strings.TrimSpace(c.BaseURL) == "" {
		return nil, session.ErrNoBaseURL
	}
	method = strings.ToUpper(strings.TrimSpace(method))
	if method == "" {
		method = http.MethodGet
	}

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		r = bytes.NewReader(b)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	req, err := http.NewRequestWithContext(ctx, method, c.URL(path), r)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if strings.TrimSpace(c.Token) != "" {
		req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(c.Token))
	}
	return req, nil
}

// Do sends req and decodes a 2xx body into out (when out is non-nil and
// the body is not empty). A *[]byte out receives the raw body. Any other
// status becomes an *APIError.
func (c *Client) Do(req *http.Request, out any) error {
	start := time.Now()
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	b, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return err
	}
	if c.Logger != nil {
		c.Logger.Debug("upstream call",
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path),
			zap.Int("status", resp.StatusCode),
			zap.Duration("elapsed", time.Since(start)),
		)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode, Body: b}
		var er errorResponse
		if err := json.Unmarshal(b, &er); err == nil {
			apiErr.Message = strings.TrimSpace(er.Message)
			if apiErr.Message == "" {
				apiErr.Message = strings.TrimSpace(er.Error)
			}
		}
		return apiErr
	}

	if raw, ok := out.(*[]byte); ok {
		*raw = b
		return nil
	}
	if out == nil || len(bytes.TrimSpace(b)) == 0 {
		return nil
	}
	return json.Unmarshal(b, out)
}

func (c *Client) DoJSON(ctx context.Context, method, path string, body, out any) error {
	req, err := c.NewRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	return c.Do(req, out)
}

// Failure is what callers surface to the user: one line of text, taken
// from the upstream body when present.
type Failure struct {
	Message string
	Err     error
}

func (f *Failure) Error() string { return f.Message }

func (f *Failure) Unwrap() error { return f.Err }

// Fail wraps err as a Failure whose text is the upstream message or
// fallback.
func Fail(err error, fallback string) error {
	if err == nil {
		return nil
	}
	return &Failure{Message: MessageOf(err, fallback), Err: err}
}

// MessageOf returns the upstream message carried by err, or fallback when
// err carries none.
func MessageOf(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && strings.TrimSpace(apiErr.Message) != "" {
		return apiErr.Message
	}
	return fallback
}
