// Package client talks to a running tiltguard API the way the browser
// extension does.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-tiltguard/auth"
)

const TextCodeUnauthorized = "UNAUTHORIZED"

// ErrUnauthorized is returned when the API rejects the token or there is
// no token to send
var ErrUnauthorized = goerrors.New("unauthorized", goerrors.CategoryAuth).
	WithTextCode(TextCodeUnauthorized).
	WithCode(goerrors.CodeUnauthorized)

// BlockingStatus is the payload of GET /blocking/status
type BlockingStatus struct {
	BlockRiskSettings bool       `json:"blockRiskSettings"`
	BlockUntil        *time.Time `json:"blockUntil"`
}

// Active reports whether the block is in force at now
func (s BlockingStatus) Active(now time.Time) bool {
	return s.BlockRiskSettings && s.BlockUntil != nil && now.Before(*s.BlockUntil)
}

// GuideStatus is the payload of GET /guide-access/status
type GuideStatus struct {
	SetupCompleted bool       `json:"setupCompleted"`
	CooldownUntil  *time.Time `json:"cooldownUntil"`
	AccessUntil    *time.Time `json:"accessUntil"`
	ExtensionID    *string    `json:"extensionId"`
	Phase          string     `json:"phase"`
}

// User is the user summary returned by the auth routes
type User struct {
	ID             string `json:"id"`
	Name           string `json:"nombre"`
	Email          string `json:"email"`
	Role           string `json:"rol"`
	ImpersonatedBy string `json:"impersonatedBy,omitempty"`
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Token   string          `json:"token"`
	User    *User           `json:"user"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Code    string          `json:"code"`
}

// Client is a small JSON client for the tiltguard API
type Client struct {
	baseURL string
	http    *http.Client
	logger  auth.Logger

	mu    sync.RWMutex
	token string
}

// New creates a client for baseURL, e.g. http://localhost:5000/api
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
		logger:  auth.NoopLogger{},
	}
}

func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	if hc != nil {
		c.http = hc
	}
	return c
}

func (c *Client) WithLogger(logger auth.Logger) *Client {
	if logger != nil {
		c.logger = logger
	}
	return c
}

func (c *Client) WithToken(token string) *Client {
	c.SetToken(token)
	return c
}

// Token returns the current bearer token
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = strings.TrimSpace(token)
	c.mu.Unlock()
}

// ClearToken forgets the token, as the extension does after a 401
func (c *Client) ClearToken() {
	c.SetToken("")
}

// Login authenticates and keeps the returned token for later calls
func (c *Client) Login(ctx context.Context, email, password string) (User, error) {
	env, err := c.do(ctx, http.MethodPost, "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, false)
	if err != nil {
		return User{}, err
	}

	if env.Token == "" || env.User == nil {
		return User{}, goerrors.New("login response without token", goerrors.CategoryInternal).
			WithCode(goerrors.CodeInternal)
	}

	c.SetToken(env.Token)
	return *env.User, nil
}

// BlockingStatus fetches the Risk Settings block of the current user
func (c *Client) BlockingStatus(ctx context.Context) (BlockingStatus, error) {
	var out BlockingStatus
	err := c.getData(ctx, "/blocking/status", &out)
	return out, err
}

// GuideStatus fetches the guide access state of the current user
func (c *Client) GuideStatus(ctx context.Context) (GuideStatus, error) {
	var out GuideStatus
	err := c.getData(ctx, "/guide-access/status", &out)
	return out, err
}

func (c *Client) getData(ctx context.Context, path string, out any) error {
	env, err := c.do(ctx, http.MethodGet, path, nil, true)
	if err != nil {
		return err
	}
	if len(env.Data) == 0 {
		return goerrors.New("response without data", goerrors.CategoryInternal).
			WithCode(goerrors.CodeInternal).
			WithMetadata(map[string]any{"path": path})
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to decode response data").
			WithCode(goerrors.CodeInternal)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, authenticated bool) (*envelope, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to encode request").
				WithCode(goerrors.CodeInternal)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to build request").
			WithCode(goerrors.CodeBadRequest)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if authenticated {
		token := c.Token()
		if token == "" {
			return nil, ErrUnauthorized
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	env := &envelope{}
	if err := json.NewDecoder(res.Body).Decode(env); err != nil && err != io.EOF {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to decode response").
			WithCode(goerrors.CodeInternal).
			WithMetadata(map[string]any{"status": res.StatusCode, "path": path})
	}

	c.logger.Debug("api response", "method", method, "path", path, "status", res.StatusCode)

	if res.StatusCode == http.StatusUnauthorized {
		return nil, goerrors.Wrap(ErrUnauthorized, goerrors.CategoryAuth, messageOr(env.Error, ErrUnauthorized.Message)).
			WithTextCode(TextCodeUnauthorized).
			WithCode(goerrors.CodeUnauthorized)
	}

	if res.StatusCode >= http.StatusBadRequest || !env.Success {
		return nil, statusError(res.StatusCode, messageOr(env.Error, http.StatusText(res.StatusCode)), env.Code)
	}

	return env, nil
}

func statusError(status int, msg, textCode string) error {
	var err *goerrors.Error
	switch {
	case status == http.StatusForbidden:
		err = goerrors.New(msg, goerrors.CategoryAuthz)
	case status == http.StatusNotFound:
		err = goerrors.New(msg, goerrors.CategoryNotFound)
	case status == http.StatusTooManyRequests:
		err = goerrors.New(msg, goerrors.CategoryRateLimit)
	case status >= http.StatusInternalServerError:
		err = goerrors.New(msg, goerrors.CategoryInternal)
	default:
		err = goerrors.New(msg, goerrors.CategoryBadInput)
	}
	return err.WithCode(status).WithTextCode(textCode)
}

func messageOr(msg, fallback string) string {
	if msg != "" {
		return msg
	}
	return fallback
}
