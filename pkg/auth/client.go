package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	homedir "github.com/mitchellh/go-homedir"
)

// Config holds the provider endpoint and session persistence settings.
type Config struct {
	BaseURL string
	// PersistSession keeps the signed-in user across process restarts by
	// writing a session file. Off means the session lives only in memory.
	PersistSession bool
	// SessionPath overrides the default ~/.pinmap.session location.
	SessionPath string
}

// ConfigFromEnv reads PINMAP_AUTH_URL; session persistence defaults on.
func ConfigFromEnv() Config {
	return Config{
		BaseURL:        os.Getenv("PINMAP_AUTH_URL"),
		PersistSession: true,
	}
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.hc = hc
		}
	}
}

// WithLogger sets the logger for auth transitions.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.log = logger
		}
	}
}

// Client is an HTTP identity provider client implementing Identity. The
// restored session (if any) counts as the initial auth state.
type Client struct {
	cfg Config
	hc  *http.Client
	log *slog.Logger

	mu        sync.Mutex
	user      *User
	token     string
	callbacks []Callback
}

type session struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}

func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("auth: provider url required")
	}
	if cfg.SessionPath == "" {
		path, err := homedir.Expand("~/.pinmap.session")
		if err != nil {
			return nil, fmt.Errorf("auth: session path: %w", err)
		}
		cfg.SessionPath = path
	}
	c := &Client{
		cfg: cfg,
		hc:  &http.Client{Timeout: 30 * time.Second},
		log: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if cfg.PersistSession {
		c.restoreSession()
	}
	return c, nil
}

func (c *Client) restoreSession() {
	data, err := os.ReadFile(c.cfg.SessionPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			c.log.Warn("read session file", "err", err)
		}
		return
	}
	var s session
	if err := json.Unmarshal(data, &s); err != nil {
		c.log.Warn("parse session file", "err", err)
		return
	}
	if s.User == nil || s.User.ID == "" {
		return
	}
	c.user = s.User
	c.token = s.Token
	c.log.Debug("session restored", "user", s.User.Email)
}

func (c *Client) saveSession() {
	if !c.cfg.PersistSession {
		return
	}
	s := session{User: c.user, Token: c.token}
	data, err := json.Marshal(s)
	if err != nil {
		c.log.Warn("encode session", "err", err)
		return
	}
	if err := os.MkdirAll(filepath.Dir(c.cfg.SessionPath), 0o755); err != nil {
		c.log.Warn("session dir", "err", err)
		return
	}
	if err := os.WriteFile(c.cfg.SessionPath, data, 0o600); err != nil {
		c.log.Warn("write session file", "err", err)
	}
}

func (c *Client) clearSession() {
	if !c.cfg.PersistSession {
		return
	}
	if err := os.Remove(c.cfg.SessionPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		c.log.Warn("remove session file", "err", err)
	}
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signInResponse struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Token  string `json:"token"`
}

func (c *Client) SignIn(ctx context.Context, email, password string) (*User, error) {
	payload, err := json.Marshal(signInRequest{Email: email, Password: password})
	if err != nil {
		return nil, fmt.Errorf("auth: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/sessions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("auth: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("auth: sign in: %w", err)
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode == http.StatusOK:
	case res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusBadRequest:
		text, _ := io.ReadAll(io.LimitReader(res.Body, 1024))
		msg := string(bytes.TrimSpace(text))
		if msg == "" {
			msg = "invalid email or password"
		}
		return nil, &AuthError{Message: msg}
	default:
		return nil, fmt.Errorf("auth: sign in: unexpected status %s", res.Status)
	}

	var parsed signInResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("auth: decode response: %w", err)
	}
	if parsed.UserID == "" {
		return nil, fmt.Errorf("auth: provider returned no user id")
	}

	user := &User{ID: parsed.UserID, Email: parsed.Email}

	c.mu.Lock()
	c.user = user
	c.token = parsed.Token
	c.saveSession()
	callbacks := c.snapshotCallbacks()
	c.mu.Unlock()

	c.log.Info("signed in", "user", user.Email)
	for _, cb := range callbacks {
		cb(user)
	}
	return user, nil
}

func (c *Client) SignOut(_ context.Context) error {
	c.mu.Lock()
	was := c.user
	c.user = nil
	c.token = ""
	c.clearSession()
	callbacks := c.snapshotCallbacks()
	c.mu.Unlock()

	if was != nil {
		c.log.Info("signed out", "user", was.Email)
	}
	for _, cb := range callbacks {
		cb(nil)
	}
	return nil
}

func (c *Client) CurrentUser() *User {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.user
}

func (c *Client) OnAuthStateChanged(cb Callback) {
	c.mu.Lock()
	c.callbacks = append(c.callbacks, cb)
	current := c.user
	c.mu.Unlock()
	cb(current)
}

func (c *Client) snapshotCallbacks() []Callback {
	out := make([]Callback, len(c.callbacks))
	copy(out, c.callbacks)
	return out
}
