package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/jpkmiller/coach/internal/models"
	"github.com/jpkmiller/coach/internal/storage"
	"go.uber.org/zap"
)

const requestTimeout = 30 * time.Second

// ErrAPIDisabled is returned when calls are attempted while the backend is
// disabled or has no URL configured.
var ErrAPIDisabled = errors.New("api: backend is disabled or URL not set")

// errorEnvelope is the backend's error payload shape.
type errorEnvelope struct {
	Detail string `json:"detail"`
}

// Client talks to the coach backend. Settings are persisted under the "api"
// key and may be flipped at runtime from the settings UI.
type Client struct {
	mu       sync.Mutex
	settings models.APISettings

	kv      storage.KV
	httpc   *http.Client
	logger  *zap.Logger
	tokenFn func() string

	probeMu   sync.Mutex
	reachable bool
	probeStop context.CancelFunc
}

// NewClient creates a backend client. tokenFn supplies the current bearer
// token and may return an empty string when the user is not logged in.
func NewClient(kv storage.KV, logger *zap.Logger, tokenFn func() string) *Client {
	if tokenFn == nil {
		tokenFn = func() string { return "" }
	}
	return &Client{
		kv:      kv,
		httpc:   &http.Client{Timeout: requestTimeout},
		logger:  logger,
		tokenFn: tokenFn,
	}
}

// Init loads persisted API settings. A missing key leaves the defaults
// (disabled, no URL) in place.
func (c *Client) Init(ctx context.Context) error {
	var settings models.APISettings
	err := storage.LoadJSON(ctx, c.kv, storage.KeyAPI, &settings)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.settings = settings
	c.mu.Unlock()
	return nil
}

// Settings returns the current API settings.
func (c *Client) Settings() models.APISettings {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settings
}

// UpdateSettings replaces the API settings and persists them.
func (c *Client) UpdateSettings(ctx context.Context, settings models.APISettings) error {
	c.mu.Lock()
	c.settings = settings
	c.mu.Unlock()
	return storage.SaveJSON(ctx, c.kv, storage.KeyAPI, settings)
}

// Reload re-reads settings from storage after an external change.
func (c *Client) Reload(ctx context.Context) {
	if err := c.Init(ctx); err != nil {
		c.logger.Warn("failed_to_reload_api_settings", zap.Error(err))
	}
}

func (c *Client) baseURL() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.settings.EnableAPI {
		return "", ErrAPIDisabled
	}
	if c.settings.APIURL == "" {
		return "", ErrAPIDisabled
	}
	return strings.TrimRight(c.settings.APIURL, "/"), nil
}

// Get fetches a route and decodes the JSON response into out. Every failure
// mode (disabled, transport, non-2xx, decode) comes back as an error; callers
// treat it as "no result".
func (c *Client) Get(ctx context.Context, route string, out any) error {
	base, err := c.baseURL()
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/"+strings.TrimLeft(route, "/"), nil)
	if err != nil {
		return fmt.Errorf("failed to build request for %s: %w", route, err)
	}
	if token := c.tokenFn(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", route, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp, route)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", route, err)
	}
	return nil
}

// PostJSON sends a JSON body to a route and decodes the JSON response into
// out when out is non-nil.
func (c *Client) PostJSON(ctx context.Context, route string, body any, out any) error {
	base, err := c.baseURL()
	if err != nil {
		return err
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode %s request: %w", route, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/"+strings.TrimLeft(route, "/"), strings.NewReader(string(payload)))
	if err != nil {
		return fmt.Errorf("failed to build request for %s: %w", route, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token := c.tokenFn(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post %s: %w", route, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp, route)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", route, err)
	}
	return nil
}

// Login exchanges credentials for a bearer token via the form-encoded
// /token endpoint.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	base, err := c.baseURL()
	if err != nil {
		return "", err
	}

	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("login request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", decodeError(resp, "token")
	}

	var result struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode login response: %w", err)
	}
	if result.AccessToken == "" {
		return "", errors.New("login response contained no access token")
	}
	return result.AccessToken, nil
}

func decodeError(resp *http.Response, route string) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var envelope errorEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Detail != "" {
		return fmt.Errorf("%s returned %d: %s", route, resp.StatusCode, envelope.Detail)
	}
	return fmt.Errorf("%s returned %d", route, resp.StatusCode)
}
