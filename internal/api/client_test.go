package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jpkmiller/coach/internal/models"
	"github.com/jpkmiller/coach/internal/storage"
	"go.uber.org/zap"
)

func enabledClient(t *testing.T, url string, tokenFn func() string) *Client {
	t.Helper()
	c := NewClient(storage.NewMemoryKV(), zap.NewNop(), tokenFn)
	if err := c.UpdateSettings(context.Background(), models.APISettings{EnableAPI: true, APIURL: url}); err != nil {
		t.Fatalf("unexpected settings error: %v", err)
	}
	return c
}

func TestDisabledClient(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	c := NewClient(storage.NewMemoryKV(), zap.NewNop(), nil)

	var out any
	if err := c.Get(ctx, "mail", &out); !errors.Is(err, ErrAPIDisabled) {
		t.Errorf("expected ErrAPIDisabled, got %v", err)
	}
	if err := c.PostJSON(ctx, "mail", nil, nil); !errors.Is(err, ErrAPIDisabled) {
		t.Errorf("expected ErrAPIDisabled, got %v", err)
	}
	if _, err := c.Login(ctx, "u", "p"); !errors.Is(err, ErrAPIDisabled) {
		t.Errorf("expected ErrAPIDisabled, got %v", err)
	}

	// Enabled but without a URL is still disabled.
	if err := c.UpdateSettings(ctx, models.APISettings{EnableAPI: true}); err != nil {
		t.Fatalf("unexpected settings error: %v", err)
	}
	if err := c.Get(ctx, "mail", &out); !errors.Is(err, ErrAPIDisabled) {
		t.Errorf("expected ErrAPIDisabled without URL, got %v", err)
	}
}

func TestGet(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("decodes response and sends token", func(t *testing.T) {
		t.Parallel()
		var gotAuth string
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
		}))
		defer ts.Close()

		c := enabledClient(t, ts.URL, func() string { return "tok-123" })

		var out map[string]string
		if err := c.Get(ctx, "health", &out); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if out["status"] != "ok" {
			t.Errorf("unexpected response %v", out)
		}
		if gotAuth != "Bearer tok-123" {
			t.Errorf("expected bearer token, got %q", gotAuth)
		}
	})

	t.Run("decodes backend error detail", func(t *testing.T) {
		t.Parallel()
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"detail": "invalid token"})
		}))
		defer ts.Close()

		c := enabledClient(t, ts.URL, nil)

		var out any
		err := c.Get(ctx, "mail", &out)
		if err == nil || !strings.Contains(err.Error(), "invalid token") {
			t.Errorf("expected detail in error, got %v", err)
		}
	})
}

func TestPostJSON(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	var gotBody map[string]string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]string{"echo": gotBody["value"]})
	}))
	defer ts.Close()

	c := enabledClient(t, ts.URL, nil)

	var out map[string]string
	if err := c.PostJSON(ctx, "echo", map[string]string{"value": "hi"}, &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out["echo"] != "hi" {
		t.Errorf("unexpected response %v", out)
	}

	// nil out skips decoding.
	if err := c.PostJSON(ctx, "echo", map[string]string{"value": "hi"}, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLogin(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("exchanges form credentials for a token", func(t *testing.T) {
		t.Parallel()
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/token" {
				http.NotFound(w, r)
				return
			}
			if err := r.ParseForm(); err != nil {
				t.Errorf("unexpected form error: %v", err)
			}
			if r.PostForm.Get("username") != "max" || r.PostForm.Get("password") != "secret" {
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(map[string]string{"detail": "bad credentials"})
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]string{"access_token": "tok-456"})
		}))
		defer ts.Close()

		c := enabledClient(t, ts.URL, nil)

		token, err := c.Login(ctx, "max", "secret")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if token != "tok-456" {
			t.Errorf("unexpected token %q", token)
		}

		if _, err := c.Login(ctx, "max", "wrong"); err == nil {
			t.Error("expected error for bad credentials")
		}
	})

	t.Run("empty token is an error", func(t *testing.T) {
		t.Parallel()
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]string{"access_token": ""})
		}))
		defer ts.Close()

		c := enabledClient(t, ts.URL, nil)
		if _, err := c.Login(ctx, "max", "secret"); err == nil {
			t.Error("expected error for empty token")
		}
	})
}

func TestSettingsPersistence(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	kv := storage.NewMemoryKV()
	c := NewClient(kv, zap.NewNop(), nil)
	if err := c.UpdateSettings(ctx, models.APISettings{EnableAPI: true, APIURL: "http://backend:8000"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	reloaded := NewClient(kv, zap.NewNop(), nil)
	if err := reloaded.Init(ctx); err != nil {
		t.Fatalf("unexpected init error: %v", err)
	}
	got := reloaded.Settings()
	if !got.EnableAPI || got.APIURL != "http://backend:8000" {
		t.Errorf("expected persisted settings, got %+v", got)
	}
}
