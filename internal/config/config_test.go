package config

import (
	"os"
	"path/filepath"
	"testing"
)

func clearCoachEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"COACH_CONFIG", "COACH_STORAGE", "REDIS_URL", "SERVER_PORT",
		"FRONTEND_URL", "OPENAI_API_KEY", "COACH_ASSISTANT_MODE",
		"COACH_DEBUG", "COACH_JSON_LOGS", "COACH_ENABLE_CORS",
	} {
		t.Setenv(key, "")
		_ = os.Unsetenv(key)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearCoachEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.StorageBackend != "redis" {
		t.Errorf("expected redis storage by default, got %q", cfg.StorageBackend)
	}
	if cfg.ServerPort != "8080" {
		t.Errorf("expected default port 8080, got %q", cfg.ServerPort)
	}
	if cfg.AssistantMode != "direct" {
		t.Errorf("expected direct assistant mode, got %q", cfg.AssistantMode)
	}
	if !cfg.EnableCORS {
		t.Error("expected CORS enabled by default")
	}
	if cfg.DebugMode {
		t.Error("expected debug mode off by default")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearCoachEnv(t)
	t.Setenv("COACH_STORAGE", "memory")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("COACH_ASSISTANT_MODE", "proxy")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("COACH_DEBUG", "true")
	t.Setenv("COACH_ENABLE_CORS", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.StorageBackend != "memory" {
		t.Errorf("expected memory storage, got %q", cfg.StorageBackend)
	}
	if cfg.ServerPort != "9090" {
		t.Errorf("expected port 9090, got %q", cfg.ServerPort)
	}
	if cfg.AssistantMode != "proxy" {
		t.Errorf("expected proxy mode, got %q", cfg.AssistantMode)
	}
	if cfg.OpenAIKey != "sk-test" {
		t.Errorf("expected API key from env, got %q", cfg.OpenAIKey)
	}
	if !cfg.DebugMode {
		t.Error("expected debug mode on")
	}
	if cfg.EnableCORS {
		t.Error("expected CORS disabled")
	}
}

func TestLoadYAMLFile(t *testing.T) {
	clearCoachEnv(t)

	path := filepath.Join(t.TempDir(), "coach.yaml")
	yaml := `storage_backend: memory
server_port: "7070"
assistant_mode: proxy
debug_mode: true
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("unexpected write error: %v", err)
	}
	t.Setenv("COACH_CONFIG", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.StorageBackend != "memory" || cfg.ServerPort != "7070" || cfg.AssistantMode != "proxy" || !cfg.DebugMode {
		t.Errorf("expected values from file, got %+v", cfg)
	}
}

func TestLoadEnvBeatsFile(t *testing.T) {
	clearCoachEnv(t)

	path := filepath.Join(t.TempDir(), "coach.yaml")
	if err := os.WriteFile(path, []byte("server_port: \"7070\"\nstorage_backend: memory\n"), 0o600); err != nil {
		t.Fatalf("unexpected write error: %v", err)
	}
	t.Setenv("COACH_CONFIG", path)
	t.Setenv("SERVER_PORT", "6060")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ServerPort != "6060" {
		t.Errorf("expected env to win, got %q", cfg.ServerPort)
	}
}

func TestLoadInvalid(t *testing.T) {
	t.Run("bad storage backend", func(t *testing.T) {
		clearCoachEnv(t)
		t.Setenv("COACH_STORAGE", "postgres")
		if _, err := Load(); err == nil {
			t.Error("expected validation error")
		}
	})

	t.Run("non-numeric port", func(t *testing.T) {
		clearCoachEnv(t)
		t.Setenv("SERVER_PORT", "eighty")
		if _, err := Load(); err == nil {
			t.Error("expected validation error")
		}
	})

	t.Run("bad assistant mode", func(t *testing.T) {
		clearCoachEnv(t)
		t.Setenv("COACH_ASSISTANT_MODE", "local")
		if _, err := Load(); err == nil {
			t.Error("expected validation error")
		}
	})

	t.Run("missing config file", func(t *testing.T) {
		clearCoachEnv(t)
		t.Setenv("COACH_CONFIG", "/does/not/exist.yaml")
		if _, err := Load(); err == nil {
			t.Error("expected read error")
		}
	})
}
