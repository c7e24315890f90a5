package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config holds application configuration. Values come from an optional YAML
// file (COACH_CONFIG) overridden by environment variables.
type Config struct {
	// Storage for the persisted key-value state. "redis" talks to RedisURL;
	// "memory" keeps everything in-process (useful for tests and demos).
	StorageBackend string `yaml:"storage_backend" validate:"oneof=redis memory"`
	RedisURL       string `yaml:"redis_url" validate:"required_if=StorageBackend redis,omitempty,uri"`

	ServerPort  string `yaml:"server_port" validate:"required,numeric"`
	FrontendURL string `yaml:"frontend_url" validate:"omitempty,url"`

	OpenAIKey     string `yaml:"openai_api_key"`
	AssistantMode string `yaml:"assistant_mode" validate:"oneof=direct proxy"`

	DebugMode  bool `yaml:"debug_mode"`
	JSONLogs   bool `yaml:"json_logs"`
	EnableCORS bool `yaml:"enable_cors"`
}

// Load reads the optional YAML file named by COACH_CONFIG, layers environment
// variables on top, and validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		StorageBackend: "redis",
		RedisURL:       "redis://localhost:6379/0",
		ServerPort:     "8080",
		FrontendURL:    "http://localhost:5173",
		AssistantMode:  "direct",
		EnableCORS:     true,
	}

	if path := os.Getenv("COACH_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.StorageBackend = getEnv("COACH_STORAGE", cfg.StorageBackend)
	cfg.RedisURL = getEnv("REDIS_URL", cfg.RedisURL)
	cfg.ServerPort = getEnv("SERVER_PORT", cfg.ServerPort)
	cfg.FrontendURL = getEnv("FRONTEND_URL", cfg.FrontendURL)
	cfg.OpenAIKey = getEnv("OPENAI_API_KEY", cfg.OpenAIKey)
	cfg.AssistantMode = getEnv("COACH_ASSISTANT_MODE", cfg.AssistantMode)
	cfg.DebugMode = getEnvBool("COACH_DEBUG", cfg.DebugMode)
	cfg.JSONLogs = getEnvBool("COACH_JSON_LOGS", cfg.JSONLogs)
	cfg.EnableCORS = getEnvBool("COACH_ENABLE_CORS", cfg.EnableCORS)

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}
