package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Well-known keys for the persisted application state.
const (
	KeyAPI       = "api"
	KeyAssistant = "assistant"
	KeyUser      = "user"
	KeyWeather   = "weather"
	KeyMails     = "mails"
	KeyTasks     = "tasks"
	KeyCalendar  = "calendar"
)

// ErrNotFound is returned by Get when no value is stored under the key.
var ErrNotFound = errors.New("storage: key not found")

// KV is the persisted key-value store every store hangs its state off of.
// Subscribe delivers the name of each key written by other instances sharing
// the same backend, so in-memory copies can be reloaded. Writes made through
// the subscribing instance are not delivered; reloading state the process
// just wrote would race its own in-flight mutations.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Subscribe(ctx context.Context) (<-chan string, error)
	Close() error
}

// LoadJSON reads the value stored under key into out. A missing key is
// reported as ErrNotFound so callers can fall back to defaults.
func LoadJSON(ctx context.Context, kv KV, key string, out any) error {
	data, err := kv.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return nil
}

// SaveJSON serializes v and stores it under key.
func SaveJSON(ctx context.Context, kv KV, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return kv.Set(ctx, key, data)
}
