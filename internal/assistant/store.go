package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jpkmiller/coach/internal/models"
	"github.com/jpkmiller/coach/internal/storage"
	"go.uber.org/zap"
)

// Store owns the assistant settings and the named generated-text cache,
// persisted under the "assistant" key.
type Store struct {
	mu        sync.Mutex
	assistant models.Assistant

	kv     storage.KV
	logger *zap.Logger
	now    func() time.Time
}

// NewStore creates the settings store with defaults in place until Init
// loads persisted state.
func NewStore(kv storage.KV, logger *zap.Logger) *Store {
	return &Store{
		assistant: models.Assistant{
			Model:          models.DefaultAssistantModel,
			Personality:    defaultPersonality,
			GeneratedTexts: make(map[string]string),
		},
		kv:     kv,
		logger: logger,
		now:    time.Now,
	}
}

// Init loads persisted assistant settings; a missing key keeps the defaults.
func (s *Store) Init(ctx context.Context) error {
	var assistant models.Assistant
	err := storage.LoadJSON(ctx, s.kv, storage.KeyAssistant, &assistant)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if assistant.GeneratedTexts == nil {
		assistant.GeneratedTexts = make(map[string]string)
	}
	if assistant.Model == "" {
		assistant.Model = models.DefaultAssistantModel
	}
	if assistant.Personality == "" {
		assistant.Personality = defaultPersonality
	}
	s.mu.Lock()
	s.assistant = assistant
	s.mu.Unlock()
	return nil
}

// Reload re-reads settings after an external change notification.
func (s *Store) Reload(ctx context.Context) {
	if err := s.Init(ctx); err != nil {
		s.logger.Warn("failed_to_reload_assistant_settings", zap.Error(err))
	}
}

// Settings returns a copy of the current assistant settings. The cache map
// is copied as well so callers never share it with concurrent writers.
func (s *Store) Settings() models.Assistant {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.assistant
	texts := make(map[string]string, len(s.assistant.GeneratedTexts))
	for k, v := range s.assistant.GeneratedTexts {
		texts[k] = v
	}
	out.GeneratedTexts = texts
	return out
}

// UpdateSettings replaces model, API key and personality while leaving the
// generated-text cache intact, then persists. The marshal happens under the
// lock because the cache map may be written concurrently.
func (s *Store) UpdateSettings(ctx context.Context, apiKey, model, personality string) error {
	s.mu.Lock()
	if apiKey != "" {
		s.assistant.OpenAIAPIKey = apiKey
	}
	if model != "" {
		s.assistant.Model = model
	}
	if personality != "" {
		s.assistant.Personality = personality
	}
	data, err := json.Marshal(s.assistant)
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", storage.KeyAssistant, err)
	}
	return s.kv.Set(ctx, storage.KeyAssistant, data)
}

// AddText stores text with the current timestamp under key, overwriting any
// prior entry, and persists the cache.
func (s *Store) AddText(ctx context.Context, key, text string) {
	envelope := models.GeneratedText{
		Text: text,
		Date: s.now().UnixMilli(),
	}
	data, err := json.Marshal(envelope)
	if err != nil {
		s.logger.Error("failed_to_encode_cache_entry", zap.String("key", key), zap.Error(err))
		return
	}

	s.mu.Lock()
	s.assistant.GeneratedTexts[key] = string(data)
	snapshot, err := json.Marshal(s.assistant)
	s.mu.Unlock()
	if err != nil {
		s.logger.Warn("failed_to_persist_cache_entry", zap.String("key", key), zap.Error(err))
		return
	}

	if err := s.kv.Set(ctx, storage.KeyAssistant, snapshot); err != nil {
		s.logger.Warn("failed_to_persist_cache_entry", zap.String("key", key), zap.Error(err))
	}
}

// GetText returns the cached text under key, or "" when absent. A maxAge
// greater than zero treats entries older than maxAge as absent; stale
// entries stay in the cache until overwritten.
func (s *Store) GetText(key string, maxAge time.Duration) string {
	s.mu.Lock()
	raw, ok := s.assistant.GeneratedTexts[key]
	s.mu.Unlock()
	if !ok {
		return ""
	}

	var envelope models.GeneratedText
	if err := json.Unmarshal([]byte(raw), &envelope); err != nil {
		s.logger.Warn("malformed_cache_entry", zap.String("key", key), zap.Error(err))
		return ""
	}

	if maxAge > 0 && s.now().UnixMilli()-envelope.Date > maxAge.Milliseconds() {
		return ""
	}
	return envelope.Text
}
