package assistant

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jpkmiller/coach/internal/models"
	"github.com/jpkmiller/coach/internal/storage"
	"go.uber.org/zap"
)

func TestStoreDefaults(t *testing.T) {
	t.Parallel()

	s := NewStore(storage.NewMemoryKV(), zap.NewNop())
	settings := s.Settings()

	if settings.Model != models.DefaultAssistantModel {
		t.Errorf("expected default model %q, got %q", models.DefaultAssistantModel, settings.Model)
	}
	if settings.Personality == "" {
		t.Error("expected a default personality")
	}
	if settings.GeneratedTexts == nil {
		t.Error("expected an initialized cache")
	}
}

func TestUpdateSettings(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	kv := storage.NewMemoryKV()
	s := NewStore(kv, zap.NewNop())
	s.AddText(ctx, "greeting", "hello")

	if err := s.UpdateSettings(ctx, "sk-test", "gpt-4.1", "curt"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	settings := s.Settings()
	if settings.OpenAIAPIKey != "sk-test" || settings.Model != "gpt-4.1" || settings.Personality != "curt" {
		t.Errorf("unexpected settings %+v", settings)
	}
	if s.GetText("greeting", 0) != "hello" {
		t.Error("expected cache to survive a settings update")
	}

	// Empty values leave the current ones in place.
	if err := s.UpdateSettings(ctx, "", "", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := s.Settings(); got.Model != "gpt-4.1" {
		t.Errorf("expected model kept, got %q", got.Model)
	}

	reloaded := NewStore(kv, zap.NewNop())
	if err := reloaded.Init(ctx); err != nil {
		t.Fatalf("unexpected init error: %v", err)
	}
	if got := reloaded.Settings(); got.Model != "gpt-4.1" {
		t.Errorf("expected persisted model, got %q", got.Model)
	}
}

func TestConcurrentCacheWrites(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewStore(storage.NewMemoryKV(), zap.NewNop())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("entry-%d", i)
			s.AddText(ctx, key, fmt.Sprintf("text %d", i))
			if got := s.GetText(key, 0); got == "" {
				t.Errorf("expected %s to be readable after write", key)
			}
		}(i)
	}
	wg.Wait()

	if got := len(s.Settings().GeneratedTexts); got != 50 {
		t.Errorf("expected 50 cache entries, got %d", got)
	}
}

func TestTextCache(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	newStoreAt := func(t *testing.T, ts time.Time) *Store {
		t.Helper()
		s := NewStore(storage.NewMemoryKV(), zap.NewNop())
		s.now = func() time.Time { return ts }
		return s
	}

	t.Run("missing key", func(t *testing.T) {
		t.Parallel()
		s := newStoreAt(t, time.Now())
		if got := s.GetText("missing", time.Hour); got != "" {
			t.Errorf("expected empty text, got %q", got)
		}
	})

	t.Run("fresh entry is returned", func(t *testing.T) {
		t.Parallel()
		base := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
		s := newStoreAt(t, base)
		s.AddText(ctx, "summary", "good morning")

		s.now = func() time.Time { return base.Add(time.Hour) }
		if got := s.GetText("summary", 2*time.Hour); got != "good morning" {
			t.Errorf("expected cached text, got %q", got)
		}
	})

	t.Run("entry exactly at max age is still fresh", func(t *testing.T) {
		t.Parallel()
		base := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
		s := newStoreAt(t, base)
		s.AddText(ctx, "summary", "good morning")

		s.now = func() time.Time { return base.Add(2 * time.Hour) }
		if got := s.GetText("summary", 2*time.Hour); got != "good morning" {
			t.Errorf("expected boundary entry to hit, got %q", got)
		}
	})

	t.Run("stale entry reads as absent", func(t *testing.T) {
		t.Parallel()
		base := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
		s := newStoreAt(t, base)
		s.AddText(ctx, "summary", "good morning")

		s.now = func() time.Time { return base.Add(2*time.Hour + time.Millisecond) }
		if got := s.GetText("summary", 2*time.Hour); got != "" {
			t.Errorf("expected stale entry to miss, got %q", got)
		}

		// The stale entry stays stored and is readable without an age limit.
		if got := s.GetText("summary", 0); got != "good morning" {
			t.Errorf("expected stale entry to remain stored, got %q", got)
		}
	})

	t.Run("overwrite refreshes the timestamp", func(t *testing.T) {
		t.Parallel()
		base := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
		s := newStoreAt(t, base)
		s.AddText(ctx, "summary", "old")

		s.now = func() time.Time { return base.Add(3 * time.Hour) }
		s.AddText(ctx, "summary", "new")
		if got := s.GetText("summary", 2*time.Hour); got != "new" {
			t.Errorf("expected refreshed entry, got %q", got)
		}
	})

	t.Run("malformed entry reads as absent", func(t *testing.T) {
		t.Parallel()
		s := newStoreAt(t, time.Now())
		s.mu.Lock()
		s.assistant.GeneratedTexts["broken"] = "{not json"
		s.mu.Unlock()

		if got := s.GetText("broken", time.Hour); got != "" {
			t.Errorf("expected empty text for malformed entry, got %q", got)
		}
	})
}
