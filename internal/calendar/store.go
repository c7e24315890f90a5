package calendar

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/jpkmiller/coach/internal/models"
	"github.com/jpkmiller/coach/internal/storage"
	"go.uber.org/zap"
)

// Store holds upcoming calendar events, persisted under the "calendar" key.
// Events feed the preparation-task generator.
type Store struct {
	mu     sync.Mutex
	events []models.CalendarEvent

	kv     storage.KV
	logger *zap.Logger
}

// NewStore creates the calendar store.
func NewStore(kv storage.KV, logger *zap.Logger) *Store {
	return &Store{kv: kv, logger: logger}
}

// Init loads persisted events; a missing key leaves the list empty.
func (s *Store) Init(ctx context.Context) error {
	var events []models.CalendarEvent
	err := storage.LoadJSON(ctx, s.kv, storage.KeyCalendar, &events)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.events = events
	s.mu.Unlock()
	return nil
}

// Reload re-reads events after an external change notification.
func (s *Store) Reload(ctx context.Context) {
	if err := s.Init(ctx); err != nil {
		s.logger.Warn("failed_to_reload_calendar", zap.Error(err))
	}
}

// Events returns a copy of the event list.
func (s *Store) Events() []models.CalendarEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.CalendarEvent, len(s.events))
	copy(out, s.events)
	return out
}

// Add appends an event and persists the list.
func (s *Store) Add(ctx context.Context, event models.CalendarEvent) string {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}

	s.mu.Lock()
	s.events = append(s.events, event)
	snapshot := make([]models.CalendarEvent, len(s.events))
	copy(snapshot, s.events)
	s.mu.Unlock()

	if err := storage.SaveJSON(ctx, s.kv, storage.KeyCalendar, snapshot); err != nil {
		s.logger.Warn("failed_to_persist_calendar", zap.Error(err))
	}
	return event.ID
}

// String renders the event list as prompt context for the task generator.
func (s *Store) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.events) == 0 {
		return "No upcoming events."
	}

	parts := make([]string, 0, len(s.events))
	for _, event := range s.events {
		lines := []string{
			fmt.Sprintf("Event: %s", event.Title),
			fmt.Sprintf("Start: %s", event.Start.Format("Monday, 2. January 2006 15:04")),
		}
		if event.Location != "" {
			lines = append(lines, fmt.Sprintf("Location: %s", event.Location))
		}
		if event.Notes != "" {
			lines = append(lines, fmt.Sprintf("Notes: %s", event.Notes))
		}
		parts = append(parts, strings.Join(lines, "\n"))
	}
	return strings.Join(parts, "\n\n---\n\n")
}
