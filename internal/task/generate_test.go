package task

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jpkmiller/coach/internal/assistant"
	"github.com/jpkmiller/coach/internal/models"
	"github.com/jpkmiller/coach/internal/storage"
	"go.uber.org/zap"
)

// mockMailSource is a mock implementation of MailSource
type mockMailSource struct {
	selected []models.Mail
}

func (m *mockMailSource) SelectedMails() []models.Mail {
	return m.selected
}

var _ MailSource = (*mockMailSource)(nil)

// mockCalendarSource is a mock implementation of CalendarSource
type mockCalendarSource struct {
	rendered string
}

func (m *mockCalendarSource) String() string {
	return m.rendered
}

var _ CalendarSource = (*mockCalendarSource)(nil)

// jsonRunner answers every RunJSON call with the given titles.
func jsonRunner(t *testing.T, titles []string, capture *assistant.RunOptions) *mockRunner {
	t.Helper()
	return &mockRunner{
		runJSONFunc: func(ctx context.Context, opts assistant.RunOptions, out any) error {
			if capture != nil {
				*capture = opts
			}
			data, err := json.Marshal(titles)
			if err != nil {
				return err
			}
			return json.Unmarshal(data, out)
		},
	}
}

func TestBreakIntoSubtasks(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("children inherit due date at medium priority", func(t *testing.T) {
		t.Parallel()
		var captured assistant.RunOptions
		runner := jsonRunner(t, []string{"step one", "step two", "step three"}, &captured)
		s := NewStore(storage.NewMemoryKV(), runner, nil, nil, zap.NewNop())

		due := time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC)
		id := s.Add(ctx, AddRequest{Title: "Ship release", Priority: models.PriorityHigh, DueDate: &due}, "")

		if !s.BreakIntoSubtasks(ctx, id) {
			t.Fatal("expected subtask generation to succeed")
		}

		parent := s.Get(id)
		if len(parent.SubTasks) != 3 {
			t.Fatalf("expected 3 subtasks, got %d", len(parent.SubTasks))
		}
		for _, child := range parent.SubTasks {
			if child.Priority != models.PriorityMedium {
				t.Errorf("expected medium priority, got %d", child.Priority)
			}
			if child.DueDate == nil || !child.DueDate.Equal(due) {
				t.Errorf("expected inherited due date, got %v", child.DueDate)
			}
			if child.ParentID != id {
				t.Errorf("expected parent id %q, got %q", id, child.ParentID)
			}
		}
		if !strings.Contains(captured.UserPrompt, "Ship release") {
			t.Errorf("expected prompt to mention the task title, got %q", captured.UserPrompt)
		}
		if captured.Schema == nil {
			t.Error("expected a structured-output schema")
		}
	})

	t.Run("unknown task", func(t *testing.T) {
		t.Parallel()
		s := NewStore(storage.NewMemoryKV(), &mockRunner{}, nil, nil, zap.NewNop())
		if s.BreakIntoSubtasks(ctx, "missing") {
			t.Error("expected failure for unknown task")
		}
	})

	t.Run("runner failure leaves task untouched", func(t *testing.T) {
		t.Parallel()
		runner := &mockRunner{
			runJSONFunc: func(ctx context.Context, opts assistant.RunOptions, out any) error {
				return errors.New("model unavailable")
			},
		}
		s := NewStore(storage.NewMemoryKV(), runner, nil, nil, zap.NewNop())
		id := s.Add(ctx, AddRequest{Title: "task"}, "")

		if s.BreakIntoSubtasks(ctx, id) {
			t.Error("expected failure")
		}
		if len(s.Get(id).SubTasks) != 0 {
			t.Error("expected no subtasks on failure")
		}
	})
}

func TestGenerateSuggestionsFromInput(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("appends titles to the suggestion list", func(t *testing.T) {
		t.Parallel()
		var captured assistant.RunOptions
		runner := jsonRunner(t, []string{"call dentist", "renew passport"}, &captured)
		s := NewStore(storage.NewMemoryKV(), runner, nil, nil, zap.NewNop())
		s.suggestions = []string{"existing"}

		if !s.GenerateSuggestionsFromInput(ctx, "some summary text", "Extract tasks.") {
			t.Fatal("expected generation to succeed")
		}

		got := s.Suggestions()
		if len(got) != 3 || got[0] != "existing" || got[1] != "call dentist" {
			t.Errorf("expected appended suggestions, got %v", got)
		}
		if !strings.HasPrefix(captured.SystemPrompt, "Extract tasks.") {
			t.Errorf("expected domain prompt first, got %q", captured.SystemPrompt)
		}
		if !strings.Contains(captured.SystemPrompt, "STRICT REQUIREMENTS") {
			t.Error("expected fixed output requirements to be appended")
		}
	})

	t.Run("blank input is a no-op", func(t *testing.T) {
		t.Parallel()
		called := false
		runner := &mockRunner{
			runJSONFunc: func(ctx context.Context, opts assistant.RunOptions, out any) error {
				called = true
				return nil
			},
		}
		s := NewStore(storage.NewMemoryKV(), runner, nil, nil, zap.NewNop())

		if s.GenerateSuggestionsFromInput(ctx, "   ", "prompt") {
			t.Error("expected blank input to fail")
		}
		if called {
			t.Error("expected no assistant call for blank input")
		}
	})
}

func TestGenerateFromMail(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("selected mails feed the prompt", func(t *testing.T) {
		t.Parallel()
		var captured assistant.RunOptions
		runner := jsonRunner(t, []string{"answer alice"}, &captured)
		mails := &mockMailSource{selected: []models.Mail{
			{ID: "m1", From: "alice@example.com", Subject: "Project timeline", Body: "Can we meet?"},
		}}
		s := NewStore(storage.NewMemoryKV(), runner, mails, nil, zap.NewNop())

		if !s.GenerateFromMail(ctx) {
			t.Fatal("expected generation to succeed")
		}
		if !strings.Contains(captured.UserPrompt, "alice@example.com") {
			t.Errorf("expected prompt to contain sender, got %q", captured.UserPrompt)
		}
		if got := s.Suggestions(); len(got) != 1 || got[0] != "answer alice" {
			t.Errorf("expected one suggestion, got %v", got)
		}
	})

	t.Run("empty selection is a no-op", func(t *testing.T) {
		t.Parallel()
		s := NewStore(storage.NewMemoryKV(), &mockRunner{}, &mockMailSource{}, nil, zap.NewNop())
		if s.GenerateFromMail(ctx) {
			t.Error("expected failure with no selection")
		}
	})
}

func TestGenerateFromCalendar(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	var captured assistant.RunOptions
	runner := jsonRunner(t, []string{"prepare agenda"}, &captured)
	calendar := &mockCalendarSource{rendered: "Team meeting tomorrow at 2 PM"}
	s := NewStore(storage.NewMemoryKV(), runner, nil, calendar, zap.NewNop())

	if !s.GenerateFromCalendar(ctx) {
		t.Fatal("expected generation to succeed")
	}
	if !strings.Contains(captured.UserPrompt, "Team meeting tomorrow") {
		t.Errorf("expected prompt to contain calendar context, got %q", captured.UserPrompt)
	}
}
