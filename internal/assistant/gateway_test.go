package assistant

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jpkmiller/coach/internal/storage"
	"go.uber.org/zap"
)

// mockBackend is a mock implementation of Backend
type mockBackend struct {
	generateFunc          func(ctx context.Context, req GenerateRequest) (string, error)
	generateWithToolsFunc func(ctx context.Context, req ToolRequest) ([]ToolCall, error)
}

func (m *mockBackend) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	if m.generateFunc != nil {
		return m.generateFunc(ctx, req)
	}
	return "", nil
}

func (m *mockBackend) GenerateWithTools(ctx context.Context, req ToolRequest) ([]ToolCall, error) {
	if m.generateWithToolsFunc != nil {
		return m.generateWithToolsFunc(ctx, req)
	}
	return nil, nil
}

var _ Backend = (*mockBackend)(nil)

// mockProfile is a mock implementation of Profile
type mockProfile struct {
	name string
	info string
}

func (m *mockProfile) Name() string                { return m.name }
func (m *mockProfile) PersonalInformation() string { return m.info }

var _ Profile = (*mockProfile)(nil)

func newTestGateway(t *testing.T, profile Profile, backend Backend) *Gateway {
	t.Helper()
	store := NewStore(storage.NewMemoryKV(), zap.NewNop())
	return NewGateway(store, profile, backend, zap.NewNop())
}

func TestBuildSystemPrompt(t *testing.T) {
	t.Parallel()

	t.Run("layers persona, profile and name", func(t *testing.T) {
		t.Parallel()
		g := newTestGateway(t, &mockProfile{name: "Max", info: "I work remotely."}, &mockBackend{})

		got := g.buildSystemPrompt("Answer briefly.", true)

		persona := g.store.Settings().Personality
		if !strings.HasPrefix(got, persona+". ") {
			t.Error("expected prompt to start with the persona")
		}
		if !strings.Contains(got, "Answer briefly.") {
			t.Error("expected caller system prompt to be included")
		}
		if !strings.Contains(got, "Furthermore there exist following details about me as the user that should be kept in mind!\nI work remotely.") {
			t.Error("expected profile details block")
		}
		if !strings.HasSuffix(got, "My name is Max.") {
			t.Error("expected name sentence at the end")
		}
		// The caller prompt is repeated in front of the profile block.
		if strings.Count(got, "Answer briefly.") != 2 {
			t.Errorf("expected caller prompt twice, got:\n%s", got)
		}
	})

	t.Run("without personality or profile", func(t *testing.T) {
		t.Parallel()
		g := newTestGateway(t, &mockProfile{}, &mockBackend{})

		got := g.buildSystemPrompt("Answer briefly.", false)
		if got != "Answer briefly." {
			t.Errorf("expected bare caller prompt, got %q", got)
		}
	})
}

func TestRun(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("passes model and prompts through", func(t *testing.T) {
		t.Parallel()
		var captured GenerateRequest
		backend := &mockBackend{
			generateFunc: func(ctx context.Context, req GenerateRequest) (string, error) {
				captured = req
				return "generated", nil
			},
		}
		g := newTestGateway(t, &mockProfile{}, backend)

		got, err := g.Run(ctx, RunOptions{UserPrompt: "hello"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "generated" {
			t.Errorf("expected backend output, got %q", got)
		}
		if captured.Model != g.store.Settings().Model {
			t.Errorf("expected configured model, got %q", captured.Model)
		}
		if captured.UserPrompt != "hello" {
			t.Errorf("expected user prompt passed through, got %q", captured.UserPrompt)
		}
	})

	t.Run("empty user prompt", func(t *testing.T) {
		t.Parallel()
		g := newTestGateway(t, &mockProfile{}, &mockBackend{})
		if _, err := g.Run(ctx, RunOptions{}); err == nil {
			t.Error("expected error for empty user prompt")
		}
	})

	t.Run("backend error is passed up", func(t *testing.T) {
		t.Parallel()
		backend := &mockBackend{
			generateFunc: func(ctx context.Context, req GenerateRequest) (string, error) {
				return "", errors.New("model unavailable")
			},
		}
		g := newTestGateway(t, &mockProfile{}, backend)
		if _, err := g.Run(ctx, RunOptions{UserPrompt: "hello"}); err == nil {
			t.Error("expected backend error")
		}
	})
}

func TestRunJSON(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("wraps the schema and unwraps the envelope", func(t *testing.T) {
		t.Parallel()
		var captured GenerateRequest
		backend := &mockBackend{
			generateFunc: func(ctx context.Context, req GenerateRequest) (string, error) {
				captured = req
				return `{"response":["one","two"]}`, nil
			},
		}
		g := newTestGateway(t, &mockProfile{}, backend)

		var out []string
		err := g.RunJSON(ctx, RunOptions{
			UserPrompt: "list things",
			Schema:     StringArraySchema(),
			SchemaName: "things",
		}, &out)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(out) != 2 || out[0] != "one" {
			t.Errorf("unexpected output %v", out)
		}

		if captured.SchemaName != "things" {
			t.Errorf("expected schema name passed through, got %q", captured.SchemaName)
		}
		props, ok := captured.Schema["properties"].(map[string]any)
		if !ok {
			t.Fatalf("expected wrapped object schema, got %v", captured.Schema)
		}
		if _, ok := props["response"]; !ok {
			t.Error("expected schema nested under a response property")
		}
	})

	t.Run("missing schema", func(t *testing.T) {
		t.Parallel()
		g := newTestGateway(t, &mockProfile{}, &mockBackend{})
		var out []string
		if err := g.RunJSON(ctx, RunOptions{UserPrompt: "x"}, &out); err == nil {
			t.Error("expected error without a schema")
		}
	})

	t.Run("malformed envelope", func(t *testing.T) {
		t.Parallel()
		backend := &mockBackend{
			generateFunc: func(ctx context.Context, req GenerateRequest) (string, error) {
				return `["one","two"]`, nil
			},
		}
		g := newTestGateway(t, &mockProfile{}, backend)
		var out []string
		if err := g.RunJSON(ctx, RunOptions{UserPrompt: "x", Schema: StringArraySchema()}, &out); err == nil {
			t.Error("expected error for a response without the envelope")
		}
	})
}

func TestRunWithTools(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("returns the model's calls", func(t *testing.T) {
		t.Parallel()
		backend := &mockBackend{
			generateWithToolsFunc: func(ctx context.Context, req ToolRequest) ([]ToolCall, error) {
				return []ToolCall{{ID: "c1", Name: "label", Arguments: `{"mailId":"m1"}`}}, nil
			},
		}
		g := newTestGateway(t, &mockProfile{}, backend)

		calls, err := g.RunWithTools(ctx, ToolRunOptions{
			UserPrompt: "triage",
			Tools:      []ToolDefinition{{Name: "label"}},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(calls) != 1 || calls[0].Name != "label" {
			t.Errorf("unexpected calls %v", calls)
		}
	})

	t.Run("requires at least one tool", func(t *testing.T) {
		t.Parallel()
		g := newTestGateway(t, &mockProfile{}, &mockBackend{})
		if _, err := g.RunWithTools(ctx, ToolRunOptions{UserPrompt: "x"}); err == nil {
			t.Error("expected error without tools")
		}
	})
}
