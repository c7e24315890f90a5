package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// RunOptions describes a single generation request. UserPrompt is required;
// everything else is optional. When Schema is set, the backend is asked for
// JSON conforming to it and the result should be read via RunJSON.
type RunOptions struct {
	SystemPrompt    string
	UserPrompt      string
	WithPersonality bool
	Schema          map[string]any
	SchemaName      string
}

// ToolRunOptions describes a tool-calling request. The gateway returns the
// raw calls the model chose to make; argument JSON is the caller's problem.
type ToolRunOptions struct {
	SystemPrompt string
	UserPrompt   string
	Tools        []ToolDefinition
}

// ToolDefinition declares one callable tool to the model.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// ToolCall is one function invocation chosen by the model. Arguments is the
// unparsed JSON argument object.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// GenerateRequest is the backend-level request after prompt layering.
type GenerateRequest struct {
	Model        string
	SystemPrompt string
	UserPrompt   string
	Schema       map[string]any
	SchemaName   string
}

// ToolRequest is the backend-level tool-calling request.
type ToolRequest struct {
	Model        string
	SystemPrompt string
	UserPrompt   string
	Tools        []ToolDefinition
}

// Backend is a text-generation backend: either the OpenAI API directly or
// the coach backend's assistant proxy.
type Backend interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
	GenerateWithTools(ctx context.Context, req ToolRequest) ([]ToolCall, error)
}

// Profile supplies the user details that are folded into every system
// prompt. Implemented by the user store.
type Profile interface {
	Name() string
	PersonalInformation() string
}

// Gateway layers persona and profile context onto caller prompts and
// dispatches to the configured backend.
type Gateway struct {
	store   *Store
	profile Profile
	backend Backend
	logger  *zap.Logger
}

// NewGateway wires the gateway to its settings store, user profile and
// backend.
func NewGateway(store *Store, profile Profile, backend Backend, logger *zap.Logger) *Gateway {
	return &Gateway{store: store, profile: profile, backend: backend, logger: logger}
}

// buildSystemPrompt concatenates persona, caller system prompt, user profile
// details and the user's name. The system prompt appears a second time in
// front of the profile block; that layering is part of the prompt contract
// and kept as-is.
func (g *Gateway) buildSystemPrompt(systemPrompt string, withPersonality bool) string {
	enhanced := ""

	if withPersonality {
		enhanced += g.store.Settings().Personality + ". "
	}

	if systemPrompt != "" {
		enhanced += systemPrompt
	}

	if info := g.profile.PersonalInformation(); info != "" {
		enhanced += fmt.Sprintf("%s.\nFurthermore there exist following details about me as the user that should be kept in mind!\n%s", systemPrompt, info)
	}

	if name := g.profile.Name(); name != "" {
		enhanced += fmt.Sprintf("My name is %s.", name)
	}

	return enhanced
}

// Run sends a prompt and returns the generated text.
func (g *Gateway) Run(ctx context.Context, opts RunOptions) (string, error) {
	if opts.UserPrompt == "" {
		return "", errors.New("user prompt is required")
	}

	settings := g.store.Settings()
	req := GenerateRequest{
		Model:        settings.Model,
		SystemPrompt: g.buildSystemPrompt(opts.SystemPrompt, opts.WithPersonality),
		UserPrompt:   opts.UserPrompt,
	}

	g.logger.Debug("assistant_request",
		zap.String("model", req.Model),
		zap.Int("system_prompt_length", len(req.SystemPrompt)),
		zap.String("user_prompt_preview", previewForLog(req.UserPrompt)),
	)

	text, err := g.backend.Generate(ctx, req)
	if err != nil {
		g.logger.Error("assistant_request_failed", zap.Error(err))
		return "", err
	}

	g.logger.Debug("assistant_response",
		zap.Int("response_length", len(text)),
		zap.String("response_preview", previewForLog(text)),
	)
	return text, nil
}

// RunJSON sends a prompt with a structured-output schema and decodes the
// result into out. The caller schema is wrapped in a single-field envelope
// object before it reaches the backend; the envelope is unwrapped here.
func (g *Gateway) RunJSON(ctx context.Context, opts RunOptions, out any) error {
	if opts.UserPrompt == "" {
		return errors.New("user prompt is required")
	}
	if opts.Schema == nil {
		return errors.New("schema is required")
	}

	name := opts.SchemaName
	if name == "" {
		name = "format"
	}

	settings := g.store.Settings()
	req := GenerateRequest{
		Model:        settings.Model,
		SystemPrompt: g.buildSystemPrompt(opts.SystemPrompt, opts.WithPersonality),
		UserPrompt:   opts.UserPrompt,
		Schema:       wrapSchema(opts.Schema),
		SchemaName:   name,
	}

	raw, err := g.backend.Generate(ctx, req)
	if err != nil {
		g.logger.Error("assistant_request_failed", zap.Error(err))
		return err
	}

	var envelope struct {
		Response json.RawMessage `json:"response"`
	}
	if err := json.Unmarshal([]byte(raw), &envelope); err != nil {
		return fmt.Errorf("failed to parse structured response: %w", err)
	}
	if envelope.Response == nil {
		return errors.New("structured response missing response field")
	}
	if err := json.Unmarshal(envelope.Response, out); err != nil {
		return fmt.Errorf("failed to decode structured response: %w", err)
	}
	return nil
}

// RunWithTools sends a prompt together with tool declarations and returns
// the list of tool calls the model issued.
func (g *Gateway) RunWithTools(ctx context.Context, opts ToolRunOptions) ([]ToolCall, error) {
	if opts.UserPrompt == "" {
		return nil, errors.New("user prompt is required")
	}
	if len(opts.Tools) == 0 {
		return nil, errors.New("at least one tool is required")
	}

	settings := g.store.Settings()
	req := ToolRequest{
		Model:        settings.Model,
		SystemPrompt: g.buildSystemPrompt(opts.SystemPrompt, false),
		UserPrompt:   opts.UserPrompt,
		Tools:        opts.Tools,
	}

	calls, err := g.backend.GenerateWithTools(ctx, req)
	if err != nil {
		g.logger.Error("assistant_tool_request_failed", zap.Error(err))
		return nil, err
	}

	g.logger.Debug("assistant_tool_response", zap.Int("tool_call_count", len(calls)))
	return calls, nil
}

// wrapSchema nests the caller's schema under a single required "response"
// property so the backend always produces an object at the top level.
func wrapSchema(schema map[string]any) map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"response": schema,
		},
		"required":             []string{"response"},
		"additionalProperties": false,
	}
}

// StringArraySchema is the schema for a plain JSON array of strings, the
// shape used by subtask and suggestion generation.
func StringArraySchema() map[string]any {
	return map[string]any{
		"type":  "array",
		"items": map[string]any{"type": "string"},
	}
}
