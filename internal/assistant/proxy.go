package assistant

import (
	"context"

	"github.com/jpkmiller/coach/internal/api"
)

// ProxyBackend routes generation through the coach backend instead of
// calling OpenAI directly. Used when the client must not hold an API key.
type ProxyBackend struct {
	client *api.Client
}

// NewProxyBackend creates the proxy backend on top of the backend client.
func NewProxyBackend(client *api.Client) *ProxyBackend {
	return &ProxyBackend{client: client}
}

type proxyRunRequest struct {
	SystemPrompt string         `json:"system_prompt"`
	UserPrompt   string         `json:"user_prompt"`
	JSONSchema   map[string]any `json:"json_schema,omitempty"`
}

type proxyRunResponse struct {
	OutputText string `json:"output_text"`
}

type proxyToolRequest struct {
	SystemPrompt string          `json:"system_prompt"`
	UserPrompt   string          `json:"user_prompt"`
	Tools        []proxyToolDecl `json:"tools"`
}

type proxyToolDecl struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

type proxyToolResponse struct {
	ToolCalls []struct {
		ID        string `json:"id"`
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"tool_calls"`
}

// Generate proxies a generation request. Schema-constrained requests return
// the conforming JSON in output_text.
func (b *ProxyBackend) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	var resp proxyRunResponse
	err := b.client.PostJSON(ctx, "assistant/run", proxyRunRequest{
		SystemPrompt: req.SystemPrompt,
		UserPrompt:   req.UserPrompt,
		JSONSchema:   req.Schema,
	}, &resp)
	if err != nil {
		return "", err
	}
	return resp.OutputText, nil
}

// GenerateWithTools proxies a tool-calling request.
func (b *ProxyBackend) GenerateWithTools(ctx context.Context, req ToolRequest) ([]ToolCall, error) {
	decls := make([]proxyToolDecl, 0, len(req.Tools))
	for _, tool := range req.Tools {
		decls = append(decls, proxyToolDecl{
			Name:        tool.Name,
			Description: tool.Description,
			Parameters:  tool.Parameters,
		})
	}

	var resp proxyToolResponse
	err := b.client.PostJSON(ctx, "assistant/run_with_tools", proxyToolRequest{
		SystemPrompt: req.SystemPrompt,
		UserPrompt:   req.UserPrompt,
		Tools:        decls,
	}, &resp)
	if err != nil {
		return nil, err
	}

	calls := make([]ToolCall, 0, len(resp.ToolCalls))
	for _, tc := range resp.ToolCalls {
		calls = append(calls, ToolCall{ID: tc.ID, Name: tc.Name, Arguments: tc.Arguments})
	}
	return calls, nil
}

var _ Backend = (*ProxyBackend)(nil)
