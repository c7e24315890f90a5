package assistant

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"go.uber.org/zap"
)

const (
	openAITimeout = 60 * time.Second
	// toolTemperature keeps tool selection deterministic enough for triage.
	toolTemperature = 0.3
)

// ErrNoAPIKey is returned when a direct OpenAI call is attempted without a
// configured key.
var ErrNoAPIKey = errors.New("assistant: no OpenAI API key configured")

// OpenAIBackend talks to the OpenAI API directly. The key is read per call
// so settings changes take effect without rebuilding the backend.
type OpenAIBackend struct {
	keyFn  func() string
	httpc  *http.Client
	logger *zap.Logger
}

// NewOpenAIBackend creates the direct backend. keyFn supplies the current
// API key.
func NewOpenAIBackend(keyFn func() string, logger *zap.Logger) *OpenAIBackend {
	return &OpenAIBackend{
		keyFn:  keyFn,
		httpc:  &http.Client{Timeout: openAITimeout},
		logger: logger,
	}
}

func (b *OpenAIBackend) client() (openai.Client, error) {
	key := b.keyFn()
	if key == "" {
		return openai.Client{}, ErrNoAPIKey
	}
	return openai.NewClient(
		option.WithAPIKey(key),
		option.WithHTTPClient(b.httpc),
	), nil
}

// Generate sends a chat completion and returns the text of the first choice.
// When a schema is present the response format is constrained to it.
func (b *OpenAIBackend) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	client, err := b.client()
	if err != nil {
		return "", err
	}

	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(req.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.SystemPrompt),
			openai.UserMessage(req.UserPrompt),
		},
	}

	if req.Schema != nil {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
				JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   req.SchemaName,
					Strict: openai.Bool(true),
					Schema: req.Schema,
				},
			},
		}
	}

	start := time.Now()
	resp, err := client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no choices in response")
	}

	b.logger.Debug("openai_completion",
		zap.String("model", req.Model),
		zap.Duration("latency", time.Since(start)),
	)
	return resp.Choices[0].Message.Content, nil
}

// GenerateWithTools sends a chat completion with function tools and returns
// the tool calls the model issued.
func (b *OpenAIBackend) GenerateWithTools(ctx context.Context, req ToolRequest) ([]ToolCall, error) {
	client, err := b.client()
	if err != nil {
		return nil, err
	}

	tools := make([]openai.ChatCompletionToolUnionParam, 0, len(req.Tools))
	for _, tool := range req.Tools {
		tools = append(tools, openai.ChatCompletionFunctionTool(shared.FunctionDefinitionParam{
			Name:        tool.Name,
			Description: openai.String(tool.Description),
			Parameters:  shared.FunctionParameters(tool.Parameters),
		}))
	}

	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(req.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.SystemPrompt),
			openai.UserMessage(req.UserPrompt),
		},
		Tools:       tools,
		Temperature: openai.Float(toolTemperature),
	}

	resp, err := client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("no choices in response")
	}

	calls := make([]ToolCall, 0, len(resp.Choices[0].Message.ToolCalls))
	for _, tc := range resp.Choices[0].Message.ToolCalls {
		calls = append(calls, ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return calls, nil
}

var _ Backend = (*OpenAIBackend)(nil)
