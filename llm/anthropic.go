package llm

import (
	"context"
	"encoding/json"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultAnthropicMaxTokens = 1024

// Anthropic is a Completer backed by the Messages API. A ResponseFormat is
// served by forcing a single tool whose input schema is the requested schema.
type Anthropic struct {
	client      anthropic.Client
	model       string
	maxTokens   int64
	temperature *float64
}

// AnthropicOptions configures NewAnthropic.
type AnthropicOptions struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int64
	Temperature *float64
	Timeout     time.Duration
}

// NewAnthropic builds an Anthropic completer with SDK retries disabled.
func NewAnthropic(o AnthropicOptions) *Anthropic {
	opts := []option.RequestOption{
		option.WithAPIKey(o.APIKey),
		option.WithMaxRetries(0),
	}
	if o.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(o.BaseURL))
	}
	if o.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(o.Timeout))
	}
	return &Anthropic{
		client:      anthropic.NewClient(opts...),
		model:       o.Model,
		maxTokens:   o.MaxTokens,
		temperature: o.Temperature,
	}
}

// Complete implements Completer.
func (c *Anthropic) Complete(ctx context.Context, req Request) (Response, error) {
	model := c.model
	if req.Model != "" {
		model = req.Model
	}
	maxTokens := firstPositive(req.MaxTokens, c.maxTokens, defaultAnthropicMaxTokens)
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: maxTokens,
		Messages:  anthropicMessages(req.Messages),
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	for _, t := range req.Tools {
		params.Tools = append(params.Tools, anthropicTool(t.Name, t.Description, t.Parameters))
	}
	if rf := req.ResponseFormat; rf != nil {
		params.Tools = append(params.Tools, anthropicTool(rf.Name, rf.Description, rf.Schema))
		params.ToolChoice = anthropic.ToolChoiceUnionParam{
			OfTool: &anthropic.ToolChoiceToolParam{Name: rf.Name},
		}
	}
	if temp := firstNonNil(req.Temperature, c.temperature); temp != nil {
		params.Temperature = anthropic.Float(*temp)
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return Response{}, err
	}
	if len(msg.Content) == 0 {
		return Response{}, ErrEmptyResponse
	}
	resp := Response{
		FinishReason: string(msg.StopReason),
		Usage: Usage{
			PromptTokens:     msg.Usage.InputTokens,
			CompletionTokens: msg.Usage.OutputTokens,
		},
	}
	for _, block := range msg.Content {
		switch block.Type {
		case "text":
			resp.Text += block.Text
		case "tool_use":
			if req.ResponseFormat != nil && block.Name == req.ResponseFormat.Name {
				resp.Structured = json.RawMessage(block.Input)
				continue
			}
			resp.ToolCalls = append(resp.ToolCalls, ToolCall{
				ID:        block.ID,
				Name:      block.Name,
				Arguments: json.RawMessage(block.Input),
			})
		}
	}
	return resp, nil
}

func anthropicTool(name, description string, schema map[string]any) anthropic.ToolUnionParam {
	input := anthropic.ToolInputSchemaParam{Properties: schema["properties"]}
	if req, ok := schema["required"].([]any); ok {
		for _, r := range req {
			if s, ok := r.(string); ok {
				input.Required = append(input.Required, s)
			}
		}
	} else if req, ok := schema["required"].([]string); ok {
		input.Required = req
	}
	// additionalProperties, $defs and the like travel as-is so strict contracts hold here too.
	for k, v := range schema {
		switch k {
		case "type", "properties", "required":
		default:
			if input.ExtraFields == nil {
				input.ExtraFields = make(map[string]any)
			}
			input.ExtraFields[k] = v
		}
	}
	tool := &anthropic.ToolParam{Name: name, InputSchema: input}
	if description != "" {
		tool.Description = anthropic.String(description)
	}
	return anthropic.ToolUnionParam{OfTool: tool}
}

// anthropicMessages maps history to Messages API turns. Consecutive tool
// results are grouped into one user turn, as the API requires.
func anthropicMessages(history []Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(history))
	var pending []anthropic.ContentBlockParamUnion
	flush := func() {
		if len(pending) > 0 {
			out = append(out, anthropic.NewUserMessage(pending...))
			pending = nil
		}
	}
	for _, m := range history {
		switch m.Role {
		case RoleTool:
			pending = append(pending, anthropic.NewToolResultBlock(m.ToolCallID, m.Content, m.IsError))
		case RoleUser:
			flush()
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		case RoleAssistant:
			flush()
			var blocks []anthropic.ContentBlockParamUnion
			if m.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(m.Content))
			}
			for _, tc := range m.ToolCalls {
				var input any = map[string]any{}
				if len(tc.Arguments) > 0 {
					input = json.RawMessage(tc.Arguments)
				}
				blocks = append(blocks, anthropic.NewToolUseBlock(tc.ID, input, tc.Name))
			}
			if len(blocks) > 0 {
				out = append(out, anthropic.NewAssistantMessage(blocks...))
			}
		}
	}
	flush()
	return out
}

var _ Completer = (*Anthropic)(nil)
