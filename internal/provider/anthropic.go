// Package provider sends conversations to an Anthropic-compatible Messages
// endpoint (OpenRouter by default) and decodes the reply.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"

	"github.com/petasbytes/aurora-agent/memory"
	"github.com/petasbytes/aurora-agent/tools"
)

const (
	DefaultModel     = "openrouter/aurora-alpha"
	DefaultBaseURL   = "https://openrouter.ai/api/"
	DefaultMaxTokens = 4096
	DefaultReferer   = "https://github.com/aleezanooor/claude-openrouter"
	DefaultTitle     = "Aurora Agent"
	APIVersion       = "2023-06-01"
)

// Config describes how to reach the endpoint.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	MaxTokens  int64
	Referer    string
	Title      string
	HTTPClient *http.Client // optional; tests inject a fake transport here
	Logger     *zap.Logger
}

// Client is the transport used by the runner.
type Client struct {
	client    *anthropic.Client
	model     anthropic.Model
	maxTokens int64
	logger    *zap.Logger
}

// NewAnthropicClient builds a client from cfg. The SDK's own retries are
// disabled: a failed call aborts the run.
func NewAnthropicClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	opts := []option.RequestOption{
		option.WithBaseURL(cfg.BaseURL),
		option.WithAPIKey(cfg.APIKey),
		option.WithHeader("Authorization", "Bearer "+cfg.APIKey),
		option.WithHeader("anthropic-version", APIVersion),
		option.WithMaxRetries(0),
	}
	if cfg.Referer != "" {
		opts = append(opts, option.WithHeader("HTTP-Referer", cfg.Referer))
	}
	if cfg.Title != "" {
		opts = append(opts, option.WithHeader("X-Title", cfg.Title))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	c := anthropic.NewClient(opts...)
	return &Client{
		client:    &c,
		model:     anthropic.Model(cfg.Model),
		maxTokens: cfg.MaxTokens,
		logger:    cfg.Logger,
	}
}

// Model returns the model identifier sent with each request.
func (c *Client) Model() string { return string(c.model) }

// Send performs one transport call. Any failure is a *TransportError.
func (c *Client) Send(ctx context.Context, msgs []memory.Message, specs []tools.Spec) (*memory.Response, error) {
	params := anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages:  toMessageParams(msgs),
		Tools:     toToolParams(specs),
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		terr := newTransportError(err)
		c.logger.Debug("transport call failed", zap.Int("status", terr.Status), zap.Error(err))
		return nil, terr
	}
	c.logger.Debug("transport call ok",
		zap.String("stop_reason", string(msg.StopReason)),
		zap.Int64("input_tokens", msg.Usage.InputTokens),
		zap.Int64("output_tokens", msg.Usage.OutputTokens),
	)
	return fromMessage(msg), nil
}

func toToolParams(specs []tools.Spec) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(specs))
	for _, s := range specs {
		t := anthropic.ToolUnionParamOfTool(anthropic.ToolInputSchemaParam{
			Properties: s.InputSchema.Properties,
			Required:   s.InputSchema.Required,
		}, string(s.Name))
		if s.Description != "" {
			t.OfTool.Description = anthropic.String(s.Description)
		}
		out = append(out, t)
	}
	return out
}

func toMessageParams(msgs []memory.Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(msgs))
	for _, m := range msgs {
		blocks := make([]anthropic.ContentBlockParamUnion, 0, len(m.Content))
		for _, b := range m.Content {
			switch v := b.(type) {
			case memory.TextBlock:
				blocks = append(blocks, anthropic.NewTextBlock(v.Text))
			case memory.ToolCallBlock:
				input := v.Arguments
				if len(input) == 0 {
					input = json.RawMessage(`{}`)
				}
				blocks = append(blocks, anthropic.NewToolUseBlock(v.ID, input, v.Name))
			case memory.ToolResultBlock:
				blocks = append(blocks, anthropic.NewToolResultBlock(v.ToolCallID, v.Content, v.IsError))
			}
		}
		if m.Role == memory.RoleAssistant {
			out = append(out, anthropic.NewAssistantMessage(blocks...))
		} else {
			out = append(out, anthropic.NewUserMessage(blocks...))
		}
	}
	return out
}

func fromMessage(msg *anthropic.Message) *memory.Response {
	resp := &memory.Response{StopReason: stopReason(msg.StopReason)}
	for _, block := range msg.Content {
		switch block.Type {
		case "text":
			resp.Blocks = append(resp.Blocks, memory.TextBlock{Text: block.Text})
		case "tool_use":
			tu := block.AsToolUse()
			resp.Blocks = append(resp.Blocks, memory.ToolCallBlock{
				ID:        tu.ID,
				Name:      tu.Name,
				Arguments: json.RawMessage(tu.Input),
			})
		}
	}
	return resp
}

func stopReason(r anthropic.StopReason) memory.StopReason {
	switch r {
	case anthropic.StopReasonEndTurn:
		return memory.StopCompleted
	case anthropic.StopReasonToolUse:
		return memory.StopToolUseRequested
	default:
		return memory.StopOther
	}
}

// TransportError is a failed transport call: a network failure, a
// non-success status, or an undecodable body.
type TransportError struct {
	Status int    // HTTP status; 0 when no response was received
	Body   string // raw response body when available
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("API %d: %s", e.Status, e.Body)
	}
	return fmt.Sprintf("transport: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func newTransportError(err error) *TransportError {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		body := apiErr.RawJSON()
		if body == "" {
			body = responseBody(apiErr.Response)
		}
		if body == "" {
			body = http.StatusText(apiErr.StatusCode)
		}
		return &TransportError{Status: apiErr.StatusCode, Body: body, Err: err}
	}
	return &TransportError{Err: err}
}

// responseBody reads a non-JSON error body that the SDK left on the response.
func responseBody(resp *http.Response) string {
	if resp == nil || resp.Body == nil {
		return ""
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return ""
	}
	return string(b)
}
