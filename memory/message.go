package memory

import (
	"encoding/json"
	"strings"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ContentBlock is one of TextBlock, ToolCallBlock or ToolResultBlock.
type ContentBlock interface {
	isContentBlock()
}

// TextBlock is narration to surface to the user.
type TextBlock struct {
	Text string
}

// ToolCallBlock is a model request to invoke a tool. ID is unique within one response.
type ToolCallBlock struct {
	ID        string
	Name      string
	Arguments json.RawMessage
}

// ToolResultBlock carries the outcome of a ToolCallBlock, matched by ToolCallID.
type ToolResultBlock struct {
	ToolCallID string
	Content    string
	IsError    bool
}

func (TextBlock) isContentBlock()       {}
func (ToolCallBlock) isContentBlock()   {}
func (ToolResultBlock) isContentBlock() {}

// Message is a single turn in the conversation.
type Message struct {
	Role    Role
	Content []ContentBlock
}

// UserText returns a user message holding a single text block.
func UserText(text string) Message {
	return Message{Role: RoleUser, Content: []ContentBlock{TextBlock{Text: text}}}
}

// NewAssistantMessage returns an assistant message with the given blocks.
func NewAssistantMessage(blocks ...ContentBlock) Message {
	return Message{Role: RoleAssistant, Content: blocks}
}

// NewToolResultMessage wraps results in one user message.
func NewToolResultMessage(results ...ToolResultBlock) Message {
	blocks := make([]ContentBlock, 0, len(results))
	for _, r := range results {
		blocks = append(blocks, r)
	}
	return Message{Role: RoleUser, Content: blocks}
}

// ToolCalls returns the tool call blocks in the order they appear.
func (m Message) ToolCalls() []ToolCallBlock {
	var out []ToolCallBlock
	for _, b := range m.Content {
		if tc, ok := b.(ToolCallBlock); ok {
			out = append(out, tc)
		}
	}
	return out
}

// ToolResults returns the tool result blocks in the order they appear.
func (m Message) ToolResults() []ToolResultBlock {
	var out []ToolResultBlock
	for _, b := range m.Content {
		if tr, ok := b.(ToolResultBlock); ok {
			out = append(out, tr)
		}
	}
	return out
}

// Text joins all text blocks with newlines.
func (m Message) Text() string {
	var parts []string
	for _, b := range m.Content {
		if tb, ok := b.(TextBlock); ok {
			parts = append(parts, tb.Text)
		}
	}
	return strings.Join(parts, "\n")
}

func (m Message) clone() Message {
	c := make([]ContentBlock, len(m.Content))
	copy(c, m.Content)
	return Message{Role: m.Role, Content: c}
}

// StopReason is the normalised reason the model stopped generating.
type StopReason string

const (
	StopCompleted        StopReason = "completed"
	StopToolUseRequested StopReason = "toolUseRequested"
	StopOther            StopReason = "other"
)

// Response is one decoded model reply. It is consumed within a single turn.
type Response struct {
	Blocks     []ContentBlock
	StopReason StopReason
}

// ToolCalls returns the tool calls requested by the response, in order.
func (r *Response) ToolCalls() []ToolCallBlock {
	return r.AssistantMessage().ToolCalls()
}

// Texts returns the non-empty text segments of the response, in order.
func (r *Response) Texts() []string {
	var out []string
	for _, b := range r.Blocks {
		if tb, ok := b.(TextBlock); ok && tb.Text != "" {
			out = append(out, tb.Text)
		}
	}
	return out
}

// AssistantMessage converts the response into the message appended to the history.
func (r *Response) AssistantMessage() Message {
	return Message{Role: RoleAssistant, Content: r.Blocks}.clone()
}
