// Package llm defines a provider-neutral conversation model for tool-calling
// completions and the Anthropic backend that serves it.
package llm

import (
	"context"
	"encoding/json"
)

// Role is the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// StopReason tells why the model ended its turn.
type StopReason string

const (
	StopEndTurn   StopReason = "end_turn"
	StopToolUse   StopReason = "tool_use"
	StopMaxTokens StopReason = "max_tokens"
)

// ToolCall is a function call requested by the model.
type ToolCall struct {
	ID        string
	Name      string
	Arguments json.RawMessage
}

// ToolResult answers one ToolCall.
type ToolResult struct {
	CallID  string
	Content string
	IsError bool
}

// Message is one turn of a conversation. A user turn carries either text or
// tool results; an assistant turn carries text and any tool calls it made.
type Message struct {
	Role        Role
	Text        string
	ToolCalls   []ToolCall
	ToolResults []ToolResult
}

// UserText builds a plain user turn.
func UserText(text string) Message {
	return Message{Role: RoleUser, Text: text}
}

// AssistantTurn records a model turn, including the tool calls it requested.
func AssistantTurn(text string, calls []ToolCall) Message {
	return Message{Role: RoleAssistant, Text: text, ToolCalls: calls}
}

// ToolResults builds the user turn that answers a set of tool calls.
func ToolResults(results []ToolResult) Message {
	return Message{Role: RoleUser, ToolResults: results}
}

// ToolDefinition describes a callable tool. Parameters holds the JSON schema
// properties of the argument object.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  map[string]any
	Required    []string
}

// Request is one completion request.
type Request struct {
	System    string
	Messages  []Message
	Tools     []ToolDefinition
	MaxTokens int64
}

// Response is the model's turn.
type Response struct {
	Text       string
	ToolCalls  []ToolCall
	StopReason StopReason
}

// WantsTools reports whether the turn ended on a tool request.
func (r Response) WantsTools() bool {
	return r.StopReason == StopToolUse && len(r.ToolCalls) > 0
}

// Backend completes one conversation turn.
type Backend interface {
	Complete(ctx context.Context, req Request) (Response, error)
}

// BackendFunc adapts a function to Backend.
type BackendFunc func(ctx context.Context, req Request) (Response, error)

func (f BackendFunc) Complete(ctx context.Context, req Request) (Response, error) {
	return f(ctx, req)
}
