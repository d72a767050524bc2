// Package host provides the client and protocol types for communicating with
// the agent host process using NDJSON, over a Unix socket or the stdio of a
// spawned process.
package host

import (
	"bytes"
	"encoding/json"
	"time"
)

// Inbound event types, host to client.
const (
	EventStreamChunk         = "stream_chunk"
	EventToolCall            = "tool_call"
	EventToolResult          = "tool_result"
	EventError               = "error"
	EventTaskComplete        = "task_complete"
	EventConversationCleared = "conversation_cleared"
	EventConversationHistory = "conversation_history"
	EventConversationList    = "conversation_list"
	EventConversationDeleted = "conversation_deleted"
	EventPermissionRequest   = "permission_request"
	EventModeChanged         = "mode_changed"
	EventNavigate            = "navigate"
	EventTokenUsage          = "token_usage"
	EventSetInputValue       = "set_input_value"
)

// Outbound action types, client to host.
const (
	ActionUserMessage         = "user_message"
	ActionModeChange          = "mode_change"
	ActionNewConversation     = "new_conversation"
	ActionSwitchConversation  = "switch_conversation"
	ActionDeleteConversation  = "delete_conversation"
	ActionGetConversationList = "get_conversation_list"
	ActionPermissionResponse  = "permission_response"
	ActionCancelTask          = "cancel_task"
)

// Event is streamed from the host. Which fields are set depends on Type.
type Event struct {
	Type           string             `json:"type"`
	Content        Text               `json:"content,omitempty"`
	IsStreaming    *bool              `json:"isStreaming,omitempty"`
	ToolCall       *ToolCall          `json:"toolCall,omitempty"`
	ToolCallID     string             `json:"toolCallId,omitempty"`
	ToolName       string             `json:"toolName,omitempty"`
	IsError        bool               `json:"isError,omitempty"`
	Message        string             `json:"message,omitempty"`
	Messages       []HistoryMessage   `json:"messages,omitempty"`
	Conversations  []Conversation     `json:"conversations,omitempty"`
	ConversationID string             `json:"conversationId,omitempty"`
	Request        *PermissionRequest `json:"request,omitempty"`
	Mode           string             `json:"mode,omitempty"`
	Route          string             `json:"route,omitempty"`
	Usage          *TokenUsage        `json:"usage,omitempty"`
	Value          *string            `json:"value,omitempty"`
}

// ToolCall is the payload of a tool_call event.
type ToolCall struct {
	ID      string         `json:"id,omitempty"`
	Name    string         `json:"name"`
	Params  map[string]any `json:"params,omitempty"`
	Partial bool           `json:"partial,omitempty"`
}

// ToolResult is a tool result as carried inside history messages.
type ToolResult struct {
	ToolCallID string `json:"toolCallId,omitempty"`
	ToolName   string `json:"toolName"`
	Content    Text   `json:"content"`
	IsError    bool   `json:"isError,omitempty"`
}

// PermissionRequest is the payload of a permission_request event.
type PermissionRequest struct {
	ID        string `json:"id"`
	ToolName  string `json:"toolName"`
	Operation string `json:"operation"`
	Target    string `json:"target"`
	Details   string `json:"details,omitempty"`
}

// HistoryMessage is one stored message of a conversation_history event.
type HistoryMessage struct {
	ID          string       `json:"id,omitempty"`
	Role        string       `json:"role"`
	Content     Text         `json:"content"`
	Timestamp   int64        `json:"timestamp,omitempty"`
	ToolCalls   []ToolCall   `json:"toolCalls,omitempty"`
	ToolResults []ToolResult `json:"toolResults,omitempty"`
	IsError     bool         `json:"isError,omitempty"`
}

// Time converts the millisecond timestamp. Zero stays zero.
func (m HistoryMessage) Time() time.Time {
	if m.Timestamp == 0 {
		return time.Time{}
	}
	return time.UnixMilli(m.Timestamp)
}

// Conversation is one entry of a conversation_list event.
type Conversation struct {
	ID           string `json:"id"`
	Timestamp    int64  `json:"timestamp"`
	MessageCount int    `json:"messageCount"`
	Preview      string `json:"preview"`
	IsCurrent    bool   `json:"isCurrent"`
}

// TokenUsage is the payload of a token_usage event.
type TokenUsage struct {
	InputTokens  int     `json:"inputTokens"`
	OutputTokens int     `json:"outputTokens"`
	TotalTokens  int     `json:"totalTokens,omitempty"`
	Cost         float64 `json:"cost,omitempty"`
}

// Total returns TotalTokens, or input plus output when the host omits it.
func (u TokenUsage) Total() int {
	if u.TotalTokens > 0 {
		return u.TotalTokens
	}
	return u.InputTokens + u.OutputTokens
}

// Text is a string field that also accepts non-string JSON values, which are
// kept in their compact JSON form. Tool output is not always a string.
type Text string

// UnmarshalJSON implements json.Unmarshaler.
func (t *Text) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*t = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(s)
		return nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, data); err != nil {
		return err
	}
	*t = Text(buf.String())
	return nil
}

// Action is sent from the client to the host. Actions are fire-and-forget;
// the host answers, if at all, with later events.
type Action struct {
	Type           string `json:"type"`
	Content        string `json:"content,omitempty"`
	Mode           string `json:"mode,omitempty"`
	ConversationID string `json:"conversationId,omitempty"`
	RequestID      string `json:"requestId,omitempty"`
	Approved       *bool  `json:"approved,omitempty"`
}

// UserMessage builds a user_message action.
func UserMessage(content string) Action {
	return Action{Type: ActionUserMessage, Content: content}
}

// ModeChange builds a mode_change action.
func ModeChange(mode string) Action {
	return Action{Type: ActionModeChange, Mode: mode}
}

// NewConversation builds a new_conversation action.
func NewConversation() Action { return Action{Type: ActionNewConversation} }

// SwitchConversation builds a switch_conversation action.
func SwitchConversation(id string) Action {
	return Action{Type: ActionSwitchConversation, ConversationID: id}
}

// DeleteConversation builds a delete_conversation action.
func DeleteConversation(id string) Action {
	return Action{Type: ActionDeleteConversation, ConversationID: id}
}

// GetConversationList builds a get_conversation_list action.
func GetConversationList() Action { return Action{Type: ActionGetConversationList} }

// PermissionResponse builds a permission_response action.
func PermissionResponse(requestID string, approved bool) Action {
	return Action{Type: ActionPermissionResponse, RequestID: requestID, Approved: BoolPtr(approved)}
}

// CancelTask builds a cancel_task action.
func CancelTask() Action { return Action{Type: ActionCancelTask} }

// BoolPtr returns a pointer to a bool value. Convenience for building actions.
func BoolPtr(b bool) *bool { return &b }
