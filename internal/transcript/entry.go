// Package transcript holds the entry model for a single conversation and the
// folds that reconcile host events into it.
package transcript

import (
	"maps"
	"time"
)

// Kind names the variant of an Entry.
type Kind int

const (
	KindUser Kind = iota
	KindAssistant
	KindNotice
	KindTool
	KindPermission
)

func (k Kind) String() string {
	switch k {
	case KindUser:
		return "user"
	case KindAssistant:
		return "assistant"
	case KindNotice:
		return "notice"
	case KindTool:
		return "tool"
	case KindPermission:
		return "permission"
	}
	return "unknown"
}

// Entry is one unit of transcript content. The set of implementations is
// closed: UserMessage, AssistantMessage, SystemNotice, ToolActivity and
// PermissionEntry.
type Entry interface {
	EntryID() string
	Timestamp() time.Time
	Kind() Kind
	clone() Entry
}

// UserMessage is text the user submitted. Immutable.
type UserMessage struct {
	ID        string
	Text      string
	CreatedAt time.Time
}

// AssistantMessage is assistant text, mutable only while Streaming.
type AssistantMessage struct {
	ID        string
	Text      string
	Streaming bool
	CreatedAt time.Time
}

// SystemNotice is a client- or host-originated notice. Immutable.
type SystemNotice struct {
	ID        string
	Text      string
	IsError   bool
	CreatedAt time.Time
}

// ToolCall is a tool invocation reported by the host.
type ToolCall struct {
	ID      string
	Name    string
	Params  map[string]any
	Partial bool
}

// ToolResult is the outcome of a tool invocation.
type ToolResult struct {
	ToolCallID string
	ToolName   string
	Content    string
	IsError    bool
}

// ToolActivity pairs a call with its eventual result. Call is nil for an
// orphan result that matched no call.
type ToolActivity struct {
	ID        string
	Call      *ToolCall
	Result    *ToolResult
	CreatedAt time.Time
}

// Orphan reports whether the activity carries a result without a call.
func (a *ToolActivity) Orphan() bool { return a.Call == nil }

// Resolved reports whether a result has been attached.
func (a *ToolActivity) Resolved() bool { return a.Result != nil }

// Name returns the call name, or the result's tool name for orphans.
func (a *ToolActivity) Name() string {
	if a.Call != nil {
		return a.Call.Name
	}
	if a.Result != nil {
		return a.Result.ToolName
	}
	return ""
}

// Response is the state of a permission prompt.
type Response int

const (
	Pending Response = iota
	Approved
	Denied
)

func (r Response) String() string {
	switch r {
	case Pending:
		return "pending"
	case Approved:
		return "approved"
	case Denied:
		return "denied"
	}
	return "unknown"
}

// Terminal reports whether the response can no longer change.
func (r Response) Terminal() bool { return r != Pending }

// PermissionRequest describes an operation the host wants approved.
type PermissionRequest struct {
	ID        string
	ToolName  string
	Operation string
	Target    string
	Details   string
}

// PermissionEntry is a permission prompt and its outcome.
type PermissionEntry struct {
	ID        string
	Request   PermissionRequest
	Response  Response
	CreatedAt time.Time
}

// Hidden reports whether the entry is left out of the rendered transcript.
// Only approved prompts without details are compacted away.
func (p *PermissionEntry) Hidden(compactApproved bool) bool {
	return compactApproved && p.Response == Approved && p.Request.Details == ""
}

// Answerable reports whether a response can be sent for the prompt. A
// request without an id cannot be named in a permission_response, so it is
// shown but never offered for approval.
func (p *PermissionEntry) Answerable() bool { return p.Request.ID != "" }

func (m *UserMessage) EntryID() string { return m.ID }
func (m *UserMessage) Timestamp() time.Time { return m.CreatedAt }
func (m *UserMessage) Kind() Kind { return KindUser }
func (m *AssistantMessage) EntryID() string { return m.ID }
func (m *AssistantMessage) Timestamp() time.Time { return m.CreatedAt }
func (m *AssistantMessage) Kind() Kind { return KindAssistant }
func (n *SystemNotice) EntryID() string { return n.ID }
func (n *SystemNotice) Timestamp() time.Time { return n.CreatedAt }
func (n *SystemNotice) Kind() Kind { return KindNotice }
func (a *ToolActivity) EntryID() string { return a.ID }
func (a *ToolActivity) Timestamp() time.Time { return a.CreatedAt }
func (a *ToolActivity) Kind() Kind { return KindTool }
func (p *PermissionEntry) EntryID() string { return p.ID }
func (p *PermissionEntry) Timestamp() time.Time { return p.CreatedAt }
func (p *PermissionEntry) Kind() Kind { return KindPermission }

func (m *UserMessage) clone() Entry {
	c := *m
	return &c
}

func (m *AssistantMessage) clone() Entry {
	c := *m
	return &c
}

func (n *SystemNotice) clone() Entry {
	c := *n
	return &c
}

func (a *ToolActivity) clone() Entry {
	c := *a
	if a.Call != nil {
		call := *a.Call
		call.Params = maps.Clone(a.Call.Params)
		c.Call = &call
	}
	if a.Result != nil {
		res := *a.Result
		c.Result = &res
	}
	return &c
}

func (p *PermissionEntry) clone() Entry {
	c := *p
	return &c
}
