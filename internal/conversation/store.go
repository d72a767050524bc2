// Package conversation owns the active transcript and the host-maintained
// conversation list, and routes inbound host events into them.
package conversation

import (
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/sunsunmonkey/code-sidercar-sub001/internal/host"
	"github.com/sunsunmonkey/code-sidercar-sub001/internal/transcript"
)

// Summary mirrors one conversation_list item. The host is authoritative.
type Summary struct {
	ID           string
	UpdatedAt    time.Time
	MessageCount int
	Preview      string
}

// Store holds the writable conversation state. Operations return the actions
// the caller must send to the host; the store never performs I/O.
type Store struct {
	active    *transcript.Transcript
	summaries []Summary
	currentID string

	processing    bool
	pendingSwitch string

	completion transcript.Completion
	trOpts     []transcript.Option
	log        *slog.Logger
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger sets the store logger.
func WithLogger(l *slog.Logger) StoreOption {
	return func(s *Store) { s.log = l }
}

// WithCompletion sets which tool call carries the final answer of a turn.
func WithCompletion(c transcript.Completion) StoreOption {
	return func(s *Store) { s.completion = c }
}

// WithTranscriptOptions is applied to every transcript the store creates.
func WithTranscriptOptions(opts ...transcript.Option) StoreOption {
	return func(s *Store) { s.trOpts = append(s.trOpts, opts...) }
}

// NewStore returns a store holding an empty conversation.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		completion: transcript.DefaultCompletion,
		log:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.active = transcript.New(s.trOpts...)
	return s
}

// Snapshot returns copies of the active transcript's entries.
func (s *Store) Snapshot() []transcript.Entry { return s.active.Entries() }

// Len returns the number of entries in the active transcript.
func (s *Store) Len() int { return s.active.Len() }

// Pending returns the unanswered permission prompts, oldest first.
func (s *Store) Pending() []transcript.PermissionEntry {
	return s.active.Permissions().Pending()
}

// Summaries returns a copy of the conversation list.
func (s *Store) Summaries() []Summary { return slices.Clone(s.summaries) }

// CurrentID returns the host id of the active conversation, empty when the
// conversation has not been persisted or reported yet.
func (s *Store) CurrentID() string { return s.currentID }

// Processing reports whether a turn is in flight.
func (s *Store) Processing() bool { return s.processing }

// Switching returns the conversation id whose history is still awaited.
func (s *Store) Switching() (string, bool) {
	return s.pendingSwitch, s.pendingSwitch != ""
}

// Completion returns the completion tool configuration.
func (s *Store) Completion() transcript.Completion { return s.completion }

// LastAnswer returns the final answer of the most recent turn: the output of
// the newest completion call, or else the newest assistant text.
func (s *Store) LastAnswer() (string, bool) {
	entries := s.active.Entries()
	for i := len(entries) - 1; i >= 0; i-- {
		switch e := entries[i].(type) {
		case *transcript.ToolActivity:
			if text, ok := s.completion.Answer(e); ok && text != "" {
				return text, true
			}
		case *transcript.AssistantMessage:
			if e.Text != "" {
				return e.Text, true
			}
		case *transcript.UserMessage:
			return "", false
		}
	}
	return "", false
}

// Load replaces the active transcript with one built from history. History
// is never merged into the existing transcript.
func (s *Store) Load(messages []host.HistoryMessage) {
	t := transcript.New(s.trOpts...)
	for _, m := range messages {
		s.fold(t, m)
	}
	s.active = t
	s.processing = false
	if s.pendingSwitch != "" {
		s.currentID = s.pendingSwitch
		s.pendingSwitch = ""
	}
}

func (s *Store) fold(t *transcript.Transcript, m host.HistoryMessage) {
	at := m.Time()
	switch m.Role {
	case "user":
		t.AppendUser(string(m.Content), at)
	case "assistant":
		if m.Content != "" {
			if m.IsError {
				t.AppendNotice(string(m.Content), true, at)
			} else {
				t.AppendAssistant(string(m.Content), at)
			}
		}
		for _, c := range m.ToolCalls {
			t.Tools().Call(transcript.ToolCall{ID: c.ID, Name: c.Name, Params: c.Params})
		}
	case "system":
		t.AppendNotice(string(m.Content), m.IsError, at)
	case "tool":
		for _, r := range m.ToolResults {
			t.Tools().Result(transcript.ToolResult{
				ToolCallID: r.ToolCallID,
				ToolName:   r.ToolName,
				Content:    string(r.Content),
				IsError:    r.IsError,
			})
		}
	default:
		s.log.Debug("skipping history message", "role", m.Role)
	}
}

// NewConversation starts an empty conversation.
func (s *Store) NewConversation() []host.Action {
	s.reset()
	return []host.Action{host.NewConversation()}
}

// SwitchTo discards the active transcript, including anything still
// streaming or pending, and asks the host for the history of id.
func (s *Store) SwitchTo(id string) []host.Action {
	s.reset()
	s.pendingSwitch = id
	return []host.Action{host.SwitchConversation(id)}
}

// Delete removes a conversation. Deleting the active one falls back to a new
// empty conversation.
func (s *Store) Delete(id string) []host.Action {
	s.dropSummary(id)
	actions := []host.Action{host.DeleteConversation(id)}
	if id != "" && (id == s.currentID || id == s.pendingSwitch) {
		actions = append(actions, s.NewConversation()...)
	}
	return actions
}

// SendUserMessage appends the user's text optimistically and marks the turn
// as processing. Blank text is not sent.
func (s *Store) SendUserMessage(text string) []host.Action {
	if text == "" {
		return nil
	}
	s.active.Stream().Finalize()
	s.active.AppendUser(text, time.Time{})
	s.processing = true
	return []host.Action{host.UserMessage(text)}
}

// RespondPermission answers a pending prompt. Nothing is sent when the
// request is unknown or already answered.
func (s *Store) RespondPermission(requestID string, approved bool) []host.Action {
	if !s.active.Permissions().Respond(requestID, approved) {
		s.log.Debug("ignoring stale permission response", "request", requestID)
		return nil
	}
	return []host.Action{host.PermissionResponse(requestID, approved)}
}

// CancelTask stops the turn in flight.
func (s *Store) CancelTask() []host.Action {
	if !s.processing && !s.active.HasTransient() {
		return nil
	}
	s.active.Stream().Finalize()
	s.processing = false
	s.active.AppendNotice("Task cancelled", false, time.Time{})
	return []host.Action{host.CancelTask()}
}

// Fail records a host error and ends the turn.
func (s *Store) Fail(message string) {
	if message == "" {
		message = "unknown host error"
	}
	s.active.Stream().Finalize()
	s.active.AppendNotice(message, true, time.Time{})
	s.processing = false
}

// Complete ends the turn.
func (s *Store) Complete() {
	s.active.Stream().Finalize()
	s.processing = false
}

// Clear empties the active transcript without changing which conversation
// is current.
func (s *Store) Clear() {
	s.active = transcript.New(s.trOpts...)
	s.processing = false
}

// SetSummaries replaces the conversation list and adopts the entry the host
// marks as current.
func (s *Store) SetSummaries(list []host.Conversation) {
	s.summaries = s.summaries[:0]
	for _, c := range list {
		s.summaries = append(s.summaries, Summary{
			ID:           c.ID,
			UpdatedAt:    time.UnixMilli(c.Timestamp),
			MessageCount: c.MessageCount,
			Preview:      c.Preview,
		})
		if c.IsCurrent && s.pendingSwitch == "" {
			s.currentID = c.ID
		}
	}
}

// Deleted applies a host-side deletion. If the active conversation, or the
// one a pending switch targets, was deleted the transcript is reset; no
// action is sent since the host already knows.
func (s *Store) Deleted(id string) {
	s.dropSummary(id)
	if id != "" && (id == s.currentID || id == s.pendingSwitch) {
		s.reset()
	}
}

func (s *Store) reset() {
	s.active = transcript.New(s.trOpts...)
	s.currentID = ""
	s.pendingSwitch = ""
	s.processing = false
}

func (s *Store) dropSummary(id string) {
	s.summaries = slices.DeleteFunc(s.summaries, func(c Summary) bool { return c.ID == id })
}
