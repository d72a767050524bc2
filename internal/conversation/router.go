package conversation

import (
	"io"
	"log/slog"

	"github.com/sunsunmonkey/code-sidercar-sub001/internal/host"
	"github.com/sunsunmonkey/code-sidercar-sub001/internal/transcript"
)

// Router hands each inbound event to the one component that owns its type.
// It keeps no state of its own.
type Router struct {
	store  *Store
	status *SessionStatus
	log    *slog.Logger
}

// NewRouter returns a router feeding store and status. A nil logger
// discards.
func NewRouter(store *Store, status *SessionStatus, log *slog.Logger) *Router {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Router{store: store, status: status, log: log}
}

// Dispatch folds ev. It reports false for event types it does not know,
// which are otherwise ignored.
func (r *Router) Dispatch(ev host.Event) bool {
	t := r.store.active

	switch ev.Type {
	case host.EventStreamChunk:
		streaming := ev.IsStreaming == nil || *ev.IsStreaming
		t.Stream().Append(string(ev.Content), streaming)

	case host.EventToolCall:
		if ev.ToolCall == nil {
			r.log.Debug("tool_call without payload")
			return true
		}
		c := ev.ToolCall
		id, outcome := t.Tools().Call(transcript.ToolCall{ID: c.ID, Name: c.Name, Params: c.Params, Partial: c.Partial})
		if outcome == transcript.CallDuplicate {
			r.log.Debug("duplicate tool call", "call", c.ID, "entry", id)
		}

	case host.EventToolResult:
		id, outcome := t.Tools().Result(transcript.ToolResult{
			ToolCallID: ev.ToolCallID,
			ToolName:   ev.ToolName,
			Content:    string(ev.Content),
			IsError:    ev.IsError,
		})
		if outcome != transcript.ResultByID {
			r.log.Debug("tool result matched", "outcome", outcome, "call", ev.ToolCallID, "tool", ev.ToolName, "entry", id)
		}

	case host.EventPermissionRequest:
		if ev.Request == nil {
			r.log.Debug("permission_request without payload")
			return true
		}
		q := ev.Request
		if _, added := t.Permissions().Request(transcript.PermissionRequest{
			ID:        q.ID,
			ToolName:  q.ToolName,
			Operation: q.Operation,
			Target:    q.Target,
			Details:   q.Details,
		}); !added {
			r.log.Debug("duplicate permission request", "request", q.ID)
		}

	case host.EventError:
		r.store.Fail(ev.Message)
	case host.EventTaskComplete:
		r.store.Complete()
	case host.EventConversationCleared:
		r.store.Clear()
	case host.EventConversationHistory:
		r.store.Load(ev.Messages)
	case host.EventConversationList:
		r.store.SetSummaries(ev.Conversations)
	case host.EventConversationDeleted:
		r.store.Deleted(ev.ConversationID)

	case host.EventModeChanged:
		r.status.Mode = ev.Mode
	case host.EventNavigate:
		r.status.Route = ev.Route
	case host.EventTokenUsage:
		if ev.Usage != nil {
			r.status.SetUsage(*ev.Usage)
		}
	case host.EventSetInputValue:
		if ev.Value != nil {
			r.status.OfferInputValue(*ev.Value)
		}

	default:
		r.log.Debug("ignoring unknown event", "type", ev.Type)
		return false
	}
	return true
}
