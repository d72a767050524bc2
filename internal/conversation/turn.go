package conversation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sunsunmonkey/code-sidercar-sub001/internal/host"
)

// ErrTurnFailed is returned by Turn.Run when the host ends the turn with an
// error event.
var ErrTurnFailed = errors.New("turn failed")

// ErrEmptyPrompt is returned by Turn.Run for a blank prompt, which the host
// would never answer.
var ErrEmptyPrompt = errors.New("empty prompt")

// Conn is the part of host.Client a headless turn needs.
type Conn interface {
	Send(host.Action) error
	ReadEvent() (host.Event, error)
}

// PermissionPolicy answers permission prompts when nobody is at the
// keyboard.
type PermissionPolicy func(req host.PermissionRequest) bool

// DenyAll refuses every prompt.
func DenyAll(host.PermissionRequest) bool { return false }

// ApproveAll allows every prompt.
func ApproveAll(host.PermissionRequest) bool { return true }

// Turn drives one prompt to completion without a terminal UI.
type Turn struct {
	Conn   Conn
	Store  *Store
	Router *Router
	Policy PermissionPolicy

	// OnEvent, if set, is called after every folded event.
	OnEvent func(host.Event)
}

// Run sends prompt and folds events until the host completes or fails the
// turn. A lost connection ends the turn with the read error.
func (t *Turn) Run(prompt string) error {
	policy := t.Policy
	if policy == nil {
		policy = DenyAll
	}
	if strings.TrimSpace(prompt) == "" {
		return ErrEmptyPrompt
	}
	if err := t.send(t.Store.SendUserMessage(prompt)); err != nil {
		return err
	}

	for {
		ev, err := t.Conn.ReadEvent()
		if err != nil {
			if t.Store.Processing() {
				t.Store.Fail("Connection to host lost")
			}
			return fmt.Errorf("read event: %w", err)
		}
		t.Router.Dispatch(ev)
		if t.OnEvent != nil {
			t.OnEvent(ev)
		}

		switch ev.Type {
		case host.EventPermissionRequest:
			if ev.Request == nil {
				continue
			}
			approved := policy(*ev.Request)
			if err := t.send(t.Store.RespondPermission(ev.Request.ID, approved)); err != nil {
				return err
			}
		case host.EventTaskComplete:
			return nil
		case host.EventError:
			msg := ev.Message
			if msg == "" {
				msg = "unknown host error"
			}
			return fmt.Errorf("%w: %s", ErrTurnFailed, msg)
		}
	}
}

// ListConversations asks for the conversation list and waits for it,
// folding any other events that arrive first.
func ListConversations(conn Conn, router *Router) ([]Summary, error) {
	if err := conn.Send(host.GetConversationList()); err != nil {
		return nil, err
	}
	for {
		ev, err := conn.ReadEvent()
		if err != nil {
			return nil, fmt.Errorf("read event: %w", err)
		}
		router.Dispatch(ev)
		if ev.Type == host.EventConversationList {
			return router.store.Summaries(), nil
		}
	}
}

func (t *Turn) send(actions []host.Action) error {
	for _, a := range actions {
		if err := t.Conn.Send(a); err != nil {
			return err
		}
	}
	return nil
}
