package transcript

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// Transcript is the ordered entry sequence of one conversation. Entries live
// in an append-only slice; the maps below index it so that every "most recent
// matching entry" lookup is answered without scanning.
//
// A Transcript is not safe for concurrent use. Events are folded one at a
// time by the owner.
type Transcript struct {
	entries []Entry
	byID    map[string]int

	// activeStream is the id of the one assistant entry still streaming.
	activeStream string

	// toolByCallID maps host call ids to entry ids.
	toolByCallID map[string]string

	// resultByCallID maps the call ids carried by folded results to the entry
	// that took the result. It is never consulted when matching calls.
	resultByCallID map[string]string

	// unresolved maps tool names to unresolved entry ids in append order.
	unresolved map[string][]string

	// permByRequest maps permission request ids to entry ids.
	permByRequest map[string]string

	newID func() string
	now   func() time.Time
}

// Option configures a Transcript.
type Option func(*Transcript)

// WithClock overrides the time source used for CreatedAt.
func WithClock(now func() time.Time) Option {
	return func(t *Transcript) { t.now = now }
}

// WithIDGenerator overrides the entry id generator.
func WithIDGenerator(gen func() string) Option {
	return func(t *Transcript) { t.newID = gen }
}

// New returns an empty transcript.
func New(opts ...Option) *Transcript {
	t := &Transcript{
		byID:           make(map[string]int),
		toolByCallID:   make(map[string]string),
		resultByCallID: make(map[string]string),
		unresolved:     make(map[string][]string),
		permByRequest:  make(map[string]string),
		newID:          uuid.NewString,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Len returns the number of entries.
func (t *Transcript) Len() int { return len(t.entries) }

// Entries returns a copy of every entry in insertion order. Mutating the
// returned values does not affect the transcript.
func (t *Transcript) Entries() []Entry {
	out := make([]Entry, len(t.entries))
	for i, e := range t.entries {
		out[i] = e.clone()
	}
	return out
}

// Get returns a copy of the entry with the given id.
func (t *Transcript) Get(id string) (Entry, bool) {
	e := t.lookup(id)
	if e == nil {
		return nil, false
	}
	return e.clone(), true
}

// Last returns a copy of the most recent entry.
func (t *Transcript) Last() (Entry, bool) {
	if len(t.entries) == 0 {
		return nil, false
	}
	return t.entries[len(t.entries)-1].clone(), true
}

// HasTransient reports whether any entry is in a non-terminal state: a
// streaming assistant message, an unresolved tool call or a pending
// permission prompt.
func (t *Transcript) HasTransient() bool {
	if t.activeStream != "" {
		return true
	}
	for _, ids := range t.unresolved {
		if len(ids) > 0 {
			return true
		}
	}
	for _, id := range t.permByRequest {
		if p, ok := t.lookup(id).(*PermissionEntry); ok && p.Response == Pending {
			return true
		}
	}
	return false
}

// AppendUser appends a user message. A zero at uses the transcript clock.
func (t *Transcript) AppendUser(text string, at time.Time) string {
	return t.insert(&UserMessage{Text: text, CreatedAt: t.stamp(at)})
}

// AppendAssistant appends an already finalized assistant message.
func (t *Transcript) AppendAssistant(text string, at time.Time) string {
	return t.insert(&AssistantMessage{Text: text, CreatedAt: t.stamp(at)})
}

// AppendNotice appends a system notice.
func (t *Transcript) AppendNotice(text string, isError bool, at time.Time) string {
	return t.insert(&SystemNotice{Text: text, IsError: isError, CreatedAt: t.stamp(at)})
}

func (t *Transcript) stamp(at time.Time) time.Time {
	if at.IsZero() {
		return t.now()
	}
	return at
}

// insert assigns a fresh unique id and appends e.
func (t *Transcript) insert(e Entry) string {
	id := t.newID()
	for id == "" || t.has(id) {
		id = uuid.NewString()
	}
	switch v := e.(type) {
	case *UserMessage:
		v.ID = id
	case *AssistantMessage:
		v.ID = id
	case *SystemNotice:
		v.ID = id
	case *ToolActivity:
		v.ID = id
	case *PermissionEntry:
		v.ID = id
	}
	t.byID[id] = len(t.entries)
	t.entries = append(t.entries, e)
	return id
}

func (t *Transcript) has(id string) bool {
	_, ok := t.byID[id]
	return ok
}

func (t *Transcript) lookup(id string) Entry {
	i, ok := t.byID[id]
	if !ok {
		return nil
	}
	return t.entries[i]
}

func (t *Transcript) position(id string) int {
	if i, ok := t.byID[id]; ok {
		return i
	}
	return -1
}

func (t *Transcript) markUnresolved(name, id string) {
	t.unresolved[name] = append(t.unresolved[name], id)
}

func (t *Transcript) clearUnresolved(name, id string) {
	ids := t.unresolved[name]
	if i := slices.Index(ids, id); i >= 0 {
		ids = slices.Delete(ids, i, i+1)
	}
	if len(ids) == 0 {
		delete(t.unresolved, name)
		return
	}
	t.unresolved[name] = ids
}
