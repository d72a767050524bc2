package transcript

import "sort"

// PermissionTracker folds permission prompts and the user's answers. Each
// entry moves once from Pending to Approved or Denied and never back.
type PermissionTracker struct {
	t *Transcript
}

// Permissions returns the tracker bound to t.
func (t *Transcript) Permissions() PermissionTracker { return PermissionTracker{t: t} }

// Request appends a pending prompt. A request id that is already tracked is a
// redelivery and is ignored.
func (p PermissionTracker) Request(req PermissionRequest) (string, bool) {
	t := p.t
	if req.ID != "" {
		if id, ok := t.permByRequest[req.ID]; ok {
			return id, false
		}
	}
	id := t.insert(&PermissionEntry{Request: req, Response: Pending, CreatedAt: t.now()})
	if req.ID != "" {
		t.permByRequest[req.ID] = id
	}
	return id, true
}

// Respond records the user's answer. It reports whether the entry changed;
// answers to unknown or already resolved requests are no-ops.
func (p PermissionTracker) Respond(requestID string, approved bool) bool {
	entry := p.entry(requestID)
	if entry == nil || entry.Response.Terminal() {
		return false
	}
	if approved {
		entry.Response = Approved
	} else {
		entry.Response = Denied
	}
	return true
}

// State returns the current response for a request id.
func (p PermissionTracker) State(requestID string) (Response, bool) {
	entry := p.entry(requestID)
	if entry == nil {
		return Pending, false
	}
	return entry.Response, true
}

// Pending returns copies of unanswered prompts, oldest first.
func (p PermissionTracker) Pending() []PermissionEntry {
	var out []PermissionEntry
	for _, id := range p.t.permByRequest {
		if e, ok := p.t.lookup(id).(*PermissionEntry); ok && e.Response == Pending {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return p.t.position(out[i].ID) < p.t.position(out[j].ID)
	})
	return out
}

func (p PermissionTracker) entry(requestID string) *PermissionEntry {
	id, ok := p.t.permByRequest[requestID]
	if !ok {
		return nil
	}
	e, _ := p.t.lookup(id).(*PermissionEntry)
	return e
}
