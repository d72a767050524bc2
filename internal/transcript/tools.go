package transcript

import (
	"fmt"
	"maps"
)

// ToolCallCorrelator pairs tool invocations with results that arrive later,
// possibly after unrelated events.
type ToolCallCorrelator struct {
	t *Transcript
}

// Tools returns the correlator bound to t.
func (t *Transcript) Tools() ToolCallCorrelator { return ToolCallCorrelator{t: t} }

// CallOutcome describes how a tool-call event was folded.
type CallOutcome int

const (
	// CallAppended means a new ToolActivity was appended.
	CallAppended CallOutcome = iota
	// CallUpdated means a partial call was replaced in place.
	CallUpdated
	// CallDuplicate means the id already names a final call; nothing changed.
	CallDuplicate
)

// ResultOutcome describes how a tool-result event was folded.
type ResultOutcome int

const (
	// ResultByID means the result matched a call by id.
	ResultByID ResultOutcome = iota
	// ResultByName means the result matched the most recent unresolved call
	// with the same tool name.
	ResultByName
	// ResultDuplicate means the call it names already has a result.
	ResultDuplicate
	// ResultOrphaned means nothing matched and an orphan entry was appended.
	ResultOrphaned
)

func (o ResultOutcome) String() string {
	switch o {
	case ResultByID:
		return "by-id"
	case ResultByName:
		return "by-name"
	case ResultDuplicate:
		return "duplicate"
	case ResultOrphaned:
		return "orphaned"
	}
	return fmt.Sprintf("ResultOutcome(%d)", int(o))
}

// Call folds a tool-call event. A call whose id matches an existing entry
// replaces that entry's call while the stored call is still partial, which
// is how argument streaming is delivered; the result is never touched.
func (c ToolCallCorrelator) Call(call ToolCall) (string, CallOutcome) {
	t := c.t
	call.Params = maps.Clone(call.Params)

	if call.ID != "" {
		if entryID, ok := t.toolByCallID[call.ID]; ok {
			act := t.lookup(entryID).(*ToolActivity)
			if !act.Call.Partial {
				return entryID, CallDuplicate
			}
			if !act.Resolved() && act.Call.Name != call.Name {
				t.clearUnresolved(act.Call.Name, entryID)
				t.markUnresolved(call.Name, entryID)
			}
			act.Call = &call
			return entryID, CallUpdated
		}
	}

	id := t.insert(&ToolActivity{Call: &call, CreatedAt: t.now()})
	if call.ID != "" {
		t.toolByCallID[call.ID] = id
	}
	t.markUnresolved(call.Name, id)
	return id, CallAppended
}

// Result folds a tool-result event. Matching precedence:
//
//  1. exact match of ToolCallID against a call id;
//  2. the most recently appended unresolved call with the same tool name;
//  3. otherwise an orphan entry is appended so the result is never lost.
//
// The name fallback cannot tell apart concurrent unresolved calls that share
// a name and lack ids; it always picks the newest one. A result is attached
// at most once; a second result for a resolved id changes nothing, however
// the first one was matched. Orphans are never re-attached to calls that
// arrive later.
func (c ToolCallCorrelator) Result(res ToolResult) (string, ResultOutcome) {
	t := c.t

	if res.ToolCallID != "" {
		if entryID, ok := t.resultByCallID[res.ToolCallID]; ok {
			return entryID, ResultDuplicate
		}
		if entryID, ok := t.toolByCallID[res.ToolCallID]; ok {
			act := t.lookup(entryID).(*ToolActivity)
			if act.Resolved() {
				return entryID, ResultDuplicate
			}
			c.attach(act, res)
			return entryID, ResultByID
		}
	}

	if act := c.newestUnresolved(res); act != nil {
		c.attach(act, res)
		return act.ID, ResultByName
	}

	id := t.insert(&ToolActivity{Result: &res, CreatedAt: t.now()})
	c.recordResult(res, id)
	return id, ResultOrphaned
}

// Unresolved returns the number of calls still waiting for a result.
func (c ToolCallCorrelator) Unresolved() int {
	n := 0
	for _, ids := range c.t.unresolved {
		n += len(ids)
	}
	return n
}

func (c ToolCallCorrelator) attach(act *ToolActivity, res ToolResult) {
	act.Result = &res
	c.t.clearUnresolved(act.Call.Name, act.ID)
	c.recordResult(res, act.ID)
}

func (c ToolCallCorrelator) recordResult(res ToolResult, entryID string) {
	if res.ToolCallID != "" {
		c.t.resultByCallID[res.ToolCallID] = entryID
	}
}

// newestUnresolved walks the unresolved calls named res.ToolName from newest
// to oldest. When the result carries an id, calls carrying a different id are
// known to be other invocations and are skipped.
func (c ToolCallCorrelator) newestUnresolved(res ToolResult) *ToolActivity {
	ids := c.t.unresolved[res.ToolName]
	for i := len(ids) - 1; i >= 0; i-- {
		act := c.t.lookup(ids[i]).(*ToolActivity)
		if res.ToolCallID != "" && act.Call.ID != "" && act.Call.ID != res.ToolCallID {
			continue
		}
		return act
	}
	return nil
}

// Completion identifies the tool call that carries the turn's final answer.
type Completion struct {
	ToolName    string
	ResultField string
}

// DefaultCompletion is the completion tool the host emits by default.
var DefaultCompletion = Completion{ToolName: "attempt_completion", ResultField: "result"}

// Answer returns the final answer text if act is a completion call. The
// field is read even while the call is partial since the answer itself
// streams.
func (c Completion) Answer(act *ToolActivity) (string, bool) {
	if act == nil || act.Call == nil || c.ToolName == "" || act.Call.Name != c.ToolName {
		return "", false
	}
	switch v := act.Call.Params[c.ResultField].(type) {
	case string:
		return v, true
	case nil:
		return "", true
	default:
		return fmt.Sprint(v), true
	}
}
