package transcript

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func toolActivity(t *testing.T, tr *Transcript, id string) *ToolActivity {
	t.Helper()
	e, ok := tr.Get(id)
	require.True(t, ok, "entry %s not found", id)
	act, ok := e.(*ToolActivity)
	require.True(t, ok, "entry %s is %s, not tool", id, e.Kind())
	return act
}

func TestToolResultMatchesByIDAcrossUnrelatedEvents(t *testing.T) {
	tr := New()
	tools := tr.Tools()

	callEntry, outcome := tools.Call(ToolCall{ID: "t1", Name: "read_file", Params: map[string]any{"path": "main.go"}})
	require.Equal(t, CallAppended, outcome)

	tr.Stream().Append("reading", true)
	tools.Call(ToolCall{ID: "t2", Name: "list_files"})
	tr.AppendNotice("heads up", false, tr.now())

	got, res := tools.Result(ToolResult{ToolCallID: "t1", ToolName: "read_file", Content: "package main"})
	assert.Equal(t, ResultByID, res)
	assert.Equal(t, callEntry, got)

	act := toolActivity(t, tr, callEntry)
	require.NotNil(t, act.Result)
	assert.Equal(t, "package main", act.Result.Content)
	assert.Equal(t, "main.go", act.Call.Params["path"])
	assert.Equal(t, 1, tools.Unresolved(), "t2 still waits")
}

func TestToolResultFallbackPicksMostRecentUnresolved(t *testing.T) {
	tr := New()
	tools := tr.Tools()

	older, _ := tools.Call(ToolCall{Name: "search_files", Params: map[string]any{"q": "foo"}})
	newer, _ := tools.Call(ToolCall{Name: "search_files", Params: map[string]any{"q": "bar"}})

	got, outcome := tools.Result(ToolResult{ToolName: "search_files", Content: "3 matches"})
	assert.Equal(t, ResultByName, outcome)
	assert.Equal(t, newer, got)
	assert.Nil(t, toolActivity(t, tr, older).Result)

	// The fallback only knows recency: the next result goes to the older call
	// even if the host meant otherwise.
	got, outcome = tools.Result(ToolResult{ToolName: "search_files", Content: "0 matches"})
	assert.Equal(t, ResultByName, outcome)
	assert.Equal(t, older, got)
	assert.Equal(t, 0, tools.Unresolved())
}

func TestToolResultFallbackSkipsCallsWithOtherIDs(t *testing.T) {
	tr := New()
	tools := tr.Tools()

	anonymous, _ := tools.Call(ToolCall{Name: "run_command"})
	tools.Call(ToolCall{ID: "c2", Name: "run_command"})

	got, outcome := tools.Result(ToolResult{ToolCallID: "c9", ToolName: "run_command", Content: "ok"})
	assert.Equal(t, ResultByName, outcome)
	assert.Equal(t, anonymous, got)
}

func TestToolResultWithoutMatchIsOrphaned(t *testing.T) {
	tr := New()
	tools := tr.Tools()
	tools.Call(ToolCall{ID: "a", Name: "read_file"})

	id, outcome := tools.Result(ToolResult{ToolCallID: "zzz", ToolName: "write_file", Content: "wrote 3 bytes"})
	assert.Equal(t, ResultOrphaned, outcome)

	act := toolActivity(t, tr, id)
	assert.True(t, act.Orphan())
	assert.Equal(t, "write_file", act.Name())
	require.NotNil(t, act.Result)
	assert.Equal(t, "wrote 3 bytes", act.Result.Content)
	assert.Equal(t, 2, tr.Len())
}

func TestOrphanIsNotMatchedRetroactively(t *testing.T) {
	tr := New()
	tools := tr.Tools()

	orphan, _ := tools.Result(ToolResult{ToolCallID: "late", ToolName: "read_file", Content: "x"})
	callEntry, outcome := tools.Call(ToolCall{ID: "late", Name: "read_file"})

	assert.Equal(t, CallAppended, outcome)
	assert.NotEqual(t, orphan, callEntry)
	assert.Nil(t, toolActivity(t, tr, callEntry).Result)
	assert.True(t, tr.HasTransient())
}

func TestDuplicateResultIsNoop(t *testing.T) {
	tr := New()
	tools := tr.Tools()

	id, _ := tools.Call(ToolCall{ID: "t1", Name: "read_file"})
	tools.Result(ToolResult{ToolCallID: "t1", ToolName: "read_file", Content: "first"})
	got, outcome := tools.Result(ToolResult{ToolCallID: "t1", ToolName: "read_file", Content: "second"})

	assert.Equal(t, ResultDuplicate, outcome)
	assert.Equal(t, id, got)
	assert.Equal(t, "first", toolActivity(t, tr, id).Result.Content)
	assert.Equal(t, 1, tr.Len())
}

func TestPartialCallReplacedInPlace(t *testing.T) {
	tr := New()
	tools := tr.Tools()

	id, _ := tools.Call(ToolCall{ID: "w1", Name: "write_file", Params: map[string]any{"path": "a"}, Partial: true})
	got, outcome := tools.Call(ToolCall{ID: "w1", Name: "write_file", Params: map[string]any{"path": "a.go", "content": "pkg"}, Partial: true})
	assert.Equal(t, CallUpdated, outcome)
	assert.Equal(t, id, got)

	_, outcome = tools.Call(ToolCall{ID: "w1", Name: "write_file", Params: map[string]any{"path": "a.go", "content": "package a"}})
	assert.Equal(t, CallUpdated, outcome)

	act := toolActivity(t, tr, id)
	assert.False(t, act.Call.Partial)
	assert.Equal(t, "package a", act.Call.Params["content"])
	assert.Equal(t, 1, tr.Len())

	_, outcome = tools.Call(ToolCall{ID: "w1", Name: "write_file", Params: map[string]any{"path": "b.go"}})
	assert.Equal(t, CallDuplicate, outcome)
	assert.Equal(t, "a.go", toolActivity(t, tr, id).Call.Params["path"])
}

func TestCallReplacementKeepsResult(t *testing.T) {
	tr := New()
	tools := tr.Tools()

	id, _ := tools.Call(ToolCall{ID: "x", Name: "run_command", Partial: true})
	tools.Result(ToolResult{ToolCallID: "x", ToolName: "run_command", Content: "exit 0"})
	tools.Call(ToolCall{ID: "x", Name: "run_command", Params: map[string]any{"cmd": "ls"}})

	act := toolActivity(t, tr, id)
	require.NotNil(t, act.Result)
	assert.Equal(t, "exit 0", act.Result.Content)
	assert.Equal(t, "ls", act.Call.Params["cmd"])
}

func TestCallParamsAreCopied(t *testing.T) {
	tr := New()
	params := map[string]any{"path": "a"}
	id, _ := tr.Tools().Call(ToolCall{Name: "read_file", Params: params})
	params["path"] = "mutated"

	assert.Equal(t, "a", toolActivity(t, tr, id).Call.Params["path"])
}

func TestCompletionAnswer(t *testing.T) {
	tr := New()
	id, _ := tr.Tools().Call(ToolCall{
		ID:      "done",
		Name:    "attempt_completion",
		Params:  map[string]any{"result": "All tests pa"},
		Partial: true,
	})

	text, ok := DefaultCompletion.Answer(toolActivity(t, tr, id))
	assert.True(t, ok, "partial completion output is still valid")
	assert.Equal(t, "All tests pa", text)

	other, _ := tr.Tools().Call(ToolCall{Name: "read_file"})
	_, ok = DefaultCompletion.Answer(toolActivity(t, tr, other))
	assert.False(t, ok)

	custom := Completion{ToolName: "finish", ResultField: "summary"}
	_, ok = custom.Answer(toolActivity(t, tr, id))
	assert.False(t, ok)
}

func TestRedeliveredResultAfterNameMatchIsNoop(t *testing.T) {
	tr := New()
	tools := tr.Tools()

	older, _ := tools.Call(ToolCall{Name: "search_files"})
	newer, _ := tools.Call(ToolCall{Name: "search_files"})

	got, outcome := tools.Result(ToolResult{ToolCallID: "r1", ToolName: "search_files", Content: "3 matches"})
	require.Equal(t, ResultByName, outcome)
	require.Equal(t, newer, got)

	got, outcome = tools.Result(ToolResult{ToolCallID: "r1", ToolName: "search_files", Content: "3 matches"})
	assert.Equal(t, ResultDuplicate, outcome)
	assert.Equal(t, newer, got)
	assert.Nil(t, toolActivity(t, tr, older).Result, "the other call must stay unresolved")
	assert.Equal(t, 1, tools.Unresolved())
}

func TestRedeliveredOrphanIsNoop(t *testing.T) {
	tr := New()
	tools := tr.Tools()

	first, outcome := tools.Result(ToolResult{ToolCallID: "x9", ToolName: "write_file", Content: "ok"})
	require.Equal(t, ResultOrphaned, outcome)

	got, outcome := tools.Result(ToolResult{ToolCallID: "x9", ToolName: "write_file", Content: "ok"})
	assert.Equal(t, ResultDuplicate, outcome)
	assert.Equal(t, first, got)
	assert.Equal(t, 1, tr.Len())
}
