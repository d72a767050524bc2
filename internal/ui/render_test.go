package ui

import (
	"strings"
	"testing"

	"github.com/sunsunmonkey/code-sidercar-sub001/internal/transcript"
)

func plainRenderer() *Renderer {
	return NewRenderer(Options{Width: 40, CompactApproved: true, Completion: transcript.DefaultCompletion})
}

func TestRenderUserAndAssistant(t *testing.T) {
	r := plainRenderer()
	out := r.Render([]transcript.Entry{
		&transcript.UserMessage{Text: "hello there"},
		&transcript.AssistantMessage{Text: "hi", Streaming: true},
	})

	if !strings.Contains(out, "hello there") {
		t.Errorf("missing user text in %q", out)
	}
	if !strings.Contains(out, "hi▌") {
		t.Errorf("streaming cursor missing in %q", out)
	}
}

func TestRenderNoticeError(t *testing.T) {
	out := plainRenderer().Entry(&transcript.SystemNotice{Text: "rate limited", IsError: true})
	if !strings.Contains(out, "Error:") || !strings.Contains(out, "rate limited") {
		t.Errorf("error notice = %q", out)
	}
}

func TestRenderToolStates(t *testing.T) {
	r := plainRenderer()

	running := r.Entry(&transcript.ToolActivity{Call: &transcript.ToolCall{Name: "read_file", Params: map[string]any{"path": "a.go"}}})
	if !strings.Contains(running, "read_file") || !strings.Contains(running, "path=a.go") || !strings.Contains(running, "running") {
		t.Errorf("running tool = %q", running)
	}

	done := r.Entry(&transcript.ToolActivity{
		Call:   &transcript.ToolCall{Name: "read_file"},
		Result: &transcript.ToolResult{Content: "package main"},
	})
	if strings.Contains(done, "running") || !strings.Contains(done, "package main") {
		t.Errorf("finished tool = %q", done)
	}

	orphan := r.Entry(&transcript.ToolActivity{Result: &transcript.ToolResult{ToolName: "write_file", Content: "ok"}})
	if !strings.Contains(orphan, "write_file") || !strings.Contains(orphan, "without matching call") {
		t.Errorf("orphan tool = %q", orphan)
	}
}

func TestRenderToolOutputClipped(t *testing.T) {
	long := strings.Repeat("line\n", 20)
	out := plainRenderer().Entry(&transcript.ToolActivity{
		Call:   &transcript.ToolCall{Name: "run_command"},
		Result: &transcript.ToolResult{Content: strings.TrimSuffix(long, "\n")},
	})
	if !strings.Contains(out, "12 more lines") {
		t.Errorf("expected clipped output, got %q", out)
	}
}

func TestRenderCompletionAnswer(t *testing.T) {
	out := plainRenderer().Entry(&transcript.ToolActivity{
		Call: &transcript.ToolCall{Name: "attempt_completion", Params: map[string]any{"result": "All done"}, Partial: true},
	})
	if !strings.Contains(out, "Result") || !strings.Contains(out, "All done▌") {
		t.Errorf("completion = %q", out)
	}
}

func TestRenderPermissions(t *testing.T) {
	r := plainRenderer()
	req := transcript.PermissionRequest{ID: "p", ToolName: "write_file", Operation: "write", Target: "a.go"}

	pending := r.Entry(&transcript.PermissionEntry{Request: req})
	if !strings.Contains(pending, "[y/n]") {
		t.Errorf("pending = %q", pending)
	}

	anonymous := r.Entry(&transcript.PermissionEntry{Request: transcript.PermissionRequest{ToolName: "run_command"}})
	if strings.Contains(anonymous, "[y/n]") || !strings.Contains(anonymous, "cannot be answered") {
		t.Errorf("prompt without id should not offer y/n, got %q", anonymous)
	}

	if got := r.Entry(&transcript.PermissionEntry{Request: req, Response: transcript.Approved}); got != "" {
		t.Errorf("approved without details should be hidden, got %q", got)
	}

	req.Details = "+1 -0"
	approved := r.Entry(&transcript.PermissionEntry{Request: req, Response: transcript.Approved})
	if !strings.Contains(approved, "Allowed") || strings.Contains(approved, "+1 -0") {
		t.Errorf("approved with details should be one line, got %q", approved)
	}

	denied := r.Entry(&transcript.PermissionEntry{Request: req, Response: transcript.Denied})
	if !strings.Contains(denied, "Denied") || !strings.Contains(denied, "+1 -0") {
		t.Errorf("denied = %q", denied)
	}
}

func TestRenderMarkdown(t *testing.T) {
	r := NewRenderer(Options{Width: 60, Markdown: true})
	out := r.Entry(&transcript.AssistantMessage{Text: "# Title\n\nSome **bold** text"})
	if !strings.Contains(out, "Title") || !strings.Contains(out, "bold") {
		t.Errorf("markdown = %q", out)
	}
	if strings.Contains(out, "**") {
		t.Errorf("markdown was not rendered: %q", out)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"short", 10, "short"},
		{"exactly", 7, "exactly"},
		{"too long here", 5, "too …"},
		{"x", 0, ""},
		{"ab", 1, "…"},
	}
	for _, tt := range tests {
		if got := Truncate(tt.in, tt.width); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
		}
	}
}
