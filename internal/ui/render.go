// Package ui holds the lipgloss styles and renders transcript entries as
// terminal text.
package ui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/reflow/wordwrap"

	"github.com/sunsunmonkey/code-sidercar-sub001/internal/transcript"
)

// maxToolOutputLines caps how much of a tool result is shown inline.
const maxToolOutputLines = 8

// Options control how entries are rendered.
type Options struct {
	Width           int
	Markdown        bool
	CompactApproved bool
	Completion      transcript.Completion
}

// Renderer turns transcript entries into styled text.
type Renderer struct {
	opts Options
	md   *glamour.TermRenderer
}

// NewRenderer returns a renderer for opts. Markdown falls back to plain
// wrapped text if glamour cannot be set up.
func NewRenderer(opts Options) *Renderer {
	if opts.Width <= 0 {
		opts.Width = 80
	}
	r := &Renderer{opts: opts}
	if opts.Markdown {
		r.md, _ = glamour.NewTermRenderer(
			glamour.WithStandardStyle("dark"),
			glamour.WithWordWrap(opts.Width),
		)
	}
	return r
}

// Options returns the renderer's options.
func (r *Renderer) Options() Options { return r.opts }

// Render renders entries in order, skipping hidden ones.
func (r *Renderer) Render(entries []transcript.Entry) string {
	var blocks []string
	for _, e := range entries {
		if s := r.Entry(e); s != "" {
			blocks = append(blocks, s)
		}
	}
	return strings.Join(blocks, "\n\n")
}

// Entry renders one entry. Hidden entries render as "".
func (r *Renderer) Entry(e transcript.Entry) string {
	switch v := e.(type) {
	case *transcript.UserMessage:
		return UserLabelStyle.Render("You") + "\n" + UserTextStyle.Render(r.wrap(v.Text))
	case *transcript.AssistantMessage:
		return r.assistant(v)
	case *transcript.SystemNotice:
		if v.IsError {
			return ErrorStyle.Render("Error: ") + ErrorTextStyle.Render(r.wrap(v.Text))
		}
		return NoticeStyle.Render(r.wrap(v.Text))
	case *transcript.ToolActivity:
		return r.tool(v)
	case *transcript.PermissionEntry:
		return r.permission(v)
	}
	return ""
}

func (r *Renderer) assistant(m *transcript.AssistantMessage) string {
	label := AssistantLabelStyle.Render("Assistant")
	if m.Streaming {
		return label + "\n" + r.wrap(m.Text) + StreamingStyle.Render("▌")
	}
	return label + "\n" + r.markdown(m.Text)
}

func (r *Renderer) tool(act *transcript.ToolActivity) string {
	if answer, ok := r.opts.Completion.Answer(act); ok {
		out := AnswerLabelStyle.Render("✓ Result") + "\n" + r.markdown(answer)
		if act.Call.Partial {
			out += StreamingStyle.Render("▌")
		}
		return out
	}

	var b strings.Builder
	if act.Orphan() {
		b.WriteString(ToolNameStyle.Render("⚙ " + act.Name()))
		b.WriteString(DimStyle.Render(" (result without matching call)"))
	} else {
		b.WriteString(ToolNameStyle.Render("⚙ " + act.Call.Name))
		if params := summarizeParams(act.Call.Params, r.opts.Width-len(act.Call.Name)-4); params != "" {
			b.WriteString(" " + DimStyle.Render(params))
		}
	}

	switch {
	case act.Result == nil:
		b.WriteString("\n" + PendingStyle.Render("  running…"))
	case act.Result.Content == "":
		if act.Result.IsError {
			b.WriteString("\n" + ErrorTextStyle.Render("  failed"))
		}
	default:
		style := ToolOutputStyle
		if act.Result.IsError {
			style = ErrorTextStyle
		}
		for _, line := range clipLines(r.wrapIndent(act.Result.Content, 2), maxToolOutputLines) {
			b.WriteString("\n" + style.Render(line))
		}
	}
	return b.String()
}

func (r *Renderer) permission(p *transcript.PermissionEntry) string {
	if p.Hidden(r.opts.CompactApproved) {
		return ""
	}
	req := p.Request
	what := strings.TrimSpace(req.ToolName + " " + req.Operation + " " + req.Target)

	switch p.Response {
	case transcript.Approved:
		return ApprovedStyle.Render("✓ Allowed ") + DimStyle.Render(what)
	case transcript.Denied:
		out := DeniedStyle.Render("✗ Denied ") + what
		if req.Details != "" {
			out += "\n" + DimStyle.Render(r.wrapIndent(req.Details, 2))
		}
		return out
	default:
		out := PendingStyle.Render("? Allow ") + what
		if p.Answerable() {
			out += PendingStyle.Render("  [y/n]")
		} else {
			out += DimStyle.Render("  (no request id, cannot be answered)")
		}
		if req.Details != "" {
			out += "\n" + DimStyle.Render(r.wrapIndent(req.Details, 2))
		}
		return out
	}
}

func (r *Renderer) markdown(text string) (out string) {
	if r.md == nil || text == "" {
		return r.wrap(text)
	}
	defer func() {
		if rec := recover(); rec != nil {
			out = r.wrap(text)
		}
	}()
	rendered, err := r.md.Render(text)
	if err != nil {
		return r.wrap(text)
	}
	return strings.Trim(rendered, "\n")
}

func (r *Renderer) wrap(text string) string {
	return wordwrap.String(text, r.opts.Width)
}

func (r *Renderer) wrapIndent(text string, indent int) string {
	pad := strings.Repeat(" ", indent)
	lines := strings.Split(wordwrap.String(text, max(10, r.opts.Width-indent)), "\n")
	for i, l := range lines {
		lines[i] = pad + l
	}
	return strings.Join(lines, "\n")
}

// summarizeParams renders params as sorted key=value pairs cut to width.
func summarizeParams(params map[string]any, width int) string {
	if len(params) == 0 {
		return ""
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		v := strings.ReplaceAll(fmt.Sprint(params[k]), "\n", " ")
		parts = append(parts, k+"="+v)
	}
	return Truncate(strings.Join(parts, " "), width)
}

func clipLines(text string, n int) []string {
	lines := strings.Split(text, "\n")
	if len(lines) <= n {
		return lines
	}
	more := len(lines) - n
	return append(lines[:n], fmt.Sprintf("  … %d more lines", more))
}

// Truncate cuts s to width runes, marking the cut with an ellipsis.
func Truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width == 1 {
		return "…"
	}
	return string(runes[:width-1]) + "…"
}
