package app

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"

	"github.com/sunsunmonkey/code-sidercar-sub001/internal/config"
	"github.com/sunsunmonkey/code-sidercar-sub001/internal/conversation"
	"github.com/sunsunmonkey/code-sidercar-sub001/internal/db"
	"github.com/sunsunmonkey/code-sidercar-sub001/internal/host"
	"github.com/sunsunmonkey/code-sidercar-sub001/internal/logging"
	"github.com/sunsunmonkey/code-sidercar-sub001/internal/transcript"
	"github.com/sunsunmonkey/code-sidercar-sub001/internal/ui"

	tea "github.com/charmbracelet/bubbletea"
)

// PanelFocus tracks which panel has keyboard focus.
type PanelFocus int

const (
	FocusInput PanelFocus = iota
	FocusConversations
)

// modes are cycled by the mode key. The host has the final say and answers
// with mode_changed.
var modes = []string{"code", "architect", "ask", "debug"}

var errNotConnected = errors.New("not connected to host")

// Dialer opens a connection to the host.
type Dialer func() (*host.Client, error)

// Options configure a Model.
type Options struct {
	Dial    Dialer
	Config  *config.Config
	Watcher *config.Watcher

	// HistoryPath is the prompt history database. Empty disables recall
	// persistence.
	HistoryPath string
	Logger      *slog.Logger
}

// Model is the root bubbletea model for the sidecar TUI.
type Model struct {
	// Connection state
	dial             Dialer
	client           *host.Client
	connected        bool
	connError        string
	reconnecting     bool
	reconnectAttempt int

	// Conversation state
	store    *conversation.Store
	status   *conversation.SessionStatus
	router   *conversation.Router
	renderer *ui.Renderer
	display  config.DisplayConfig

	// Prompt history
	historyPath  string
	historyLimit int
	history      *db.Store
	recall       *Recall

	// Widgets
	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	keys     KeyMap

	// UI state
	focusedPanel   PanelFocus
	selected       int
	width          int
	height         int
	transcriptLive bool

	// Errors
	errorMessage   string
	errorTransient bool

	// Status
	statusText string

	watcher *config.Watcher
	log     *slog.Logger
}

// New creates a new Model with default state.
func New(opts Options) Model {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	log := opts.Logger
	if log == nil {
		log = logging.Discard()
	}

	completion := transcript.Completion{
		ToolName:    cfg.Completion.ToolName,
		ResultField: cfg.Completion.ResultField,
	}
	store := conversation.NewStore(conversation.WithLogger(log), conversation.WithCompletion(completion))
	status := &conversation.SessionStatus{Mode: cfg.Display.Mode}

	input := textinput.New()
	input.Prompt = "❯ "
	input.Placeholder = "Ask the agent…"
	input.CharLimit = 8000
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = ui.SpinnerStyle

	m := Model{
		dial:           opts.Dial,
		store:          store,
		status:         status,
		router:         conversation.NewRouter(store, status, log),
		display:        cfg.Display,
		historyPath:    opts.HistoryPath,
		historyLimit:   cfg.History.Limit,
		recall:         NewRecall(nil, cfg.History.Limit),
		input:          input,
		viewport:       viewport.New(60, 10),
		spinner:        sp,
		keys:           DefaultKeyMap(),
		focusedPanel:   FocusInput,
		transcriptLive: true,
		statusText:     "Connecting to host...",
		watcher:        opts.Watcher,
		log:            log,
	}
	m.renderer = m.newRenderer(m.viewport.Width)
	return m
}

// Init returns the initial commands: connect to the host and open the
// prompt history.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick, textinput.Blink}
	if m.dial != nil {
		cmds = append(cmds, connectCmd(m.dial))
	}
	if m.historyPath != "" {
		cmds = append(cmds, openHistoryCmd(m.historyPath, m.historyLimit))
	}
	cmds = append(cmds, watchConfigCmd(m.watcher))
	return tea.Batch(cmds...)
}

// connectCmd attempts to connect to the host.
func connectCmd(dial Dialer) tea.Cmd {
	return func() tea.Msg {
		client, err := dial()
		if err != nil {
			return HostConnectErrorMsg{Err: err}
		}
		return HostConnectedMsg{Client: client}
	}
}

// readEventCmd reads the next event from the host.
func readEventCmd(client *host.Client) tea.Cmd {
	return func() tea.Msg {
		ev, err := client.ReadEvent()
		if err != nil {
			return HostEventErrorMsg{Err: err}
		}
		return HostEventMsg{Event: ev}
	}
}

// sendCmd writes actions to the host in order, stopping at the first
// failure.
func sendCmd(client *host.Client, actions []host.Action) tea.Cmd {
	if client == nil || len(actions) == 0 {
		return nil
	}
	return func() tea.Msg {
		for _, a := range actions {
			if err := client.Send(a); err != nil {
				return ActionErrorMsg{Action: a.Type, Err: err}
			}
		}
		return nil
	}
}

// clearTransientErrorCmd fires after a delay to clear transient errors.
func clearTransientErrorCmd() tea.Cmd {
	return tea.Tick(5*time.Second, func(time.Time) tea.Msg {
		return ClearTransientErrorMsg{}
	})
}

// reconnectDelay grows exponentially: 1s, 2s, 4s, 8s, then 16s.
func reconnectDelay(attempt int) time.Duration {
	return time.Duration(1<<min(max(attempt, 0), 4)) * time.Second
}

// reconnectCmd schedules a reconnection attempt with exponential backoff.
func reconnectCmd(attempt int) tea.Cmd {
	return tea.Tick(reconnectDelay(attempt), func(time.Time) tea.Msg {
		return ReconnectTickMsg{}
	})
}

// openHistoryCmd opens the prompt history database.
func openHistoryCmd(path string, limit int) tea.Cmd {
	return func() tea.Msg {
		store, err := db.Open(path)
		if err != nil {
			return nil // recall works in memory without it
		}
		if limit > 0 {
			_, _ = store.Trim(limit)
		}
		return historyOpenedMsg{store: store}
	}
}

// loadPromptsCmd reads recent prompts for recall.
func loadPromptsCmd(store *db.Store, limit int) tea.Cmd {
	return func() tea.Msg {
		prompts, err := store.Recent(limit)
		if err != nil {
			return PromptHistoryMsg{}
		}
		texts := make([]string, 0, len(prompts))
		for _, p := range prompts {
			texts = append(texts, p.Text)
		}
		return PromptHistoryMsg{Prompts: texts}
	}
}

// savePromptCmd records a submitted prompt.
func savePromptCmd(store *db.Store, conversationID, text string, log *slog.Logger) tea.Cmd {
	if store == nil {
		return nil
	}
	return func() tea.Msg {
		if err := store.Add(conversationID, text); err != nil {
			log.Warn("save prompt", "error", err)
		}
		return nil
	}
}

// watchConfigCmd waits for the next config reload or reload error.
func watchConfigCmd(w *config.Watcher) tea.Cmd {
	if w == nil {
		return nil
	}
	return func() tea.Msg {
		select {
		case cfg := <-w.Changes():
			return ConfigReloadedMsg{Config: cfg}
		case err := <-w.Errors():
			return ConfigErrorMsg{Err: err}
		}
	}
}

// copyCmd puts text on the system clipboard.
func copyCmd(text string) tea.Cmd {
	return func() tea.Msg {
		return CopiedMsg{Err: clipboard.WriteAll(text)}
	}
}

// Update processes messages and returns the updated model and any commands.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case HostConnectedMsg:
		m.client = msg.Client
		m.connected = true
		m.connError = ""
		m.reconnecting = false
		m.reconnectAttempt = 0
		m.statusText = "Connected"
		m.log.Info("connected to host")
		return m, tea.Batch(
			readEventCmd(m.client),
			sendCmd(m.client, []host.Action{host.GetConversationList()}),
		)

	case HostConnectErrorMsg:
		m.connected = false
		m.connError = msg.Err.Error()
		m.reconnecting = true
		m.statusText = "Host not running. Reconnecting..."
		m.log.Debug("connect failed", "error", msg.Err, "attempt", m.reconnectAttempt)
		return m, reconnectCmd(m.reconnectAttempt)

	case HostEventMsg:
		if m.client == nil {
			return m, nil
		}
		cmd := m.handleEvent(msg.Event)
		return m, tea.Batch(cmd, readEventCmd(m.client))

	case HostEventErrorMsg:
		m.connected = false
		m.connError = msg.Err.Error()
		m.statusText = "Disconnected. Reconnecting..."
		m.reconnecting = true
		m.log.Warn("host connection lost", "error", msg.Err)
		if m.client != nil {
			m.client.Close()
			m.client = nil
		}
		if m.store.Processing() {
			m.store.Fail("Connection to host lost")
			m.refresh()
		}
		return m, reconnectCmd(m.reconnectAttempt)

	case ActionErrorMsg:
		m.log.Warn("send action", "action", msg.Action, "error", msg.Err)
		return m, m.showError(msg.Action+": "+msg.Err.Error(), true)

	case ReconnectTickMsg:
		m.reconnectAttempt++
		if m.dial == nil {
			return m, nil
		}
		return m, connectCmd(m.dial)

	case historyOpenedMsg:
		m.history = msg.store
		return m, loadPromptsCmd(m.history, m.historyLimit)

	case PromptHistoryMsg:
		m.recall = NewRecall(msg.Prompts, m.historyLimit)
		return m, nil

	case ConfigReloadedMsg:
		m.applyDisplay(msg.Config.Display)
		m.log.Info("config reloaded")
		return m, watchConfigCmd(m.watcher)

	case ConfigErrorMsg:
		m.log.Warn("config reload failed", "error", msg.Err)
		return m, tea.Batch(m.showError(msg.Err.Error(), true), watchConfigCmd(m.watcher))

	case CopiedMsg:
		if msg.Err != nil {
			return m, m.showError("copy: "+msg.Err.Error(), true)
		}
		m.statusText = "Copied answer to clipboard"
		return m, nil

	case ClearTransientErrorMsg:
		if m.errorTransient {
			m.errorMessage = ""
			m.errorTransient = false
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// handleEvent folds a host event and returns any resulting command.
func (m *Model) handleEvent(ev host.Event) tea.Cmd {
	if !m.router.Dispatch(ev) {
		return nil
	}

	switch ev.Type {
	case host.EventSetInputValue:
		if v, ok := m.status.TakeInputValue(); ok {
			m.input.SetValue(v)
			m.input.CursorEnd()
		}
	case host.EventConversationList, host.EventConversationDeleted:
		m.clampSelection()
	case host.EventError:
		m.refresh()
		return m.showError(ev.Message, true)
	}

	m.refresh()
	return nil
}

// handleKey processes key presses.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		if m.client != nil {
			m.client.Close()
		}
		if m.history != nil {
			m.history.Close()
		}
		return m, tea.Quit

	case key.Matches(msg, m.keys.Focus):
		if m.focusedPanel == FocusConversations {
			m.focusedPanel = FocusInput
			return m, m.input.Focus()
		}
		m.focusedPanel = FocusConversations
		m.input.Blur()
		return m, nil

	case key.Matches(msg, m.keys.New):
		if !m.connected {
			return m, m.showError(errNotConnected.Error(), true)
		}
		actions := m.store.NewConversation()
		m.transcriptLive = true
		m.refresh()
		return m, sendCmd(m.client, actions)

	case key.Matches(msg, m.keys.Mode):
		if !m.connected {
			return m, m.showError(errNotConnected.Error(), true)
		}
		m.status.Mode = nextMode(m.status.Mode)
		return m, sendCmd(m.client, []host.Action{host.ModeChange(m.status.Mode)})

	case key.Matches(msg, m.keys.Cancel):
		actions := m.store.CancelTask()
		if len(actions) == 0 {
			return m, nil
		}
		m.refresh()
		return m, sendCmd(m.client, actions)

	case key.Matches(msg, m.keys.Copy):
		answer, ok := m.store.LastAnswer()
		if !ok {
			return m, m.showError("nothing to copy", true)
		}
		return m, copyCmd(answer)

	case key.Matches(msg, m.keys.PageUp):
		m.transcriptLive = false
		m.viewport.LineUp(max(1, m.viewport.Height/2))
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.LineDown(max(1, m.viewport.Height/2))
		m.transcriptLive = m.viewport.AtBottom()
		return m, nil
	}

	if m.focusedPanel == FocusConversations {
		return m.handleListKey(msg)
	}
	return m.handleInputKey(msg)
}

func (m Model) handleListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	summaries := m.store.Summaries()

	switch {
	case key.Matches(msg, m.keys.Up):
		if m.selected > 0 {
			m.selected--
		}
		return m, nil

	case key.Matches(msg, m.keys.Down):
		if m.selected < len(summaries)-1 {
			m.selected++
		}
		return m, nil

	case key.Matches(msg, m.keys.Refresh):
		if !m.connected {
			return m, m.showError(errNotConnected.Error(), true)
		}
		return m, sendCmd(m.client, []host.Action{host.GetConversationList()})

	case key.Matches(msg, m.keys.Switch):
		if m.selected >= len(summaries) {
			return m, nil
		}
		if !m.connected {
			return m, m.showError(errNotConnected.Error(), true)
		}
		id := summaries[m.selected].ID
		m.focusedPanel = FocusInput
		focus := m.input.Focus()
		if id == m.store.CurrentID() {
			return m, focus
		}
		actions := m.store.SwitchTo(id)
		m.transcriptLive = true
		m.refresh()
		return m, tea.Batch(focus, sendCmd(m.client, actions))

	case key.Matches(msg, m.keys.Delete):
		if m.selected >= len(summaries) {
			return m, nil
		}
		if !m.connected {
			return m, m.showError(errNotConnected.Error(), true)
		}
		actions := m.store.Delete(summaries[m.selected].ID)
		m.clampSelection()
		m.refresh()
		return m, sendCmd(m.client, actions)
	}

	return m, nil
}

func (m Model) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	pending := m.store.Pending()
	if len(pending) > 0 && m.input.Value() == "" {
		switch {
		case key.Matches(msg, m.keys.Approve):
			return m.respond(pending[0].Request.ID, true)
		case key.Matches(msg, m.keys.Deny):
			return m.respond(pending[0].Request.ID, false)
		}
	}

	switch {
	case key.Matches(msg, m.keys.Submit):
		text := strings.TrimSpace(m.input.Value())
		if text == "" {
			return m, nil
		}
		if !m.connected {
			return m, m.showError(errNotConnected.Error(), true)
		}
		actions := m.store.SendUserMessage(text)
		m.input.SetValue("")
		m.recall.Push(text)
		m.transcriptLive = true
		m.refresh()
		return m, tea.Batch(
			sendCmd(m.client, actions),
			savePromptCmd(m.history, m.store.CurrentID(), text, m.log),
		)

	case key.Matches(msg, m.keys.PrevLine):
		if text, ok := m.recall.Prev(m.input.Value()); ok {
			m.input.SetValue(text)
			m.input.CursorEnd()
		}
		return m, nil

	case key.Matches(msg, m.keys.NextLine):
		if text, ok := m.recall.Next(); ok {
			m.input.SetValue(text)
			m.input.CursorEnd()
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) respond(requestID string, approved bool) (tea.Model, tea.Cmd) {
	if !m.connected {
		return m, m.showError(errNotConnected.Error(), true)
	}
	actions := m.store.RespondPermission(requestID, approved)
	m.refresh()
	return m, sendCmd(m.client, actions)
}

func (m *Model) showError(text string, transient bool) tea.Cmd {
	m.errorMessage = text
	m.errorTransient = transient
	if transient {
		return clearTransientErrorCmd()
	}
	return nil
}

func (m *Model) applyDisplay(d config.DisplayConfig) {
	m.display = d
	m.renderer = m.newRenderer(m.viewport.Width)
	m.refresh()
}

func (m *Model) newRenderer(width int) *ui.Renderer {
	return ui.NewRenderer(ui.Options{
		Width:           max(20, width-2),
		Markdown:        m.display.Markdown,
		CompactApproved: m.display.CompactApproved,
		Completion:      m.store.Completion(),
	})
}

// refresh re-renders the transcript into the viewport.
func (m *Model) refresh() {
	m.viewport.SetContent(m.renderer.Render(m.store.Snapshot()))
	if m.transcriptLive {
		m.viewport.GotoBottom()
	}
}

func (m *Model) resize() {
	width := m.transcriptPanelWidth()
	m.viewport.Width = width
	m.viewport.Height = max(1, m.mainContentHeight()-1)
	m.input.Width = max(10, m.width-4)
	if m.renderer.Options().Width != max(20, width-2) {
		m.renderer = m.newRenderer(width)
	}
	m.refresh()
}

func (m *Model) clampSelection() {
	n := len(m.store.Summaries())
	if m.selected >= n {
		m.selected = max(0, n-1)
	}
}

func nextMode(current string) string {
	for i, mode := range modes {
		if mode == current {
			return modes[(i+1)%len(modes)]
		}
	}
	return modes[0]
}
