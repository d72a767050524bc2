package app

import (
	"github.com/sunsunmonkey/code-sidercar-sub001/internal/config"
	"github.com/sunsunmonkey/code-sidercar-sub001/internal/db"
	"github.com/sunsunmonkey/code-sidercar-sub001/internal/host"
)

// HostConnectedMsg is sent when the host connection is established.
type HostConnectedMsg struct {
	Client *host.Client
}

// HostConnectErrorMsg is sent when connecting to the host fails.
type HostConnectErrorMsg struct {
	Err error
}

// HostEventMsg wraps an event streamed from the host.
type HostEventMsg struct {
	Event host.Event
}

// HostEventErrorMsg is sent when the event stream breaks.
type HostEventErrorMsg struct {
	Err error
}

// ActionErrorMsg is sent when an action could not be written to the host.
type ActionErrorMsg struct {
	Action string
	Err    error
}

// ReconnectTickMsg triggers a reconnection attempt.
type ReconnectTickMsg struct{}

// ClearTransientErrorMsg clears a transient error after a timeout.
type ClearTransientErrorMsg struct{}

// PromptHistoryMsg carries recent prompts loaded from SQLite, newest first.
type PromptHistoryMsg struct {
	Prompts []string
}

// ConfigReloadedMsg carries a config that changed on disk.
type ConfigReloadedMsg struct {
	Config *config.Config
}

// ConfigErrorMsg reports a config file that failed to reload.
type ConfigErrorMsg struct {
	Err error
}

// CopiedMsg reports the outcome of copying the last answer.
type CopiedMsg struct {
	Err error
}

type historyOpenedMsg struct{ store *db.Store }
