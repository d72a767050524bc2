package conversation

import "github.com/sunsunmonkey/code-sidercar-sub001/internal/host"

// SessionStatus holds host-reported session state that is not part of the
// transcript.
type SessionStatus struct {
	Mode  string
	Route string

	usage      host.TokenUsage
	hasUsage   bool
	inputValue *string
}

// Usage returns the last reported token usage.
func (s *SessionStatus) Usage() (host.TokenUsage, bool) { return s.usage, s.hasUsage }

// SetUsage records a token_usage report.
func (s *SessionStatus) SetUsage(u host.TokenUsage) {
	s.usage = u
	s.hasUsage = true
}

// OfferInputValue stores a value for the input line to pick up.
func (s *SessionStatus) OfferInputValue(v string) { s.inputValue = &v }

// TakeInputValue returns the offered input value once.
func (s *SessionStatus) TakeInputValue() (string, bool) {
	if s.inputValue == nil {
		return "", false
	}
	v := *s.inputValue
	s.inputValue = nil
	return v, true
}
