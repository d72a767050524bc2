package transcript

import "strings"

// StreamAccumulator folds streamed assistant text into the transcript's
// in-flight assistant entry.
type StreamAccumulator struct {
	t *Transcript
}

// Stream returns the accumulator bound to t.
func (t *Transcript) Stream() StreamAccumulator { return StreamAccumulator{t: t} }

// ChunkOutcome describes what a chunk did to the transcript.
type ChunkOutcome int

const (
	// ChunkIgnored means an empty chunk arrived with nothing streaming.
	ChunkIgnored ChunkOutcome = iota
	// ChunkStarted means a new assistant entry was appended.
	ChunkStarted
	// ChunkMerged means the active entry absorbed the chunk.
	ChunkMerged
)

// Append folds one chunk. The host may send either the new suffix (delta) or
// the whole text so far (snapshot), and does not say which; see mergeChunk.
// When streaming is false the affected entry is finalized and the next chunk
// starts a new entry.
func (s StreamAccumulator) Append(content string, streaming bool) (string, ChunkOutcome) {
	t := s.t
	if msg := s.active(); msg != nil {
		msg.Text = mergeChunk(msg.Text, content)
		msg.Streaming = streaming
		if !streaming {
			t.activeStream = ""
		}
		return msg.ID, ChunkMerged
	}

	if content == "" {
		return "", ChunkIgnored
	}

	id := t.insert(&AssistantMessage{Text: content, Streaming: streaming, CreatedAt: t.now()})
	if streaming {
		t.activeStream = id
	}
	return id, ChunkStarted
}

// Finalize ends the active stream, if any, without changing its text.
func (s StreamAccumulator) Finalize() bool {
	msg := s.active()
	if msg == nil {
		return false
	}
	msg.Streaming = false
	s.t.activeStream = ""
	return true
}

// Active returns a copy of the streaming assistant entry.
func (s StreamAccumulator) Active() (AssistantMessage, bool) {
	msg := s.active()
	if msg == nil {
		return AssistantMessage{}, false
	}
	return *msg, true
}

func (s StreamAccumulator) active() *AssistantMessage {
	if s.t.activeStream == "" {
		return nil
	}
	msg, ok := s.t.lookup(s.t.activeStream).(*AssistantMessage)
	if !ok || !msg.Streaming {
		s.t.activeStream = ""
		return nil
	}
	return msg
}

// mergeChunk resolves delta vs snapshot delivery by prefix matching. If
// either text is a prefix of the other, content is a snapshot and becomes the
// full text, even when that shortens the entry. Anything else is a delta.
// Empty content changes nothing.
//
// The heuristic misfires when a genuine delta happens to equal the start of
// the text so far (e.g. "a" arriving after "ab"); the entry is truncated to
// that delta.
func mergeChunk(current, content string) string {
	switch {
	case content == "":
		return current
	case strings.HasPrefix(content, current), strings.HasPrefix(current, content):
		return content
	default:
		return current + content
	}
}
