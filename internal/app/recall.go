package app

// Recall browses previously submitted prompts from the input line, newest
// first, and restores the unsent draft when browsing past the newest.
type Recall struct {
	items []string
	pos   int
	draft string
	limit int
}

// NewRecall returns a recall holding items, newest first.
func NewRecall(items []string, limit int) *Recall {
	r := &Recall{pos: -1, limit: limit}
	for _, it := range items {
		if r.limit > 0 && len(r.items) >= r.limit {
			break
		}
		r.items = append(r.items, it)
	}
	return r
}

// Push records a newly submitted prompt and resets browsing.
func (r *Recall) Push(text string) {
	r.Reset()
	if text == "" || (len(r.items) > 0 && r.items[0] == text) {
		return
	}
	r.items = append([]string{text}, r.items...)
	if r.limit > 0 && len(r.items) > r.limit {
		r.items = r.items[:r.limit]
	}
}

// Prev moves to the next older prompt. current is the input line, kept as
// the draft when browsing starts.
func (r *Recall) Prev(current string) (string, bool) {
	if r.pos+1 >= len(r.items) {
		return "", false
	}
	if r.pos == -1 {
		r.draft = current
	}
	r.pos++
	return r.items[r.pos], true
}

// Next moves to the next newer prompt, ending at the draft.
func (r *Recall) Next() (string, bool) {
	switch {
	case r.pos < 0:
		return "", false
	case r.pos == 0:
		r.pos = -1
		return r.draft, true
	}
	r.pos--
	return r.items[r.pos], true
}

// Reset stops browsing.
func (r *Recall) Reset() {
	r.pos = -1
	r.draft = ""
}

// Len returns the number of stored prompts.
func (r *Recall) Len() int { return len(r.items) }
