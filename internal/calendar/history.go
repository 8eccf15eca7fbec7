package calendar

const defaultHistoryLimit = 50

// history keeps snapshots of the event list taken after each mutation.
// The entry at index is the current state; the oldest entry is evicted
// once limit is exceeded.
type history struct {
	entries [][]Event
	index   int
	limit   int
}

func newHistory(limit int) *history {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	return &history{limit: limit}
}

func (h *history) reset(current []Event) {
	h.entries = [][]Event{cloneEvents(current)}
	h.index = 0
}

func (h *history) record(current []Event) {
	if len(h.entries) > 0 {
		h.entries = h.entries[:h.index+1]
	}
	h.entries = append(h.entries, cloneEvents(current))
	if over := len(h.entries) - h.limit; over > 0 {
		h.entries = h.entries[over:]
	}
	h.index = len(h.entries) - 1
}

func (h *history) undo() ([]Event, bool) {
	if h.index <= 0 {
		return nil, false
	}
	h.index--
	return cloneEvents(h.entries[h.index]), true
}

func (h *history) redo() ([]Event, bool) {
	if h.index >= len(h.entries)-1 {
		return nil, false
	}
	h.index++
	return cloneEvents(h.entries[h.index]), true
}

func (h *history) len() int { return len(h.entries) }

func (h *history) canUndo() bool { return h.index > 0 }

func (h *history) canRedo() bool { return h.index < len(h.entries)-1 }
