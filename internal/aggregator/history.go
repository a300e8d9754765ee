package aggregator

// History is a fixed-capacity ordered set of recently spoken utterances,
// used to suppress re-speaking text the assistant already delivered.
// When full, the oldest entry is evicted first. Not safe for concurrent
// use; the owning Aggregator serializes access.
type History struct {
	entries  []string
	capacity int
}

// NewHistory creates a history window holding up to capacity utterances
func NewHistory(capacity int) *History {
	if capacity < 1 {
		capacity = 1
	}
	return &History{
		entries:  make([]string, 0, capacity),
		capacity: capacity,
	}
}

// Add records a spoken utterance, evicting the oldest entry when full
func (h *History) Add(text string) {
	if len(h.entries) == h.capacity {
		copy(h.entries, h.entries[1:])
		h.entries = h.entries[:h.capacity-1]
	}
	h.entries = append(h.entries, text)
}

// Contains reports whether text was spoken within the window (exact match)
func (h *History) Contains(text string) bool {
	for _, e := range h.entries {
		if e == text {
			return true
		}
	}
	return false
}

// Last returns the most recently spoken utterance
func (h *History) Last() (string, bool) {
	if len(h.entries) == 0 {
		return "", false
	}
	return h.entries[len(h.entries)-1], true
}

// Len returns the number of utterances in the window
func (h *History) Len() int {
	return len(h.entries)
}

// Clear discards all entries
func (h *History) Clear() {
	h.entries = h.entries[:0]
}
