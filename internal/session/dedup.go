package session

import "hash/fnv"

// messageSet is a bounded set of message hashes used to suppress
// duplicate inbound events. Oldest entries are evicted first.
type messageSet struct {
	order    []uint32
	seen     map[uint32]struct{}
	capacity int
}

func newMessageSet(capacity int) *messageSet {
	return &messageSet{
		seen:     make(map[uint32]struct{}, capacity),
		capacity: capacity,
	}
}

// Seen records payload and reports whether it was already present.
func (m *messageSet) Seen(payload []byte) bool {
	h := fnv.New32a()
	h.Write(payload)
	key := h.Sum32()

	if _, ok := m.seen[key]; ok {
		return true
	}

	if len(m.order) == m.capacity {
		oldest := m.order[0]
		m.order = m.order[1:]
		delete(m.seen, oldest)
	}
	m.order = append(m.order, key)
	m.seen[key] = struct{}{}
	return false
}

// Clear forgets all recorded messages.
func (m *messageSet) Clear() {
	m.order = m.order[:0]
	m.seen = make(map[uint32]struct{}, m.capacity)
}
