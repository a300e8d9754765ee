package aggregator

import "testing"

func TestHistory_AddAndContains(t *testing.T) {
	h := NewHistory(3)

	h.Add("one")
	h.Add("two")

	if !h.Contains("one") || !h.Contains("two") {
		t.Error("Expected history to contain added entries")
	}
	if h.Contains("three") {
		t.Error("Expected history not to contain 'three'")
	}
}

func TestHistory_EvictsOldestAtCapacity(t *testing.T) {
	h := NewHistory(3)

	h.Add("one")
	h.Add("two")
	h.Add("three")
	h.Add("four")

	if h.Contains("one") {
		t.Error("Expected oldest entry to be evicted")
	}
	if !h.Contains("two") || !h.Contains("three") || !h.Contains("four") {
		t.Error("Expected newer entries to survive eviction")
	}
	if h.Len() != 3 {
		t.Errorf("Expected length 3, got %d", h.Len())
	}
}

func TestHistory_Last(t *testing.T) {
	h := NewHistory(2)

	if _, ok := h.Last(); ok {
		t.Error("Expected no last entry in empty history")
	}

	h.Add("one")
	h.Add("two")
	if last, ok := h.Last(); !ok || last != "two" {
		t.Errorf("Expected last entry 'two', got '%s'", last)
	}
}

func TestHistory_Clear(t *testing.T) {
	h := NewHistory(2)
	h.Add("one")

	h.Clear()
	if h.Len() != 0 {
		t.Errorf("Expected empty history after clear, got %d entries", h.Len())
	}
	if h.Contains("one") {
		t.Error("Expected cleared history to forget entries")
	}
}
