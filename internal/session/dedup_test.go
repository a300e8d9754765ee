package session

import (
	"fmt"
	"testing"
)

func TestMessageSet_Seen(t *testing.T) {
	set := newMessageSet(4)

	if set.Seen([]byte("hello")) {
		t.Error("Expected first sighting to be new")
	}
	if !set.Seen([]byte("hello")) {
		t.Error("Expected repeat to be seen")
	}
	if set.Seen([]byte("world")) {
		t.Error("Expected different payload to be new")
	}
}

func TestMessageSet_EvictsOldest(t *testing.T) {
	set := newMessageSet(2)

	set.Seen([]byte("one"))
	set.Seen([]byte("two"))
	set.Seen([]byte("three")) // evicts "one"

	if set.Seen([]byte("one")) {
		t.Error("Expected evicted payload to be new again")
	}
}

func TestMessageSet_Clear(t *testing.T) {
	set := newMessageSet(4)

	set.Seen([]byte("hello"))
	set.Clear()

	if set.Seen([]byte("hello")) {
		t.Error("Expected cleared set to forget payloads")
	}
}

func TestMessageSet_StaysBounded(t *testing.T) {
	set := newMessageSet(8)

	for i := 0; i < 100; i++ {
		set.Seen([]byte(fmt.Sprintf("payload-%d", i)))
	}

	if len(set.seen) != 8 || len(set.order) != 8 {
		t.Errorf("Expected set bounded at 8, got %d/%d", len(set.seen), len(set.order))
	}
}
