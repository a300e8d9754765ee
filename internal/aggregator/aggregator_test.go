package aggregator

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// flushRecorder captures flushed utterances for assertions.
type flushRecorder struct {
	mu       sync.Mutex
	flushes  []Utterance
	triggers []string
}

func (r *flushRecorder) record(u Utterance, trigger string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flushes = append(r.flushes, u)
	r.triggers = append(r.triggers, trigger)
}

func (r *flushRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.flushes)
}

func (r *flushRecorder) last() (Utterance, string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.flushes) == 0 {
		return Utterance{}, ""
	}
	return r.flushes[len(r.flushes)-1], r.triggers[len(r.triggers)-1]
}

func newTestAggregator(cfg Config) (*Aggregator, *flushRecorder) {
	rec := &flushRecorder{}
	agg := New(cfg, rec.record, zerolog.Nop())
	return agg, rec
}

func TestAppend_DebouncedFlush(t *testing.T) {
	agg, rec := newTestAggregator(Config{FlushTimeout: 50 * time.Millisecond})

	agg.Append("Hello there")
	agg.Append("how are you")

	// Nothing flushes before the debounce window elapses
	if rec.count() != 0 {
		t.Fatalf("Expected no flush before timeout, got %d", rec.count())
	}

	time.Sleep(120 * time.Millisecond)

	if rec.count() != 1 {
		t.Fatalf("Expected 1 flush after timeout, got %d", rec.count())
	}
	u, trigger := rec.last()
	if u.Text != "Hello there how are you" {
		t.Errorf("Expected joined utterance, got '%s'", u.Text)
	}
	if trigger != TriggerTimeout {
		t.Errorf("Expected trigger '%s', got '%s'", TriggerTimeout, trigger)
	}
}

func TestAppend_TimerResetsOnEachFragment(t *testing.T) {
	agg, rec := newTestAggregator(Config{FlushTimeout: 80 * time.Millisecond})

	// Keep appending faster than the debounce window
	for i := 0; i < 3; i++ {
		agg.Append("fragment" + strings.Repeat("x", i))
		time.Sleep(40 * time.Millisecond)
	}

	if rec.count() != 0 {
		t.Fatalf("Expected no flush while fragments keep arriving, got %d", rec.count())
	}

	time.Sleep(150 * time.Millisecond)
	if rec.count() != 1 {
		t.Fatalf("Expected exactly 1 flush once input goes idle, got %d", rec.count())
	}
}

func TestAppend_LengthTriggersImmediateFlush(t *testing.T) {
	agg, rec := newTestAggregator(Config{FlushTimeout: time.Hour, MaxLength: 20})

	agg.Append("aaaaaaaaaa")
	if rec.count() != 0 {
		t.Fatal("Expected no flush under the length limit")
	}

	agg.Append("bbbbbbbbbbbb")

	if rec.count() != 1 {
		t.Fatalf("Expected immediate flush past max length, got %d", rec.count())
	}
	u, trigger := rec.last()
	if trigger != TriggerLength {
		t.Errorf("Expected trigger '%s', got '%s'", TriggerLength, trigger)
	}
	if u.Text != "aaaaaaaaaa bbbbbbbbbbbb" {
		t.Errorf("Unexpected flushed text '%s'", u.Text)
	}
	if agg.Pending() != 0 {
		t.Errorf("Expected empty buffer after flush, got %d fragments", agg.Pending())
	}
}

func TestAppend_PunctuationTriggersImmediateFlush(t *testing.T) {
	for _, punct := range []string{".", "!", "?"} {
		agg, rec := newTestAggregator(Config{FlushTimeout: time.Hour})

		agg.Append("I found some options")
		agg.Append("for you" + punct)

		if rec.count() != 1 {
			t.Fatalf("Expected immediate flush on '%s', got %d flushes", punct, rec.count())
		}
		_, trigger := rec.last()
		if trigger != TriggerPunctuation {
			t.Errorf("Expected trigger '%s', got '%s'", TriggerPunctuation, trigger)
		}
	}
}

func TestAppend_DropsDuplicateOfLastSpoken(t *testing.T) {
	agg, rec := newTestAggregator(Config{FlushTimeout: time.Hour})

	agg.Append("Adding milk to your cart.")
	if rec.count() != 1 {
		t.Fatal("Expected first utterance to flush")
	}

	// The model repeats itself; the fragment matches the last spoken
	// utterance and must be dropped.
	agg.Append("Adding milk to your cart.")
	if rec.count() != 1 {
		t.Errorf("Expected duplicate to be dropped, got %d flushes", rec.count())
	}
	if agg.Pending() != 0 {
		t.Errorf("Expected duplicate not to be buffered, got %d fragments", agg.Pending())
	}
}

func TestAppend_DropsFragmentAlreadyBuffered(t *testing.T) {
	agg, _ := newTestAggregator(Config{FlushTimeout: time.Hour})

	agg.Append("first part")
	agg.Append("first part")
	agg.Append("second part")

	if agg.Pending() != 2 {
		t.Errorf("Expected 2 buffered fragments after dropping duplicate, got %d", agg.Pending())
	}
}

func TestFlush_SuppressesAlreadySpokenUtterance(t *testing.T) {
	agg, rec := newTestAggregator(Config{FlushTimeout: time.Hour})

	agg.Append("Hello")
	agg.Append("world.")
	if rec.count() != 1 {
		t.Fatal("Expected first flush")
	}

	// Rebuild the same utterance from fresh fragments; the flush-time
	// history check must suppress it.
	agg.Append("Hello")
	agg.Append("world.")

	if rec.count() != 1 {
		t.Errorf("Expected already-spoken utterance to be suppressed, got %d flushes", rec.count())
	}
}

func TestFlush_Manual(t *testing.T) {
	agg, rec := newTestAggregator(Config{FlushTimeout: time.Hour})

	agg.Append("pending text")
	u, ok := agg.Flush()

	if !ok {
		t.Fatal("Expected manual flush to emit")
	}
	if u.Text != "pending text" {
		t.Errorf("Unexpected flushed text '%s'", u.Text)
	}
	_, trigger := rec.last()
	if trigger != TriggerManual {
		t.Errorf("Expected trigger '%s', got '%s'", TriggerManual, trigger)
	}

	// Empty buffer flushes nothing
	if _, ok := agg.Flush(); ok {
		t.Error("Expected empty flush to emit nothing")
	}
}

func TestFlush_EmitsSingleCombinedUtterance(t *testing.T) {
	agg, rec := newTestAggregator(Config{FlushTimeout: 50 * time.Millisecond})

	fragments := []string{"Great!", "I found these options:", "1. Amul Milk for 54 rupees"}
	for _, f := range fragments {
		agg.Append(f)
	}

	time.Sleep(120 * time.Millisecond)

	if rec.count() != 1 {
		t.Fatalf("Expected 1 combined flush, got %d", rec.count())
	}
	u, _ := rec.last()
	want := "Great! I found these options: 1. Amul Milk for 54 rupees"
	if u.Text != want {
		t.Errorf("Expected '%s', got '%s'", want, u.Text)
	}
}

func TestFlush_SequenceIsMonotonic(t *testing.T) {
	agg, rec := newTestAggregator(Config{FlushTimeout: time.Hour})

	agg.Append("one.")
	agg.Append("two.")
	agg.Append("three.")

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.flushes) != 3 {
		t.Fatalf("Expected 3 flushes, got %d", len(rec.flushes))
	}
	for i, u := range rec.flushes {
		if u.Seq != uint64(i+1) {
			t.Errorf("Expected seq %d at position %d, got %d", i+1, i, u.Seq)
		}
	}
}

func TestClear_DiscardsBufferWithoutFlushing(t *testing.T) {
	agg, rec := newTestAggregator(Config{FlushTimeout: 50 * time.Millisecond})

	agg.Append("about to be discarded")
	agg.Clear()

	time.Sleep(120 * time.Millisecond)

	if rec.count() != 0 {
		t.Errorf("Expected no flush after clear, got %d", rec.count())
	}
	if agg.Pending() != 0 {
		t.Errorf("Expected empty buffer, got %d fragments", agg.Pending())
	}
}

func TestReset_ForgetsSpokenHistory(t *testing.T) {
	agg, rec := newTestAggregator(Config{FlushTimeout: time.Hour})

	agg.Append("Welcome back.")
	if rec.count() != 1 {
		t.Fatal("Expected first flush")
	}

	agg.Reset()

	// After a reset the same utterance may be spoken again
	agg.Append("Welcome back.")
	if rec.count() != 2 {
		t.Errorf("Expected utterance to flush again after reset, got %d flushes", rec.count())
	}
}

func TestAppend_IgnoresEmptyFragments(t *testing.T) {
	agg, _ := newTestAggregator(Config{FlushTimeout: time.Hour})

	agg.Append("")
	agg.Append("   ")
	agg.Append("\t\n")

	if agg.Pending() != 0 {
		t.Errorf("Expected whitespace-only fragments to be dropped, got %d", agg.Pending())
	}
}
