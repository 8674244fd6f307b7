package bus

import (
	"context"
	"testing"
)

// TestNewBusFallsBackToNull verifies bus selection never fails: an empty URL
// and an unreachable Redis both yield a working no-op bus.
func TestNewBusFallsBackToNull(t *testing.T) {
	b := NewBus("", nil)
	if _, ok := b.(*NullBus); !ok {
		t.Fatalf("expected NullBus for empty URL, got %T", b)
	}

	// Unparseable URL degrades the same way.
	b = NewBus("not-a-redis-url", nil)
	if _, ok := b.(*NullBus); !ok {
		t.Fatalf("expected NullBus for bad URL, got %T", b)
	}

	if err := b.Publish(context.Background(), Event{Type: EventNoteAdded}); err != nil {
		t.Fatalf("null publish should never error: %v", err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("null close should never error: %v", err)
	}
}
