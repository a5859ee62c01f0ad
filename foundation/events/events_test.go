package events_test

import (
	"testing"

	"github.com/ardanlabs/ledger/foundation/events"
)

func Test_Events(t *testing.T) {
	evts := events.New()

	ch := evts.Acquire("a", "")
	if again := evts.Acquire("a", "viewer:"); again != ch {
		t.Fatalf("Should get back the same channel for the same id.")
	}

	evts.Send("viewer: block")
	if msg := <-ch; msg != "viewer: block" {
		t.Fatalf("Should receive the message, got %q", msg)
	}

	if err := evts.Release("a"); err != nil {
		t.Fatalf("Should be able to release the channel: %s", err)
	}

	if _, open := <-ch; open {
		t.Fatalf("Should close a released channel.")
	}

	if err := evts.Release("a"); err == nil {
		t.Fatalf("Should not be able to release an unknown id.")
	}

	other := evts.Acquire("b", "")
	evts.Shutdown()

	if _, open := <-other; open || evts.Count() != 0 {
		t.Fatalf("Should close every channel on shutdown.")
	}
}

func Test_EventsPrefix(t *testing.T) {
	evts := events.New()
	defer evts.Shutdown()

	blocks := evts.Acquire("blocks", "viewer:")

	evts.Send("state: UpsertMempool: tx")
	evts.Send("viewer: block: 1")

	if msg := <-blocks; msg != "viewer: block: 1" {
		t.Fatalf("Should only receive messages with the prefix, got %q", msg)
	}
}

func Test_EventsDropped(t *testing.T) {
	evts := events.New()
	defer evts.Shutdown()

	evts.Acquire("slow", "")

	const sent = 150
	for i := 0; i < sent; i++ {
		evts.Send("state: event")
	}

	if got := evts.Dropped(); got != sent-100 {
		t.Fatalf("Should drop the messages past the buffer, got %d", got)
	}
}
