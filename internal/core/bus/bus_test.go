package bus

import (
	"io"
	"log/slog"
	"testing"
	"time"
)

func newTestBus() *Bus {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func recv(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestPublishReachesAllSubscribers(t *testing.T) {
	b := newTestBus()
	ch1, unsub1 := b.Subscribe()
	ch2, unsub2 := b.Subscribe()
	defer unsub1()
	defer unsub2()

	b.Publish(Event{Type: SessionUpdated, SessionID: "abc"})

	for _, ch := range []<-chan Event{ch1, ch2} {
		ev := recv(t, ch)
		if ev.Type != SessionUpdated || ev.SessionID != "abc" {
			t.Errorf("got %+v, want SessionUpdated abc", ev)
		}
	}
}

func TestSlowSubscriberDoesNotBlock(t *testing.T) {
	b := newTestBus()
	_, unsub := b.Subscribe() // never drained
	defer unsub()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < subscriberBuffer*3; i++ {
			b.Publish(Event{Type: StatsUpdated})
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a slow subscriber")
	}
	if b.Dropped() == 0 {
		t.Error("Dropped() = 0, want > 0 after overflowing the buffer")
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := newTestBus()
	ch, unsub := b.Subscribe()

	unsub()
	if _, open := <-ch; open {
		t.Error("channel still open after unsubscribe")
	}
	if b.SubscriberCount() != 0 {
		t.Errorf("SubscriberCount = %d, want 0", b.SubscriberCount())
	}

	// Idempotent.
	unsub()

	// Publishing after unsubscribe must not panic.
	b.Publish(Event{Type: LoadCompleted})
}

func TestEventTypeString(t *testing.T) {
	tests := []struct {
		typ  EventType
		want string
	}{
		{StatsUpdated, "stats-updated"},
		{SessionCreated, "session-created"},
		{SessionRemoved, "session-removed"},
		{ConfigChanged, "config-changed"},
		{WatcherError, "watcher-error"},
	}
	for _, tt := range tests {
		if got := tt.typ.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", tt.typ, got, tt.want)
		}
	}
}
