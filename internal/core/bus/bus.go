// Package bus broadcasts store-level change notifications to any number of
// subscribers. Delivery is best effort: a subscriber that stops draining
// its channel loses events rather than blocking publishers.
package bus

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/FlorianBruniaux/ccboard-sub001/internal/core/models"
)

const subscriberBuffer = 16

// EventType enumerates the closed set of notifications.
type EventType int

const (
	StatsUpdated EventType = iota
	SessionCreated
	SessionUpdated
	SessionRemoved
	ConfigChanged
	LoadCompleted
	WatcherError
)

func (t EventType) String() string {
	switch t {
	case StatsUpdated:
		return "stats-updated"
	case SessionCreated:
		return "session-created"
	case SessionUpdated:
		return "session-updated"
	case SessionRemoved:
		return "session-removed"
	case ConfigChanged:
		return "config-changed"
	case LoadCompleted:
		return "load-completed"
	case WatcherError:
		return "watcher-error"
	default:
		return "unknown"
	}
}

// Event is one notification. Only the fields relevant to its type are set:
// SessionID for session events, Scope for config changes, Message for
// watcher errors.
type Event struct {
	Type      EventType
	SessionID string
	Scope     models.SettingsScope
	Message   string
}

// Bus fans events out to subscribers.
type Bus struct {
	log *slog.Logger

	mu     sync.RWMutex
	subs   map[int]chan Event
	nextID int

	dropped atomic.Int64
}

// New creates an empty bus.
func New(log *slog.Logger) *Bus {
	return &Bus{log: log, subs: make(map[int]chan Event)}
}

// Subscribe registers a new subscriber and returns its channel plus an
// unsubscribe function. The channel is closed on unsubscribe.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan Event, subscriberBuffer)
	b.subs[id] = ch

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if ch, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(ch)
			}
		})
	}
	return ch, unsubscribe
}

// Publish delivers ev to every subscriber without blocking. Full subscriber
// channels drop the event.
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			b.dropped.Add(1)
			b.log.Debug("subscriber lagging, event dropped", "type", ev.Type.String())
		}
	}
}

// Dropped reports how many events were lost to full subscriber channels.
func (b *Bus) Dropped() int64 {
	return b.dropped.Load()
}

// SubscriberCount reports the current number of subscribers.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
