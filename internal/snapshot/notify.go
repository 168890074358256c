package snapshot

import "sync"

// Event names pushed over the /events stream.
const (
	EventFlagUpdate     = "flag_update"
	EventServerShutdown = "server_shutdown"
)

// Event is one notification to stream listeners. ETag identifies the
// state that triggered a flag_update; it is empty for shutdown.
type Event struct {
	Name string
	ETag string
}

var (
	mu   sync.Mutex
	subs = make(map[chan Event]struct{})
)

// Subscribe registers a stream listener and returns its channel plus an
// unsubscribe func. Unsubscribe closes the channel.
func Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 1)
	mu.Lock()
	subs[ch] = struct{}{}
	mu.Unlock()

	unsub := func() {
		mu.Lock()
		if _, ok := subs[ch]; ok {
			delete(subs, ch)
			close(ch)
		}
		mu.Unlock()
	}
	return ch, unsub
}

// PublishShutdown tells listeners the server is about to stop, so
// clients can refresh once and reconnect elsewhere.
func PublishShutdown() {
	publish(Event{Name: EventServerShutdown})
}

func publishUpdate(etag string) {
	publish(Event{Name: EventFlagUpdate, ETag: etag})
}

// publish fans the event out without blocking on slow listeners.
func publish(ev Event) {
	mu.Lock()
	for ch := range subs {
		select {
		case ch <- ev:
		default:
		}
	}
	mu.Unlock()
}
