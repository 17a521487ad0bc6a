package updater

import "sync"

// Event names emitted by the Updater. They follow the auto-updater lifecycle:
// a check emits EventChecking followed by exactly one of EventAvailable,
// EventNotAvailable or EventError; a download emits EventProgress zero or
// more times followed by EventDownloaded or EventError.
type Event string

const (
	EventChecking     Event = "checking-for-update"
	EventAvailable    Event = "update-available"
	EventNotAvailable Event = "update-not-available"
	EventProgress     Event = "download-progress"
	EventDownloaded   Event = "update-downloaded"
	EventError        Event = "error"
)

// Listener receives the payload of an event. Payload types per event:
// UpdateInfo for available, not-available and downloaded; ProgressInfo for
// download-progress; error for error; nil for checking-for-update.
type Listener func(payload any)

type subscription struct {
	id   uint64
	fn   Listener
	once bool
}

// Emitter is a small thread-safe event emitter. The zero value is ready to use.
type Emitter struct {
	mu        sync.Mutex
	nextID    uint64
	listeners map[Event][]subscription
}

// On registers fn for every emission of ev. The returned func removes it and
// may be called any number of times.
func (e *Emitter) On(ev Event, fn Listener) (remove func()) {
	return e.add(ev, fn, false)
}

// Once registers fn for the next emission of ev only.
func (e *Emitter) Once(ev Event, fn Listener) (remove func()) {
	return e.add(ev, fn, true)
}

func (e *Emitter) add(ev Event, fn Listener, once bool) func() {
	if fn == nil {
		return func() {}
	}

	e.mu.Lock()
	if e.listeners == nil {
		e.listeners = make(map[Event][]subscription)
	}
	e.nextID++
	id := e.nextID
	e.listeners[ev] = append(e.listeners[ev], subscription{id: id, fn: fn, once: once})
	e.mu.Unlock()

	return func() { e.remove(ev, id) }
}

func (e *Emitter) remove(ev Event, id uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	subs := e.listeners[ev]
	for i, s := range subs {
		if s.id == id {
			e.listeners[ev] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(e.listeners[ev]) == 0 {
		delete(e.listeners, ev)
	}
}

// Emit delivers payload to the listeners of ev in registration order.
// One-shot listeners are detached before any listener runs, so a concurrent
// Emit can never deliver to them twice. Listeners run outside the lock and
// may add or remove listeners themselves.
func (e *Emitter) Emit(ev Event, payload any) {
	e.mu.Lock()
	subs := e.listeners[ev]
	if len(subs) == 0 {
		e.mu.Unlock()
		return
	}
	snapshot := make([]subscription, len(subs))
	copy(snapshot, subs)

	kept := subs[:0:0]
	for _, s := range subs {
		if !s.once {
			kept = append(kept, s)
		}
	}
	if len(kept) == 0 {
		delete(e.listeners, ev)
	} else {
		e.listeners[ev] = kept
	}
	e.mu.Unlock()

	for _, s := range snapshot {
		s.fn(payload)
	}
}

// ListenerCount returns the number of listeners currently registered for ev.
func (e *Emitter) ListenerCount(ev Event) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.listeners[ev])
}
