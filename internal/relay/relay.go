// Package relay forwards update lifecycle events from the shell to the page.
// Only the channels in the allow-list can be subscribed to; everything else
// is dropped without an error.
package relay

import "sync"

// Renderer channel names.
const (
	ChannelChecking     = "update-checking"
	ChannelAvailable    = "update-available"
	ChannelNotAvailable = "update-not-available"
	ChannelProgress     = "update-progress"
	ChannelDownloaded   = "update-downloaded"
	ChannelError        = "update-error"
)

var allowedChannels = map[string]struct{}{
	ChannelChecking:     {},
	ChannelAvailable:    {},
	ChannelNotAvailable: {},
	ChannelProgress:     {},
	ChannelDownloaded:   {},
	ChannelError:        {},
}

// Allowed reports whether channel is on the allow-list.
func Allowed(channel string) bool {
	_, ok := allowedChannels[channel]
	return ok
}

// Channels returns the allow-list in lifecycle order.
func Channels() []string {
	return []string{
		ChannelChecking,
		ChannelAvailable,
		ChannelNotAvailable,
		ChannelProgress,
		ChannelDownloaded,
		ChannelError,
	}
}

// Listener receives the positional arguments of a sent event.
type Listener func(args ...any)

type subscription struct {
	id   uint64
	fn   Listener
	once bool
}

// Relay is a one-way publish/subscribe point restricted to the allow-list.
type Relay struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[string][]subscription
}

// New returns an empty Relay.
func New() *Relay {
	return &Relay{subs: make(map[string][]subscription)}
}

func noop() {}

// On subscribes fn to every event on channel. Subscriptions to channels
// outside the allow-list are ignored and return a no-op unsubscribe.
func (r *Relay) On(channel string, fn Listener) (unsubscribe func()) {
	return r.subscribe(channel, fn, false)
}

// Once subscribes fn to the next event on channel only.
func (r *Relay) Once(channel string, fn Listener) (unsubscribe func()) {
	return r.subscribe(channel, fn, true)
}

func (r *Relay) subscribe(channel string, fn Listener, once bool) func() {
	if fn == nil || !Allowed(channel) {
		return noop
	}

	r.mu.Lock()
	r.nextID++
	id := r.nextID
	r.subs[channel] = append(r.subs[channel], subscription{id: id, fn: fn, once: once})
	r.mu.Unlock()

	return func() { r.unsubscribe(channel, id) }
}

func (r *Relay) unsubscribe(channel string, id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	subs := r.subs[channel]
	for i, s := range subs {
		if s.id == id {
			r.subs[channel] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(r.subs[channel]) == 0 {
		delete(r.subs, channel)
	}
}

// Send delivers args unchanged to the subscribers of channel. Sends on
// channels outside the allow-list are dropped.
func (r *Relay) Send(channel string, args ...any) {
	if !Allowed(channel) {
		return
	}

	r.mu.Lock()
	subs := r.subs[channel]
	snapshot := make([]subscription, len(subs))
	copy(snapshot, subs)
	kept := subs[:0:0]
	for _, s := range subs {
		if !s.once {
			kept = append(kept, s)
		}
	}
	if len(kept) == 0 {
		delete(r.subs, channel)
	} else {
		r.subs[channel] = kept
	}
	r.mu.Unlock()

	for _, s := range snapshot {
		s.fn(args...)
	}
}

// Subscribers returns the number of subscriptions on channel.
func (r *Relay) Subscribers(channel string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs[channel])
}
