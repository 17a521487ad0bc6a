// Package bridge turns the event-based update source into a single
// request/response call: every CheckForUpdates settles exactly once.
package bridge

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/smeup/signmeup-client/internal/updater"
)

// DefaultTimeout bounds a check that never produces a definitive event.
const DefaultTimeout = 15 * time.Second

// State is the outcome tag of a check.
type State string

const (
	StateAvailable    State = "available"
	StateNotAvailable State = "not-available"
	StateError        State = "error"
	StateTimeout      State = "timeout"
)

// Status is the settled result of one check.
type Status struct {
	State State               `json:"status"`
	Info  *updater.UpdateInfo `json:"info,omitempty"`
	Error string              `json:"error,omitempty"`
}

// MarshalJSON keeps the wire shape stable: info only with available and
// not-available, error only with error.
func (s Status) MarshalJSON() ([]byte, error) {
	type wire struct {
		State State               `json:"status"`
		Info  *updater.UpdateInfo `json:"info,omitempty"`
		Error *string             `json:"error,omitempty"`
	}
	w := wire{State: s.State}
	switch s.State {
	case StateAvailable, StateNotAvailable:
		w.Info = s.Info
		if w.Info == nil {
			w.Info = &updater.UpdateInfo{}
		}
	case StateError:
		msg := s.Error
		w.Error = &msg
	}
	return json.Marshal(w)
}

// Source is the part of the updater the bridge drives.
type Source interface {
	Once(ev updater.Event, fn updater.Listener) (remove func())
	CheckForUpdates(ctx context.Context) error
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(b *Bridge) {
		if d > 0 {
			b.timeout = d
		}
	}
}

// Bridge mediates update checks against a shared Source.
type Bridge struct {
	source  Source
	timeout time.Duration
}

// New returns a Bridge over source.
func New(source Source, opts ...Option) *Bridge {
	b := &Bridge{source: source, timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// CheckForUpdates starts one check and blocks until it settles with the first
// of available, not-available, error or timeout. Listeners and the timer are
// released on settlement, so later events from the source are not observed.
// Cancelling ctx settles the call with an error status.
func (b *Bridge) CheckForUpdates(ctx context.Context) Status {
	var (
		once    sync.Once
		result  = make(chan Status, 1)
		removes []func()
		timer   *time.Timer
		mu      sync.Mutex
	)

	settle := func(s Status) {
		once.Do(func() {
			mu.Lock()
			for _, remove := range removes {
				remove()
			}
			if timer != nil {
				timer.Stop()
			}
			mu.Unlock()
			result <- s
		})
	}

	mu.Lock()
	removes = append(removes,
		b.source.Once(updater.EventAvailable, func(p any) {
			settle(Status{State: StateAvailable, Info: infoFrom(p)})
		}),
		b.source.Once(updater.EventNotAvailable, func(p any) {
			settle(Status{State: StateNotAvailable, Info: infoFrom(p)})
		}),
		b.source.Once(updater.EventError, func(p any) {
			settle(Status{State: StateError, Error: errorMessage(p)})
		}),
	)
	timer = time.AfterFunc(b.timeout, func() {
		settle(Status{State: StateTimeout})
	})
	mu.Unlock()

	if err := b.source.CheckForUpdates(ctx); err != nil {
		settle(Status{State: StateError, Error: err.Error()})
	}

	select {
	case s := <-result:
		return s
	case <-ctx.Done():
		settle(Status{State: StateError, Error: ctx.Err().Error()})
		return <-result
	}
}

func infoFrom(p any) *updater.UpdateInfo {
	switch v := p.(type) {
	case updater.UpdateInfo:
		return &v
	case *updater.UpdateInfo:
		return v
	}
	return nil
}

func errorMessage(p any) string {
	switch v := p.(type) {
	case error:
		return v.Error()
	case string:
		return v
	}
	return "unknown error"
}
