package relay

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllowList(t *testing.T) {
	for _, ch := range Channels() {
		assert.True(t, Allowed(ch), ch)
	}
	for _, ch := range []string{"", "update", "checking", "window-close", "UPDATE-AVAILABLE"} {
		assert.False(t, Allowed(ch), ch)
	}
	assert.Len(t, Channels(), 6)
}

func TestOnForwardsArgumentsUnchanged(t *testing.T) {
	r := New()
	var got [][]any
	r.On(ChannelProgress, func(args ...any) { got = append(got, args) })

	payload := map[string]any{"percent": 42.5}
	r.Send(ChannelProgress, payload, "extra", 7)
	r.Send(ChannelProgress)

	assert.Equal(t, [][]any{{payload, "extra", 7}, nil}, got)
}

func TestOnceDeliversOnce(t *testing.T) {
	r := New()
	calls := 0
	r.Once(ChannelDownloaded, func(...any) { calls++ })

	r.Send(ChannelDownloaded, "1.0.3")
	r.Send(ChannelDownloaded, "1.0.3")

	assert.Equal(t, 1, calls)
	assert.Zero(t, r.Subscribers(ChannelDownloaded))
}

func TestUnsubscribe(t *testing.T) {
	r := New()
	calls := 0
	unsubscribe := r.On(ChannelError, func(...any) { calls++ })

	r.Send(ChannelError, "boom")
	unsubscribe()
	unsubscribe()
	r.Send(ChannelError, "boom")

	assert.Equal(t, 1, calls)
}

func TestDisallowedSubscriptionIsIgnored(t *testing.T) {
	r := New()
	called := false
	listener := func(...any) { called = true }

	unsubscribe := r.On("ipc-internal", listener)
	unsubscribeOnce := r.Once("ipc-internal", listener)
	assert.NotNil(t, unsubscribe)
	assert.NotNil(t, unsubscribeOnce)

	r.Send("ipc-internal", "secret")
	unsubscribe()
	unsubscribeOnce()

	assert.False(t, called)
	assert.Zero(t, r.Subscribers("ipc-internal"))
}

func TestNilListenerIgnored(t *testing.T) {
	r := New()
	r.On(ChannelChecking, nil)
	assert.Zero(t, r.Subscribers(ChannelChecking))
	r.Send(ChannelChecking)
}
