package relay

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialHub(t *testing.T, h *Hub) (*websocket.Conn, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn, srv
}

func readEvent(t *testing.T, conn *websocket.Conn) outbound {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg outbound
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestHubDeliversAllowedSubscriptions(t *testing.T) {
	r := New()
	h := NewHub(r, nil)
	conn, _ := dialHub(t, h)

	require.NoError(t, conn.WriteJSON(inbound{Type: "subscribe", ID: 1, Channel: ChannelAvailable}))
	require.NoError(t, conn.WriteJSON(inbound{Type: "subscribe", ID: 2, Channel: "app-quit"}))
	require.Eventually(t, func() bool { return r.Subscribers(ChannelAvailable) == 1 }, 5*time.Second, 10*time.Millisecond)

	r.Send("app-quit", "ignored")
	r.Send(ChannelAvailable, map[string]any{"version": "1.0.3"})

	msg := readEvent(t, conn)
	assert.Equal(t, uint64(1), msg.ID)
	assert.Equal(t, ChannelAvailable, msg.Channel)
	require.Len(t, msg.Args, 1)
	assert.Equal(t, map[string]any{"version": "1.0.3"}, msg.Args[0])
}

func TestHubOnceAndUnsubscribe(t *testing.T) {
	r := New()
	h := NewHub(r, nil)
	conn, _ := dialHub(t, h)

	require.NoError(t, conn.WriteJSON(inbound{Type: "subscribe", ID: 7, Channel: ChannelError, Once: true}))
	require.NoError(t, conn.WriteJSON(inbound{Type: "subscribe", ID: 8, Channel: ChannelProgress}))
	require.Eventually(t, func() bool {
		return r.Subscribers(ChannelError) == 1 && r.Subscribers(ChannelProgress) == 1
	}, 5*time.Second, 10*time.Millisecond)

	r.Send(ChannelError, assert.AnError)
	msg := readEvent(t, conn)
	assert.Equal(t, uint64(7), msg.ID)
	assert.Equal(t, []any{assert.AnError.Error()}, msg.Args)
	assert.Zero(t, r.Subscribers(ChannelError))

	require.NoError(t, conn.WriteJSON(inbound{Type: "unsubscribe", ID: 8}))
	require.Eventually(t, func() bool { return r.Subscribers(ChannelProgress) == 0 }, 5*time.Second, 10*time.Millisecond)
}

func TestHubReleasesSubscriptionsOnDisconnect(t *testing.T) {
	r := New()
	var last atomic.Int32
	last.Store(-1)
	h := NewHub(r, nil, WithClientsChanged(func(n int) { last.Store(int32(n)) }))
	conn, _ := dialHub(t, h)

	require.NoError(t, conn.WriteJSON(inbound{Type: "subscribe", ID: 1, Channel: ChannelChecking}))
	require.Eventually(t, func() bool { return r.Subscribers(ChannelChecking) == 1 }, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, h.Clients())
	assert.Equal(t, int32(1), last.Load())

	require.NoError(t, conn.Close())

	require.Eventually(t, func() bool {
		return h.Clients() == 0 && r.Subscribers(ChannelChecking) == 0
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, int32(0), last.Load())
}

func TestHubRejectsForeignOrigin(t *testing.T) {
	h := NewHub(New(), nil)
	srv := httptest.NewServer(h)
	defer srv.Close()

	header := http.Header{}
	header.Set("Origin", "https://evil.example.com")
	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestHubCloseDisconnectsPages(t *testing.T) {
	h := NewHub(New(), nil)
	conn, _ := dialHub(t, h)
	require.Eventually(t, func() bool { return h.Clients() == 1 }, 5*time.Second, 10*time.Millisecond)

	h.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
	require.Eventually(t, func() bool { return h.Clients() == 0 }, 5*time.Second, 10*time.Millisecond)
}
