package relay

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 64
)

// inbound is a message from the page.
type inbound struct {
	Type    string `json:"type"` // "subscribe" or "unsubscribe"
	ID      uint64 `json:"id"`
	Channel string `json:"channel"`
	Once    bool   `json:"once"`
}

// outbound is an event pushed to the page. ID echoes the subscription.
type outbound struct {
	ID      uint64 `json:"id"`
	Channel string `json:"channel"`
	Args    []any  `json:"args"`
}

// Hub exposes a Relay to pages over websocket connections.
type Hub struct {
	relay    *Relay
	logger   *log.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool

	onChange func(clients int)
}

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithClientsChanged registers fn to be called with the new client count
// whenever a page connects or disconnects.
func WithClientsChanged(fn func(clients int)) HubOption {
	return func(h *Hub) { h.onChange = fn }
}

// NewHub returns a Hub serving relay.
func NewHub(relay *Relay, logger *log.Logger, opts ...HubOption) *Hub {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	h := &Hub{
		relay:   relay,
		logger:  logger,
		clients: make(map[*client]struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     sameOrigin,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// sameOrigin accepts requests without an Origin header and requests whose
// Origin host matches the Host header.
func sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return u.Host == r.Host
}

// ServeHTTP upgrades the connection and serves subscriptions until the page
// disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "err", err)
		return
	}

	c := &client{
		hub:  h,
		conn: conn,
		send: make(chan outbound, sendBuffer),
		subs: make(map[uint64]func()),
		done: make(chan struct{}),
	}
	if !h.add(c) {
		_ = conn.Close()
		return
	}

	go c.writePump()
	c.readPump()
}

func (h *Hub) add(c *client) bool {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return false
	}
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()

	h.logger.Debug("page connected", "clients", n)
	if h.onChange != nil {
		h.onChange(n)
	}
	return true
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()

	h.logger.Debug("page disconnected", "clients", n)
	if h.onChange != nil {
		h.onChange(n)
	}
}

// Clients returns the number of connected pages.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every page and rejects new connections.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
}

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan outbound

	mu   sync.Mutex
	subs map[uint64]func()

	closeOnce sync.Once
	done      chan struct{}
}

func (c *client) readPump() {
	defer func() {
		c.unsubscribeAll()
		c.hub.remove(c)
		c.close()
	}()

	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("websocket read failed", "err", err)
			}
			return
		}

		var msg inbound
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.hub.logger.Debug("ignoring malformed page message", "err", err)
			continue
		}
		c.handle(msg)
	}
}

func (c *client) handle(msg inbound) {
	switch msg.Type {
	case "subscribe":
		id, channel := msg.ID, msg.Channel
		deliver := func(args ...any) {
			if msg.Once {
				c.forget(id)
			}
			c.push(outbound{ID: id, Channel: channel, Args: normalizeArgs(args)})
		}

		var unsubscribe func()
		if msg.Once {
			unsubscribe = c.hub.relay.Once(channel, deliver)
		} else {
			unsubscribe = c.hub.relay.On(channel, deliver)
		}

		c.mu.Lock()
		if prev, ok := c.subs[id]; ok {
			prev()
		}
		c.subs[id] = unsubscribe
		c.mu.Unlock()

	case "unsubscribe":
		c.mu.Lock()
		unsubscribe, ok := c.subs[msg.ID]
		delete(c.subs, msg.ID)
		c.mu.Unlock()
		if ok {
			unsubscribe()
		}
	}
}

func (c *client) forget(id uint64) {
	c.mu.Lock()
	delete(c.subs, id)
	c.mu.Unlock()
}

func (c *client) unsubscribeAll() {
	c.mu.Lock()
	subs := c.subs
	c.subs = make(map[uint64]func())
	c.mu.Unlock()
	for _, unsubscribe := range subs {
		unsubscribe()
	}
}

// push never blocks the sender; a page that stops reading loses events.
func (c *client) push(msg outbound) {
	select {
	case <-c.done:
	case c.send <- msg:
	default:
		c.hub.logger.Warn("dropping event for slow page", "channel", msg.Channel)
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		_ = c.conn.Close()
	})
}

// normalizeArgs renders error arguments as their message so they survive
// JSON encoding.
func normalizeArgs(args []any) []any {
	out := make([]any, len(args))
	for i, a := range args {
		if err, ok := a.(error); ok {
			out[i] = err.Error()
			continue
		}
		out[i] = a
	}
	return out
}
