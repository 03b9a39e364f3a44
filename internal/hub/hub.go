// Package hub pushes viewport commands and station views to browser map
// clients over WebSocket, and forwards their marker clicks and zoom changes
// back to the server.
package hub

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/bbernstein/stationmap/internal/metrics"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096

	defaultSendBuffer = 64
)

type Option func(*Hub)

// WithSelectHandler receives marker clicks. A nil id clears the selection.
func WithSelectHandler(fn func(id *int)) Option {
	return func(h *Hub) {
		h.onSelect = fn
	}
}

// WithZoomHandler receives the zoom level a client reports after the user
// zooms.
func WithZoomHandler(fn func(zoom float64)) Option {
	return func(h *Hub) {
		h.onZoom = fn
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Hub) {
		h.metrics = m
	}
}

func WithSendBuffer(size int) Option {
	return func(h *Hub) {
		h.sendBuffer = size
	}
}

// WithInboundRate limits how many frames per second each client may send.
func WithInboundRate(perSecond float64, burst int) Option {
	return func(h *Hub) {
		h.inboundRate = rate.Limit(perSecond)
		h.inboundBurst = burst
	}
}

type Hub struct {
	upgrader     websocket.Upgrader
	onSelect     func(id *int)
	onZoom       func(zoom float64)
	metrics      *metrics.Metrics
	sendBuffer   int
	inboundRate  rate.Limit
	inboundBurst int

	mu      sync.RWMutex
	clients map[string]*client
	// last frame of each type, replayed to clients that join late
	last   map[string][]byte
	closed bool
}

func New(opts ...Option) *Hub {
	h := &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		sendBuffer:   defaultSendBuffer,
		inboundRate:  20,
		inboundBurst: 40,
		clients:      make(map[string]*client),
		last:         make(map[string][]byte),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ServeHTTP upgrades the request and attaches the connection as a client.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	c := &client{
		id:      uuid.NewString(),
		hub:     h,
		conn:    conn,
		send:    make(chan []byte, h.sendBuffer),
		limiter: rate.NewLimiter(h.inboundRate, h.inboundBurst),
	}
	if !h.register(c) {
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return false
	}
	h.clients[c.id] = c
	for _, kind := range []string{FrameView, FrameCommand} {
		if data, ok := h.last[kind]; ok {
			select {
			case c.send <- data:
			default:
			}
		}
	}
	h.metrics.SetWSClients(len(h.clients))
	log.Info().Str("client_id", c.id).Int("clients", len(h.clients)).Msg("Map client connected")
	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c.id]; !ok {
		return
	}
	delete(h.clients, c.id)
	close(c.send)
	h.metrics.SetWSClients(len(h.clients))
	log.Info().Str("client_id", c.id).Int("clients", len(h.clients)).Msg("Map client disconnected")
}

// Broadcast sends frame to every client. A client whose buffer is full
// misses the frame.
func (h *Hub) Broadcast(frame Frame) {
	data, err := json.Marshal(frame)
	if err != nil {
		log.Error().Err(err).Str("type", frame.Type).Msg("Failed to encode frame")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.last[frame.Type] = data
	for id, c := range h.clients {
		select {
		case c.send <- data:
		default:
			log.Warn().Str("client_id", id).Str("type", frame.Type).Msg("Client buffer full, dropping frame")
		}
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for id, c := range h.clients {
		delete(h.clients, id)
		close(c.send)
	}
	h.metrics.SetWSClients(0)
}

func (h *Hub) handle(c *client, data []byte) {
	msg, err := parseInbound(data)
	if err != nil {
		log.Debug().Err(err).Str("client_id", c.id).Msg("Ignoring client frame")
		return
	}

	switch msg.kind {
	case FrameSelect:
		if h.onSelect != nil {
			h.onSelect(msg.id)
		}
	case FrameZoom:
		if h.onZoom != nil {
			h.onZoom(msg.zoom)
		}
	}
}

type client struct {
	id      string
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	limiter *rate.Limiter
}

func (c *client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Str("client_id", c.id).Msg("Map client read failed")
			}
			return
		}
		if !c.limiter.Allow() {
			log.Warn().Str("client_id", c.id).Msg("Client frame rate exceeded, dropping frame")
			continue
		}
		c.hub.handle(c, data)
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Debug().Err(err).Str("client_id", c.id).Msg("Map client write failed")
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
