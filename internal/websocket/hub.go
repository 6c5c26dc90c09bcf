// Showroom - Embeddable 3D Store Widget Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showroom

package websocket

import (
	"context"
	"sync"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/showroom/internal/logging"
	"github.com/tomtom215/showroom/internal/metrics"
)

// ShutdownReason identifies why the hub is shutting down.
type ShutdownReason string

const (
	// ShutdownReasonContextCanceled indicates the parent context was canceled.
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"

	// ShutdownReasonContextDeadline indicates the context deadline was exceeded.
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// Transport-level message types. Presence event names live in the presence
// package.
const (
	MessageTypeConnected = "connected"
	MessageTypePing      = "ping"
	MessageTypePong      = "pong"
	MessageTypeError     = "error"
)

// Message is an outbound frame.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// ConnectedPayload greets a new connection with its session id.
type ConnectedPayload struct {
	SID string `json:"sid"`
}

// ErrorPayload is the data of an error frame.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// RoomLookup resolves the current members of a store room.
type RoomLookup interface {
	MembersOf(room string) []string
}

// Hub maintains the set of active clients and delivers messages to them.
type Hub struct {
	clients    map[string]*Client
	rooms      RoomLookup
	Register   chan *Client
	Unregister chan *Client
	stopping   chan struct{}
	stopOnce   sync.Once
	mu         sync.Mutex
	logger     zerolog.Logger
}

// NewHub creates a hub that resolves room membership through rooms.
func NewHub(rooms RoomLookup) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		rooms:      rooms,
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		stopping:   make(chan struct{}),
		logger:     logging.WithComponent("websocket-hub"),
	}
}

// RunWithContext processes client registrations until ctx is canceled, then
// closes every connected client. It is designed to run under suture.
//
// Lifecycle events are drained before the next blocking wait so the client
// index is always current when a broadcast reads it.
func (h *Hub) RunWithContext(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()
		default:
		}

		select {
		case client := <-h.Register:
			h.register(client)
			continue
		case client := <-h.Unregister:
			h.unregister(client)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()
		case client := <-h.Register:
			h.register(client)
		case client := <-h.Unregister:
			h.unregister(client)
		}
	}
}

// Attach hands a freshly upgraded client to the hub. It returns false, and
// closes the connection, when the hub is shutting down.
func (h *Hub) Attach(c *Client) bool {
	select {
	case h.Register <- c:
		return true
	case <-h.stopping:
		_ = c.conn.Close()
		return false
	}
}

// detach removes c from the hub. It never blocks after shutdown.
func (h *Hub) detach(c *Client) {
	select {
	case h.Unregister <- c:
	case <-h.stopping:
	}
}

// register indexes the client, then starts its pumps. No inbound event can be
// processed before the client is reachable by broadcasts.
func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c.id] = c
	total := len(h.clients)
	h.mu.Unlock()

	metrics.WSConnections.Set(float64(total))
	h.logger.Info().Str("session_id", c.id).Int("total_clients", total).Msg("websocket client connected")

	c.start()
	h.SendToSession(c.id, MessageTypeConnected, ConnectedPayload{SID: c.id})
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	if cur, ok := h.clients[c.id]; ok && cur == c {
		delete(h.clients, c.id)
		close(c.send)
	}
	total := len(h.clients)
	h.mu.Unlock()

	metrics.WSConnections.Set(float64(total))
	h.logger.Info().Str("session_id", c.id).Int("total_clients", total).Msg("websocket client disconnected")
}

// BroadcastToRoom queues event for every current member of room except
// exclude. Members without a live connection are skipped.
func (h *Hub) BroadcastToRoom(room, event string, payload interface{}, exclude string) {
	frame, ok := encodeFrame(event, payload)
	if !ok {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for _, sid := range h.rooms.MembersOf(room) {
		if sid == exclude {
			continue
		}
		h.deliverLocked(sid, frame)
	}
}

// SendToSession queues event for a single session.
func (h *Hub) SendToSession(session, event string, payload interface{}) {
	frame, ok := encodeFrame(event, payload)
	if !ok {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.deliverLocked(session, frame)
}

// GetClientCount returns the number of connected clients.
func (h *Hub) GetClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) deliverLocked(session string, frame []byte) {
	c, ok := h.clients[session]
	if !ok {
		return
	}

	select {
	case c.send <- frame:
		metrics.WSMessagesSent.Inc()
	default:
		// The client stopped draining its queue. Closing send makes its write
		// pump hang up, which in turn runs the regular disconnect.
		delete(h.clients, session)
		close(c.send)
		metrics.WSErrors.WithLabelValues("send_buffer_full").Inc()
		metrics.WSConnections.Set(float64(len(h.clients)))
		h.logger.Warn().Str("session_id", session).Msg("websocket send queue full, closing client")
	}
}

func encodeFrame(event string, payload interface{}) ([]byte, bool) {
	frame, err := json.Marshal(Message{Type: event, Data: payload})
	if err != nil {
		metrics.WSErrors.WithLabelValues("encode").Inc()
		logging.Error().Err(err).Str("type", event).Msg("failed to encode websocket message")
		return nil, false
	}
	return frame, true
}

// shutdown closes every client and logs the reason. Context cancellation is
// the expected way to stop, so it is not logged as an error.
func (h *Hub) shutdown(ctx context.Context) {
	h.stopOnce.Do(func() { close(h.stopping) })

	h.mu.Lock()
	closed := len(h.clients)
	for sid, c := range h.clients {
		close(c.send)
		delete(h.clients, sid)
	}
	h.mu.Unlock()

	metrics.WSConnections.Set(0)
	h.logger.Info().
		Str("reason", string(getShutdownReason(ctx))).
		Int("clients_closed", closed).
		Msg("websocket hub stopped")
}

func getShutdownReason(ctx context.Context) ShutdownReason {
	if ctx.Err() == context.DeadlineExceeded {
		return ShutdownReasonContextDeadline
	}
	return ShutdownReasonContextCanceled
}
