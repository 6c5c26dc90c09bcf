// Showroom - Embeddable 3D Store Widget Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/showroom

package websocket

import (
	"context"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/tomtom215/showroom/internal/logging"
	"github.com/tomtom215/showroom/internal/metrics"
	"github.com/tomtom215/showroom/internal/presence"
	"github.com/tomtom215/showroom/internal/validation"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512 * 1024 // 512 KB
)

// Presence is the set of transitions a connection can trigger.
type Presence interface {
	Join(session, room string)
	Leave(session, room string)
	MoveModel(session string, move presence.ModelMove)
	Disconnect(session string)
}

// ClientConfig bounds the resources of a single connection.
type ClientConfig struct {
	SendBuffer int
	RateLimit  float64 // inbound events per second
	RateBurst  int
}

// DefaultClientConfig returns the limits used when none are configured.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{SendBuffer: 64, RateLimit: 20, RateBurst: 40}
}

type inboundMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Client is a middleman between the websocket connection and the presence
// coordinator.
type Client struct {
	id       string
	hub      *Hub
	conn     *websocket.Conn
	presence Presence
	send     chan []byte
	limiter  *rate.Limiter
	logger   zerolog.Logger
}

// NewClient creates a client with a fresh session id.
func NewClient(hub *Hub, conn *websocket.Conn, p Presence, cfg ClientConfig) *Client {
	id := uuid.NewString()
	return &Client{
		id:       id,
		hub:      hub,
		conn:     conn,
		presence: p,
		send:     make(chan []byte, cfg.SendBuffer),
		limiter:  rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
		logger:   logging.Ctx(logging.ContextWithSessionID(context.Background(), id)).With().Str("component", "websocket").Logger(),
	}
}

// ID returns the session id.
func (c *Client) ID() string {
	return c.id
}

func (c *Client) start() {
	go c.writePump()
	go c.readPump()
}

// readPump reads frames until the connection fails. On exit the session is
// removed from presence before it is removed from the hub, so peers are told
// about the departure while the client is still indexed.
func (c *Client) readPump() {
	defer func() {
		c.presence.Disconnect(c.id)
		c.hub.detach(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("failed to set read deadline")
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				metrics.WSErrors.WithLabelValues("read").Inc()
				c.logger.Warn().Err(err).Msg("unexpected websocket close error")
			}
			return
		}
		c.handle(data)
	}
}

func (c *Client) handle(data []byte) {
	var msg inboundMessage
	if err := json.Unmarshal(data, &msg); err != nil || msg.Type == "" {
		metrics.WSErrors.WithLabelValues("malformed").Inc()
		c.reply(MessageTypeError, ErrorPayload{Code: "BAD_MESSAGE", Message: "message must be a JSON object with a type"})
		return
	}
	metrics.WSMessagesReceived.WithLabelValues(msg.Type).Inc()

	if !c.limiter.Allow() {
		metrics.WSErrors.WithLabelValues("rate_limited").Inc()
		c.reply(MessageTypeError, ErrorPayload{Code: "RATE_LIMITED", Message: "too many messages"})
		return
	}

	switch msg.Type {
	case MessageTypePing:
		c.reply(MessageTypePong, nil)

	case presence.EventJoinStore:
		var req presence.StoreRequest
		if c.decode(msg, &req) {
			c.presence.Join(c.id, req.StoreID)
		}

	case presence.EventLeaveStore:
		var req presence.StoreRequest
		if c.decode(msg, &req) {
			c.presence.Leave(c.id, req.StoreID)
		}

	case presence.EventModelMoved:
		var move presence.ModelMove
		if c.decode(msg, &move) {
			move.Raw = msg.Data
			c.presence.MoveModel(c.id, move)
		}

	default:
		metrics.WSErrors.WithLabelValues("unknown_type").Inc()
		c.reply(MessageTypeError, ErrorPayload{Code: "UNKNOWN_EVENT", Message: "unknown event type " + msg.Type})
	}
}

// decode unmarshals and validates the event payload, answering with an error
// frame when either step fails.
func (c *Client) decode(msg inboundMessage, dst interface{}) bool {
	if len(msg.Data) == 0 {
		msg.Data = json.RawMessage("{}")
	}
	if err := json.Unmarshal(msg.Data, dst); err != nil {
		metrics.WSErrors.WithLabelValues("malformed").Inc()
		c.reply(MessageTypeError, ErrorPayload{Code: "BAD_MESSAGE", Message: "invalid " + msg.Type + " payload"})
		return false
	}
	if verr := validation.ValidateStruct(dst); verr != nil {
		metrics.WSErrors.WithLabelValues("validation").Inc()
		c.reply(MessageTypeError, ErrorPayload{Code: validation.ErrCodeValidation, Message: verr.Error()})
		return false
	}
	return true
}

func (c *Client) reply(event string, payload interface{}) {
	c.hub.SendToSession(c.id, event, payload)
}

// writePump drains the send queue to the connection and keeps it alive with
// pings. A closed queue means the hub dropped the client.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error().Err(err).Msg("failed to set write deadline")
				return
			}
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				metrics.WSErrors.WithLabelValues("write").Inc()
				c.logger.Debug().Err(err).Msg("failed to write websocket message")
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
