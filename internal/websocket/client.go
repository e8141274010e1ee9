package websocket

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	writeWait = 10 * time.Second
	pongWait  = 60 * time.Second
	// must stay below pongWait
	pingPeriod = (pongWait * 9) / 10
	// large enough for a subscribe message listing every entity
	maxMessageSize = 1024
	sendBuffer     = 64
)

// Client is one browser tab following a workspace's loan and summary events
type Client struct {
	id          string
	workspaceID int32
	conn        *websocket.Conn
	hub         *Hub
	events      chan Event

	mu     sync.RWMutex
	sub    Subscription
	closed bool
	once   sync.Once
}

var _ Subscriber = (*Client)(nil)

// NewClient creates a client for an upgraded connection
func NewClient(conn *websocket.Conn, workspaceID int32, sub Subscription, hub *Hub) *Client {
	return &Client{
		id:          uuid.New().String(),
		workspaceID: workspaceID,
		conn:        conn,
		hub:         hub,
		events:      make(chan Event, sendBuffer),
		sub:         sub,
	}
}

func (c *Client) ID() string {
	return c.id
}

func (c *Client) WorkspaceID() int32 {
	return c.workspaceID
}

// Wants reports whether the client's current subscription accepts the event
func (c *Client) Wants(event Event) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sub.Matches(event)
}

// Subscribe replaces the client's subscription
func (c *Client) Subscribe(sub Subscription) {
	c.mu.Lock()
	c.sub = sub
	c.mu.Unlock()
}

// Send queues an event without blocking. A full queue means the client
// cannot keep up and the event is refused.
func (c *Client) Send(event Event) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return ErrClientClosed
	}
	select {
	case c.events <- event:
		return nil
	default:
		return ErrClientSlow
	}
}

// Close is safe to call from both pumps and the hub
func (c *Client) Close() error {
	var err error
	c.once.Do(func() {
		c.mu.Lock()
		c.closed = true
		close(c.events)
		c.mu.Unlock()
		err = c.conn.Close()
	})
	return err
}

// ReadPump handles subscribe messages until the connection drops. Run it in
// its own goroutine.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Str("client_id", c.id).Int32("workspace_id", c.workspaceID).Msg("WebSocket unexpected close")
			}
			return
		}

		sub, err := parseSubscribeMessage(data)
		if err != nil {
			log.Debug().Err(err).Str("client_id", c.id).Int32("workspace_id", c.workspaceID).Msg("Ignoring WebSocket message")
			continue
		}
		c.Subscribe(sub)
	}
}

// WritePump writes queued events as JSON and keeps the connection alive
// with pings. Run it in its own goroutine.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case event, ok := <-c.events:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(event); err != nil {
				log.Warn().
					Err(err).
					Str("client_id", c.id).
					Int32("workspace_id", c.workspaceID).
					Str("event_type", event.Type).
					Msg("WebSocket write error")
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
