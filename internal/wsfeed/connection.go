// Package wsfeed streams trade decisions to WebSocket subscribers. It is a
// read-only feed: clients connect, authenticate, and receive every decision
// the bot emits.
package wsfeed

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Connection is one WebSocket subscriber
type Connection struct {
	ID     string
	UserID string
	Conn   *websocket.Conn
	Send   chan []byte

	mu       sync.Mutex
	lastPong time.Time
	closed   bool
}

// NewConnection wraps an upgraded WebSocket connection
func NewConnection(conn *websocket.Conn, userID string, sendBuffer int) *Connection {
	return &Connection{
		ID:       uuid.New().String(),
		UserID:   userID,
		Conn:     conn,
		Send:     make(chan []byte, sendBuffer),
		lastPong: time.Now(),
	}
}

// Enqueue queues a message for delivery. A full send buffer means the
// client is too slow; the message is dropped and an error returned. The
// lock is held through the send so Close cannot race the channel.
func (c *Connection) Enqueue(message []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return fmt.Errorf("connection %s is closed", c.ID)
	}

	select {
	case c.Send <- message:
		return nil
	default:
		return fmt.Errorf("send buffer full for connection %s", c.ID)
	}
}

// UpdateLastPong records client liveness
func (c *Connection) UpdateLastPong() {
	c.mu.Lock()
	c.lastPong = time.Now()
	c.mu.Unlock()
}

// LastPong returns the time of the last pong from the client
func (c *Connection) LastPong() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastPong
}

// Close closes the underlying connection once
func (c *Connection) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.Send)
	c.Conn.Close()
}
