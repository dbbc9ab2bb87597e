package ws

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	sendQueueSize = 64
	writeTimeout  = 10 * time.Second
	pongTimeout   = 60 * time.Second
	pingInterval  = 54 * time.Second
)

var (
	errClientGone    = errors.New("client closed")
	errSendQueueFull = errors.New("client send queue full")
)

// Client is one websocket endpoint. Outbound frames go through a buffered
// queue drained by a single pump goroutine, so frames for one connection
// keep their broadcast order and a slow peer cannot stall a fan-out.
type Client struct {
	conn *websocket.Conn
	send chan []byte

	closeOnce sync.Once
	done      chan struct{}
}

func newClient(conn *websocket.Conn) *Client {
	c := &Client{
		conn: conn,
		send: make(chan []byte, sendQueueSize),
		done: make(chan struct{}),
	}
	go c.writePump()
	return c
}

// Send queues a payload for delivery. It never blocks: a closed client or
// a full queue is reported as a delivery failure and the caller drops the
// endpoint.
func (c *Client) Send(payload []byte) error {
	select {
	case <-c.done:
		return errClientGone
	default:
	}

	select {
	case c.send <- payload:
		return nil
	case <-c.done:
		return errClientGone
	default:
		return errSendQueueFull
	}
}

// Close tears the connection down. Safe to call more than once.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
	return nil
}

// writePump serializes all writes to the connection and keeps the peer
// alive with periodic pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case payload := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.Close()
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		}
	}
}
