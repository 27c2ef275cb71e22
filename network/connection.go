package network

import (
	"context"
	"encoding/json"
	"net"
	"sync"

	"github.com/gorilla/websocket"
)

// Frame is the unit of channel traffic in both directions. Ref is set
// on client pushes and echoed back on their replies; server-initiated
// game events carry no ref.
type Frame struct {
	Topic   string          `json:"topic"`
	Event   string          `json:"event"`
	Ref     string          `json:"ref,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type Connection interface {
	WriteFrame(frame *Frame) error
	ReadFrame() (*Frame, error)
	Close() error
	RemoteAddr() net.Addr
}

// Dialer opens a Connection to a websocket endpoint.
type Dialer interface {
	Dial(ctx context.Context, url string) (Connection, error)
}

type WSConnection struct {
	conn      *websocket.Conn
	sendMutex sync.Mutex
}

func NewWSConnection(conn *websocket.Conn) *WSConnection {
	return &WSConnection{conn: conn}
}

func (c *WSConnection) WriteFrame(frame *Frame) error {
	// WriteJSON is not safe for concurrent writers.
	c.sendMutex.Lock()
	defer c.sendMutex.Unlock()
	return c.conn.WriteJSON(frame)
}

func (c *WSConnection) ReadFrame() (*Frame, error) {
	var frame Frame
	if err := c.conn.ReadJSON(&frame); err != nil {
		return nil, err
	}
	return &frame, nil
}

func (c *WSConnection) Close() error {
	return c.conn.Close()
}

func (c *WSConnection) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// WSDialer dials with gorilla's default websocket dialer.
type WSDialer struct{}

func (WSDialer) Dial(ctx context.Context, url string) (Connection, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return NewWSConnection(conn), nil
}
