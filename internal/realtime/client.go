package realtime

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Conn is the transport side of one live connection.
type Conn interface {
	// WriteText delivers one text frame. Calls are never concurrent with each other.
	WriteText(data []byte) error
	// Ping probes the peer; it may run concurrently with WriteText.
	Ping() error
	Close() error
}

// State is the lifecycle position of a client.
type State int32

const (
	StateOpen State = iota
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Client is a registered connection with its own bounded send queue.
type Client struct {
	id       string
	conn     Conn
	registry *Registry

	send      chan []byte
	done      chan struct{}
	state     atomic.Int32
	closeOnce sync.Once
}

func newClient(id string, conn Conn, registry *Registry, queueSize int) *Client {
	return &Client{
		id:       id,
		conn:     conn,
		registry: registry,
		send:     make(chan []byte, queueSize),
		done:     make(chan struct{}),
	}
}

// ID identifies the client in logs.
func (c *Client) ID() string {
	return c.id
}

// State reports where the client is in its open -> closing -> closed lifecycle.
func (c *Client) State() State {
	return State(c.state.Load())
}

// Done is closed once the client has been unregistered.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Run writes queued frames to the connection in order until the client is
// unregistered or ctx ends. A failed write unregisters the client.
func (c *Client) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			c.registry.Unregister(c)
			return
		case <-c.done:
			return
		case payload := <-c.send:
			if err := c.conn.WriteText(payload); err != nil {
				c.state.CompareAndSwap(int32(StateOpen), int32(StateClosing))
				c.registry.logger.Debug("write failed", zap.String("client_id", c.id), zap.Error(err))
				c.registry.Unregister(c)
				return
			}
		}
	}
}

func (c *Client) enqueue(payload []byte) bool {
	if c.State() != StateOpen {
		return false
	}
	select {
	case c.send <- payload:
		return true
	default:
		c.state.CompareAndSwap(int32(StateOpen), int32(StateClosing))
		return false
	}
}

func (c *Client) shutdown() {
	c.closeOnce.Do(func() {
		c.state.Store(int32(StateClosed))
		close(c.done)
		_ = c.conn.Close()
	})
}
