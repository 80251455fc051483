package realtime

import (
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"homeservices/backend/internal/models"
)

// Client is one live connection. It carries no identity until the
// synchronizer admits it.
type Client struct {
	ID string

	mu          sync.Mutex
	send        chan []byte
	closed      bool
	closeCode   int
	closeReason string
	identity    *models.Identity
}

func NewClient(buffer int) *Client {
	if buffer <= 0 {
		buffer = 32
	}
	return &Client{
		ID:        uuid.NewString(),
		send:      make(chan []byte, buffer),
		closeCode: websocket.CloseNormalClosure,
	}
}

func (c *Client) Identity() (models.Identity, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.identity == nil {
		return models.Identity{}, false
	}
	return *c.identity, true
}

func (c *Client) setIdentity(identity models.Identity) {
	c.mu.Lock()
	c.identity = &identity
	c.mu.Unlock()
}

// deliver queues message without blocking. It reports false when the client
// is closed or its buffer is full.
func (c *Client) deliver(message []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- message:
		return true
	default:
		return false
	}
}

// Messages is drained by the write pump. It is closed once the client shuts down.
func (c *Client) Messages() <-chan []byte {
	return c.send
}

func (c *Client) shutdown(code int, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.closeCode = code
	c.closeReason = reason
	close(c.send)
}

func (c *Client) close() {
	c.shutdown(websocket.CloseNormalClosure, "")
}

func (c *Client) closeMessage() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return websocket.FormatCloseMessage(c.closeCode, c.closeReason)
}
