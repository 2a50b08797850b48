package relay

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// ConnectionId identifies a registered connection for its whole lifetime.
// The zero value, NoConnection, never identifies a live connection.
type ConnectionId uuid.UUID

var NoConnection ConnectionId

func NewConnectionId() ConnectionId {
	return ConnectionId(uuid.New())
}

func (id ConnectionId) String() string {
	return uuid.UUID(id).String()
}

// Transport is the duplex message channel behind a Connection. One call to
// ReadMessage or WriteMessage carries exactly one logical event.
type Transport interface {
	// ReadMessage returns the next message. An ierr InvalidArgument error
	// reports an unusable message; the connection stays open.
	ReadMessage() ([]byte, error)
	// WriteMessage writes one message. A zero deadline means no deadline.
	WriteMessage(data []byte, deadline time.Time) error
	Close() error
}

type Connection struct {
	Id           ConnectionId
	ClientIp     string
	RegisteredAt time.Time

	transport Transport

	writeMu   sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

func NewConnection(transport Transport, clientIp string) *Connection {
	return &Connection{
		Id:           NewConnectionId(),
		ClientIp:     clientIp,
		RegisteredAt: time.Now(),
		transport:    transport,
	}
}

// Send writes payload to the peer. Writes are serialized so a peer observes
// payloads in the order Send was called for it.
func (c *Connection) Send(payload []byte, timeout time.Duration) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}

	return c.transport.WriteMessage(payload, deadline)
}

func (c *Connection) Receive() ([]byte, error) {
	return c.transport.ReadMessage()
}

// Close closes the underlying transport. It is safe to call more than once.
func (c *Connection) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.transport.Close()
	})

	return c.closeErr
}
