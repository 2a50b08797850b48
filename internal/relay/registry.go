package relay

import (
	"errors"
	"sync"

	"github.com/goevery/sharerelay/internal/ierr"
	"go.uber.org/zap"
)

type Registry interface {
	Add(connection *Connection) error
	Remove(connectionId ConnectionId)
	// Snapshot returns a point-in-time copy of the registered connections.
	// The returned slice is owned by the caller.
	Snapshot() []*Connection
	Len() int
}

type InMemoryRegistry struct {
	logger *zap.Logger
	mu     sync.RWMutex

	connections map[ConnectionId]*Connection
}

func NewInMemoryRegistry(
	logger *zap.Logger,
) *InMemoryRegistry {
	return &InMemoryRegistry{
		logger:      logger,
		connections: make(map[ConnectionId]*Connection),
	}
}

func (r *InMemoryRegistry) Add(connection *Connection) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.connections[connection.Id]; ok {
		return ierr.New(ierr.ErrorCodeAlreadyExists, errors.New("connection already registered: "+connection.Id.String()))
	}

	r.connections[connection.Id] = connection

	return nil
}

func (r *InMemoryRegistry) Remove(connectionId ConnectionId) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.connections[connectionId]; !ok {
		return
	}

	delete(r.connections, connectionId)

	r.logger.Debug("connection removed from registry",
		zap.Stringer("connectionId", connectionId),
		zap.Int("connections", len(r.connections)))
}

func (r *InMemoryRegistry) Snapshot() []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	connections := make([]*Connection, 0, len(r.connections))
	for _, connection := range r.connections {
		connections = append(connections, connection)
	}

	return connections
}

func (r *InMemoryRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.connections)
}
