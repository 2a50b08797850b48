package relay

import (
	"sync"
	"testing"

	"github.com/goevery/sharerelay/internal/ierr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func snapshotIds(registry Registry) []ConnectionId {
	var ids []ConnectionId
	for _, connection := range registry.Snapshot() {
		ids = append(ids, connection.Id)
	}

	return ids
}

func TestInMemoryRegistry(t *testing.T) {
	logger := zap.NewNop()

	t.Run("snapshot reflects adds and removes", func(t *testing.T) {
		registry := NewInMemoryRegistry(logger)

		c1 := NewConnection(newFakeTransport(), "127.0.0.1")
		c2 := NewConnection(newFakeTransport(), "127.0.0.1")
		c3 := NewConnection(newFakeTransport(), "127.0.0.1")

		require.NoError(t, registry.Add(c1))
		require.NoError(t, registry.Add(c2))
		require.NoError(t, registry.Add(c3))
		registry.Remove(c2.Id)

		assert.ElementsMatch(t, []ConnectionId{c1.Id, c3.Id}, snapshotIds(registry))
		assert.Equal(t, 2, registry.Len())
	})

	t.Run("duplicate identity", func(t *testing.T) {
		registry := NewInMemoryRegistry(logger)
		connection := NewConnection(newFakeTransport(), "127.0.0.1")

		require.NoError(t, registry.Add(connection))
		err := registry.Add(connection)

		assert.Error(t, err)
		assert.Equal(t, ierr.ErrorCodeAlreadyExists, ierr.CodeOf(err))
		assert.Equal(t, 1, registry.Len())
	})

	t.Run("remove is idempotent", func(t *testing.T) {
		registry := NewInMemoryRegistry(logger)
		c1 := NewConnection(newFakeTransport(), "127.0.0.1")
		c2 := NewConnection(newFakeTransport(), "127.0.0.1")
		require.NoError(t, registry.Add(c1))
		require.NoError(t, registry.Add(c2))

		registry.Remove(c1.Id)
		registry.Remove(c1.Id)
		registry.Remove(NoConnection)

		assert.Equal(t, []ConnectionId{c2.Id}, snapshotIds(registry))
	})

	t.Run("concurrent removes of the same identity", func(t *testing.T) {
		registry := NewInMemoryRegistry(logger)
		connection := NewConnection(newFakeTransport(), "127.0.0.1")
		require.NoError(t, registry.Add(connection))

		var wg sync.WaitGroup
		for range 16 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				registry.Remove(connection.Id)
			}()
		}
		wg.Wait()

		assert.Equal(t, 0, registry.Len())
	})

	t.Run("snapshot is not affected by later changes", func(t *testing.T) {
		registry := NewInMemoryRegistry(logger)
		c1 := NewConnection(newFakeTransport(), "127.0.0.1")
		c2 := NewConnection(newFakeTransport(), "127.0.0.1")
		require.NoError(t, registry.Add(c1))

		snapshot := registry.Snapshot()

		require.NoError(t, registry.Add(c2))
		registry.Remove(c1.Id)

		require.Len(t, snapshot, 1)
		assert.Equal(t, c1.Id, snapshot[0].Id)
		assert.Equal(t, []ConnectionId{c2.Id}, snapshotIds(registry))
	})

	t.Run("concurrent adds, removes and snapshots", func(t *testing.T) {
		registry := NewInMemoryRegistry(logger)

		kept := make([]*Connection, 50)
		removed := make([]*Connection, 50)
		for i := range kept {
			kept[i] = NewConnection(newFakeTransport(), "127.0.0.1")
			removed[i] = NewConnection(newFakeTransport(), "127.0.0.1")
		}

		var wg sync.WaitGroup
		for i := range kept {
			wg.Add(3)
			go func() {
				defer wg.Done()
				assert.NoError(t, registry.Add(kept[i]))
			}()
			go func() {
				defer wg.Done()
				assert.NoError(t, registry.Add(removed[i]))
				registry.Remove(removed[i].Id)
			}()
			go func() {
				defer wg.Done()
				_ = registry.Snapshot()
			}()
		}
		wg.Wait()

		var want []ConnectionId
		for _, connection := range kept {
			want = append(want, connection.Id)
		}

		assert.ElementsMatch(t, want, snapshotIds(registry))
	})
}
