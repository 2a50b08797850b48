package relay

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func registerFakes(t *testing.T, registry Registry, n int) ([]*Connection, []*fakeTransport) {
	t.Helper()

	connections := make([]*Connection, n)
	transports := make([]*fakeTransport, n)
	for i := range n {
		transports[i] = newFakeTransport()
		connections[i] = NewConnection(transports[i], "127.0.0.1")
		require.NoError(t, registry.Add(connections[i]))
	}

	return connections, transports
}

func TestBroadcaster_Send(t *testing.T) {
	logger := zap.NewNop()
	payload := []byte(`{"type":"share_page","url":"tab/Radiohead/Creep"}`)

	t.Run("excludes the sender", func(t *testing.T) {
		registry := NewInMemoryRegistry(logger)
		broadcaster := NewBroadcaster(logger, registry, time.Second, 0)
		connections, transports := registerFakes(t, registry, 3)

		result := broadcaster.Send(context.Background(), payload, connections[0].Id)

		assert.Equal(t, BroadcastResult{Attempted: 2, Succeeded: 2}, result)
		assert.Empty(t, transports[0].messages())
		assert.Equal(t, []string{string(payload)}, transports[1].messages())
		assert.Equal(t, []string{string(payload)}, transports[2].messages())
	})

	t.Run("no exclusion delivers to everyone", func(t *testing.T) {
		registry := NewInMemoryRegistry(logger)
		broadcaster := NewBroadcaster(logger, registry, time.Second, 0)
		_, transports := registerFakes(t, registry, 3)

		result := broadcaster.Send(context.Background(), payload, NoConnection)

		assert.Equal(t, BroadcastResult{Attempted: 3, Succeeded: 3}, result)
		for _, transport := range transports {
			assert.Len(t, transport.messages(), 1)
		}
	})

	t.Run("failing peer is pruned without affecting others", func(t *testing.T) {
		registry := NewInMemoryRegistry(logger)
		broadcaster := NewBroadcaster(logger, registry, time.Second, 2)
		connections, transports := registerFakes(t, registry, 5)
		transports[3].setFailWrites(true)

		result := broadcaster.Send(context.Background(), payload, NoConnection)

		assert.Equal(t, BroadcastResult{Attempted: 5, Succeeded: 4}, result)
		for i, transport := range transports {
			if i == 3 {
				assert.Empty(t, transport.messages())
				assert.True(t, transport.isClosed())
				continue
			}
			assert.Equal(t, []string{string(payload)}, transport.messages())
		}

		assert.Equal(t, 4, registry.Len())
		assert.NotContains(t, snapshotIds(registry), connections[3].Id)
	})

	t.Run("stalled peer is dropped after the send timeout", func(t *testing.T) {
		sendTimeout := 100 * time.Millisecond
		registry := NewInMemoryRegistry(logger)
		broadcaster := NewBroadcaster(logger, registry, sendTimeout, 0)
		connections, transports := registerFakes(t, registry, 2)

		stalled := newStallingTransport()
		stalledConnection := NewConnection(stalled, "127.0.0.1")
		require.NoError(t, registry.Add(stalledConnection))

		start := time.Now()
		result := broadcaster.Send(context.Background(), payload, NoConnection)
		elapsed := time.Since(start)

		assert.Equal(t, BroadcastResult{Attempted: 3, Succeeded: 2}, result)
		assert.GreaterOrEqual(t, elapsed, sendTimeout-10*time.Millisecond)
		assert.Less(t, elapsed, maxStall/2)

		assert.True(t, stalled.isClosed())
		assert.Equal(t, 2, registry.Len())
		assert.NotContains(t, snapshotIds(registry), stalledConnection.Id)
		assert.ElementsMatch(t, []ConnectionId{connections[0].Id, connections[1].Id}, snapshotIds(registry))
		for _, transport := range transports {
			assert.Equal(t, []string{string(payload)}, transport.messages())
		}
	})

	t.Run("preserves order per peer", func(t *testing.T) {
		registry := NewInMemoryRegistry(logger)
		broadcaster := NewBroadcaster(logger, registry, time.Second, 0)
		_, transports := registerFakes(t, registry, 4)

		var want []string
		for i := range 20 {
			message := fmt.Sprintf(`{"type":"share_page","url":"tab/%d"}`, i)
			want = append(want, message)
			broadcaster.Send(context.Background(), []byte(message), NoConnection)
		}

		for _, transport := range transports {
			assert.Equal(t, want, transport.messages())
		}
	})

	t.Run("empty registry", func(t *testing.T) {
		registry := NewInMemoryRegistry(logger)
		broadcaster := NewBroadcaster(logger, registry, time.Second, 0)

		result := broadcaster.Send(context.Background(), payload, NoConnection)

		assert.Equal(t, BroadcastResult{}, result)
	})

	t.Run("cancelled context sends nothing", func(t *testing.T) {
		registry := NewInMemoryRegistry(logger)
		broadcaster := NewBroadcaster(logger, registry, time.Second, 0)
		_, transports := registerFakes(t, registry, 2)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		result := broadcaster.Send(ctx, payload, NoConnection)

		assert.Equal(t, BroadcastResult{}, result)
		assert.Equal(t, 2, registry.Len())
		for _, transport := range transports {
			assert.Empty(t, transport.messages())
		}
	})
}
