package relay

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type BroadcastResult struct {
	Attempted int `json:"attempted"`
	Succeeded int `json:"succeeded"`
}

type Broadcaster struct {
	logger   *zap.Logger
	registry Registry

	sendTimeout time.Duration
	fanout      int
}

// NewBroadcaster returns a Broadcaster writing to at most fanout peers at a
// time. A fanout <= 0 means no limit.
func NewBroadcaster(
	logger *zap.Logger,
	registry Registry,
	sendTimeout time.Duration,
	fanout int,
) *Broadcaster {
	return &Broadcaster{
		logger:      logger,
		registry:    registry,
		sendTimeout: sendTimeout,
		fanout:      fanout,
	}
}

// Send writes payload to every registered connection except exclude. Pass
// NoConnection to deliver to everyone. Peers whose write fails are removed
// from the registry and closed. Send returns once every write has finished.
func (b *Broadcaster) Send(ctx context.Context, payload []byte, exclude ConnectionId) BroadcastResult {
	connections := b.registry.Snapshot()

	var group errgroup.Group
	if b.fanout > 0 {
		group.SetLimit(b.fanout)
	}

	var attempted, succeeded atomic.Int64

	for _, connection := range connections {
		if connection.Id == exclude {
			continue
		}

		// Peers not yet written to when ctx ends are left untouched.
		if ctx.Err() != nil {
			break
		}

		attempted.Add(1)

		group.Go(func() error {
			if err := connection.Send(payload, b.sendTimeout); err != nil {
				b.logger.Warn("failed to send to connection, removing it",
					zap.Stringer("connectionId", connection.Id),
					zap.Error(err))

				b.registry.Remove(connection.Id)
				_ = connection.Close()

				return nil
			}

			succeeded.Add(1)

			return nil
		})
	}

	_ = group.Wait()

	result := BroadcastResult{
		Attempted: int(attempted.Load()),
		Succeeded: int(succeeded.Load()),
	}

	b.logger.Debug("broadcast finished",
		zap.Int("attempted", result.Attempted),
		zap.Int("succeeded", result.Succeeded))

	return result
}
