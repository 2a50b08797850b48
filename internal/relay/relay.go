package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/goevery/sharerelay/internal/ierr"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type Relay struct {
	logger      *zap.Logger
	registry    Registry
	broadcaster *Broadcaster

	shareRate  rate.Limit
	shareBurst int

	mu     sync.Mutex
	closed bool
}

// NewRelay returns a Relay that lets each connection share at most shareRate
// events per second with bursts of shareBurst. A shareRate <= 0 disables the
// limit.
func NewRelay(
	logger *zap.Logger,
	registry Registry,
	broadcaster *Broadcaster,
	shareRate float64,
	shareBurst int,
) *Relay {
	limit := rate.Inf
	if shareRate > 0 {
		limit = rate.Limit(shareRate)
	}

	if shareBurst < 1 {
		shareBurst = 1
	}

	return &Relay{
		logger:      logger,
		registry:    registry,
		broadcaster: broadcaster,
		shareRate:   limit,
		shareBurst:  shareBurst,
	}
}

// Accept registers transport as a new connection and runs its receive loop
// until the transport is closed or fails. The connection is removed from the
// registry on every exit path. After Close, Accept closes transport and
// returns at once.
func (r *Relay) Accept(ctx context.Context, transport Transport, clientIp string) {
	connection, ok := r.register(transport, clientIp)
	if !ok {
		r.logger.Debug("relay closed, rejecting connection",
			zap.String("clientIp", clientIp))

		return
	}

	logger := r.logger.With(
		zap.Stringer("connectionId", connection.Id),
		zap.String("clientIp", clientIp))

	defer func() {
		r.registry.Remove(connection.Id)
		_ = connection.Close()

		logger.Info("connection closed",
			zap.Int("connections", r.registry.Len()))
	}()

	logger.Info("connection registered",
		zap.Int("connections", r.registry.Len()))

	limiter := rate.NewLimiter(r.shareRate, r.shareBurst)

	for {
		message, err := connection.Receive()
		if ierr.CodeOf(err) == ierr.ErrorCodeInvalidArgument {
			logger.Warn("ignoring malformed message", zap.Error(err))

			continue
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				logger.Debug("connection closed by peer")
			} else {
				logger.Debug("connection read failed", zap.Error(err))
			}

			return
		}

		r.handleMessage(ctx, logger, connection, limiter, message)
	}
}

// register adds a connection for transport unless the relay is closed.
// Holding mu across Add keeps a registration from slipping past Close.
func (r *Relay) register(transport Transport, clientIp string) (*Connection, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		_ = transport.Close()

		return nil, false
	}

	connection := NewConnection(transport, clientIp)

	err := r.registry.Add(connection)
	if err != nil {
		_ = transport.Close()

		panic(fmt.Sprintf("inconsistent state: %v", err))
	}

	return connection, true
}

func (r *Relay) handleMessage(
	ctx context.Context,
	logger *zap.Logger,
	connection *Connection,
	limiter *rate.Limiter,
	message []byte,
) {
	event, err := ParseShareEvent(message)
	if err != nil {
		logger.Warn("ignoring malformed message", zap.Error(err))

		return
	}

	if !limiter.Allow() {
		logger.Warn("share rate exceeded, dropping event",
			zap.String("url", event.Url))

		return
	}

	result := r.broadcaster.Send(ctx, message, connection.Id)

	logger.Info("page shared",
		zap.String("url", event.Url),
		zap.Int("attempted", result.Attempted),
		zap.Int("succeeded", result.Succeeded))
}

func (r *Relay) ConnectionCount() int {
	return r.registry.Len()
}

// Close stops accepting connections and closes every registered one. Each
// receive loop then exits and removes its own connection.
func (r *Relay) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	for _, connection := range r.registry.Snapshot() {
		_ = connection.Close()
	}
}
