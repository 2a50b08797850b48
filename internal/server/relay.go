package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync/atomic"

	"github.com/goevery/sharerelay/internal/ierr"
	"github.com/goevery/sharerelay/internal/relay"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// RelayServer runs the websocket relay on its own listener so the rest of the
// site keeps working when the relay cannot start.
type RelayServer struct {
	logger          *zap.Logger
	relay           *relay.Relay
	websocketServer *WebSocketServer

	httpServer *http.Server
	address    string
	running    atomic.Bool
}

func NewRelayServer(
	logger *zap.Logger,
	relay *relay.Relay,
	websocketServer *WebSocketServer,
) *RelayServer {
	return &RelayServer{
		logger:          logger,
		relay:           relay,
		websocketServer: websocketServer,
	}
}

// Start binds address and serves in the background. A bind failure is
// returned as an Unavailable error.
func (s *RelayServer) Start(address string) error {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return ierr.New(ierr.ErrorCodeUnavailable, err)
	}

	router := mux.NewRouter()
	s.websocketServer.Register(router)

	s.httpServer = &http.Server{
		Handler: router,
	}
	s.address = listener.Addr().String()
	s.running.Store(true)

	s.logger.Info("relay server started",
		zap.String("address", s.address))

	go func() {
		err := s.httpServer.Serve(listener)
		s.running.Store(false)

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("relay server stopped unexpectedly", zap.Error(err))
		}
	}()

	return nil
}

// Addr returns the bound address, or "" before a successful Start.
func (s *RelayServer) Addr() string {
	return s.address
}

func (s *RelayServer) Running() bool {
	return s.running.Load()
}

func (s *RelayServer) ConnectionCount() int {
	return s.relay.ConnectionCount()
}

// Shutdown stops accepting connections and closes the live ones.
func (s *RelayServer) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}

	err := s.httpServer.Shutdown(ctx)
	s.relay.Close()

	return err
}
