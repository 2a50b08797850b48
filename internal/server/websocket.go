package server

import (
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/goevery/sharerelay/internal/ierr"
	"github.com/goevery/sharerelay/internal/relay"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const closeGracePeriod = time.Second

type WebSocketServer struct {
	logger   *zap.Logger
	upgrader *websocket.Upgrader
	relay    *relay.Relay

	readLimit int64
}

func NewWebSocketServer(
	logger *zap.Logger,
	upgrader *websocket.Upgrader,
	relay *relay.Relay,
	readLimit int64,
) *WebSocketServer {
	return &WebSocketServer{
		logger,
		upgrader,
		relay,
		readLimit,
	}
}

func (s *WebSocketServer) Register(router *mux.Router) {
	router.HandleFunc("/", s.handle)
	router.HandleFunc("/ws", s.handle)
}

func (s *WebSocketServer) handle(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	if s.readLimit > 0 {
		conn.SetReadLimit(s.readLimit)
	}

	s.relay.Accept(r.Context(), NewWebSocketTransport(conn), clientIp(r))
}

type WebSocketTransport struct {
	connection *websocket.Conn
}

func NewWebSocketTransport(connection *websocket.Conn) *WebSocketTransport {
	return &WebSocketTransport{
		connection,
	}
}

func (t *WebSocketTransport) ReadMessage() ([]byte, error) {
	messageType, data, err := t.connection.ReadMessage()
	if err != nil {
		if websocket.IsCloseError(err,
			websocket.CloseNormalClosure,
			websocket.CloseGoingAway,
			websocket.CloseNoStatusReceived) {
			return nil, io.EOF
		}

		return nil, err
	}

	if messageType != websocket.TextMessage {
		return nil, ierr.New(ierr.ErrorCodeInvalidArgument, errors.New("only text messages are accepted"))
	}

	return data, nil
}

func (t *WebSocketTransport) WriteMessage(data []byte, deadline time.Time) error {
	if err := t.connection.SetWriteDeadline(deadline); err != nil {
		return err
	}

	return t.connection.WriteMessage(websocket.TextMessage, data)
}

// Close sends a best-effort close frame before closing the socket.
func (t *WebSocketTransport) Close() error {
	_ = t.connection.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
		time.Now().Add(closeGracePeriod))

	return t.connection.Close()
}

type OriginChecker struct {
	allowedOrigins []string
}

// NewOriginChecker returns a checker accepting the given origins. With no
// origins every request is accepted.
func NewOriginChecker(allowedOrigins []string) *OriginChecker {
	return &OriginChecker{
		allowedOrigins,
	}
}

func (c *OriginChecker) Check(r *http.Request) bool {
	if len(c.allowedOrigins) == 0 {
		return true
	}

	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	for _, allowed := range c.allowedOrigins {
		if strings.EqualFold(origin, allowed) {
			return true
		}
	}

	return false
}

func clientIp(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}

	if realIp := r.Header.Get("X-Real-IP"); realIp != "" {
		return realIp
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}

	return host
}
