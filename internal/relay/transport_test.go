package relay

import (
	"errors"
	"io"
	"os"
	"sync"
	"time"
)

var errWriteFailed = errors.New("write failed")

type fakeTransport struct {
	inbound    chan []byte
	readErrors chan error
	closed     chan struct{}

	mu         sync.Mutex
	written    [][]byte
	failWrites bool
	closeOnce  sync.Once
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		inbound:    make(chan []byte, 16),
		readErrors: make(chan error, 16),
		closed:     make(chan struct{}),
	}
}

func (t *fakeTransport) ReadMessage() ([]byte, error) {
	select {
	case message, ok := <-t.inbound:
		if !ok {
			return nil, io.EOF
		}

		return message, nil
	case err := <-t.readErrors:
		return nil, err
	case <-t.closed:
		return nil, io.EOF
	}
}

func (t *fakeTransport) WriteMessage(data []byte, deadline time.Time) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.failWrites || t.isClosed() {
		return errWriteFailed
	}

	t.written = append(t.written, data)

	return nil
}

func (t *fakeTransport) Close() error {
	t.closeOnce.Do(func() {
		close(t.closed)
	})

	return nil
}

func (t *fakeTransport) isClosed() bool {
	select {
	case <-t.closed:
		return true
	default:
		return false
	}
}

func (t *fakeTransport) messages() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	messages := make([]string, len(t.written))
	for i, m := range t.written {
		messages[i] = string(m)
	}

	return messages
}

func (t *fakeTransport) setFailWrites(fail bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.failWrites = fail
}

// stallingTransport never completes a write. It blocks until the write
// deadline passes, or until maxStall when no deadline is set.
type stallingTransport struct {
	*fakeTransport
}

const maxStall = 5 * time.Second

func newStallingTransport() *stallingTransport {
	return &stallingTransport{newFakeTransport()}
}

func (t *stallingTransport) WriteMessage(data []byte, deadline time.Time) error {
	wait := maxStall
	if !deadline.IsZero() {
		wait = time.Until(deadline)
	}

	select {
	case <-time.After(wait):
		return os.ErrDeadlineExceeded
	case <-t.closed:
		return errWriteFailed
	}
}
