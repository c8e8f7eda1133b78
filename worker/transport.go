package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ErrTransportClosed is returned by a Transport after Close.
var ErrTransportClosed = errors.New("worker: transport closed")

// Transport carries requests to a worker and responses back. Send may be
// called concurrently with Receive; Receive is called from one goroutine.
type Transport interface {
	Send(ctx context.Context, req Request) error
	// Receive blocks until a response arrives or the transport closes.
	Receive() (Response, error)
	Close() error
}

// Loopback runs a Handler in process. Each request is handled on its own
// goroutine, so Send never waits for the command to finish.
type Loopback struct {
	h      *Handler
	out    chan Response
	done   chan struct{}
	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewLoopback returns a transport serving requests with h.
func NewLoopback(h *Handler) *Loopback {
	return &Loopback{
		h:    h,
		out:  make(chan Response, 16),
		done: make(chan struct{}),
	}
}

// Send implements Transport.
func (l *Loopback) Send(ctx context.Context, req Request) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrTransportClosed
	}

	l.wg.Add(1)
	l.mu.Unlock()

	go func() {
		defer l.wg.Done()

		resp := l.h.Handle(context.WithoutCancel(ctx), req)
		select {
		case l.out <- resp:
		case <-l.done:
		}
	}()

	return nil
}

// Receive implements Transport.
func (l *Loopback) Receive() (Response, error) {
	select {
	case resp := <-l.out:
		return resp, nil
	case <-l.done:
		return Response{}, ErrTransportClosed
	}
}

// Close implements Transport. It waits for running commands to finish.
func (l *Loopback) Close() error {
	l.mu.Lock()
	if !l.closed {
		l.closed = true
		close(l.done)
	}
	l.mu.Unlock()

	l.wg.Wait()

	return nil
}

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 64 << 20
)

// WSTransport talks to a worker Server over a WebSocket connection.
type WSTransport struct {
	conn *websocket.Conn
	wmu  sync.Mutex
	once sync.Once
}

// DialWebSocket connects to a worker endpoint such as ws://host:8090/ws.
func DialWebSocket(ctx context.Context, url string) (*WSTransport, error) {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", ErrWorkerUnavailable, url, err)
	}

	conn.SetReadLimit(maxMessageSize)

	return &WSTransport{conn: conn}, nil
}

// Send implements Transport.
func (t *WSTransport) Send(ctx context.Context, req Request) error {
	deadline := time.Now().Add(writeWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	t.wmu.Lock()
	defer t.wmu.Unlock()

	if err := t.conn.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("worker: set write deadline: %w", err)
	}

	if err := t.conn.WriteJSON(req); err != nil {
		return fmt.Errorf("worker: write request %d: %w", req.ID, err)
	}

	return nil
}

// Receive implements Transport.
func (t *WSTransport) Receive() (Response, error) {
	var resp Response
	if err := t.conn.ReadJSON(&resp); err != nil {
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			return Response{}, ErrTransportClosed
		}

		return Response{}, fmt.Errorf("worker: read response: %w", err)
	}

	return resp, nil
}

// Close implements Transport.
func (t *WSTransport) Close() error {
	var err error

	t.once.Do(func() {
		t.wmu.Lock()
		_ = t.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		t.wmu.Unlock()

		err = t.conn.Close()
	})

	return err
}
