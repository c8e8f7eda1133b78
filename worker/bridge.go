package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// DefaultTimeout bounds how long Pending.Wait waits for a response.
const DefaultTimeout = 30 * time.Second

// BridgeOption configures a Bridge.
type BridgeOption func(*Bridge) error

// WithLogger sets the bridge logger. Dropped responses and lost
// connections are logged as warnings.
func WithLogger(log *zap.Logger) BridgeOption {
	return func(b *Bridge) error {
		if log == nil {
			return errors.New("worker logger must not be nil")
		}

		b.log = log

		return nil
	}
}

// WithTimeout sets the response timeout applied by Pending.Wait.
func WithTimeout(d time.Duration) BridgeOption {
	return func(b *Bridge) error {
		if d <= 0 {
			return fmt.Errorf("worker timeout must be > 0: %s", d)
		}

		b.timeout = d

		return nil
	}
}

type result struct {
	payload json.RawMessage
	err     error
}

// Bridge sends requests to a worker and correlates the responses. A nil
// transport stands for a missing worker: every request resolves to
// ErrWorkerUnavailable.
type Bridge struct {
	t       Transport
	log     *zap.Logger
	timeout time.Duration
	nextID  atomic.Uint64
	closing atomic.Bool

	mu      sync.Mutex
	pending map[uint64]chan result
	closed  bool

	done  chan struct{}
	ready *Pending
}

// NewBridge starts reading responses from t and sends INIT. The INIT
// handle is available from Ready.
func NewBridge(t Transport, opts ...BridgeOption) (*Bridge, error) {
	b := &Bridge{
		t:       t,
		log:     zap.NewNop(),
		timeout: DefaultTimeout,
		pending: make(map[uint64]chan result),
		done:    make(chan struct{}),
	}

	for _, opt := range opts {
		if err := opt(b); err != nil {
			return nil, err
		}
	}

	if t == nil {
		b.closed = true
		close(b.done)
	} else {
		go b.readLoop()
	}

	b.ready = b.Send(context.Background(), TypeInit, nil)

	return b, nil
}

// Ready returns the handle of the INIT request sent by NewBridge.
func (b *Bridge) Ready() *Pending { return b.ready }

// Send issues a request and returns immediately. payload is encoded as
// JSON; nil sends no payload.
func (b *Bridge) Send(ctx context.Context, typ Type, payload any) *Pending {
	id := b.nextID.Add(1)
	p := &Pending{ID: id, Type: typ, ch: make(chan result, 1), b: b}

	var raw json.RawMessage
	if payload != nil {
		enc, err := json.Marshal(payload)
		if err != nil {
			p.ch <- result{err: fmt.Errorf("worker: encode %s payload: %w", typ, err)}
			return p
		}

		raw = enc
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		p.ch <- result{err: ErrWorkerUnavailable}

		return p
	}

	b.pending[id] = p.ch
	b.mu.Unlock()

	go func() {
		if err := b.t.Send(ctx, Request{ID: id, Type: typ, Payload: raw}); err != nil {
			b.resolve(id, result{err: fmt.Errorf("%w: %v", ErrWorkerUnavailable, err)})
		}
	}()

	return p
}

// InFlight returns the number of requests waiting for a response.
func (b *Bridge) InFlight() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.pending)
}

// Close shuts the transport down and fails every outstanding request with
// ErrWorkerUnavailable.
func (b *Bridge) Close() error {
	b.closing.Store(true)

	var err error
	if b.t != nil {
		err = b.t.Close()
	}

	<-b.done
	b.failAll(ErrWorkerUnavailable)

	return err
}

// AnalyzeChunk requests ANALYZE_CHUNK for mono samples and waits for it.
func (b *Bridge) AnalyzeChunk(ctx context.Context, samples []float64, sampleRate float64) (ChunkAnalysis, error) {
	var out ChunkAnalysis
	err := b.Send(ctx, TypeAnalyzeChunk, ChunkRequest{AudioData: samples, SampleRate: sampleRate}).Decode(ctx, &out)

	return out, err
}

// Fingerprint requests FINGERPRINT for mono samples and waits for it.
func (b *Bridge) Fingerprint(ctx context.Context, samples []float64, sampleRate float64) (Fingerprint, error) {
	var out Fingerprint
	err := b.Send(ctx, TypeFingerprint, ChunkRequest{AudioData: samples, SampleRate: sampleRate}).Decode(ctx, &out)

	return out, err
}

// StoreBlob requests STORE_BLOB and waits for the stored key.
func (b *Bridge) StoreBlob(ctx context.Context, filename string, blob []byte) (StoreResult, error) {
	var out StoreResult
	err := b.Send(ctx, TypeStoreBlob, StoreRequest{Filename: filename, Blob: blob}).Decode(ctx, &out)

	return out, err
}

func (b *Bridge) readLoop() {
	defer close(b.done)

	for {
		resp, err := b.t.Receive()
		if err != nil {
			if !errors.Is(err, ErrTransportClosed) && !b.closing.Load() {
				b.log.Warn("worker connection lost", zap.Error(err))
			}

			b.failAll(fmt.Errorf("%w: %v", ErrWorkerUnavailable, err))

			return
		}

		r := result{payload: resp.Payload}
		if resp.Error != "" || resp.Type == TypeError {
			r = result{err: &Error{ID: resp.ID, Message: resp.Error}}
		}

		if !b.resolve(resp.ID, r) {
			b.log.Warn("dropping response for unknown request",
				zap.Uint64("id", resp.ID),
				zap.String("type", string(resp.Type)))
		}
	}
}

func (b *Bridge) resolve(id uint64, r result) bool {
	b.mu.Lock()
	ch, ok := b.pending[id]
	delete(b.pending, id)
	b.mu.Unlock()

	if ok {
		ch <- r
	}

	return ok
}

func (b *Bridge) forget(id uint64) {
	b.mu.Lock()
	delete(b.pending, id)
	b.mu.Unlock()
}

func (b *Bridge) failAll(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	for id, ch := range b.pending {
		ch <- result{err: err}
		delete(b.pending, id)
	}
}

// Pending is the handle of one in-flight request. Wait may be called once.
type Pending struct {
	ID   uint64
	Type Type

	ch chan result
	b  *Bridge
}

// Wait blocks until the response arrives, ctx ends or the bridge timeout
// passes. A worker-side failure is returned as *Error; everything that
// leaves the request unanswered wraps ErrWorkerUnavailable.
func (p *Pending) Wait(ctx context.Context) (json.RawMessage, error) {
	timer := time.NewTimer(p.b.timeout)
	defer timer.Stop()

	select {
	case r := <-p.ch:
		return r.payload, r.err
	case <-ctx.Done():
		p.b.forget(p.ID)
		return nil, fmt.Errorf("%w: %v", ErrWorkerUnavailable, ctx.Err())
	case <-timer.C:
		p.b.forget(p.ID)
		return nil, fmt.Errorf("%w: no response to %s after %s", ErrWorkerUnavailable, p.Type, p.b.timeout)
	}
}

// Decode waits for the response and unmarshals its payload into v.
func (p *Pending) Decode(ctx context.Context, v any) error {
	raw, err := p.Wait(ctx)
	if err != nil {
		return err
	}

	if len(raw) == 0 {
		return nil
	}

	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("worker: decode %s response: %w", p.Type, err)
	}

	return nil
}
