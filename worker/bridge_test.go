package worker

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cwbudde/algo-djmix/internal/testutil"
)

// scriptedTransport hands sent requests to the test and replays whatever
// responses the test queues.
type scriptedTransport struct {
	sent chan Request
	in   chan Response
	done chan struct{}
	once sync.Once
}

func newScriptedTransport() *scriptedTransport {
	return &scriptedTransport{
		sent: make(chan Request, 16),
		in:   make(chan Response, 16),
		done: make(chan struct{}),
	}
}

func (s *scriptedTransport) Send(_ context.Context, req Request) error {
	select {
	case s.sent <- req:
		return nil
	case <-s.done:
		return ErrTransportClosed
	}
}

func (s *scriptedTransport) Receive() (Response, error) {
	select {
	case resp := <-s.in:
		return resp, nil
	case <-s.done:
		return Response{}, ErrTransportClosed
	}
}

func (s *scriptedTransport) Close() error {
	s.once.Do(func() { close(s.done) })
	return nil
}

func (s *scriptedTransport) next(t *testing.T, typ Type) Request {
	t.Helper()

	deadline := time.After(2 * time.Second)

	for {
		select {
		case req := <-s.sent:
			if req.Type == typ {
				return req
			}
		case <-deadline:
			t.Fatalf("no %s request sent", typ)
		}
	}
}

func newLoopbackBridge(t *testing.T, opts ...BridgeOption) *Bridge {
	t.Helper()

	h, err := NewHandler()
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}

	b, err := NewBridge(NewLoopback(h), opts...)
	if err != nil {
		t.Fatalf("NewBridge() error = %v", err)
	}

	t.Cleanup(func() { _ = b.Close() })

	return b
}

func TestBridgeLoopbackRoundTrip(t *testing.T) {
	b := newLoopbackBridge(t)
	ctx := context.Background()

	if _, err := b.Ready().Wait(ctx); err != nil {
		t.Fatalf("Ready().Wait() error = %v", err)
	}

	res, err := b.AnalyzeChunk(ctx, testutil.DeterministicSine(1000, 44100, 0.5, 4096), 44100)
	if err != nil {
		t.Fatalf("AnalyzeChunk() error = %v", err)
	}

	if res.Samples != 4096 || res.Peak < 0.49 {
		t.Fatalf("AnalyzeChunk() got=%+v", res)
	}

	stored, err := b.StoreBlob(ctx, "mix.wav", []byte("RIFF"))
	if err != nil || stored.Size != 4 {
		t.Fatalf("StoreBlob() got=%+v, %v", stored, err)
	}

	if b.InFlight() != 0 {
		t.Fatalf("InFlight() got=%d, want=0", b.InFlight())
	}
}

func TestBridgeIDsIncrease(t *testing.T) {
	b := newLoopbackBridge(t)
	ctx := context.Background()

	prev := b.Ready().ID
	for range 5 {
		p := b.Send(ctx, TypeInit, nil)
		if p.ID <= prev {
			t.Fatalf("Send() id got=%d, want > %d", p.ID, prev)
		}

		prev = p.ID

		if _, err := p.Wait(ctx); err != nil {
			t.Fatalf("Wait() error = %v", err)
		}
	}
}

func TestBridgeWorkerError(t *testing.T) {
	b := newLoopbackBridge(t)

	_, err := b.AnalyzeChunk(context.Background(), nil, 44100)

	var werr *Error
	if !errors.As(err, &werr) || !strings.Contains(werr.Message, "empty audio chunk") {
		t.Fatalf("AnalyzeChunk(nil) error got=%v, want *Error", err)
	}

	if errors.Is(err, ErrWorkerUnavailable) {
		t.Fatal("worker-side failure reported as unavailable")
	}
}

func TestBridgeMissingWorker(t *testing.T) {
	b, err := NewBridge(nil)
	if err != nil {
		t.Fatalf("NewBridge(nil) error = %v", err)
	}

	start := time.Now()

	if _, err := b.Fingerprint(context.Background(), []float64{0}, 44100); !errors.Is(err, ErrWorkerUnavailable) {
		t.Fatalf("Fingerprint() error got=%v, want=%v", err, ErrWorkerUnavailable)
	}

	if time.Since(start) > time.Second {
		t.Fatal("missing worker blocked the caller")
	}

	if err := b.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
}

func TestBridgeSilentWorkerTimesOut(t *testing.T) {
	tr := newScriptedTransport()

	b, err := NewBridge(tr, WithTimeout(50*time.Millisecond))
	if err != nil {
		t.Fatalf("NewBridge() error = %v", err)
	}
	defer b.Close()

	p := b.Send(context.Background(), TypeFingerprint, ChunkRequest{AudioData: []float64{0}})

	if _, err := p.Wait(context.Background()); !errors.Is(err, ErrWorkerUnavailable) {
		t.Fatalf("Wait() error got=%v, want=%v", err, ErrWorkerUnavailable)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := b.Send(ctx, TypeInit, nil).Wait(ctx); !errors.Is(err, ErrWorkerUnavailable) {
		t.Fatalf("Wait(cancelled) error got=%v, want=%v", err, ErrWorkerUnavailable)
	}
}

func TestBridgeDropsUnknownResponses(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	tr := newScriptedTransport()

	b, err := NewBridge(tr, WithLogger(zap.New(core)))
	if err != nil {
		t.Fatalf("NewBridge() error = %v", err)
	}
	defer b.Close()

	p := b.Send(context.Background(), TypeAnalyzeChunk, ChunkRequest{AudioData: []float64{1}})
	req := tr.next(t, TypeAnalyzeChunk)

	if req.ID != p.ID {
		t.Fatalf("sent id got=%d, want=%d", req.ID, p.ID)
	}

	tr.in <- Response{ID: 999, Type: TypeAnalysisComplete}
	tr.in <- Response{ID: p.ID, Type: TypeAnalysisComplete, Payload: json.RawMessage(`{"rms":0.25}`)}

	var res ChunkAnalysis
	if err := p.Decode(context.Background(), &res); err != nil || res.RMS != 0.25 {
		t.Fatalf("Decode() got=%+v, %v", res, err)
	}

	dropped := logs.FilterMessage("dropping response for unknown request")
	if dropped.Len() != 1 {
		t.Fatalf("dropped responses logged got=%d, want=1", dropped.Len())
	}

	if id := dropped.All()[0].ContextMap()["id"]; id != uint64(999) {
		t.Fatalf("logged id got=%v, want=999", id)
	}
}

func TestBridgeCloseFailsPending(t *testing.T) {
	tr := newScriptedTransport()

	b, err := NewBridge(tr)
	if err != nil {
		t.Fatalf("NewBridge() error = %v", err)
	}

	p := b.Send(context.Background(), TypeFingerprint, nil)
	_ = tr.next(t, TypeFingerprint)

	if err := b.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if _, err := p.Wait(context.Background()); !errors.Is(err, ErrWorkerUnavailable) {
		t.Fatalf("Wait() after Close error got=%v, want=%v", err, ErrWorkerUnavailable)
	}

	if _, err := b.Send(context.Background(), TypeInit, nil).Wait(context.Background()); !errors.Is(err, ErrWorkerUnavailable) {
		t.Fatalf("Send() after Close error got=%v, want=%v", err, ErrWorkerUnavailable)
	}
}
