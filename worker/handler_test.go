package worker

import (
	"context"
	"encoding/json"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/cwbudde/algo-djmix/internal/testutil"
)

// countingCache records cache traffic around a MemoryCache.
type countingCache struct {
	*MemoryCache
	hits atomic.Int32
	sets atomic.Int32
}

func (c *countingCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, ok, err := c.MemoryCache.Get(ctx, key)
	if ok {
		c.hits.Add(1)
	}

	return b, ok, err
}

func (c *countingCache) Set(ctx context.Context, key string, value []byte) error {
	c.sets.Add(1)
	return c.MemoryCache.Set(ctx, key, value)
}

func mustPayload(t *testing.T, v any) json.RawMessage {
	t.Helper()

	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}

	return b
}

func TestHandlerInit(t *testing.T) {
	h, err := NewHandler()
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}

	resp := h.Handle(context.Background(), Request{ID: 1, Type: TypeInit})
	if resp.ID != 1 || resp.Type != TypeReady || resp.Error != "" {
		t.Fatalf("Handle(INIT) got=%+v, want READY", resp)
	}
}

func TestHandlerAnalyzeChunkUsesCache(t *testing.T) {
	cache := &countingCache{MemoryCache: NewMemoryCache(8)}

	h, err := NewHandler(WithResultCache(cache))
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}

	req := Request{
		ID:      7,
		Type:    TypeAnalyzeChunk,
		Payload: mustPayload(t, ChunkRequest{AudioData: testutil.DeterministicSine(440, 44100, 0.5, 2048), SampleRate: 44100}),
	}

	first := h.Handle(context.Background(), req)
	if first.Type != TypeAnalysisComplete || first.Error != "" {
		t.Fatalf("Handle() got=%+v, want ANALYSIS_COMPLETE", first)
	}

	var res ChunkAnalysis
	if err := json.Unmarshal(first.Payload, &res); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}

	if res.Samples != 2048 || res.Peak == 0 {
		t.Fatalf("ChunkAnalysis got=%+v", res)
	}

	req.ID = 8
	second := h.Handle(context.Background(), req)

	if second.ID != 8 || string(second.Payload) != string(first.Payload) {
		t.Fatalf("cached Handle() got=%+v, want the first payload", second)
	}

	if cache.hits.Load() != 1 || cache.sets.Load() != 1 {
		t.Fatalf("cache traffic got hits=%d sets=%d, want 1 and 1", cache.hits.Load(), cache.sets.Load())
	}
}

func TestHandlerStoreBlob(t *testing.T) {
	store := NewMemoryStore()

	h, err := NewHandler(WithBlobStore(store))
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}

	resp := h.Handle(context.Background(), Request{
		ID:      3,
		Type:    TypeStoreBlob,
		Payload: mustPayload(t, StoreRequest{Filename: "../exports/mix.wav", Blob: []byte("RIFFdata")}),
	})
	if resp.Type != TypeStoreComplete {
		t.Fatalf("Handle(STORE_BLOB) got=%+v", resp)
	}

	var res StoreResult
	if err := json.Unmarshal(resp.Payload, &res); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}

	if res.Filename != "mix.wav" || res.Size != 8 || !strings.HasSuffix(res.Key, "/mix.wav") {
		t.Fatalf("StoreResult got=%+v", res)
	}

	got, err := store.Get(context.Background(), res.Key)
	if err != nil || string(got) != "RIFFdata" {
		t.Fatalf("stored blob got=%q, %v", got, err)
	}
}

func TestHandlerErrors(t *testing.T) {
	h, err := NewHandler()
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}

	tests := []struct {
		name string
		req  Request
		want string
	}{
		{name: "unknown type", req: Request{ID: 1, Type: "TRANSCODE"}, want: "unknown command"},
		{name: "bad payload", req: Request{ID: 2, Type: TypeFingerprint, Payload: json.RawMessage(`"x"`)}, want: "decode FINGERPRINT payload"},
		{name: "empty chunk", req: Request{ID: 3, Type: TypeAnalyzeChunk, Payload: json.RawMessage(`{}`)}, want: "empty audio chunk"},
		{name: "no filename", req: Request{ID: 4, Type: TypeStoreBlob, Payload: json.RawMessage(`{"blob":"AA=="}`)}, want: "needs a filename"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := h.Handle(context.Background(), tt.req)
			if resp.Type != TypeError || resp.ID != tt.req.ID || !strings.Contains(resp.Error, tt.want) {
				t.Fatalf("Handle() got=%+v, want ERROR containing %q", resp, tt.want)
			}
		})
	}

	if _, err := NewHandler(WithBlobStore(nil)); err == nil {
		t.Fatal("NewHandler(WithBlobStore(nil)): expected error")
	}
}
