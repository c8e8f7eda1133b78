package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// HandlerOption configures a Handler.
type HandlerOption func(*Handler) error

// WithBlobStore sets where STORE_BLOB payloads go. The default is a
// MemoryStore.
func WithBlobStore(s BlobStore) HandlerOption {
	return func(h *Handler) error {
		if s == nil {
			return errors.New("worker blob store must not be nil")
		}

		h.store = s

		return nil
	}
}

// WithResultCache sets the analysis result cache. The default is a
// 256-entry MemoryCache.
func WithResultCache(c ResultCache) HandlerOption {
	return func(h *Handler) error {
		if c == nil {
			return errors.New("worker result cache must not be nil")
		}

		h.cache = c

		return nil
	}
}

// WithHandlerLogger sets the handler logger.
func WithHandlerLogger(log *zap.Logger) HandlerOption {
	return func(h *Handler) error {
		if log == nil {
			return errors.New("worker logger must not be nil")
		}

		h.log = log

		return nil
	}
}

// Handler executes worker commands. It is safe for concurrent use.
type Handler struct {
	store BlobStore
	cache ResultCache
	log   *zap.Logger
}

// NewHandler returns a handler with in-memory storage unless options say
// otherwise.
func NewHandler(opts ...HandlerOption) (*Handler, error) {
	h := &Handler{
		store: NewMemoryStore(),
		cache: NewMemoryCache(0),
		log:   zap.NewNop(),
	}

	for _, opt := range opts {
		if err := opt(h); err != nil {
			return nil, err
		}
	}

	return h, nil
}

// Handle runs one request and returns its response. Failures are reported
// in the response, never as a Go error.
func (h *Handler) Handle(ctx context.Context, req Request) Response {
	payload, err := h.dispatch(ctx, req)
	if err != nil {
		h.log.Warn("worker command failed",
			zap.Uint64("id", req.ID),
			zap.String("type", string(req.Type)),
			zap.Error(err))

		return Response{ID: req.ID, Type: TypeError, Error: err.Error()}
	}

	return Response{ID: req.ID, Type: responseType(req.Type), Payload: payload}
}

func (h *Handler) dispatch(ctx context.Context, req Request) (json.RawMessage, error) {
	switch req.Type {
	case TypeInit:
		return nil, nil
	case TypeAnalyzeChunk:
		return h.cached(ctx, req, func(in ChunkRequest) (any, error) {
			return AnalyzeChunk(in.AudioData, in.SampleRate)
		})
	case TypeFingerprint:
		return h.cached(ctx, req, func(in ChunkRequest) (any, error) {
			return ComputeFingerprint(in.AudioData, in.SampleRate)
		})
	case TypeStoreBlob:
		return h.storeBlob(ctx, req.Payload)
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownType, req.Type)
	}
}

// cached answers from the result cache when the same payload was analysed
// before. Cache failures only cost a recomputation.
func (h *Handler) cached(ctx context.Context, req Request, run func(ChunkRequest) (any, error)) (json.RawMessage, error) {
	key := cacheKey(req.Type, req.Payload)

	hit, ok, err := h.cache.Get(ctx, key)
	if err != nil {
		h.log.Warn("result cache get failed", zap.String("key", key), zap.Error(err))
	}

	if ok {
		return hit, nil
	}

	var in ChunkRequest
	if err := json.Unmarshal(req.Payload, &in); err != nil {
		return nil, fmt.Errorf("worker: decode %s payload: %w", req.Type, err)
	}

	res, err := run(in)
	if err != nil {
		return nil, err
	}

	out, err := json.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("worker: encode %s result: %w", req.Type, err)
	}

	if err := h.cache.Set(ctx, key, out); err != nil {
		h.log.Warn("result cache set failed", zap.String("key", key), zap.Error(err))
	}

	return out, nil
}

func (h *Handler) storeBlob(ctx context.Context, payload json.RawMessage) (json.RawMessage, error) {
	var in StoreRequest
	if err := json.Unmarshal(payload, &in); err != nil {
		return nil, fmt.Errorf("worker: decode STORE_BLOB payload: %w", err)
	}

	name := path.Base(strings.ReplaceAll(in.Filename, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return nil, errors.New("worker: STORE_BLOB needs a filename")
	}

	key := uuid.NewString() + "/" + name
	if err := h.store.Put(ctx, key, in.Blob, http.DetectContentType(in.Blob)); err != nil {
		return nil, err
	}

	h.log.Debug("blob stored", zap.String("key", key), zap.Int("size", len(in.Blob)))

	return json.Marshal(StoreResult{Key: key, Filename: name, Size: int64(len(in.Blob))})
}
