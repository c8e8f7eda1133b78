package worker

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Type names a request or response message.
type Type string

// Request types.
const (
	TypeInit         Type = "INIT"
	TypeAnalyzeChunk Type = "ANALYZE_CHUNK"
	TypeFingerprint  Type = "FINGERPRINT"
	TypeStoreBlob    Type = "STORE_BLOB"
)

// Response types.
const (
	TypeReady               Type = "READY"
	TypeAnalysisComplete    Type = "ANALYSIS_COMPLETE"
	TypeFingerprintComplete Type = "FINGERPRINT_COMPLETE"
	TypeStoreComplete       Type = "STORE_COMPLETE"
	TypeError               Type = "ERROR"
)

var (
	// ErrWorkerUnavailable is returned when the worker is missing, closed or
	// does not answer in time. It is never fatal to playback.
	ErrWorkerUnavailable = errors.New("worker: unavailable")

	// ErrUnknownType is reported for request types the worker does not handle.
	ErrUnknownType = errors.New("worker: unknown command")
)

// Request is a message to the worker.
type Request struct {
	ID      uint64          `json:"id"`
	Type    Type            `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response is a message from the worker. Error is set instead of Payload
// when the command failed.
type Response struct {
	ID      uint64          `json:"id"`
	Type    Type            `json:"type,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// Error is a failure reported by the worker for one request.
type Error struct {
	ID      uint64
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("worker: request %d: %s", e.ID, e.Message)
}

// ChunkRequest is the ANALYZE_CHUNK and FINGERPRINT payload. SampleRate
// defaults to 44100 when zero.
type ChunkRequest struct {
	AudioData  []float64 `json:"audioData"`
	SampleRate float64   `json:"sampleRate,omitempty"`
}

// ChunkAnalysis is the ANALYZE_CHUNK result.
type ChunkAnalysis struct {
	RMS              float64 `json:"rms"`
	ZCR              float64 `json:"zcr"`
	Peak             float64 `json:"peak"`
	DBFS             float64 `json:"dbfs"`
	SpectralCentroid float64 `json:"spectralCentroid"`
	SpectralRolloff  float64 `json:"spectralRolloff"`
	CrestFactor      float64 `json:"crestFactor"`
	Samples          int     `json:"samples"`
}

// ConstellationPoint is a spectral peak picked for fingerprinting.
type ConstellationPoint struct {
	Time      int     `json:"time"`
	Frequency float64 `json:"freq"`
	Magnitude float64 `json:"mag"`
}

// HashPair is an anchor/target fingerprint hash "f1|f2|dt" with the anchor
// window index.
type HashPair struct {
	Hash string `json:"hash"`
	Time int    `json:"time"`
}

// Fingerprint is the FINGERPRINT result. Hashes is capped; HashCount is
// the uncapped total.
type Fingerprint struct {
	ConstellationPoints int        `json:"constellationPoints"`
	HashCount           int        `json:"hashCount"`
	Hashes              []HashPair `json:"hashes"`
	Duration            float64    `json:"duration"`
}

// StoreRequest is the STORE_BLOB payload. Blob travels base64 encoded.
type StoreRequest struct {
	Filename string `json:"filename"`
	Blob     []byte `json:"blob"`
}

// StoreResult is the STORE_BLOB result.
type StoreResult struct {
	Key      string `json:"key"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
}

func responseType(t Type) Type {
	switch t {
	case TypeInit:
		return TypeReady
	case TypeAnalyzeChunk:
		return TypeAnalysisComplete
	case TypeFingerprint:
		return TypeFingerprintComplete
	case TypeStoreBlob:
		return TypeStoreComplete
	default:
		return TypeError
	}
}
