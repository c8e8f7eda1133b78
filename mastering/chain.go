package mastering

import (
	"fmt"
	"math/rand/v2"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/cwbudde/algo-djmix/dsp/biquad"
	"github.com/cwbudde/algo-djmix/dsp/conv"
	"github.com/cwbudde/algo-djmix/dsp/core"
	"github.com/cwbudde/algo-djmix/dsp/dynamics"
	"github.com/cwbudde/algo-djmix/dsp/spectrum"
)

const (
	minThresholdDB = -100.0
	maxKneeDB      = 40.0
	maxRatio       = 20.0
	maxTime        = 1.0
	maxMakeup      = 4.0
	minEQHz        = 10.0
	maxEQFraction  = 0.49
	minQ           = 0.0001
	maxQ           = 100.0
	maxGainDB      = 40.0
	minCeilingDB   = -60.0

	// analysisHop is the number of frames between dynamic EQ updates.
	analysisHop = 1024
)

// Option mutates chain construction parameters.
type Option func(*chainConfig) error

type chainConfig struct {
	state     *State
	seed      uint64
	blockSize int
	client    *http.Client
}

// WithState starts the chain from s instead of DefaultState. Out-of-range
// values are clamped. An impulse response cannot be restored from a state,
// so the convolver starts empty.
func WithState(s State) Option {
	return func(cfg *chainConfig) error {
		cfg.state = &s
		return nil
	}
}

// WithIRSeed makes synthetic impulse responses reproducible.
func WithIRSeed(seed uint64) Option {
	return func(cfg *chainConfig) error {
		cfg.seed = seed
		return nil
	}
}

// WithConvolverBlockSize sets the convolver partition size, a power of two.
func WithConvolverBlockSize(n int) Option {
	return func(cfg *chainConfig) error {
		if n < 16 || n&(n-1) != 0 {
			return fmt.Errorf("convolver block size must be a power of two >= 16: %d", n)
		}

		cfg.blockSize = n

		return nil
	}
}

// WithHTTPClient sets the client used by LoadIRFromURL.
func WithHTTPClient(client *http.Client) Option {
	return func(cfg *chainConfig) error {
		if client == nil {
			return fmt.Errorf("mastering: nil http client")
		}

		cfg.client = client

		return nil
	}
}

type stage func(left, right []float64)

// Chain is the master bus processor:
//
//	input → compressor → makeup → eq×8 → [dynamic eq] → [convolver] → limiter → analyser → output
//
// Bracketed stages are present only when enabled or loaded. Every change to
// the topology rebuilds the stage list from BuildGraph. Setters clamp their
// input and are safe to call while another goroutine runs Process.
type Chain struct {
	mu sync.Mutex

	sampleRate float64
	convBlock  int
	client     *http.Client
	rng        *rand.Rand

	state  State
	graph  Graph
	stages []stage
	irInfo IRInfo

	comp     *dynamics.Compressor
	makeup   core.Param
	eq       [BandCount]*biquad.Filter
	dyn      *DynamicEQ
	conv     *conv.Convolver
	wet      core.Param
	dry      core.Param
	limiter  *dynamics.Limiter
	analyser *spectrum.Analyser

	pending int
	monoR   []float64
	wetL    []float64
	wetR    []float64
}

// NewChain creates a master chain at sampleRate. Construction failures are
// reported as *GraphSetupError.
func NewChain(sampleRate float64, opts ...Option) (*Chain, error) {
	if err := core.ValidateSampleRate(sampleRate); err != nil {
		return nil, &GraphSetupError{Stage: "input", Err: err}
	}

	cfg := chainConfig{
		seed:      uint64(time.Now().UnixNano()),
		blockSize: conv.DefaultBlockSize,
		client:    http.DefaultClient,
	}

	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	s := DefaultState(sampleRate)
	if cfg.state != nil {
		s = *cfg.state
		s.SampleRate = sampleRate
	}

	s = clampState(s)
	s.Convolver.IRLoaded = false
	s.Convolver.IRName = ""

	c := &Chain{
		sampleRate: sampleRate,
		convBlock:  cfg.blockSize,
		client:     cfg.client,
		rng:        rand.New(rand.NewPCG(cfg.seed, cfg.seed>>1)),
		state:      s,
		makeup:     core.NewParam(s.Compressor.MakeupGain, core.DefaultSmoothing),
		wet:        core.NewParam(s.Convolver.WetMix, core.DefaultSmoothing),
		dry:        core.NewParam(dryLevel(s.Convolver.WetMix), core.DefaultSmoothing),
	}

	var err error

	cs := s.Compressor
	c.comp, err = dynamics.NewCompressor(sampleRate,
		dynamics.WithThreshold(cs.ThresholdDB),
		dynamics.WithKnee(cs.KneeDB),
		dynamics.WithRatio(cs.Ratio),
		dynamics.WithAttack(cs.AttackSeconds),
		dynamics.WithRelease(cs.ReleaseSeconds),
		dynamics.WithMakeupGain(1),
	)
	if err != nil {
		return nil, &GraphSetupError{Stage: "compressor", Err: err}
	}

	for i, b := range s.EQ {
		c.eq[i], err = biquad.NewFilter(sampleRate, b.Type,
			biquad.WithFrequency(b.FrequencyHz),
			biquad.WithQ(b.Q),
			biquad.WithGain(b.GainDB),
		)
		if err != nil {
			return nil, &GraphSetupError{Stage: "eq" + strconv.Itoa(i), Err: err}
		}
	}

	if c.dyn, err = NewDynamicEQ(sampleRate, s.DynamicEQ); err != nil {
		return nil, &GraphSetupError{Stage: "dynamic-eq", Err: err}
	}

	if c.conv, err = conv.NewConvolver(cfg.blockSize); err != nil {
		return nil, &GraphSetupError{Stage: "convolver", Err: err}
	}

	if c.limiter, err = dynamics.NewLimiter(sampleRate, dynamics.WithCeiling(s.Limiter.CeilingDB)); err != nil {
		return nil, &GraphSetupError{Stage: "limiter", Err: err}
	}

	if c.analyser, err = spectrum.NewAnalyser(sampleRate); err != nil {
		return nil, &GraphSetupError{Stage: "analyser", Err: err}
	}

	c.rebuild()

	return c, nil
}

func clampState(s State) State {
	cs := &s.Compressor
	cs.ThresholdDB = core.Clamp(cs.ThresholdDB, minThresholdDB, 0)
	cs.KneeDB = core.Clamp(cs.KneeDB, 0, maxKneeDB)
	cs.Ratio = core.Clamp(cs.Ratio, 1, maxRatio)
	cs.AttackSeconds = core.Clamp(cs.AttackSeconds, 0, maxTime)
	cs.ReleaseSeconds = core.Clamp(cs.ReleaseSeconds, 0, maxTime)
	cs.MakeupGain = core.Clamp(cs.MakeupGain, 0, maxMakeup)

	layout := DefaultBands()
	for i := range s.EQ {
		s.EQ[i] = clampBand(s.EQ[i], s.SampleRate)
		s.EQ[i].Type = layout[i].Type
	}

	s.Convolver.WetMix = core.Clamp(s.Convolver.WetMix, 0, 1)
	s.Limiter.CeilingDB = core.Clamp(s.Limiter.CeilingDB, minCeilingDB, 0)

	if s.DynamicEQ.BandCount < 2 || s.DynamicEQ.BandCount > maxDynamicBands {
		s.DynamicEQ.BandCount = DefaultDynamicEQ().BandCount
	}

	enabled, count := s.DynamicEQ.Enabled, s.DynamicEQ.BandCount
	s.DynamicEQ = clampDynamicConfig(s.DynamicEQ)
	s.DynamicEQ.Enabled, s.DynamicEQ.BandCount = enabled, count

	return s
}

func clampBand(b Band, sampleRate float64) Band {
	b.FrequencyHz = core.Clamp(b.FrequencyHz, minEQHz, sampleRate*maxEQFraction)
	b.Q = core.Clamp(b.Q, minQ, maxQ)
	b.GainDB = core.Clamp(b.GainDB, -maxGainDB, maxGainDB)

	return b
}

// SampleRate returns the sample rate in Hz.
func (c *Chain) SampleRate() float64 { return c.sampleRate }

// Process runs the chain in place on a stereo block. right may be nil for
// mono input.
func (c *Chain) Process(left, right []float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if right == nil {
		c.monoR = core.EnsureLen(c.monoR, len(left))
		copy(c.monoR, left)
		right = c.monoR
	}

	for _, s := range c.stages {
		s(left, right)
	}

	c.pending += len(left)
	for c.pending >= analysisHop {
		c.pending -= analysisHop

		var frame []float64
		if c.dyn.Enabled() {
			frame = c.analyser.Frame()
		}

		c.dyn.Update(frame, analysisHop/c.sampleRate)
	}
}

func (c *Chain) rebuild() {
	c.graph = BuildGraph(c.state)
	c.stages = c.stages[:0]

	for _, n := range c.graph.Nodes {
		if s := c.stageFor(n); s != nil {
			c.stages = append(c.stages, s)
		}
	}
}

func (c *Chain) stageFor(n Node) stage {
	switch n.Kind {
	case NodeCompressor:
		return c.comp.ProcessStereo
	case NodeMakeup:
		return c.applyMakeup
	case NodeEQBand:
		return c.eq[n.Index].ProcessStereo
	case NodeDynamicEQBand:
		i := n.Index
		return func(left, right []float64) { c.dyn.ProcessBand(i, left, right) }
	case NodeConvolverWetDry:
		return c.applyConvolver
	case NodeLimiter:
		return c.limiter.ProcessStereo
	case NodeAnalyser:
		return c.analyser.Write
	default:
		return nil
	}
}

func (c *Chain) applyMakeup(left, right []float64) {
	from := c.makeup.Value()
	to := c.makeup.Advance(float64(len(left)) / c.sampleRate)

	scaleRamped(left, from, to)
	scaleRamped(right, from, to)
}

func (c *Chain) applyConvolver(left, right []float64) {
	n := len(left)
	c.wetL = core.EnsureLen(c.wetL, n)
	c.wetR = core.EnsureLen(c.wetR, n)

	if err := c.conv.Process(left, right, c.wetL, c.wetR); err != nil {
		return
	}

	dt := float64(n) / c.sampleRate
	w0, w1 := c.wet.Value(), c.wet.Advance(dt)
	d0, d1 := c.dry.Value(), c.dry.Advance(dt)

	scaleRamped(left, d0, d1)
	scaleRamped(right, d0, d1)
	addRamped(left, c.wetL, w0, w1)
	addRamped(right, c.wetR, w0, w1)
}

// SetThreshold sets the compressor threshold in dB, clamped to [-100, 0].
func (c *Chain) SetThreshold(dB float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state.Compressor.ThresholdDB = core.Clamp(dB, minThresholdDB, 0)
	c.comp.SetThreshold(c.state.Compressor.ThresholdDB)
	c.rebuild()
}

// SetKnee sets the compressor knee in dB, clamped to [0, 40].
func (c *Chain) SetKnee(dB float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state.Compressor.KneeDB = core.Clamp(dB, 0, maxKneeDB)
	c.comp.SetKnee(c.state.Compressor.KneeDB)
	c.rebuild()
}

// SetRatio sets the compressor ratio, clamped to [1, 20].
func (c *Chain) SetRatio(r float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state.Compressor.Ratio = core.Clamp(r, 1, maxRatio)
	c.comp.SetRatio(c.state.Compressor.Ratio)
	c.rebuild()
}

// SetAttack sets the compressor attack in seconds, clamped to [0, 1].
func (c *Chain) SetAttack(seconds float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state.Compressor.AttackSeconds = core.Clamp(seconds, 0, maxTime)
	c.comp.SetAttack(c.state.Compressor.AttackSeconds)
	c.rebuild()
}

// SetRelease sets the compressor release in seconds, clamped to [0, 1].
func (c *Chain) SetRelease(seconds float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state.Compressor.ReleaseSeconds = core.Clamp(seconds, 0, maxTime)
	c.comp.SetRelease(c.state.Compressor.ReleaseSeconds)
	c.rebuild()
}

// SetMakeupGain sets the linear makeup gain, clamped to [0, 4].
func (c *Chain) SetMakeupGain(g float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state.Compressor.MakeupGain = core.Clamp(g, 0, maxMakeup)
	c.makeup.SetTarget(c.state.Compressor.MakeupGain)
	c.rebuild()
}

// SetEQBand updates frequency, Q and gain of band i. b.Type is ignored: the
// band layout is fixed. An out-of-range index is a no-op.
func (c *Chain) SetEQBand(i int, b Band) {
	if i < 0 || i >= BandCount {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	b = clampBand(b, c.sampleRate)
	b.Type = c.state.EQ[i].Type
	c.state.EQ[i] = b

	f := c.eq[i]
	f.SetFrequency(b.FrequencyHz)
	f.SetQ(b.Q)
	f.SetGain(b.GainDB)
	c.rebuild()
}

// EQBand returns the settings of band i, or the zero Band when i is out of
// range.
func (c *Chain) EQBand(i int) Band {
	c.mu.Lock()
	defer c.mu.Unlock()

	if i < 0 || i >= len(c.state.EQ) {
		return Band{}
	}

	return c.state.EQ[i]
}

// SetConvolverWet sets the convolver wet mix in [0, 1]; the dry level
// follows as 1 - 0.7·wet.
func (c *Chain) SetConvolverWet(w float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	w = core.Clamp(w, 0, 1)
	c.state.Convolver.WetMix = w
	c.wet.SetTarget(w)
	c.dry.SetTarget(dryLevel(w))
	c.rebuild()
}

// SetLimiterCeiling sets the limiter ceiling in dBFS, clamped to [-60, 0].
func (c *Chain) SetLimiterCeiling(dB float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state.Limiter.CeilingDB = core.Clamp(dB, minCeilingDB, 0)
	c.limiter.SetCeiling(c.state.Limiter.CeilingDB)
	c.rebuild()
}

// EnableDynamicEQ inserts or removes the dynamic EQ bands.
func (c *Chain) EnableDynamicEQ(on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state.DynamicEQ.Enabled = on
	c.dyn.SetEnabled(on)
	c.rebuild()
}

// DynamicBands returns the runtime state of the dynamic EQ bands.
func (c *Chain) DynamicBands() []DynamicBand {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.dyn.Bands()
}

// State returns a copy of the current configuration.
func (c *Chain) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

// ApplyState applies s. Values are clamped, EQ types and the sample rate are
// kept, and the convolver keeps its impulse response; only its wet mix is
// taken from s.
func (c *Chain) ApplyState(s State) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	s.SampleRate = c.sampleRate
	s = clampState(s)
	s.Convolver.IRLoaded = c.state.Convolver.IRLoaded
	s.Convolver.IRName = c.state.Convolver.IRName

	if s.DynamicEQ.BandCount != c.dyn.Len() {
		dyn, err := NewDynamicEQ(c.sampleRate, s.DynamicEQ)
		if err != nil {
			return fmt.Errorf("mastering: %w", err)
		}

		c.dyn = dyn
	} else {
		c.dyn.Configure(s.DynamicEQ)
		if c.dyn.Enabled() != s.DynamicEQ.Enabled {
			c.dyn.SetEnabled(s.DynamicEQ.Enabled)
		}
	}

	cs := s.Compressor
	c.comp.SetThreshold(cs.ThresholdDB)
	c.comp.SetKnee(cs.KneeDB)
	c.comp.SetRatio(cs.Ratio)
	c.comp.SetAttack(cs.AttackSeconds)
	c.comp.SetRelease(cs.ReleaseSeconds)
	c.makeup.SetTarget(cs.MakeupGain)

	for i, b := range s.EQ {
		c.eq[i].SetFrequency(b.FrequencyHz)
		c.eq[i].SetQ(b.Q)
		c.eq[i].SetGain(b.GainDB)
	}

	c.wet.SetTarget(s.Convolver.WetMix)
	c.dry.SetTarget(dryLevel(s.Convolver.WetMix))
	c.limiter.SetCeiling(s.Limiter.CeilingDB)

	c.state = s
	c.rebuild()

	return nil
}

// Graph returns the graph the stages were last built from.
func (c *Chain) Graph() Graph {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.graph
}

// Analyse computes spectral and level metrics from the analyser tap.
func (c *Chain) Analyse() spectrum.Snapshot {
	return c.analyser.Snapshot()
}

// CompressorReductionDB returns the current compressor gain reduction.
func (c *Chain) CompressorReductionDB() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.comp.ReductionDB()
}

// LimiterReductionDB returns the current limiter gain reduction.
func (c *Chain) LimiterReductionDB() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.limiter.ReductionDB()
}

// Reset clears all processing state. Settings and the impulse response are
// kept.
func (c *Chain) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.comp.Reset()
	for _, f := range c.eq {
		f.Reset()
	}

	c.dyn.Reset()
	c.conv.Reset()
	c.limiter.Reset()
	c.analyser.Reset()
	c.pending = 0
}
