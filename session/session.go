package session

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cwbudde/algo-djmix/analysis"
	"github.com/cwbudde/algo-djmix/automix"
	"github.com/cwbudde/algo-djmix/deck"
	"github.com/cwbudde/algo-djmix/dsp/core"
	"github.com/cwbudde/algo-djmix/dsp/effects"
	"github.com/cwbudde/algo-djmix/mastering"
	"github.com/cwbudde/algo-djmix/pads"
)

// ErrUnknownDeck is returned for a deck id other than A or B.
var ErrUnknownDeck = errors.New("session: unknown deck")

// Option mutates session construction parameters.
type Option func(*config) error

type config struct {
	logger    *zap.Logger
	deckOpts  []deck.Option
	chainOpts []mastering.Option
	fxOpts    []effects.ChainOption
	padOpts   []pads.Option
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(cfg *config) error {
		if l == nil {
			return fmt.Errorf("session: nil logger")
		}

		cfg.logger = l

		return nil
	}
}

// WithDeckOptions forwards options to both decks.
func WithDeckOptions(opts ...deck.Option) Option {
	return func(cfg *config) error {
		cfg.deckOpts = append(cfg.deckOpts, opts...)
		return nil
	}
}

// WithMasteringOptions forwards options to the mastering chain.
func WithMasteringOptions(opts ...mastering.Option) Option {
	return func(cfg *config) error {
		cfg.chainOpts = append(cfg.chainOpts, opts...)
		return nil
	}
}

// WithEffectsOptions forwards options to the effects chain.
func WithEffectsOptions(opts ...effects.ChainOption) Option {
	return func(cfg *config) error {
		cfg.fxOpts = append(cfg.fxOpts, opts...)
		return nil
	}
}

// WithPadOptions forwards options to the drum pad bank.
func WithPadOptions(opts ...pads.Option) Option {
	return func(cfg *config) error {
		cfg.padOpts = append(cfg.padOpts, opts...)
		return nil
	}
}

// Session is one mixer instance. Control methods may be called from any
// goroutine; Process is meant for a single render goroutine.
type Session struct {
	id         string
	sampleRate float64
	log        *zap.Logger

	decks   [2]*deck.Deck
	master  *mastering.Chain
	effects *effects.Chain
	pads    *pads.Bank

	mu         sync.Mutex
	crossfader float64
	gainA      core.Param
	gainB      core.Param
	playing    bool
	offset     float64
	elapsed    int

	deckL, deckR []float64
	tapL, tapR   []float64
	fxL, fxR     []float64
}

// New creates a session with two empty decks and the crossfader centred.
func New(sampleRate float64, opts ...Option) (*Session, error) {
	if err := core.ValidateSampleRate(sampleRate); err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}

	cfg := config{logger: zap.NewNop()}
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	s := &Session{
		id:         uuid.NewString(),
		sampleRate: sampleRate,
		crossfader: 0.5,
	}
	s.log = cfg.logger.With(zap.String("session", s.id))

	a, b := crossfadeGains(s.crossfader)
	s.gainA = core.NewParam(a, core.DefaultSmoothing)
	s.gainB = core.NewParam(b, core.DefaultSmoothing)

	var err error
	for i, id := range []deck.ID{deck.A, deck.B} {
		if s.decks[i], err = deck.New(id, sampleRate, cfg.deckOpts...); err != nil {
			return nil, fmt.Errorf("session: deck %s: %w", id, err)
		}
	}

	if s.master, err = mastering.NewChain(sampleRate, cfg.chainOpts...); err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}

	fxOpts := append([]effects.ChainOption{
		effects.WithReverbOptions(effects.WithReverbLogger(s.log.Named("reverb"))),
	}, cfg.fxOpts...)

	if s.effects, err = effects.NewChain(sampleRate, fxOpts...); err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}

	if s.pads, err = pads.NewBank(sampleRate, cfg.padOpts...); err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}

	s.log.Info("session created", zap.Float64("sampleRate", sampleRate))

	return s, nil
}

// crossfadeGains returns the equal-power deck gains for position v in [0, 1].
func crossfadeGains(v float64) (a, b float64) {
	return math.Cos(v * math.Pi / 2), math.Sin(v * math.Pi / 2)
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// SampleRate returns the render rate in Hz.
func (s *Session) SampleRate() float64 { return s.sampleRate }

// Deck returns deck id.
func (s *Session) Deck(id deck.ID) (*deck.Deck, error) {
	switch id {
	case deck.A:
		return s.decks[0], nil
	case deck.B:
		return s.decks[1], nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDeck, id)
	}
}

// Mastering returns the master bus chain.
func (s *Session) Mastering() *mastering.Chain { return s.master }

// Effects returns the creative effects chain.
func (s *Session) Effects() *effects.Chain { return s.effects }

// Pads returns the drum pad bank.
func (s *Session) Pads() *pads.Bank { return s.pads }

// TriggerPad plays pad id into the master bus.
func (s *Session) TriggerPad(id pads.ID) error {
	if err := s.pads.Trigger(id); err != nil {
		s.log.Warn("pad trigger failed", zap.Int("pad", int(id)), zap.Error(err))
		return err
	}

	s.log.Debug("pad triggered", zap.Stringer("pad", id))

	return nil
}

// LoadDeck decodes and analyses data into deck id. A playing deck is stopped
// first; on failure the previous track stays loaded.
func (s *Session) LoadDeck(ctx context.Context, id deck.ID, name string, data []byte) (deck.Analysis, error) {
	d, err := s.Deck(id)
	if err != nil {
		return deck.Analysis{}, err
	}

	return s.commit(d, func() (deck.Analysis, error) { return d.Load(ctx, name, data) })
}

// LoadDeckBuffer is LoadDeck for audio that is already decoded.
func (s *Session) LoadDeckBuffer(ctx context.Context, id deck.ID, name string, buf *core.Buffer) (deck.Analysis, error) {
	d, err := s.Deck(id)
	if err != nil {
		return deck.Analysis{}, err
	}

	return s.commit(d, func() (deck.Analysis, error) { return d.LoadBuffer(ctx, name, buf) })
}

func (s *Session) commit(d *deck.Deck, load func() (deck.Analysis, error)) (deck.Analysis, error) {
	a, err := load()
	if err != nil {
		s.log.Warn("deck load failed", zap.String("deck", string(d.ID())), zap.Error(err))
		return deck.Analysis{}, err
	}

	s.mu.Lock()
	if s.playing {
		d.Play(s.currentTimeLocked())
	}
	s.mu.Unlock()

	s.log.Info("deck loaded",
		zap.String("deck", string(d.ID())),
		zap.String("track", a.Name),
		zap.Float64("bpm", a.BPM),
		zap.String("camelot", a.CamelotCode),
		zap.Float64("duration", a.DurationSeconds),
	)

	return a, nil
}

// SetCrossfader moves the crossfader: 0 is all A, 1 is all B. Gains follow
// an equal-power curve.
func (s *Session) SetCrossfader(v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.crossfader = core.Clamp(v, 0, 1)
	a, b := crossfadeGains(s.crossfader)
	s.gainA.SetTarget(a)
	s.gainB.SetTarget(b)
}

// Crossfader returns the crossfader position.
func (s *Session) Crossfader() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.crossfader
}

// HarmonicScore rates how well the loaded tracks mix, 0 when either deck
// is empty.
func (s *Session) HarmonicScore() int {
	a, b := s.decks[0], s.decks[1]
	if !a.IsLoaded() || !b.IsLoaded() {
		return 0
	}

	return analysis.HarmonicScore(a.Analysis().CamelotCode, b.Analysis().CamelotCode)
}

// Timeline returns the loaded decks, A first, as an automix timeline.
func (s *Session) Timeline() *automix.Timeline {
	tl := automix.NewTimeline()
	for _, d := range s.decks {
		if t, err := automix.TrackFromDeck(d); err == nil {
			tl.Add(t)
		}
	}

	return tl
}

// Process renders the next stereo block into left and right. Drum pads are
// summed with the decks ahead of the master chain and the effects tap.
func (s *Session) Process(left, right []float64) {
	n := len(left)
	s.deckL = core.EnsureLen(s.deckL, n)
	s.deckR = core.EnsureLen(s.deckR, n)
	s.tapL = core.EnsureLen(s.tapL, n)
	s.tapR = core.EnsureLen(s.tapR, n)
	s.fxL = core.EnsureLen(s.fxL, n)
	s.fxR = core.EnsureLen(s.fxR, n)

	s.mu.Lock()
	dt := float64(n) / s.sampleRate
	a0, a1 := s.gainA.Value(), s.gainA.Advance(dt)
	b0, b1 := s.gainB.Value(), s.gainB.Advance(dt)
	if s.playing {
		s.elapsed += n
	}
	s.mu.Unlock()

	clear(s.tapL)
	clear(s.tapR)

	s.decks[0].Process(s.deckL, s.deckR)
	mixRamped(s.tapL, s.deckL, a0, a1)
	mixRamped(s.tapR, s.deckR, a0, a1)

	s.decks[1].Process(s.deckL, s.deckR)
	mixRamped(s.tapL, s.deckL, b0, b1)
	mixRamped(s.tapR, s.deckR, b0, b1)

	s.pads.Process(s.tapL, s.tapR)

	copy(left, s.tapL)
	copy(s.fxL, s.tapL)
	copy(s.fxR, s.tapR)

	if right == nil {
		s.master.Process(left, nil)
	} else {
		copy(right, s.tapR)
		s.master.Process(left, right)
	}

	s.effects.Process(s.fxL, s.fxR)

	for i := range n {
		left[i] += s.fxL[i] - s.tapL[i]
	}

	if right != nil {
		for i := range n {
			right[i] += s.fxR[i] - s.tapR[i]
		}
	}
}

func mixRamped(dst, src []float64, from, to float64) {
	step := (to - from) / float64(len(dst))
	g := from
	for i := range dst {
		g += step
		dst[i] += src[i] * g
	}
}

// Close stops playback and releases background work.
func (s *Session) Close() {
	s.Stop()
	s.effects.Close()
	s.log.Info("session closed")
}
