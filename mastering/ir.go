package mastering

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/cwbudde/algo-djmix/deck"
	"github.com/cwbudde/algo-djmix/dsp/conv"
	"github.com/cwbudde/algo-djmix/dsp/core"
	"github.com/cwbudde/algo-djmix/dsp/resample"
)

// IRKind selects a synthetic colour impulse response.
type IRKind int

const (
	IRTape IRKind = iota
	IRRoom
	IRPlate
	IRConsole
	IRNoise
)

const (
	DefaultIRDecay = 1.5

	minIRDecay = 0.05
	maxIRDecay = 10.0

	// maxIRBytes bounds a downloaded impulse response.
	maxIRBytes = 64 << 20

	// DefaultIRTimeout applies to URL loads when the caller passes 0.
	DefaultIRTimeout = 10 * time.Second
)

var irKindNames = [...]string{
	IRTape:    "tape",
	IRRoom:    "room",
	IRPlate:   "plate",
	IRConsole: "console",
	IRNoise:   "noise",
}

func (k IRKind) String() string {
	if k < 0 || int(k) >= len(irKindNames) {
		return fmt.Sprintf("IRKind(%d)", int(k))
	}

	return irKindNames[k]
}

// ParseIRKind maps a name to an IRKind. Unknown names select IRNoise, the
// plain exponentially decaying noise response.
func ParseIRKind(name string) IRKind {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range irKindNames {
		if n == name {
			return IRKind(i)
		}
	}

	return IRNoise
}

// ErrIRFetch is returned when an impulse response URL cannot be retrieved.
var ErrIRFetch = errors.New("mastering: impulse response fetch failed")

// IRInfo describes the impulse response loaded into the chain.
type IRInfo struct {
	Name            string  `json:"name"`
	DurationSeconds float64 `json:"duration"`
	Channels        int     `json:"channels"`
	SampleRate      float64 `json:"sampleRate"`
}

// SyntheticIR renders a stereo impulse response of floor(sampleRate·decay)
// frames. rng supplies the noise; pass a seeded source for reproducible
// output.
func SyntheticIR(kind IRKind, decay, sampleRate float64, rng *rand.Rand) [][]float64 {
	decay = core.Clamp(decay, minIRDecay, maxIRDecay)
	n := int(math.Floor(sampleRate * decay))
	ir := [][]float64{make([]float64, n), make([]float64, n)}

	for ch, data := range ir {
		for i := range data {
			t := float64(i) / sampleRate
			noise := rng.Float64()*2 - 1

			switch kind {
			case IRTape:
				env := math.Exp(-t * 3 / decay)
				harm := math.Sin(2*math.Pi*60*t)*0.02 + math.Sin(2*math.Pi*120*t)*0.01
				data[i] = (noise*env + harm*math.Exp(-t*8)) * 0.5
			case IRRoom:
				env := math.Exp(-t * 2 / decay)

				early := 0.0
				if t < 0.05 {
					early = math.Sin(t*800) * (1 - t*20)
				}

				diffusion := 1.0
				if ch == 1 {
					diffusion = -0.7
				}

				data[i] = (noise*env*diffusion + early*0.3) * 0.3
			case IRPlate:
				env := math.Pow(1-t/decay, 1.5)
				res := math.Sin(2*math.Pi*2400*t)*0.005 + math.Sin(2*math.Pi*4800*t)*0.003
				data[i] = (noise*env + res*env) * 0.25
			case IRConsole:
				env := math.Exp(-t * 20)
				harm := math.Sin(2*math.Pi*100*t)*0.015 + math.Sin(2*math.Pi*150*t)*0.008
				data[i] = (noise*env*0.1 + harm*env) * 0.5
			default:
				data[i] = noise * math.Exp(-float64(i)/float64(n)*decay)
			}
		}
	}

	return ir
}

// GenerateSyntheticIR renders a synthetic response and loads it.
func (c *Chain) GenerateSyntheticIR(kind IRKind, decay float64) (IRInfo, error) {
	c.mu.Lock()
	ir := SyntheticIR(kind, decay, c.sampleRate, c.rng)
	c.mu.Unlock()

	info := IRInfo{
		Name:            "Synthetic " + kind.String(),
		DurationSeconds: float64(len(ir[0])) / c.sampleRate,
		Channels:        len(ir),
		SampleRate:      c.sampleRate,
	}

	if err := c.setIR(info, ir); err != nil {
		return IRInfo{}, err
	}

	return info, nil
}

// LoadIR decodes a WAV impulse response, converts it to the chain rate and
// loads it. name is usually a file name; its extension is dropped. On
// failure the current impulse response is kept.
func (c *Chain) LoadIR(name string, data []byte) (IRInfo, error) {
	buf, err := deck.Decode(data)
	if err != nil {
		return IRInfo{}, &deck.DecodeError{Name: name, Err: err}
	}

	info := IRInfo{
		Name:            deck.TrackName(name),
		DurationSeconds: buf.Duration(),
		Channels:        buf.NumChannels(),
		SampleRate:      buf.SampleRate,
	}

	converted, err := resample.ConvertBuffer(buf, c.sampleRate)
	if err != nil {
		return IRInfo{}, fmt.Errorf("mastering: impulse response %q: %w", name, err)
	}

	if err := c.setIR(info, converted.Channels); err != nil {
		return IRInfo{}, err
	}

	return info, nil
}

// LoadIRFromURL fetches and loads a WAV impulse response. A zero timeout
// uses DefaultIRTimeout. On failure the current impulse response is kept.
func (c *Chain) LoadIRFromURL(ctx context.Context, url string, timeout time.Duration) (IRInfo, error) {
	if timeout <= 0 {
		timeout = DefaultIRTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return IRInfo{}, fmt.Errorf("%w: %w", ErrIRFetch, err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return IRInfo{}, fmt.Errorf("%w: %w", ErrIRFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return IRInfo{}, fmt.Errorf("%w: %s: %s", ErrIRFetch, url, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxIRBytes))
	if err != nil {
		return IRInfo{}, fmt.Errorf("%w: %w", ErrIRFetch, err)
	}

	return c.LoadIR(path.Base(req.URL.Path), data)
}

// ClearIR unloads the impulse response and removes the convolver stage.
func (c *Chain) ClearIR() {
	c.mu.Lock()
	defer c.mu.Unlock()

	_ = c.conv.SetKernel(nil)
	c.conv.Reset()
	c.state.Convolver.IRLoaded = false
	c.state.Convolver.IRName = ""
	c.rebuild()
}

// IR returns the loaded impulse response description, if any.
func (c *Chain) IR() (IRInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.irInfo, c.state.Convolver.IRLoaded
}

func (c *Chain) setIR(info IRInfo, ir [][]float64) error {
	k, err := conv.NewKernel(c.convBlock, ir, conv.WithNormalize(c.sampleRate))
	if err != nil {
		return fmt.Errorf("mastering: impulse response %q: %w", info.Name, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.conv.SetKernel(k); err != nil {
		return fmt.Errorf("mastering: impulse response %q: %w", info.Name, err)
	}

	c.irInfo = info
	c.state.Convolver.IRLoaded = true
	c.state.Convolver.IRName = info.Name
	c.rebuild()

	return nil
}
