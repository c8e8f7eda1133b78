package mastering

import (
	"math"
	"testing"
)

func flatFrame(n int, v float64) []float64 {
	f := make([]float64, n)
	for i := range f {
		f[i] = v
	}

	return f
}

func newTestDynamicEQ(t *testing.T) *DynamicEQ {
	t.Helper()

	cfg := DefaultDynamicEQ()
	cfg.Enabled = true

	d, err := NewDynamicEQ(48000, cfg)
	if err != nil {
		t.Fatalf("NewDynamicEQ() error = %v", err)
	}

	return d
}

func TestDynamicBandFrequencies(t *testing.T) {
	got := DynamicBandFrequencies(16, 48000)
	if len(got) != 16 {
		t.Fatalf("len got=%d, want=16", len(got))
	}

	if got[0] != 100 || math.Abs(got[15]-16000) > 1e-9 {
		t.Fatalf("endpoints got=%v..%v, want=100..16000", got[0], got[15])
	}

	for i := 1; i < len(got); i++ {
		if got[i] <= got[i-1] {
			t.Fatalf("frequencies not increasing at %d: %v <= %v", i, got[i], got[i-1])
		}
	}

	capped := DynamicBandFrequencies(16, 22050)
	if want := 22050 / 2 * 0.95; capped[15] != want {
		t.Fatalf("top band at 22.05 kHz got=%v, want=%v", capped[15], want)
	}
}

func TestNewDynamicEQValidation(t *testing.T) {
	if _, err := NewDynamicEQ(0, DefaultDynamicEQ()); err == nil {
		t.Fatal("NewDynamicEQ(sr=0): expected error")
	}

	cfg := DefaultDynamicEQ()
	cfg.BandCount = 1
	if _, err := NewDynamicEQ(48000, cfg); err == nil {
		t.Fatal("NewDynamicEQ(bands=1): expected error")
	}
}

func TestDynamicEQConvergence(t *testing.T) {
	const (
		bins = 2048
		dt   = 0.002
	)

	d := newTestDynamicEQ(t)

	for range 1000 {
		d.Update(flatFrame(bins, 1), dt)
	}

	for _, b := range d.Bands() {
		if b.CurrentGainDB != 0 {
			t.Fatalf("gain after warm-up got=%v, want=0", b.CurrentGainDB)
		}
	}

	// Hold every band at 4x its running average.
	prev := 0.0
	var firstAttack float64

	for i := range 20 {
		avg := d.Bands()[5].RunningAverageEnergy
		d.Update(flatFrame(bins, 4*avg), dt)

		g := d.Bands()[5].CurrentGainDB
		if g >= prev {
			t.Fatalf("frame %d gain got=%v, want below %v", i, g, prev)
		}

		if i == 0 {
			firstAttack = g
		}

		prev = g
	}

	// ratio 4/1.15 over threshold 3, slope 3, attenuation 0.5
	wantCut := -(4/1.15 - 3) * 3 * 0.5
	if math.Abs(prev-wantCut) > 0.01 {
		t.Fatalf("held gain got=%v, want=%v", prev, wantCut)
	}

	attackFraction := firstAttack / wantCut

	avg := d.Bands()[5].RunningAverageEnergy
	d.Update(flatFrame(bins, avg), dt)

	g := d.Bands()[5].CurrentGainDB
	if g <= prev {
		t.Fatalf("gain after energy returned got=%v, want above %v", g, prev)
	}

	releaseFraction := (g - prev) / -prev
	if releaseFraction >= attackFraction {
		t.Fatalf("release step %.3f not slower than attack step %.3f", releaseFraction, attackFraction)
	}

	for range 200 {
		avg = d.Bands()[5].RunningAverageEnergy
		d.Update(flatFrame(bins, avg), dt)
	}

	if g := d.Bands()[5].CurrentGainDB; g < -0.01 || g > 0 {
		t.Fatalf("gain after release got=%v, want ~0", g)
	}
}

func TestDynamicEQDisableReleases(t *testing.T) {
	d := newTestDynamicEQ(t)

	d.Update(flatFrame(2048, 1), 0.01)
	if d.Bands()[0].CurrentGainDB >= 0 {
		t.Fatalf("first frame from empty history should cut, got=%v", d.Bands()[0].CurrentGainDB)
	}

	d.SetEnabled(false)
	for range 200 {
		d.Update(nil, 0.01)
	}

	for i, b := range d.Bands() {
		if b.CurrentGainDB != 0 {
			t.Fatalf("band %d gain after disable got=%v, want=0", i, b.CurrentGainDB)
		}
	}
}

func TestDynamicEQIgnoresFramesWhileDisabled(t *testing.T) {
	cfg := DefaultDynamicEQ()

	d, err := NewDynamicEQ(48000, cfg)
	if err != nil {
		t.Fatalf("NewDynamicEQ() error = %v", err)
	}

	d.Update(flatFrame(2048, 1), 0.01)

	if b := d.Bands()[0]; b.RunningAverageEnergy != 0 || b.CurrentGainDB != 0 {
		t.Fatalf("disabled update changed state: %+v", b)
	}
}
