package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cwbudde/algo-djmix/deck"
	"github.com/cwbudde/algo-djmix/dsp/core"
	"github.com/cwbudde/algo-djmix/mastering"
	"github.com/cwbudde/algo-djmix/measure/loudness"
	"github.com/cwbudde/algo-djmix/render"
)

type masterFlags struct {
	output    string
	ir        string
	wet       float64
	ceiling   float64
	dynamic   bool
	ditherTyp string
	shape     bool
	seed      uint64
}

func newMasterCmd(a *app) *cobra.Command {
	var f masterFlags

	cmd := &cobra.Command{
		Use:   "master -o out.wav in.wav",
		Short: "Run a WAV file through the mastering chain.",
		Long: "Runs compressor, EQ, optional dynamic EQ and colorist convolution and the\n" +
			"limiter over a file in DJMIX_BLOCK_SIZE blocks and writes 16-bit stereo.\n" +
			"--ir takes a synthetic kind (tape, room, plate, console, noise), a WAV path\n" +
			"or an http(s) URL.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMaster(cmd, a, f, args[0])
		},
	}

	cmd.Flags().StringVarP(&f.output, "output", "o", "mastered.wav", "output WAV path")
	cmd.Flags().StringVar(&f.ir, "ir", "", "colorist impulse response")
	cmd.Flags().Float64Var(&f.wet, "wet", 0.3, "colorist wet mix in [0, 1]")
	cmd.Flags().Float64Var(&f.ceiling, "ceiling", -1, "limiter ceiling in dBFS")
	cmd.Flags().BoolVar(&f.dynamic, "dynamic-eq", false, "enable the dynamic spectral EQ")
	cmd.Flags().StringVar(&f.ditherTyp, "dither", "none", "dither before 16-bit quantization: none, rpdf or tpdf")
	cmd.Flags().BoolVar(&f.shape, "shape", false, "apply F-weighted noise shaping to the dither error")
	cmd.Flags().Uint64Var(&f.seed, "seed", 1, "dither noise seed")

	return cmd
}

func runMaster(cmd *cobra.Command, a *app, f masterFlags, path string) error {
	ctx := cmd.Context()

	wavOpts, err := ditherOptions(f.ditherTyp, f.shape, f.seed)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	in, err := deck.Decode(data)
	if err != nil {
		return &deck.DecodeError{Name: path, Err: err}
	}

	chain, err := mastering.NewChain(in.SampleRate)
	if err != nil {
		return err
	}

	chain.SetLimiterCeiling(f.ceiling)
	chain.EnableDynamicEQ(f.dynamic)

	if f.ir != "" {
		info, err := loadColorist(ctx, a, chain, f.ir)
		if err != nil {
			return err
		}

		chain.SetConvolverWet(f.wet)
		a.log.Info("colorist loaded", zap.String("ir", info.Name), zap.Float64("seconds", info.DurationSeconds))
	}

	out, err := core.NewBuffer(in.SampleRate, 2, in.Len())
	if err != nil {
		return err
	}

	left, right := out.Channel(0), out.Channel(1)
	copy(left, in.Channel(0))
	copy(right, in.Channel(1))

	block := max(a.cfg.BlockSize, 1)
	for start := 0; start < len(left); start += block {
		end := min(start+block, len(left))
		chain.Process(left[start:end], right[start:end])
	}

	w, err := os.Create(f.output)
	if err != nil {
		return err
	}

	if err := render.WriteWAV(w, out, wavOpts...); err != nil {
		_ = w.Close()
		return err
	}

	if err := w.Close(); err != nil {
		return err
	}

	level, err := loudness.Measure(out)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s  loudness: %s  limiter: %.1f dB\n", f.output, level, chain.LimiterReductionDB())

	return nil
}

func loadColorist(ctx context.Context, a *app, chain *mastering.Chain, ir string) (mastering.IRInfo, error) {
	switch {
	case strings.HasPrefix(ir, "http://"), strings.HasPrefix(ir, "https://"):
		return chain.LoadIRFromURL(ctx, ir, a.cfg.IRTimeout)
	case strings.HasSuffix(strings.ToLower(ir), ".wav"):
		data, err := os.ReadFile(ir)
		if err != nil {
			return mastering.IRInfo{}, err
		}

		return chain.LoadIR(ir, data)
	default:
		return chain.GenerateSyntheticIR(mastering.ParseIRKind(ir), mastering.DefaultIRDecay)
	}
}
