package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"go.uber.org/zap"

	"github.com/cwbudde/algo-djmix/automix"
	"github.com/cwbudde/algo-djmix/dsp/dither"
	"github.com/cwbudde/algo-djmix/measure/loudness"
	"github.com/cwbudde/algo-djmix/render"
	"github.com/cwbudde/algo-djmix/worker"
)

type renderFlags struct {
	output    string
	ditherTyp string
	shape     bool
	seed      uint64
	tracklist bool
	store     bool
	quiet     bool
	spectral  bool
}

func newRenderCmd(a *app) *cobra.Command {
	var f renderFlags

	cmd := &cobra.Command{
		Use:   "render -o mix.wav track.wav ...",
		Short: "Automix the tracks and render the mix to a 16-bit 44.1 kHz WAV file.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd, a, f, args)
		},
	}

	cmd.Flags().StringVarP(&f.output, "output", "o", "mix.wav", "output WAV path")
	cmd.Flags().StringVar(&f.ditherTyp, "dither", "none", "dither before 16-bit quantization: none, rpdf or tpdf")
	cmd.Flags().BoolVar(&f.shape, "shape", false, "apply F-weighted noise shaping to the dither error")
	cmd.Flags().Uint64Var(&f.seed, "seed", 1, "dither noise seed")
	cmd.Flags().BoolVar(&f.tracklist, "tracklist", false, "also write a .txt track list next to the output")
	cmd.Flags().BoolVar(&f.store, "store", false, "upload the rendered file through the analysis worker")
	cmd.Flags().BoolVarP(&f.quiet, "quiet", "q", false, "hide the progress bar")
	cmd.Flags().BoolVar(&f.spectral, "spectral", false, "detect keys from an FFT chroma")

	return cmd
}

func runRender(cmd *cobra.Command, a *app, f renderFlags, paths []string) error {
	ctx := cmd.Context()

	wavOpts, err := ditherOptions(f.ditherTyp, f.shape, f.seed)
	if err != nil {
		return err
	}

	decks, err := loadDecks(ctx, paths, render.SampleRate, f.spectral)
	if err != nil {
		return err
	}

	tl, err := buildTimeline(decks)
	if err != nil {
		return err
	}

	tracks := tl.Tracks()

	var (
		p       *mpb.Progress
		bar     *mpb.Bar
		mixOpts []render.Option
	)

	if !f.quiet {
		p = mpb.New(mpb.WithOutput(cmd.ErrOrStderr()), mpb.WithWidth(64))
		bar = p.AddBar(int64(len(tracks)),
			mpb.PrependDecorators(
				decor.Name("rendering "),
				decor.CountersNoUnit("%d / %d"),
			),
			mpb.AppendDecorators(
				decor.Percentage(),
				decor.Elapsed(decor.ET_STYLE_GO, decor.WC{W: 6}),
			),
		)
		mixOpts = append(mixOpts, render.WithProgress(func(done, _ int) {
			bar.SetCurrent(int64(done))
		}))
	}

	start := time.Now()
	mix, err := render.Mix(tracks, mixOpts...)

	if p != nil {
		if err != nil {
			bar.Abort(false)
		}

		p.Wait()
	}

	if err != nil {
		return err
	}

	out, err := os.Create(f.output)
	if err != nil {
		return err
	}

	if err := render.WriteWAV(out, mix, wavOpts...); err != nil {
		_ = out.Close()
		return err
	}

	if err := out.Close(); err != nil {
		return err
	}

	level, err := loudness.Measure(mix)
	if err != nil {
		return err
	}

	a.log.Info("mix rendered",
		zap.String("output", f.output),
		zap.Int("tracks", len(tracks)),
		zap.Float64("seconds", mix.Duration()),
		zap.Float64("lufs", level.Integrated),
		zap.Float64("peak_dbfs", level.PeakDB),
		zap.Duration("elapsed", time.Since(start)),
	)

	list := automix.FormatTrackList("DJ MIX", tl.TrackList())

	if f.tracklist {
		txt := trackListPath(f.output)
		if err := os.WriteFile(txt, []byte(list), 0o644); err != nil {
			return err
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %d tracks\n", f.output, automix.FormatClock(mix.Duration()), len(tracks))
	fmt.Fprintf(cmd.OutOrStdout(), "loudness: %s\n", level)

	if f.store {
		return storeMix(ctx, cmd, a, f.output)
	}

	return nil
}

// ditherOptions maps the --dither, --shape and --seed flags to WAV options.
func ditherOptions(name string, shape bool, seed uint64) ([]render.WAVOption, error) {
	dt, err := dither.ParseType(name)
	if err != nil {
		return nil, err
	}

	if dt == dither.None {
		return nil, nil
	}

	var shaping []float64
	if shape {
		shaping = dither.FWeighted
	}

	return []render.WAVOption{render.WithDither(dt, shaping), render.WithDitherSeed(seed)}, nil
}

func trackListPath(output string) string {
	ext := filepath.Ext(output)
	return output[:len(output)-len(ext)] + "-tracklist.txt"
}

// storeMix uploads the rendered file through the worker's STORE_BLOB
// command.
func storeMix(ctx context.Context, cmd *cobra.Command, a *app, path string) error {
	if a.cfg.WorkerURL == "" {
		return fmt.Errorf("djmix: --store needs WORKER_URL")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	dialCtx, cancel := context.WithTimeout(ctx, a.cfg.WorkerTimeout)
	defer cancel()

	tr, err := worker.DialWebSocket(dialCtx, a.cfg.WorkerURL)
	if err != nil {
		return err
	}

	b, err := worker.NewBridge(tr, worker.WithLogger(a.log), worker.WithTimeout(a.cfg.WorkerTimeout))
	if err != nil {
		return err
	}
	defer b.Close()

	res, err := b.StoreBlob(ctx, filepath.Base(path), data)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "stored %s (%d bytes)\n", res.Key, res.Size)

	return nil
}
