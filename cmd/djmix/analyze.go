package main

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cwbudde/algo-djmix/automix"
	"github.com/cwbudde/algo-djmix/deck"
	"github.com/cwbudde/algo-djmix/worker"
)

func newAnalyzeCmd(a *app) *cobra.Command {
	var (
		spectral  bool
		workerURL string
	)

	cmd := &cobra.Command{
		Use:   "analyze track.wav ...",
		Short: "Detect tempo, key and Camelot code of each track.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			decks, err := loadDecks(ctx, args, a.cfg.SampleRate, spectral)
			if err != nil {
				return err
			}

			if workerURL == "" {
				workerURL = a.cfg.WorkerURL
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "TRACK\tLENGTH\tBPM\tCONF\tKEY\tCAMELOT")

			for _, d := range decks {
				an := d.Analysis()
				fmt.Fprintf(tw, "%s\t%s\t%.1f\t%.2f\t%s\t%s\n",
					an.Name, automix.FormatClock(an.DurationSeconds), an.BPM, an.TempoConfidence, an.Key, an.CamelotCode)
			}

			if err := tw.Flush(); err != nil {
				return err
			}

			if workerURL != "" {
				return describe(ctx, cmd, a, workerURL, decks)
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&spectral, "spectral", false, "detect keys from an FFT chroma instead of the bin-fold approximation")
	cmd.Flags().StringVar(&workerURL, "worker", "", "analysis worker WebSocket URL for spectral descriptors")

	return cmd
}

// describe asks the worker for chunk descriptors of every deck. A worker
// that cannot be reached only costs the extra columns.
func describe(ctx context.Context, cmd *cobra.Command, a *app, url string, decks []*deck.Deck) error {
	dialCtx, cancel := context.WithTimeout(ctx, a.cfg.WorkerTimeout)
	defer cancel()

	tr, err := worker.DialWebSocket(dialCtx, url)
	if err != nil {
		a.log.Warn("analysis worker unavailable", zap.String("url", url), zap.Error(err))
		return nil
	}

	b, err := worker.NewBridge(tr, worker.WithLogger(a.log), worker.WithTimeout(a.cfg.WorkerTimeout))
	if err != nil {
		return err
	}
	defer b.Close()

	fmt.Fprintln(cmd.OutOrStdout())

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TRACK\tRMS\tPEAK dBFS\tCREST\tCENTROID Hz\tROLLOFF Hz")

	for _, d := range decks {
		buf := d.Buffer()

		res, err := b.AnalyzeChunk(ctx, buf.Channel(0), buf.SampleRate)
		if errors.Is(err, worker.ErrWorkerUnavailable) {
			a.log.Warn("analysis worker unavailable", zap.String("track", d.Name()), zap.Error(err))
			break
		}

		if err != nil {
			a.log.Warn("chunk analysis failed", zap.String("track", d.Name()), zap.Error(err))
			continue
		}

		fmt.Fprintf(tw, "%s\t%.3f\t%.1f\t%.2f\t%.0f\t%.0f\n",
			d.Name(), res.RMS, res.DBFS, res.CrestFactor, res.SpectralCentroid, res.SpectralRolloff)
	}

	return tw.Flush()
}
