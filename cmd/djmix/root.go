package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cwbudde/algo-djmix/analysis"
	"github.com/cwbudde/algo-djmix/automix"
	"github.com/cwbudde/algo-djmix/deck"
	"github.com/cwbudde/algo-djmix/internal/config"
	"github.com/cwbudde/algo-djmix/internal/logging"
)

// app carries what every subcommand needs once flags are parsed.
type app struct {
	envFile  string
	logLevel string
	cfg      *config.Config
	log      *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "djmix",
		Short:         "Two-deck DJ mixer tools: analysis, automix, render and worker.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			_ = logging.Sync()
		},
	}

	root.PersistentFlags().StringVar(&a.envFile, "env", "", "path to a .env file (default .env)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn or error")

	root.AddCommand(
		newAnalyzeCmd(a),
		newAutomixCmd(a),
		newRenderCmd(a),
		newMasterCmd(a),
		newWorkerCmd(a),
	)

	return root
}

func (a *app) setup() error {
	if a.envFile != "" {
		a.cfg = config.Load(a.envFile)
	} else {
		a.cfg = config.Load()
	}

	lc := logging.DefaultConfig()
	lc.Level = a.cfg.LogLevel
	lc.OutputPath = a.cfg.LogFile

	if a.logLevel != "" {
		lc.Level = a.logLevel
	}

	if err := logging.Init(lc); err != nil {
		return err
	}

	a.log = logging.L()

	return nil
}

// loadDecks decodes and analyses each file into its own deck rendering at
// sampleRate. The first failure aborts.
func loadDecks(ctx context.Context, paths []string, sampleRate float64, spectral bool) ([]*deck.Deck, error) {
	var opts []deck.Option

	if spectral {
		kd, err := analysis.NewSpectralDetector()
		if err != nil {
			return nil, err
		}

		opts = append(opts, deck.WithKeyDetector(kd))
	}

	decks := make([]*deck.Deck, 0, len(paths))

	for i, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, err
		}

		d, err := deck.New(deck.ID(fmt.Sprint(i+1)), sampleRate, opts...)
		if err != nil {
			return nil, err
		}

		if _, err := d.Load(ctx, p, data); err != nil {
			return nil, err
		}

		decks = append(decks, d)
	}

	return decks, nil
}

// buildTimeline adds every deck to a timeline and sequences it.
func buildTimeline(decks []*deck.Deck) (*automix.Timeline, error) {
	tl := automix.NewTimeline()

	for _, d := range decks {
		t, err := automix.TrackFromDeck(d)
		if err != nil {
			return nil, err
		}

		tl.Add(t)
	}

	tl.AutoMix()

	return tl, nil
}
