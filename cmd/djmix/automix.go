package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-djmix/automix"
)

func newAutomixCmd(a *app) *cobra.Command {
	var (
		title    string
		spectral bool
	)

	cmd := &cobra.Command{
		Use:   "automix track.wav ...",
		Short: "Order tracks for harmonic transitions and print the track list.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			decks, err := loadDecks(cmd.Context(), args, a.cfg.SampleRate, spectral)
			if err != nil {
				return err
			}

			tl, err := buildTimeline(decks)
			if err != nil {
				return err
			}

			fmt.Fprint(cmd.OutOrStdout(), automix.FormatTrackList(title, tl.TrackList()))
			fmt.Fprintf(cmd.OutOrStdout(), "Total: %s\n", automix.FormatClock(tl.TotalDuration()))

			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "DJ MIX", "track list heading; empty for none")
	cmd.Flags().BoolVar(&spectral, "spectral", false, "detect keys from an FFT chroma")

	return cmd
}
