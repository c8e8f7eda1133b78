// Command djmix analyses, sequences, renders and masters DJ mixes from WAV files and
// runs the reference analysis worker.
//
// Usage:
//
//	djmix analyze [--spectral] [--worker URL] track.wav ...
//	djmix automix [--title T] track.wav ...
//	djmix render -o mix.wav [--tracklist] [--dither tpdf] track.wav ...
//	djmix master -o out.wav [--ir tape] [--dynamic-eq] in.wav
//	djmix worker serve [--addr :8090]
//
// Settings not given as flags come from the environment or a .env file.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
