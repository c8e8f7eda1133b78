// Package automix orders tracks for a continuous mix and lays them out on a
// timeline with a fixed crossfade overlap.
package automix
