// Package session wires two decks, a crossfader and a transport to the
// master bus. The summed deck output is a single tap feeding the mastering
// chain and the creative effects chain side by side:
//
//	deck A ─┐                 ┌─ mastering.Chain ─┐
//	        ├─ crossfader ─ tap                   + ─ out
//	deck B ─┘                 └─ effects.Chain ───┘
//
// The effects chain contributes what it adds on top of the dry tap, so with
// every send at zero the output is exactly the mastered signal.
package session
