package mastering

import (
	"reflect"
	"testing"

	"github.com/cwbudde/algo-djmix/dsp/biquad"
)

func TestBuildGraphOrder(t *testing.T) {
	base := DefaultState(48000)

	withDyn := base
	withDyn.DynamicEQ.Enabled = true

	withIR := base
	withIR.Convolver.IRLoaded = true

	withBoth := withDyn
	withBoth.Convolver.IRLoaded = true

	tests := []struct {
		name      string
		state     State
		wantNodes int
		wantDyn   int
		wantConv  int
	}{
		{name: "default", state: base, wantNodes: 14},
		{name: "dynamic eq", state: withDyn, wantNodes: 30, wantDyn: 16},
		{name: "impulse response", state: withIR, wantNodes: 15, wantConv: 1},
		{name: "both", state: withBoth, wantNodes: 31, wantDyn: 16, wantConv: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := BuildGraph(tt.state)

			if len(g.Nodes) != tt.wantNodes {
				t.Fatalf("len(Nodes) got=%d, want=%d", len(g.Nodes), tt.wantNodes)
			}

			if len(g.Connections) != len(g.Nodes)-1 {
				t.Fatalf("len(Connections) got=%d, want=%d", len(g.Connections), len(g.Nodes)-1)
			}

			if got := g.Count(NodeDynamicEQBand); got != tt.wantDyn {
				t.Fatalf("dynamic bands got=%d, want=%d", got, tt.wantDyn)
			}

			if got := g.Count(NodeConvolverWetDry); got != tt.wantConv {
				t.Fatalf("convolver nodes got=%d, want=%d", got, tt.wantConv)
			}

			// Kinds never go backwards along the chain.
			kinds := g.Kinds()
			for i := 1; i < len(kinds); i++ {
				if kinds[i] < kinds[i-1] {
					t.Fatalf("node %d kind %v follows %v", i, kinds[i], kinds[i-1])
				}
			}

			if kinds[0] != NodeInput || kinds[len(kinds)-1] != NodeOutput {
				t.Fatalf("graph endpoints got=%v..%v", kinds[0], kinds[len(kinds)-1])
			}

			for i, c := range g.Connections {
				if c.From != g.Nodes[i].ID || c.To != g.Nodes[i+1].ID {
					t.Fatalf("connection %d got=%+v", i, c)
				}
			}
		})
	}
}

func TestBuildGraphIdempotent(t *testing.T) {
	s := DefaultState(44100)
	s.DynamicEQ.Enabled = true
	s.Convolver.IRLoaded = true
	s.Convolver.WetMix = 0.4
	s.EQ[3].GainDB = -2.5

	a := BuildGraph(s)
	b := BuildGraph(s)

	if !reflect.DeepEqual(a, b) {
		t.Fatal("BuildGraph() is not deterministic for identical state")
	}

	conv := a.Nodes[len(a.Nodes)-4]
	if conv.Kind != NodeConvolverWetDry {
		t.Fatalf("node before limiter got=%v, want convolver", conv.Kind)
	}

	if conv.Params["dry"] != 1-0.7*0.4 {
		t.Fatalf("dry level got=%v, want=%v", conv.Params["dry"], 1-0.7*0.4)
	}
}

func TestBuildGraphEQSnapshot(t *testing.T) {
	g := BuildGraph(DefaultState(48000))
	layout := DefaultBands()

	idx := 0
	for _, n := range g.Nodes {
		if n.Kind != NodeEQBand {
			continue
		}

		if n.FilterType != layout[idx].Type || n.Params["frequency"] != layout[idx].FrequencyHz {
			t.Fatalf("eq node %d got=%v@%v, want=%v@%v",
				idx, n.FilterType, n.Params["frequency"], layout[idx].Type, layout[idx].FrequencyHz)
		}

		idx++
	}

	if idx != BandCount {
		t.Fatalf("eq nodes got=%d, want=%d", idx, BandCount)
	}

	if layout[0].Type != biquad.Highpass || layout[BandCount-1].Type != biquad.Lowpass {
		t.Fatalf("band layout endpoints got=%v..%v", layout[0].Type, layout[BandCount-1].Type)
	}
}

func TestNodeKindString(t *testing.T) {
	if got := NodeConvolverWetDry.String(); got != "convolver" {
		t.Fatalf("String() got=%q, want=%q", got, "convolver")
	}

	if got := NodeKind(99).String(); got != "NodeKind(99)" {
		t.Fatalf("String() got=%q, want=%q", got, "NodeKind(99)")
	}
}
