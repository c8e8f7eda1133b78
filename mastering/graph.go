package mastering

import (
	"fmt"
	"strconv"

	"github.com/cwbudde/algo-djmix/dsp/biquad"
)

// NodeKind identifies a stage of the mastering graph.
type NodeKind int

const (
	NodeInput NodeKind = iota
	NodeCompressor
	NodeMakeup
	NodeEQBand
	NodeDynamicEQBand
	NodeConvolverWetDry
	NodeLimiter
	NodeAnalyser
	NodeOutput
)

var nodeKindNames = [...]string{
	NodeInput:           "input",
	NodeCompressor:      "compressor",
	NodeMakeup:          "makeup",
	NodeEQBand:          "eq",
	NodeDynamicEQBand:   "dynamic-eq",
	NodeConvolverWetDry: "convolver",
	NodeLimiter:         "limiter",
	NodeAnalyser:        "analyser",
	NodeOutput:          "output",
}

func (k NodeKind) String() string {
	if k < 0 || int(k) >= len(nodeKindNames) {
		return fmt.Sprintf("NodeKind(%d)", int(k))
	}

	return nodeKindNames[k]
}

// MarshalText implements encoding.TextMarshaler.
func (k NodeKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Node is one stage with a snapshot of its parameters.
type Node struct {
	ID         string             `json:"id"`
	Kind       NodeKind           `json:"type"`
	Index      int                `json:"index"`
	FilterType biquad.Type        `json:"filterType,omitempty"`
	Params     map[string]float64 `json:"params,omitempty"`
}

// Connection links two nodes by id.
type Connection struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Graph is the ordered, linear node list of the chain.
type Graph struct {
	Nodes       []Node       `json:"nodes"`
	Connections []Connection `json:"connections"`
}

// Count returns how many nodes of kind k the graph holds.
func (g Graph) Count(k NodeKind) int {
	n := 0
	for _, node := range g.Nodes {
		if node.Kind == k {
			n++
		}
	}

	return n
}

// Kinds returns the node kinds in processing order.
func (g Graph) Kinds() []NodeKind {
	out := make([]NodeKind, len(g.Nodes))
	for i, node := range g.Nodes {
		out[i] = node.Kind
	}

	return out
}

// BuildGraph derives the processing graph from a state. Dynamic EQ bands are
// present only when the dynamic EQ is enabled, and the convolver wet/dry
// stage only when an impulse response is loaded. The result depends on s
// alone.
func BuildGraph(s State) Graph {
	var g Graph

	add := func(n Node) {
		if len(g.Nodes) > 0 {
			g.Connections = append(g.Connections, Connection{From: g.Nodes[len(g.Nodes)-1].ID, To: n.ID})
		}

		g.Nodes = append(g.Nodes, n)
	}

	add(Node{ID: "_input", Kind: NodeInput})

	c := s.Compressor
	add(Node{ID: "compressor", Kind: NodeCompressor, Params: map[string]float64{
		"threshold": c.ThresholdDB,
		"knee":      c.KneeDB,
		"ratio":     c.Ratio,
		"attack":    c.AttackSeconds,
		"release":   c.ReleaseSeconds,
	}})
	add(Node{ID: "makeup", Kind: NodeMakeup, Params: map[string]float64{"gain": c.MakeupGain}})

	for i, b := range s.EQ {
		add(Node{
			ID:         "eq" + strconv.Itoa(i),
			Kind:       NodeEQBand,
			Index:      i,
			FilterType: b.Type,
			Params:     map[string]float64{"frequency": b.FrequencyHz, "q": b.Q, "gain": b.GainDB},
		})
	}

	if d := s.DynamicEQ; d.Enabled {
		for i, hz := range DynamicBandFrequencies(d.BandCount, s.SampleRate) {
			add(Node{
				ID:         "dyn" + strconv.Itoa(i),
				Kind:       NodeDynamicEQBand,
				Index:      i,
				FilterType: biquad.Peaking,
				Params:     map[string]float64{"frequency": hz, "q": dynQ},
			})
		}
	}

	if s.Convolver.IRLoaded {
		wet := s.Convolver.WetMix
		add(Node{ID: "convolver", Kind: NodeConvolverWetDry, Params: map[string]float64{
			"wet": wet,
			"dry": dryLevel(wet),
		}})
	}

	add(Node{ID: "limiter", Kind: NodeLimiter, Params: map[string]float64{"ceiling": s.Limiter.CeilingDB}})
	add(Node{ID: "analyser", Kind: NodeAnalyser})
	add(Node{ID: "_output", Kind: NodeOutput})

	return g
}

// dryLevel returns the dry gain that pairs with a wet mix.
func dryLevel(wet float64) float64 { return 1 - 0.7*wet }
