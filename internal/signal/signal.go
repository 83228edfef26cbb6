// Package signal computes the per-step signal algebra (q, TED, stability,
// spread, locality) described in spec.md §4.5. A SignalComputer instance is
// stateful only in prev_ted, exactly as the spec prescribes ("The
// SignalComputer retains only prev_ted across calls").
package signal

import (
	"math"
	"sort"

	"github.com/AcidicSwords/AxiomicAgent/internal/config"
	"github.com/AcidicSwords/AxiomicAgent/internal/streamdata"
)

// Signals is the per-step record produced by Compute.
type Signals struct {
	Q         float64
	TED       float64
	Stability float64

	TEDDelta    float64
	HasTEDDelta bool

	Spread    float64
	HasSpread bool

	LocalityNodes    []streamdata.NodeID
	HasLocalityNodes bool

	// Extras carries head-contributed fields keyed by name (spec.md §4.4
	// step 7: "extras merged into signals; later heads may read earlier
	// heads' outputs").
	Extras map[string]any
}

// Computer computes signals step by step, retaining only the previous TED.
type Computer struct {
	prevTED    float64
	hasPrevTED bool
}

// New creates a fresh Computer with no retained state.
func New() *Computer {
	return &Computer{}
}

// Compute derives the signal record for one step. cumulative is the edge set
// observed through this step; prevCumulative is the edge set through the
// prior step (hasPrev is false on the very first step, matching the spec's
// "prev_obs is None").
func (c *Computer) Compute(cumulative, prevCumulative streamdata.Frame, hasPrev bool, features streamdata.StepFeatures, cfg config.CoreConfig) Signals {
	q := computeQ(cumulative, features)
	ted := computeTED(cumulative, prevCumulative, hasPrev, features)
	stability := computeStability(ted, features)

	var sig Signals
	sig.Q = round3(q)
	sig.TED = round3(ted)
	sig.Stability = round3(stability)
	sig.Extras = make(map[string]any)

	if c.hasPrevTED {
		sig.TEDDelta = round3(ted - c.prevTED)
		sig.HasTEDDelta = true
	}
	c.prevTED = ted
	c.hasPrevTED = true

	if cfg.ComputeSpread {
		sig.Spread = round3(computeSpread(cumulative))
		sig.HasSpread = true
	}
	if cfg.ComputeLocality {
		topK := cfg.LocalityTopK
		if topK <= 0 {
			topK = 5
		}
		sig.LocalityNodes = computeLocalityNodes(cumulative, prevCumulative, topK)
		sig.HasLocalityNodes = true
	}

	return sig
}

// computeQ implements spec.md §4.5 "q".
func computeQ(obsT streamdata.Frame, features streamdata.StepFeatures) float64 {
	if features.HasQuality && !math.IsNaN(features.Quality) && !math.IsInf(features.Quality, 0) {
		return features.Quality
	}
	if features.HasNodeMass && features.HasUniqueNodeCount && features.UniqueNodeCount > 0 {
		denom := math.Max(1, float64(2*features.UniqueNodeCount))
		return math.Min(1, features.WeightedNodeMass/denom)
	}
	if len(obsT) > 0 {
		return math.Min(1, float64(len(obsT.Nodes()))/25)
	}
	return 0
}

// computeTED implements spec.md §4.5 "ted".
func computeTED(obsT, prevObs streamdata.Frame, hasPrev bool, features streamdata.StepFeatures) float64 {
	if features.HasTED && !math.IsNaN(features.TED) && !math.IsInf(features.TED, 0) {
		return features.TED
	}
	if !hasPrev {
		return 0
	}
	if len(obsT) == 0 && len(prevObs) == 0 {
		return 0
	}
	inter := len(obsT.Intersect(prevObs))
	union := len(obsT) + len(prevObs) - inter
	if union == 0 {
		return 0
	}
	return 1 - float64(inter)/float64(union)
}

// computeStability implements spec.md §4.5 "stability".
func computeStability(ted float64, features streamdata.StepFeatures) float64 {
	if features.HasStability && !math.IsNaN(features.Stability) && !math.IsInf(features.Stability, 0) {
		return clamp(features.Stability, 0, 1)
	}
	return clamp(1-ted, 0, 1)
}

// computeSpread implements spec.md §4.5 "spread": normalized Shannon entropy
// of connected-component sizes over the undirected adjacency of obs_t.
func computeSpread(obsT streamdata.Frame) float64 {
	adj := make(map[streamdata.NodeID][]streamdata.NodeID)
	for e := range obsT {
		adj[e.Src] = append(adj[e.Src], e.Dst)
		adj[e.Dst] = append(adj[e.Dst], e.Src)
	}
	if len(adj) == 0 {
		return 0
	}

	visited := make(map[streamdata.NodeID]bool, len(adj))
	var sizes []int
	nodes := make([]streamdata.NodeID, 0, len(adj))
	for n := range adj {
		nodes = append(nodes, n)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i] < nodes[j] })

	for _, start := range nodes {
		if visited[start] {
			continue
		}
		size := 0
		queue := []streamdata.NodeID{start}
		visited[start] = true
		for len(queue) > 0 {
			n := queue[0]
			queue = queue[1:]
			size++
			for _, nb := range adj[n] {
				if !visited[nb] {
					visited[nb] = true
					queue = append(queue, nb)
				}
			}
		}
		sizes = append(sizes, size)
	}

	k := len(sizes)
	if k <= 1 {
		return 0
	}
	total := 0
	for _, s := range sizes {
		total += s
	}
	entropy := 0.0
	for _, s := range sizes {
		p := float64(s) / float64(total)
		if p > 0 {
			entropy -= p * math.Log(p)
		}
	}
	return entropy / math.Log(float64(k))
}

// computeLocalityNodes implements spec.md §4.5 "locality_nodes": top-k nodes
// by degree delta between obs_t and prev_obs, descending, ties broken by
// ascending node id (spec.md §9 Open Question 3).
func computeLocalityNodes(obsT, prevObs streamdata.Frame, topK int) []streamdata.NodeID {
	degCur := degree(obsT)
	degPrev := degree(prevObs)

	union := make(map[streamdata.NodeID]struct{}, len(degCur)+len(degPrev))
	for n := range degCur {
		union[n] = struct{}{}
	}
	for n := range degPrev {
		union[n] = struct{}{}
	}

	type delta struct {
		id    streamdata.NodeID
		delta int
	}
	deltas := make([]delta, 0, len(union))
	for n := range union {
		d := degCur[n] - degPrev[n]
		if d < 0 {
			d = -d
		}
		deltas = append(deltas, delta{id: n, delta: d})
	}
	sort.Slice(deltas, func(i, j int) bool {
		if deltas[i].delta != deltas[j].delta {
			return deltas[i].delta > deltas[j].delta
		}
		return deltas[i].id < deltas[j].id
	})

	if topK > len(deltas) {
		topK = len(deltas)
	}
	out := make([]streamdata.NodeID, topK)
	for i := 0; i < topK; i++ {
		out[i] = deltas[i].id
	}
	return out
}

func degree(f streamdata.Frame) map[streamdata.NodeID]int {
	out := make(map[streamdata.NodeID]int)
	for e := range f {
		out[e.Src]++
		out[e.Dst]++
	}
	return out
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
