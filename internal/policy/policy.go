// Package policy produces bounded-size predicted frames for regret
// accounting and downstream consumers (spec.md §4.6).
package policy

import "github.com/AcidicSwords/AxiomicAgent/internal/streamdata"

// Policy predicts the next step's frame from the observed frame and the
// previous prediction.
type Policy interface {
	Step(t int, prevPred, obsT streamdata.Frame) streamdata.Frame
}

// Identity returns a copy of the observed frame, unmodified.
type Identity struct{}

func (Identity) Step(_ int, _, obsT streamdata.Frame) streamdata.Frame {
	return obsT.Clone()
}

// Capacity bounds the predicted frame to max_edges, splitting the budget
// between edges carried over from the previous prediction ("sticky") and
// newly observed edges, per spec.md §4.6.
type Capacity struct {
	MaxEdges       int
	StickyFraction float64
	MaxNodes       int
	HasMaxNodes    bool
}

// New builds a Capacity policy with the given parameters.
func New(maxEdges int, stickyFraction float64, maxNodes int, hasMaxNodes bool) *Capacity {
	return &Capacity{MaxEdges: maxEdges, StickyFraction: stickyFraction, MaxNodes: maxNodes, HasMaxNodes: hasMaxNodes}
}

func (c *Capacity) Step(_ int, prevPred, obsT streamdata.Frame) streamdata.Frame {
	if c.MaxEdges <= 0 {
		return streamdata.NewFrame()
	}
	stickyBudget := int(float64(c.MaxEdges) * c.StickyFraction)

	var kept []streamdata.Edge
	if prevPred != nil {
		kept = prevPred.Intersect(obsT).Sorted()
	}
	newEdges := obsT.Diff(prevPred).Sorted()

	selected := streamdata.NewFrame()

	add := func(e streamdata.Edge) bool {
		if len(selected) >= c.MaxEdges {
			return false
		}
		selected.Add(e)
		return true
	}

	keptUsed := 0
	for _, e := range kept {
		if keptUsed >= stickyBudget {
			break
		}
		if add(e) {
			keptUsed++
		}
	}

	for _, e := range newEdges {
		if len(selected) >= c.MaxEdges {
			break
		}
		add(e)
	}

	// Top up from the remaining kept edges if there's still room.
	for _, e := range kept {
		if len(selected) >= c.MaxEdges {
			break
		}
		if !selected.Has(e) {
			add(e)
		}
	}

	if c.HasMaxNodes && c.MaxNodes > 0 {
		selected = enforceNodeCapacity(selected, c.MaxNodes)
	}

	return selected
}

// enforceNodeCapacity drops an edge only when BOTH endpoints have already
// reached max_nodes, applied as a separate pass over the already-selected
// edge set with per-node counts reset to zero (mirrors
// _enforce_node_capacity in the original policy head).
func enforceNodeCapacity(selected streamdata.Frame, maxNodes int) streamdata.Frame {
	counts := make(map[streamdata.NodeID]int)
	out := streamdata.NewFrame()
	for _, e := range selected.Sorted() {
		if counts[e.Src] >= maxNodes && counts[e.Dst] >= maxNodes {
			continue
		}
		out.Add(e)
		counts[e.Src]++
		counts[e.Dst]++
	}
	return out
}
