// Package preprocess turns a streamdata.RawStream into a
// streamdata.ProcessedStream: filtering nodes and edges, assigning tags and
// weights, and computing per-step features. Each domain gets its own
// Preprocessor, but all share the filtering/capping/weighting contract in
// this file.
package preprocess

import (
	"regexp"
	"strings"

	"github.com/AcidicSwords/AxiomicAgent/internal/config"
	"github.com/AcidicSwords/AxiomicAgent/internal/streamdata"
)

// Preprocessor turns a RawStream into a ProcessedStream for one domain.
type Preprocessor interface {
	Process(raw *streamdata.RawStream, cfg config.CoreConfig) (*streamdata.ProcessedStream, error)
}

// defaultWeights maps a tag to its node weight, per spec.md §4.2.
var defaultWeights = map[string]float64{
	"concept":    1.0,
	"theorem":    1.0,
	"definition": 1.0,
	"reading":    0.85,
	"assessment": 0.70,
	"exam":       0.70,
	"pset":       0.70,
	"segment":    0.70,
	"person":     0.30,
	"meta":       0.20,
	"navigation": 0.05,
	"media":      0.05,
	"unknown":    0.50,
	// Conversation/brainstorm-domain tags, not enumerated by name in the
	// curriculum weight table but following its same scale.
	"question": 0.70,
	"answer":   0.75,
	"entity":   0.60,
	"idea":     0.80,
	"build":    0.70,
	"risk":     0.60,
}

const (
	keepThreshold   = 0.10
	defaultDegreeCap = 50
)

// filterRule holds one domain's stoplist and stop-pattern regexes.
type filterRule struct {
	stoplist map[string]struct{}
	patterns []*regexp.Regexp
}

func newFilterRule(stoplist []string, patterns []string) filterRule {
	fr := filterRule{stoplist: make(map[string]struct{}, len(stoplist))}
	for _, s := range stoplist {
		fr.stoplist[strings.ToLower(s)] = struct{}{}
	}
	for _, p := range patterns {
		fr.patterns = append(fr.patterns, regexp.MustCompile(p))
	}
	return fr
}

// blocks reports whether a label is dropped by this rule's stoplist or
// stop-pattern regexes.
func (fr filterRule) blocks(label string) bool {
	lower := strings.ToLower(strings.TrimSpace(label))
	if _, ok := fr.stoplist[lower]; ok {
		return true
	}
	for _, p := range fr.patterns {
		if p.MatchString(label) {
			return true
		}
	}
	return false
}

// navigationStopRule is shared by every domain: generic navigation/media
// filler that is never a meaningful node regardless of domain.
var navigationStopRule = newFilterRule(
	[]string{"next", "previous", "back", "home", "menu", "advertisement", "loading"},
	[]string{`(?i)^\s*(slide|page)\s*\d+\s*$`, `(?i)^\s*(intro|outro)\s+music\s*$`},
)

// weightOf returns a tag's configured weight, falling back to "unknown".
func weightOf(tag string) float64 {
	if w, ok := defaultWeights[tag]; ok {
		return w
	}
	return defaultWeights["unknown"]
}

// nodeWeight computes a node's weight as the max weight across its assigned
// tags, scaled by the domain weight-scale knobs (spec.md §6 AXIOM_*_W_SCALE).
func nodeWeight(tags map[string]struct{}, scales config.WeightScales) float64 {
	best := 0.0
	for t := range tags {
		w := weightOf(t) * scaleFor(t, scales)
		if w > best {
			best = w
		}
	}
	if best == 0 {
		return defaultWeights["unknown"] * scales.Default
	}
	return best
}

func scaleFor(tag string, scales config.WeightScales) float64 {
	switch tag {
	case "assessment", "exam", "pset":
		return scales.Pset
	case "reading":
		return scales.Resource
	case "segment":
		return scales.Lecture
	default:
		return scales.Default
	}
}

// capped applies the per-step degree cap (spec.md §4.2): edges are processed
// in insertion order, and an edge is skipped once either endpoint would
// exceed maxDegree within that step.
func capped(edges []streamdata.Edge, maxDegree int) []streamdata.Edge {
	if maxDegree <= 0 {
		maxDegree = defaultDegreeCap
	}
	degree := make(map[streamdata.NodeID]int)
	out := make([]streamdata.Edge, 0, len(edges))
	for _, e := range edges {
		if degree[e.Src] >= maxDegree || degree[e.Dst] >= maxDegree {
			continue
		}
		degree[e.Src]++
		degree[e.Dst]++
		out = append(out, e)
	}
	return out
}

// filterFrame drops self-loops and edges with a filtered endpoint, then
// applies the degree cap, preserving the frame's deterministic sorted
// insertion order.
func filterFrame(frame streamdata.Frame, surviving map[streamdata.NodeID]struct{}, maxDegree int) streamdata.Frame {
	ordered := frame.Sorted()
	clean := make([]streamdata.Edge, 0, len(ordered))
	for _, e := range ordered {
		if e.Src == e.Dst {
			continue
		}
		if _, ok := surviving[e.Src]; !ok {
			continue
		}
		if _, ok := surviving[e.Dst]; !ok {
			continue
		}
		clean = append(clean, e)
	}
	return streamdata.NewFrame(capped(clean, maxDegree)...)
}

// sumTagWeight sums node_weights over the step's touched nodes carrying tag.
func sumTagWeight(nodes map[streamdata.NodeID]struct{}, tags map[streamdata.NodeID]map[string]struct{}, weights map[streamdata.NodeID]float64, tag string) float64 {
	total := 0.0
	for id := range nodes {
		if _, ok := tags[id][tag]; ok {
			total += weights[id]
		}
	}
	return total
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func max(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
