// Package adapter exposes a ProcessedStream as a stateful, single-pass
// cursor over its steps (spec.md §4.3).
package adapter

import (
	"math/rand"

	"github.com/AcidicSwords/AxiomicAgent/internal/streamdata"
)

// Cursor holds a ProcessedStream and an ordered position within its steps.
type Cursor struct {
	stream *streamdata.ProcessedStream
	steps  []int
	pos    int // index of the step NOT yet returned by NextObs

	currentStep    int
	hasCurrentStep bool

	perm map[streamdata.NodeID]streamdata.NodeID
}

// New builds a Cursor over stream. When scramble is true, every frame
// returned has its node ids permuted by a fixed, deterministic permutation
// keyed on seed (spec.md §4.3 "Optional scrambling").
func New(stream *streamdata.ProcessedStream, scramble bool, seed int64) *Cursor {
	c := &Cursor{stream: stream, steps: stream.SortedSteps()}
	if scramble {
		c.perm = buildPermutation(stream, seed)
	}
	return c
}

// HasMore reports whether any unread step remains.
func (c *Cursor) HasMore() bool {
	return c.pos < len(c.steps)
}

// NextObs returns the next observed frame and advances the cursor. Returns
// an empty frame once the stream is exhausted.
func (c *Cursor) NextObs() streamdata.Frame {
	if !c.HasMore() {
		return streamdata.NewFrame()
	}
	step := c.steps[c.pos]
	c.pos++
	c.currentStep = step
	c.hasCurrentStep = true

	frame, ok := c.stream.ObsSteps[step]
	if !ok {
		frame = streamdata.NewFrame()
	}
	return c.scrambleFrame(frame)
}

// PeekTruth returns the ground-truth frame horizon steps ahead of the
// cursor's current position, or (nil, false) if there is no such step or no
// truth data recorded for it.
func (c *Cursor) PeekTruth(horizon int) (streamdata.Frame, bool) {
	idx := c.pos + horizon - 1
	if idx < 0 || idx >= len(c.steps) {
		return nil, false
	}
	step := c.steps[idx]
	frame, ok := c.stream.TrueSteps[step]
	if !ok {
		return nil, false
	}
	return c.scrambleFrame(frame), true
}

// CurrentStep returns the step id most recently returned by NextObs.
func (c *Cursor) CurrentStep() (int, bool) {
	return c.currentStep, c.hasCurrentStep
}

// GetStepFeatures returns the step_features record for step, or the zero
// value if absent (spec.md §3 invariant 4).
func (c *Cursor) GetStepFeatures(step int) streamdata.StepFeatures {
	return c.stream.StepFeatures[step]
}

// Meta returns the stream's free-form metadata map.
func (c *Cursor) Meta() map[string]any {
	return c.stream.Meta
}

// NodeLabel returns a node's label, or "" if unknown.
func (c *Cursor) NodeLabel(id streamdata.NodeID) string {
	if c.perm != nil {
		id = reverseLookup(c.perm, id)
	}
	return c.stream.Nodes[id].Label
}

func (c *Cursor) scrambleFrame(frame streamdata.Frame) streamdata.Frame {
	if c.perm == nil {
		return frame
	}
	out := streamdata.NewFrame()
	for e := range frame {
		out.Add(streamdata.Edge{Src: c.perm[e.Src], Dst: c.perm[e.Dst]})
	}
	return out
}

// buildPermutation derives a fixed Fisher-Yates permutation of every node id
// appearing in the stream, seeded deterministically.
func buildPermutation(stream *streamdata.ProcessedStream, seed int64) map[streamdata.NodeID]streamdata.NodeID {
	ids := make([]streamdata.NodeID, 0, len(stream.Nodes))
	for id := range stream.Nodes {
		ids = append(ids, id)
	}
	sortNodeIDs(ids)

	shuffled := make([]streamdata.NodeID, len(ids))
	copy(shuffled, ids)
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

	perm := make(map[streamdata.NodeID]streamdata.NodeID, len(ids))
	for i, id := range ids {
		perm[id] = shuffled[i]
	}
	return perm
}

func reverseLookup(perm map[streamdata.NodeID]streamdata.NodeID, target streamdata.NodeID) streamdata.NodeID {
	for from, to := range perm {
		if to == target {
			return from
		}
	}
	return target
}

func sortNodeIDs(ids []streamdata.NodeID) {
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j] < ids[j-1]; j-- {
			ids[j], ids[j-1] = ids[j-1], ids[j]
		}
	}
}
