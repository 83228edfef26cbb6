// Package heads implements the signal heads that observe each step's frame
// and signals, contribute extra fields, and summarize at course end
// (spec.md §4.7).
package heads

import (
	"github.com/AcidicSwords/AxiomicAgent/internal/signal"
	"github.com/AcidicSwords/AxiomicAgent/internal/streamdata"
)

// FrameContext is the per-step view a Head receives: the StepFrame of
// spec.md §4.4 step 6.
type FrameContext struct {
	T                 int
	StepID            int
	ObsEdges          streamdata.Frame
	CumulativeEdges   streamdata.Frame
	PrevCumulative    streamdata.Frame
	HasPrevCumulative bool
	NodeWeights       map[streamdata.NodeID]float64
	StepFeatures      streamdata.StepFeatures
}

// Head is a signal head: it observes each step and produces extras merged
// into that step's signals, then summarizes at course end.
type Head interface {
	Name() string
	InitCourse(courseID string)
	PerStep(ctx FrameContext, signals signal.Signals) map[string]any
	Finalize() map[string]any
}
