package heads

import (
	"math"

	"github.com/AcidicSwords/AxiomicAgent/internal/signal"
)

// RegimeChange detects windowed change-points via the Euclidean distance
// between adjacent window-mean feature vectors (spec.md §4.7.3).
type RegimeChange struct {
	Window    int
	Threshold float64

	history      [][]float64
	changePoints []int
}

// NewRegimeChange builds a RegimeChange head with the given window and
// threshold.
func NewRegimeChange(window int, threshold float64) *RegimeChange {
	return &RegimeChange{Window: window, Threshold: threshold}
}

func (r *RegimeChange) Name() string { return "regime_change" }

func (r *RegimeChange) InitCourse(string) {
	r.history = nil
	r.changePoints = nil
}

func (r *RegimeChange) PerStep(ctx FrameContext, signals signal.Signals) map[string]any {
	window := r.Window
	if window <= 0 {
		window = 3
	}
	vec := []float64{signals.Q, signals.TED, ctx.StepFeatures.ConceptFraction, ctx.StepFeatures.AssessmentFraction, ctx.StepFeatures.ReadingFraction}
	r.history = append(r.history, vec)

	n := len(r.history)
	if n < 2*window+1 {
		return map[string]any{}
	}
	center := n - 1 - window

	before := meanVector(r.history[center-window : center])
	after := meanVector(r.history[center+1 : center+1+window])
	score := euclideanDistance(before, after)

	threshold := r.Threshold
	if threshold <= 0 {
		threshold = 0.25
	}
	if score >= threshold {
		r.changePoints = append(r.changePoints, center)
	}

	return map[string]any{"change_score": round3(score)}
}

func (r *RegimeChange) Finalize() map[string]any {
	return map[string]any{
		"change_points":     append([]int(nil), r.changePoints...),
		"num_change_points": len(r.changePoints),
	}
}

func meanVector(rows [][]float64) []float64 {
	if len(rows) == 0 {
		return nil
	}
	dims := len(rows[0])
	out := make([]float64, dims)
	for _, row := range rows {
		for i, v := range row {
			out[i] += v
		}
	}
	for i := range out {
		out[i] /= float64(len(rows))
	}
	return out
}

func euclideanDistance(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}
