package heads

import (
	"math"
	"math/rand"

	"github.com/AcidicSwords/AxiomicAgent/internal/signal"
	"github.com/AcidicSwords/AxiomicAgent/internal/streamdata"
)

// MonteCarlo estimates the robustness of q and ted via resampling
// (spec.md §4.7.1).
type MonteCarlo struct {
	NumSamples   int
	EdgeDropout  float64
	WeightJitter float64
	Seed         int64

	rng        *rand.Rand
	qStdSum    float64
	tedStdSum  float64
	stepCount  int
}

// NewMonteCarlo builds a MonteCarlo head with the given parameters.
func NewMonteCarlo(numSamples int, edgeDropout, weightJitter float64, seed int64) *MonteCarlo {
	return &MonteCarlo{NumSamples: numSamples, EdgeDropout: edgeDropout, WeightJitter: weightJitter, Seed: seed}
}

func (m *MonteCarlo) Name() string { return "monte_carlo" }

func (m *MonteCarlo) InitCourse(courseID string) {
	m.rng = rand.New(rand.NewSource(m.Seed))
	m.qStdSum, m.tedStdSum, m.stepCount = 0, 0, 0
}

func (m *MonteCarlo) PerStep(ctx FrameContext, _ signal.Signals) map[string]any {
	if m.rng == nil {
		m.rng = rand.New(rand.NewSource(m.Seed))
	}
	numSamples := m.NumSamples
	if numSamples <= 0 {
		numSamples = 16
	}

	qs := make([]float64, 0, numSamples)
	teds := make([]float64, 0, numSamples)

	for i := 0; i < numSamples; i++ {
		curr := m.resample(ctx.CumulativeEdges)
		var prev streamdata.Frame
		hasPrev := ctx.HasPrevCumulative
		if hasPrev {
			prev = m.resample(ctx.PrevCumulative)
		}
		weights := m.jitterWeights(ctx.NodeWeights)

		qs = append(qs, fallbackQ(curr, weights))
		teds = append(teds, fallbackTED(curr, prev, hasPrev))
	}

	qMean, qStd := meanStd(qs)
	tedMean, tedStd := meanStd(teds)

	m.qStdSum += qStd
	m.tedStdSum += tedStd
	m.stepCount++

	return map[string]any{
		"q_mc_mean":   round3(qMean),
		"q_mc_std":    round3(qStd),
		"ted_mc_mean": round3(tedMean),
		"ted_mc_std":  round3(tedStd),
	}
}

func (m *MonteCarlo) Finalize() map[string]any {
	if m.stepCount == 0 {
		return map[string]any{"avg_q_mc_std": 0.0, "avg_ted_mc_std": 0.0}
	}
	return map[string]any{
		"avg_q_mc_std":   round3(m.qStdSum / float64(m.stepCount)),
		"avg_ted_mc_std": round3(m.tedStdSum / float64(m.stepCount)),
	}
}

// resample independently keeps each edge with probability 1-dropout; if the
// result is empty and the input was not, force-keeps one random edge
// (spec.md §4.7.1 step 1-2).
func (m *MonteCarlo) resample(frame streamdata.Frame) streamdata.Frame {
	if frame == nil || len(frame) == 0 {
		return streamdata.NewFrame()
	}
	ordered := frame.Sorted()
	keepProb := 1 - m.EdgeDropout
	out := streamdata.NewFrame()
	for _, e := range ordered {
		if m.rng.Float64() < keepProb {
			out.Add(e)
		}
	}
	if len(out) == 0 {
		out.Add(ordered[m.rng.Intn(len(ordered))])
	}
	return out
}

// jitterWeights multiplies each weight by a factor in [1-jitter, 1+jitter],
// clamped to >= 0 (spec.md §4.7.1 step 3).
func (m *MonteCarlo) jitterWeights(weights map[streamdata.NodeID]float64) map[streamdata.NodeID]float64 {
	out := make(map[streamdata.NodeID]float64, len(weights))
	for id, w := range weights {
		factor := 1 - m.WeightJitter + m.rng.Float64()*2*m.WeightJitter
		jittered := w * factor
		if jittered < 0 {
			jittered = 0
		}
		out[id] = jittered
	}
	return out
}

// fallbackQ recomputes q from the node-mass fallback formula of spec.md
// §4.5, using the (possibly jittered) sample weights directly rather than
// step_features — Monte Carlo always uses the fallback path, never the
// reported quality.
func fallbackQ(frame streamdata.Frame, weights map[streamdata.NodeID]float64) float64 {
	nodes := frame.Nodes()
	if len(nodes) == 0 {
		return 0
	}
	mass := 0.0
	for id := range nodes {
		mass += weights[id]
	}
	return math.Min(1, mass/math.Max(1, float64(2*len(nodes))))
}

// fallbackTED recomputes the Jaccard-distance fallback from spec.md §4.5.
func fallbackTED(curr, prev streamdata.Frame, hasPrev bool) float64 {
	if !hasPrev {
		return 0
	}
	if len(curr) == 0 && len(prev) == 0 {
		return 0
	}
	inter := len(curr.Intersect(prev))
	union := len(curr) + len(prev) - inter
	if union == 0 {
		return 0
	}
	return 1 - float64(inter)/float64(union)
}

func meanStd(xs []float64) (mean, std float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	mean = sum / float64(len(xs))
	variance := 0.0
	for _, x := range xs {
		d := x - mean
		variance += d * d
	}
	variance /= float64(len(xs))
	std = math.Sqrt(variance)
	return mean, std
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
