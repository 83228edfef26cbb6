package heads

import (
	"github.com/AcidicSwords/AxiomicAgent/internal/signal"
)

type forecastPoint struct {
	t                  int
	q, ted             float64
	conceptFraction    float64
	assessmentFraction float64
	readingFraction    float64
	stepType           string
}

// Forecast records per-step feature vectors and predicts the next step's
// type by majority vote over a trailing window (spec.md §4.7.2).
type Forecast struct {
	WindowSize int

	points []forecastPoint
}

// NewForecast builds a Forecast head with the given trailing-window size.
func NewForecast(windowSize int) *Forecast {
	return &Forecast{WindowSize: windowSize}
}

func (f *Forecast) Name() string { return "forecast" }

func (f *Forecast) InitCourse(string) {
	f.points = nil
}

func (f *Forecast) PerStep(ctx FrameContext, signals signal.Signals) map[string]any {
	stepType := ctx.StepFeatures.StepType
	if stepType == "" {
		stepType = inferStepType(signals.Q, signals.TED, ctx.StepFeatures.ConceptFraction, ctx.StepFeatures.AssessmentFraction, ctx.StepFeatures.ReadingFraction)
	}

	f.points = append(f.points, forecastPoint{
		t:                  ctx.T,
		q:                  signals.Q,
		ted:                signals.TED,
		conceptFraction:    ctx.StepFeatures.ConceptFraction,
		assessmentFraction: ctx.StepFeatures.AssessmentFraction,
		readingFraction:    ctx.StepFeatures.ReadingFraction,
		stepType:           stepType,
	})

	window := f.WindowSize
	if window <= 0 {
		window = 3
	}
	pred := modeOfRecentLabels(f.points, window)

	return map[string]any{
		"step_type_inferred":  stepType,
		"next_step_type_pred": pred,
	}
}

func (f *Forecast) Finalize() map[string]any {
	ts := make([]float64, len(f.points))
	qs := make([]float64, len(f.points))
	teds := make([]float64, len(f.points))
	types := make([]string, len(f.points))
	for i, p := range f.points {
		ts[i] = float64(p.t)
		qs[i] = p.q
		teds[i] = p.ted
		types[i] = p.stepType
	}
	return map[string]any{
		"q_slope":          round3(leastSquaresSlope(ts, qs)),
		"ted_slope":        round3(leastSquaresSlope(ts, teds)),
		"step_type_sequence": types,
	}
}

// inferStepType implements the step-type rule of spec.md §4.7.2 for when
// step_features carries no explicit label.
func inferStepType(q, ted, conceptFraction, assessmentFraction, readingFraction float64) string {
	switch {
	case q <= 0:
		return "empty"
	case assessmentFraction > 0.4 && conceptFraction > 0.2:
		return "checkpoint"
	case conceptFraction > 0.55 && assessmentFraction < 0.25:
		return "concept_dense"
	case readingFraction > 0.45 && assessmentFraction < 0.2:
		return "reading_heavy"
	case ted > 0.35:
		return "transition"
	default:
		return "mixed"
	}
}

func modeOfRecentLabels(points []forecastPoint, window int) string {
	start := len(points) - window
	if start < 0 {
		start = 0
	}
	counts := make(map[string]int)
	order := make([]string, 0, window)
	for _, p := range points[start:] {
		if p.stepType == "" || p.stepType == "empty" {
			continue
		}
		if _, seen := counts[p.stepType]; !seen {
			order = append(order, p.stepType)
		}
		counts[p.stepType]++
	}
	if len(order) == 0 {
		return "unknown"
	}
	best := order[0]
	for _, label := range order[1:] {
		if counts[label] > counts[best] {
			best = label
		}
	}
	return best
}

// leastSquaresSlope computes the least-squares regression slope of y on x.
func leastSquaresSlope(xs, ys []float64) float64 {
	n := float64(len(xs))
	if n < 2 {
		return 0
	}
	var sumX, sumY, sumXY, sumXX float64
	for i := range xs {
		sumX += xs[i]
		sumY += ys[i]
		sumXY += xs[i] * ys[i]
		sumXX += xs[i] * xs[i]
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	return (n*sumXY - sumX*sumY) / denom
}
