package heads

import (
	"testing"

	"github.com/AcidicSwords/AxiomicAgent/internal/signal"
	"github.com/AcidicSwords/AxiomicAgent/internal/streamdata"
)

func TestMonteCarlo_DeterministicForSameSeed(t *testing.T) {
	ctx := FrameContext{
		T:               0,
		CumulativeEdges: streamdata.NewFrame(streamdata.Edge{Src: 0, Dst: 1}, streamdata.Edge{Src: 1, Dst: 2}),
		NodeWeights:     map[streamdata.NodeID]float64{0: 1, 1: 1, 2: 1},
	}
	a := NewMonteCarlo(16, 0.1, 0.1, 7)
	b := NewMonteCarlo(16, 0.1, 0.1, 7)
	a.InitCourse("c")
	b.InitCourse("c")

	outA := a.PerStep(ctx, signal.Signals{})
	outB := b.PerStep(ctx, signal.Signals{})
	if outA["q_mc_mean"] != outB["q_mc_mean"] || outA["ted_mc_mean"] != outB["ted_mc_mean"] {
		t.Fatalf("expected deterministic output for same seed: %v vs %v", outA, outB)
	}
}

func TestMonteCarlo_FinalizeAveragesStd(t *testing.T) {
	m := NewMonteCarlo(8, 0.2, 0.2, 3)
	m.InitCourse("c")
	ctx := FrameContext{CumulativeEdges: streamdata.NewFrame(streamdata.Edge{Src: 0, Dst: 1}), NodeWeights: map[streamdata.NodeID]float64{0: 1, 1: 1}}
	m.PerStep(ctx, signal.Signals{})
	m.PerStep(ctx, signal.Signals{})
	out := m.Finalize()
	if _, ok := out["avg_q_mc_std"]; !ok {
		t.Fatal("expected avg_q_mc_std in finalize output")
	}
}

func TestForecast_InfersStepTypeWhenAbsent(t *testing.T) {
	f := NewForecast(3)
	f.InitCourse("c")
	ctx := FrameContext{T: 0, StepFeatures: streamdata.StepFeatures{ConceptFraction: 0.6, AssessmentFraction: 0.1}}
	out := f.PerStep(ctx, signal.Signals{Q: 0.8, TED: 0.1})
	if out["step_type_inferred"] != "concept_dense" {
		t.Fatalf("expected concept_dense, got %v", out["step_type_inferred"])
	}
}

func TestForecast_QZeroIsEmpty(t *testing.T) {
	f := NewForecast(3)
	f.InitCourse("c")
	out := f.PerStep(FrameContext{}, signal.Signals{Q: 0, TED: 0})
	if out["step_type_inferred"] != "empty" {
		t.Fatalf("expected empty, got %v", out["step_type_inferred"])
	}
}

func TestForecast_NextStepTypePredModeOfWindow(t *testing.T) {
	f := NewForecast(3)
	f.InitCourse("c")
	ctxA := FrameContext{StepFeatures: streamdata.StepFeatures{StepType: "concept_dense"}}
	ctxB := FrameContext{StepFeatures: streamdata.StepFeatures{StepType: "concept_dense"}}
	ctxC := FrameContext{StepFeatures: streamdata.StepFeatures{StepType: "transition"}}
	f.PerStep(ctxA, signal.Signals{})
	f.PerStep(ctxB, signal.Signals{})
	out := f.PerStep(ctxC, signal.Signals{})
	if out["next_step_type_pred"] != "concept_dense" {
		t.Fatalf("expected concept_dense as window mode, got %v", out["next_step_type_pred"])
	}
}

func TestForecast_FinalizeEmitsSlopesAndSequence(t *testing.T) {
	f := NewForecast(3)
	f.InitCourse("c")
	for i := 0; i < 5; i++ {
		f.PerStep(FrameContext{T: i}, signal.Signals{Q: float64(i) * 0.1, TED: float64(i) * 0.05})
	}
	out := f.Finalize()
	seq, ok := out["step_type_sequence"].([]string)
	if !ok || len(seq) != 5 {
		t.Fatalf("expected 5-entry step_type_sequence, got %v", out["step_type_sequence"])
	}
}

func TestRegimeChange_NoScoreBeforeEnoughHistory(t *testing.T) {
	r := NewRegimeChange(3, 0.25)
	r.InitCourse("c")
	out := r.PerStep(FrameContext{}, signal.Signals{Q: 0.5})
	if _, ok := out["change_score"]; ok {
		t.Fatal("expected no change_score before 2*window+1 history entries")
	}
}

func TestRegimeChange_DetectsChangePoint(t *testing.T) {
	r := NewRegimeChange(2, 0.1)
	r.InitCourse("c")
	qs := []float64{0.1, 0.1, 0.1, 0.9, 0.9, 0.9, 0.9}
	for i, q := range qs {
		r.PerStep(FrameContext{T: i}, signal.Signals{Q: q})
	}
	out := r.Finalize()
	if out["num_change_points"].(int) == 0 {
		t.Fatal("expected at least one detected change point")
	}
}
