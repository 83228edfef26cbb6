package preprocess

import (
	"testing"

	"github.com/AcidicSwords/AxiomicAgent/internal/config"
	"github.com/AcidicSwords/AxiomicAgent/internal/streamdata"
)

func buildRawStream() *streamdata.RawStream {
	rs := streamdata.NewRawStream()
	rs.Nodes[0] = streamdata.NodeAttrs{Label: "Limits", Attrs: map[string]any{"type": "concept"}}
	rs.Nodes[1] = streamdata.NodeAttrs{Label: "Midterm Exam", Attrs: map[string]any{}}
	rs.Nodes[2] = streamdata.NodeAttrs{Label: "Next", Attrs: map[string]any{}}
	rs.ObsSteps[0] = streamdata.NewFrame(streamdata.Edge{Src: 0, Dst: 1})
	rs.ObsSteps[1] = streamdata.NewFrame(streamdata.Edge{Src: 0, Dst: 1}, streamdata.Edge{Src: 1, Dst: 2})
	return rs
}

func TestCurriculum_DropsNavigationNode(t *testing.T) {
	rs := buildRawStream()
	out, err := NewCurriculum().Process(rs, config.Default())
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if _, ok := out.Nodes[2]; ok {
		t.Fatal("expected navigation-labeled node to be dropped")
	}
}

func TestCurriculum_TagsAssessment(t *testing.T) {
	rs := buildRawStream()
	out, err := NewCurriculum().Process(rs, config.Default())
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !out.HasTag(1, "assessment") {
		t.Fatalf("expected node 1 tagged assessment, got %v", out.NodeTags[1])
	}
}

func TestCurriculum_StepFeaturesExistForEveryObsStep(t *testing.T) {
	rs := buildRawStream()
	out, err := NewCurriculum().Process(rs, config.Default())
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	for step := range out.ObsSteps {
		if _, ok := out.StepFeatures[step]; !ok {
			t.Fatalf("missing step_features for step %d", step)
		}
	}
}

func TestCurriculum_QualityBoundedToOne(t *testing.T) {
	rs := buildRawStream()
	out, err := NewCurriculum().Process(rs, config.Default())
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	for step, f := range out.StepFeatures {
		if f.Quality < 0 || f.Quality > 1 {
			t.Fatalf("step %d quality out of bounds: %v", step, f.Quality)
		}
	}
}

func TestClassifyStepType_MixedWhenNoThresholdWins(t *testing.T) {
	// concept=0.6/assessment=0.3: misses checkpoint (assessment<0.35),
	// misses concept_dense (assessment not <=0.25), misses reading_heavy
	// and transition — falls through to "mixed".
	got := classifyStepType(0.5, 4, 0.6, 0.3, 0, 0, 0)
	if got != "mixed" {
		t.Fatalf("expected mixed, got %v", got)
	}
}

func TestClassifyStepType_EmptyOnZeroEdgesOrQuality(t *testing.T) {
	if got := classifyStepType(0.5, 0, 0.9, 0, 0, 0, 0); got != "empty" {
		t.Fatalf("expected empty for zero edges, got %v", got)
	}
	if got := classifyStepType(0.0, 4, 0.9, 0, 0, 0, 0); got != "empty" {
		t.Fatalf("expected empty for near-zero quality, got %v", got)
	}
}

func TestClassifyStepType_Checkpoint(t *testing.T) {
	got := classifyStepType(0.5, 4, 0.2, 0.35, 0, 0, 0)
	if got != "checkpoint" {
		t.Fatalf("expected checkpoint, got %v", got)
	}
}

func TestAuthorityWeight_TheoremIsHighest(t *testing.T) {
	w := authorityWeight(map[string]struct{}{"theorem": {}})
	if w != 1.0 {
		t.Fatalf("expected 1.0, got %v", w)
	}
}

func TestJaccardDistance_IdenticalFramesIsZero(t *testing.T) {
	f := streamdata.NewFrame(streamdata.Edge{Src: 0, Dst: 1})
	if d := jaccardDistance(f, f); d != 0 {
		t.Fatalf("expected 0, got %v", d)
	}
}

func TestJaccardDistance_DisjointFramesIsOne(t *testing.T) {
	a := streamdata.NewFrame(streamdata.Edge{Src: 0, Dst: 1})
	b := streamdata.NewFrame(streamdata.Edge{Src: 2, Dst: 3})
	if d := jaccardDistance(a, b); d != 1 {
		t.Fatalf("expected 1, got %v", d)
	}
}
