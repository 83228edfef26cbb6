package adapter

import (
	"testing"

	"github.com/AcidicSwords/AxiomicAgent/internal/streamdata"
)

func sampleStream() *streamdata.ProcessedStream {
	return &streamdata.ProcessedStream{
		Nodes: map[streamdata.NodeID]streamdata.NodeAttrs{
			0: {Label: "a"}, 1: {Label: "b"}, 2: {Label: "c"},
		},
		ObsSteps: map[int]streamdata.Frame{
			0: streamdata.NewFrame(streamdata.Edge{Src: 0, Dst: 1}),
			2: streamdata.NewFrame(streamdata.Edge{Src: 1, Dst: 2}),
		},
		TrueSteps: map[int]streamdata.Frame{
			2: streamdata.NewFrame(streamdata.Edge{Src: 0, Dst: 2}),
		},
		Meta:         map[string]any{"domain": "curriculum"},
		NodeTags:     map[streamdata.NodeID]map[string]struct{}{},
		NodeWeights:  map[streamdata.NodeID]float64{},
		StepFeatures: map[int]streamdata.StepFeatures{},
	}
}

func TestCursor_NextObsAdvancesInOrder(t *testing.T) {
	c := New(sampleStream(), false, 0)
	if !c.HasMore() {
		t.Fatal("expected more steps")
	}
	f0 := c.NextObs()
	if !f0.Has(streamdata.Edge{Src: 0, Dst: 1}) {
		t.Fatal("expected step 0's edge")
	}
	step, ok := c.CurrentStep()
	if !ok || step != 0 {
		t.Fatalf("expected current step 0, got %d (%v)", step, ok)
	}

	f1 := c.NextObs()
	if !f1.Has(streamdata.Edge{Src: 1, Dst: 2}) {
		t.Fatalf("expected step 2's edge, got %v", f1)
	}
	step, _ = c.CurrentStep()
	if step != 2 {
		t.Fatalf("expected sparse steps to skip to 2, got %d", step)
	}

	if c.HasMore() {
		t.Fatal("expected exhaustion")
	}
}

func TestCursor_NextObsReturnsEmptyFrameAtEnd(t *testing.T) {
	c := New(sampleStream(), false, 0)
	c.NextObs()
	c.NextObs()
	f := c.NextObs()
	if len(f) != 0 {
		t.Fatalf("expected empty frame past exhaustion, got %v", f)
	}
}

func TestCursor_PeekTruth(t *testing.T) {
	c := New(sampleStream(), false, 0)
	c.NextObs() // step 0
	frame, ok := c.PeekTruth(1)
	if !ok {
		t.Fatal("expected truth frame at horizon 1")
	}
	if !frame.Has(streamdata.Edge{Src: 0, Dst: 2}) {
		t.Fatalf("expected step 2's truth edge, got %v", frame)
	}
}

func TestCursor_PeekTruth_MissingReturnsFalse(t *testing.T) {
	c := New(sampleStream(), false, 0)
	_, ok := c.PeekTruth(50)
	if ok {
		t.Fatal("expected no truth frame beyond stream bounds")
	}
}

func TestCursor_Meta(t *testing.T) {
	c := New(sampleStream(), false, 0)
	if c.Meta()["domain"] != "curriculum" {
		t.Fatalf("unexpected meta: %v", c.Meta())
	}
}

func TestCursor_ScrambleIsDeterministic(t *testing.T) {
	a := New(sampleStream(), true, 42)
	b := New(sampleStream(), true, 42)

	fa := a.NextObs()
	fb := b.NextObs()
	if len(fa) != len(fb) {
		t.Fatalf("expected equal-size scrambled frames, got %d vs %d", len(fa), len(fb))
	}
	for e := range fa {
		if !fb.Has(e) {
			t.Fatalf("expected identical scrambled edge sets for same seed, got %v vs %v", fa, fb)
		}
	}
}

func TestCursor_ScramblePreservesEdgeCount(t *testing.T) {
	plain := New(sampleStream(), false, 0)
	scrambled := New(sampleStream(), true, 1)

	fp := plain.NextObs()
	fs := scrambled.NextObs()
	if len(fp) != len(fs) {
		t.Fatalf("expected same edge count, got %d vs %d", len(fp), len(fs))
	}
}
