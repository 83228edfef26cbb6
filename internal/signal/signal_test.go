package signal

import (
	"testing"

	"github.com/AcidicSwords/AxiomicAgent/internal/config"
	"github.com/AcidicSwords/AxiomicAgent/internal/streamdata"
)

func frame(edges ...streamdata.Edge) streamdata.Frame {
	return streamdata.NewFrame(edges...)
}

func TestCompute_FirstStepTEDIsZero(t *testing.T) {
	c := New()
	cur := frame(streamdata.Edge{Src: 0, Dst: 1})
	sig := c.Compute(cur, nil, false, streamdata.StepFeatures{}, config.Default())
	if sig.TED != 0 {
		t.Fatalf("expected ted 0 on first step, got %v", sig.TED)
	}
	if sig.HasTEDDelta {
		t.Fatal("expected no ted_delta on first step")
	}
}

func TestCompute_TEDDeltaOnSecondStep(t *testing.T) {
	c := New()
	prev := frame(streamdata.Edge{Src: 0, Dst: 1})
	c.Compute(prev, nil, false, streamdata.StepFeatures{}, config.Default())

	cur := frame(streamdata.Edge{Src: 0, Dst: 1}, streamdata.Edge{Src: 1, Dst: 2})
	sig := c.Compute(cur, prev, true, streamdata.StepFeatures{}, config.Default())
	if !sig.HasTEDDelta {
		t.Fatal("expected ted_delta present on second step")
	}
}

func TestComputeTED_JaccardDistance(t *testing.T) {
	prev := frame(streamdata.Edge{Src: 0, Dst: 1}, streamdata.Edge{Src: 1, Dst: 2})
	cur := frame(streamdata.Edge{Src: 0, Dst: 1}, streamdata.Edge{Src: 2, Dst: 3})
	ted := computeTED(cur, prev, true, streamdata.StepFeatures{})
	// intersection=1, union=3 -> 1 - 1/3 = 0.667
	if ted < 0.66 || ted > 0.67 {
		t.Fatalf("unexpected ted %v", ted)
	}
}

func TestComputeQ_PrefersProvidedQuality(t *testing.T) {
	f := streamdata.StepFeatures{Quality: 0.75, HasQuality: true}
	if q := computeQ(nil, f); q != 0.75 {
		t.Fatalf("expected 0.75, got %v", q)
	}
}

func TestComputeQ_NodeMassFallback(t *testing.T) {
	f := streamdata.StepFeatures{
		HasNodeMass: true, WeightedNodeMass: 10,
		HasUniqueNodeCount: true, UniqueNodeCount: 4,
	}
	q := computeQ(nil, f)
	if q != 1 {
		t.Fatalf("expected clamp to 1, got %v", q)
	}
}

func TestComputeStability_FallsBackToOneMinusTED(t *testing.T) {
	s := computeStability(0.3, streamdata.StepFeatures{})
	if s != 0.7 {
		t.Fatalf("expected 0.7, got %v", s)
	}
}

func TestComputeSpread_SingleComponentIsZero(t *testing.T) {
	f := frame(streamdata.Edge{Src: 0, Dst: 1}, streamdata.Edge{Src: 1, Dst: 2})
	if s := computeSpread(f); s != 0 {
		t.Fatalf("expected 0 entropy for single component, got %v", s)
	}
}

func TestComputeSpread_TwoEqualComponentsIsOne(t *testing.T) {
	f := frame(streamdata.Edge{Src: 0, Dst: 1}, streamdata.Edge{Src: 2, Dst: 3})
	s := computeSpread(f)
	if s < 0.99 || s > 1.0 {
		t.Fatalf("expected ~1.0 entropy for two equal components, got %v", s)
	}
}

func TestComputeLocalityNodes_TieBrokenByAscendingID(t *testing.T) {
	prev := frame()
	cur := frame(streamdata.Edge{Src: 5, Dst: 6}, streamdata.Edge{Src: 1, Dst: 2})
	nodes := computeLocalityNodes(cur, prev, 4)
	if len(nodes) != 4 {
		t.Fatalf("expected 4 nodes, got %d", len(nodes))
	}
	if nodes[0] != 1 || nodes[1] != 2 || nodes[2] != 5 || nodes[3] != 6 {
		t.Fatalf("expected ascending tie-break ordering, got %v", nodes)
	}
}

func TestCompute_RoundsToThreeDecimals(t *testing.T) {
	c := New()
	prev := frame(streamdata.Edge{Src: 0, Dst: 1}, streamdata.Edge{Src: 1, Dst: 2}, streamdata.Edge{Src: 2, Dst: 3})
	c.Compute(prev, nil, false, streamdata.StepFeatures{}, config.Default())
	cur := frame(streamdata.Edge{Src: 0, Dst: 1})
	sig := c.Compute(cur, prev, true, streamdata.StepFeatures{}, config.Default())
	// 1 - 1/3 = 0.6667 -> rounds to 0.667
	if sig.TED != 0.667 {
		t.Fatalf("expected rounded 0.667, got %v", sig.TED)
	}
}
