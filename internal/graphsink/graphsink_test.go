package graphsink

import (
	"context"
	"testing"

	"github.com/AcidicSwords/AxiomicAgent/internal/streamdata"
)

func TestFlush_NilSinkIsNoOp(t *testing.T) {
	var s *Sink
	err := s.Flush(context.Background(), "course-1", streamdata.NewFrame(), nil, nil, nil)
	if err != nil {
		t.Fatalf("expected nil-sink Flush to be a no-op, got %v", err)
	}
}

func TestFlush_NilDriverIsNoOp(t *testing.T) {
	s := New(nil, nil)
	err := s.Flush(context.Background(), "course-1", streamdata.NewFrame(streamdata.Edge{Src: 0, Dst: 1}), nil, nil, nil)
	if err != nil {
		t.Fatalf("expected nil-driver Flush to be a no-op, got %v", err)
	}
}

func TestTagList_SortsDeterministically(t *testing.T) {
	tags := map[string]struct{}{"concept": {}, "assessment": {}}
	got := tagList(tags)
	if len(got) != 2 || got[0] != "assessment" || got[1] != "concept" {
		t.Fatalf("expected sorted [assessment concept], got %v", got)
	}
}
