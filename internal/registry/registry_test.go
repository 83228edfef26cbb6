package registry

import (
	"errors"
	"testing"

	"github.com/AcidicSwords/AxiomicAgent/internal/config"
)

func TestPreprocessor_ResolvesZipStreamAlias(t *testing.T) {
	p1, err := Preprocessor("zip_stream")
	if err != nil {
		t.Fatalf("Preprocessor: %v", err)
	}
	p2, err := Preprocessor("curriculum_stream")
	if err != nil {
		t.Fatalf("Preprocessor: %v", err)
	}
	if p1 == nil || p2 == nil {
		t.Fatal("expected non-nil preprocessors")
	}
}

func TestPreprocessor_UnknownNameErrors(t *testing.T) {
	_, err := Preprocessor("not_a_real_adapter")
	if !errors.Is(err, ErrUnknownAdapter) {
		t.Fatalf("expected ErrUnknownAdapter, got %v", err)
	}
}

func TestReporter_UnknownNameErrors(t *testing.T) {
	_, err := Reporter("not_a_real_reporter", "")
	if !errors.Is(err, ErrUnknownReporter) {
		t.Fatalf("expected ErrUnknownReporter, got %v", err)
	}
}

func TestHeads_BuildsInDeclarationOrder(t *testing.T) {
	cfg := config.Default()
	cfg.Heads.Names = []string{"regime_change", "forecast", "monte_carlo"}
	built, err := Heads(cfg.Heads)
	if err != nil {
		t.Fatalf("Heads: %v", err)
	}
	if len(built) != 3 {
		t.Fatalf("expected 3 heads, got %d", len(built))
	}
	if built[0].Name() != "regime_change" || built[1].Name() != "forecast" || built[2].Name() != "monte_carlo" {
		t.Fatalf("expected declaration order preserved, got %v, %v, %v", built[0].Name(), built[1].Name(), built[2].Name())
	}
}

func TestHead_UnknownNameErrors(t *testing.T) {
	_, err := Head("not_a_real_head", config.HeadConfig{})
	if !errors.Is(err, ErrUnknownHead) {
		t.Fatalf("expected ErrUnknownHead, got %v", err)
	}
}
