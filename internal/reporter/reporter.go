// Package reporter accepts per-step records, maintains running aggregates,
// and writes a final JSON summary (spec.md §4.8). Reporter is a tagged,
// closed variant set (insight, curriculum_insight, conversation_insight,
// curriculum_dynamics) dispatched by name, never duck-typed.
package reporter

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/AcidicSwords/AxiomicAgent/internal/signal"
	"github.com/AcidicSwords/AxiomicAgent/internal/streamdata"
)

// StepRecord is what the engine hands the reporter each step.
type StepRecord struct {
	Step         int
	StepID       int
	Signals      signal.Signals
	StepFeatures streamdata.StepFeatures
	Pred         streamdata.Frame
}

// Reporter accumulates step records and produces a final report.
type Reporter interface {
	Record(rec StepRecord)
	Finish(headSummaries map[string]map[string]any)
	Report() map[string]any
}

// entry is one per-step JSON entry (spec.md §4.8 "Per-step entry").
type entry struct {
	Step         int            `json:"step"`
	MeanQ        float64        `json:"mean_q"`
	MeanTED      float64        `json:"mean_ted"`
	MeanS        float64        `json:"mean_s"`
	DeltaTED     float64        `json:"delta_ted,omitempty"`
	TopNodes     []topNodeJSON  `json:"top_nodes"`
	Commentary   string         `json:"commentary"`
	Counts       map[string]int `json:"counts,omitempty"`
	Spread       *float64       `json:"spread,omitempty"`
	LocalityNodes []int         `json:"locality_nodes,omitempty"`
	StepType     string         `json:"step_type,omitempty"`
	EdgeCount    *int           `json:"edge_count,omitempty"`
	Fractions    *fractions     `json:"fractions,omitempty"`
	Extras       map[string]any `json:"extras,omitempty"`
}

type fractions struct {
	Concept    float64 `json:"concept_fraction"`
	Assessment float64 `json:"assessment_fraction"`
	Reading    float64 `json:"reading_fraction"`
	Meta       float64 `json:"meta_fraction"`
}

type topNodeJSON struct {
	ID      int      `json:"id"`
	Label   string   `json:"label"`
	Tags    []string `json:"tags"`
	Score   float64  `json:"score"`
	Related []string `json:"related,omitempty"`
}

// base holds the shared aggregation state common to every variant.
type base struct {
	entries      []entry
	sumQ, sumTED, sumS float64
	sumSpread    float64
	spreadCount  int
	stepTypeHist map[string]int
	path         string
	report       map[string]any
}

func (b *base) setReport(report map[string]any) { b.report = report }
func (b *base) getReport() map[string]any        { return b.report }

func newBase(path string) base {
	return base{stepTypeHist: make(map[string]int), path: path}
}

func (b *base) record(rec StepRecord) entry {
	q := rec.Signals.Q
	ted := rec.Signals.TED
	s := rec.Signals.Stability

	b.sumQ += q
	b.sumTED += ted
	b.sumS += s

	e := entry{
		Step:       rec.Step,
		MeanQ:      q,
		MeanTED:    ted,
		MeanS:      s,
		Commentary: rec.StepFeatures.Commentary,
		Counts:     rec.StepFeatures.Counts,
		StepType:   rec.StepFeatures.StepType,
	}
	if rec.Signals.HasTEDDelta {
		e.DeltaTED = rec.Signals.TEDDelta
	}
	if rec.Signals.HasSpread {
		v := rec.Signals.Spread
		e.Spread = &v
		b.sumSpread += v
		b.spreadCount++
	}
	if rec.Signals.HasLocalityNodes {
		for _, id := range rec.Signals.LocalityNodes {
			e.LocalityNodes = append(e.LocalityNodes, int(id))
		}
	}
	if len(rec.Signals.Extras) > 0 {
		e.Extras = rec.Signals.Extras
	}
	if rec.StepFeatures.EdgeCount > 0 || rec.StepFeatures.HasNodeMass {
		ec := rec.StepFeatures.EdgeCount
		e.EdgeCount = &ec
	}
	if rec.StepFeatures.ConceptFraction != 0 || rec.StepFeatures.AssessmentFraction != 0 || rec.StepFeatures.ReadingFraction != 0 || rec.StepFeatures.MetaFraction != 0 {
		e.Fractions = &fractions{
			Concept:    rec.StepFeatures.ConceptFraction,
			Assessment: rec.StepFeatures.AssessmentFraction,
			Reading:    rec.StepFeatures.ReadingFraction,
			Meta:       rec.StepFeatures.MetaFraction,
		}
	}

	related, _ := rec.Signals.Extras["related_nodes"].(map[streamdata.NodeID][]string)

	topN := rec.StepFeatures.TopNodes
	if len(topN) > 8 {
		topN = topN[:8]
	}
	for _, tn := range topN {
		tj := topNodeJSON{ID: int(tn.ID), Label: tn.Label, Tags: tn.Tags, Score: tn.Score}
		if related != nil {
			tj.Related = related[tn.ID]
		}
		e.TopNodes = append(e.TopNodes, tj)
	}

	if e.StepType != "" {
		b.stepTypeHist[e.StepType]++
	}

	b.entries = append(b.entries, e)
	return e
}

func (b *base) aggregates() map[string]any {
	n := float64(len(b.entries))
	avgQ, avgTED, avgS := 0.0, 0.0, 0.0
	if n > 0 {
		avgQ = b.sumQ / n
		avgTED = b.sumTED / n
		avgS = b.sumS / n
	}
	avgSpread := 0.0
	if b.spreadCount > 0 {
		avgSpread = b.sumSpread / float64(b.spreadCount)
	}
	return map[string]any{
		"avg_q":               round3(avgQ),
		"avg_ted":             round3(avgTED),
		"avg_stability":       round3(avgS),
		"avg_spread":          round3(avgSpread),
		"step_type_histogram": b.stepTypeHist,
		"recommendation":      recommendation(avgTED, avgQ),
	}
}

func recommendation(avgTED, avgQ float64) string {
	switch {
	case avgTED > 0.6:
		return "High drift: edge structure is changing rapidly step over step."
	case avgQ < 0.4:
		return "Quality is lagging: retained signal mass is low relative to graph size."
	default:
		return "Nominal: quality and drift are within expected ranges."
	}
}

// writeJSON atomically writes report to path: write to a temp file in the
// same directory, then rename (spec.md §4.8 "written atomically").
func writeJSON(path string, report map[string]any) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".report-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp report file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp report file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp report file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp report file: %w", err)
	}
	return nil
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
