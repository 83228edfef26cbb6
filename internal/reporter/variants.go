package reporter

import "sort"

// Insight is the general-purpose reporter variant (registry name "insight").
type Insight struct {
	base
}

// NewInsight builds an Insight reporter that writes its final report to path.
func NewInsight(path string) *Insight {
	return &Insight{base: newBase(path)}
}

func (r *Insight) Record(rec StepRecord) { r.record(rec) }

func (r *Insight) Finish(headSummaries map[string]map[string]any) {
	report := map[string]any{
		"entries":       r.entries,
		"aggregates":    r.aggregates(),
		"head_summaries": headSummaries,
	}
	r.setReport(report)
	if r.path != "" {
		_ = writeJSON(r.path, report)
	}
}

func (r *Insight) Report() map[string]any { return r.getReport() }

// CurriculumInsight adds curriculum-specific aggregates (spec.md §4.8).
type CurriculumInsight struct {
	base
	sumContinuity   float64
	sumTEDTrusted   float64
	continuityCount int
	tedTrustedCount int
}

// NewCurriculumInsight builds a CurriculumInsight reporter.
func NewCurriculumInsight(path string) *CurriculumInsight {
	return &CurriculumInsight{base: newBase(path)}
}

func (r *CurriculumInsight) Record(rec StepRecord) {
	r.record(rec)
	if rec.StepFeatures.HasContinuity {
		r.sumContinuity += rec.StepFeatures.Continuity
		r.continuityCount++
	}
	if rec.StepFeatures.HasTEDTrusted {
		r.sumTEDTrusted += rec.StepFeatures.TEDTrusted
		r.tedTrustedCount++
	}
}

func (r *CurriculumInsight) Finish(headSummaries map[string]map[string]any) {
	agg := r.aggregates()
	avgContinuity := 0.0
	if r.continuityCount > 0 {
		avgContinuity = r.sumContinuity / float64(r.continuityCount)
	}
	avgTEDTrusted := 0.0
	if r.tedTrustedCount > 0 {
		avgTEDTrusted = r.sumTEDTrusted / float64(r.tedTrustedCount)
	}
	agg["phase_counts"] = len(r.stepTypeHist)
	agg["avg_continuity"] = round3(avgContinuity)
	agg["avg_ted_trusted"] = round3(avgTEDTrusted)
	agg["dominant_step_type"] = dominantStepType(r.stepTypeHist)

	report := map[string]any{
		"entries":        r.entries,
		"aggregates":     agg,
		"head_summaries": headSummaries,
	}
	r.setReport(report)
	if r.path != "" {
		_ = writeJSON(r.path, report)
	}
}

func (r *CurriculumInsight) Report() map[string]any { return r.getReport() }

// ConversationInsight adds conversation-specific aggregates (spec.md §4.8).
type ConversationInsight struct {
	base
	sumAdjacencyRatio float64
	sumQuestionDensity float64
	sumSpeakerCount   float64
	steps             int
}

// NewConversationInsight builds a ConversationInsight reporter.
func NewConversationInsight(path string) *ConversationInsight {
	return &ConversationInsight{base: newBase(path)}
}

func (r *ConversationInsight) Record(rec StepRecord) {
	r.record(rec)
	r.steps++
	counts := rec.StepFeatures.Counts
	reply := float64(counts["reply"])
	adjacency := float64(counts["adjacency"])
	if adjacency > 0 {
		r.sumAdjacencyRatio += reply / adjacency
	}
	questions := float64(counts["question"])
	if rec.StepFeatures.UniqueNodeCount > 0 {
		r.sumQuestionDensity += questions / float64(rec.StepFeatures.UniqueNodeCount)
	}
	r.sumSpeakerCount += float64(counts["speaker"])
}

func (r *ConversationInsight) Finish(headSummaries map[string]map[string]any) {
	agg := r.aggregates()
	n := float64(r.steps)
	if n == 0 {
		n = 1
	}
	agg["avg_adjacency_ratio"] = round3(r.sumAdjacencyRatio / n)
	agg["question_density"] = round3(r.sumQuestionDensity / n)
	agg["speaker_count"] = round3(r.sumSpeakerCount / n)
	agg["turns_per_step"] = round3(float64(len(r.entries)) / n)

	report := map[string]any{
		"entries":        r.entries,
		"aggregates":     agg,
		"head_summaries": headSummaries,
	}
	r.setReport(report)
	if r.path != "" {
		_ = writeJSON(r.path, report)
	}
}

func (r *ConversationInsight) Report() map[string]any { return r.getReport() }

// CurriculumDynamics adds a dynamics/phases/uncertainty/guidance block
// derived from the forecast, regime-change, and Monte Carlo heads
// (spec.md §4.8).
type CurriculumDynamics struct {
	base
}

// NewCurriculumDynamics builds a CurriculumDynamics reporter.
func NewCurriculumDynamics(path string) *CurriculumDynamics {
	return &CurriculumDynamics{base: newBase(path)}
}

func (r *CurriculumDynamics) Record(rec StepRecord) { r.record(rec) }

func (r *CurriculumDynamics) Finish(headSummaries map[string]map[string]any) {
	agg := r.aggregates()

	forecastSummary := headSummaries["forecast"]
	regimeSummary := headSummaries["regime_change"]
	mcSummary := headSummaries["monte_carlo"]

	dynamics := map[string]any{
		"q_slope":   forecastSummary["q_slope"],
		"ted_slope": forecastSummary["ted_slope"],
		"step_type_distribution": r.stepTypeHist,
	}

	var changePoints []int
	if cps, ok := regimeSummary["change_points"].([]int); ok {
		changePoints = cps
	}
	phases := splitPhases(len(r.entries), changePoints)

	guidance := map[string]any{
		"top_step_types":  topStepTypes(r.stepTypeHist, 3),
		"next_focus_hint": dominantStepType(r.stepTypeHist),
		"phase_count":     len(phases),
	}

	report := map[string]any{
		"entries":        r.entries,
		"aggregates":     agg,
		"dynamics":       dynamics,
		"phases":         phases,
		"uncertainty":    mcSummary,
		"guidance":       guidance,
		"head_summaries": headSummaries,
	}
	r.setReport(report)
	if r.path != "" {
		_ = writeJSON(r.path, report)
	}
}

func (r *CurriculumDynamics) Report() map[string]any { return r.getReport() }

// splitPhases turns a sorted change-point index list into consecutive
// [start,end) step ranges (spec.md §4.8 "phases").
func splitPhases(numSteps int, changePoints []int) []map[string]int {
	if numSteps == 0 {
		return nil
	}
	bounds := append([]int(nil), changePoints...)
	sort.Ints(bounds)

	var phases []map[string]int
	start := 0
	for _, cp := range bounds {
		if cp <= start || cp >= numSteps {
			continue
		}
		phases = append(phases, map[string]int{"start": start, "end": cp})
		start = cp
	}
	phases = append(phases, map[string]int{"start": start, "end": numSteps})
	return phases
}

func dominantStepType(hist map[string]int) string {
	best := ""
	bestCount := -1
	keys := make([]string, 0, len(hist))
	for k := range hist {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if hist[k] > bestCount {
			best = k
			bestCount = hist[k]
		}
	}
	return best
}

func topStepTypes(hist map[string]int, n int) []string {
	type kv struct {
		k string
		v int
	}
	entries := make([]kv, 0, len(hist))
	for k, v := range hist {
		entries = append(entries, kv{k, v})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].v != entries[j].v {
			return entries[i].v > entries[j].v
		}
		return entries[i].k < entries[j].k
	})
	if n > len(entries) {
		n = len(entries)
	}
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = entries[i].k
	}
	return out
}
