package preprocess

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/AcidicSwords/AxiomicAgent/internal/config"
	"github.com/AcidicSwords/AxiomicAgent/internal/streamdata"
)

// curriculumTagPatterns classifies a node label into the curriculum tag set
// when the raw attribute map carries no explicit "type"/"kind" column.
var curriculumTagPatterns = []struct {
	tag     string
	pattern *regexp.Regexp
}{
	{"assessment", regexp.MustCompile(`(?i)\b(exam|quiz|pset|problem set|midterm|final)\b`)},
	{"theorem", regexp.MustCompile(`(?i)\btheorem\b`)},
	{"definition", regexp.MustCompile(`(?i)\bdefinition\b`)},
	{"reading", regexp.MustCompile(`(?i)\b(reading|chapter|textbook)\b`)},
	{"person", regexp.MustCompile(`(?i)\b(professor|instructor|ta|lecturer)\b`)},
	{"media", regexp.MustCompile(`(?i)\b(video|slide|recording)\b`)},
}

// Curriculum preprocesses course-graph archives (spec.md §4.2 curriculum
// domain): filters navigation/media filler, assigns concept/assessment/
// reading/theorem/definition/person/meta tags, computes the quality/
// nav_noise/stability formula, and runs the trusted-drift augmentation.
type Curriculum struct {
	stop filterRule
}

// NewCurriculum builds a Curriculum preprocessor with the shared navigation
// stoplist plus curriculum-specific filler terms.
func NewCurriculum() *Curriculum {
	return &Curriculum{
		stop: newFilterRule(
			[]string{"syllabus cover", "table of contents", "blank page"},
			[]string{`(?i)^\s*appendix\s*[a-z]?\s*$`},
		),
	}
}

func (c *Curriculum) Process(raw *streamdata.RawStream, cfg config.CoreConfig) (*streamdata.ProcessedStream, error) {
	out := &streamdata.ProcessedStream{
		Nodes:        make(map[streamdata.NodeID]streamdata.NodeAttrs),
		ObsSteps:     make(map[int]streamdata.Frame),
		TrueSteps:    make(map[int]streamdata.Frame),
		Meta:         raw.Meta,
		NodeTags:     make(map[streamdata.NodeID]map[string]struct{}),
		NodeWeights:  make(map[streamdata.NodeID]float64),
		StepFeatures: make(map[int]streamdata.StepFeatures),
	}

	surviving := make(map[streamdata.NodeID]struct{})
	for id, attrs := range raw.Nodes {
		tag := classifyCurriculumNode(attrs)
		if c.stop.blocks(attrs.Label) || navigationStopRule.blocks(attrs.Label) {
			continue
		}
		tags := map[string]struct{}{tag: {}}
		weight := nodeWeight(tags, cfg.Weights)
		if weight < keepThreshold {
			continue
		}
		out.Nodes[id] = attrs
		out.NodeTags[id] = tags
		out.NodeWeights[id] = weight
		surviving[id] = struct{}{}
	}

	for step, frame := range raw.ObsSteps {
		out.ObsSteps[step] = filterFrame(frame, surviving, defaultDegreeCap)
	}
	for step, frame := range raw.TrueSteps {
		out.TrueSteps[step] = filterFrame(frame, surviving, defaultDegreeCap)
	}

	c.computeStepFeatures(out, cfg)
	return out, nil
}

// classifyCurriculumNode infers a tag from an explicit type/kind attribute
// first, falling back to label regex heuristics, then "concept".
func classifyCurriculumNode(attrs streamdata.NodeAttrs) string {
	for _, key := range []string{"type", "kind", "tag"} {
		if v, ok := attrs.Attrs[key]; ok {
			if s, ok := v.(string); ok && s != "" {
				return strings.ToLower(s)
			}
		}
	}
	for _, p := range curriculumTagPatterns {
		if p.pattern.MatchString(attrs.Label) {
			return p.tag
		}
	}
	return "concept"
}

// computeStepFeatures fills quality/nav_noise/stability/ted_trusted for
// every observed step, per spec.md §4.2's curriculum quality formula and
// trusted-drift augmentation.
func (c *Curriculum) computeStepFeatures(out *streamdata.ProcessedStream, cfg config.CoreConfig) {
	edgeFreq := make(map[streamdata.Edge]int)
	lastSeen := make(map[streamdata.Edge]int)
	var prevTrusted streamdata.Frame

	steps := out.SortedSteps()
	cumulative := streamdata.NewFrame()
	for _, step := range steps {
		frame, ok := out.ObsSteps[step]
		if !ok {
			continue
		}
		cumulative = cumulative.Union(frame)

		touched := cumulative.Nodes()
		concept := sumTagWeight(touched, out.NodeTags, out.NodeWeights, "concept")
		definition := sumTagWeight(touched, out.NodeTags, out.NodeWeights, "definition")
		theorem := sumTagWeight(touched, out.NodeTags, out.NodeWeights, "theorem")
		reading := sumTagWeight(touched, out.NodeTags, out.NodeWeights, "reading")
		assessment := sumTagWeight(touched, out.NodeTags, out.NodeWeights, "assessment")
		navigation := sumTagWeight(touched, out.NodeTags, out.NodeWeights, "navigation")
		media := sumTagWeight(touched, out.NodeTags, out.NodeWeights, "media")
		meta := sumTagWeight(touched, out.NodeTags, out.NodeWeights, "meta")
		person := sumTagWeight(touched, out.NodeTags, out.NodeWeights, "person")
		unknown := sumTagWeight(touched, out.NodeTags, out.NodeWeights, "unknown")

		total := 0.0
		for id := range touched {
			total += out.Weight(id)
		}
		w := max(1, total)

		conceptFocus := concept + 0.8*definition + 0.9*theorem + 0.7*reading + 0.4*(person+unknown)
		assessmentFocus := assessment
		metaNoise := navigation + media + meta

		quality := min(1, (conceptFocus+0.6*assessmentFocus)/w)
		navNoise := clamp01(metaNoise / w)
		stability := clamp01(quality - 0.3*navNoise)

		trusted := c.trustedSubset(frame, step, edgeFreq, lastSeen, out, cfg.Trust)
		for e := range frame {
			edgeFreq[e]++
			lastSeen[e] = step
		}

		tedTrusted := 0.0
		if prevTrusted != nil {
			tedTrusted = jaccardDistance(trusted, prevTrusted)
		}
		prevTrusted = trusted

		out.StepFeatures[step] = streamdata.StepFeatures{
			Quality:            round3(quality),
			HasQuality:         true,
			Stability:          round3(stability),
			HasStability:       true,
			NavNoise:           round3(navNoise),
			EdgeCount:          len(frame),
			ConceptFraction:    round3(safeDiv(conceptFocus, w)),
			AssessmentFraction: round3(safeDiv(assessmentFocus, w)),
			ReadingFraction:    round3(safeDiv(reading, w)),
			MetaFraction:       round3(safeDiv(metaNoise, w)),
			WeightedNodeMass:   round3(total),
			HasNodeMass:        true,
			UniqueNodeCount:    len(touched),
			HasUniqueNodeCount: true,
			TEDTrusted:         round3(tedTrusted),
			HasTEDTrusted:      true,
			TopNodes:           topNodes(touched, out),
			Commentary:         defaultCommentary(step, quality, len(frame)),
			StepType: classifyStepType(quality, len(frame),
				safeDiv(conceptFocus, w), safeDiv(assessmentFocus, w),
				safeDiv(reading, w), safeDiv(metaNoise, w), navNoise),
		}
	}
}

// trustedSubset retains edges whose composed trust score meets the
// configured threshold (spec.md §4.2 "Trusted-drift augmentation").
func (c *Curriculum) trustedSubset(frame streamdata.Frame, step int, freq, lastSeen map[streamdata.Edge]int, out *streamdata.ProcessedStream, trust config.TrustWeights) streamdata.Frame {
	trusted := streamdata.NewFrame()
	for e := range frame {
		v := min(1, float64(freq[e])/5)
		a := min(authorityWeight(out.NodeTags[e.Src]), authorityWeight(out.NodeTags[e.Dst]))
		r := 1.0
		if last, ok := lastSeen[e]; ok {
			r = 1 / (1 + float64(step-last))
		}
		l := min(out.Weight(e.Src), out.Weight(e.Dst))
		s := trust.Alpha*v + trust.Beta*a + trust.Gamma*r + trust.Delta*l
		if s >= trust.Threshold {
			trusted.Add(e)
		}
	}
	return trusted
}

// authorityWeight implements the tag-set → authority mapping in
// spec.md §4.2: theorem/definition 1.0, assessment 0.8, reading 0.6,
// concept 0.7, else 0.5.
func authorityWeight(tags map[string]struct{}) float64 {
	switch {
	case has(tags, "theorem"), has(tags, "definition"):
		return 1.0
	case has(tags, "assessment"):
		return 0.8
	case has(tags, "reading"):
		return 0.6
	case has(tags, "concept"):
		return 0.7
	default:
		return 0.5
	}
}

func has(tags map[string]struct{}, tag string) bool {
	_, ok := tags[tag]
	return ok
}

func jaccardDistance(a, b streamdata.Frame) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := len(a.Intersect(b))
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return 1 - float64(inter)/float64(union)
}

func topNodes(touched map[streamdata.NodeID]struct{}, out *streamdata.ProcessedStream) []streamdata.TopNode {
	var nodes []streamdata.TopNode
	for id := range touched {
		attrs := out.Nodes[id]
		var tagList []string
		for t := range out.NodeTags[id] {
			tagList = append(tagList, t)
		}
		nodes = append(nodes, streamdata.TopNode{ID: id, Label: attrs.Label, Tags: tagList, Score: out.Weight(id)})
	}
	sortTopNodes(nodes)
	if len(nodes) > 5 {
		nodes = nodes[:5]
	}
	return nodes
}

func sortTopNodes(nodes []streamdata.TopNode) {
	for i := 1; i < len(nodes); i++ {
		for j := i; j > 0; j-- {
			if less := lessTopNode(nodes[j], nodes[j-1]); less {
				nodes[j], nodes[j-1] = nodes[j-1], nodes[j]
			} else {
				break
			}
		}
	}
}

func lessTopNode(a, b streamdata.TopNode) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.ID < b.ID
}

func defaultCommentary(step int, quality float64, edgeCount int) string {
	return fmt.Sprintf("step %d: quality %.2f over %d edges", step, quality, edgeCount)
}

// classifyStepType buckets a step into the closed step-type set
// (empty/checkpoint/concept_dense/reading_heavy/transition/mixed), ported
// from _classify_curriculum_step in the original reporter: a quiet or
// edge-empty step is "empty" outright, then assessment/concept/reading/meta
// focus fractions pick the dominant shape, falling through to "mixed".
func classifyStepType(quality float64, edgeCount int, conceptFraction, assessmentFraction, readingFraction, metaFraction, navNoise float64) string {
	switch {
	case edgeCount <= 0 || quality <= 0.01:
		return "empty"
	case assessmentFraction >= 0.35 && conceptFraction >= 0.2:
		return "checkpoint"
	case conceptFraction >= 0.55 && assessmentFraction <= 0.25:
		return "concept_dense"
	case readingFraction >= 0.45 && assessmentFraction <= 0.2:
		return "reading_heavy"
	case metaFraction >= 0.3 || navNoise >= 0.45:
		return "transition"
	default:
		return "mixed"
	}
}

func safeDiv(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
