package preprocess

import (
	"regexp"

	"github.com/AcidicSwords/AxiomicAgent/internal/config"
	"github.com/AcidicSwords/AxiomicAgent/internal/streamdata"
)

var researchTagPatterns = []struct {
	tag     string
	pattern *regexp.Regexp
}{
	{"reading", regexp.MustCompile(`(?i)\b(paper|article|citation|source)\b`)},
	{"entity", regexp.MustCompile(`^[A-Z][a-zA-Z]*(\s+[A-Z][a-zA-Z]*)*$`)},
	{"concept", regexp.MustCompile(`(?i)\b(finding|hypothesis|theme)\b`)},
}

// ResearchLearning preprocesses research-activity/corpus graphs (spec.md
// §4.2, research_learning adapter): tags nodes reading/entity/concept and
// otherwise follows the shared filter/cap/weight contract.
type ResearchLearning struct {
	stop      filterRule
	degreeCap int
}

// NewResearchLearning builds a ResearchLearning preprocessor.
func NewResearchLearning() *ResearchLearning {
	return &ResearchLearning{
		stop:      newFilterRule([]string{"untitled", "draft"}, nil),
		degreeCap: defaultDegreeCap,
	}
}

func (r *ResearchLearning) Process(raw *streamdata.RawStream, cfg config.CoreConfig) (*streamdata.ProcessedStream, error) {
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
		if r.stop.blocks(attrs.Label) || navigationStopRule.blocks(attrs.Label) {
			continue
		}
		tag := classifyResearchNode(attrs.Label)
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
		out.ObsSteps[step] = filterFrame(frame, surviving, r.degreeCap)
	}
	for step, frame := range raw.TrueSteps {
		out.TrueSteps[step] = filterFrame(frame, surviving, r.degreeCap)
	}

	computeGenericStepFeatures(out)
	return out, nil
}

func classifyResearchNode(label string) string {
	for _, p := range researchTagPatterns {
		if p.pattern.MatchString(label) {
			return p.tag
		}
	}
	return "concept"
}
