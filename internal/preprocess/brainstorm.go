package preprocess

import (
	"regexp"

	"github.com/AcidicSwords/AxiomicAgent/internal/config"
	"github.com/AcidicSwords/AxiomicAgent/internal/streamdata"
)

var brainstormTagPatterns = []struct {
	tag     string
	pattern *regexp.Regexp
}{
	{"risk", regexp.MustCompile(`(?i)\b(risk|blocker|concern|downside)\b`)},
	{"build", regexp.MustCompile(`(?i)\b(build|prototype|mvp|ship)\b`)},
	{"idea", regexp.MustCompile(`(?i)\b(idea|what if|could we)\b`)},
}

// Brainstorm preprocesses free-form ideation graphs (spec.md §4.2,
// conversation_brainstorm adapter): same common contract as Conversation,
// tagging nodes idea/build/risk instead of question/entity/answer.
type Brainstorm struct {
	stop      filterRule
	degreeCap int
}

// NewBrainstorm builds a Brainstorm preprocessor.
func NewBrainstorm() *Brainstorm {
	return &Brainstorm{
		stop:      newFilterRule([]string{"lol", "haha"}, nil),
		degreeCap: defaultDegreeCap,
	}
}

func (b *Brainstorm) Process(raw *streamdata.RawStream, cfg config.CoreConfig) (*streamdata.ProcessedStream, error) {
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
		if b.stop.blocks(attrs.Label) || navigationStopRule.blocks(attrs.Label) {
			continue
		}
		tag := classifyBrainstormNode(attrs.Label)
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
		out.ObsSteps[step] = filterFrame(frame, surviving, b.degreeCap)
	}
	for step, frame := range raw.TrueSteps {
		out.TrueSteps[step] = filterFrame(frame, surviving, b.degreeCap)
	}

	computeGenericStepFeatures(out)
	return out, nil
}

func classifyBrainstormNode(label string) string {
	for _, p := range brainstormTagPatterns {
		if p.pattern.MatchString(label) {
			return p.tag
		}
	}
	return "idea"
}
