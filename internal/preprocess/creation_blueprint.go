package preprocess

import (
	"regexp"

	"github.com/AcidicSwords/AxiomicAgent/internal/config"
	"github.com/AcidicSwords/AxiomicAgent/internal/streamdata"
)

var blueprintTagPatterns = []struct {
	tag     string
	pattern *regexp.Regexp
}{
	{"risk", regexp.MustCompile(`(?i)\b(risk|dependency|blocker)\b`)},
	{"build", regexp.MustCompile(`(?i)\b(component|module|milestone|deliverable)\b`)},
	{"definition", regexp.MustCompile(`(?i)\b(spec|requirement|constraint)\b`)},
}

// CreationBlueprint preprocesses project-blueprint graphs (spec.md §4.2,
// creation_blueprint adapter): tags nodes build/risk/definition over
// component/milestone/dependency style labels.
type CreationBlueprint struct {
	stop      filterRule
	degreeCap int
}

// NewCreationBlueprint builds a CreationBlueprint preprocessor.
func NewCreationBlueprint() *CreationBlueprint {
	return &CreationBlueprint{
		stop:      newFilterRule([]string{"tbd", "placeholder"}, nil),
		degreeCap: defaultDegreeCap,
	}
}

func (b *CreationBlueprint) Process(raw *streamdata.RawStream, cfg config.CoreConfig) (*streamdata.ProcessedStream, error) {
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
		tag := classifyBlueprintNode(attrs.Label)
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

func classifyBlueprintNode(label string) string {
	for _, p := range blueprintTagPatterns {
		if p.pattern.MatchString(label) {
			return p.tag
		}
	}
	return "build"
}
