package preprocess

import (
	"regexp"
	"strings"

	"github.com/AcidicSwords/AxiomicAgent/internal/config"
	"github.com/AcidicSwords/AxiomicAgent/internal/streamdata"
)

const minTokenLength = 2

var conversationTagPatterns = []struct {
	tag     string
	pattern *regexp.Regexp
}{
	{"question", regexp.MustCompile(`(?i)(^|\s)(who|what|when|where|why|how)\b.*\?`)},
	{"question", regexp.MustCompile(`\?\s*$`)},
	{"answer", regexp.MustCompile(`(?i)^\s*(because|so|therefore|in short)\b`)},
	{"entity", regexp.MustCompile(`^[A-Z][a-zA-Z]*(\s+[A-Z][a-zA-Z]*)*$`)},
}

// Conversation preprocesses turn-by-turn dialogue graphs (spec.md §4.2
// conversation domain): enforces a minimum token length on node labels in
// addition to the common stoplist/keep-threshold filters, and classifies
// nodes as concept/question/entity/answer via regex heuristics.
type Conversation struct {
	stop      filterRule
	degreeCap int
}

// NewConversation builds a Conversation preprocessor.
func NewConversation() *Conversation {
	return &Conversation{
		stop: newFilterRule(
			[]string{"um", "uh", "okay", "yeah"},
			[]string{`(?i)^\s*\[(inaudible|crosstalk)\]\s*$`},
		),
		degreeCap: defaultDegreeCap,
	}
}

func (c *Conversation) Process(raw *streamdata.RawStream, cfg config.CoreConfig) (*streamdata.ProcessedStream, error) {
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
		if c.stop.blocks(attrs.Label) || navigationStopRule.blocks(attrs.Label) {
			continue
		}
		if tokenCount(attrs.Label) < minTokenLength {
			continue
		}
		tag := classifyConversationNode(attrs.Label)
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
		out.ObsSteps[step] = filterFrame(frame, surviving, c.degreeCap)
	}
	for step, frame := range raw.TrueSteps {
		out.TrueSteps[step] = filterFrame(frame, surviving, c.degreeCap)
	}

	computeGenericStepFeatures(out)
	return out, nil
}

func classifyConversationNode(label string) string {
	for _, p := range conversationTagPatterns {
		if p.pattern.MatchString(label) {
			return p.tag
		}
	}
	return "concept"
}

func tokenCount(label string) int {
	return len(strings.Fields(label))
}

// computeGenericStepFeatures fills the node-mass/unique-node-count fallback
// inputs for non-curriculum domains, which do not carry the curriculum
// trust/quality formula (spec.md §4.2: domains without a domain-specific
// formula still populate top_nodes/commentary/edge_count). Quality, ted and
// stability are left unset: the SignalComputer derives q from node mass,
// ted from the Jaccard distance of edge sets, and stability from ted.
func computeGenericStepFeatures(out *streamdata.ProcessedStream) {
	cumulative := streamdata.NewFrame()
	for _, step := range out.SortedSteps() {
		frame, ok := out.ObsSteps[step]
		if !ok {
			continue
		}
		cumulative = cumulative.Union(frame)
		touched := cumulative.Nodes()

		total := 0.0
		for id := range touched {
			total += out.Weight(id)
		}

		out.StepFeatures[step] = streamdata.StepFeatures{
			WeightedNodeMass:   round3(total),
			HasNodeMass:        true,
			UniqueNodeCount:    len(touched),
			HasUniqueNodeCount: true,
			EdgeCount:          len(frame),
			TopNodes:           topNodes(touched, out),
			Commentary:         defaultCommentary(step, 0, len(frame)),
			// StepType left unset: ForecastHead.inferStepType (spec.md
			// §4.5) supplies it from q/ted when a preprocessor hasn't
			// already classified the step.
		}
	}
}
