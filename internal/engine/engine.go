// Package engine drives a ProcessedStream through the adapter, signal
// computer, signal heads, and policy, recording each step on a reporter
// (spec.md §4.4).
package engine

import (
	"context"
	"log/slog"

	"github.com/AcidicSwords/AxiomicAgent/internal/adapter"
	"github.com/AcidicSwords/AxiomicAgent/internal/config"
	"github.com/AcidicSwords/AxiomicAgent/internal/heads"
	"github.com/AcidicSwords/AxiomicAgent/internal/policy"
	"github.com/AcidicSwords/AxiomicAgent/internal/reporter"
	"github.com/AcidicSwords/AxiomicAgent/internal/signal"
	"github.com/AcidicSwords/AxiomicAgent/internal/streamdata"
)

// graphSink mirrors cumulative graph state into an external store as a
// side-channel after each step (spec.md §4.9). Errors are logged, never
// propagated — the signature matches graphsink.Sink.Flush exactly so the
// production type satisfies it without an adapter.
type graphSink interface {
	Flush(ctx context.Context, courseID string, cumulative streamdata.Frame, nodeLabels map[streamdata.NodeID]string, nodeTags map[streamdata.NodeID]map[string]struct{}, nodeWeights map[streamdata.NodeID]float64) error
}

// semanticLookup resolves related node labels for top_nodes enrichment
// (spec.md §4.10). Matches semanticindex.Index.Related exactly.
type semanticLookup interface {
	Related(ctx context.Context, id streamdata.NodeID, topK int) ([]string, error)
}

// liveBus publishes per-step and final records to a side-channel
// (spec.md §4.12). Matches livebus.Bus exactly.
type liveBus interface {
	PublishStep(ctx context.Context, courseID string, record any) error
	PublishFinish(ctx context.Context, courseID string, summary any) error
}

// Engine drives one course's stream end to end.
type Engine struct {
	Cursor      *adapter.Cursor
	Computer    *signal.Computer
	Heads       []heads.Head
	Policy      policy.Policy
	Reporter    reporter.Reporter
	Config      config.CoreConfig
	Logger      *slog.Logger
	nodeWeights map[streamdata.NodeID]float64
	nodeLabels  map[streamdata.NodeID]string
	nodeTags    map[streamdata.NodeID]map[string]struct{}

	GraphSink     graphSink
	SemanticIndex semanticLookup
	LiveBus       liveBus
	RelatedTopK   int
}

// New builds an Engine from its wired dependencies. A nil logger falls back
// to slog.Default(). nodeWeights is the ProcessedStream's per-node weight
// map, exposed to heads via FrameContext.NodeWeights. GraphSink,
// SemanticIndex, and LiveBus are all optional side-channels (spec.md
// §4.9–§4.12); wire them via the exported fields after construction.
func New(cursor *adapter.Cursor, computer *signal.Computer, headList []heads.Head, pol policy.Policy, rep reporter.Reporter, cfg config.CoreConfig, nodeWeights map[streamdata.NodeID]float64, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{Cursor: cursor, Computer: computer, Heads: headList, Policy: pol, Reporter: rep, Config: cfg, nodeWeights: nodeWeights, Logger: logger, RelatedTopK: 3}
}

// WithNodeMeta attaches label/tag lookups so GraphSink flushes can mirror
// human-readable node properties instead of bare IDs.
func (e *Engine) WithNodeMeta(labels map[streamdata.NodeID]string, tags map[streamdata.NodeID]map[string]struct{}) *Engine {
	e.nodeLabels = labels
	e.nodeTags = tags
	return e
}

// Run drives the stream to exhaustion, running the per-step procedure of
// spec.md §4.4 and the finalize/finish sequence at the end.
func (e *Engine) Run(courseID string) error {
	ctx := context.Background()

	for _, h := range e.Heads {
		h.InitCourse(courseID)
	}

	var prevPred streamdata.Frame
	var prevCumulative streamdata.Frame
	hasPrevCumulative := false
	cumulative := streamdata.NewFrame()

	t := 0
	for e.Cursor.HasMore() {
		obs := e.Cursor.NextObs()
		stepID, ok := e.Cursor.CurrentStep()
		if !ok {
			stepID = t
		}
		features := e.Cursor.GetStepFeatures(stepID)

		cumulative = cumulative.Union(obs)

		signals := e.Computer.Compute(cumulative, prevCumulative, hasPrevCumulative, features, e.Config)

		headCtx := heads.FrameContext{
			T:                 t,
			StepID:            stepID,
			ObsEdges:          obs,
			CumulativeEdges:   cumulative,
			PrevCumulative:    prevCumulative,
			HasPrevCumulative: hasPrevCumulative,
			NodeWeights:       e.weightsSnapshot(),
			StepFeatures:      features,
		}

		for _, h := range e.Heads {
			extras := h.PerStep(headCtx, signals)
			for k, v := range extras {
				signals.Extras[k] = v
			}
		}

		if e.SemanticIndex != nil {
			signals.Extras["related_nodes"] = e.relatedNodes(ctx, features.TopNodes)
		}

		pred := e.Policy.Step(t, prevPred, obs)

		rec := reporter.StepRecord{
			Step:         t,
			StepID:       stepID,
			Signals:      signals,
			StepFeatures: features,
			Pred:         pred,
		}
		e.Reporter.Record(rec)

		if e.LiveBus != nil {
			if err := e.LiveBus.PublishStep(ctx, courseID, rec); err != nil {
				e.Logger.Warn("livebus publish step failed", "course_id", courseID, "step", t, "err", err)
			}
		}
		if e.GraphSink != nil {
			if err := e.GraphSink.Flush(ctx, courseID, cumulative, e.nodeLabels, e.nodeTags, e.nodeWeights); err != nil {
				e.Logger.Warn("graphsink flush failed", "course_id", courseID, "step", t, "err", err)
			}
		}

		prevPred = pred
		prevCumulative = cumulative
		hasPrevCumulative = true
		t++
	}

	summaries := make(map[string]map[string]any, len(e.Heads))
	for _, h := range e.Heads {
		summary := h.Finalize()
		if len(summary) > 0 {
			summaries[h.Name()] = summary
		}
	}
	e.Reporter.Finish(summaries)

	if e.LiveBus != nil {
		if err := e.LiveBus.PublishFinish(ctx, courseID, e.Reporter.Report()); err != nil {
			e.Logger.Warn("livebus publish finish failed", "course_id", courseID, "err", err)
		}
	}

	return nil
}

// relatedNodes looks up each top node's nearest semantic neighbors. Lookup
// errors are logged and skipped for that node rather than failing the step.
func (e *Engine) relatedNodes(ctx context.Context, topNodes []streamdata.TopNode) map[streamdata.NodeID][]string {
	out := make(map[streamdata.NodeID][]string, len(topNodes))
	for _, tn := range topNodes {
		related, err := e.SemanticIndex.Related(ctx, tn.ID, e.RelatedTopK)
		if err != nil {
			e.Logger.Warn("semanticindex related lookup failed", "node_id", tn.ID, "err", err)
			continue
		}
		if len(related) > 0 {
			out[tn.ID] = related
		}
	}
	return out
}

// weightsSnapshot exposes the cursor's node weights to heads. The cursor
// does not track weights directly (they live on the ProcessedStream the
// cursor wraps); the map is the nodeWeights argument given to New.
func (e *Engine) weightsSnapshot() map[streamdata.NodeID]float64 {
	return e.nodeWeights
}
