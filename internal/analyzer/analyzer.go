// Package analyzer runs multiple course archives through the engine in
// parallel and aggregates their summaries into a cross-course comparison
// (spec.md §5 "Cross-course parallelism", §6 "comparison.json").
package analyzer

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/AcidicSwords/AxiomicAgent/internal/adapter"
	"github.com/AcidicSwords/AxiomicAgent/internal/config"
	"github.com/AcidicSwords/AxiomicAgent/internal/embedclient"
	"github.com/AcidicSwords/AxiomicAgent/internal/engine"
	"github.com/AcidicSwords/AxiomicAgent/internal/graphsink"
	"github.com/AcidicSwords/AxiomicAgent/internal/livebus"
	"github.com/AcidicSwords/AxiomicAgent/internal/loader"
	"github.com/AcidicSwords/AxiomicAgent/internal/policy"
	"github.com/AcidicSwords/AxiomicAgent/internal/registry"
	"github.com/AcidicSwords/AxiomicAgent/internal/reporter"
	"github.com/AcidicSwords/AxiomicAgent/internal/semanticindex"
	"github.com/AcidicSwords/AxiomicAgent/internal/signal"
	"github.com/AcidicSwords/AxiomicAgent/internal/streamdata"
	"github.com/AcidicSwords/AxiomicAgent/pkg/fn"
	"github.com/nats-io/nats.go"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// CourseRun names one archive to process and where to write its report.
type CourseRun struct {
	Path       string
	Adapter    string
	Reporter   string
	ReportPath string
}

// CourseSummary is one row of comparison.json (spec.md §6).
type CourseSummary struct {
	CourseID       string  `json:"course_id"`
	AvgQ           float64 `json:"avg_q"`
	AvgTED         float64 `json:"avg_ted"`
	AvgStability   float64 `json:"avg_stability"`
	AvgSpread      float64 `json:"avg_spread"`
	AvgContinuity  float64 `json:"avg_continuity"`
	AvgTEDTrusted  float64 `json:"avg_ted_trusted"`
	Err            string  `json:"error,omitempty"`
}

// Run executes every CourseRun concurrently (no shared state across
// engines, per spec.md §5) and returns one CourseSummary per run, in the
// same order as runs.
func Run(runs []CourseRun, cfg config.CoreConfig, logger *slog.Logger) []CourseSummary {
	if logger == nil {
		logger = slog.Default()
	}
	workers := len(runs)
	if workers > 8 {
		workers = 8
	}
	return fn.ParMap(runs, workers, func(run CourseRun) CourseSummary {
		return runCourse(run, cfg, logger)
	})
}

func runCourse(run CourseRun, cfg config.CoreConfig, logger *slog.Logger) CourseSummary {
	ld := loader.New(logger)
	raw, err := ld.Load(run.Path)
	if err != nil {
		return CourseSummary{CourseID: filepath.Base(run.Path), Err: err.Error()}
	}

	courseID, _ := raw.Meta["course_id"].(string)

	pp, err := registry.Preprocessor(run.Adapter)
	if err != nil {
		return CourseSummary{CourseID: courseID, Err: err.Error()}
	}
	processed, err := pp.Process(raw, cfg)
	if err != nil {
		return CourseSummary{CourseID: courseID, Err: err.Error()}
	}

	built, err := registry.Heads(cfg.Heads)
	if err != nil {
		return CourseSummary{CourseID: courseID, Err: err.Error()}
	}
	rep, err := registry.Reporter(run.Reporter, run.ReportPath)
	if err != nil {
		return CourseSummary{CourseID: courseID, Err: err.Error()}
	}

	cursor := adapter.New(processed, false, 0)
	pol := policy.New(cfg.Capacity.MaxEdges, cfg.Capacity.StickyFraction, cfg.Capacity.MaxNodes, cfg.Capacity.HasMaxNodes)
	eng := engine.New(cursor, signal.New(), built, pol, rep, cfg, processed.NodeWeights, logger)

	nodeLabels := make(map[streamdata.NodeID]string, len(processed.Nodes))
	for id, attrs := range processed.Nodes {
		nodeLabels[id] = attrs.Label
	}
	eng.WithNodeMeta(nodeLabels, processed.NodeTags)

	sinks := wireSinks(cfg.Sinks, logger)
	defer sinks.Close()
	// Assigned only when non-nil: a *T(nil) stored in an interface field is
	// itself a non-nil interface, which would defeat the engine's `!= nil`
	// gating even though each sink's methods are individually nil-safe.
	if sinks.graph != nil {
		eng.GraphSink = sinks.graph
	}
	if sinks.bus != nil {
		eng.LiveBus = sinks.bus
	}
	if sinks.index != nil {
		eng.SemanticIndex = sinks.index
	}

	if sinks.index != nil {
		if err := sinks.index.IndexNodes(context.Background(), nodeLabels); err != nil {
			logger.Warn("semanticindex: initial node indexing failed", "course_id", courseID, "err", err)
		}
	}

	if err := eng.Run(courseID); err != nil {
		return CourseSummary{CourseID: courseID, Err: err.Error()}
	}

	return summarize(courseID, rep)
}

// wiredSinks holds the optional side-channels constructed for one course
// run, along with whatever needs closing when the run finishes.
type wiredSinks struct {
	graph *graphsink.Sink
	index *semanticindex.Index
	bus   *livebus.Bus

	neo4jDriver neo4j.DriverWithContext
	natsConn    *nats.Conn
}

func (s wiredSinks) Close() {
	if s.neo4jDriver != nil {
		_ = s.neo4jDriver.Close(context.Background())
	}
	if s.index != nil {
		_ = s.index.Close()
	}
	if s.natsConn != nil {
		s.natsConn.Close()
	}
}

// wireSinks builds the optional side-channels named by cfg (spec.md
// §4.9–§4.12). Each sink is independent: a construction failure for one is
// logged and that sink is left nil, it never prevents the others from
// wiring or the course run from proceeding (the engine treats nil sinks as
// disabled).
func wireSinks(cfg config.SinksConfig, logger *slog.Logger) wiredSinks {
	var out wiredSinks

	var embed *embedclient.Client
	if cfg.EmbedClientEnabled {
		embed = embedclient.New(embedclient.Options{
			BaseURL: cfg.OllamaURL,
			Model:   cfg.OllamaEmbedModel,
		})
	}

	if cfg.GraphSinkEnabled {
		driver, err := neo4j.NewDriverWithContext(cfg.Neo4jURL, neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPass, ""))
		if err != nil {
			logger.Warn("graphsink: driver construction failed", "err", err)
		} else {
			out.neo4jDriver = driver
			out.graph = graphsink.New(driver, logger)
		}
	}

	if cfg.SemanticIndexEnabled {
		if embed == nil {
			logger.Warn("semanticindex: enabled but embedclient is not; skipping")
		} else {
			idx, err := semanticindex.New(cfg.QdrantAddr, cfg.QdrantCollection, embed, cfg.EmbedDims)
			if err != nil {
				logger.Warn("semanticindex: construction failed", "err", err)
			} else {
				out.index = idx
			}
		}
	}

	if cfg.LiveBusEnabled {
		conn, err := nats.Connect(cfg.NATSURL)
		if err != nil {
			logger.Warn("livebus: connect failed", "err", err)
		} else {
			out.natsConn = conn
			out.bus = livebus.New(conn)
		}
	}

	return out
}

func summarize(courseID string, rep reporter.Reporter) CourseSummary {
	report := rep.Report()
	agg, _ := report["aggregates"].(map[string]any)

	return CourseSummary{
		CourseID:      courseID,
		AvgQ:          floatOf(agg["avg_q"]),
		AvgTED:        floatOf(agg["avg_ted"]),
		AvgStability:  floatOf(agg["avg_stability"]),
		AvgSpread:     floatOf(agg["avg_spread"]),
		AvgContinuity: floatOf(agg["avg_continuity"]),
		AvgTEDTrusted: floatOf(agg["avg_ted_trusted"]),
	}
}

func floatOf(v any) float64 {
	f, _ := v.(float64)
	return f
}
