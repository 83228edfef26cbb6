// Command axiomrun drives a single course archive through the engine end
// to end and writes its JSON report directly to disk. No HTTP server is
// involved; cmd/reportserver exists separately for that (adapted from the
// teacher's cmd/ingest, trading its directory-watch loop for a one-shot
// single-archive run).
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AcidicSwords/AxiomicAgent/internal/adapter"
	"github.com/AcidicSwords/AxiomicAgent/internal/config"
	"github.com/AcidicSwords/AxiomicAgent/internal/embedclient"
	"github.com/AcidicSwords/AxiomicAgent/internal/engine"
	"github.com/AcidicSwords/AxiomicAgent/internal/graphsink"
	"github.com/AcidicSwords/AxiomicAgent/internal/livebus"
	"github.com/AcidicSwords/AxiomicAgent/internal/loader"
	"github.com/AcidicSwords/AxiomicAgent/internal/policy"
	"github.com/AcidicSwords/AxiomicAgent/internal/registry"
	"github.com/AcidicSwords/AxiomicAgent/internal/semanticindex"
	"github.com/AcidicSwords/AxiomicAgent/internal/signal"
	"github.com/AcidicSwords/AxiomicAgent/internal/streamdata"
	"github.com/AcidicSwords/AxiomicAgent/pkg/metrics"
	"github.com/nats-io/nats.go"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

var met = metrics.New()

var (
	mStepsTotal  = func(course string) *metrics.Counter { return met.Counter(metrics.WithLabels("axiom_steps_total", "course_id", course), "Steps processed") }
	mRunDuration = met.Histogram("axiom_run_duration_seconds", "Full course run duration", nil)
	mRunErrors   = met.Counter("axiom_run_errors_total", "Course runs that returned an error")
)

func main() {
	var (
		archivePath = flag.String("archive", "", "path to the course archive to run (required)")
		adapterName = flag.String("adapter", "curriculum_stream", "registered adapter name")
		reporterName = flag.String("reporter", "curriculum_insight", "registered reporter name")
		reportPath  = flag.String("report", "report.json", "path to write the JSON report")
		metricsPort = flag.Int("metrics-port", 0, "if nonzero, serve Prometheus metrics on this port while running")
	)
	flag.Parse()

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(log)

	if *archivePath == "" {
		log.Error("missing required flag", "flag", "-archive")
		os.Exit(1)
	}

	if *metricsPort != 0 {
		met.ServeAsync(*metricsPort)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Default()
	if err := run(ctx, *archivePath, *adapterName, *reporterName, *reportPath, cfg, log); err != nil {
		mRunErrors.Inc()
		log.Error("run failed", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, archivePath, adapterName, reporterName, reportPath string, cfg config.CoreConfig, log *slog.Logger) error {
	start := time.Now()
	defer mRunDuration.Since(start)

	ld := loader.New(log)
	raw, err := ld.Load(archivePath)
	if err != nil {
		return fmt.Errorf("load archive: %w", err)
	}
	courseID, _ := raw.Meta["course_id"].(string)

	pp, err := registry.Preprocessor(adapterName)
	if err != nil {
		return fmt.Errorf("resolve adapter: %w", err)
	}
	processed, err := pp.Process(raw, cfg)
	if err != nil {
		return fmt.Errorf("preprocess: %w", err)
	}

	built, err := registry.Heads(cfg.Heads)
	if err != nil {
		return fmt.Errorf("resolve heads: %w", err)
	}
	rep, err := registry.Reporter(reporterName, reportPath)
	if err != nil {
		return fmt.Errorf("resolve reporter: %w", err)
	}

	cursor := adapter.New(processed, false, 0)
	pol := policy.New(cfg.Capacity.MaxEdges, cfg.Capacity.StickyFraction, cfg.Capacity.MaxNodes, cfg.Capacity.HasMaxNodes)
	eng := engine.New(cursor, signal.New(), built, pol, rep, cfg, processed.NodeWeights, log)

	nodeLabels := make(map[streamdata.NodeID]string, len(processed.Nodes))
	for id, attrs := range processed.Nodes {
		nodeLabels[id] = attrs.Label
	}
	eng.WithNodeMeta(nodeLabels, processed.NodeTags)

	var embed *embedclient.Client
	if cfg.Sinks.EmbedClientEnabled {
		embed = embedclient.New(embedclient.Options{BaseURL: cfg.Sinks.OllamaURL, Model: cfg.Sinks.OllamaEmbedModel})
	}

	if cfg.Sinks.GraphSinkEnabled {
		driver, err := neo4j.NewDriverWithContext(cfg.Sinks.Neo4jURL, neo4j.BasicAuth(cfg.Sinks.Neo4jUser, cfg.Sinks.Neo4jPass, ""))
		if err != nil {
			log.Warn("graphsink: driver construction failed", "err", err)
		} else {
			defer driver.Close(ctx)
			eng.GraphSink = graphsink.New(driver, log)
		}
	}

	if cfg.Sinks.SemanticIndexEnabled && embed != nil {
		idx, err := semanticindex.New(cfg.Sinks.QdrantAddr, cfg.Sinks.QdrantCollection, embed, cfg.Sinks.EmbedDims)
		if err != nil {
			log.Warn("semanticindex: construction failed", "err", err)
		} else {
			defer idx.Close()
			if err := idx.IndexNodes(ctx, nodeLabels); err != nil {
				log.Warn("semanticindex: initial node indexing failed", "err", err)
			}
			eng.SemanticIndex = idx
		}
	}

	if cfg.Sinks.LiveBusEnabled {
		conn, err := nats.Connect(cfg.Sinks.NATSURL)
		if err != nil {
			log.Warn("livebus: connect failed", "err", err)
		} else {
			defer conn.Close()
			eng.LiveBus = livebus.New(conn)
		}
	}

	if err := eng.Run(courseID); err != nil {
		return fmt.Errorf("engine run: %w", err)
	}
	mStepsTotal(courseID).Add(int64(len(processed.SortedSteps())))

	log.Info("course run complete", "course_id", courseID, "report", reportPath)
	return nil
}
