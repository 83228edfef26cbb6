// Package graphsink mirrors a course's cumulative graph state into Neo4j
// for interactive exploration after a run (spec.md §4.9). It is a pure
// observability sink: no engine operation reads from it, and its errors
// never interrupt signal computation (adapted from the teacher's
// engine/graph.GraphStore SaveComponent/SaveEdge/SaveBatch pattern).
package graphsink

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/AcidicSwords/AxiomicAgent/internal/streamdata"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Sink upserts nodes and edges via MERGE, so repeated flushes across steps
// are idempotent.
type Sink struct {
	driver neo4j.DriverWithContext
	logger *slog.Logger
}

// New builds a Sink around an already-open driver. A nil logger falls back
// to slog.Default().
func New(driver neo4j.DriverWithContext, logger *slog.Logger) *Sink {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sink{driver: driver, logger: logger}
}

// Flush upserts one :Node per graph node touched by cumulative (properties:
// label, tags, weight) and one :LINKS_TO relationship per edge. A nil Sink
// or nil driver makes Flush a no-op, so callers can wire an unconfigured
// Sink unconditionally.
func (s *Sink) Flush(ctx context.Context, courseID string, cumulative streamdata.Frame, nodeLabels map[streamdata.NodeID]string, nodeTags map[streamdata.NodeID]map[string]struct{}, nodeWeights map[streamdata.NodeID]float64) error {
	if s == nil || s.driver == nil {
		return nil
	}

	sess := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer sess.Close(ctx)

	nodeSet := cumulative.Nodes()
	ids := make([]streamdata.NodeID, 0, len(nodeSet))
	for id := range nodeSet {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	_, err := sess.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		for _, id := range ids {
			_, err := tx.Run(ctx,
				`MERGE (n:Node {course_id: $course_id, id: $id})
				 SET n.label = $label, n.tags = $tags, n.weight = $weight`,
				map[string]any{
					"course_id": courseID,
					"id":        int64(id),
					"label":     nodeLabels[id],
					"tags":      tagList(nodeTags[id]),
					"weight":    nodeWeights[id],
				})
			if err != nil {
				return nil, fmt.Errorf("graphsink: merge node %d: %w", id, err)
			}
		}
		for _, e := range cumulative.Sorted() {
			_, err := tx.Run(ctx,
				`MATCH (a:Node {course_id: $course_id, id: $src}), (b:Node {course_id: $course_id, id: $dst})
				 MERGE (a)-[:LINKS_TO]->(b)`,
				map[string]any{
					"course_id": courseID,
					"src":       int64(e.Src),
					"dst":       int64(e.Dst),
				})
			if err != nil {
				return nil, fmt.Errorf("graphsink: merge edge %d->%d: %w", e.Src, e.Dst, err)
			}
		}
		return nil, nil
	})
	if err != nil {
		s.logger.Error("graphsink flush failed", "course_id", courseID, "err", err)
	}
	return err
}

func tagList(tags map[string]struct{}) []string {
	out := make([]string, 0, len(tags))
	for t := range tags {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
