// Package semanticindex is an optional nearest-neighbor index over
// node-label embeddings, backed by Qdrant (spec.md §4.10). It is adapted
// from the teacher's engine/semantic.VectorStore: the same gRPC-direct
// Qdrant wiring, trimmed to the single collection-per-course shape this
// repository needs (no doc_id/source filtering, since a course's nodes
// have no document provenance to filter by).
package semanticindex

import (
	"context"
	"fmt"

	"github.com/AcidicSwords/AxiomicAgent/internal/embedclient"
	"github.com/AcidicSwords/AxiomicAgent/internal/streamdata"
	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Index embeds node labels via an EmbedClient and indexes them into a
// Qdrant collection scoped to one course.
type Index struct {
	conn       *grpc.ClientConn
	points     pb.PointsClient
	collections pb.CollectionsClient
	collection string
	embed      *embedclient.Client
	dims       int

	labels map[streamdata.NodeID]string
	ids    map[streamdata.NodeID]string
}

// New dials Qdrant at addr and returns an Index that writes into
// collection, embedding text via embed. dims is the embedding dimension
// used when the collection must be created (0 defaults to 768, the
// nomic-embed-text dimension the teacher's Ollama setup uses).
func New(addr, collection string, embed *embedclient.Client, dims int) (*Index, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("semanticindex: dial qdrant %s: %w", addr, err)
	}
	if dims <= 0 {
		dims = 768
	}
	return &Index{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		collection:  collection,
		embed:       embed,
		dims:        dims,
		labels:      make(map[streamdata.NodeID]string),
		ids:         make(map[streamdata.NodeID]string),
	}, nil
}

// Close closes the underlying gRPC connection. A nil Index is a no-op.
func (idx *Index) Close() error {
	if idx == nil || idx.conn == nil {
		return nil
	}
	return idx.conn.Close()
}

func (idx *Index) ensureCollection(ctx context.Context) error {
	list, err := idx.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("semanticindex: list collections: %w", err)
	}
	for _, c := range list.GetCollections() {
		if c.GetName() == idx.collection {
			return nil
		}
	}
	_, err = idx.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: idx.collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     uint64(idx.dims),
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("semanticindex: create collection %s: %w", idx.collection, err)
	}
	return nil
}

// IndexNodes embeds each node's label and upserts it into the course's
// Qdrant collection. A nil Index is a no-op, so callers can wire an
// unconfigured Index unconditionally.
func (idx *Index) IndexNodes(ctx context.Context, nodeLabels map[streamdata.NodeID]string) error {
	if idx == nil || idx.embed == nil {
		return nil
	}
	if err := idx.ensureCollection(ctx); err != nil {
		return err
	}

	points := make([]*pb.PointStruct, 0, len(nodeLabels))
	for id, label := range nodeLabels {
		if _, known := idx.ids[id]; known {
			continue
		}
		vec, err := idx.embed.Embed(ctx, label)
		if err != nil {
			return fmt.Errorf("semanticindex: embed node %d: %w", id, err)
		}
		pointID := pointUUID(idx.collection, id)
		idx.ids[id] = pointID
		idx.labels[id] = label

		points = append(points, &pb.PointStruct{
			Id: &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: pointID}},
			Vectors: &pb.Vectors{
				VectorsOptions: &pb.Vectors_Vector{Vector: &pb.Vector{Data: vec}},
			},
			Payload: map[string]*pb.Value{
				"node_id": {Kind: &pb.Value_IntegerValue{IntegerValue: int64(id)}},
				"label":   {Kind: &pb.Value_StringValue{StringValue: label}},
			},
		})
	}
	if len(points) == 0 {
		return nil
	}

	wait := true
	_, err := idx.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: idx.collection,
		Wait:           &wait,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("semanticindex: upsert %d points: %w", len(points), err)
	}
	return nil
}

// Related returns the topK node labels nearest to id by cosine distance,
// excluding id itself. A nil Index (or a node never indexed) returns an
// empty slice and a nil error — callers treat a missing index as "no
// related nodes" rather than a hard failure.
func (idx *Index) Related(ctx context.Context, id streamdata.NodeID, topK int) ([]string, error) {
	if idx == nil || idx.embed == nil {
		return nil, nil
	}
	label, ok := idx.labels[id]
	if !ok {
		return nil, nil
	}
	vec, err := idx.embed.Embed(ctx, label)
	if err != nil {
		return nil, fmt.Errorf("semanticindex: embed query %d: %w", id, err)
	}

	resp, err := idx.points.Search(ctx, &pb.SearchPoints{
		CollectionName: idx.collection,
		Vector:         vec,
		Limit:          uint64(topK + 1),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("semanticindex: search node %d: %w", id, err)
	}

	self := idx.ids[id]
	out := make([]string, 0, topK)
	for _, r := range resp.GetResult() {
		if r.GetId().GetUuid() == self {
			continue
		}
		if v := r.GetPayload()["label"]; v != nil {
			out = append(out, v.GetStringValue())
		}
		if len(out) >= topK {
			break
		}
	}
	return out, nil
}

// pointUUID derives a stable point ID from a course-scoped collection name
// and node ID, so repeated IndexNodes calls across steps are idempotent
// (same deterministic-ID pattern as the loader's course_id fallback).
func pointUUID(collection string, id streamdata.NodeID) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("%s/%d", collection, id))).String()
}
