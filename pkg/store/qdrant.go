package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/xhad/sourcebook/internal/models"
	"github.com/xhad/sourcebook/internal/types"
)

const (
	payloadID        = "id"
	payloadWorkspace = "workspaceId"
)

type QdrantConfig struct {
	Host       string
	Port       int
	Collection string
}

// QdrantStore keeps every workspace in one collection and filters on the
// workspaceId payload field.
type QdrantStore struct {
	config      QdrantConfig
	conn        *grpc.ClientConn
	points      pb.PointsClient
	collections pb.CollectionsClient

	mu    sync.Mutex
	ready bool
}

func NewQdrant(ctx context.Context, config QdrantConfig) (*QdrantStore, error) {
	if config.Host == "" {
		config.Host = "localhost"
	}
	if config.Port == 0 {
		config.Port = 6334
	}
	if config.Collection == "" {
		config.Collection = "sourcebook"
	}

	addr := fmt.Sprintf("%s:%d", config.Host, config.Port)
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("qdrant connect: %w", err)
	}

	return &QdrantStore{
		config:      config,
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
	}, nil
}

// ensureCollection creates the collection on first write, sized to the
// first vector seen.
func (s *QdrantStore) ensureCollection(ctx context.Context, dim int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ready {
		return nil
	}

	resp, err := s.collections.CollectionExists(ctx, &pb.CollectionExistsRequest{CollectionName: s.config.Collection})
	if err != nil {
		return fmt.Errorf("qdrant collection check: %w", err)
	}

	if !resp.GetResult().GetExists() {
		_, err = s.collections.Create(ctx, &pb.CreateCollection{
			CollectionName: s.config.Collection,
			VectorsConfig: pb.NewVectorsConfig(&pb.VectorParams{
				Size:     uint64(dim),
				Distance: pb.Distance_Cosine,
			}),
		})
		if err != nil {
			return fmt.Errorf("qdrant create collection: %w", err)
		}
	}

	s.ready = true
	return nil
}

// pointID maps a chunk id onto the UUID space Qdrant requires.
func pointID(id string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(id)).String()
}

func (s *QdrantStore) Upsert(ctx context.Context, partition string, records []types.Record) error {
	if len(records) == 0 {
		return nil
	}

	if err := s.ensureCollection(ctx, len(records[0].Vector)); err != nil {
		return err
	}

	points := make([]*pb.PointStruct, len(records))
	for i, r := range records {
		payload := map[string]*pb.Value{
			payloadID:        {Kind: &pb.Value_StringValue{StringValue: r.ID}},
			payloadWorkspace: {Kind: &pb.Value_StringValue{StringValue: partition}},
		}
		for k, v := range r.Metadata.StringFields() {
			if k == payloadWorkspace {
				continue
			}
			payload[k] = &pb.Value{Kind: &pb.Value_StringValue{StringValue: v}}
		}

		points[i] = &pb.PointStruct{
			Id:      pb.NewIDUUID(pointID(r.ID)),
			Vectors: pb.NewVectors(r.Vector...),
			Payload: payload,
		}
	}

	wait := true
	_, err := s.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: s.config.Collection,
		Wait:           &wait,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("qdrant upsert: %w", err)
	}
	return nil
}

func (s *QdrantStore) Query(ctx context.Context, partition string, vector []float32, topK int) ([]types.Match, error) {
	if topK <= 0 {
		return nil, nil
	}

	resp, err := s.points.Search(ctx, &pb.SearchPoints{
		CollectionName: s.config.Collection,
		Vector:         vector,
		Filter: &pb.Filter{
			Must: []*pb.Condition{pb.NewMatchKeyword(payloadWorkspace, partition)},
		},
		Limit:       uint64(topK),
		WithPayload: &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant search: %w", err)
	}

	matches := make([]types.Match, 0, len(resp.GetResult()))
	for _, pt := range resp.GetResult() {
		fields := make(map[string]string, len(pt.GetPayload()))
		for k, v := range pt.GetPayload() {
			fields[k] = v.GetStringValue()
		}

		meta, err := models.MetadataFromStrings(fields)
		if err != nil {
			return nil, fmt.Errorf("corrupt payload on %s: %w", fields[payloadID], err)
		}

		id := fields[payloadID]
		if id == "" {
			id = pt.GetId().GetUuid()
		}
		matches = append(matches, types.Match{ID: id, Score: pt.GetScore(), Metadata: meta})
	}
	return matches, nil
}

func (s *QdrantStore) Close() error {
	return s.conn.Close()
}
