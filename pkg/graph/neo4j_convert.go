package graph

import (
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j/db"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"

	"github.com/sn3fru/silvanews-sub000/pkg/types"
)

// Conversion helpers between Neo4j records and domain types. Properties come
// back as any-typed values; everything here tolerates missing or nil fields.

func entityFromRecord(record *db.Record, key string) (*types.GraphEntity, error) {
	node, err := nodeFromRecord(record, key)
	if err != nil {
		return nil, err
	}

	return &types.GraphEntity{
		ID:            asString(node.Props["id"]),
		CanonicalName: asString(node.Props["canonical_name"]),
		Type:          asString(node.Props["type"]),
		Aliases:       asStrings(node.Props["aliases"]),
		CreatedAt:     asTime(node.Props["created_at"]),
		UpdatedAt:     asTime(node.Props["updated_at"]),
	}, nil
}

func articleFromRecord(record *db.Record, key string) (*types.Article, error) {
	node, err := nodeFromRecord(record, key)
	if err != nil {
		return nil, err
	}

	return &types.Article{
		ID:             asString(node.Props["id"]),
		RawText:        asString(node.Props["raw_text"]),
		ProcessedText:  asString(node.Props["processed_text"]),
		PublishedAt:    asTime(node.Props["published_at"]),
		Embedding:      asFloat32s(node.Props["embedding"]),
		EntityIDs:      asStrings(node.Props["entity_ids"]),
		ClusterID:      asString(node.Props["cluster_id"]),
		Status:         types.ArticleStatus(asString(node.Props["status"])),
		DegradedStages: asStrings(node.Props["degraded_stages"]),
		CreatedAt:      asTime(node.Props["created_at"]),
		UpdatedAt:      asTime(node.Props["updated_at"]),
	}, nil
}

func clusterFromRecord(record *db.Record, key string) (*types.Cluster, error) {
	node, err := nodeFromRecord(record, key)
	if err != nil {
		return nil, err
	}

	return &types.Cluster{
		ID:            asString(node.Props["id"]),
		Title:         asString(node.Props["title"]),
		Summary:       asString(node.Props["summary"]),
		MemberIDs:     asStrings(node.Props["member_article_ids"]),
		MeanEmbedding: asFloat32s(node.Props["mean_embedding"]),
		Tag:           asString(node.Props["tag"]),
		Priority:      asString(node.Props["priority"]),
		Status:        types.ClusterStatus(asString(node.Props["status"])),
		CreatedAt:     asTime(node.Props["created_at"]),
		UpdatedAt:     asTime(node.Props["updated_at"]),
	}, nil
}

func edgeFromRecord(record *db.Record) *types.GraphEdge {
	get := func(key string) any {
		v, _ := record.Get(key)
		return v
	}

	return &types.GraphEdge{
		ID:         asString(get("id")),
		SubjectID:  asString(get("subject_id")),
		ObjectID:   asString(get("object_id")),
		Relation:   asString(get("relation")),
		Weight:     asFloat64(get("weight")),
		ObservedAt: asTime(get("observed_at")),
	}
}

func nodeFromRecord(record *db.Record, key string) (dbtype.Node, error) {
	value, found := record.Get(key)
	if !found {
		return dbtype.Node{}, ErrNotFound
	}
	node, ok := value.(dbtype.Node)
	if !ok {
		return dbtype.Node{}, fmt.Errorf("unexpected type for node: got %T, expected dbtype.Node", value)
	}
	return node, nil
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asFloat64(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case int64:
		return float64(x)
	default:
		return 0
	}
}

func asTime(v any) time.Time {
	switch x := v.(type) {
	case time.Time:
		return x
	case dbtype.LocalDateTime:
		return x.Time()
	default:
		return time.Time{}
	}
}

func asStrings(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	result := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			result = append(result, s)
		}
	}
	if len(result) == 0 {
		return nil
	}
	return result
}

func asFloat32s(v any) []float32 {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	result := make([]float32, 0, len(items))
	for _, item := range items {
		result = append(result, float32(asFloat64(item)))
	}
	if len(result) == 0 {
		return nil
	}
	return result
}

func stringsToAny(items []string) []any {
	result := make([]any, len(items))
	for i, s := range items {
		result[i] = s
	}
	return result
}

func float32sToAny(items []float32) []any {
	result := make([]any, len(items))
	for i, f := range items {
		result[i] = float64(f)
	}
	return result
}
