package graph

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/db"

	"github.com/sn3fru/silvanews-sub000/pkg/types"
)

// Neo4jStore implements Store on a Neo4j database. The canonical-name
// uniqueness constraint plus MERGE gives the idempotent upsert the resolver
// relies on; a constraint race surfaces as ErrDuplicateCanonicalName and is
// retried as a read by the caller.
type Neo4jStore struct {
	client   neo4j.DriverWithContext
	database string
}

// NewNeo4jStore creates a store backed by the given Neo4j instance.
func NewNeo4jStore(uri, username, password, database string) (*Neo4jStore, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}

	if database == "" {
		database = "neo4j"
	}
	return &Neo4jStore{client: driver, database: database}, nil
}

// CreateIndices creates the uniqueness constraints and lookup indices the
// store depends on. Safe to run repeatedly.
func (s *Neo4jStore) CreateIndices(ctx context.Context) error {
	statements := []string{
		"CREATE CONSTRAINT entity_name_key IF NOT EXISTS FOR (e:Entity) REQUIRE e.name_key IS UNIQUE",
		"CREATE CONSTRAINT article_id IF NOT EXISTS FOR (a:Article) REQUIRE a.id IS UNIQUE",
		"CREATE CONSTRAINT cluster_id IF NOT EXISTS FOR (c:Cluster) REQUIRE c.id IS UNIQUE",
		"CREATE INDEX mention_observed_at IF NOT EXISTS FOR ()-[m:MENTIONS]-() ON (m.observed_at)",
	}

	session := s.session(ctx)
	defer session.Close(ctx)

	for _, stmt := range statements {
		if _, err := session.Run(ctx, stmt, nil); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return nil
}

// UpsertEntity merges the entity keyed by normalized canonical name and
// records the alias. The entity id is set only on create, so it is stable
// under concurrent upserts of the same name.
func (s *Neo4jStore) UpsertEntity(ctx context.Context, canonicalName, entityType, alias string) (*types.GraphEntity, error) {
	key := NormalizeName(canonicalName)
	if key == "" {
		return nil, types.ErrEmptyCanonicalName
	}

	session := s.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := `
			MERGE (e:Entity {name_key: $key})
			ON CREATE SET
				e.id = $id,
				e.canonical_name = $canonical_name,
				e.type = $type,
				e.aliases = [],
				e.alias_keys = [],
				e.created_at = $now
			SET e.updated_at = $now
			WITH e
			OPTIONAL MATCH (o:Entity)
			WHERE o.id <> e.id AND ($alias_key = o.name_key OR $alias_key IN o.alias_keys)
			WITH e, count(o) AS name_taken
			FOREACH (_ IN CASE WHEN $alias <> '' AND name_taken = 0 AND NOT $alias IN e.aliases THEN [1] ELSE [] END |
				SET e.aliases = e.aliases + $alias,
				    e.alias_keys = e.alias_keys + $alias_key
			)
			RETURN e
		`
		res, err := tx.Run(ctx, query, map[string]any{
			"key":            key,
			"id":             uuid.NewString(),
			"canonical_name": DisplayName(canonicalName),
			"type":           entityType,
			"alias":          alias,
			"alias_key":      NormalizeName(alias),
			"now":            time.Now().UTC(),
		})
		if err != nil {
			return nil, err
		}
		return res.Single(ctx)
	})
	if err != nil {
		if isConstraintError(err) {
			return nil, ErrDuplicateCanonicalName
		}
		return nil, fmt.Errorf("failed to upsert entity: %w", err)
	}

	return entityFromRecord(result.(*db.Record), "e")
}

// FindEntityByName finds an entity by normalized canonical name or alias.
func (s *Neo4jStore) FindEntityByName(ctx context.Context, name string) (*types.GraphEntity, error) {
	key := NormalizeName(name)

	session := s.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := `
			MATCH (e:Entity)
			WHERE e.name_key = $key OR $key IN e.alias_keys
			RETURN e
			ORDER BY CASE WHEN e.name_key = $key THEN 0 ELSE 1 END, e.created_at, e.id
			LIMIT 1
		`
		res, err := tx.Run(ctx, query, map[string]any{"key": key})
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		if len(records) == 0 {
			return nil, ErrNotFound
		}
		return records[0], nil
	})
	if err != nil {
		return nil, err
	}

	return entityFromRecord(result.(*db.Record), "e")
}

// EntityNames returns every normalized name variant mapped to its entity id.
func (s *Neo4jStore) EntityNames(ctx context.Context) (map[string]string, error) {
	session := s.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `MATCH (e:Entity) RETURN e.id AS id, e.name_key AS key, e.alias_keys AS alias_keys`, nil)
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list entity names: %w", err)
	}

	names := make(map[string]string)
	for _, record := range result.([]*db.Record) {
		id, _ := record.Get("id")
		key, _ := record.Get("key")
		names[key.(string)] = id.(string)
		if aliasKeys, ok := record.Get("alias_keys"); ok && aliasKeys != nil {
			for _, ak := range aliasKeys.([]any) {
				names[ak.(string)] = id.(string)
			}
		}
	}
	return names, nil
}

// GetEntity retrieves an entity by id.
func (s *Neo4jStore) GetEntity(ctx context.Context, id string) (*types.GraphEntity, error) {
	record, err := s.readSingle(ctx, `MATCH (e:Entity {id: $id}) RETURN e`, map[string]any{"id": id})
	if err != nil {
		return nil, err
	}
	return entityFromRecord(record, "e")
}

// AppendEdges creates relationship rows for the given edges. An edge whose
// endpoints cannot be matched creates nothing and is reported as skipped.
func (s *Neo4jStore) AppendEdges(ctx context.Context, edges []*types.GraphEdge) ([]*types.GraphEdge, error) {
	session := s.session(ctx)
	defer session.Close(ctx)

	var skipped []*types.GraphEdge
	for _, edge := range edges {
		if err := edge.Validate(); err != nil {
			skipped = append(skipped, edge)
			continue
		}
		if edge.ID == "" {
			edge.ID = uuid.NewString()
		}

		created, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			query := fmt.Sprintf(`
				MATCH (s {id: $subject_id}), (o {id: $object_id})
				CREATE (s)-[m:%s {id: $id, relation: $relation, weight: $weight, observed_at: $observed_at}]->(o)
				RETURN m.id
			`, relationLabel(edge.Relation))
			res, err := tx.Run(ctx, query, map[string]any{
				"subject_id":  edge.SubjectID,
				"object_id":   edge.ObjectID,
				"id":          edge.ID,
				"relation":    edge.Relation,
				"weight":      edge.Weight,
				"observed_at": edge.ObservedAt.UTC(),
			})
			if err != nil {
				return false, err
			}
			records, err := res.Collect(ctx)
			if err != nil {
				return false, err
			}
			return len(records) > 0, nil
		})
		if err != nil {
			return skipped, fmt.Errorf("failed to append edge: %w", err)
		}
		if !created.(bool) {
			skipped = append(skipped, edge)
		}
	}
	return skipped, nil
}

// EdgesBySubject returns all edges whose subject is the given id.
func (s *Neo4jStore) EdgesBySubject(ctx context.Context, subjectID string) ([]*types.GraphEdge, error) {
	session := s.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := `
			MATCH (s {id: $subject_id})-[m]->(o)
			WHERE m.id IS NOT NULL
			RETURN m.id AS id, s.id AS subject_id, o.id AS object_id,
			       m.relation AS relation, m.weight AS weight, m.observed_at AS observed_at
			ORDER BY m.observed_at
		`
		res, err := tx.Run(ctx, query, map[string]any{"subject_id": subjectID})
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load edges: %w", err)
	}

	records := result.([]*db.Record)
	edges := make([]*types.GraphEdge, 0, len(records))
	for _, record := range records {
		edges = append(edges, edgeFromRecord(record))
	}
	return edges, nil
}

// GetEdge retrieves an edge by id.
func (s *Neo4jStore) GetEdge(ctx context.Context, id string) (*types.GraphEdge, error) {
	record, err := s.readSingle(ctx, `
		MATCH (s)-[m {id: $id}]->(o)
		RETURN m.id AS id, s.id AS subject_id, o.id AS object_id,
		       m.relation AS relation, m.weight AS weight, m.observed_at AS observed_at
	`, map[string]any{"id": id})
	if err != nil {
		return nil, err
	}
	return edgeFromRecord(record), nil
}

// SaveArticle upserts an article node. raw_text is set only on create and
// never overwritten afterwards.
func (s *Neo4jStore) SaveArticle(ctx context.Context, article *types.Article) error {
	if err := article.Validate(); err != nil {
		return err
	}

	session := s.session(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := `
			MERGE (a:Article {id: $id})
			ON CREATE SET a.raw_text = $raw_text, a.created_at = $now
			SET a.processed_text = $processed_text,
			    a.published_at = $published_at,
			    a.embedding = $embedding,
			    a.entity_ids = $entity_ids,
			    a.cluster_id = $cluster_id,
			    a.status = $status,
			    a.degraded_stages = $degraded_stages,
			    a.updated_at = $now
			WITH a
			OPTIONAL MATCH (old:Cluster)-[r:HAS_MEMBER]->(a)
			WHERE old.id <> $cluster_id
			DELETE r
			WITH a
			OPTIONAL MATCH (c:Cluster {id: $cluster_id})
			FOREACH (_ IN CASE WHEN c IS NULL THEN [] ELSE [1] END |
				MERGE (c)-[:HAS_MEMBER]->(a)
			)
			RETURN a.id
		`
		_, err := tx.Run(ctx, query, map[string]any{
			"id":              article.ID,
			"raw_text":        article.RawText,
			"processed_text":  article.ProcessedText,
			"published_at":    article.PublishedAt.UTC(),
			"embedding":       float32sToAny(article.Embedding),
			"entity_ids":      stringsToAny(article.EntityIDs),
			"cluster_id":      article.ClusterID,
			"status":          string(article.Status),
			"degraded_stages": stringsToAny(article.DegradedStages),
			"now":             time.Now().UTC(),
		})
		return nil, err
	})
	if err != nil {
		return fmt.Errorf("failed to save article: %w", err)
	}
	return nil
}

// GetArticle retrieves an article by id.
func (s *Neo4jStore) GetArticle(ctx context.Context, id string) (*types.Article, error) {
	record, err := s.readSingle(ctx, `MATCH (a:Article {id: $id}) RETURN a`, map[string]any{"id": id})
	if err != nil {
		return nil, err
	}
	return articleFromRecord(record, "a")
}

// SaveCluster upserts a cluster node.
func (s *Neo4jStore) SaveCluster(ctx context.Context, cluster *types.Cluster) error {
	if err := cluster.Validate(); err != nil {
		return err
	}

	session := s.session(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := `
			MERGE (c:Cluster {id: $id})
			ON CREATE SET c.created_at = $now
			SET c.title = $title,
			    c.summary = $summary,
			    c.member_article_ids = $member_ids,
			    c.mean_embedding = $mean_embedding,
			    c.tag = $tag,
			    c.priority = $priority,
			    c.status = $status,
			    c.updated_at = $now
			WITH c
			UNWIND CASE WHEN size($member_ids) = 0 THEN [null] ELSE $member_ids END AS member_id
			OPTIONAL MATCH (a:Article {id: member_id})
			FOREACH (_ IN CASE WHEN a IS NULL THEN [] ELSE [1] END |
				MERGE (c)-[:HAS_MEMBER]->(a)
			)
			RETURN DISTINCT c.id
		`
		_, err := tx.Run(ctx, query, map[string]any{
			"id":             cluster.ID,
			"title":          cluster.Title,
			"summary":        cluster.Summary,
			"member_ids":     stringsToAny(cluster.MemberIDs),
			"mean_embedding": float32sToAny(cluster.MeanEmbedding),
			"tag":            cluster.Tag,
			"priority":       cluster.Priority,
			"status":         string(cluster.Status),
			"now":            time.Now().UTC(),
		})
		return nil, err
	})
	if err != nil {
		return fmt.Errorf("failed to save cluster: %w", err)
	}
	return nil
}

// GetCluster retrieves a cluster by id.
func (s *Neo4jStore) GetCluster(ctx context.Context, id string) (*types.Cluster, error) {
	record, err := s.readSingle(ctx, `MATCH (c:Cluster {id: $id}) RETURN c`, map[string]any{"id": id})
	if err != nil {
		return nil, err
	}
	return clusterFromRecord(record, "c")
}

// ActiveClusters returns active clusters updated at or after since.
func (s *Neo4jStore) ActiveClusters(ctx context.Context, since time.Time) ([]*types.Cluster, error) {
	session := s.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := `
			MATCH (c:Cluster)
			WHERE c.status = 'active' AND c.updated_at >= $since
			RETURN c
			ORDER BY c.id
		`
		res, err := tx.Run(ctx, query, map[string]any{"since": since.UTC()})
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list active clusters: %w", err)
	}

	records := result.([]*db.Record)
	clusters := make([]*types.Cluster, 0, len(records))
	for _, record := range records {
		cluster, err := clusterFromRecord(record, "c")
		if err != nil {
			return nil, err
		}
		clusters = append(clusters, cluster)
	}
	return clusters, nil
}

// ClusterEntityIDs returns the distinct entities mentioned by the cluster's
// member articles.
func (s *Neo4jStore) ClusterEntityIDs(ctx context.Context, clusterID string) ([]string, error) {
	session := s.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := `
			MATCH (:Cluster {id: $id})-[:HAS_MEMBER]->(:Article)-[:MENTIONS]->(e:Entity)
			RETURN DISTINCT e.id AS id
			ORDER BY id
		`
		res, err := tx.Run(ctx, query, map[string]any{"id": clusterID})
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to collect cluster entities: %w", err)
	}

	records := result.([]*db.Record)
	ids := make([]string, 0, len(records))
	for _, record := range records {
		id, _ := record.Get("id")
		ids = append(ids, id.(string))
	}
	return ids, nil
}

// ClustersMentioningSince traverses entity mentions within the window back
// to their active clusters, most recently observed first.
func (s *Neo4jStore) ClustersMentioningSince(ctx context.Context, entityIDs []string, since time.Time, limit int) ([]types.ClusterRef, error) {
	if len(entityIDs) == 0 || limit <= 0 {
		return nil, nil
	}

	session := s.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := `
			MATCH (c:Cluster)-[:HAS_MEMBER]->(a:Article)-[m:MENTIONS]->(e:Entity)
			WHERE e.id IN $entity_ids AND m.observed_at >= $since AND c.status = 'active'
			WITH c, max(m.observed_at) AS last_observed
			RETURN c.id AS id, c.title AS title, c.summary AS summary, last_observed
			ORDER BY last_observed DESC, id
			LIMIT $limit
		`
		res, err := tx.Run(ctx, query, map[string]any{
			"entity_ids": stringsToAny(entityIDs),
			"since":      since.UTC(),
			"limit":      limit,
		})
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to traverse mentions: %w", err)
	}

	records := result.([]*db.Record)
	refs := make([]types.ClusterRef, 0, len(records))
	for _, record := range records {
		ref := types.ClusterRef{}
		if v, ok := record.Get("id"); ok && v != nil {
			ref.ID = v.(string)
		}
		if v, ok := record.Get("title"); ok && v != nil {
			ref.Title = v.(string)
		}
		if v, ok := record.Get("summary"); ok && v != nil {
			ref.Summary = v.(string)
		}
		if v, ok := record.Get("last_observed"); ok && v != nil {
			ref.UpdatedAt = asTime(v)
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// Close closes the underlying driver.
func (s *Neo4jStore) Close(ctx context.Context) error {
	return s.client.Close(ctx)
}

func (s *Neo4jStore) session(ctx context.Context) neo4j.SessionWithContext {
	return s.client.NewSession(ctx, neo4j.SessionConfig{DatabaseName: s.database})
}

func (s *Neo4jStore) readSingle(ctx context.Context, query string, params map[string]any) (*db.Record, error) {
	session := s.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		if len(records) == 0 {
			return nil, ErrNotFound
		}
		return records[0], nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*db.Record), nil
}

func relationLabel(relation string) string {
	switch relation {
	case types.RelationMentions:
		return "MENTIONS"
	case types.RelationCoOccurs:
		return "CO_OCCURS_WITH"
	default:
		return "RELATES_TO"
	}
}

func isConstraintError(err error) bool {
	var neoErr *neo4j.Neo4jError
	if errors.As(err, &neoErr) {
		return neoErr.Code == "Neo.ClientError.Schema.ConstraintValidationFailed"
	}
	return false
}
