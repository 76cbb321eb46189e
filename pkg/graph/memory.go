package graph

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sn3fru/silvanews-sub000/pkg/types"
)

// MemoryStore is an in-memory Store for tests and embedded runs. Create/
// upsert operations serialize behind a single write lock, which gives the
// same convergence guarantee the Neo4j uniqueness constraint provides.
type MemoryStore struct {
	mu sync.RWMutex

	entities map[string]*types.GraphEntity // id -> entity
	names    map[string]string             // normalized name/alias -> entity id
	edges    []*types.GraphEdge
	edgeByID map[string]*types.GraphEdge
	articles map[string]*types.Article
	clusters map[string]*types.Cluster
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entities: make(map[string]*types.GraphEntity),
		names:    make(map[string]string),
		edgeByID: make(map[string]*types.GraphEdge),
		articles: make(map[string]*types.Article),
		clusters: make(map[string]*types.Cluster),
	}
}

// UpsertEntity returns the entity for the normalized canonical name,
// creating it when absent. The id is stable across concurrent upserts;
// alias lists grow last-writer-wins.
func (s *MemoryStore) UpsertEntity(ctx context.Context, canonicalName, entityType, alias string) (*types.GraphEntity, error) {
	key := NormalizeName(canonicalName)
	if key == "" {
		return nil, types.ErrEmptyCanonicalName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if id, ok := s.names[key]; ok {
		entity := s.entities[id]
		s.registerAlias(entity, alias, now)
		return copyEntity(entity), nil
	}

	entity := &types.GraphEntity{
		ID:            uuid.NewString(),
		CanonicalName: DisplayName(canonicalName),
		Type:          entityType,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	s.entities[entity.ID] = entity
	s.names[key] = entity.ID
	s.registerAlias(entity, alias, now)
	return copyEntity(entity), nil
}

// registerAlias records alias as a lookup name for entity. A name already
// owned by a different entity is left untouched: the first entity to claim
// a name keeps it, so exact lookups stay stable.
func (s *MemoryStore) registerAlias(entity *types.GraphEntity, alias string, now time.Time) {
	key := NormalizeName(alias)
	if key == "" {
		return
	}
	if owner, ok := s.names[key]; ok && owner != entity.ID {
		return
	}
	if !entity.HasAlias(alias) {
		entity.Aliases = append(entity.Aliases, alias)
		entity.UpdatedAt = now
	}
	s.names[key] = entity.ID
}

// FindEntityByName finds an entity by normalized canonical name or alias.
func (s *MemoryStore) FindEntityByName(ctx context.Context, name string) (*types.GraphEntity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.names[NormalizeName(name)]
	if !ok {
		return nil, ErrNotFound
	}
	return copyEntity(s.entities[id]), nil
}

// EntityNames returns every normalized name variant mapped to its entity id.
func (s *MemoryStore) EntityNames(ctx context.Context) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make(map[string]string, len(s.names))
	for name, id := range s.names {
		names[name] = id
	}
	return names, nil
}

// GetEntity retrieves an entity by id.
func (s *MemoryStore) GetEntity(ctx context.Context, id string) (*types.GraphEntity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entity, ok := s.entities[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyEntity(entity), nil
}

// AppendEdges appends edges, skipping any that reference unknown endpoints.
func (s *MemoryStore) AppendEdges(ctx context.Context, edges []*types.GraphEdge) ([]*types.GraphEdge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var skipped []*types.GraphEdge
	for _, edge := range edges {
		if err := edge.Validate(); err != nil {
			skipped = append(skipped, edge)
			continue
		}
		if !s.recordExists(edge.SubjectID) || !s.recordExists(edge.ObjectID) {
			skipped = append(skipped, edge)
			continue
		}
		stored := *edge
		if stored.ID == "" {
			stored.ID = uuid.NewString()
		}
		s.edges = append(s.edges, &stored)
		s.edgeByID[stored.ID] = &stored
	}
	return skipped, nil
}

// EdgesBySubject returns all edges whose subject is the given id.
func (s *MemoryStore) EdgesBySubject(ctx context.Context, subjectID string) ([]*types.GraphEdge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*types.GraphEdge
	for _, edge := range s.edges {
		if edge.SubjectID == subjectID {
			copied := *edge
			result = append(result, &copied)
		}
	}
	return result, nil
}

// GetEdge retrieves an edge by id.
func (s *MemoryStore) GetEdge(ctx context.Context, id string) (*types.GraphEdge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	edge, ok := s.edgeByID[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *edge
	return &copied, nil
}

// SaveArticle upserts an article record.
func (s *MemoryStore) SaveArticle(ctx context.Context, article *types.Article) error {
	if err := article.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *article
	copied.UpdatedAt = time.Now().UTC()
	if existing, ok := s.articles[article.ID]; ok {
		// raw_text is write-once: the stored original always wins.
		copied.RawText = existing.RawText
		copied.CreatedAt = existing.CreatedAt
	} else if copied.CreatedAt.IsZero() {
		copied.CreatedAt = copied.UpdatedAt
	}
	s.articles[article.ID] = &copied
	return nil
}

// GetArticle retrieves an article by id.
func (s *MemoryStore) GetArticle(ctx context.Context, id string) (*types.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	article, ok := s.articles[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *article
	return &copied, nil
}

// SaveCluster upserts a cluster record.
func (s *MemoryStore) SaveCluster(ctx context.Context, cluster *types.Cluster) error {
	if err := cluster.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *cluster
	copied.UpdatedAt = time.Now().UTC()
	if existing, ok := s.clusters[cluster.ID]; ok {
		copied.CreatedAt = existing.CreatedAt
	} else if copied.CreatedAt.IsZero() {
		copied.CreatedAt = copied.UpdatedAt
	}
	s.clusters[cluster.ID] = &copied
	return nil
}

// GetCluster retrieves a cluster by id.
func (s *MemoryStore) GetCluster(ctx context.Context, id string) (*types.Cluster, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cluster, ok := s.clusters[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyCluster(cluster), nil
}

// ActiveClusters returns active clusters updated at or after since.
func (s *MemoryStore) ActiveClusters(ctx context.Context, since time.Time) ([]*types.Cluster, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*types.Cluster
	for _, cluster := range s.clusters {
		if cluster.Status == types.ClusterActive && !cluster.UpdatedAt.Before(since) {
			result = append(result, copyCluster(cluster))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// ClusterEntityIDs returns the distinct entities mentioned by the cluster's
// member articles.
func (s *MemoryStore) ClusterEntityIDs(ctx context.Context, clusterID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cluster, ok := s.clusters[clusterID]
	if !ok {
		return nil, ErrNotFound
	}

	members := make(map[string]bool, len(cluster.MemberIDs))
	for _, id := range cluster.MemberIDs {
		members[id] = true
	}

	seen := make(map[string]bool)
	var ids []string
	for _, edge := range s.edges {
		if edge.Relation != types.RelationMentions || !members[edge.SubjectID] {
			continue
		}
		if !seen[edge.ObjectID] {
			seen[edge.ObjectID] = true
			ids = append(ids, edge.ObjectID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// ClustersMentioningSince returns active clusters whose members mention any
// of the given entities within the window, most recent first.
func (s *MemoryStore) ClustersMentioningSince(ctx context.Context, entityIDs []string, since time.Time, limit int) ([]types.ClusterRef, error) {
	if len(entityIDs) == 0 || limit <= 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := make(map[string]bool, len(entityIDs))
	for _, id := range entityIDs {
		wanted[id] = true
	}

	// article id -> cluster id for active clusters
	memberOf := make(map[string]string)
	for _, cluster := range s.clusters {
		if cluster.Status != types.ClusterActive {
			continue
		}
		for _, articleID := range cluster.MemberIDs {
			memberOf[articleID] = cluster.ID
		}
	}

	lastSeen := make(map[string]time.Time)
	for _, edge := range s.edges {
		if edge.Relation != types.RelationMentions || edge.ObservedAt.Before(since) || !wanted[edge.ObjectID] {
			continue
		}
		clusterID, ok := memberOf[edge.SubjectID]
		if !ok {
			continue
		}
		if edge.ObservedAt.After(lastSeen[clusterID]) {
			lastSeen[clusterID] = edge.ObservedAt
		}
	}

	refs := make([]types.ClusterRef, 0, len(lastSeen))
	for clusterID, observed := range lastSeen {
		cluster := s.clusters[clusterID]
		refs = append(refs, types.ClusterRef{
			ID:        cluster.ID,
			Title:     cluster.Title,
			Summary:   cluster.Summary,
			UpdatedAt: observed,
		})
	}
	sort.Slice(refs, func(i, j int) bool {
		if !refs[i].UpdatedAt.Equal(refs[j].UpdatedAt) {
			return refs[i].UpdatedAt.After(refs[j].UpdatedAt)
		}
		return refs[i].ID < refs[j].ID
	})

	if limit < len(refs) {
		refs = refs[:limit]
	}
	return refs, nil
}

// Close implements Store.
func (s *MemoryStore) Close(ctx context.Context) error { return nil }

func (s *MemoryStore) recordExists(id string) bool {
	if _, ok := s.entities[id]; ok {
		return true
	}
	if _, ok := s.articles[id]; ok {
		return true
	}
	_, ok := s.clusters[id]
	return ok
}

func copyEntity(e *types.GraphEntity) *types.GraphEntity {
	copied := *e
	copied.Aliases = append([]string(nil), e.Aliases...)
	return &copied
}

func copyCluster(c *types.Cluster) *types.Cluster {
	copied := *c
	copied.MemberIDs = append([]string(nil), c.MemberIDs...)
	copied.MeanEmbedding = append([]float32(nil), c.MeanEmbedding...)
	return &copied
}
