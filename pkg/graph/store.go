// Package graph persists the knowledge graph: canonical entities, append-only
// typed edges, and the article/cluster records they connect.
package graph

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/sn3fru/silvanews-sub000/pkg/types"
)

// Store errors
var (
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateCanonicalName signals a canonical-name uniqueness conflict
	// during a create race. Callers resolve it by retrying as a read.
	ErrDuplicateCanonicalName = errors.New("duplicate canonical name")
)

// Store is the persistence contract for the knowledge graph. Entity creation
// is an upsert keyed by normalized canonical name, so concurrent creates for
// the same name converge to one stable entity id. Edges are append-only.
type Store interface {
	// UpsertEntity returns the entity with the given normalized canonical
	// name, creating it if absent, and records alias as a surface variant.
	UpsertEntity(ctx context.Context, canonicalName, entityType, alias string) (*types.GraphEntity, error)

	// FindEntityByName finds an entity whose canonical name or any alias
	// normalizes to name. Returns ErrNotFound when there is no match.
	FindEntityByName(ctx context.Context, name string) (*types.GraphEntity, error)

	// EntityNames returns every normalized name variant (canonical names and
	// aliases) mapped to its entity id, for fuzzy matching.
	EntityNames(ctx context.Context) (map[string]string, error)

	// GetEntity retrieves an entity by id.
	GetEntity(ctx context.Context, id string) (*types.GraphEntity, error)

	// AppendEdges appends edges to the graph. Edges referencing a nonexistent
	// endpoint are skipped and returned so the caller can log them; they
	// never fail the call.
	AppendEdges(ctx context.Context, edges []*types.GraphEdge) (skipped []*types.GraphEdge, err error)

	// EdgesBySubject returns all edges whose subject is the given id.
	EdgesBySubject(ctx context.Context, subjectID string) ([]*types.GraphEdge, error)

	// GetEdge retrieves an edge by id.
	GetEdge(ctx context.Context, id string) (*types.GraphEdge, error)

	// SaveArticle upserts an article record keyed by id.
	SaveArticle(ctx context.Context, article *types.Article) error

	// GetArticle retrieves an article by id.
	GetArticle(ctx context.Context, id string) (*types.Article, error)

	// SaveCluster upserts a cluster record keyed by id.
	SaveCluster(ctx context.Context, cluster *types.Cluster) error

	// GetCluster retrieves a cluster by id.
	GetCluster(ctx context.Context, id string) (*types.Cluster, error)

	// ActiveClusters returns active clusters updated at or after since.
	ActiveClusters(ctx context.Context, since time.Time) ([]*types.Cluster, error)

	// ClusterEntityIDs returns the distinct entities mentioned by the
	// cluster's member articles.
	ClusterEntityIDs(ctx context.Context, clusterID string) ([]string, error)

	// ClustersMentioningSince returns active clusters whose member articles
	// mention any of the given entities through edges observed at or after
	// since, ordered by most recent observation, capped at limit.
	ClustersMentioningSince(ctx context.Context, entityIDs []string, since time.Time, limit int) ([]types.ClusterRef, error)

	// Close releases store resources.
	Close(ctx context.Context) error
}

var whitespaceRe = regexp.MustCompile(`\s+`)

// NormalizeName lowercases a name and collapses whitespace so equal surface
// forms map to the same uniqueness key.
func NormalizeName(name string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(strings.ToLower(name), " "))
}

// DisplayName collapses whitespace while preserving case. Canonical names are
// stored in display form; uniqueness is keyed on NormalizeName.
func DisplayName(name string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(name, " "))
}
