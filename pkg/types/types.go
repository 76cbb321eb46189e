package types

import (
	"errors"
	"time"
)

// Validation errors
var (
	ErrEmptyID            = errors.New("id cannot be empty")
	ErrEmptyRawText       = errors.New("raw_text cannot be empty")
	ErrEmptyCanonicalName = errors.New("canonical_name cannot be empty")
	ErrEmptySubject       = errors.New("subject_id cannot be empty")
	ErrEmptyObject        = errors.New("object_id cannot be empty")
	ErrEmptyRelation      = errors.New("relation cannot be empty")
	ErrInvalidLimit       = errors.New("limit must be positive")
)

// ArticleStatus tracks where an article is in the enrichment lifecycle.
type ArticleStatus string

const (
	// StatusPending marks an article delivered by ingestion, not yet enriched.
	StatusPending ArticleStatus = "pending"
	// StatusEnriched marks an article whose embedding and entity attempts
	// finished, successfully or degraded.
	StatusEnriched ArticleStatus = "enriched"
	// StatusGrouped marks an article assigned to a cluster.
	StatusGrouped ArticleStatus = "grouped"
	// StatusClassified is set downstream by the classification step.
	StatusClassified ArticleStatus = "classified"
)

// ClusterStatus tracks the lifecycle of a cluster (event).
type ClusterStatus string

const (
	ClusterActive   ClusterStatus = "active"
	ClusterMerged   ClusterStatus = "merged"
	ClusterArchived ClusterStatus = "archived"
)

// Article is one news document flowing through the pipeline. RawText is
// write-once and owned by ingestion; this core only reads RawText and
// ProcessedText, and writes Embedding, EntityIDs, ClusterID and Status.
type Article struct {
	ID            string    `json:"id" mapstructure:"id"`
	RawText       string    `json:"raw_text" mapstructure:"raw_text"`
	ProcessedText string    `json:"processed_text,omitempty" mapstructure:"processed_text"`
	PublishedAt   time.Time `json:"published_at" mapstructure:"published_at"`

	Embedding []float32     `json:"embedding,omitempty" mapstructure:"embedding"`
	EntityIDs []string      `json:"entity_ids,omitempty" mapstructure:"entity_ids"`
	ClusterID string        `json:"cluster_id,omitempty" mapstructure:"cluster_id"`
	Status    ArticleStatus `json:"status" mapstructure:"status"`

	// DegradedStages records which enrichment stages fell back to a neutral
	// value. Degradation is an attribute of the article, not a status.
	DegradedStages []string `json:"degraded_stages,omitempty" mapstructure:"degraded_stages"`

	CreatedAt time.Time `json:"created_at" mapstructure:"created_at"`
	UpdatedAt time.Time `json:"updated_at" mapstructure:"updated_at"`
}

// Validate checks if the Article has all required fields set.
func (a *Article) Validate() error {
	if a.ID == "" {
		return ErrEmptyID
	}
	if a.RawText == "" {
		return ErrEmptyRawText
	}
	return nil
}

// Text returns the processed text when available, falling back to raw text.
func (a *Article) Text() string {
	if a.ProcessedText != "" {
		return a.ProcessedText
	}
	return a.RawText
}

// Degraded reports whether any enrichment stage fell back for this article.
func (a *Article) Degraded() bool {
	return len(a.DegradedStages) > 0
}

// Cluster aggregates the articles belonging to one real-world event.
// MeanEmbedding is derived: the arithmetic mean of the members' present
// embeddings, recomputed on every membership change.
type Cluster struct {
	ID            string        `json:"id" mapstructure:"id"`
	Title         string        `json:"title,omitempty" mapstructure:"title"`
	Summary       string        `json:"summary,omitempty" mapstructure:"summary"`
	MemberIDs     []string      `json:"member_article_ids,omitempty" mapstructure:"member_article_ids"`
	MeanEmbedding []float32     `json:"mean_embedding,omitempty" mapstructure:"mean_embedding"`
	Tag           string        `json:"tag,omitempty" mapstructure:"tag"`
	Priority      string        `json:"priority,omitempty" mapstructure:"priority"`
	Status        ClusterStatus `json:"status" mapstructure:"status"`
	CreatedAt     time.Time     `json:"created_at" mapstructure:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at" mapstructure:"updated_at"`
}

// Validate checks if the Cluster has all required fields set.
func (c *Cluster) Validate() error {
	if c.ID == "" {
		return ErrEmptyID
	}
	return nil
}

// HasMember reports whether the article is currently a member of the cluster.
func (c *Cluster) HasMember(articleID string) bool {
	for _, id := range c.MemberIDs {
		if id == articleID {
			return true
		}
	}
	return false
}

// GraphEntity is a canonicalized named entity in the knowledge graph.
// CanonicalName is unique across entities; Aliases map surface variants
// back to this entity.
type GraphEntity struct {
	ID            string    `json:"id" mapstructure:"id"`
	CanonicalName string    `json:"canonical_name" mapstructure:"canonical_name"`
	Type          string    `json:"type,omitempty" mapstructure:"type"`
	Aliases       []string  `json:"aliases,omitempty" mapstructure:"aliases"`
	CreatedAt     time.Time `json:"created_at" mapstructure:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" mapstructure:"updated_at"`
}

// Validate checks if the GraphEntity has all required fields set.
func (e *GraphEntity) Validate() error {
	if e.ID == "" {
		return ErrEmptyID
	}
	if e.CanonicalName == "" {
		return ErrEmptyCanonicalName
	}
	return nil
}

// HasAlias reports whether the entity already carries the given alias.
func (e *GraphEntity) HasAlias(alias string) bool {
	for _, a := range e.Aliases {
		if a == alias {
			return true
		}
	}
	return false
}

// Well-known entity types proposed by the extractor.
const (
	EntityTypeOrganization = "organization"
	EntityTypePerson       = "person"
	EntityTypePlace        = "place"
)

// Graph edge relations.
const (
	// RelationMentions links an article to an entity it mentions.
	RelationMentions = "mentions"
	// RelationCoOccurs links two entities mentioned by the same article.
	RelationCoOccurs = "co_occurs_with"
)

// GraphEdge is an append-only typed edge between graph records. Edges are
// never mutated; newer observations supersede older ones by ObservedAt.
type GraphEdge struct {
	ID         string    `json:"id" mapstructure:"id"`
	SubjectID  string    `json:"subject_id" mapstructure:"subject_id"`
	ObjectID   string    `json:"object_id" mapstructure:"object_id"`
	Relation   string    `json:"relation" mapstructure:"relation"`
	Weight     float64   `json:"weight" mapstructure:"weight"`
	ObservedAt time.Time `json:"observed_at" mapstructure:"observed_at"`
}

// Validate checks if the GraphEdge references both endpoints and a relation.
func (e *GraphEdge) Validate() error {
	if e.SubjectID == "" {
		return ErrEmptySubject
	}
	if e.ObjectID == "" {
		return ErrEmptyObject
	}
	if e.Relation == "" {
		return ErrEmptyRelation
	}
	return nil
}

// ExtractedEntity is a surface form proposed by the entity extractor.
// Extraction never creates graph nodes; resolution is a separate step.
type ExtractedEntity struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// ClusterRef is a compact reference to a historically related cluster,
// carried inside a ContextBundle.
type ClusterRef struct {
	ID        string    `json:"id"`
	Title     string    `json:"title,omitempty"`
	Summary   string    `json:"summary,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ArticleRef is a compact reference to a semantically similar article,
// carried inside a ContextBundle.
type ArticleRef struct {
	ID          string    `json:"id"`
	Excerpt     string    `json:"excerpt,omitempty"`
	PublishedAt time.Time `json:"published_at"`
	Score       float64   `json:"score"`
}

// ContextBundle is the ephemeral historical context assembled for a cluster
// before classification. It is never persisted, and building it never fails:
// a path that errors contributes an empty list.
type ContextBundle struct {
	TemporalClusters []ClusterRef `json:"temporal_clusters"`
	SimilarArticles  []ArticleRef `json:"similar_articles"`
}
