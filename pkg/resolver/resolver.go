// Package resolver maps surface forms extracted from article text onto
// canonical graph entities, creating new ones only when no existing
// entity matches exactly, by alias, or by fuzzy name similarity.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sn3fru/silvanews-sub000/pkg/graph"
	"github.com/sn3fru/silvanews-sub000/pkg/types"
)

// Resolver resolves extracted entity mentions against the knowledge
// graph store. Safe for concurrent use when the underlying store is.
type Resolver struct {
	store   graph.Store
	matcher NameMatcher
	logger  *slog.Logger
}

func New(store graph.Store, matcher NameMatcher, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		store:   store,
		matcher: matcher,
		logger:  logger,
	}
}

// Resolve returns the graph entity a surface form refers to, creating
// it when nothing matches. The first writer of a name wins; concurrent
// creators of the same normalized name converge on one entity because a
// uniqueness violation is retried as a read.
func (r *Resolver) Resolve(ctx context.Context, surface, entityType string) (*types.GraphEntity, error) {
	if surface == "" {
		return nil, types.ErrEmptyCanonicalName
	}

	entity, err := r.store.FindEntityByName(ctx, surface)
	if err == nil {
		return entity, nil
	}
	if !errors.Is(err, graph.ErrNotFound) {
		return nil, fmt.Errorf("resolving %q: %w", surface, err)
	}

	if r.matcher != nil {
		if matched, ok := r.fuzzyResolve(ctx, surface); ok {
			// Record the surface form so later lookups hit exactly.
			updated, err := r.store.UpsertEntity(ctx, matched.CanonicalName, matched.Type, surface)
			if err != nil {
				return nil, fmt.Errorf("recording alias %q: %w", surface, err)
			}
			r.logger.Debug("fuzzy-matched entity mention",
				"surface", surface,
				"canonical_name", matched.CanonicalName)
			return updated, nil
		}
	}

	created, err := r.store.UpsertEntity(ctx, surface, entityType, surface)
	if err == nil {
		return created, nil
	}
	if errors.Is(err, graph.ErrDuplicateCanonicalName) {
		// Another writer created the entity between our lookup and the
		// upsert. Retry as a read.
		return r.store.FindEntityByName(ctx, surface)
	}
	return nil, fmt.Errorf("creating entity %q: %w", surface, err)
}

// ResolveAll resolves a batch of extracted mentions, deduplicating
// repeats within the batch. Order of the returned entities follows the
// first occurrence of each distinct mention.
func (r *Resolver) ResolveAll(ctx context.Context, mentions []types.ExtractedEntity) ([]*types.GraphEntity, error) {
	seen := make(map[string]bool, len(mentions))
	entities := make([]*types.GraphEntity, 0, len(mentions))
	for _, mention := range mentions {
		key := graph.NormalizeName(mention.Name)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		entity, err := r.Resolve(ctx, mention.Name, mention.Type)
		if err != nil {
			return nil, err
		}
		entities = append(entities, entity)
	}
	return entities, nil
}

// LinkArticle appends mention edges from an article to each resolved
// entity, plus co-occurrence edges between entity pairs seen together.
// Edges the store skips over a missing endpoint are logged and dropped,
// never failing the batch.
func (r *Resolver) LinkArticle(ctx context.Context, articleID string, entities []*types.GraphEntity) error {
	if len(entities) == 0 {
		return nil
	}
	now := time.Now().UTC()
	edges := make([]*types.GraphEdge, 0, len(entities)*2)
	for _, entity := range entities {
		edges = append(edges, &types.GraphEdge{
			ID:         uuid.New().String(),
			SubjectID:  articleID,
			ObjectID:   entity.ID,
			Relation:   types.RelationMentions,
			Weight:     1,
			ObservedAt: now,
		})
	}
	for i := 0; i < len(entities); i++ {
		for j := i + 1; j < len(entities); j++ {
			edges = append(edges, &types.GraphEdge{
				ID:         uuid.New().String(),
				SubjectID:  entities[i].ID,
				ObjectID:   entities[j].ID,
				Relation:   types.RelationCoOccurs,
				Weight:     1,
				ObservedAt: now,
			})
		}
	}

	skipped, err := r.store.AppendEdges(ctx, edges)
	if err != nil {
		return fmt.Errorf("linking article %s: %w", articleID, err)
	}
	for _, edge := range skipped {
		r.logger.Warn("skipped edge with missing endpoint",
			"article_id", articleID,
			"subject_id", edge.SubjectID,
			"object_id", edge.ObjectID,
			"relation", edge.Relation)
	}
	return nil
}

func (r *Resolver) fuzzyResolve(ctx context.Context, surface string) (*types.GraphEntity, bool) {
	names, err := r.store.EntityNames(ctx)
	if err != nil {
		r.logger.Warn("listing entity names for fuzzy match", "error", err)
		return nil, false
	}
	known := make([]string, 0, len(names))
	for name := range names {
		known = append(known, name)
	}
	matched, ok := r.matcher.Match(surface, known)
	if !ok {
		return nil, false
	}
	entity, err := r.store.GetEntity(ctx, names[matched])
	if err != nil {
		return nil, false
	}
	return entity, true
}
