package resolver

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sn3fru/silvanews-sub000/pkg/graph"
	"github.com/sn3fru/silvanews-sub000/pkg/types"
)

func newTestResolver(t *testing.T) (*Resolver, graph.Store) {
	t.Helper()
	store := graph.NewMemoryStore()
	r := New(store, NewTrigramMatcher(0.9), slog.Default())
	return r, store
}

func TestResolveCreatesThenReuses(t *testing.T) {
	r, _ := newTestResolver(t)
	ctx := context.Background()

	first, err := r.Resolve(ctx, "Cia Rio Preto", types.EntityTypeOrganization)
	require.NoError(t, err)
	assert.Equal(t, "Cia Rio Preto", first.CanonicalName)

	second, err := r.Resolve(ctx, "cia rio preto", types.EntityTypeOrganization)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestResolveAliasThenCanonicalShareEntity(t *testing.T) {
	r, store := newTestResolver(t)
	ctx := context.Background()

	seeded, err := store.UpsertEntity(ctx, "Cia Rio Preto", types.EntityTypeOrganization, "CRP")
	require.NoError(t, err)

	byAlias, err := r.Resolve(ctx, "CRP", types.EntityTypeOrganization)
	require.NoError(t, err)
	assert.Equal(t, seeded.ID, byAlias.ID)
	assert.Equal(t, "Cia Rio Preto", byAlias.CanonicalName)
}

func TestResolveAcronymNeverFuzzyMatches(t *testing.T) {
	r, _ := newTestResolver(t)
	ctx := context.Background()

	org, err := r.Resolve(ctx, "Cia Rio Preto", types.EntityTypeOrganization)
	require.NoError(t, err)

	// Short, low-entropy surfaces create a distinct entity instead of
	// fuzzy-matching an unrelated long name.
	acronym, err := r.Resolve(ctx, "CRP", types.EntityTypeOrganization)
	require.NoError(t, err)
	assert.NotEqual(t, org.ID, acronym.ID)
}

func TestResolveFuzzyMatchRecordsAlias(t *testing.T) {
	r, store := newTestResolver(t)
	ctx := context.Background()

	created, err := r.Resolve(ctx, "Companhia Rio Preto", types.EntityTypeOrganization)
	require.NoError(t, err)

	// Punctuation variant of the same long name clears the trigram
	// threshold and lands on the existing entity.
	matched, err := r.Resolve(ctx, "Companhia Rio-Preto", types.EntityTypeOrganization)
	require.NoError(t, err)
	assert.Equal(t, created.ID, matched.ID)

	stored, err := store.GetEntity(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, stored.HasAlias("Companhia Rio-Preto"))
}

func TestResolveAllDeduplicatesBatch(t *testing.T) {
	r, _ := newTestResolver(t)
	ctx := context.Background()

	entities, err := r.ResolveAll(ctx, []types.ExtractedEntity{
		{Name: "Petrobras", Type: types.EntityTypeOrganization},
		{Name: "petrobras", Type: types.EntityTypeOrganization},
		{Name: "Brasília", Type: types.EntityTypePlace},
		{Name: "", Type: types.EntityTypePlace},
	})
	require.NoError(t, err)
	require.Len(t, entities, 2)
	assert.Equal(t, "Petrobras", entities[0].CanonicalName)
	assert.Equal(t, "Brasília", entities[1].CanonicalName)
}

func TestLinkArticleAppendsMentionAndCoOccurrence(t *testing.T) {
	r, store := newTestResolver(t)
	ctx := context.Background()

	require.NoError(t, store.SaveArticle(ctx, &types.Article{ID: "a-1", RawText: "t", Status: types.StatusPending}))
	entities, err := r.ResolveAll(ctx, []types.ExtractedEntity{
		{Name: "Petrobras", Type: types.EntityTypeOrganization},
		{Name: "Brasília", Type: types.EntityTypePlace},
	})
	require.NoError(t, err)

	require.NoError(t, r.LinkArticle(ctx, "a-1", entities))

	mentions, err := store.EdgesBySubject(ctx, "a-1")
	require.NoError(t, err)
	assert.Len(t, mentions, 2)

	coOccurs, err := store.EdgesBySubject(ctx, entities[0].ID)
	require.NoError(t, err)
	require.Len(t, coOccurs, 1)
	assert.Equal(t, types.RelationCoOccurs, coOccurs[0].Relation)
}

func TestLinkArticleToleratesMissingEndpoints(t *testing.T) {
	r, store := newTestResolver(t)
	ctx := context.Background()

	entities, err := r.ResolveAll(ctx, []types.ExtractedEntity{
		{Name: "Petrobras", Type: types.EntityTypeOrganization},
	})
	require.NoError(t, err)

	// Article was never saved; the edge is skipped, not fatal.
	require.NoError(t, r.LinkArticle(ctx, "ghost", entities))

	edges, err := store.EdgesBySubject(ctx, "ghost")
	require.NoError(t, err)
	assert.Empty(t, edges)
}

func TestTrigramMatcherThreshold(t *testing.T) {
	m := NewTrigramMatcher(0.9)

	matched, ok := m.Match("Companhia Rio-Preto", []string{"companhia rio preto", "petrobras"})
	require.True(t, ok)
	assert.Equal(t, "companhia rio preto", matched)

	_, ok = m.Match("Companhia Vale", []string{"companhia rio preto"})
	assert.False(t, ok)

	_, ok = m.Match("CRP", []string{"companhia rio preto"})
	assert.False(t, ok)
}
