package graph

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sn3fru/silvanews-sub000/pkg/types"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Cia Rio Preto", "cia rio preto"},
		{"  Cia   Rio\tPreto ", "cia rio preto"},
		{"CRP", "crp"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeName(tt.in))
	}
}

func TestUpsertEntityIdempotent(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	first, err := store.UpsertEntity(ctx, "Cia Rio Preto", types.EntityTypeOrganization, "Cia Rio Preto")
	require.NoError(t, err)
	assert.Equal(t, "Cia Rio Preto", first.CanonicalName)

	second, err := store.UpsertEntity(ctx, "cia  rio preto", types.EntityTypeOrganization, "CRP")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.True(t, second.HasAlias("Cia Rio Preto"))
	assert.True(t, second.HasAlias("CRP"))
}

func TestUpsertEntityAliasNeverStealsName(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	crp, err := store.UpsertEntity(ctx, "CRP", types.EntityTypeOrganization, "")
	require.NoError(t, err)

	// A second entity claiming "CRP" as an alias must not take over the
	// name: the first owner keeps exact lookups.
	other, err := store.UpsertEntity(ctx, "Companhia Rio Preto", types.EntityTypeOrganization, "CRP")
	require.NoError(t, err)
	require.NotEqual(t, crp.ID, other.ID)
	assert.False(t, other.HasAlias("CRP"))

	found, err := store.FindEntityByName(ctx, "crp")
	require.NoError(t, err)
	assert.Equal(t, crp.ID, found.ID)

	// The same alias re-registered on its owner is still fine.
	again, err := store.UpsertEntity(ctx, "CRP", types.EntityTypeOrganization, "crp ")
	require.NoError(t, err)
	assert.Equal(t, crp.ID, again.ID)
}

func TestUpsertEntityConcurrent(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	const goroutines = 16
	ids := make([]string, goroutines)
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			entity, err := store.UpsertEntity(ctx, "Petrobras", types.EntityTypeOrganization, "PETR")
			require.NoError(t, err)
			ids[i] = entity.ID
		}(i)
	}
	wg.Wait()

	for _, id := range ids[1:] {
		assert.Equal(t, ids[0], id)
	}
}

func TestFindEntityByNameAndAlias(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	created, err := store.UpsertEntity(ctx, "Cia Rio Preto", types.EntityTypeOrganization, "CRP")
	require.NoError(t, err)

	byCanonical, err := store.FindEntityByName(ctx, "CIA RIO PRETO")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byCanonical.ID)

	byAlias, err := store.FindEntityByName(ctx, "crp")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byAlias.ID)

	_, err = store.FindEntityByName(ctx, "unknown")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAppendEdgesSkipsUnknownEndpoints(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	entity, err := store.UpsertEntity(ctx, "Petrobras", types.EntityTypeOrganization, "")
	require.NoError(t, err)
	require.NoError(t, store.SaveArticle(ctx, &types.Article{ID: "a-1", RawText: "t", Status: types.StatusPending}))

	now := time.Now().UTC()
	skipped, err := store.AppendEdges(ctx, []*types.GraphEdge{
		{SubjectID: "a-1", ObjectID: entity.ID, Relation: types.RelationMentions, Weight: 1, ObservedAt: now},
		{SubjectID: "ghost", ObjectID: entity.ID, Relation: types.RelationMentions, Weight: 1, ObservedAt: now},
	})
	require.NoError(t, err)
	require.Len(t, skipped, 1)
	assert.Equal(t, "ghost", skipped[0].SubjectID)

	edges, err := store.EdgesBySubject(ctx, "a-1")
	require.NoError(t, err)
	assert.Len(t, edges, 1)
}

func TestEdgesAreAppendOnly(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	entity, err := store.UpsertEntity(ctx, "Petrobras", types.EntityTypeOrganization, "")
	require.NoError(t, err)
	require.NoError(t, store.SaveArticle(ctx, &types.Article{ID: "a-1", RawText: "t", Status: types.StatusPending}))

	first := time.Now().UTC().Add(-time.Hour)
	second := time.Now().UTC()
	for _, observed := range []time.Time{first, second} {
		_, err := store.AppendEdges(ctx, []*types.GraphEdge{{
			SubjectID: "a-1", ObjectID: entity.ID, Relation: types.RelationMentions, Weight: 1, ObservedAt: observed,
		}})
		require.NoError(t, err)
	}

	edges, err := store.EdgesBySubject(ctx, "a-1")
	require.NoError(t, err)
	// Both observations survive; the newer one supersedes without mutation.
	require.Len(t, edges, 2)
	assert.NotEqual(t, edges[0].ID, edges[1].ID)
}

func TestSaveArticleRawTextWriteOnce(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	article := &types.Article{ID: "a-1", RawText: "original", Status: types.StatusPending}
	require.NoError(t, store.SaveArticle(ctx, article))

	article.RawText = "tampered"
	article.Status = types.StatusEnriched
	require.NoError(t, store.SaveArticle(ctx, article))

	got, err := store.GetArticle(ctx, "a-1")
	require.NoError(t, err)
	assert.Equal(t, "original", got.RawText)
	assert.Equal(t, types.StatusEnriched, got.Status)
}

func TestClustersMentioningSince(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Now().UTC()

	entity, err := store.UpsertEntity(ctx, "Petrobras", types.EntityTypeOrganization, "")
	require.NoError(t, err)

	// Three clusters: recent, old, and merged.
	setup := []struct {
		clusterID string
		articleID string
		status    types.ClusterStatus
		observed  time.Time
	}{
		{"c-recent", "a-1", types.ClusterActive, now.Add(-time.Hour)},
		{"c-older", "a-2", types.ClusterActive, now.Add(-48 * time.Hour)},
		{"c-stale", "a-3", types.ClusterActive, now.Add(-30 * 24 * time.Hour)},
		{"c-merged", "a-4", types.ClusterMerged, now.Add(-time.Hour)},
	}
	for _, s := range setup {
		require.NoError(t, store.SaveArticle(ctx, &types.Article{ID: s.articleID, RawText: "t", ClusterID: s.clusterID, Status: types.StatusGrouped}))
		require.NoError(t, store.SaveCluster(ctx, &types.Cluster{ID: s.clusterID, MemberIDs: []string{s.articleID}, Status: s.status}))
		_, err := store.AppendEdges(ctx, []*types.GraphEdge{{
			SubjectID: s.articleID, ObjectID: entity.ID, Relation: types.RelationMentions, Weight: 1, ObservedAt: s.observed,
		}})
		require.NoError(t, err)
	}

	refs, err := store.ClustersMentioningSince(ctx, []string{entity.ID}, now.Add(-7*24*time.Hour), 5)
	require.NoError(t, err)
	require.Len(t, refs, 2)
	assert.Equal(t, "c-recent", refs[0].ID)
	assert.Equal(t, "c-older", refs[1].ID)

	// Cap applies after recency ordering.
	capped, err := store.ClustersMentioningSince(ctx, []string{entity.ID}, now.Add(-7*24*time.Hour), 1)
	require.NoError(t, err)
	require.Len(t, capped, 1)
	assert.Equal(t, "c-recent", capped[0].ID)
}

func TestClusterEntityIDs(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Now().UTC()

	e1, err := store.UpsertEntity(ctx, "Petrobras", types.EntityTypeOrganization, "")
	require.NoError(t, err)
	e2, err := store.UpsertEntity(ctx, "Brasília", types.EntityTypePlace, "")
	require.NoError(t, err)

	require.NoError(t, store.SaveArticle(ctx, &types.Article{ID: "a-1", RawText: "t", Status: types.StatusGrouped}))
	require.NoError(t, store.SaveArticle(ctx, &types.Article{ID: "a-2", RawText: "t", Status: types.StatusGrouped}))
	require.NoError(t, store.SaveCluster(ctx, &types.Cluster{ID: "c-1", MemberIDs: []string{"a-1", "a-2"}, Status: types.ClusterActive}))

	_, err = store.AppendEdges(ctx, []*types.GraphEdge{
		{SubjectID: "a-1", ObjectID: e1.ID, Relation: types.RelationMentions, Weight: 1, ObservedAt: now},
		{SubjectID: "a-2", ObjectID: e1.ID, Relation: types.RelationMentions, Weight: 1, ObservedAt: now},
		{SubjectID: "a-2", ObjectID: e2.ID, Relation: types.RelationMentions, Weight: 1, ObservedAt: now},
	})
	require.NoError(t, err)

	ids, err := store.ClusterEntityIDs(ctx, "c-1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{e1.ID, e2.ID}, ids)
}

func TestEntityNames(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	entity, err := store.UpsertEntity(ctx, "Cia Rio Preto", types.EntityTypeOrganization, "CRP")
	require.NoError(t, err)

	names, err := store.EntityNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, entity.ID, names["cia rio preto"])
	assert.Equal(t, entity.ID, names["crp"])
}
