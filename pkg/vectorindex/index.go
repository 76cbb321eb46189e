// Package vectorindex stores article embeddings keyed by article id and
// answers time-windowed nearest-neighbor queries over them.
package vectorindex

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sn3fru/silvanews-sub000/pkg/similarity"
)

var ErrClosed = errors.New("vector index is closed")

// Index holds article embeddings for recency-bounded similarity search.
type Index interface {
	// Add registers or replaces the embedding for an article.
	Add(ctx context.Context, id string, embedding []float32, publishedAt time.Time) error

	// Search returns up to k neighbors of query among entries published
	// at or after since, excluding the listed ids. Entries whose
	// similarity to the query is undefined are skipped.
	Search(ctx context.Context, query []float32, since time.Time, k int, exclude []string) ([]similarity.Neighbor, error)

	Close() error
}

type memoryEntry struct {
	embedding   []float32
	publishedAt time.Time
}

// MemoryIndex is an in-process Index backed by a map and a linear scan.
type MemoryIndex struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{entries: make(map[string]memoryEntry)}
}

func (m *MemoryIndex) Add(ctx context.Context, id string, embedding []float32, publishedAt time.Time) error {
	if id == "" || len(embedding) == 0 {
		return nil
	}
	stored := make([]float32, len(embedding))
	copy(stored, embedding)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[id] = memoryEntry{embedding: stored, publishedAt: publishedAt.UTC()}
	return nil
}

func (m *MemoryIndex) Search(ctx context.Context, query []float32, since time.Time, k int, exclude []string) ([]similarity.Neighbor, error) {
	if k <= 0 || len(query) == 0 {
		return nil, nil
	}
	excluded := make(map[string]bool, len(exclude))
	for _, id := range exclude {
		excluded[id] = true
	}

	m.mu.RLock()
	candidates := make([]similarity.Candidate, 0, len(m.entries))
	for id, entry := range m.entries {
		if excluded[id] || entry.publishedAt.Before(since) {
			continue
		}
		candidates = append(candidates, similarity.Candidate{ID: id, Embedding: entry.embedding})
	}
	m.mu.RUnlock()

	return similarity.NearestNeighbors(query, candidates, k), nil
}

func (m *MemoryIndex) Close() error { return nil }
