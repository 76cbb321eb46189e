package similarity

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const epsilon = 1e-9

func TestCosineSelfSimilarity(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	v := make([]float32, 768)
	for i := range v {
		v[i] = rng.Float32()*2 - 1
	}

	got, ok := Cosine(v, v)
	require.True(t, ok)
	assert.InDelta(t, 1.0, got, epsilon)
}

func TestCosineSymmetry(t *testing.T) {
	a := []float32{0.3, -0.7, 0.2, 0.9}
	b := []float32{-0.1, 0.5, 0.8, -0.4}

	ab, ok := Cosine(a, b)
	require.True(t, ok)
	ba, ok := Cosine(b, a)
	require.True(t, ok)
	assert.InDelta(t, ab, ba, epsilon)
}

func TestCosineKnownValues(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 0}, []float32{1, 0}, 1.0},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0.0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Cosine(tt.a, tt.b)
			require.True(t, ok)
			assert.InDelta(t, tt.want, got, epsilon)
		})
	}
}

func TestCosineUndefined(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
	}{
		{"mismatched dimensions", []float32{1, 2, 3}, []float32{1, 2}},
		{"both empty", nil, nil},
		{"one empty", []float32{1}, nil},
		{"zero magnitude left", []float32{0, 0}, []float32{1, 1}},
		{"zero magnitude right", []float32{1, 1}, []float32{0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := Cosine(tt.a, tt.b)
			assert.False(t, ok)
		})
	}
}

func TestNearestNeighbors(t *testing.T) {
	query := []float32{1, 0}
	candidates := []Candidate{
		{ID: "far", Embedding: []float32{-1, 0}},
		{ID: "near", Embedding: []float32{1, 0.01}},
		{ID: "mid", Embedding: []float32{1, 1}},
		{ID: "bad-dim", Embedding: []float32{1, 0, 0}},
	}

	got := NearestNeighbors(query, candidates, 2)
	require.Len(t, got, 2)
	assert.Equal(t, "near", got[0].ID)
	assert.Equal(t, "mid", got[1].ID)
}

func TestNearestNeighborsTieOrder(t *testing.T) {
	query := []float32{1, 0}
	// Both candidates are identical to the query; order must fall back to ID.
	candidates := []Candidate{
		{ID: "b", Embedding: []float32{2, 0}},
		{ID: "a", Embedding: []float32{3, 0}},
	}

	got := NearestNeighbors(query, candidates, 2)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "b", got[1].ID)
}

func TestNearestNeighborsEdgeCases(t *testing.T) {
	assert.Nil(t, NearestNeighbors([]float32{1}, nil, 3))
	assert.Nil(t, NearestNeighbors([]float32{1}, []Candidate{{ID: "x", Embedding: []float32{1}}}, 0))

	// All candidates undefined against the query.
	got := NearestNeighbors([]float32{1, 2}, []Candidate{{ID: "x", Embedding: []float32{1}}}, 3)
	assert.Empty(t, got)
}

func TestMean(t *testing.T) {
	vectors := [][]float32{
		{1, 2},
		{3, 4},
		{1, 2, 3}, // wrong dimension, ignored
	}

	got := Mean(vectors, 2)
	require.NotNil(t, got)
	assert.InDelta(t, 2.0, float64(got[0]), epsilon)
	assert.InDelta(t, 3.0, float64(got[1]), epsilon)
}

func TestMeanNoQualifyingVectors(t *testing.T) {
	assert.Nil(t, Mean(nil, 4))
	assert.Nil(t, Mean([][]float32{{1, 2}}, 4))
	assert.Nil(t, Mean([][]float32{{1, 2}}, 0))
}

func TestMeanSingleMemberIsIdentity(t *testing.T) {
	v := []float32{0.5, -0.5, 1}
	got := Mean([][]float32{v}, 3)
	require.NotNil(t, got)
	for i := range v {
		assert.InDelta(t, float64(v[i]), float64(got[i]), epsilon)
	}
}

func TestCosineDoesNotMutateInputs(t *testing.T) {
	a := []float32{1, 2, 3}
	b := []float32{4, 5, 6}
	Cosine(a, b)
	assert.Equal(t, []float32{1, 2, 3}, a)
	assert.Equal(t, []float32{4, 5, 6}, b)
}

func BenchmarkCosine768(b *testing.B) {
	rng := rand.New(rand.NewSource(1))
	x := make([]float32, 768)
	y := make([]float32, 768)
	for i := range x {
		x[i] = rng.Float32()
		y[i] = rng.Float32()
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, ok := Cosine(x, y); !ok {
			b.Fatal("unexpected undefined similarity")
		}
	}
}
