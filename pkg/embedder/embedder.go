// Package embedder provides the vector provider boundary: obtaining
// fixed-dimension embeddings for texts.
package embedder

import (
	"context"
	"errors"
)

// Errors returned by embedding clients.
var (
	ErrNoEmbeddings = errors.New("no embeddings returned")
	// ErrWrongDimensions marks an embedding whose length does not match the
	// provider's configured dimensionality. Callers treat such embeddings as
	// absent and never compare them.
	ErrWrongDimensions = errors.New("embedding has wrong dimensions")
)

// Client generates embeddings for texts.
type Client interface {
	// Embed generates embeddings for the given texts, in order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedSingle generates an embedding for a single text.
	EmbedSingle(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the fixed dimensionality of produced embeddings.
	Dimensions() int

	// Close releases client resources.
	Close() error
}

// Config holds embedding provider configuration.
type Config struct {
	Model      string
	APIKey     string
	BaseURL    string
	Dimensions int
}
