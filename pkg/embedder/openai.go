package embedder

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

// OpenAIClient implements Client against an OpenAI-compatible embedding API.
type OpenAIClient struct {
	client *openai.Client
	config *Config
}

// NewOpenAIClient creates an embedding client for the configured model.
func NewOpenAIClient(config *Config) (*OpenAIClient, error) {
	if config == nil || config.APIKey == "" {
		return nil, fmt.Errorf("embedding api key is required")
	}
	if config.Dimensions <= 0 {
		return nil, fmt.Errorf("embedding dimensions must be positive")
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	return &OpenAIClient{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
	}, nil
}

// Embed generates embeddings for the given texts. Every returned vector is
// validated against the configured dimensionality; a mismatch is a malformed
// provider response, not a usable embedding.
func (c *OpenAIClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model:      openai.EmbeddingModel(c.config.Model),
		Input:      texts,
		Dimensions: c.config.Dimensions,
	})
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d texts", ErrNoEmbeddings, len(resp.Data), len(texts))
	}

	embeddings := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		if len(d.Embedding) != c.config.Dimensions {
			return nil, fmt.Errorf("%w: got %d, want %d", ErrWrongDimensions, len(d.Embedding), c.config.Dimensions)
		}
		embeddings[i] = d.Embedding
	}
	return embeddings, nil
}

// EmbedSingle generates an embedding for a single text.
func (c *OpenAIClient) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := c.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 {
		return nil, ErrNoEmbeddings
	}
	return embeddings[0], nil
}

// Dimensions returns the configured embedding dimensionality.
func (c *OpenAIClient) Dimensions() int { return c.config.Dimensions }

// Close releases client resources.
func (c *OpenAIClient) Close() error { return nil }
