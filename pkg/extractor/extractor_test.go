package extractor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sn3fru/silvanews-sub000/pkg/llm"
	"github.com/sn3fru/silvanews-sub000/pkg/types"
)

type fakeLLM struct {
	ChatFunc func(ctx context.Context, messages []llm.Message) (*llm.Response, error)
}

func (f *fakeLLM) Chat(ctx context.Context, messages []llm.Message) (*llm.Response, error) {
	return f.ChatFunc(ctx, messages)
}

func (f *fakeLLM) Close() error { return nil }

func TestExtractParsesEntities(t *testing.T) {
	client := &fakeLLM{ChatFunc: func(ctx context.Context, messages []llm.Message) (*llm.Response, error) {
		return &llm.Response{Content: `{"entities": [
			{"name": "Cia Rio Preto", "type": "Organization"},
			{"name": "  ", "type": "person"},
			{"name": "Brasília", "type": "place"}
		]}`}, nil
	}}

	got, err := NewLLMExtractor(client).Extract(context.Background(), "some article text")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, types.ExtractedEntity{Name: "Cia Rio Preto", Type: "organization"}, got[0])
	assert.Equal(t, types.ExtractedEntity{Name: "Brasília", Type: "place"}, got[1])
}

func TestExtractEmptyText(t *testing.T) {
	client := &fakeLLM{ChatFunc: func(ctx context.Context, messages []llm.Message) (*llm.Response, error) {
		t.Fatal("should not call the reasoning service for empty text")
		return nil, nil
	}}

	got, err := NewLLMExtractor(client).Extract(context.Background(), "   ")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestExtractProviderFailure(t *testing.T) {
	client := &fakeLLM{ChatFunc: func(ctx context.Context, messages []llm.Message) (*llm.Response, error) {
		return nil, errors.New("timeout")
	}}

	_, err := NewLLMExtractor(client).Extract(context.Background(), "text")
	require.Error(t, err)
	assert.Equal(t, types.ErrProviderUnavailable, types.ClassOf(err))
}

func TestExtractMalformedResponse(t *testing.T) {
	client := &fakeLLM{ChatFunc: func(ctx context.Context, messages []llm.Message) (*llm.Response, error) {
		return &llm.Response{Content: "the entities are Cia Rio Preto and CRP"}, nil
	}}

	_, err := NewLLMExtractor(client).Extract(context.Background(), "text")
	require.Error(t, err)
	assert.Equal(t, types.ErrMalformedResponse, types.ClassOf(err))
}

func TestExtractEmptyListIsNotAnError(t *testing.T) {
	client := &fakeLLM{ChatFunc: func(ctx context.Context, messages []llm.Message) (*llm.Response, error) {
		return &llm.Response{Content: `{"entities": []}`}, nil
	}}

	got, err := NewLLMExtractor(client).Extract(context.Background(), "text")
	require.NoError(t, err)
	assert.Empty(t, got)
}
