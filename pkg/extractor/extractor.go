// Package extractor proposes named-entity surface forms from article text.
// It never creates graph nodes; canonicalization belongs to the resolver.
package extractor

import (
	"context"
	"fmt"
	"strings"

	"github.com/sn3fru/silvanews-sub000/pkg/llm"
	"github.com/sn3fru/silvanews-sub000/pkg/prompts"
	"github.com/sn3fru/silvanews-sub000/pkg/types"
)

// Extractor pulls named entities out of article text.
type Extractor interface {
	// Extract returns the (surface_form, proposed_type) pairs found in text.
	Extract(ctx context.Context, text string) ([]types.ExtractedEntity, error)
}

// LLMExtractor implements Extractor by delegating to the reasoning service.
type LLMExtractor struct {
	client llm.Client
}

// NewLLMExtractor creates an extractor backed by the given reasoning client.
func NewLLMExtractor(client llm.Client) *LLMExtractor {
	return &LLMExtractor{client: client}
}

type extractionPayload struct {
	Entities []types.ExtractedEntity `json:"entities"`
}

// Extract asks the reasoning service for entities in text. A transport
// failure or an unparsable reply is returned as an error; the caller's
// degradation boundary turns it into an empty entity list.
func (e *LLMExtractor) Extract(ctx context.Context, text string) ([]types.ExtractedEntity, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	resp, err := e.client.Chat(ctx, prompts.ExtractEntities(text))
	if err != nil {
		return nil, types.NewEnrichmentError(types.ErrProviderUnavailable, "entity_extraction", "", err)
	}

	entities, err := parseEntities(resp.Content)
	if err != nil {
		return nil, types.NewEnrichmentError(types.ErrMalformedResponse, "entity_extraction", "", err)
	}
	return entities, nil
}

// parseEntities validates the reply shape, dropping entries without a name.
func parseEntities(raw string) ([]types.ExtractedEntity, error) {
	var payload extractionPayload
	if err := llm.RepairAndUnmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("unparsable entity list: %w", err)
	}

	entities := make([]types.ExtractedEntity, 0, len(payload.Entities))
	for _, ent := range payload.Entities {
		name := strings.TrimSpace(ent.Name)
		if name == "" {
			continue
		}
		entities = append(entities, types.ExtractedEntity{
			Name: name,
			Type: strings.ToLower(strings.TrimSpace(ent.Type)),
		})
	}
	return entities, nil
}
