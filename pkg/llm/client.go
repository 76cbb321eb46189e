// Package llm provides the client boundary to the external reasoning service
// used for entity extraction and cluster grouping decisions.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// Errors returned by reasoning clients.
var (
	ErrEmptyResponse = errors.New("empty response from reasoning service")
	ErrRateLimited   = errors.New("reasoning service rate limited")
)

// Role identifies the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one chat message sent to the reasoning service.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Response is the raw completion returned by the reasoning service.
type Response struct {
	Content string `json:"content"`
}

// Client is the minimal surface this core needs from a reasoning service.
type Client interface {
	// Chat sends messages and returns the completion.
	Chat(ctx context.Context, messages []Message) (*Response, error)

	// Close releases client resources.
	Close() error
}

// Config holds reasoning client configuration.
type Config struct {
	Model       string
	APIKey      string
	BaseURL     string
	Temperature float32
	MaxTokens   int
}

// RepairAndUnmarshal repairs loosely-formed JSON emitted by the reasoning
// service and unmarshals it into v. Markdown code fences are stripped before
// repair. A parse failure after repair is returned to the caller, which
// treats the response as malformed rather than failing the batch.
func RepairAndUnmarshal(raw string, v any) error {
	cleaned := stripCodeFences(raw)
	if strings.TrimSpace(cleaned) == "" {
		return ErrEmptyResponse
	}

	repaired, err := jsonrepair.JSONRepair(cleaned)
	if err != nil {
		return fmt.Errorf("failed to repair response JSON: %w", err)
	}
	if err := json.Unmarshal([]byte(repaired), v); err != nil {
		return fmt.Errorf("failed to parse response JSON: %w", err)
	}
	return nil
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
