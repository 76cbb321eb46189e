package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDecisionOk(t *testing.T) {
	raw := `{"groups": [
		{"cluster_id": "c-1", "article_ids": ["a-1", "a-2"]},
		{"cluster_id": "", "article_ids": ["a-3"]}
	]}`

	result := ParseDecision(raw)
	require.Equal(t, DecisionOk, result.Status)
	require.NotNil(t, result.Decision)
	require.Len(t, result.Decision.Groups, 2)
	assert.Equal(t, "c-1", result.Decision.Groups[0].ClusterID)
	assert.Equal(t, []string{"a-3"}, result.Decision.Groups[1].ArticleIDs)
}

func TestParseDecisionRepairsLooseJSON(t *testing.T) {
	// Trailing comma and code fence, typical reasoning-service sloppiness.
	raw := "```json\n{\"groups\": [{\"cluster_id\": \"c-1\", \"article_ids\": [\"a-1\",]},]}\n```"

	result := ParseDecision(raw)
	require.Equal(t, DecisionOk, result.Status)
	require.Len(t, result.Decision.Groups, 1)
	assert.Equal(t, []string{"a-1"}, result.Decision.Groups[0].ArticleIDs)
}

func TestParseDecisionMalformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"free text", "I think articles 1 and 2 belong together."},
		{"empty groups", `{"groups": []}`},
		{"group without articles", `{"groups": [{"cluster_id": "c-1", "article_ids": []}]}`},
		{"empty string", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ParseDecision(tt.raw)
			assert.Equal(t, DecisionMalformed, result.Status)
			assert.Nil(t, result.Decision)
			assert.Equal(t, tt.raw, result.Raw)
		})
	}
}

func TestUnavailableDecision(t *testing.T) {
	result := UnavailableDecision()
	assert.Equal(t, DecisionUnavailable, result.Status)
	assert.Nil(t, result.Decision)
}

func TestRepairAndUnmarshal(t *testing.T) {
	var out map[string]any
	err := RepairAndUnmarshal(`{"a": 1,}`, &out)
	require.NoError(t, err)
	assert.Equal(t, float64(1), out["a"])

	err = RepairAndUnmarshal("   ", &out)
	assert.ErrorIs(t, err, ErrEmptyResponse)
}
