// Package prompts builds the message structures sent to the reasoning
// service. The exact natural-language wording is not a contract surface;
// the input/output shapes are.
package prompts

import (
	"fmt"
	"strings"

	"github.com/sn3fru/silvanews-sub000/pkg/llm"
)

// ArticleInput is the per-article block included in a grouping request.
type ArticleInput struct {
	ID      string
	Excerpt string
}

// ClusterInput is the per-cluster block included in a grouping request.
type ClusterInput struct {
	ID      string
	Title   string
	Summary string
}

// ExtractEntities builds the messages asking for named entities in text.
// The expected reply shape is {"entities": [{"name", "type"}]}.
func ExtractEntities(text string) []llm.Message {
	system := `You extract named entities from news articles.
Return only JSON of the form {"entities": [{"name": "...", "type": "organization|person|place"}]}.
Use the surface form exactly as written. Return {"entities": []} when none are found.`

	return []llm.Message{
		{Role: llm.RoleSystem, Content: system},
		{Role: llm.RoleUser, Content: text},
	}
}

// GroupArticles builds the messages asking the reasoning service to group a
// batch of articles into existing or new clusters. Similarity hints are
// included as advisory signals alongside the raw content; the decision
// authority stays with the reasoning step.
func GroupArticles(articles []ArticleInput, clusters []ClusterInput, hints []string) []llm.Message {
	system := `You group news articles into real-world events.
Each article joins exactly one cluster: an existing one (by cluster_id) or a new one (empty cluster_id).
Similarity percentages are advisory hints, not decisions.
Return only JSON of the form {"groups": [{"cluster_id": "...", "article_ids": ["..."]}]}.`

	var b strings.Builder
	b.WriteString("Articles:\n")
	for i, a := range articles {
		fmt.Fprintf(&b, "[%d] id=%s\n%s\n\n", i+1, a.ID, a.Excerpt)
	}

	if len(clusters) > 0 {
		b.WriteString("Existing clusters:\n")
		for _, c := range clusters {
			fmt.Fprintf(&b, "- id=%s title=%q summary=%q\n", c.ID, c.Title, c.Summary)
		}
		b.WriteString("\n")
	}

	if len(hints) > 0 {
		b.WriteString("Similarity hints:\n")
		for _, h := range hints {
			fmt.Fprintf(&b, "- %s\n", h)
		}
	}

	return []llm.Message{
		{Role: llm.RoleSystem, Content: system},
		{Role: llm.RoleUser, Content: b.String()},
	}
}
