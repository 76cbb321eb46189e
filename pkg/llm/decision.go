package llm

// DecisionStatus is the outcome of asking the reasoning service for a
// grouping decision.
type DecisionStatus string

const (
	// DecisionOk means the response validated against the expected shape.
	DecisionOk DecisionStatus = "ok"
	// DecisionMalformed means a response arrived but could not be validated.
	// The raw text is preserved for diagnosis; nothing downstream may read
	// fields out of a malformed response.
	DecisionMalformed DecisionStatus = "malformed"
	// DecisionUnavailable means the service could not be reached at all.
	DecisionUnavailable DecisionStatus = "unavailable"
)

// GroupDecision assigns a set of batch articles to one cluster. An empty
// ClusterID means the group forms a new cluster.
type GroupDecision struct {
	ClusterID  string   `json:"cluster_id"`
	ArticleIDs []string `json:"article_ids"`
}

// ClusterDecision is the validated grouping decision for a batch.
type ClusterDecision struct {
	Groups []GroupDecision `json:"groups"`
}

// DecisionResult is the typed variant returned by the decision step:
// exactly one of Decision (Ok), Raw (Malformed), or neither (Unavailable)
// carries information.
type DecisionResult struct {
	Status   DecisionStatus
	Decision *ClusterDecision
	Raw      string
}

// UnavailableDecision marks the decision step as unreachable.
func UnavailableDecision() DecisionResult {
	return DecisionResult{Status: DecisionUnavailable}
}

// ParseDecision validates raw reasoning-service output into a DecisionResult.
// It repairs loose JSON first, then checks the explicit expected shape:
// at least one group, and every group naming at least one article.
func ParseDecision(raw string) DecisionResult {
	var decision ClusterDecision
	if err := RepairAndUnmarshal(raw, &decision); err != nil {
		return DecisionResult{Status: DecisionMalformed, Raw: raw}
	}

	if len(decision.Groups) == 0 {
		return DecisionResult{Status: DecisionMalformed, Raw: raw}
	}
	for _, g := range decision.Groups {
		if len(g.ArticleIDs) == 0 {
			return DecisionResult{Status: DecisionMalformed, Raw: raw}
		}
	}

	return DecisionResult{Status: DecisionOk, Decision: &decision}
}
