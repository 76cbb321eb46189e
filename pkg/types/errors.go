package types

import (
	"errors"
	"fmt"
)

// ErrorClass partitions enrichment failures by how the pipeline reacts.
type ErrorClass string

const (
	// ErrProviderUnavailable covers embedding/extraction service timeouts and
	// transport errors. Retried a bounded number of times, then degraded.
	ErrProviderUnavailable ErrorClass = "provider_unavailable"
	// ErrMalformedResponse covers wrong embedding dimensions and unparsable
	// entity lists. Discarded and treated like an unavailable provider.
	ErrMalformedResponse ErrorClass = "malformed_provider_response"
	// ErrGraphConstraint covers a duplicate canonical-name creation race.
	// Resolved by retrying resolve-or-create as a read.
	ErrGraphConstraint ErrorClass = "graph_constraint_violation"
	// ErrIntegrity covers an edge referencing a nonexistent id. Logged at
	// error level and skipped, never fatal for the batch.
	ErrIntegrity ErrorClass = "integrity_error"
)

// EnrichmentError carries enough context to diagnose a degraded stage:
// the article (or cluster) being processed, the stage name and the class.
type EnrichmentError struct {
	Class     ErrorClass
	Stage     string
	ArticleID string
	Err       error
}

func (e *EnrichmentError) Error() string {
	if e.ArticleID != "" {
		return fmt.Sprintf("%s: %s (article %s): %v", e.Stage, e.Class, e.ArticleID, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Stage, e.Class, e.Err)
}

func (e *EnrichmentError) Unwrap() error { return e.Err }

// NewEnrichmentError wraps err with its stage and classification.
func NewEnrichmentError(class ErrorClass, stage, articleID string, err error) *EnrichmentError {
	return &EnrichmentError{Class: class, Stage: stage, ArticleID: articleID, Err: err}
}

// ClassOf extracts the error class from err, defaulting to
// ErrProviderUnavailable for unclassified failures.
func ClassOf(err error) ErrorClass {
	var ee *EnrichmentError
	if errors.As(err, &ee) {
		return ee.Class
	}
	return ErrProviderUnavailable
}
