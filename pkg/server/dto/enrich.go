package dto

import (
	"errors"
	"strings"
	"time"

	"github.com/sn3fru/silvanews-sub000/pkg/types"
)

// MaxBatchSize bounds one ingest request.
const MaxBatchSize = 500

var (
	ErrEmptyBatch   = errors.New("articles cannot be empty")
	ErrBatchTooBig  = errors.New("too many articles in one batch")
	ErrEmptyID      = errors.New("article id cannot be empty")
	ErrEmptyRawText = errors.New("article raw_text cannot be empty")
)

// ArticleInput is one article delivered by ingestion.
type ArticleInput struct {
	ID            string     `json:"id" binding:"required"`
	RawText       string     `json:"raw_text" binding:"required"`
	ProcessedText string     `json:"processed_text,omitempty"`
	PublishedAt   *time.Time `json:"published_at,omitempty"`
}

// Validate performs validation on ArticleInput.
func (a *ArticleInput) Validate() error {
	if strings.TrimSpace(a.ID) == "" {
		return ErrEmptyID
	}
	if strings.TrimSpace(a.RawText) == "" {
		return ErrEmptyRawText
	}
	return nil
}

// ToArticle converts the input into a pending domain article.
func (a *ArticleInput) ToArticle() *types.Article {
	publishedAt := time.Now().UTC()
	if a.PublishedAt != nil {
		publishedAt = a.PublishedAt.UTC()
	}
	return &types.Article{
		ID:            a.ID,
		RawText:       a.RawText,
		ProcessedText: a.ProcessedText,
		PublishedAt:   publishedAt,
		Status:        types.StatusPending,
		CreatedAt:     time.Now().UTC(),
	}
}

// EnrichRequest is the body of POST /api/v1/enrich.
type EnrichRequest struct {
	Articles []ArticleInput `json:"articles" binding:"required"`
}

// Validate performs validation on EnrichRequest.
func (r *EnrichRequest) Validate() error {
	if len(r.Articles) == 0 {
		return ErrEmptyBatch
	}
	if len(r.Articles) > MaxBatchSize {
		return ErrBatchTooBig
	}
	for i := range r.Articles {
		if err := r.Articles[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}
