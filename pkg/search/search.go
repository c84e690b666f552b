// Package search ranks a shop's documents against a query embedding.
package search

import (
	"context"
	"fmt"
	"sort"

	"github.com/xhad/shopsage/internal/models"
	"github.com/xhad/shopsage/internal/types"
	"github.com/xhad/shopsage/pkg/vector"
)

// Engine is a brute-force cosine index over the documents of one shop at a
// time. Every call loads the shop's documents afresh, so results always
// reflect the latest ingestion.
type Engine struct {
	docs types.DocumentReader
}

func NewEngine(docs types.DocumentReader) *Engine {
	return &Engine{docs: docs}
}

// Search returns at most k documents of shop ordered by descending cosine
// similarity to query. Documents whose embedding cannot be compared score 0
// and still take part in the ranking. Ties keep storage order.
func (e *Engine) Search(ctx context.Context, shop string, query []float32, k int) ([]models.ScoredDocument, error) {
	if k <= 0 {
		return []models.ScoredDocument{}, nil
	}

	docs, err := e.docs.AllDocuments(ctx, shop)
	if err != nil {
		return nil, fmt.Errorf("failed to load documents: %w", err)
	}

	return Rank(docs, query, k), nil
}

// Rank scores docs against query and keeps the top k.
func Rank(docs []models.StoredDocument, query []float32, k int) []models.ScoredDocument {
	if k <= 0 {
		return []models.ScoredDocument{}
	}

	scored := make([]models.ScoredDocument, len(docs))
	for i, d := range docs {
		scored[i] = models.ScoredDocument{
			RefID: d.RefID,
			Text:  d.Text,
			Score: vector.CosineSimilarity(query, d.Embedding),
		}
	}
	sort.SliceStable(scored, func(a, b int) bool { return scored[a].Score > scored[b].Score })

	if k < len(scored) {
		scored = scored[:k]
	}
	return scored
}
