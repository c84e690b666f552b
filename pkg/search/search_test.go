package search

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xhad/shopsage/internal/models"
	"github.com/xhad/shopsage/pkg/vector"
)

type memoryDocs map[string][]models.StoredDocument

func (m memoryDocs) AllDocuments(ctx context.Context, shop string) ([]models.StoredDocument, error) {
	return m[shop], nil
}

type failingDocs struct{}

func (failingDocs) AllDocuments(ctx context.Context, shop string) ([]models.StoredDocument, error) {
	return nil, errors.New("disk on fire")
}

func fixture() memoryDocs {
	return memoryDocs{
		"demo-shop": {
			{RefID: "a", Text: "a", Embedding: []float32{1, 0}},
			{RefID: "b", Text: "b", Embedding: []float32{0, 1}},
			{RefID: "c", Text: "c", Embedding: []float32{1, 1}},
			{RefID: "d", Text: "d", Embedding: []float32{-1, 0}},
			{RefID: "e", Text: "e", Embedding: []float32{1, 2, 3}},
			{RefID: "f", Text: "f", Embedding: nil},
		},
		"other": {
			{RefID: "z", Text: "z", Embedding: []float32{1, 0}},
		},
	}
}

func TestSearchOrdering(t *testing.T) {
	engine := NewEngine(fixture())

	results, err := engine.Search(context.Background(), "demo-shop", []float32{1, 0}, 10)
	require.NoError(t, err)
	require.Len(t, results, 6)

	assert.Equal(t, "a", results[0].RefID)
	assert.InDelta(t, 1.0, results[0].Score, 1e-9)
	assert.Equal(t, "c", results[1].RefID)
	assert.Equal(t, "d", results[len(results)-1].RefID)
	assert.InDelta(t, -1.0, results[len(results)-1].Score, 1e-9)

	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
	for _, r := range results {
		assert.GreaterOrEqual(t, r.Score, -1.0)
		assert.LessOrEqual(t, r.Score, 1.0)
	}
}

func TestSearchBounds(t *testing.T) {
	engine := NewEngine(fixture())
	ctx := context.Background()

	tests := []struct {
		name string
		shop string
		k    int
		want int
	}{
		{"k below n", "demo-shop", 2, 2},
		{"k equals n", "demo-shop", 6, 6},
		{"k above n", "demo-shop", 50, 6},
		{"zero k", "demo-shop", 0, 0},
		{"negative k", "demo-shop", -3, 0},
		{"unknown shop", "nobody", 6, 0},
		{"other shop only", "other", 6, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := engine.Search(ctx, tt.shop, []float32{1, 0}, tt.k)
			require.NoError(t, err)
			assert.Len(t, results, tt.want)
		})
	}
}

func TestSearchTiesKeepStorageOrder(t *testing.T) {
	docs := memoryDocs{"s": {
		{RefID: "1", Embedding: []float32{0, 0}},
		{RefID: "2", Embedding: []float32{5}},
		{RefID: "3", Embedding: nil},
	}}

	results, err := NewEngine(docs).Search(context.Background(), "s", []float32{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, results, 3)
	for i, id := range []string{"1", "2", "3"} {
		assert.Equal(t, id, results[i].RefID)
		assert.Zero(t, results[i].Score)
	}
}

func TestSearchOverflowedEmbedding(t *testing.T) {
	docs := memoryDocs{"s": {
		{RefID: "low", Embedding: []float32{0.1, 1}},
		{RefID: "big", Embedding: vector.FromFloat64([]float64{1e39, 1})},
		{RefID: "high", Embedding: []float32{1, 0.01}},
	}}

	results, err := NewEngine(docs).Search(context.Background(), "s", []float32{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "high", results[0].RefID)
	assert.Equal(t, "low", results[1].RefID)
	assert.Equal(t, "big", results[2].RefID)
	assert.Zero(t, results[2].Score)

	top, err := NewEngine(docs).Search(context.Background(), "s", []float32{1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "high", top[0].RefID)
}

func TestSearchDegenerateQuery(t *testing.T) {
	results, err := NewEngine(fixture()).Search(context.Background(), "demo-shop", nil, 3)
	require.NoError(t, err)
	require.Len(t, results, 3)
	for _, r := range results {
		assert.Zero(t, r.Score)
	}
}

func TestSearchPropagatesStoreError(t *testing.T) {
	_, err := NewEngine(failingDocs{}).Search(context.Background(), "s", []float32{1}, 1)
	assert.ErrorContains(t, err, "disk on fire")
}
