// Package store persists canonical orders and their embedded documents.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/xhad/shopsage/internal/models"
	"github.com/xhad/shopsage/internal/types"
)

// Repository is implemented by every storage backend.
type Repository = types.Repository

// DocumentStore couples a Repository with the embedding provider: documents
// are always embedded before they are written.
type DocumentStore struct {
	repo     Repository
	embedder types.Embedder
	now      func() time.Time
}

// NewDocumentStore wraps repo. The store owns repo and closes it on Close.
func NewDocumentStore(repo Repository, embedder types.Embedder) *DocumentStore {
	return &DocumentStore{repo: repo, embedder: embedder, now: time.Now}
}

// UpsertOrder persists the canonical order and its raw payload under
// (shop, order.ID) and returns the order ID.
func (s *DocumentStore) UpsertOrder(ctx context.Context, shop string, order models.Order, raw []byte) (string, error) {
	order.Shop = shop
	return s.repo.UpsertOrder(ctx, order, raw)
}

// UpsertDocument embeds text and persists the document under
// type:shop:refID. If the embedding call fails nothing is written and the
// provider error is returned unchanged.
func (s *DocumentStore) UpsertDocument(ctx context.Context, shop, docType, refID, text string) error {
	embedding, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return err
	}
	doc := models.Document{
		Type:      docType,
		Shop:      shop,
		RefID:     refID,
		Text:      text,
		Embedding: embedding,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.UpsertDocument(ctx, doc); err != nil {
		return fmt.Errorf("failed to store document %s: %w", doc.ID(), err)
	}
	return nil
}

// AllDocuments returns every document of shop in no particular order.
func (s *DocumentStore) AllDocuments(ctx context.Context, shop string) ([]models.StoredDocument, error) {
	return s.repo.AllDocuments(ctx, shop)
}

func (s *DocumentStore) Stats(ctx context.Context, shop string) (models.ShopStats, error) {
	return s.repo.Stats(ctx, shop)
}

func (s *DocumentStore) Close() error {
	return s.repo.Close()
}
