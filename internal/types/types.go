package types

import (
	"context"

	"github.com/xhad/shopsage/internal/models"
)

// Core interfaces

// Embedder turns text into an embedding vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	ModelName() string
}

// ChatMessage is one message sent to a generation provider.
type ChatMessage struct {
	Role    string
	Content string
}

const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// Generator produces a completion for a conversation.
type Generator interface {
	Chat(ctx context.Context, messages []ChatMessage) (string, error)
	ModelName() string
}

// DocumentReader reads the searchable documents of one shop.
type DocumentReader interface {
	AllDocuments(ctx context.Context, shop string) ([]models.StoredDocument, error)
}

// Repository persists orders and documents.
type Repository interface {
	DocumentReader
	UpsertOrder(ctx context.Context, order models.Order, rawPayload []byte) (string, error)
	UpsertDocument(ctx context.Context, doc models.Document) error
	Stats(ctx context.Context, shop string) (models.ShopStats, error)
	Close() error
}
