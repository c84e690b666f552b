// Package ingest normalizes raw orders and writes them, one at a time, to
// the document store.
package ingest

import (
	"context"
	"fmt"

	"github.com/xhad/shopsage/internal/models"
	"github.com/xhad/shopsage/pkg/processor"
)

// Store is the write side of store.DocumentStore.
type Store interface {
	UpsertOrder(ctx context.Context, shop string, order models.Order, raw []byte) (string, error)
	UpsertDocument(ctx context.Context, shop, docType, refID, text string) error
}

// IngestError reports a batch that stopped part way. Orders before RefID
// were fully written; RefID and everything after it were not.
type IngestError struct {
	Ingested int
	RefID    string
	Err      error
}

func (e *IngestError) Error() string {
	return fmt.Sprintf("ingest stopped at order %s after %d ingested: %v", e.RefID, e.Ingested, e.Err)
}

func (e *IngestError) Unwrap() error { return e.Err }

type Config struct {
	// OnProgress is called after each order is fully written.
	OnProgress func(done, total int, refID string)
}

type Pipeline struct {
	config Config
	store  Store
}

func NewPipeline(store Store) *Pipeline {
	return NewWithConfig(Config{}, store)
}

func NewWithConfig(config Config, store Store) *Pipeline {
	return &Pipeline{config: config, store: store}
}

// Ingest writes orders in input order and returns how many were ingested.
// Each order is upserted before its document, so a failed embedding leaves
// that order's row in place without a document.
func (p *Pipeline) Ingest(ctx context.Context, shop string, orders []processor.RawOrder) (int, error) {
	for i, raw := range orders {
		if err := ctx.Err(); err != nil {
			return i, &IngestError{Ingested: i, RefID: refID(raw), Err: err}
		}

		order, text := processor.Normalize(shop, raw)
		payload, err := processor.Payload(raw)
		if err != nil {
			return i, &IngestError{Ingested: i, RefID: order.ID, Err: err}
		}

		id, err := p.store.UpsertOrder(ctx, shop, order, payload)
		if err != nil {
			return i, &IngestError{Ingested: i, RefID: order.ID, Err: err}
		}
		if err := p.store.UpsertDocument(ctx, shop, models.DocTypeOrder, id, text); err != nil {
			return i, &IngestError{Ingested: i, RefID: id, Err: err}
		}

		if p.config.OnProgress != nil {
			p.config.OnProgress(i+1, len(orders), id)
		}
	}
	return len(orders), nil
}

func refID(raw processor.RawOrder) string {
	order, _ := processor.Normalize("", raw)
	return order.ID
}
