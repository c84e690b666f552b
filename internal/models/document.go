package models

import "time"

// DocTypeOrder is the only document type produced today.
const DocTypeOrder = "order"

// Document is one embeddable unit derived from a source record.
type Document struct {
	Type      string
	Shop      string
	RefID     string
	Text      string
	Embedding []float32
	CreatedAt time.Time
}

// ID returns the composite identity type:shop:ref_id.
func (d Document) ID() string {
	return DocumentID(d.Type, d.Shop, d.RefID)
}

// DocumentID builds the identity string for a document.
func DocumentID(docType, shop, refID string) string {
	return docType + ":" + shop + ":" + refID
}

// StoredDocument is the read projection used by similarity search.
type StoredDocument struct {
	RefID     string
	Text      string
	Embedding []float32
}

// ScoredDocument is a StoredDocument ranked against a query.
type ScoredDocument struct {
	RefID string
	Text  string
	Score float64
}

// Citation references a retrieved document in an answer.
type Citation struct {
	RefID string  `json:"refId"`
	Score float64 `json:"score"`
}

// Answer is the orchestrator's result for one question.
type Answer struct {
	Citations []Citation
	Text      string
	// Valid reports whether a recommendation answer parsed as the requested
	// JSON shape. It is always false in chat mode.
	Valid bool
}

// ShopStats counts what has been ingested for a shop.
type ShopStats struct {
	Shop      string `json:"shop"`
	Orders    int    `json:"orders"`
	Documents int    `json:"documents"`
}
