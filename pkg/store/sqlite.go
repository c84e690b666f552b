package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/xhad/shopsage/internal/models"
	"github.com/xhad/shopsage/pkg/vector"
)

var _ Repository = (*SQLiteRepository)(nil)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS orders (
	id TEXT NOT NULL,
	shop TEXT NOT NULL,
	created_at TEXT,
	total_price REAL,
	currency TEXT,
	customer_email TEXT,
	raw_payload TEXT,
	PRIMARY KEY (shop, id)
);
CREATE TABLE IF NOT EXISTS docs (
	doc_id TEXT PRIMARY KEY,
	shop TEXT NOT NULL,
	type TEXT NOT NULL,
	ref_id TEXT NOT NULL,
	text TEXT NOT NULL,
	embedding BLOB,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_docs_shop_type ON docs(shop, type);
CREATE INDEX IF NOT EXISTS idx_orders_shop ON orders(shop);
`

// SQLiteRepository stores orders and documents in a single SQLite file.
// Embeddings are packed little-endian float32 blobs.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository opens (creating if needed) the database at path.
func NewSQLiteRepository(path string) (*SQLiteRepository, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	// WAL lets readers proceed while one writer commits.
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) UpsertOrder(ctx context.Context, order models.Order, rawPayload []byte) (string, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO orders (id, shop, created_at, total_price, currency, customer_email, raw_payload)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (shop, id) DO UPDATE SET
			created_at = excluded.created_at,
			total_price = excluded.total_price,
			currency = excluded.currency,
			customer_email = excluded.customer_email,
			raw_payload = excluded.raw_payload`,
		order.ID, order.Shop, nullString(order.CreatedAt), order.TotalPrice,
		order.Currency, nullString(order.CustomerEmail), string(rawPayload))
	if err != nil {
		return "", fmt.Errorf("upserting order %s: %w", order.ID, err)
	}
	return order.ID, nil
}

func (r *SQLiteRepository) UpsertDocument(ctx context.Context, doc models.Document) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO docs (doc_id, shop, type, ref_id, text, embedding, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (doc_id) DO UPDATE SET
			text = excluded.text,
			embedding = excluded.embedding`,
		doc.ID(), doc.Shop, doc.Type, doc.RefID, doc.Text,
		vector.EncodeEmbedding(doc.Embedding), doc.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("upserting document: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) AllDocuments(ctx context.Context, shop string) ([]models.StoredDocument, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT ref_id, text, embedding FROM docs WHERE shop = ?`, shop)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var docs []models.StoredDocument
	for rows.Next() {
		var (
			doc  models.StoredDocument
			blob []byte
		)
		if err := rows.Scan(&doc.RefID, &doc.Text, &blob); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		doc.Embedding, err = vector.DecodeEmbedding(blob)
		if err != nil {
			return nil, fmt.Errorf("decoding embedding of %s: %w", doc.RefID, err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// DocumentCreatedAt returns the first-insertion time of a document.
func (r *SQLiteRepository) DocumentCreatedAt(ctx context.Context, docID string) (time.Time, error) {
	var raw string
	err := r.db.QueryRowContext(ctx, `SELECT created_at FROM docs WHERE doc_id = ?`, docID).Scan(&raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("reading document %s: %w", docID, err)
	}
	return time.Parse(time.RFC3339Nano, raw)
}

func (r *SQLiteRepository) Stats(ctx context.Context, shop string) (models.ShopStats, error) {
	stats := models.ShopStats{Shop: shop}
	err := r.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM orders WHERE shop = ?),
			(SELECT COUNT(*) FROM docs WHERE shop = ?)`, shop, shop).
		Scan(&stats.Orders, &stats.Documents)
	if err != nil {
		return stats, fmt.Errorf("counting rows: %w", err)
	}
	return stats, nil
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
