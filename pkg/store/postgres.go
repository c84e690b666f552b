package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/xhad/shopsage/internal/models"
)

var _ Repository = (*PostgresRepository)(nil)

type PostgresConfig struct {
	ConnString string
	// TablePrefix is prepended to the orders and docs tables, mostly so
	// tests can run against a shared database.
	TablePrefix string
}

// PostgresRepository stores documents with a pgvector column. The column is
// untyped so embedding models of any dimension can share a table.
type PostgresRepository struct {
	pool   *pgxpool.Pool
	orders string
	docs   string
}

func NewPostgresRepository(ctx context.Context, config PostgresConfig) (*PostgresRepository, error) {
	pool, err := pgxpool.New(ctx, config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	r := &PostgresRepository{
		pool:   pool,
		orders: config.TablePrefix + "orders",
		docs:   config.TablePrefix + "docs",
	}
	if err := r.initialize(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return r, nil
}

func (r *PostgresRepository) initialize(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	statements := []string{
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id TEXT NOT NULL,
				shop TEXT NOT NULL,
				created_at TEXT,
				total_price DOUBLE PRECISION,
				currency TEXT,
				customer_email TEXT,
				raw_payload JSONB,
				PRIMARY KEY (shop, id)
			)`, r.orders),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				doc_id TEXT PRIMARY KEY,
				shop TEXT NOT NULL,
				type TEXT NOT NULL,
				ref_id TEXT NOT NULL,
				text TEXT NOT NULL,
				embedding vector,
				created_at TIMESTAMPTZ NOT NULL
			)`, r.docs),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_shop_type_idx ON %s (shop, type)`, r.docs, r.docs),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_shop_idx ON %s (shop)`, r.orders, r.orders),
	}
	for _, stmt := range statements {
		if _, err := r.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

func (r *PostgresRepository) UpsertOrder(ctx context.Context, order models.Order, rawPayload []byte) (string, error) {
	stmt := fmt.Sprintf(`
		INSERT INTO %s (id, shop, created_at, total_price, currency, customer_email, raw_payload)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, NULLIF($6, ''), $7)
		ON CONFLICT (shop, id) DO UPDATE SET
			created_at = EXCLUDED.created_at,
			total_price = EXCLUDED.total_price,
			currency = EXCLUDED.currency,
			customer_email = EXCLUDED.customer_email,
			raw_payload = EXCLUDED.raw_payload`, r.orders)

	var payload any
	if len(rawPayload) > 0 {
		payload = string(rawPayload)
	}
	_, err := r.pool.Exec(ctx, stmt, order.ID, order.Shop, order.CreatedAt, order.TotalPrice,
		order.Currency, order.CustomerEmail, payload)
	if err != nil {
		return "", fmt.Errorf("failed to upsert order %s: %w", order.ID, err)
	}
	return order.ID, nil
}

func (r *PostgresRepository) UpsertDocument(ctx context.Context, doc models.Document) error {
	stmt := fmt.Sprintf(`
		INSERT INTO %s (doc_id, shop, type, ref_id, text, embedding, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (doc_id) DO UPDATE SET
			text = EXCLUDED.text,
			embedding = EXCLUDED.embedding`, r.docs)

	var embedding any
	if len(doc.Embedding) > 0 {
		embedding = pgvector.NewVector(doc.Embedding)
	}
	_, err := r.pool.Exec(ctx, stmt, doc.ID(), doc.Shop, doc.Type, doc.RefID, doc.Text, embedding, doc.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert document: %w", err)
	}
	return nil
}

func (r *PostgresRepository) AllDocuments(ctx context.Context, shop string) ([]models.StoredDocument, error) {
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`SELECT ref_id, text, embedding FROM %s WHERE shop = $1`, r.docs), shop)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	var docs []models.StoredDocument
	for rows.Next() {
		var (
			doc models.StoredDocument
			vec *pgvector.Vector
		)
		if err := rows.Scan(&doc.RefID, &doc.Text, &vec); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		if vec != nil {
			doc.Embedding = vec.Slice()
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (r *PostgresRepository) DocumentCreatedAt(ctx context.Context, docID string) (time.Time, error) {
	var createdAt time.Time
	err := r.pool.QueryRow(ctx, fmt.Sprintf(`SELECT created_at FROM %s WHERE doc_id = $1`, r.docs), docID).Scan(&createdAt)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read document %s: %w", docID, err)
	}
	return createdAt, nil
}

func (r *PostgresRepository) Stats(ctx context.Context, shop string) (models.ShopStats, error) {
	stats := models.ShopStats{Shop: shop}
	query := fmt.Sprintf(`SELECT (SELECT COUNT(*) FROM %s WHERE shop = $1), (SELECT COUNT(*) FROM %s WHERE shop = $1)`,
		r.orders, r.docs)
	if err := r.pool.QueryRow(ctx, query, shop).Scan(&stats.Orders, &stats.Documents); err != nil {
		return stats, fmt.Errorf("failed to count rows: %w", err)
	}
	return stats, nil
}

func (r *PostgresRepository) Close() error {
	if r.pool != nil {
		r.pool.Close()
	}
	return nil
}
