package llm

import (
	"context"
	"crypto/sha256"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/xhad/shopsage/internal/types"
	"github.com/xhad/shopsage/pkg/vector"
)

var bucketEmbeddings = []byte("embeddings")

// CachedEmbedder memoizes embeddings in a bbolt file keyed by model and
// text, so re-ingesting unchanged orders skips the provider round-trip.
type CachedEmbedder struct {
	next types.Embedder
	db   *bbolt.DB
}

func NewCachedEmbedder(next types.Embedder, path string) (*CachedEmbedder, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open embedding cache: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketEmbeddings)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create cache bucket: %w", err)
	}
	return &CachedEmbedder{next: next, db: db}, nil
}

func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := cacheKey(c.next.ModelName(), text)

	var cached []float32
	err := c.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucketEmbeddings).Get(key)
		if v == nil {
			return nil
		}
		vec, err := vector.DecodeEmbedding(v)
		cached = vec
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("read embedding cache: %w", err)
	}
	if cached != nil {
		return cached, nil
	}

	vec, err := c.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	err = c.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketEmbeddings).Put(key, vector.EncodeEmbedding(vec))
	})
	if err != nil {
		return nil, fmt.Errorf("write embedding cache: %w", err)
	}
	return vec, nil
}

func (c *CachedEmbedder) ModelName() string { return c.next.ModelName() }

func (c *CachedEmbedder) Close() error { return c.db.Close() }

func cacheKey(model, text string) []byte {
	h := sha256.New()
	h.Write([]byte(model))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return h.Sum(nil)
}
