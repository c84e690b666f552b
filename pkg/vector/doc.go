// Package vector holds the numeric helpers shared by the store and the
// search engine: cosine similarity with a no-error degenerate policy and the
// packed BLOB encoding used to persist embeddings.
package vector
