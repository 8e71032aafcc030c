// Package reembed recomputes sub-chunk embeddings in an existing store,
// typically after switching embedding models or editing clause text.
//
// Chunks are visited in id order and embedded in batches. A run can cover
// every sub-chunk or only the stale ones, whose text no longer matches the
// hash recorded when they were last embedded. Embedding calls are retried
// with exponential backoff and progress is written to an io.Writer.
package reembed
