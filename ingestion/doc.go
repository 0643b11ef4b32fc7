// Package ingestion provides pipeline orchestration for adding catalog items.
//
// The Pipeline type manages the write-time workflow for items, including:
//   - Validating and adding items to storage
//   - Generating embeddings asynchronously
//   - Re-embedding items whose canonical text changed on update
//
// Processing is performed concurrently using a worker pool.
// Errors during async processing are logged but do not fail the ingestion
// operation; items left without a vector are picked up by the next backfill.
package ingestion
