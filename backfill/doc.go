// Package backfill generates missing embedding vectors for stored catalog items.
//
// A Backfiller walks the item store in batches, sends the canonical text of
// every item without a vector to the active ai.Provider, and persists each
// returned vector. Items that fail are retried with exponential backoff when
// the provider marks the failure retryable, then counted and reported; they
// never abort the run.
//
// Reconcile keeps stored vectors consistent with the active provider by
// comparing the persisted corpus stamp with the provider's descriptor.
package backfill
