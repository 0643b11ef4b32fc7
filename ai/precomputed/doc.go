// Package precomputed provides an offline embedding provider.
//
// Vectors come from a table loaded once at construction. Lookup keys are
// normalized by trimming whitespace and lower-casing. A lookup that misses
// the table does not fail by default: it returns a pseudo-random unit vector
// seeded by a BLAKE2b hash of the normalized text, so the same text always
// yields the same vector in every process. Those fallback vectors carry no
// semantic signal. Callers that need retrieval quality should watch Misses or
// construct the provider with WithStrict(true), which turns misses into
// ai.ErrProviderUnavailable.
//
// A configured table file that cannot be read leaves the provider
// unavailable rather than silently serving only fallback vectors.
package precomputed
