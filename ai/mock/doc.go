// Package mock provides test doubles for the embedding gateway.
//
// The default behavior is deterministic: the same text always hashes to the
// same unit-normalized vector, so tests can assert on similarity ordering
// without a real embedding service. Behavior can be overridden per test via
// the function fields.
package mock
