// Package domain defines the core entities of the contribution
// statistics pipeline: repository and publication identities, dated
// activity records with per-kind fetch watermarks, citation snapshots,
// and the durable dataset that aggregates them.
//
// Domain types carry no I/O. Fetching lives in internal/connectors,
// merging and derived statistics in internal/core/services, and
// persistence in internal/adapters/driven/storage.
package domain
