// Package index persists chunk vectors and serves nearest-neighbor queries.
//
// Two backends implement the Store interface: an embedded SQLite store for
// single-node deployments, and a Qdrant store speaking the REST API for
// deployments with an external vector database. Open selects the backend from
// configuration; callers only see Store.
//
// Both backends share the error contract: CreateIndex is idempotent but fails
// with ErrDimensionMismatch when the index already exists with a different
// dimension, Upsert rejects malformed vectors without partial writes, Get
// returns ErrNotFound for unknown IDs, and an unreachable backend surfaces as
// ErrBackendUnavailable after bounded retries.
package index
