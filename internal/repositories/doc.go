// Package repositories implements SQLite persistence for the verified-connection store and search history.
//
// Repositories handle CRUD operations with atomic sequence generation for human-readable ordering.
// Connections support soft deletes via deleted_at timestamps and exclude deleted records from queries by default.
//
// Key Implementations:
//   - [ConnectionRepository] : Community-confirmed track pairings with per-seed lookups and upvotes
//   - [VerifiedStore] : Adapts connections into the verified provider consumed by the aggregation engine
//   - [AggregationRepository] : One summary row per aggregate call
//
// Sequence numbers provide stable, human-readable ordering (e.g., connection #42) independent of UUIDs and creation timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
