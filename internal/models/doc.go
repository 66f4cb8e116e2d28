// Package models defines domain entities and persistence interfaces for the dejavu similar-song service.
//
// The package contains two categories of types:
//
// 1. Request-scoped values produced and consumed by the aggregation engine
//   - [Seed] : The reference track a search runs against
//   - [RawCandidate] : A single, unmerged provider result
//   - [Candidate] : A merged result with provenance, reasons and confidence
//   - [ResultSet] : An ordered list of candidates, snapshotted during enrichment
//   - [Track] : Catalog metadata returned by search and lookup
//
// 2. Persistent Entities: Database-backed models with full lifecycle management
//   - [Connection] : A community-confirmed pairing of two tracks with an upvote count
//   - [Aggregation] : A summary of one similarity search, kept as history
//
// All persistent entities implement the Model interface providing ID generation, timestamps, validation, and soft delete support.
// The Repository[T] interface defines standard CRUD operations for database access.
package models
