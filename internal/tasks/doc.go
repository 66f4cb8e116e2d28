// Package tasks aggregates similar-track candidates from several providers with real-time progress reporting.
//
// # Core Operations
//
// [Engine.Aggregate] runs one similarity search:
//
//  1. Fan-out : [Merger] queries the verified, structured and text providers concurrently
//     - Each call is bounded by its own timeout
//     - A failing, slow or panicking provider contributes nothing
//
//  2. Merge : results are deduplicated by [Key] in priority order
//     - Verified candidates always win (confidence 1.0)
//     - Structured candidates also named by the text provider become "both" (0.85)
//     - Remaining structured (0.6) and text (0.5) candidates follow
//
//  3. Rank : [Rank] sorts by confidence, stable for ties
//
//  4. Enrich : [Enricher] fills missing artwork from the catalog in the background
//     - Batches of five lookups, at most five in flight
//     - One snapshot of the whole list per completed batch
//
// # Progress Reporting
//
// [Engine.AggregateWithProgress] emits [ProgressUpdate] values for each [Phase].
// Updates use select with default to prevent blocking.
//
// # History
//
// The optional [HistoryRecorder] interface stores a summary of each aggregation.
// Recording failures are logged and never fail the search.
package tasks
