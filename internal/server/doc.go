// Package server exposes the aggregation engine, catalog and community connections over HTTP.
//
// # Routes
//
//	GET  /healthz                     liveness
//	GET  /api/similar                 ranked similar tracks (?name=&artist= or ?id=, optional ?wait=true)
//	GET  /api/similar/stream          server-sent events: results, snapshot per enrichment batch, done
//	GET  /api/search?q=               catalog search
//	GET  /api/track/:id               catalog track
//	POST /api/connections             confirm a similar pair
//	POST /api/connections/:id/upvote  upvote a connection
//	GET  /api/history                 recent searches
//
// # Middleware
//
// [RequestLogger] writes one structured log line per request; [Recovery] turns panics into 500s.
//
// Collaborators are injected through [Options] as small interfaces so handlers can be tested
// against in-memory doubles.
package server
