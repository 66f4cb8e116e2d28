// Package services implements the upstream adapters consumed by the aggregation engine.
//
// # Providers
//
// Two of the three similarity providers live here; the third (verified connections) is backed by the database in the repositories package.
// Both expose FetchCandidates(ctx, seed) ([]models.RawCandidate, bool), which never returns an error:
// any transport, auth, or parse failure (and any panic) is logged at WARN and reported as ok=false.
//
//   - [LastFMService] : structured similarity from Last.fm track.getsimilar
//   - [SuggestionService] : free-text suggestions from a language model, parsed by [ParseSuggestions]
//
// # Catalog
//
// [SpotifyService] is the canonical catalog used for search, track lookup, seed resolution and enrichment.
// It authenticates with the client-credentials grant through a [TokenCache], which serves one shared token
// and refreshes it 60 seconds before expiry with a single upstream request even under concurrent first use.
//
// # Parsing Model Output
//
// Model responses are not guaranteed to contain only JSON. [ParseSuggestions] locates the first '[' ... last ']' span,
// attempts a strict parse, then retries once after [RepairJSON] strips trailing commas, rejoins string continuations
// split across lines and replaces control characters.
//
// # Rate Limiting
//
// [RateLimiterMap] holds one [rate.Limiter] per upstream; every request waits on its limiter before dialing.
//
// # Error Handling
//
// Adapters return [*ProviderError] values wrapping sentinel errors from the shared package:
//   - [shared.ErrProviderUnavailable] : transport failure, non-2xx status, or rate limiter cancellation
//   - [shared.ErrMalformedResponse] : undecodable payload
//   - [shared.ErrMissingCredentials] : adapter constructed without credentials
//   - [shared.ErrTrackNotFound] : catalog track id does not exist
//
// [rate.Limiter]: https://pkg.go.dev/golang.org/x/time/rate#Limiter
package services
