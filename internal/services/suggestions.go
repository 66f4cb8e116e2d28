package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/dejavu/internal/llm"
	"github.com/desertthunder/dejavu/internal/models"
	"github.com/desertthunder/dejavu/internal/shared"
)

const promptTemplate = `Which specific songs do listeners say "this reminds me of..." about when they hear %[1]q by %[2]s?

Only include songs that are genuinely confused with or associated with this track, not songs that merely share a mood or genre.
Prefer songs that share:
- the same melodic hook, riff or instrumental pattern
- the same production techniques and sound design
- a chord progression that makes them sound like the same song
- a sample relationship with this track
- the exact same subgenre and era

Draw on comment threads, forum posts and "if you like X" lists that compare this song to others.
Do not include songs by the same artist unless they genuinely sound alike.

Give 10-15 songs, ordered by how likely someone is to be reminded of %[1]q by %[2]s.

Respond ONLY with valid JSON in this exact format, no other text:
[
  {"name": "Song Name", "artist": "Artist Name", "reason": "What specifically sounds similar"}
]`

var (
	jsonArrayPattern    = regexp.MustCompile(`\[[\s\S]*\]`)
	trailingCommaArray  = regexp.MustCompile(`,\s*]`)
	trailingCommaObject = regexp.MustCompile(`,\s*}`)
	brokenContinuation  = regexp.MustCompile(`"\s*\n\s*"`)
	controlChars        = regexp.MustCompile(`[\x00-\x1F]+`)
)

type suggestion struct {
	Name   string `json:"name"`
	Artist string `json:"artist"`
	Reason string `json:"reason"`
}

// BuildPrompt renders the suggestion prompt for seed.
func BuildPrompt(seed models.Seed) string {
	return fmt.Sprintf(promptTemplate, seed.Name, seed.Artist)
}

// ExtractJSONArray returns the span from the first '[' to the last ']' in text.
func ExtractJSONArray(text string) (string, bool) {
	match := jsonArrayPattern.FindString(text)
	return match, match != ""
}

// RepairJSON applies best-effort fixes for common model output mistakes:
// trailing commas, string continuations split across lines and raw control characters.
func RepairJSON(s string) string {
	s = trailingCommaArray.ReplaceAllString(s, "]")
	s = trailingCommaObject.ReplaceAllString(s, "}")
	s = brokenContinuation.ReplaceAllString(s, `", "`)
	s = controlChars.ReplaceAllString(s, " ")
	return s
}

// ParseSuggestions extracts suggestions from free-form model output.
//
// The first JSON array span is parsed strictly, then once more after [RepairJSON].
// Failure of both attempts is reported as [shared.ErrMalformedResponse].
// Entries without a name or artist are dropped.
func ParseSuggestions(text string) ([]models.RawCandidate, error) {
	span, ok := ExtractJSONArray(text)
	if !ok {
		return nil, fmt.Errorf("%w: no JSON array in response", shared.ErrMalformedResponse)
	}

	var items []suggestion
	if err := json.Unmarshal([]byte(span), &items); err != nil {
		items = nil
		if rerr := json.Unmarshal([]byte(RepairJSON(span)), &items); rerr != nil {
			items = nil
			if derr := decodeLeadingArray(text, &items); derr != nil {
				return nil, fmt.Errorf("%w: %w", shared.ErrMalformedResponse, rerr)
			}
		}
	}

	out := make([]models.RawCandidate, 0, len(items))
	for _, item := range items {
		name, artist := strings.TrimSpace(item.Name), strings.TrimSpace(item.Artist)
		if name == "" || artist == "" {
			continue
		}
		out = append(out, models.RawCandidate{
			Name:   name,
			Artist: artist,
			Reason: strings.TrimSpace(item.Reason),
		})
	}
	return out, nil
}

// decodeLeadingArray decodes the first complete JSON array starting at the first '[' in text,
// ignoring whatever follows it.
func decodeLeadingArray(text string, v any) error {
	start := strings.Index(text, "[")
	if start < 0 {
		return errors.New("no JSON array in response")
	}
	return json.NewDecoder(strings.NewReader(text[start:])).Decode(v)
}

// SuggestionService is the free-text provider: it prompts a language model and parses its answer.
type SuggestionService struct {
	gen     llm.Generator
	limiter *RateLimiterMap
	logger  *log.Logger
}

// NewSuggestionService creates a text provider backed by gen.
func NewSuggestionService(gen llm.Generator, limiter *RateLimiterMap, logger *log.Logger) *SuggestionService {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &SuggestionService{
		gen:     gen,
		limiter: limiter,
		logger:  shared.WithLogger(logger, "provider", NameSuggestions),
	}
}

// Name returns the provider name.
func (s *SuggestionService) Name() string { return string(NameSuggestions) }

// FetchCandidates implements the provider contract: failures are logged and reported as ok=false.
func (s *SuggestionService) FetchCandidates(ctx context.Context, seed models.Seed) ([]models.RawCandidate, bool) {
	return collect(ctx, s.logger, NameSuggestions, func(ctx context.Context) ([]models.RawCandidate, error) {
		return s.Suggest(ctx, seed)
	})
}

// Suggest prompts the model for songs similar to seed.
func (s *SuggestionService) Suggest(ctx context.Context, seed models.Seed) ([]models.RawCandidate, error) {
	if s.gen == nil {
		return nil, &ProviderError{Provider: NameSuggestions, Err: shared.ErrMissingCredentials}
	}
	if err := seed.Validate(); err != nil {
		return nil, err
	}
	if err := s.limiter.Wait(ctx, NameSuggestions); err != nil {
		return nil, unavailable(NameSuggestions, fmt.Errorf("rate limiter: %w", err))
	}

	text, err := s.gen.Generate(ctx, BuildPrompt(seed))
	if err != nil {
		return nil, unavailable(NameSuggestions, err)
	}

	items, err := ParseSuggestions(text)
	if err != nil {
		s.logger.Debug("unparseable model output", "sample", truncate(text, 500))
		return nil, &ProviderError{Provider: NameSuggestions, Err: err}
	}
	return items, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
