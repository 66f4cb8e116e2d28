package tasks

import (
	"fmt"

	"github.com/desertthunder/dejavu/internal/models"
)

// ProgressUpdate represents a progress event during an aggregation.
//
// Used to send real-time updates to the CLI or HTTP layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	FetchProviders Phase = iota
	MergeCandidates
	RankCandidates
	EnrichBatch
	Done
)

func (p Phase) String() string {
	switch p {
	case FetchProviders:
		return "fetch_providers"
	case MergeCandidates:
		return "merge"
	case RankCandidates:
		return "rank"
	case EnrichBatch:
		return "enrich_batch"
	case Done:
		return "done"
	default:
		return ""
	}
}

func fetchProvidersUpdate(seed models.Seed) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchProviders,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Asking providers about %s - %s...", seed.Name, seed.Artist),
	}
}

func mergeUpdate(count int, outcome models.ProviderOutcome) ProgressUpdate {
	return ProgressUpdate{
		Phase:   MergeCandidates,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Merged %d candidates", count),
		Data:    outcome,
	}
}

func rankUpdate(rs models.ResultSet) ProgressUpdate {
	return ProgressUpdate{
		Phase:   RankCandidates,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Ranked %d candidates (%d missing artwork)", len(rs), rs.Missing()),
		Data:    rs,
	}
}

func enrichBatchUpdate(step, total int, snapshot models.ResultSet) ProgressUpdate {
	return ProgressUpdate{
		Phase:   EnrichBatch,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Enriched batch (%d still missing artwork)", step, total, snapshot.Missing()),
		Data:    snapshot,
	}
}

func doneUpdate(batches int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Done,
		Step:    batches,
		Total:   batches,
		Message: "Enrichment complete",
	}
}
