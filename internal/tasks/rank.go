package tasks

import (
	"sort"

	"github.com/desertthunder/dejavu/internal/models"
)

// Rank returns a copy of rs sorted by descending confidence.
// The sort is stable, so equal-confidence candidates keep their merge order.
func Rank(rs models.ResultSet) models.ResultSet {
	out := make(models.ResultSet, len(rs))
	copy(out, rs)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Confidence > out[j].Confidence
	})
	return out
}
