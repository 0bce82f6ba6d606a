package usecase

import (
	"time"

	"github.com/user/linkmark-service/internal/entity"
)

const recentWindow = time.Hour

// Classify maps a visit (epoch ms) to its tier relative to now. It must be
// evaluated on every sweep: tiers only ever decay as now advances.
func Classify(visitedAt int64, now time.Time) entity.RecencyTier {
	visit := entity.FromMillis(visitedAt)
	if now.Sub(visit) < recentWindow {
		return entity.TierRecent
	}
	y, m, d := now.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	if !visit.Before(midnight) {
		return entity.TierToday
	}
	return entity.TierEarlier
}
