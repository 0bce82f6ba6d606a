package usecase

import (
	"time"

	"github.com/user/linkmark-service/internal/entity"
)

const (
	day = 24 * time.Hour

	defaultRetentionDays = 7
)

// retentionWindow is the custom window length, falling back to the default
// when the configured day count is not positive.
func retentionWindow(cfg entity.RetentionConfig) time.Duration {
	days := cfg.CustomDays
	if days <= 0 {
		days = defaultRetentionDays
	}
	return time.Duration(days) * day
}

// InScope reports whether a persisted visit at visitedAt (epoch ms) is
// visible under cfg at now. Session mode never consults persisted entries.
func InScope(cfg entity.RetentionConfig, visitedAt int64, now time.Time) bool {
	switch cfg.Mode {
	case entity.HistorySession:
		return false
	case entity.HistoryCustom:
		age := now.Sub(entity.FromMillis(visitedAt))
		return age < retentionWindow(cfg)
	default:
		return true
	}
}

// FilterVisits returns the entries of visits in scope under cfg.
func FilterVisits(cfg entity.RetentionConfig, visits entity.Visits, now time.Time) entity.Visits {
	out := make(entity.Visits, len(visits))
	if cfg.Mode == entity.HistorySession {
		return out
	}
	for url, ts := range visits {
		if InScope(cfg, ts, now) {
			out[url] = ts
		}
	}
	return out
}

// ExpiredURLs returns the URLs that fall outside a custom window and may be
// purged. All and session modes never expire persisted entries.
func ExpiredURLs(cfg entity.RetentionConfig, visits entity.Visits, now time.Time) []string {
	if cfg.Mode != entity.HistoryCustom {
		return nil
	}
	var out []string
	for url, ts := range visits {
		if !InScope(cfg, ts, now) {
			out = append(out, url)
		}
	}
	return out
}
