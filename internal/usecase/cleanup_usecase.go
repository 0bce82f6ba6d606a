package usecase

import (
	"context"
	"time"

	"github.com/user/linkmark-service/internal/entity"
	"go.uber.org/zap"
)

// Cleaner periodically purges ledger entries older than the configured
// clean period when auto-clean is on. It runs independently of any page.
type Cleaner struct {
	ledger   Ledger
	settings SettingsService
	interval time.Duration
	logger   *zap.Logger
}

// NewCleaner creates a Cleaner. interval defaults to 24h.
func NewCleaner(ledger Ledger, settings SettingsService, interval time.Duration, logger *zap.Logger) *Cleaner {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cleaner{ledger: ledger, settings: settings, interval: interval, logger: logger}
}

// RunOnce performs a single cleanup pass and returns the number of purged
// entries.
func (c *Cleaner) RunOnce(ctx context.Context) (int, error) {
	s, err := c.settings.Load(ctx)
	if err != nil {
		return 0, err
	}
	if !s.AutoClean {
		return 0, nil
	}
	return c.ledger.PurgeExpired(ctx, entity.RetentionConfig{
		Mode:       entity.HistoryCustom,
		CustomDays: s.CleanPeriod,
	})
}

// Run cleans immediately and then once per interval until ctx is done.
func (c *Cleaner) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		if _, err := c.RunOnce(ctx); err != nil {
			c.logger.Warn("ledger cleanup failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
