package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/user/linkmark-service/internal/entity"
	"github.com/user/linkmark-service/internal/repository"
	"github.com/user/linkmark-service/pkg/metrics"
	"github.com/user/linkmark-service/pkg/utils"
	"go.uber.org/zap"
)

// VisitSource labels where a visit came from.
type VisitSource string

const (
	SourceClick   VisitSource = "click"
	SourceHistory VisitSource = "history"
	SourceForce   VisitSource = "force"
	SourceManual  VisitSource = "manual"
)

// Ledger owns the URL -> last-visit mapping.
type Ledger interface {
	// RecordVisit stamps url with the current time. ok is false, with no
	// error, when url is not http(s).
	RecordVisit(ctx context.Context, url string, source VisitSource) (visitedAt int64, ok bool, err error)
	// RecordVisitAt stamps url with an externally supplied time, as the
	// browser history source does.
	RecordVisitAt(ctx context.Context, url string, at time.Time, source VisitSource) (ok bool, err error)
	// Load returns the persisted entries in scope under cfg.
	Load(ctx context.Context, cfg entity.RetentionConfig) (entity.Visits, error)
	// Snapshot returns every persisted entry regardless of retention.
	Snapshot(ctx context.Context) (entity.Visits, error)
	// PurgeExpired deletes persisted entries outside cfg's window.
	PurgeExpired(ctx context.Context, cfg entity.RetentionConfig) (int, error)
}

type ledgerUseCase struct {
	repo   repository.LedgerRepository
	clock  Clock
	logger *zap.Logger
}

// NewLedger creates a Ledger over repo. A nil clock uses time.Now.
func NewLedger(repo repository.LedgerRepository, clock Clock, logger *zap.Logger) Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ledgerUseCase{repo: repo, clock: clock, logger: logger}
}

func (uc *ledgerUseCase) RecordVisit(ctx context.Context, url string, source VisitSource) (int64, bool, error) {
	ts := entity.ToMillis(uc.clock.now())
	ok, err := uc.put(ctx, url, ts, source)
	return ts, ok, err
}

func (uc *ledgerUseCase) RecordVisitAt(ctx context.Context, url string, at time.Time, source VisitSource) (bool, error) {
	if at.IsZero() {
		at = uc.clock.now()
	}
	return uc.put(ctx, url, entity.ToMillis(at), source)
}

func (uc *ledgerUseCase) put(ctx context.Context, url string, ts int64, source VisitSource) (bool, error) {
	if !utils.IsHTTPURL(url) {
		uc.logger.Debug("ignoring non-http visit", zap.String("url", url))
		return false, nil
	}
	if err := uc.repo.Put(ctx, url, ts); err != nil {
		return false, fmt.Errorf("failed to record visit for %s: %w", url, err)
	}
	metrics.VisitsRecorded.WithLabelValues(string(source)).Inc()
	return true, nil
}

func (uc *ledgerUseCase) Load(ctx context.Context, cfg entity.RetentionConfig) (entity.Visits, error) {
	if cfg.Mode == entity.HistorySession {
		return entity.Visits{}, nil
	}
	all, err := uc.repo.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger: %w", err)
	}
	return FilterVisits(cfg, all, uc.clock.now()), nil
}

func (uc *ledgerUseCase) Snapshot(ctx context.Context) (entity.Visits, error) {
	all, err := uc.repo.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger: %w", err)
	}
	return all, nil
}

func (uc *ledgerUseCase) PurgeExpired(ctx context.Context, cfg entity.RetentionConfig) (int, error) {
	if cfg.Mode != entity.HistoryCustom {
		return 0, nil
	}
	all, err := uc.repo.All(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load ledger for purge: %w", err)
	}
	expired := ExpiredURLs(cfg, all, uc.clock.now())
	if len(expired) == 0 {
		return 0, nil
	}
	if err := uc.repo.Delete(ctx, expired...); err != nil {
		return 0, fmt.Errorf("failed to purge %d ledger entries: %w", len(expired), err)
	}
	metrics.LedgerPurged.Add(float64(len(expired)))
	uc.logger.Info("purged expired ledger entries", zap.Int("count", len(expired)), zap.Int("days", cfg.CustomDays))
	return len(expired), nil
}
