package usecase

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/user/linkmark-service/internal/entity"
	"github.com/user/linkmark-service/internal/repository"
	"github.com/user/linkmark-service/pkg/utils"
	"go.uber.org/zap"
)

var ErrInvalidSettings = errors.New("invalid settings")

// SettingsService is the configuration boundary. Everything it persists has
// been validated; invalid input is rejected and never stored.
type SettingsService interface {
	Load(ctx context.Context) (entity.Settings, error)
	Save(ctx context.Context, s entity.Settings) (entity.Settings, error)
	// ExcludeSite adds the host of rawURLOrDomain to the exclusion list.
	// added is false when it was already present.
	ExcludeSite(ctx context.Context, rawURLOrDomain string) (domain string, added bool, err error)
	// EnsureAutoEnable turns marking back on at startup when the user
	// asked for that.
	EnsureAutoEnable(ctx context.Context) error
	Watch(ctx context.Context) (<-chan entity.Settings, error)
}

type settingsUseCase struct {
	repo   repository.SettingsRepository
	logger *zap.Logger
}

// NewSettingsService creates a SettingsService over repo.
func NewSettingsService(repo repository.SettingsRepository, logger *zap.Logger) SettingsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &settingsUseCase{repo: repo, logger: logger}
}

// ValidateSettings normalises s and rejects values the engine cannot use.
func ValidateSettings(s entity.Settings) (entity.Settings, error) {
	out := s.Clone()
	if !out.MarkStyle.Valid() {
		return s, fmt.Errorf("%w: unknown markStyle %q", ErrInvalidSettings, s.MarkStyle)
	}
	switch out.HistoryMode {
	case entity.HistoryAll, entity.HistorySession, entity.HistoryCustom:
	default:
		return s, fmt.Errorf("%w: unknown historyMode %q", ErrInvalidSettings, s.HistoryMode)
	}
	if out.CustomRetentionTime < 1 {
		return s, fmt.Errorf("%w: customRetentionTime must be at least 1 day", ErrInvalidSettings)
	}
	if out.CleanPeriod < 1 {
		return s, fmt.Errorf("%w: cleanPeriod must be at least 1 day", ErrInvalidSettings)
	}
	sites := make([]string, 0, len(out.ExcludeSites))
	for _, site := range out.ExcludeSites {
		if err := ValidateDomain(site); err != nil {
			return s, err
		}
		site = NormalizeDomain(site)
		if !slices.Contains(sites, site) {
			sites = append(sites, site)
		}
	}
	out.ExcludeSites = sites
	return out, nil
}

func (uc *settingsUseCase) Load(ctx context.Context) (entity.Settings, error) {
	s, err := uc.repo.Load(ctx)
	if err != nil {
		return entity.DefaultSettings(), fmt.Errorf("failed to load settings: %w", err)
	}
	return s, nil
}

func (uc *settingsUseCase) Save(ctx context.Context, s entity.Settings) (entity.Settings, error) {
	valid, err := ValidateSettings(s)
	if err != nil {
		return s, err
	}
	if err := uc.repo.Save(ctx, valid); err != nil {
		return s, fmt.Errorf("failed to save settings: %w", err)
	}
	return valid, nil
}

func (uc *settingsUseCase) ExcludeSite(ctx context.Context, rawURLOrDomain string) (string, bool, error) {
	domain := NormalizeDomain(rawURLOrDomain)
	if utils.IsHTTPURL(rawURLOrDomain) {
		domain = utils.Hostname(rawURLOrDomain)
	}
	if err := ValidateDomain(domain); err != nil {
		return domain, false, err
	}

	s, err := uc.Load(ctx)
	if err != nil {
		return domain, false, err
	}
	if slices.Contains(s.ExcludeSites, domain) {
		return domain, false, nil
	}
	next := s.Clone()
	next.ExcludeSites = append(next.ExcludeSites, domain)
	if _, err := uc.Save(ctx, next); err != nil {
		return domain, false, err
	}
	uc.logger.Info("site excluded", zap.String("domain", domain))
	return domain, true, nil
}

func (uc *settingsUseCase) EnsureAutoEnable(ctx context.Context) error {
	s, err := uc.Load(ctx)
	if err != nil {
		return err
	}
	if !s.AutoEnable || s.Enabled {
		return nil
	}
	next := s.Clone()
	next.Enabled = true
	if _, err := uc.Save(ctx, next); err != nil {
		return err
	}
	uc.logger.Info("marking auto-enabled on startup")
	return nil
}

func (uc *settingsUseCase) Watch(ctx context.Context) (<-chan entity.Settings, error) {
	return uc.repo.Watch(ctx)
}
