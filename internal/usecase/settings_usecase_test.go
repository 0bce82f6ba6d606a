package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/linkmark-service/internal/adapter/memory"
	"github.com/user/linkmark-service/internal/entity"
	"github.com/user/linkmark-service/internal/usecase"
)

func TestSettingsService_RejectsInvalidDomain(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewSettingsRepo()
	svc := usecase.NewSettingsService(repo, nil)

	s := entity.DefaultSettings()
	s.ExcludeSites = []string{"good.test", "not a domain"}
	_, err := svc.Save(ctx, s)
	assert.True(t, errors.Is(err, usecase.ErrInvalidDomain))

	stored, err := svc.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, stored.ExcludeSites)
}

func TestSettingsService_NormalisesSites(t *testing.T) {
	ctx := context.Background()
	svc := usecase.NewSettingsService(memory.NewSettingsRepo(), nil)

	s := entity.DefaultSettings()
	s.ExcludeSites = []string{"A.test", "a.test", "b.test"}
	saved, err := svc.Save(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.test", "b.test"}, saved.ExcludeSites)
}

func TestSettingsService_RejectsBadEnums(t *testing.T) {
	ctx := context.Background()
	svc := usecase.NewSettingsService(memory.NewSettingsRepo(), nil)

	s := entity.DefaultSettings()
	s.MarkStyle = "sparkles"
	_, err := svc.Save(ctx, s)
	assert.True(t, errors.Is(err, usecase.ErrInvalidSettings))

	s = entity.DefaultSettings()
	s.HistoryMode = "forever"
	_, err = svc.Save(ctx, s)
	assert.True(t, errors.Is(err, usecase.ErrInvalidSettings))

	s = entity.DefaultSettings()
	s.CustomRetentionTime = 0
	_, err = svc.Save(ctx, s)
	assert.True(t, errors.Is(err, usecase.ErrInvalidSettings))
}

func TestSettingsService_ExcludeSite(t *testing.T) {
	ctx := context.Background()
	svc := usecase.NewSettingsService(memory.NewSettingsRepo(), nil)

	domain, added, err := svc.ExcludeSite(ctx, "https://News.Example.com/article?id=1")
	require.NoError(t, err)
	assert.True(t, added)
	assert.Equal(t, "news.example.com", domain)

	_, added, err = svc.ExcludeSite(ctx, "news.example.com")
	require.NoError(t, err)
	assert.False(t, added)

	_, _, err = svc.ExcludeSite(ctx, "localhost")
	assert.True(t, errors.Is(err, usecase.ErrInvalidDomain))
}

func TestSettingsService_EnsureAutoEnable(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewSettingsRepo()
	svc := usecase.NewSettingsService(repo, nil)

	s := entity.DefaultSettings()
	s.Enabled = false
	require.NoError(t, repo.Save(ctx, s))

	require.NoError(t, svc.EnsureAutoEnable(ctx))
	got, _ := svc.Load(ctx)
	assert.True(t, got.Enabled)

	s.AutoEnable = false
	require.NoError(t, repo.Save(ctx, s))
	require.NoError(t, svc.EnsureAutoEnable(ctx))
	got, _ = svc.Load(ctx)
	assert.False(t, got.Enabled)
}

func TestCleaner_RunOnce(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	ledgerRepo := memory.NewLedgerRepo()
	settingsRepo := memory.NewSettingsRepo()
	ledger := usecase.NewLedger(ledgerRepo, fixedClock(now), nil)
	settings := usecase.NewSettingsService(settingsRepo, nil)
	cleaner := usecase.NewCleaner(ledger, settings, time.Hour, nil)

	require.NoError(t, ledgerRepo.Put(ctx, "http://old.test/", entity.ToMillis(now.Add(-10*24*time.Hour))))
	require.NoError(t, ledgerRepo.Put(ctx, "http://new.test/", entity.ToMillis(now.Add(-time.Hour))))

	n, err := cleaner.RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "autoClean is off by default")

	s := entity.DefaultSettings()
	s.AutoClean = true
	s.CleanPeriod = 7
	require.NoError(t, settingsRepo.Save(ctx, s))

	n, err = cleaner.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	left, _ := ledger.Snapshot(ctx)
	assert.Contains(t, left, "http://new.test/")
	assert.NotContains(t, left, "http://old.test/")
}
