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

func fixedClock(t time.Time) usecase.Clock {
	return func() time.Time { return t }
}

func TestLedger_RecordVisit(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	repo := memory.NewLedgerRepo()
	ledger := usecase.NewLedger(repo, fixedClock(now), nil)

	ts, ok, err := ledger.RecordVisit(ctx, "http://a.test/x", usecase.SourceClick)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, entity.ToMillis(now), ts)

	_, ok, err = ledger.RecordVisit(ctx, "mailto:me@a.test", usecase.SourceClick)
	require.NoError(t, err)
	assert.False(t, ok)

	all, err := ledger.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, entity.Visits{"http://a.test/x": entity.ToMillis(now)}, all)
}

func TestLedger_SessionModeIgnoresPersisted(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewLedgerRepo()
	require.NoError(t, repo.Put(ctx, "http://a.test/", 1))
	ledger := usecase.NewLedger(repo, nil, nil)

	got, err := ledger.Load(ctx, entity.RetentionConfig{Mode: entity.HistorySession})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, 0, repo.Reads())
}

func TestLedger_RetentionRoundTrip(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	repo := memory.NewLedgerRepo()
	ledger := usecase.NewLedger(repo, fixedClock(now), nil)

	for i := 0; i < 6; i++ {
		at := now.Add(-time.Duration(i) * 24 * time.Hour).Add(time.Minute)
		_, err := ledger.RecordVisitAt(ctx, "http://a.test/"+string(rune('a'+i)), at, usecase.SourceHistory)
		require.NoError(t, err)
	}
	cfg := entity.RetentionConfig{Mode: entity.HistoryCustom, CustomDays: 3}

	loaded, err := ledger.Load(ctx, cfg)
	require.NoError(t, err)
	assert.Len(t, loaded, 4)

	n, err := ledger.PurgeExpired(ctx, cfg)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	remaining, err := ledger.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, loaded, remaining)
}

func TestLedger_PurgeNoopOutsideCustom(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewLedgerRepo()
	require.NoError(t, repo.Put(ctx, "http://a.test/", 1))
	ledger := usecase.NewLedger(repo, nil, nil)

	n, err := ledger.PurgeExpired(ctx, entity.RetentionConfig{Mode: entity.HistoryAll})
	require.NoError(t, err)
	assert.Zero(t, n)
}

type failingLedgerRepo struct{ memory.LedgerRepo }

func (*failingLedgerRepo) Put(context.Context, string, int64) error { return errors.New("down") }

func TestLedger_RecordVisitWrapsErrors(t *testing.T) {
	ledger := usecase.NewLedger(&failingLedgerRepo{}, nil, nil)
	_, ok, err := ledger.RecordVisit(context.Background(), "https://a.test/", usecase.SourceClick)
	assert.False(t, ok)
	assert.ErrorContains(t, err, "down")
}
