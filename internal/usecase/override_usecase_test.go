package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/linkmark-service/internal/adapter/memory"
	"github.com/user/linkmark-service/internal/entity"
	"github.com/user/linkmark-service/internal/usecase"
)

func TestPageOverrides_DisableEnable(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	overrides := usecase.NewPageOverrides(memory.NewOverrideRepo(), fixedClock(now))
	page := "http://p.test/list?page=2"

	o, err := overrides.Get(ctx, page)
	require.NoError(t, err)
	assert.True(t, o.MarkingEnabled)

	o, err = overrides.Disable(ctx, page)
	require.NoError(t, err)
	assert.False(t, o.MarkingEnabled)
	assert.Equal(t, entity.ToMillis(now), o.DisabledAt)

	other, _ := overrides.Get(ctx, "http://p.test/list?page=3")
	assert.True(t, other.MarkingEnabled, "overrides are keyed by exact URL")

	o, err = overrides.Enable(ctx, page)
	require.NoError(t, err)
	assert.True(t, o.MarkingEnabled)
	assert.Zero(t, o.DisabledAt)
}
