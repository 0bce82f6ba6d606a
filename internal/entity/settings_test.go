package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()
	assert.True(t, s.Visible())
	assert.Equal(t, StyleBorder, s.MarkStyle)
	assert.Equal(t, RetentionConfig{Mode: HistoryAll, CustomDays: 7}, s.Retention())
	assert.NotNil(t, s.ExcludeSites)
}

func TestSettingsDiff(t *testing.T) {
	base := DefaultSettings()

	next := base.Clone()
	assert.False(t, next.Diff(base).Any())

	next.Colors.Today = "#000000"
	c := next.Diff(base)
	assert.True(t, c.Style)
	assert.False(t, c.Visibility)

	next = base.Clone()
	next.ShowCurrentPage = false
	c = next.Diff(base)
	assert.True(t, c.Visibility)
	assert.False(t, c.Style)

	next = base.Clone()
	next.ExcludeSites = append(next.ExcludeSites, "a.test")
	assert.True(t, next.Diff(base).Exclusion)
	assert.Empty(t, base.ExcludeSites)
}

func TestPageOverrideSuppressed(t *testing.T) {
	o := DefaultPageOverride("http://p.test/")
	assert.False(t, o.Suppressed(100))

	o = PageOverride{MarkingEnabled: false, DisabledAt: 1000}
	assert.False(t, o.Suppressed(999))
	assert.False(t, o.Suppressed(1000))
	assert.True(t, o.Suppressed(1001))

	o.MarkingEnabled = true
	o.DisabledAt = 0
	assert.False(t, o.Suppressed(1001))
}

func TestTierString(t *testing.T) {
	for _, tier := range AllTiers {
		got, ok := ParseTier(tier.String())
		assert.True(t, ok)
		assert.Equal(t, tier, got)
	}
	_, ok := ParseTier("never")
	assert.False(t, ok)
	assert.True(t, TierRecent > TierToday && TierToday > TierEarlier)
}
