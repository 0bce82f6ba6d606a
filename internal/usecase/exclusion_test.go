package usecase

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsExcluded(t *testing.T) {
	sites := []string{"example.com", "Tracker.NET"}

	assert.True(t, IsExcluded("example.com", sites))
	assert.True(t, IsExcluded("news.example.com", sites))
	assert.True(t, IsExcluded("a.b.tracker.net", sites))
	assert.False(t, IsExcluded("badexample.com", sites))
	assert.False(t, IsExcluded("example.com.evil.test", sites))
	assert.False(t, IsExcluded("", sites))
	assert.False(t, IsExcluded("example.com", nil))
}

func TestValidateDomain(t *testing.T) {
	for _, ok := range []string{"example.com", "a-b.example.co.uk", " News.Test.org "} {
		assert.NoError(t, ValidateDomain(ok), ok)
	}
	for _, bad := range []string{"", "localhost", "http://example.com", "-a.com", "a..com", "exa mple.com"} {
		err := ValidateDomain(bad)
		assert.True(t, errors.Is(err, ErrInvalidDomain), bad)
	}
}
