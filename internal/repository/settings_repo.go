package repository

import (
	"context"

	"github.com/user/linkmark-service/internal/entity"
)

// SettingsRepository is the synced-store contract for user configuration.
type SettingsRepository interface {
	// Load returns the stored settings with every missing key filled from
	// entity.DefaultSettings.
	Load(ctx context.Context) (entity.Settings, error)
	// Save writes every key of s.
	Save(ctx context.Context, s entity.Settings) error
	// Watch streams the full settings value after each change made by any
	// writer. The channel closes when ctx is done.
	Watch(ctx context.Context) (<-chan entity.Settings, error)
}
