package repository

import (
	"context"

	"github.com/user/linkmark-service/internal/entity"
)

// PageOverrideRepository stores per-page marking state under the keys
// "page_marking:<pageURL>" and "page_disable_time:<pageURL>".
type PageOverrideRepository interface {
	// Get returns the stored override, or entity.DefaultPageOverride when
	// nothing has been stored for pageURL.
	Get(ctx context.Context, pageURL string) (entity.PageOverride, error)
	// Save writes both keys of the override.
	Save(ctx context.Context, o entity.PageOverride) error
}
