package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/user/linkmark-service/internal/entity"
)

const (
	pageMarkingPrefix     = "page_marking:"
	pageDisableTimePrefix = "page_disable_time:"
)

// OverrideRepoImpl stores page overrides as two plain keys per page.
type OverrideRepoImpl struct {
	client *redis.Client
}

// NewOverrideRepo creates a new instance of OverrideRepoImpl.
func NewOverrideRepo(client *redis.Client) *OverrideRepoImpl {
	return &OverrideRepoImpl{client: client}
}

func markingKey(pageURL string) string     { return pageMarkingPrefix + pageURL }
func disableTimeKey(pageURL string) string { return pageDisableTimePrefix + pageURL }

// Get reads both keys. Missing or unparsable values fall back to the
// default override.
func (r *OverrideRepoImpl) Get(ctx context.Context, pageURL string) (entity.PageOverride, error) {
	o := entity.DefaultPageOverride(pageURL)

	enabled, err := r.client.Get(ctx, markingKey(pageURL)).Result()
	switch {
	case errors.Is(err, redis.Nil):
	case err != nil:
		return o, fmt.Errorf("get %s: %w", markingKey(pageURL), err)
	default:
		if b, perr := strconv.ParseBool(enabled); perr == nil {
			o.MarkingEnabled = b
		}
	}

	at, err := r.client.Get(ctx, disableTimeKey(pageURL)).Int64()
	switch {
	case errors.Is(err, redis.Nil):
	case err != nil:
		// A malformed timestamp is treated as absent.
		var numErr *strconv.NumError
		if !errors.As(err, &numErr) {
			return o, fmt.Errorf("get %s: %w", disableTimeKey(pageURL), err)
		}
	default:
		o.DisabledAt = at
	}
	return o, nil
}

// Save writes both keys in one transaction. A zero DisabledAt removes the
// timestamp key.
func (r *OverrideRepoImpl) Save(ctx context.Context, o entity.PageOverride) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, markingKey(o.PageURL), strconv.FormatBool(o.MarkingEnabled), 0)
		if o.DisabledAt > 0 {
			pipe.Set(ctx, disableTimeKey(o.PageURL), o.DisabledAt, 0)
		} else {
			pipe.Del(ctx, disableTimeKey(o.PageURL))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save override for %s: %w", o.PageURL, err)
	}
	return nil
}
