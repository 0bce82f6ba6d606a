package redis

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/user/linkmark-service/internal/entity"
)

// ledgerKey is the local-store hash holding URL -> last visit (epoch ms).
const ledgerKey = "visitedLinks"

// putNewer writes ARGV[2] under field ARGV[1] unless a newer timestamp is
// already stored. Running it server-side keeps concurrent writers from
// moving an entry backwards.
var putNewer = redis.NewScript(`
local cur = redis.call('HGET', KEYS[1], ARGV[1])
if cur and tonumber(cur) and tonumber(cur) >= tonumber(ARGV[2]) then
  return 0
end
redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
return 1
`)

// LedgerRepoImpl stores the visit ledger in a single Redis hash.
type LedgerRepoImpl struct {
	client *redis.Client
}

// NewLedgerRepo creates a new instance of LedgerRepoImpl.
func NewLedgerRepo(client *redis.Client) *LedgerRepoImpl {
	return &LedgerRepoImpl{client: client}
}

// All returns every entry. Fields that do not hold an integer are skipped.
func (r *LedgerRepoImpl) All(ctx context.Context) (entity.Visits, error) {
	raw, err := r.client.HGetAll(ctx, ledgerKey).Result()
	if err != nil {
		return nil, fmt.Errorf("hgetall %s: %w", ledgerKey, err)
	}
	visits := make(entity.Visits, len(raw))
	for url, v := range raw {
		ts, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			continue
		}
		visits[url] = ts
	}
	return visits, nil
}

// Put records visitedAt for url, keeping a newer stored value.
func (r *LedgerRepoImpl) Put(ctx context.Context, url string, visitedAt int64) error {
	return putNewer.Run(ctx, r.client, []string{ledgerKey}, url, visitedAt).Err()
}

// Delete removes the given URLs from the hash.
func (r *LedgerRepoImpl) Delete(ctx context.Context, urls ...string) error {
	if len(urls) == 0 {
		return nil
	}
	return r.client.HDel(ctx, ledgerKey, urls...).Err()
}
