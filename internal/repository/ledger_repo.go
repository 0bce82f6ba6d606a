package repository

import (
	"context"

	"github.com/user/linkmark-service/internal/entity"
)

// LedgerRepository is the local-store contract for the visit ledger
// (key "visitedLinks": URL -> epoch ms).
type LedgerRepository interface {
	// All returns every persisted entry. An absent ledger is an empty map.
	All(ctx context.Context) (entity.Visits, error)
	// Put stores visitedAt for url. A stored timestamp newer than visitedAt
	// is kept, so concurrent writers never move an entry backwards.
	Put(ctx context.Context, url string, visitedAt int64) error
	// Delete removes the given URLs. Missing URLs are ignored.
	Delete(ctx context.Context, urls ...string) error
}
