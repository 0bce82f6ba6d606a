// Package memory provides process-local implementations of the storage
// contracts. They back tests and the single-node development mode.
package memory

import (
	"context"
	"sync"

	"github.com/user/linkmark-service/internal/entity"
)

// LedgerRepo is an in-memory visit ledger.
type LedgerRepo struct {
	mu     sync.Mutex
	visits entity.Visits
	reads  int
}

// NewLedgerRepo creates an empty ledger.
func NewLedgerRepo() *LedgerRepo {
	return &LedgerRepo{visits: entity.Visits{}}
}

func (r *LedgerRepo) All(ctx context.Context) (entity.Visits, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reads++
	return r.visits.Clone(), nil
}

func (r *LedgerRepo) Put(ctx context.Context, url string, visitedAt int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.visits[url]; !ok || visitedAt > cur {
		r.visits[url] = visitedAt
	}
	return nil
}

func (r *LedgerRepo) Delete(ctx context.Context, urls ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range urls {
		delete(r.visits, u)
	}
	return nil
}

// Reads reports how many times All has been called.
func (r *LedgerRepo) Reads() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reads
}

// OverrideRepo is an in-memory page override store.
type OverrideRepo struct {
	mu    sync.Mutex
	pages map[string]entity.PageOverride
}

// NewOverrideRepo creates an empty override store.
func NewOverrideRepo() *OverrideRepo {
	return &OverrideRepo{pages: make(map[string]entity.PageOverride)}
}

func (r *OverrideRepo) Get(ctx context.Context, pageURL string) (entity.PageOverride, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if o, ok := r.pages[pageURL]; ok {
		return o, nil
	}
	return entity.DefaultPageOverride(pageURL), nil
}

func (r *OverrideRepo) Save(ctx context.Context, o entity.PageOverride) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pages[o.PageURL] = o
	return nil
}

// SettingsRepo is an in-memory synced store with change notification.
type SettingsRepo struct {
	mu       sync.Mutex
	settings entity.Settings
	watchers []chan entity.Settings
}

// NewSettingsRepo creates a store holding entity.DefaultSettings.
func NewSettingsRepo() *SettingsRepo {
	return &SettingsRepo{settings: entity.DefaultSettings()}
}

func (r *SettingsRepo) Load(ctx context.Context) (entity.Settings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.settings.Clone(), nil
}

func (r *SettingsRepo) Save(ctx context.Context, s entity.Settings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.settings = s.Clone()
	for _, ch := range r.watchers {
		select {
		case ch <- r.settings.Clone():
		default:
			// Slow watcher; it will reload on the next change.
		}
	}
	return nil
}

func (r *SettingsRepo) Watch(ctx context.Context) (<-chan entity.Settings, error) {
	ch := make(chan entity.Settings, 8)
	r.mu.Lock()
	r.watchers = append(r.watchers, ch)
	r.mu.Unlock()

	go func() {
		<-ctx.Done()
		r.mu.Lock()
		defer r.mu.Unlock()
		for i, w := range r.watchers {
			if w == ch {
				r.watchers = append(r.watchers[:i], r.watchers[i+1:]...)
				break
			}
		}
		close(ch)
	}()
	return ch, nil
}
