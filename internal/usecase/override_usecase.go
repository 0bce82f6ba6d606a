package usecase

import (
	"context"
	"fmt"

	"github.com/user/linkmark-service/internal/entity"
	"github.com/user/linkmark-service/internal/repository"
)

// PageOverrides manages the per-page marking switch.
type PageOverrides interface {
	Get(ctx context.Context, pageURL string) (entity.PageOverride, error)
	// Disable stops new marks and visits on pageURL from now on.
	Disable(ctx context.Context, pageURL string) (entity.PageOverride, error)
	// Enable lifts the switch and clears the disablement time.
	Enable(ctx context.Context, pageURL string) (entity.PageOverride, error)
}

type pageOverrideUseCase struct {
	repo  repository.PageOverrideRepository
	clock Clock
}

// NewPageOverrides creates a PageOverrides over repo.
func NewPageOverrides(repo repository.PageOverrideRepository, clock Clock) PageOverrides {
	return &pageOverrideUseCase{repo: repo, clock: clock}
}

func (uc *pageOverrideUseCase) Get(ctx context.Context, pageURL string) (entity.PageOverride, error) {
	o, err := uc.repo.Get(ctx, pageURL)
	if err != nil {
		return entity.DefaultPageOverride(pageURL), fmt.Errorf("failed to read page override for %s: %w", pageURL, err)
	}
	return o, nil
}

func (uc *pageOverrideUseCase) Disable(ctx context.Context, pageURL string) (entity.PageOverride, error) {
	o := entity.PageOverride{
		PageURL:        pageURL,
		MarkingEnabled: false,
		DisabledAt:     entity.ToMillis(uc.clock.now()),
	}
	if err := uc.repo.Save(ctx, o); err != nil {
		return o, fmt.Errorf("failed to disable page %s: %w", pageURL, err)
	}
	return o, nil
}

func (uc *pageOverrideUseCase) Enable(ctx context.Context, pageURL string) (entity.PageOverride, error) {
	o := entity.DefaultPageOverride(pageURL)
	if err := uc.repo.Save(ctx, o); err != nil {
		return o, fmt.Errorf("failed to enable page %s: %w", pageURL, err)
	}
	return o, nil
}
