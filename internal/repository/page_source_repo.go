package repository

import "context"

// PageSourceRepository renders a live page to its HTML.
type PageSourceRepository interface {
	Render(ctx context.Context, url string) (string, error)
}
