package entity

// PageOverride is the per-page (exact URL) marking switch. DisabledAt is
// epoch milliseconds, 0 when marking was never disabled or has been
// re-enabled since.
type PageOverride struct {
	PageURL        string
	MarkingEnabled bool
	DisabledAt     int64
}

// DefaultPageOverride is the state of a page with no stored record.
func DefaultPageOverride(pageURL string) PageOverride {
	return PageOverride{PageURL: pageURL, MarkingEnabled: true}
}

// Suppressed reports whether a visit at visitedAt must not be rendered on
// this page: marking is disabled and the visit happened after disablement.
func (o PageOverride) Suppressed(visitedAt int64) bool {
	return !o.MarkingEnabled && o.DisabledAt > 0 && visitedAt > o.DisabledAt
}
