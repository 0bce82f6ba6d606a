package entity

// RecencyTier is the recency bucket a visit falls into.
type RecencyTier int

const (
	TierEarlier RecencyTier = iota
	TierToday
	TierRecent
)

// String returns the value written to the data-visited-marker attribute.
func (t RecencyTier) String() string {
	switch t {
	case TierRecent:
		return "recent"
	case TierToday:
		return "today"
	default:
		return "earlier"
	}
}

// ParseTier is the inverse of String. ok is false for unknown names.
func ParseTier(s string) (tier RecencyTier, ok bool) {
	switch s {
	case "recent":
		return TierRecent, true
	case "today":
		return TierToday, true
	case "earlier":
		return TierEarlier, true
	}
	return TierEarlier, false
}

// AllTiers lists tiers from highest to lowest precedence.
var AllTiers = []RecencyTier{TierRecent, TierToday, TierEarlier}
