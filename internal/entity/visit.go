package entity

import "time"

// VisitRecord is a single ledger entry: the last time URL was visited.
type VisitRecord struct {
	URL       string
	VisitedAt time.Time
}

// Visits is a snapshot of the ledger keyed by URL, values in milliseconds
// since the Unix epoch (the persisted representation).
type Visits map[string]int64

// Clone returns an independent copy of v.
func (v Visits) Clone() Visits {
	out := make(Visits, len(v))
	for k, ts := range v {
		out[k] = ts
	}
	return out
}

// ToMillis converts t to epoch milliseconds.
func ToMillis(t time.Time) int64 {
	return t.UnixMilli()
}

// FromMillis converts epoch milliseconds to a time in the local zone.
func FromMillis(ms int64) time.Time {
	return time.UnixMilli(ms)
}
