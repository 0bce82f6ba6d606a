package dom

import "golang.org/x/net/html"

// MutationRecord is one childList change.
type MutationRecord struct {
	Target  *html.Node
	Added   []*html.Node
	Removed []*html.Node
}

type observer struct {
	fn      func([]MutationRecord)
	pending []MutationRecord
	active  bool
}

// Observe registers fn to receive childList records for the whole subtree.
// Records queue up until Flush; fn only sees records queued after it was
// registered. The returned disconnect discards anything still pending.
func (d *Document) Observe(fn func([]MutationRecord)) (disconnect func()) {
	o := &observer{fn: fn, active: true}
	d.observers = append(d.observers, o)
	return func() {
		if !o.active {
			return
		}
		o.active = false
		o.pending = nil
		for i, cur := range d.observers {
			if cur == o {
				d.observers = append(d.observers[:i], d.observers[i+1:]...)
				break
			}
		}
	}
}

func (d *Document) queue(rec MutationRecord) {
	for _, o := range d.observers {
		o.pending = append(o.pending, rec)
	}
}

// Pending reports how many records are waiting across all observers.
func (d *Document) Pending() int {
	n := 0
	for _, o := range d.observers {
		n += len(o.pending)
	}
	return n
}

// Flush delivers queued records, one batch per observer, and returns how
// many batches were delivered. Mutations made by a callback are queued for
// the next Flush rather than delivered re-entrantly.
func (d *Document) Flush() int {
	delivered := 0
	for _, o := range append([]*observer(nil), d.observers...) {
		if !o.active || len(o.pending) == 0 {
			continue
		}
		batch := o.pending
		o.pending = nil
		o.fn(batch)
		delivered++
	}
	return delivered
}
