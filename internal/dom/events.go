package dom

import "golang.org/x/net/html"

// EventType names a document-level event.
type EventType string

const (
	EventClick   EventType = "click"
	EventKeyDown EventType = "keydown"
)

// Event is dispatched to document listeners in registration order.
type Event struct {
	Type   EventType
	Target *html.Node
	Key    string
	Shift  bool

	defaultPrevented bool
	stopped          bool
}

// PreventDefault cancels the default action (navigation for clicks).
func (e *Event) PreventDefault() { e.defaultPrevented = true }

// DefaultPrevented reports whether a listener cancelled the default action.
func (e *Event) DefaultPrevented() bool { return e.defaultPrevented }

// StopImmediatePropagation skips the remaining listeners.
func (e *Event) StopImmediatePropagation() { e.stopped = true }

type listener struct {
	typ    EventType
	fn     func(*Event)
	active bool
}

// AddEventListener registers fn for events of type t. The returned remove
// is safe to call more than once.
func (d *Document) AddEventListener(t EventType, fn func(*Event)) (remove func()) {
	l := &listener{typ: t, fn: fn, active: true}
	d.listeners = append(d.listeners, l)
	return func() {
		if !l.active {
			return
		}
		l.active = false
		for i, cur := range d.listeners {
			if cur == l {
				d.listeners = append(d.listeners[:i], d.listeners[i+1:]...)
				break
			}
		}
	}
}

// ListenerCount reports how many listeners of type t are registered.
func (d *Document) ListenerCount(t EventType) int {
	n := 0
	for _, l := range d.listeners {
		if l.typ == t {
			n++
		}
	}
	return n
}

// ObserverCount reports how many mutation observers are connected.
func (d *Document) ObserverCount() int { return len(d.observers) }

// Dispatch delivers e and reports whether the default action should run.
func (d *Document) Dispatch(e *Event) bool {
	for _, l := range append([]*listener(nil), d.listeners...) {
		if !l.active || l.typ != e.Type {
			continue
		}
		l.fn(e)
		if e.stopped {
			break
		}
	}
	return !e.defaultPrevented
}

// ListenerSet owns a group of registrations and tears them all down at
// once. Close is idempotent.
type ListenerSet struct {
	removers []func()
}

// Add takes ownership of a remove/disconnect function.
func (s *ListenerSet) Add(remove func()) {
	s.removers = append(s.removers, remove)
}

// Listen registers fn on d and tracks it in the set.
func (s *ListenerSet) Listen(d *Document, t EventType, fn func(*Event)) {
	s.Add(d.AddEventListener(t, fn))
}

// Observe connects a mutation observer tracked by the set.
func (s *ListenerSet) Observe(d *Document, fn func([]MutationRecord)) {
	s.Add(d.Observe(fn))
}

// Len reports how many registrations are held.
func (s *ListenerSet) Len() int { return len(s.removers) }

// Close removes every registration in reverse order.
func (s *ListenerSet) Close() {
	for i := len(s.removers) - 1; i >= 0; i-- {
		s.removers[i]()
	}
	s.removers = nil
}
