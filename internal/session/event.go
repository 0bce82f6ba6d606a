package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/user/linkmark-service/internal/dom"
	"golang.org/x/net/html"
)

// Event types a client can replay into a page.
const (
	EventClick      = "click"
	EventKeyDown    = "keydown"
	EventInsert     = "insert"
	EventRemove     = "remove"
	EventVisibility = "visibility"
	EventPopState   = "popstate"
)

var (
	ErrUnknownEvent = errors.New("unknown event type")
	ErrNoTarget     = errors.New("no element matches selector")
)

// Event is a browser-side occurrence on the page.
type Event struct {
	Type     string `json:"type"`
	Selector string `json:"selector,omitempty"`
	Key      string `json:"key,omitempty"`
	Shift    bool   `json:"shift,omitempty"`
	HTML     string `json:"html,omitempty"`
}

// EventResult reports what the page did with an event.
type EventResult struct {
	// DefaultPrevented is true when a click or key was captured, for
	// example by selection mode, and must not navigate.
	DefaultPrevented bool `json:"defaultPrevented"`
	Info             Info `json:"page"`
}

// Event replays ev on the page.
func (m *Manager) Event(ctx context.Context, id string, ev Event) (EventResult, error) {
	p, err := m.page(id)
	if err != nil {
		return EventResult{}, err
	}
	var res EventResult
	err = p.do(ctx, func() error {
		prevented, err := p.apply(ev)
		if err != nil {
			return err
		}
		// Observers run before the response is built.
		p.engine.Document().Flush()
		res = EventResult{DefaultPrevented: prevented, Info: p.info()}
		return nil
	})
	return res, err
}

func (p *Page) apply(ev Event) (bool, error) {
	doc := p.engine.Document()
	switch ev.Type {
	case EventClick:
		target, err := p.target(ev.Selector)
		if err != nil {
			return false, err
		}
		return !doc.Dispatch(&dom.Event{Type: dom.EventClick, Target: target}), nil
	case EventKeyDown:
		if ev.Key == "" {
			return false, errors.New("keydown without key")
		}
		return !doc.Dispatch(&dom.Event{Type: dom.EventKeyDown, Target: doc.Body(), Key: ev.Key, Shift: ev.Shift}), nil
	case EventInsert:
		parent := doc.Body()
		if ev.Selector != "" {
			t, err := p.target(ev.Selector)
			if err != nil {
				return false, err
			}
			parent = t
		}
		_, err := doc.InsertHTML(parent, ev.HTML)
		return false, err
	case EventRemove:
		nodes := doc.Query(ev.Selector)
		if ev.Selector == "" || len(nodes) == 0 {
			return false, ErrNoTarget
		}
		for _, n := range nodes {
			doc.Remove(n)
		}
		return false, nil
	case EventVisibility, EventPopState:
		return false, p.engine.Reload(p.ctx)
	}
	return false, fmt.Errorf("%w: %q", ErrUnknownEvent, ev.Type)
}

func (p *Page) target(selector string) (*html.Node, error) {
	if selector == "" {
		return nil, ErrNoTarget
	}
	nodes := p.engine.Document().Query(selector)
	if len(nodes) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoTarget, selector)
	}
	return nodes[0], nil
}
