package marker

import (
	"context"
	"time"

	"github.com/user/linkmark-service/internal/dom"
	"github.com/user/linkmark-service/internal/usecase"
	"github.com/user/linkmark-service/pkg/utils"
	"golang.org/x/net/html"
)

// SelectionTimeout ends selection mode after this much inactivity.
const SelectionTimeout = 30 * time.Second

const (
	selectionPrompt = "Select a link to mark: Tab or arrows to move, Enter to mark, Esc to cancel"
	selectionHint   = "Click a link to select it"
)

type selection struct {
	links     []*html.Node
	index     int
	box       *html.Node
	listeners dom.ListenerSet
	cancel    func()
}

func (s *selection) current() *html.Node {
	if s.index < 0 || s.index >= len(s.links) {
		return nil
	}
	return s.links[s.index]
}

// EnterSelection starts manual mark selection. Clicks and navigation keys
// are captured until a link is marked, the user cancels or the page goes
// idle for SelectionTimeout.
func (e *Engine) EnterSelection(ctx context.Context) error {
	if err := e.ready(); err != nil {
		return err
	}
	if e.selection != nil {
		return nil
	}
	var links []*html.Node
	for _, a := range e.doc.Anchors() {
		if utils.IsHTTPURL(e.doc.Href(a)) {
			links = append(links, a)
		}
	}
	if len(links) == 0 {
		e.notify("No links on this page")
		return nil
	}

	sel := &selection{links: links, index: -1}
	e.selection = sel
	e.state = StateSelecting

	if body := e.doc.Body(); body != nil {
		dom.AddClass(body, ClassMarkMode)
		sel.box = dom.CreateElement("div", html.Attribute{Key: "class", Val: ClassMessageBox})
		e.doc.AppendChild(body, sel.box)
		e.doc.SetText(sel.box, selectionPrompt)
	}
	sel.listeners.Listen(e.doc, dom.EventKeyDown, e.onSelectionKey)
	sel.listeners.Listen(e.doc, dom.EventClick, e.onSelectionClick)
	e.highlight(0)
	e.touchSelection()
	return nil
}

// Selecting reports the highlighted link while selection mode is active.
func (e *Engine) Selecting() (url string, ok bool) {
	if e.selection == nil {
		return "", false
	}
	if cur := e.selection.current(); cur != nil {
		return e.doc.Href(cur), true
	}
	return "", true
}

func (e *Engine) onSelectionKey(ev *dom.Event) {
	sel := e.selection
	if sel == nil {
		return
	}
	switch {
	case ev.Key == "Escape":
		ev.PreventDefault()
		e.exitSelection()
		e.notify("Selection cancelled")
		return
	case ev.Key == "Enter":
		ev.PreventDefault()
		e.confirmSelection()
		return
	case ev.Key == "Tab" && ev.Shift, ev.Key == "ArrowUp", ev.Key == "ArrowLeft":
		ev.PreventDefault()
		e.highlight(sel.index - 1)
	case ev.Key == "Tab", ev.Key == "ArrowDown", ev.Key == "ArrowRight":
		ev.PreventDefault()
		e.highlight(sel.index + 1)
	default:
		return
	}
	e.touchSelection()
}

func (e *Engine) onSelectionClick(ev *dom.Event) {
	sel := e.selection
	if sel == nil {
		return
	}
	a := e.doc.ClosestAnchor(ev.Target)
	if a == nil || !utils.IsHTTPURL(e.doc.Href(a)) {
		if sel.box != nil {
			e.doc.SetText(sel.box, selectionHint)
		}
		e.touchSelection()
		return
	}
	ev.PreventDefault()
	ev.StopImmediatePropagation()
	if a == sel.current() {
		e.confirmSelection()
		return
	}
	idx := -1
	for i, l := range sel.links {
		if l == a {
			idx = i
			break
		}
	}
	if idx < 0 {
		sel.links = append(sel.links, a)
		idx = len(sel.links) - 1
	}
	e.highlight(idx)
	e.touchSelection()
}

// highlight moves the highlight to i, wrapping at both ends.
func (e *Engine) highlight(i int) {
	sel := e.selection
	n := len(sel.links)
	i = ((i % n) + n) % n
	if cur := sel.current(); cur != nil {
		dom.RemoveClass(cur, ClassHighlight)
	}
	sel.index = i
	dom.AddClass(sel.links[i], ClassHighlight)
}

// touchSelection restarts the inactivity timer.
func (e *Engine) touchSelection() {
	sel := e.selection
	if sel.cancel != nil {
		sel.cancel()
	}
	sel.cancel = e.scheduler.AfterFunc(SelectionTimeout, func() {
		if e.selection != sel {
			return
		}
		sel.cancel = nil
		e.exitSelection()
		e.notify("Selection timed out")
	})
}

func (e *Engine) confirmSelection() {
	cur := e.selection.current()
	if cur == nil {
		return
	}
	url := e.doc.Href(cur)
	e.exitSelection()
	e.markURL(url, usecase.SourceManual)
	e.notify("Link marked")
}

// exitSelection restores the page and returns to the resting state. It is
// a no-op outside selection mode.
func (e *Engine) exitSelection() {
	sel := e.selection
	if sel == nil {
		return
	}
	e.selection = nil
	if sel.cancel != nil {
		sel.cancel()
	}
	sel.listeners.Close()
	if cur := sel.current(); cur != nil {
		dom.RemoveClass(cur, ClassHighlight)
	}
	if sel.box != nil {
		e.doc.Remove(sel.box)
	}
	if body := e.doc.Body(); body != nil {
		dom.RemoveClass(body, ClassMarkMode)
	}
	e.state = e.restingState()
}
