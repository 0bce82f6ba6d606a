package marker

import (
	"context"

	"github.com/user/linkmark-service/internal/dom"
	"github.com/user/linkmark-service/internal/entity"
	"github.com/user/linkmark-service/internal/usecase"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// ToggleVisibility flips whether marks are shown on this page and returns
// the new value. Marks stay attached; only the hidden class changes.
func (e *Engine) ToggleVisibility(ctx context.Context) (bool, error) {
	if err := e.ready(); err != nil {
		return false, err
	}
	e.setVisible(!e.visible)
	if e.visible {
		e.notify("Visited links shown")
	} else {
		e.notify("Visited links hidden")
	}
	return e.visible, nil
}

// setVisible costs O(classified anchors). The first switch to visible
// performs the deferred initial sweep.
func (e *Engine) setVisible(v bool) {
	e.visible = v
	for n := range e.classified {
		if v {
			e.write(dom.RemoveClass(n, ClassHidden))
		} else {
			e.write(dom.AddClass(n, ClassHidden))
		}
	}
	if v && !e.marking {
		e.startMarking()
	}
	if e.state != StateSelecting {
		e.state = e.restingState()
	}
	e.syncControlButton()
}

// ApplySettings replaces the settings value and performs the smallest
// re-render the difference requires.
func (e *Engine) ApplySettings(ctx context.Context, next entity.Settings) error {
	switch e.state {
	case StateUninitialized, StateLoading:
		return ErrNotReady
	}
	next = next.Clone()
	change := next.Diff(e.settings)
	e.settings = next

	excluded := usecase.IsExcluded(e.doc.Hostname(), next.ExcludeSites)
	if e.state == StateExcluded {
		if change.Exclusion && !excluded {
			e.logger.Info("site no longer excluded, activating")
			e.state = StateLoading
			return e.activate(ctx)
		}
		return nil
	}
	if change.Exclusion && excluded {
		e.logger.Info("site excluded, removing marks")
		e.teardown()
		return nil
	}

	if change.Style {
		e.applyStyles()
	}
	if change.Retention {
		if err := e.loadState(ctx); err != nil {
			e.logger.Warn("ledger reload failed", zap.Error(err))
		}
		e.resweep()
	}
	if change.Visibility {
		e.setVisible(next.Visible())
	}
	if change.Control {
		e.syncControlButton()
	}
	return nil
}

// Reload handles page visibility and history navigation: override state
// and ledger are read again and the page is swept from scratch.
func (e *Engine) Reload(ctx context.Context) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := e.loadState(ctx); err != nil {
		e.logger.Warn("page state reload failed", zap.Error(err))
	}
	e.resweep()
	return nil
}

// syncControlButton adds or removes the floating toggle according to
// showControlButton and reflects the current visibility on it.
func (e *Engine) syncControlButton() {
	if !e.settings.ShowControlButton {
		e.removeControlButton()
		return
	}
	if e.floatButton == nil {
		body := e.doc.Body()
		if body == nil {
			return
		}
		btn := dom.CreateElement("div",
			html.Attribute{Key: "id", Val: FloatButtonID},
			html.Attribute{Key: "role", Val: "button"},
			html.Attribute{Key: "title", Val: "Toggle visited links"},
		)
		e.doc.AppendChild(body, btn)
		e.floatButton = btn
	}
	pressed := "false"
	if e.visible {
		pressed = "true"
	}
	dom.SetAttr(e.floatButton, "aria-pressed", pressed)
}

func (e *Engine) removeControlButton() {
	if e.floatButton == nil {
		return
	}
	e.doc.Remove(e.floatButton)
	e.floatButton = nil
}
