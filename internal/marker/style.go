package marker

import (
	"fmt"
	"strings"

	"github.com/user/linkmark-service/internal/dom"
	"github.com/user/linkmark-service/internal/entity"
	"golang.org/x/net/html"
)

// DOM names written by the engine.
const (
	AttrMarker  = "data-visited-marker"
	AttrTime    = "data-visited-time"
	ClassHidden = "visited-marker-hidden"

	StyleID       = "visited-links-marker-style"
	FloatButtonID = "visited-links-float-button"

	ClassNotification = "visited-links-notification"
	ClassMessageBox   = "visited-links-message-box"
	ClassMarkMode     = "visited-links-mark-mode"
	ClassHighlight    = "visited-links-highlight"
)

const staticRules = `a.visited-marker-hidden[data-visited-marker] {
  outline: none !important;
  background-color: transparent !important;
  border-bottom: none !important;
}
#visited-links-float-button {
  position: fixed; right: 20px; bottom: 20px; z-index: 2147483646;
  width: 40px; height: 40px; border-radius: 50%; cursor: pointer;
}
.visited-links-notification {
  position: fixed; top: 20px; right: 20px; z-index: 2147483647;
  padding: 10px 16px; border-radius: 4px; background: #333; color: #fff;
}
.visited-links-message-box {
  position: fixed; top: 20px; left: 50%; transform: translateX(-50%);
  z-index: 2147483647; padding: 10px 16px; background: #fffbe6; color: #333;
}
body.visited-links-mark-mode a { cursor: crosshair !important; }
a.visited-links-highlight { outline: 3px dashed #1e90ff !important; }
`

// StyleRules renders the stylesheet for one style family.
func StyleRules(style entity.MarkStyle, colors entity.Colors) string {
	var b strings.Builder
	b.WriteString(staticRules)
	for _, tier := range entity.AllTiers {
		fmt.Fprintf(&b, "a[%s=%q]:not(.%s) { %s }\n",
			AttrMarker, tier.String(), ClassHidden, declaration(style, colors.For(tier)))
	}
	return b.String()
}

func declaration(style entity.MarkStyle, color string) string {
	switch style {
	case entity.StyleBackground:
		return fmt.Sprintf("background-color: %s33 !important;", color)
	case entity.StyleUnderline:
		return fmt.Sprintf("border-bottom: 2px solid %s !important;", color)
	default:
		return fmt.Sprintf("outline: 2px solid %s !important; outline-offset: 1px;", color)
	}
}

// applyStyles replaces the engine stylesheet in <head>. Marks are not
// touched.
func (e *Engine) applyStyles() {
	head := e.doc.Head()
	if head == nil {
		return
	}
	if old := e.doc.ElementByID(StyleID); old != nil {
		e.doc.Remove(old)
	}
	style := dom.CreateElement("style", html.Attribute{Key: "id", Val: StyleID})
	e.doc.AppendChild(head, style)
	e.doc.SetText(style, StyleRules(e.settings.MarkStyle, e.settings.Colors))
}
