package marker

import (
	"time"

	"github.com/user/linkmark-service/internal/dom"
	"golang.org/x/net/html"
)

const toastTTL = 3300 * time.Millisecond

// notify shows a toast for a user-triggered action. A newer toast
// replaces the current one.
func (e *Engine) notify(text string) {
	e.dismiss()
	body := e.doc.Body()
	if body == nil {
		return
	}
	n := dom.CreateElement("div", html.Attribute{Key: "class", Val: ClassNotification})
	e.doc.AppendChild(body, n)
	e.doc.SetText(n, text)
	e.notification = n
	e.cancelToast = e.scheduler.AfterFunc(toastTTL, func() {
		e.cancelToast = nil
		e.dismiss()
	})
}

// Notification returns the text of the toast on screen, if any.
func (e *Engine) Notification() string {
	if e.notification == nil {
		return ""
	}
	return dom.Text(e.notification)
}

func (e *Engine) dismiss() {
	if e.cancelToast != nil {
		e.cancelToast()
		e.cancelToast = nil
	}
	if e.notification != nil {
		e.doc.Remove(e.notification)
		e.notification = nil
	}
}
