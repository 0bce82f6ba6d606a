package marker

import (
	"context"
	"fmt"
	"slices"

	"github.com/user/linkmark-service/internal/dom"
	"github.com/user/linkmark-service/internal/usecase"
	"github.com/user/linkmark-service/pkg/utils"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// ForceMark records url as visited now and marks every anchor pointing to
// it, even while page marking is disabled.
func (e *Engine) ForceMark(ctx context.Context, url string) error {
	if err := e.ready(); err != nil {
		return err
	}
	if !utils.IsHTTPURL(url) {
		return ErrInvalidLink
	}
	n := e.markURL(url, usecase.SourceForce)
	e.logger.Debug("force marked")
	e.notify(fmt.Sprintf("Link marked (%d on page)", n))
	return nil
}

// markURL writes the visit and re-classifies the matching anchors.
func (e *Engine) markURL(url string, source usecase.VisitSource) int {
	if e.registerVisit(url, source) == 0 {
		return 0
	}
	e.forced[url] = struct{}{}
	marked := 0
	for _, a := range e.anchorsFor(url) {
		delete(e.classified, a)
		if e.processLink(a) {
			marked++
		}
	}
	return marked
}

// Ignore removes the marks from anchors pointing to url on this page only.
// The ledger is not touched.
func (e *Engine) Ignore(ctx context.Context, url string) error {
	if err := e.ready(); err != nil {
		return err
	}
	for _, a := range e.anchorsFor(url) {
		e.unmark(a)
	}
	delete(e.forced, url)
	e.notify("Link unmarked")
	return nil
}

// unmark strips a and keeps it classified so sweeps leave it alone until
// the next reset.
func (e *Engine) unmark(a *html.Node) {
	e.stripMark(a)
	e.classified[a] = struct{}{}
}

// DisablePage stops recording clicks on this page and hides every visit
// made from now on. Existing marks stay.
func (e *Engine) DisablePage(ctx context.Context) error {
	if err := e.ready(); err != nil {
		return err
	}
	o, err := e.overrides.Disable(ctx, e.doc.URL())
	if err != nil {
		return err
	}
	e.override = o
	e.notify("Marking disabled on this page")
	return nil
}

// EnablePage lifts the override. Suppression changed for every link, so
// the ledger is reloaded and the page swept from scratch.
func (e *Engine) EnablePage(ctx context.Context) error {
	if err := e.ready(); err != nil {
		return err
	}
	o, err := e.overrides.Enable(ctx, e.doc.URL())
	if err != nil {
		return err
	}
	if err := e.loadState(ctx); err != nil {
		e.logger.Warn("page state reload failed", zap.Error(err))
	}
	e.override = o
	e.resweep()
	e.notify("Marking enabled on this page")
	return nil
}

// SiteMuted is sent after domain was added to the exclusion list. When it
// covers this page the engine tears down.
func (e *Engine) SiteMuted(ctx context.Context, domain string) error {
	if err := e.ready(); err != nil {
		return err
	}
	domain = usecase.NormalizeDomain(domain)
	if err := usecase.ValidateDomain(domain); err != nil {
		return err
	}
	next := e.settings.Clone()
	if !slices.Contains(next.ExcludeSites, domain) {
		next.ExcludeSites = append(next.ExcludeSites, domain)
	}
	if err := e.ApplySettings(ctx, next); err != nil {
		return err
	}
	e.notify(fmt.Sprintf("Site muted: %s", domain))
	return nil
}

// MarkedLinks returns the anchors carrying a mark, in document order.
func (e *Engine) MarkedLinks() []*html.Node {
	var out []*html.Node
	for _, a := range e.doc.Anchors() {
		if _, ok := dom.Attr(a, AttrMarker); ok {
			out = append(out, a)
		}
	}
	return out
}
