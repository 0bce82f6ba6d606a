package marker

import (
	"strconv"
	"time"

	"github.com/user/linkmark-service/internal/dom"
	"github.com/user/linkmark-service/internal/usecase"
	"github.com/user/linkmark-service/pkg/metrics"
	"github.com/user/linkmark-service/pkg/utils"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// startMarking performs the initial sweep and connects the mutation
// observer. It runs once per activation.
func (e *Engine) startMarking() {
	if e.marking {
		return
	}
	e.marking = true
	e.fullSweep()
	e.page.Observe(e.doc, e.onMutations)
}

// fullSweep classifies every anchor on the page that has not been
// classified yet.
func (e *Engine) fullSweep() int {
	start := time.Now()
	marked := 0
	for _, a := range e.doc.Anchors() {
		if e.processLink(a) {
			marked++
		}
	}
	e.stats.FullSweeps++
	metrics.SweepsTotal.WithLabelValues("full").Inc()
	metrics.SweepDuration.WithLabelValues("full").Observe(time.Since(start).Seconds())
	e.logger.Debug("full sweep", zap.Int("marked", marked))
	return marked
}

// resweep drops the classified set and sweeps again. Anchors that no
// longer qualify lose their mark; unchanged ones are not rewritten.
func (e *Engine) resweep() {
	prev := e.classified
	e.classified = make(map[*html.Node]struct{}, len(prev))
	if e.marking {
		e.fullSweep()
	}
	for n := range prev {
		if _, still := e.classified[n]; !still {
			e.stripMark(n)
		}
	}
}

// onMutations is the incremental sweep: only inserted nodes and anchors
// nested inside them are examined.
func (e *Engine) onMutations(records []dom.MutationRecord) {
	if !e.marking {
		return
	}
	start := time.Now()
	marked := 0
	for _, rec := range records {
		for _, n := range rec.Added {
			if n.Type != html.ElementNode {
				continue
			}
			for _, a := range e.doc.AnchorsWithin(n) {
				e.stats.IncrementalNodes++
				if e.processLink(a) {
					marked++
				}
			}
		}
	}
	metrics.SweepsTotal.WithLabelValues("incremental").Inc()
	metrics.SweepDuration.WithLabelValues("incremental").Observe(time.Since(start).Seconds())
	if marked > 0 {
		e.logger.Debug("incremental sweep", zap.Int("marked", marked))
	}
}

// processLink classifies one anchor. Anchors already classified, detached,
// non-http, unknown to the ledger or suppressed are left alone.
func (e *Engine) processLink(a *html.Node) bool {
	if _, done := e.classified[a]; done {
		return false
	}
	if !e.doc.Contains(a) {
		return false
	}
	url := e.doc.Href(a)
	if !utils.IsHTTPURL(url) {
		return false
	}
	ts, ok := e.visits[url]
	if !ok {
		return false
	}
	if e.suppressed(url, ts) {
		return false
	}
	e.classified[a] = struct{}{}
	e.applyMark(a, ts)
	return true
}

// suppressed hides visits made after the page was disabled. A link marked
// by an explicit action during this load is never suppressed.
func (e *Engine) suppressed(url string, visitedAt int64) bool {
	if _, ok := e.forced[url]; ok {
		return false
	}
	return e.override.Suppressed(visitedAt)
}

func (e *Engine) applyMark(a *html.Node, visitedAt int64) {
	tier := usecase.Classify(visitedAt, e.now())
	e.write(dom.SetAttr(a, AttrMarker, tier.String()))
	e.write(dom.SetAttr(a, AttrTime, strconv.FormatInt(visitedAt, 10)))
	if e.visible {
		e.write(dom.RemoveClass(a, ClassHidden))
	} else {
		e.write(dom.AddClass(a, ClassHidden))
	}
	metrics.MarksApplied.WithLabelValues(tier.String()).Inc()
}

func (e *Engine) stripMark(a *html.Node) {
	e.write(dom.RemoveAttr(a, AttrMarker))
	e.write(dom.RemoveAttr(a, AttrTime))
	e.write(dom.RemoveClass(a, ClassHidden))
}

func (e *Engine) write(changed bool) {
	if changed {
		e.stats.AttrWrites++
	}
}

// anchorsFor returns every anchor whose resolved or literal href is url.
func (e *Engine) anchorsFor(url string) []*html.Node {
	var out []*html.Node
	for _, a := range e.doc.Anchors() {
		raw, _ := dom.Attr(a, "href")
		if raw == url || e.doc.Href(a) == url {
			out = append(out, a)
		}
	}
	return out
}

// onClick records visits for link activations while page marking is on.
func (e *Engine) onClick(ev *dom.Event) {
	if e.floatButton != nil && e.within(ev.Target, e.floatButton) {
		e.ToggleVisibility(e.ctx)
		return
	}
	if e.state == StateSelecting || !e.override.MarkingEnabled {
		return
	}
	a := e.doc.ClosestAnchor(ev.Target)
	if a == nil {
		return
	}
	url := e.doc.Href(a)
	if !utils.IsHTTPURL(url) {
		return
	}
	e.markURL(url, usecase.SourceClick)
}

func (e *Engine) within(n, container *html.Node) bool {
	for p := n; p != nil; p = p.Parent {
		if p == container {
			return true
		}
	}
	return false
}

// registerVisit writes the ledger and the in-page buffer. A storage
// failure keeps the in-page record so the current page stays consistent.
func (e *Engine) registerVisit(url string, source usecase.VisitSource) int64 {
	ts, ok, err := e.ledger.RecordVisit(e.ctx, url, source)
	if err != nil {
		e.logger.Warn("visit not persisted", zap.String("url", url), zap.Error(err))
		ts = e.now().UnixMilli()
	} else if !ok {
		return 0
	}
	e.local[url] = ts
	e.visits[url] = ts
	return ts
}
