package chromedp_browser

import (
	"context"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// VisitFunc receives one top-level navigation.
type VisitFunc func(ctx context.Context, url string, at time.Time) error

// HistoryWatcher drives a browser tab and reports every top-level
// navigation it makes, including same-document history changes.
type HistoryWatcher struct {
	headless bool
	record   VisitFunc
	logger   *zap.Logger
}

// NewHistoryWatcher creates a watcher that hands visits to record.
func NewHistoryWatcher(headless bool, record VisitFunc, logger *zap.Logger) *HistoryWatcher {
	return &HistoryWatcher{headless: headless, record: record, logger: logger}
}

// Run opens startURL and records navigations until ctx is done.
func (w *HistoryWatcher) Run(ctx context.Context, startURL string) error {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocatorOptions(w.headless)...)
	defer cancelAlloc()
	tabCtx, cancelTab := chromedp.NewContext(allocCtx, chromedp.WithLogf(w.logger.Sugar().Debugf))
	defer cancelTab()

	visits := make(chan string, 64)
	var nav navigationFilter
	chromedp.ListenTarget(tabCtx, func(ev interface{}) {
		url, ok := nav.observe(ev)
		if !ok {
			return
		}
		select {
		case visits <- url:
		default:
			w.logger.Warn("history visit dropped, recorder busy", zap.String("url", url))
		}
	})

	if err := chromedp.Run(tabCtx, chromedp.Navigate(startURL)); err != nil {
		return err
	}
	w.logger.Info("history watcher started", zap.String("url", startURL))

	for {
		select {
		case <-ctx.Done():
			return nil
		case url := <-visits:
			if err := w.record(ctx, url, time.Now()); err != nil {
				w.logger.Warn("failed to record history visit", zap.String("url", url), zap.Error(err))
			}
		}
	}
}

// navigationFilter picks main-frame navigations out of the target's event
// stream. It is only touched from the listener goroutine.
type navigationFilter struct {
	main cdp.FrameID
}

func (f *navigationFilter) observe(ev interface{}) (string, bool) {
	switch e := ev.(type) {
	case *page.EventFrameNavigated:
		if e.Frame == nil || e.Frame.ParentID != "" {
			return "", false
		}
		f.main = e.Frame.ID
		return e.Frame.URL, true
	case *page.EventNavigatedWithinDocument:
		if f.main == "" || e.FrameID != f.main {
			return "", false
		}
		return e.URL, true
	}
	return "", false
}
