package chromedp_browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// userAgent matches a desktop Chrome so pages serve their normal markup.
const userAgent = `Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36`

// allocatorOptions are the Chrome flags shared by the page source and the
// history watcher.
func allocatorOptions(headless bool) []chromedp.ExecAllocatorOption {
	return append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(userAgent),
	)
}

// PageSourceImpl renders pages in a headless browser and returns the DOM
// after load, so script-built links are present.
type PageSourceImpl struct {
	allocCtx context.Context
	cancel   context.CancelFunc
	slots    chan struct{}
	timeout  time.Duration
	logger   *zap.Logger
}

// NewPageSource starts a browser allocator. At most maxConcurrency tabs
// render at once.
func NewPageSource(headless bool, maxConcurrency int, pageLoadTimeout time.Duration, logger *zap.Logger) *PageSourceImpl {
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}
	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), allocatorOptions(headless)...)
	return &PageSourceImpl{
		allocCtx: allocCtx,
		cancel:   cancel,
		slots:    make(chan struct{}, maxConcurrency),
		timeout:  pageLoadTimeout,
		logger:   logger,
	}
}

// Render navigates to url in a fresh tab and returns the serialised DOM.
func (s *PageSourceImpl) Render(ctx context.Context, url string) (string, error) {
	select {
	case s.slots <- struct{}{}:
		defer func() { <-s.slots }()
	case <-ctx.Done():
		return "", ctx.Err()
	}

	taskCtx, cancel := chromedp.NewContext(s.allocCtx, chromedp.WithLogf(s.logger.Sugar().Debugf))
	defer cancel()
	taskCtx, cancel = context.WithTimeout(taskCtx, s.timeout)
	defer cancel()
	// Stop the tab when the caller gives up.
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	start := time.Now()
	var html string
	err := chromedp.Run(taskCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		s.logger.Error("failed to render page", zap.String("url", url), zap.Error(err))
		return "", fmt.Errorf("render %s: %w", url, err)
	}
	s.logger.Info("rendered page",
		zap.String("url", url),
		zap.Int("bytes", len(html)),
		zap.Duration("took", time.Since(start)),
	)
	return html, nil
}

// Close shuts the browser down.
func (s *PageSourceImpl) Close() { s.cancel() }
