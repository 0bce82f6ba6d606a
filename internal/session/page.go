package session

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/user/linkmark-service/internal/marker"
)

// Page owns one marking engine and the goroutine that drives it. Every
// engine call runs on that goroutine, and pending DOM mutation records are
// delivered after each task.
type Page struct {
	id  string
	url string

	engine *marker.Engine
	tasks  chan func()

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	lastUsed atomic.Int64
}

func (p *Page) ID() string  { return p.id }
func (p *Page) URL() string { return p.url }

func (p *Page) run() {
	defer close(p.done)
	for {
		select {
		case <-p.ctx.Done():
			p.engine.Close()
			return
		case fn := <-p.tasks:
			fn()
			p.engine.Document().Flush()
		}
	}
}

func (p *Page) post(ctx context.Context, fn func()) bool {
	select {
	case p.tasks <- fn:
		return true
	case <-p.ctx.Done():
		return false
	case <-ctx.Done():
		return false
	}
}

// do runs fn on the page goroutine and waits for it.
func (p *Page) do(ctx context.Context, fn func() error) error {
	p.touch()
	errc := make(chan error, 1)
	if !p.post(ctx, func() { errc <- fn() }) {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrPageClosed
	}
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-p.done:
		return ErrPageClosed
	}
}

func (p *Page) touch() { p.lastUsed.Store(time.Now().UnixNano()) }

func (p *Page) idleSince() time.Time { return time.Unix(0, p.lastUsed.Load()) }

func (p *Page) close() {
	p.cancel()
	<-p.done
}

// loopScheduler fires engine timers on the page goroutine. A cancelled
// timer never runs, even when it already fired and is waiting in the queue.
type loopScheduler struct {
	page *Page
}

func (s loopScheduler) AfterFunc(d time.Duration, fn func()) func() {
	var cancelled atomic.Bool
	t := time.AfterFunc(d, func() {
		s.page.post(context.Background(), func() {
			if !cancelled.Load() {
				fn()
			}
		})
	})
	return func() {
		cancelled.Store(true)
		t.Stop()
	}
}
