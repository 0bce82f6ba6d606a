// Package session keeps one marking engine per open page and serialises
// everything that reaches it.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/user/linkmark-service/internal/delivery/message"
	"github.com/user/linkmark-service/internal/dom"
	"github.com/user/linkmark-service/internal/entity"
	"github.com/user/linkmark-service/internal/marker"
	"github.com/user/linkmark-service/internal/repository"
	"github.com/user/linkmark-service/internal/usecase"
	"github.com/user/linkmark-service/pkg/metrics"
	"github.com/user/linkmark-service/pkg/utils"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	ErrPageNotFound = errors.New("page not found")
	ErrPageClosed   = errors.New("page closed")
	ErrNoSource     = errors.New("page html required: no renderer configured")
	ErrInvalidURL   = errors.New("page url must be http(s)")
)

// broadcastLimit bounds how many pages receive a settings change at once.
const broadcastLimit = 8

// Deps are the shared collaborators handed to every page engine.
type Deps struct {
	Ledger    usecase.Ledger
	Overrides usecase.PageOverrides
	Settings  usecase.SettingsService
	Source    repository.PageSourceRepository // optional
	Router    *message.Router
	Clock     usecase.Clock
	Logger    *zap.Logger
}

// Info describes an open page.
type Info struct {
	ID       string              `json:"id"`
	URL      string              `json:"url"`
	State    string              `json:"state"`
	Visible  bool                `json:"visible"`
	Marked   int                 `json:"marked"`
	Override entity.PageOverride `json:"override"`
}

// Manager tracks open pages.
type Manager struct {
	deps   Deps
	idle   time.Duration
	logger *zap.Logger

	base context.Context
	stop context.CancelFunc

	mu    sync.RWMutex
	pages map[string]*Page
}

// NewManager creates a manager. Pages untouched for idle are reaped by
// RunReaper; zero disables reaping.
func NewManager(deps Deps, idle time.Duration) *Manager {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Router == nil {
		deps.Router = message.NewRouter(deps.Logger)
	}
	base, stop := context.WithCancel(context.Background())
	return &Manager{
		deps:   deps,
		idle:   idle,
		logger: deps.Logger,
		base:   base,
		stop:   stop,
		pages:  make(map[string]*Page),
	}
}

// Open loads a page and runs the engine's initial pass. When src is empty
// the page is rendered through the configured page source.
func (m *Manager) Open(ctx context.Context, url, src string) (Info, error) {
	if !utils.IsHTTPURL(url) {
		return Info{}, ErrInvalidURL
	}
	if src == "" {
		if m.deps.Source == nil {
			return Info{}, ErrNoSource
		}
		rendered, err := m.deps.Source.Render(ctx, url)
		if err != nil {
			return Info{}, fmt.Errorf("failed to render %s: %w", url, err)
		}
		src = rendered
	}
	doc, err := dom.ParseString(url, src)
	if err != nil {
		return Info{}, err
	}

	pctx, cancel := context.WithCancel(m.base)
	p := &Page{
		id:     uuid.Must(uuid.NewV7()).String(),
		url:    url,
		tasks:  make(chan func(), 64),
		ctx:    pctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	p.engine = marker.New(doc, marker.Deps{
		Ledger:    m.deps.Ledger,
		Overrides: m.deps.Overrides,
		Settings:  m.deps.Settings,
		Scheduler: loopScheduler{page: p},
		Clock:     m.deps.Clock,
		Logger:    m.logger.With(zap.String("page_id", p.id)),
	})
	go p.run()

	var info Info
	err = p.do(ctx, func() error {
		if err := p.engine.Init(pctx); err != nil {
			return err
		}
		info = p.info()
		return nil
	})
	if err != nil {
		p.close()
		return Info{}, err
	}

	m.mu.Lock()
	m.pages[p.id] = p
	m.mu.Unlock()
	metrics.ActiveSessions.Inc()
	m.logger.Info("page opened", zap.String("page_id", p.id), zap.String("url", url), zap.String("state", info.State))
	return info, nil
}

func (p *Page) info() Info {
	return Info{
		ID:       p.id,
		URL:      p.url,
		State:    p.engine.State().String(),
		Visible:  p.engine.Visible(),
		Marked:   len(p.engine.MarkedLinks()),
		Override: p.engine.Override(),
	}
}

func (m *Manager) page(id string) (*Page, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.pages[id]
	if !ok {
		return nil, ErrPageNotFound
	}
	return p, nil
}

// Info returns the current page description.
func (m *Manager) Info(ctx context.Context, id string) (Info, error) {
	p, err := m.page(id)
	if err != nil {
		return Info{}, err
	}
	var info Info
	err = p.do(ctx, func() error {
		info = p.info()
		return nil
	})
	return info, err
}

// HTML serialises the page with its marks.
func (m *Manager) HTML(ctx context.Context, id string) (string, error) {
	p, err := m.page(id)
	if err != nil {
		return "", err
	}
	var out string
	err = p.do(ctx, func() error {
		var herr error
		out, herr = p.engine.Document().HTML()
		return herr
	})
	return out, err
}

// Message routes a raw message to the page.
func (m *Manager) Message(ctx context.Context, id string, raw []byte) (message.Response, error) {
	p, err := m.page(id)
	if err != nil {
		return message.Response{}, err
	}
	var resp message.Response
	err = p.do(ctx, func() error {
		resp = m.deps.Router.Dispatch(p.ctx, p.engine, raw)
		return nil
	})
	return resp, err
}

// Route sends an already decoded message to the page.
func (m *Manager) Route(ctx context.Context, id string, msg message.Message) (message.Response, error) {
	raw, err := json.Marshal(msg)
	if err != nil {
		return message.Response{}, err
	}
	return m.Message(ctx, id, raw)
}

// Close discards the page and everything the engine held for it.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	p, ok := m.pages[id]
	delete(m.pages, id)
	m.mu.Unlock()
	if !ok {
		return ErrPageNotFound
	}
	p.close()
	metrics.ActiveSessions.Dec()
	m.logger.Info("page closed", zap.String("page_id", id))
	return nil
}

// CloseAll shuts every page down.
func (m *Manager) CloseAll() {
	for _, id := range m.IDs() {
		_ = m.Close(id)
	}
	m.stop()
}

// IDs lists open pages.
func (m *Manager) IDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.pages))
	for id := range m.pages {
		ids = append(ids, id)
	}
	return ids
}

// Broadcast applies s to every open page. Failures are logged per page.
func (m *Manager) Broadcast(ctx context.Context, s entity.Settings) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(broadcastLimit)
	for _, id := range m.IDs() {
		p, err := m.page(id)
		if err != nil {
			continue
		}
		g.Go(func() error {
			err := p.do(gctx, func() error { return p.engine.ApplySettings(p.ctx, s) })
			if err != nil {
				m.logger.Warn("settings not applied", zap.String("page_id", p.id), zap.Error(err))
			}
			return nil
		})
	}
	_ = g.Wait()
}

// WatchSettings pushes every stored settings change to all open pages
// until ctx is done.
func (m *Manager) WatchSettings(ctx context.Context) error {
	ch, err := m.deps.Settings.Watch(ctx)
	if err != nil {
		return fmt.Errorf("failed to watch settings: %w", err)
	}
	for s := range ch {
		m.logger.Debug("settings changed, broadcasting", zap.Int("pages", len(m.IDs())))
		m.Broadcast(ctx, s)
	}
	return ctx.Err()
}

// ReapIdle closes pages untouched since before now-idle.
func (m *Manager) ReapIdle(now time.Time) int {
	if m.idle <= 0 {
		return 0
	}
	var stale []string
	m.mu.RLock()
	for id, p := range m.pages {
		if now.Sub(p.idleSince()) > m.idle {
			stale = append(stale, id)
		}
	}
	m.mu.RUnlock()
	for _, id := range stale {
		_ = m.Close(id)
	}
	if len(stale) > 0 {
		m.logger.Info("reaped idle pages", zap.Int("count", len(stale)))
	}
	return len(stale)
}

// RunReaper calls ReapIdle every interval until ctx is done.
func (m *Manager) RunReaper(ctx context.Context, interval time.Duration) {
	if m.idle <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			m.ReapIdle(now)
		}
	}
}
