// Package marker is the per-page marking engine. It classifies every
// visited anchor on a page into a recency tier, keeps those marks in step
// with DOM insertions, clicks, settings changes and page commands, and
// honours site exclusion and per-page disablement.
//
// An Engine is single-threaded: every method and every DOM callback must be
// invoked from the goroutine that owns the page.
package marker

import (
	"context"
	"errors"
	"time"

	"github.com/user/linkmark-service/internal/dom"
	"github.com/user/linkmark-service/internal/entity"
	"github.com/user/linkmark-service/internal/usecase"
	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/sync/errgroup"
)

var (
	ErrExcluded    = errors.New("site excluded")
	ErrNotReady    = errors.New("page engine not initialised")
	ErrInvalidLink = errors.New("invalid link")
)

// State is the engine lifecycle state.
type State int

const (
	StateUninitialized State = iota
	StateLoading
	StateActive    // marks shown
	StateSuspended // marks attached but hidden
	StateSelecting // manual selection mode
	StateExcluded  // engine does nothing on this page
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoading:
		return "loading"
	case StateActive:
		return "active"
	case StateSuspended:
		return "suspended"
	case StateSelecting:
		return "selecting"
	case StateExcluded:
		return "excluded"
	}
	return "unknown"
}

// Scheduler runs fn after d on the engine's goroutine.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) (cancel func())
}

type noopScheduler struct{}

func (noopScheduler) AfterFunc(time.Duration, func()) func() { return func() {} }

// Deps are the collaborators an Engine needs.
type Deps struct {
	Ledger    usecase.Ledger
	Overrides usecase.PageOverrides
	Settings  usecase.SettingsService
	Scheduler Scheduler
	Clock     usecase.Clock
	Logger    *zap.Logger
}

// Engine marks visited links on one page.
type Engine struct {
	doc       *dom.Document
	ledger    usecase.Ledger
	overrides usecase.PageOverrides
	settingsS usecase.SettingsService
	scheduler Scheduler
	clock     usecase.Clock
	logger    *zap.Logger

	// ctx is the page lifetime context, used by DOM callbacks.
	ctx context.Context

	state    State
	settings entity.Settings
	override entity.PageOverride

	visits entity.Visits       // in-scope persisted entries merged with local
	local  entity.Visits       // visits recorded during this page load
	forced map[string]struct{} // marked by click, force or selection this load

	classified map[*html.Node]struct{}
	visible    bool
	marking    bool // initial sweep done and observer connected

	page      dom.ListenerSet
	selection *selection

	floatButton  *html.Node
	notification *html.Node
	cancelToast  func()

	stats Stats
}

// Stats counts engine work; tests use it to assert proportional cost.
type Stats struct {
	FullSweeps       int
	IncrementalNodes int // anchors examined by incremental sweeps
	AttrWrites       int // attribute/class writes that changed the DOM
	LedgerLoads      int
}

// New creates an engine for doc. Call Init to start it.
func New(doc *dom.Document, deps Deps) *Engine {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	scheduler := deps.Scheduler
	if scheduler == nil {
		scheduler = noopScheduler{}
	}
	return &Engine{
		doc:        doc,
		ledger:     deps.Ledger,
		overrides:  deps.Overrides,
		settingsS:  deps.Settings,
		scheduler:  scheduler,
		clock:      deps.Clock,
		logger:     logger.With(zap.String("page", doc.URL())),
		ctx:        context.Background(),
		settings:   entity.DefaultSettings(),
		override:   entity.DefaultPageOverride(doc.URL()),
		visits:     entity.Visits{},
		local:      entity.Visits{},
		forced:     make(map[string]struct{}),
		classified: make(map[*html.Node]struct{}),
	}
}

// State returns the current lifecycle state.
func (e *Engine) State() State { return e.state }

// Settings returns the settings value the engine currently renders with.
func (e *Engine) Settings() entity.Settings { return e.settings.Clone() }

// Override returns the page override currently in effect.
func (e *Engine) Override() entity.PageOverride { return e.override }

// Visible reports whether marks are currently shown.
func (e *Engine) Visible() bool { return e.visible }

// Stats returns work counters.
func (e *Engine) Stats() Stats { return e.stats }

// Document returns the page the engine works on.
func (e *Engine) Document() *dom.Document { return e.doc }

func (e *Engine) now() time.Time {
	if e.clock == nil {
		return time.Now()
	}
	return e.clock()
}

// Init loads settings, checks exclusion, loads page override and ledger in
// parallel and performs the initial sweep. ctx bounds the whole page
// lifetime. Storage failures degrade to defaults and are only logged.
func (e *Engine) Init(ctx context.Context) error {
	if e.state != StateUninitialized {
		return nil
	}
	e.ctx = ctx
	e.state = StateLoading

	settings, err := e.settingsS.Load(ctx)
	if err != nil {
		e.logger.Warn("settings unavailable, using defaults", zap.Error(err))
		settings = entity.DefaultSettings()
	}
	e.settings = settings
	return e.activate(ctx)
}

// activate runs everything after settings are known.
func (e *Engine) activate(ctx context.Context) error {
	if usecase.IsExcluded(e.doc.Hostname(), e.settings.ExcludeSites) {
		e.state = StateExcluded
		e.logger.Debug("site excluded, engine idle")
		return nil
	}

	if err := e.loadState(ctx); err != nil {
		e.logger.Warn("page state load failed, continuing with what was read", zap.Error(err))
	}

	e.visible = e.settings.Visible()
	e.state = e.restingState()
	e.applyStyles()
	e.page.Listen(e.doc, dom.EventClick, e.onClick)
	if e.settings.Visible() {
		e.startMarking()
	}
	e.syncControlButton()
	return nil
}

// loadState reads the page override and the in-scope ledger concurrently;
// the caller sweeps only after both have resolved. A read that fails leaves
// the matching state from the previous load in place.
func (e *Engine) loadState(ctx context.Context) error {
	var (
		override entity.PageOverride
		visits   entity.Visits
	)
	var overrideErr, ledgerErr error
	var g errgroup.Group
	g.Go(func() error {
		override, overrideErr = e.overrides.Get(ctx, e.doc.URL())
		return nil
	})
	g.Go(func() error {
		visits, ledgerErr = e.ledger.Load(ctx, e.settings.Retention())
		return nil
	})
	_ = g.Wait()
	e.stats.LedgerLoads++

	if overrideErr == nil {
		e.override = override
	}
	if ledgerErr != nil {
		visits = e.visits
	}
	merged := make(entity.Visits, len(visits)+len(e.local))
	for u, ts := range visits {
		merged[u] = ts
	}
	for u, ts := range e.local {
		if cur, ok := merged[u]; !ok || ts > cur {
			merged[u] = ts
		}
	}
	e.visits = merged
	return errors.Join(overrideErr, ledgerErr)
}

func (e *Engine) restingState() State {
	if e.visible {
		return StateActive
	}
	return StateSuspended
}

func (e *Engine) ready() error {
	switch e.state {
	case StateExcluded:
		return ErrExcluded
	case StateUninitialized, StateLoading:
		return ErrNotReady
	}
	return nil
}

// Close releases every listener, observer and timer the engine holds. The
// page content is left as is.
func (e *Engine) Close() {
	e.exitSelection()
	e.page.Close()
	if e.cancelToast != nil {
		e.cancelToast()
		e.cancelToast = nil
	}
	e.marking = false
}

// teardown returns the page to its unmarked form when it becomes excluded.
func (e *Engine) teardown() {
	e.Close()
	for n := range e.classified {
		e.stripMark(n)
	}
	e.classified = make(map[*html.Node]struct{})
	if style := e.doc.ElementByID(StyleID); style != nil {
		e.doc.Remove(style)
	}
	e.removeControlButton()
	e.state = StateExcluded
}
