// Package message routes cross-surface commands to a page engine. Every
// message is answered with a Response; nothing a sender does can make the
// router fail.
package message

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/user/linkmark-service/internal/entity"
	"github.com/user/linkmark-service/internal/usecase"
	"github.com/user/linkmark-service/pkg/metrics"
	"go.uber.org/zap"
)

// InvalidMessage is the error text sent for unknown or malformed messages.
const InvalidMessage = "Invalid message"

var ErrInvalidMessage = errors.New("invalid message")

// Message types.
const (
	TypeToggleExtension   = "toggleExtension"
	TypeToggleCurrentPage = "toggleCurrentPage"
	TypeUpdateMarkStyle   = "updateMarkStyle"
	TypeUpdateColors      = "updateColors"
	TypeApplySettings     = "applySettings"
	TypeToggleVisibility  = "toggleVisibility"
	TypeForceMarkLink     = "forceMarkLink"
	TypeIgnoreLink        = "ignoreLink"
	TypeDisablePage       = "disablePage"
	TypeEnablePage        = "enablePage"
	TypeSiteMuted         = "siteMuted"
	TypeAddManualMark     = "addManualMark"
)

// Message is the union of every command payload.
type Message struct {
	Type            string           `json:"type"`
	Enabled         *bool            `json:"enabled,omitempty"`
	ShowCurrentPage *bool            `json:"showCurrentPage,omitempty"`
	MarkStyle       entity.MarkStyle `json:"markStyle,omitempty"`
	Colors          *entity.Colors   `json:"colors,omitempty"`
	Settings        json.RawMessage  `json:"settings,omitempty"`
	URL             string           `json:"url,omitempty"`
	Domain          string           `json:"domain,omitempty"`
}

// Response acknowledges a message.
type Response struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Page is the engine surface messages act on.
type Page interface {
	Settings() entity.Settings
	ApplySettings(ctx context.Context, s entity.Settings) error
	ToggleVisibility(ctx context.Context) (bool, error)
	ForceMark(ctx context.Context, url string) error
	Ignore(ctx context.Context, url string) error
	DisablePage(ctx context.Context) error
	EnablePage(ctx context.Context) error
	SiteMuted(ctx context.Context, domain string) error
	EnterSelection(ctx context.Context) error
}

// HandlerFunc handles one message type. Returning ErrInvalidMessage marks
// the payload as malformed.
type HandlerFunc func(ctx context.Context, page Page, msg Message) error

// Router dispatches messages by type.
type Router struct {
	handlers map[string]HandlerFunc
	logger   *zap.Logger
}

// NewRouter creates a router with every built-in message type registered.
func NewRouter(logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Router{handlers: make(map[string]HandlerFunc), logger: logger}
	r.Handle(TypeToggleExtension, toggleExtension)
	r.Handle(TypeToggleCurrentPage, toggleCurrentPage)
	r.Handle(TypeUpdateMarkStyle, updateMarkStyle)
	r.Handle(TypeUpdateColors, updateColors)
	r.Handle(TypeApplySettings, applySettings)
	r.Handle(TypeToggleVisibility, func(ctx context.Context, p Page, _ Message) error {
		_, err := p.ToggleVisibility(ctx)
		return err
	})
	r.Handle(TypeForceMarkLink, withURL(Page.ForceMark))
	r.Handle(TypeIgnoreLink, withURL(Page.Ignore))
	r.Handle(TypeDisablePage, func(ctx context.Context, p Page, _ Message) error { return p.DisablePage(ctx) })
	r.Handle(TypeEnablePage, func(ctx context.Context, p Page, _ Message) error { return p.EnablePage(ctx) })
	r.Handle(TypeSiteMuted, func(ctx context.Context, p Page, m Message) error {
		if m.Domain == "" {
			return ErrInvalidMessage
		}
		return p.SiteMuted(ctx, m.Domain)
	})
	r.Handle(TypeAddManualMark, func(ctx context.Context, p Page, _ Message) error { return p.EnterSelection(ctx) })
	return r
}

// Handle registers h for typ, replacing any previous handler.
func (r *Router) Handle(typ string, h HandlerFunc) {
	r.handlers[typ] = h
}

// Dispatch decodes raw and routes it.
func (r *Router) Dispatch(ctx context.Context, page Page, raw []byte) Response {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		r.logger.Debug("undecodable message", zap.Error(err))
		metrics.MessagesTotal.WithLabelValues("unknown", "invalid").Inc()
		return Response{Error: InvalidMessage}
	}
	return r.Route(ctx, page, msg)
}

// Route runs the handler for msg.Type. Unknown and untyped messages are
// rejected without touching the page.
func (r *Router) Route(ctx context.Context, page Page, msg Message) Response {
	h, ok := r.handlers[msg.Type]
	if !ok {
		r.logger.Debug("unrecognised message", zap.String("type", msg.Type))
		metrics.MessagesTotal.WithLabelValues("unknown", "invalid").Inc()
		return Response{Error: InvalidMessage}
	}

	err := h(ctx, page, msg)
	switch {
	case err == nil:
		metrics.MessagesTotal.WithLabelValues(msg.Type, "ok").Inc()
		return Response{Success: true}
	case errors.Is(err, ErrInvalidMessage):
		metrics.MessagesTotal.WithLabelValues(msg.Type, "invalid").Inc()
		return Response{Error: InvalidMessage}
	default:
		r.logger.Info("message failed", zap.String("type", msg.Type), zap.Error(err))
		metrics.MessagesTotal.WithLabelValues(msg.Type, "error").Inc()
		return Response{Error: err.Error()}
	}
}

func withURL(fn func(Page, context.Context, string) error) HandlerFunc {
	return func(ctx context.Context, p Page, m Message) error {
		if m.URL == "" {
			return ErrInvalidMessage
		}
		return fn(p, ctx, m.URL)
	}
}

// update applies one field change to the page's current settings.
func update(ctx context.Context, p Page, mutate func(*entity.Settings)) error {
	next := p.Settings()
	mutate(&next)
	return p.ApplySettings(ctx, next)
}

func toggleExtension(ctx context.Context, p Page, m Message) error {
	if m.Enabled == nil {
		return ErrInvalidMessage
	}
	return update(ctx, p, func(s *entity.Settings) { s.Enabled = *m.Enabled })
}

func toggleCurrentPage(ctx context.Context, p Page, m Message) error {
	if m.ShowCurrentPage == nil {
		return ErrInvalidMessage
	}
	return update(ctx, p, func(s *entity.Settings) { s.ShowCurrentPage = *m.ShowCurrentPage })
}

func updateMarkStyle(ctx context.Context, p Page, m Message) error {
	if !m.MarkStyle.Valid() {
		return ErrInvalidMessage
	}
	return update(ctx, p, func(s *entity.Settings) { s.MarkStyle = m.MarkStyle })
}

func updateColors(ctx context.Context, p Page, m Message) error {
	if m.Colors == nil {
		return ErrInvalidMessage
	}
	return update(ctx, p, func(s *entity.Settings) { s.Colors = *m.Colors })
}

// applySettings merges the keys present in m.Settings over the current
// value; absent keys keep their current value.
func applySettings(ctx context.Context, p Page, m Message) error {
	if len(m.Settings) == 0 {
		return ErrInvalidMessage
	}
	next := p.Settings()
	if err := json.Unmarshal(m.Settings, &next); err != nil {
		return ErrInvalidMessage
	}
	valid, err := usecase.ValidateSettings(next)
	if err != nil {
		return err
	}
	return p.ApplySettings(ctx, valid)
}
