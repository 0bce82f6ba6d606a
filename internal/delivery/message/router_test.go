package message_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/linkmark-service/internal/delivery/message"
	"github.com/user/linkmark-service/internal/entity"
)

type fakePage struct {
	settings entity.Settings
	calls    []string
	args     []string
	err      error
}

func newFakePage() *fakePage {
	return &fakePage{settings: entity.DefaultSettings()}
}

func (p *fakePage) record(call, arg string) error {
	p.calls = append(p.calls, call)
	p.args = append(p.args, arg)
	return p.err
}

func (p *fakePage) Settings() entity.Settings { return p.settings.Clone() }

func (p *fakePage) ApplySettings(_ context.Context, s entity.Settings) error {
	if p.err != nil {
		return p.err
	}
	p.settings = s
	return p.record("apply", "")
}

func (p *fakePage) ToggleVisibility(context.Context) (bool, error) {
	return true, p.record("toggle", "")
}

func (p *fakePage) ForceMark(_ context.Context, url string) error { return p.record("force", url) }
func (p *fakePage) Ignore(_ context.Context, url string) error { return p.record("ignore", url) }
func (p *fakePage) DisablePage(context.Context) error { return p.record("disable", "") }
func (p *fakePage) EnablePage(context.Context) error { return p.record("enable", "") }
func (p *fakePage) SiteMuted(_ context.Context, d string) error { return p.record("muted", d) }
func (p *fakePage) EnterSelection(context.Context) error { return p.record("select", "") }

func dispatch(page *fakePage, raw string) message.Response {
	return message.NewRouter(nil).Dispatch(context.Background(), page, []byte(raw))
}

func TestRouter_RejectsInvalidMessages(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"missing type", `{"url":"https://a.test/"}`},
		{"empty type", `{"type":""}`},
		{"unknown type", `{"type":"selfDestruct"}`},
		{"not json", `{type:`},
		{"wrong type kind", `{"type":42}`},
		{"force without url", `{"type":"forceMarkLink"}`},
		{"ignore without url", `{"type":"ignoreLink"}`},
		{"muted without domain", `{"type":"siteMuted"}`},
		{"toggle without flag", `{"type":"toggleExtension"}`},
		{"page toggle without flag", `{"type":"toggleCurrentPage"}`},
		{"bad style", `{"type":"updateMarkStyle","markStyle":"sparkles"}`},
		{"colors missing", `{"type":"updateColors"}`},
		{"settings missing", `{"type":"applySettings"}`},
		{"settings malformed", `{"type":"applySettings","settings":{"enabled":"yes"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := newFakePage()
			resp := dispatch(page, tt.raw)
			assert.Equal(t, message.Response{Success: false, Error: message.InvalidMessage}, resp)
			assert.Empty(t, page.calls)
			assert.Equal(t, entity.DefaultSettings(), page.settings)
		})
	}
}

func TestRouter_PageCommands(t *testing.T) {
	tests := []struct {
		raw  string
		call string
		arg  string
	}{
		{`{"type":"toggleVisibility"}`, "toggle", ""},
		{`{"type":"forceMarkLink","url":"https://a.test/x"}`, "force", "https://a.test/x"},
		{`{"type":"ignoreLink","url":"https://a.test/y"}`, "ignore", "https://a.test/y"},
		{`{"type":"disablePage"}`, "disable", ""},
		{`{"type":"enablePage"}`, "enable", ""},
		{`{"type":"siteMuted","domain":"a.test"}`, "muted", "a.test"},
		{`{"type":"addManualMark"}`, "select", ""},
	}
	for _, tt := range tests {
		t.Run(tt.call, func(t *testing.T) {
			page := newFakePage()
			resp := dispatch(page, tt.raw)
			assert.True(t, resp.Success)
			assert.Empty(t, resp.Error)
			assert.Equal(t, []string{tt.call}, page.calls)
			assert.Equal(t, []string{tt.arg}, page.args)
		})
	}
}

func TestRouter_SettingsMessagesChangeOneField(t *testing.T) {
	page := newFakePage()

	require.True(t, dispatch(page, `{"type":"toggleExtension","enabled":false}`).Success)
	assert.False(t, page.settings.Enabled)
	assert.True(t, page.settings.ShowCurrentPage)

	require.True(t, dispatch(page, `{"type":"toggleCurrentPage","showCurrentPage":false}`).Success)
	assert.False(t, page.settings.ShowCurrentPage)

	require.True(t, dispatch(page, `{"type":"updateMarkStyle","markStyle":"underline"}`).Success)
	assert.Equal(t, entity.StyleUnderline, page.settings.MarkStyle)

	require.True(t, dispatch(page, `{"type":"updateColors","colors":{"recent":"#111111","today":"#222222","earlier":"#333333"}}`).Success)
	assert.Equal(t, entity.Colors{Recent: "#111111", Today: "#222222", Earlier: "#333333"}, page.settings.Colors)
	assert.False(t, page.settings.Enabled)
}

func TestRouter_ApplySettingsMergesPresentKeys(t *testing.T) {
	page := newFakePage()
	page.settings.MarkStyle = entity.StyleBackground

	resp := dispatch(page, `{"type":"applySettings","settings":{"showControlButton":false,"excludeSites":["B.test"]}}`)
	require.True(t, resp.Success)
	assert.False(t, page.settings.ShowControlButton)
	assert.Equal(t, []string{"b.test"}, page.settings.ExcludeSites)
	assert.Equal(t, entity.StyleBackground, page.settings.MarkStyle)
	assert.True(t, page.settings.Enabled)
}

func TestRouter_ApplySettingsRejectsInvalidDomain(t *testing.T) {
	page := newFakePage()
	resp := dispatch(page, `{"type":"applySettings","settings":{"excludeSites":["no spaces allowed"]}}`)
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "invalid domain format")
	assert.Empty(t, page.calls)
}

func TestRouter_HandlerErrorsAreReported(t *testing.T) {
	page := newFakePage()
	page.err = errors.New("site excluded")

	resp := dispatch(page, `{"type":"disablePage"}`)
	assert.Equal(t, message.Response{Success: false, Error: "site excluded"}, resp)
}

func TestRouter_CustomHandler(t *testing.T) {
	r := message.NewRouter(nil)
	var got message.Message
	r.Handle("ping", func(_ context.Context, _ message.Page, m message.Message) error {
		got = m
		return nil
	})

	resp := r.Dispatch(context.Background(), newFakePage(), []byte(`{"type":"ping","url":"https://a.test/"}`))
	assert.True(t, resp.Success)
	assert.Equal(t, "https://a.test/", got.URL)
}
