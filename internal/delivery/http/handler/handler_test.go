package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/linkmark-service/internal/adapter/memory"
	"github.com/user/linkmark-service/internal/delivery/http/handler"
	"github.com/user/linkmark-service/internal/delivery/http/router"
	"github.com/user/linkmark-service/internal/entity"
	"github.com/user/linkmark-service/internal/session"
	"github.com/user/linkmark-service/internal/usecase"
	"go.uber.org/zap"
)

const pageHTML = `<html><head></head><body>
<a id="seen" href="https://a.test/seen">seen</a>
<a id="new" href="https://a.test/new">new</a>
</body></html>`

type testServer struct {
	srv      *httptest.Server
	ledger   usecase.Ledger
	settings usecase.SettingsService
}

func newTestServer(t *testing.T, checks map[string]handler.HealthCheck) *testServer {
	t.Helper()
	ledger := usecase.NewLedger(memory.NewLedgerRepo(), nil, nil)
	settings := usecase.NewSettingsService(memory.NewSettingsRepo(), nil)
	mgr := session.NewManager(session.Deps{
		Ledger:    ledger,
		Overrides: usecase.NewPageOverrides(memory.NewOverrideRepo(), nil),
		Settings:  settings,
	}, 0)
	t.Cleanup(mgr.CloseAll)

	h := handler.NewHandler(mgr, ledger, settings, checks, nil)
	srv := httptest.NewServer(router.New(h, zap.NewNop()))
	t.Cleanup(srv.Close)
	return &testServer{srv: srv, ledger: ledger, settings: settings}
}

func (s *testServer) do(t *testing.T, method, path, body string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, s.srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func (s *testServer) openPage(t *testing.T) session.Info {
	t.Helper()
	body, err := json.Marshal(map[string]string{"url": "https://site.test/", "html": pageHTML})
	require.NoError(t, err)
	resp, data := s.do(t, http.MethodPost, "/api/pages", string(body))
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(data))
	var info session.Info
	require.NoError(t, json.Unmarshal(data, &info))
	return info
}

func TestHandler_VisitThenOpenPage(t *testing.T) {
	s := newTestServer(t, nil)

	ts := time.Now().Add(-2 * time.Minute).UnixMilli()
	resp, data := s.do(t, http.MethodPost, "/api/visits", `{"url":"https://a.test/seen","timestamp":`+jsonInt(ts)+`}`)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.JSONEq(t, `{"url":"https://a.test/seen","recorded":true}`, string(data))

	resp, data = s.do(t, http.MethodPost, "/api/visits", `{"url":"javascript:void(0)"}`)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.JSONEq(t, `{"url":"javascript:void(0)","recorded":false}`, string(data))

	info := s.openPage(t)
	assert.Equal(t, "active", info.State)
	assert.Equal(t, 1, info.Marked)

	resp, data = s.do(t, http.MethodGet, "/api/pages/"+info.ID, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	assert.Contains(t, string(data), `data-visited-marker="recent"`)
	assert.Contains(t, string(data), `id="visited-links-marker-style"`)
}

func TestHandler_OpenPageValidation(t *testing.T) {
	s := newTestServer(t, nil)

	resp, _ := s.do(t, http.MethodPost, "/api/pages", `{"url":"notaurl"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = s.do(t, http.MethodPost, "/api/pages", `{"url":`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, data := s.do(t, http.MethodPost, "/api/pages", `{"url":"https://site.test/"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(data), "no renderer configured")
}

func TestHandler_MessagesAndEvents(t *testing.T) {
	s := newTestServer(t, nil)
	info := s.openPage(t)
	base := "/api/pages/" + info.ID

	resp, data := s.do(t, http.MethodPost, base+"/messages", `{"type":"bogus"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"success":false,"error":"Invalid message"}`, string(data))

	resp, data = s.do(t, http.MethodPost, base+"/messages", `{"type":"forceMarkLink","url":"https://a.test/new"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"success":true}`, string(data))

	resp, data = s.do(t, http.MethodPost, base+"/events", `{"type":"click","selector":"#seen"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var res session.EventResult
	require.NoError(t, json.Unmarshal(data, &res))
	assert.False(t, res.DefaultPrevented)
	assert.Equal(t, 2, res.Info.Marked)

	resp, _ = s.do(t, http.MethodPost, base+"/events", `{"type":"hover"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = s.do(t, http.MethodGet, base+"/info", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = s.do(t, http.MethodDelete, base, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = s.do(t, http.MethodPost, base+"/messages", `{"type":"toggleVisibility"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandler_Settings(t *testing.T) {
	s := newTestServer(t, nil)

	resp, data := s.do(t, http.MethodGet, "/api/settings", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got entity.Settings
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, entity.DefaultSettings(), got)

	resp, data = s.do(t, http.MethodPut, "/api/settings", `{"markStyle":"underline","excludeSites":["bad domain"]}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(data), "invalid domain format")

	resp, data = s.do(t, http.MethodPut, "/api/settings", `{"markStyle":"underline"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, entity.StyleUnderline, got.MarkStyle)
	assert.True(t, got.Enabled)

	stored, err := s.settings.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, entity.StyleUnderline, stored.MarkStyle)
}

func TestHandler_ExcludeSite(t *testing.T) {
	s := newTestServer(t, nil)
	info := s.openPage(t)

	resp, _ := s.do(t, http.MethodPost, "/api/settings/exclude", `{"domain":"not valid"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, data := s.do(t, http.MethodPost, "/api/settings/exclude", `{"domain":"https://site.test/some/page","page_id":"`+info.ID+`"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"domain":"site.test","added":true,"page":{"success":true}}`, string(data))

	resp, data = s.do(t, http.MethodGet, "/api/pages/"+info.ID+"/info", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got session.Info
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "excluded", got.State)

	resp, data = s.do(t, http.MethodPost, "/api/settings/exclude", `{"domain":"site.test"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"domain":"site.test","added":false}`, string(data))
}

func TestHandler_HealthCheck(t *testing.T) {
	s := newTestServer(t, map[string]handler.HealthCheck{
		"redis": func(context.Context) error { return nil },
	})
	resp, data := s.do(t, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok","checks":{"redis":"healthy"}}`, string(data))

	s = newTestServer(t, map[string]handler.HealthCheck{
		"postgres": func(context.Context) error { return errors.New("down") },
	})
	resp, data = s.do(t, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.JSONEq(t, `{"status":"degraded","checks":{"postgres":"unhealthy"}}`, string(data))
}

func TestHandler_MetricsEndpoint(t *testing.T) {
	s := newTestServer(t, nil)
	s.do(t, http.MethodGet, "/api/health", "")
	resp, data := s.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(data), "http_requests_total")
}

func jsonInt(v int64) string {
	b, _ := json.Marshal(v)
	return string(b)
}
