package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"cleantech-console/internal/backend"
	"cleantech-console/internal/backend/backendtest"
	"cleantech-console/internal/repository"
	"cleantech-console/internal/service"
	"cleantech-console/internal/session"
	"cleantech-console/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testEnv struct {
	api     *backendtest.Server
	console *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	api := backendtest.New(t)
	api.SeedN("device", "room", 20)
	api.Seed("area", backendtest.Row{"id": 1, "name": "North"}, backendtest.Row{"id": 2, "name": "South"})
	api.Seed("city", backendtest.Row{"id": 5, "name": "Tabuk", "areaId": 1})

	logger := zap.NewNop()
	client := backend.NewClient(backend.Options{BaseURL: api.BaseURL(), Timeout: 5 * time.Second}, logger)
	kv := store.NewMemoryKV()
	sessions := session.NewStore(kv, time.Hour)
	registry := service.DefaultRegistry()
	workspaces := service.NewWorkspaces(registry, client, backend.NewLocationLoader(client), store.NewStateStore(kv, time.Hour), 8, logger)
	console := service.NewConsole(service.Deps{
		Registry:   registry,
		Workspaces: workspaces,
		Client:     client,
		Sessions:   sessions,
		Actions:    repository.NewMemoryActionLogsRepo(),
		Logger:     logger,
	})

	router := NewRouter(logger)
	router.RegisterConsoleRoutes(NewConsoleHandler(console, sessions, time.Hour, logger))
	router.RegisterOpsRoutes()

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &testEnv{api: api, console: srv}
}

type reply struct {
	Status int
	Header http.Header
	Result Result[json.RawMessage]
}

func (e *testEnv) call(t *testing.T, method, path, sessionID string, body any) reply {
	t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, e.console.URL+path, rd)
	require.NoError(t, err)
	if sessionID != "" {
		req.Header.Set(SessionHeader, sessionID)
	}
	return e.do(t, req)
}

func (e *testEnv) do(t *testing.T, req *http.Request) reply {
	t.Helper()
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	out := reply{Status: resp.StatusCode, Header: resp.Header}
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(raw, &out.Result), string(raw))
	}
	return out
}

func (e *testEnv) login(t *testing.T, user string) string {
	t.Helper()
	r := e.call(t, http.MethodPost, "/console/api/v1/session", "", map[string]string{"userName": user, "password": "secret"})
	require.Equal(t, http.StatusOK, r.Status)
	require.Equal(t, ResultSuccess, r.Result.Code, r.Result.Message)
	var res struct {
		SessionID string `json:"sessionId"`
	}
	require.NoError(t, json.Unmarshal(r.Result.Result, &res))
	require.NotEmpty(t, res.SessionID)
	return res.SessionID
}

type screenView struct {
	CurrentPage int `json:"currentPage"`
	TotalPages  int `json:"totalPages"`
	TotalCount  int `json:"totalCount"`
	Items       []struct {
		Item struct {
			ID   int    `json:"id"`
			Name string `json:"name"`
		} `json:"item"`
		Selected bool `json:"selected"`
	} `json:"items"`
	SelectedIDs []int  `json:"selectedIds"`
	Error       string `json:"error"`
}

func decodeView(t *testing.T, r reply) screenView {
	t.Helper()
	var v screenView
	require.NoError(t, json.Unmarshal(r.Result.Result, &v))
	return v
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)
	r := env.call(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, r.Status)
	assert.Equal(t, ResultSuccess, r.Result.Code)
	assert.NotEmpty(t, r.Header.Get(RequestIDHeader))
}

func TestSession_LoginAndLogout(t *testing.T) {
	env := newTestEnv(t)

	r := env.call(t, http.MethodPost, "/console/api/v1/session", "", map[string]string{"userName": "admin", "password": "nope"})
	assert.Equal(t, http.StatusOK, r.Status)
	assert.Equal(t, ResultError, r.Result.Code)
	assert.Equal(t, "invalid credentials", r.Result.Message)

	logins := env.api.Count(http.MethodPost, "account/login")
	r = env.call(t, http.MethodPost, "/console/api/v1/session", "", map[string]string{"userName": "admin"})
	assert.Equal(t, http.StatusBadRequest, r.Status)
	assert.Equal(t, logins, env.api.Count(http.MethodPost, "account/login"))

	id := env.login(t, "admin")

	r = env.call(t, http.MethodDelete, "/console/api/v1/session", id, nil)
	assert.Equal(t, http.StatusOK, r.Status)

	r = env.call(t, http.MethodGet, "/console/api/v1/screens", id, nil)
	assert.Equal(t, http.StatusUnauthorized, r.Status)
	assert.Equal(t, ResultTokenExpired, r.Result.Code)
}

func TestSession_CookieIsAccepted(t *testing.T) {
	env := newTestEnv(t)
	id := env.login(t, "admin")

	req, err := http.NewRequest(http.MethodGet, env.console.URL+"/console/api/v1/screens", nil)
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: id})
	r := env.do(t, req)
	require.Equal(t, http.StatusOK, r.Status)

	var infos []service.ScreenInfo
	require.NoError(t, json.Unmarshal(r.Result.Result, &infos))
	assert.Len(t, infos, 16)
}

func TestScreen_Navigation(t *testing.T) {
	env := newTestEnv(t)
	id := env.login(t, "admin")

	r := env.call(t, http.MethodGet, "/console/api/v1/screens/devices", id, nil)
	require.Equal(t, http.StatusOK, r.Status)
	v := decodeView(t, r)
	assert.Equal(t, 1, v.CurrentPage)
	assert.Equal(t, 3, v.TotalPages)
	assert.Len(t, v.Items, 8)

	r = env.call(t, http.MethodPost, "/console/api/v1/screens/devices/select", id, map[string]any{"id": 2, "selected": true})
	require.Equal(t, http.StatusOK, r.Status)
	assert.Equal(t, []int{2}, decodeView(t, r).SelectedIDs)

	r = env.call(t, http.MethodPost, "/console/api/v1/screens/devices/page", id, map[string]any{"page": 3})
	require.Equal(t, http.StatusOK, r.Status)
	v = decodeView(t, r)
	assert.Equal(t, 3, v.CurrentPage)
	assert.Equal(t, []int{2}, v.SelectedIDs)

	r = env.call(t, http.MethodPost, "/console/api/v1/screens/devices/page", id, map[string]any{"page": 7})
	assert.Equal(t, http.StatusBadRequest, r.Status)
	assert.Equal(t, 3, decodeView(t, r).CurrentPage)

	r = env.call(t, http.MethodPost, "/console/api/v1/screens/devices/search", id, map[string]any{"term": "room 1"})
	require.Equal(t, http.StatusOK, r.Status)
	v = decodeView(t, r)
	assert.Equal(t, 11, v.TotalCount)
	assert.Empty(t, v.SelectedIDs)

	r = env.call(t, http.MethodPost, "/console/api/v1/screens/devices/page-size", id, map[string]any{"size": 0})
	assert.Equal(t, http.StatusBadRequest, r.Status)

	r = env.call(t, http.MethodGet, "/console/api/v1/screens/stock", id, nil)
	assert.Equal(t, http.StatusNotFound, r.Status)

	r = env.call(t, http.MethodPost, "/console/api/v1/screens/devices/teleport", id, map[string]any{})
	assert.Equal(t, http.StatusNotFound, r.Status)
}

func TestScreen_LoadFailureCarriesEmptyState(t *testing.T) {
	env := newTestEnv(t)
	id := env.login(t, "admin")
	env.api.Fail("device/pagination", "database offline")

	r := env.call(t, http.MethodGet, "/console/api/v1/screens/devices", id, nil)
	assert.Equal(t, http.StatusOK, r.Status)
	assert.Equal(t, ResultError, r.Result.Code)
	v := decodeView(t, r)
	assert.Empty(t, v.Items)
	assert.Equal(t, 1, v.TotalPages)
	assert.Equal(t, "database offline", v.Error)
}

func TestScreen_DeleteNeedsConfirm(t *testing.T) {
	env := newTestEnv(t)
	id := env.login(t, "admin")

	r := env.call(t, http.MethodPost, "/console/api/v1/screens/devices/delete", id, map[string]any{"id": 4})
	assert.Equal(t, http.StatusConflict, r.Status)
	assert.Zero(t, env.api.Count(http.MethodDelete, "device/"))

	r = env.call(t, http.MethodPost, "/console/api/v1/screens/devices/delete", id, map[string]any{"id": 4, "confirm": true})
	require.Equal(t, http.StatusOK, r.Status)
	assert.Equal(t, 19, decodeView(t, r).TotalCount)
	assert.Equal(t, []int{4}, env.api.Deleted("device"))

	r = env.call(t, http.MethodPost, "/console/api/v1/screens/devices/bulk-delete", id, map[string]any{"confirm": true})
	assert.Equal(t, http.StatusBadRequest, r.Status)
	assert.Equal(t, service.ErrNothingSelected.Error(), r.Result.Message)
}

func TestScreen_Export(t *testing.T) {
	env := newTestEnv(t)
	id := env.login(t, "admin")

	r := env.call(t, http.MethodGet, "/console/api/v1/screens/devices/export?format=xlsx&scope=all", id, nil)
	require.Equal(t, http.StatusOK, r.Status)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", r.Header.Get("Content-Type"))
	assert.Contains(t, r.Header.Get("Content-Disposition"), `attachment; filename="devices-`)

	r = env.call(t, http.MethodGet, "/console/api/v1/screens/devices/export?format=print", id, nil)
	require.Equal(t, http.StatusOK, r.Status)
	assert.True(t, strings.HasPrefix(r.Header.Get("Content-Type"), "text/html"))
	assert.Empty(t, r.Header.Get("Content-Disposition"))

	r = env.call(t, http.MethodGet, "/console/api/v1/screens/devices/export?format=docx", id, nil)
	assert.Equal(t, http.StatusBadRequest, r.Status)

	r = env.call(t, http.MethodGet, "/console/api/v1/screens/devices/export?scope=selection", id, nil)
	assert.Equal(t, http.StatusBadRequest, r.Status)
}

func TestLocations(t *testing.T) {
	env := newTestEnv(t)
	id := env.login(t, "admin")

	type picker struct {
		Levels []struct {
			Level    string `json:"level"`
			Selected int    `json:"selected"`
			Options  []struct {
				ID   int    `json:"id"`
				Name string `json:"name"`
			} `json:"options"`
		} `json:"levels"`
	}

	decode := func(r reply) picker {
		t.Helper()
		var p picker
		require.NoError(t, json.Unmarshal(r.Result.Result, &p))
		return p
	}

	r := env.call(t, http.MethodGet, "/console/api/v1/locations", id, nil)
	require.Equal(t, http.StatusOK, r.Status)
	p := decode(r)
	require.Len(t, p.Levels, 5)
	assert.Equal(t, "area", p.Levels[0].Level)
	assert.Len(t, p.Levels[0].Options, 2)

	r = env.call(t, http.MethodPost, "/console/api/v1/locations/select", id, map[string]any{"level": "area", "id": 1})
	require.Equal(t, http.StatusOK, r.Status)
	p = decode(r)
	assert.Equal(t, 1, p.Levels[0].Selected)
	require.Len(t, p.Levels[1].Options, 1)
	assert.Equal(t, "Tabuk", p.Levels[1].Options[0].Name)

	r = env.call(t, http.MethodPost, "/console/api/v1/locations/select", id, map[string]any{"level": "galaxy", "id": 1})
	assert.Equal(t, http.StatusBadRequest, r.Status)

	r = env.call(t, http.MethodPost, "/console/api/v1/locations/apply", id, map[string]any{"screen": "devices"})
	require.Equal(t, http.StatusOK, r.Status)
	reqs := env.api.Requests()
	assert.Contains(t, reqs[len(reqs)-1].Query, "AreaId=1")

	r = env.call(t, http.MethodPost, "/console/api/v1/locations/clear", id, map[string]any{})
	require.Equal(t, http.StatusOK, r.Status)
	p = decode(r)
	assert.Zero(t, p.Levels[0].Selected)
	assert.Empty(t, p.Levels[1].Options)
}

func TestQuestions_CreateAndAssign(t *testing.T) {
	env := newTestEnv(t)
	env.api.Seed("question", backendtest.Row{"id": 1, "nameEn": "Was the floor clean?", "type": "Rating"})
	id := env.login(t, "admin")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("nameEn", "Rate the restroom"))
	require.NoError(t, mw.WriteField("type", "Rating"))
	fw, err := mw.CreateFormFile("image", "smile.png")
	require.NoError(t, err)
	_, err = fw.Write([]byte("png-bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, env.console.URL+"/console/api/v1/questions", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set(SessionHeader, id)
	r := env.do(t, req)
	require.Equal(t, http.StatusOK, r.Status, r.Result.Message)
	assert.Equal(t, 2, decodeView(t, r).TotalCount)
	assert.Equal(t, 1, env.api.Count(http.MethodPost, "question/create"))

	r = env.call(t, http.MethodPost, "/console/api/v1/questions/assign", id, map[string]any{"pointId": 3})
	assert.Equal(t, http.StatusBadRequest, r.Status)

	r = env.call(t, http.MethodPost, "/console/api/v1/screens/questions/select-all", id, map[string]any{"selected": true})
	require.Equal(t, http.StatusOK, r.Status)
	r = env.call(t, http.MethodPost, "/console/api/v1/questions/assign", id, map[string]any{"pointId": 3})
	require.Equal(t, http.StatusOK, r.Status)
	assert.Equal(t, 1, env.api.Count(http.MethodPost, "question/assign/point"))
}

func TestActionLogs_AdminOnly(t *testing.T) {
	env := newTestEnv(t)
	admin := env.login(t, "admin")
	r := env.call(t, http.MethodPost, "/console/api/v1/screens/devices/delete", admin, map[string]any{"id": 1, "confirm": true})
	require.Equal(t, http.StatusOK, r.Status)

	r = env.call(t, http.MethodGet, "/console/api/v1/action-logs?screen=devices", admin, nil)
	require.Equal(t, http.StatusOK, r.Status)
	var page struct {
		Items []repository.ActionLog `json:"items"`
		Total int                    `json:"total"`
	}
	require.NoError(t, json.Unmarshal(r.Result.Result, &page))
	assert.Equal(t, 1, page.Total)
	assert.Equal(t, service.ActionDelete, page.Items[0].Action)

	supervisor := env.login(t, "sam")
	r = env.call(t, http.MethodGet, "/console/api/v1/action-logs", supervisor, nil)
	assert.Equal(t, http.StatusForbidden, r.Status)
}

func TestMetricsExposeRequestCounters(t *testing.T) {
	env := newTestEnv(t)
	env.call(t, http.MethodGet, "/console/api/v1/screens", "", nil)

	resp, err := http.Get(env.console.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `console_api_requests_total{endpoint="screens",result="4xx"}`)
}
