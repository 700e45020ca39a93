package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/xid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Guilhem-Bonnet/trakt-sync-panel/internal/adapters/memorybus"
	"github.com/Guilhem-Bonnet/trakt-sync-panel/internal/adapters/sqlite"
	"github.com/Guilhem-Bonnet/trakt-sync-panel/internal/adapters/traktapi"
	"github.com/Guilhem-Bonnet/trakt-sync-panel/internal/app"
	"github.com/Guilhem-Bonnet/trakt-sync-panel/internal/domain"
)

// stubBackend simule l'API REST du backend Trakt.
type stubBackend struct {
	mu sync.Mutex

	configJSON   string
	updateJSON   string
	updateStatus int
	updateBody   string
	records      []domain.SyncRecord

	lastUpdate      domain.ConfigUpdate
	syncCalls       int
	lastSync        domain.ManualSyncRequest
	disconnectCalls int
	offsets         []int
}

func newStubBackend() *stubBackend {
	return &stubBackend{configJSON: "null"}
}

func (b *stubBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.URL.Path == "/api/trakt/config" && r.Method == http.MethodGet:
		_, _ = io.WriteString(w, b.configJSON)
	case r.URL.Path == "/api/trakt/config" && r.Method == http.MethodPut:
		_ = json.NewDecoder(r.Body).Decode(&b.lastUpdate)
		if b.updateStatus != 0 {
			w.WriteHeader(b.updateStatus)
			_, _ = io.WriteString(w, b.updateBody)
			return
		}
		_, _ = io.WriteString(w, b.updateJSON)
	case r.URL.Path == "/api/trakt/sync/status":
		_, _ = io.WriteString(w, `{"is_running":false,"last_sync_time":null,"next_sync_time":null,"success_count":3,"total_count":4}`)
	case r.URL.Path == "/api/trakt/sync/manual":
		b.syncCalls++
		_ = json.NewDecoder(r.Body).Decode(&b.lastSync)
		_, _ = io.WriteString(w, `{"message":"Sync started"}`)
	case r.URL.Path == "/api/trakt/disconnect" && r.Method == http.MethodDelete:
		b.disconnectCalls++
		_, _ = io.WriteString(w, `{"message":"Disconnected from Trakt"}`)
	case r.URL.Path == "/api/trakt/auth/init":
		_, _ = io.WriteString(w, `{"auth_url":"https://trakt.tv/oauth/authorize?client_id=x","state":"abc"}`)
	case r.URL.Path == "/api/sync/history":
		off, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		b.offsets = append(b.offsets, off)
		_ = json.NewEncoder(w).Encode(domain.SyncHistoryPage{Records: b.records})
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"detail":"Not Found"}`)
	}
}

type testEnv struct {
	stub   *stubBackend
	bus    *memorybus.Bus
	relay  *WindowRelay
	router http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	stub := newStubBackend()
	backendSrv := httptest.NewServer(stub)
	t.Cleanup(backendSrv.Close)
	client := traktapi.NewClient(backendSrv.URL, 2*time.Second)

	db, err := sqlite.Open(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	sessions := app.NewSessionService(sqlite.NewSessionRepository(db.SQL))
	panel := app.NewPanelService(zerolog.Nop(), client, sessions, app.Formatter{Location: time.UTC, Now: time.Now})

	bus := memorybus.New()
	relay := NewWindowRelay(zerolog.Nop(), bus)
	relay.AckTimeout = 2 * time.Second
	wizard := app.NewAuthWizard(ctx, zerolog.Nop(), client, relay, bus, app.AuthOptions{
		PollInterval: 20 * time.Millisecond,
		SuccessAfter: 1000,
		Timeout:      5 * time.Second,
		ReloadDelay:  time.Millisecond,
	})

	s := NewServer(zerolog.Nop(), panel, wizard, bus, relay, NewSessionLimiter(time.Hour, 1))
	return &testEnv{stub: stub, bus: bus, relay: relay, router: s.Router()}
}

func (e *testEnv) do(t *testing.T, sid, method, target string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if sid != "" {
		req.AddCookie(&http.Cookie{Name: sessionCookie, Value: sid})
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func TestPanelPage_RendersRegionsAndEscapesText(t *testing.T) {
	env := newTestEnv(t)
	env.stub.records = []domain.SyncRecord{{Title: "<script>alert(1)</script>", Season: 1, Episode: 2, Status: domain.RecordSuccess}}

	rr := env.do(t, "", http.MethodGet, "/panel", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var cookie *http.Cookie
	for _, c := range rr.Result().Cookies() {
		if c.Name == sessionCookie {
			cookie = c
		}
	}
	require.NotNil(t, cookie, "session cookie must be set")
	_, err := xid.FromString(cookie.Value)
	assert.NoError(t, err)

	body := rr.Body.String()
	assert.Contains(t, body, "Not connected to Trakt")
	assert.Contains(t, body, `id="btn-disconnect" class="btn btn-outline-danger" disabled`)
	assert.Contains(t, body, `id="btn-save" class="btn btn-success" disabled`)
	assert.NotContains(t, body, `id="btn-connect" class="btn btn-primary" disabled`)
	assert.Contains(t, body, `id="success-rate">75%<`)
	assert.Contains(t, body, "&lt;script&gt;alert(1)&lt;/script&gt;")
	assert.NotContains(t, body, "<script>alert(1)")
	assert.Contains(t, body, "S1E2")
}

func TestPanelPage_RootRedirects(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(t, "", http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, "/panel", rr.Header().Get("Location"))
}

func TestSync_SubmitsAndIsRateLimited(t *testing.T) {
	env := newTestEnv(t)
	sid := xid.New().String()

	rr := env.do(t, sid, http.MethodPost, "/panel/sync", strings.NewReader("full=true"))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "none", rr.Header().Get("HX-Reswap"))
	assert.Contains(t, rr.Body.String(), "Sync job submitted: Sync started")
	assert.Contains(t, rr.Body.String(), `hx-trigger="load delay:1000ms"`)
	assert.Contains(t, rr.Body.String(), `hx-target="#region-status"`)

	rr = env.do(t, sid, http.MethodPost, "/panel/sync", nil)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, codeRateLimited, rr.Header().Get(headerPanelError))

	env.stub.mu.Lock()
	defer env.stub.mu.Unlock()
	assert.Equal(t, 1, env.stub.syncCalls)
	assert.Equal(t, domain.ManualSyncRequest{UserID: domain.DefaultUserID, FullSync: true}, env.stub.lastSync)
}

func TestDisconnect_RequiresConfirmation(t *testing.T) {
	env := newTestEnv(t)
	sid := xid.New().String()

	rr := env.do(t, sid, http.MethodPost, "/panel/disconnect", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, app.CodeConfirmationRequired, rr.Header().Get(headerPanelError))

	env.stub.mu.Lock()
	assert.Zero(t, env.stub.disconnectCalls)
	env.stub.mu.Unlock()

	// htmx envoie hx-vals dans le corps du formulaire.
	rr = env.do(t, sid, http.MethodPost, "/panel/disconnect", strings.NewReader("confirm=yes"))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Disconnected from Trakt")
	assert.Contains(t, rr.Body.String(), `hx-target="#region-config"`)

	env.stub.mu.Lock()
	assert.Equal(t, 1, env.stub.disconnectCalls)
	env.stub.mu.Unlock()
}

func TestSaveConfig_EmptyResponseRendersReloadedConfig(t *testing.T) {
	env := newTestEnv(t)
	env.stub.updateJSON = ""
	env.stub.configJSON = `{"user_id":"alice","is_connected":true,"enabled":true,"sync_interval":"0 */6 * * *"}`

	rr := env.do(t, xid.New().String(), http.MethodPut, "/panel/config", strings.NewReader("enabled=on&sync_interval=0+*/6+*+*+*"))
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "Configuration saved")
	assert.Contains(t, body, "Connected to Trakt")
	assert.NotContains(t, body, "Not connected to Trakt")
}

func TestDisconnectButton_PostsConfirmationFromForm(t *testing.T) {
	env := newTestEnv(t)
	env.stub.configJSON = `{"user_id":"alice","is_connected":true,"enabled":true,"sync_interval":"0 */6 * * *"}`
	sid := xid.New().String()

	page := env.do(t, sid, http.MethodGet, "/panel", nil)
	require.Equal(t, http.StatusOK, page.Code)
	assert.Contains(t, page.Body.String(), `hx-post="/panel/disconnect"`)

	rr := env.do(t, sid, http.MethodPost, "/panel/disconnect", strings.NewReader("confirm=yes"))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, rr.Header().Get(headerPanelError))

	env.stub.mu.Lock()
	assert.Equal(t, 1, env.stub.disconnectCalls)
	env.stub.mu.Unlock()
}

func TestDisconnect_OldDeleteRouteIsGone(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(t, xid.New().String(), http.MethodDelete, "/panel/connection", strings.NewReader("confirm=yes"))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	env.stub.mu.Lock()
	assert.Zero(t, env.stub.disconnectCalls)
	env.stub.mu.Unlock()
}

func TestSaveConfig_SendsFormAndRendersServerResponse(t *testing.T) {
	env := newTestEnv(t)
	env.stub.updateJSON = `{"user_id":"alice","is_connected":true,"enabled":false,"sync_interval":"0 */12 * * *"}`

	rr := env.do(t, xid.New().String(), http.MethodPut, "/panel/config", strings.NewReader("sync_interval=*/30+*+*+*+*"))
	require.Equal(t, http.StatusOK, rr.Code)

	env.stub.mu.Lock()
	assert.Equal(t, domain.ConfigUpdate{Enabled: false, SyncInterval: "*/30 * * * *"}, env.stub.lastUpdate)
	env.stub.mu.Unlock()

	body := rr.Body.String()
	assert.Contains(t, body, `id="region-config"`)
	assert.Contains(t, body, `value="0 */12 * * *"`)
	assert.Contains(t, body, "Configuration saved")
	assert.NotContains(t, body, "checked")
}

func TestSaveConfig_BackendValidationError(t *testing.T) {
	env := newTestEnv(t)
	env.stub.updateStatus = http.StatusUnprocessableEntity
	env.stub.updateBody = `{"detail":[{"msg":"invalid cron"}]}`

	rr := env.do(t, xid.New().String(), http.MethodPut, "/panel/config", strings.NewReader("enabled=on&sync_interval=nope"))
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Equal(t, app.CodeHTTPStatus, rr.Header().Get(headerPanelError))
	assert.Equal(t, "none", rr.Header().Get("HX-Reswap"))
	assert.Contains(t, rr.Body.String(), "Failed to save configuration: invalid cron")
	assert.NotContains(t, rr.Body.String(), `id="region-config"`)

	env.stub.mu.Lock()
	assert.True(t, env.stub.lastUpdate.Enabled)
	env.stub.mu.Unlock()
}

func TestHistory_NavigationIsPerSession(t *testing.T) {
	env := newTestEnv(t)
	records := make([]domain.SyncRecord, domain.HistoryPageSize)
	for i := range records {
		records[i] = domain.SyncRecord{Title: "Show", Status: domain.RecordSuccess}
	}
	env.stub.records = records

	a, b := xid.New().String(), xid.New().String()
	rr := env.do(t, a, http.MethodGet, "/panel/history?nav=next", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `data-page="2"`)
	env.do(t, a, http.MethodGet, "/panel/history?nav=next", nil)
	rr = env.do(t, b, http.MethodGet, "/panel/history?nav=refresh", nil)
	assert.Contains(t, rr.Body.String(), `data-page="1"`)

	env.stub.mu.Lock()
	assert.Equal(t, []int{20, 40, 0}, env.stub.offsets)
	env.stub.records = nil
	env.stub.mu.Unlock()

	rr = env.do(t, a, http.MethodGet, "/panel/history?nav=refresh", nil)
	body := rr.Body.String()
	assert.Contains(t, body, `data-page="3"`)
	assert.Contains(t, body, "No sync history yet")
	assert.Contains(t, body, `id="btn-history-next" class="btn btn-sm btn-outline-secondary" disabled`)
	assert.Contains(t, body, `id="btn-history-prev" class="btn btn-sm btn-outline-secondary" disabled`)
}

func TestAuthStart_OpensWindowThroughRelay(t *testing.T) {
	env := newTestEnv(t)
	sid := xid.New().String()

	events, cancel := env.bus.Subscribe()
	defer cancel()

	done := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		done <- env.do(t, sid, http.MethodPost, "/panel/auth/start", nil)
	}()

	var open windowOpenEvent
	deadline := time.After(2 * time.Second)
	for open.ID == "" {
		select {
		case evt := <-events:
			if evt.Topic != app.TopicWindowOpen {
				continue
			}
			pe, err := app.DecodePanelEvent(evt)
			require.NoError(t, err)
			require.Equal(t, sid, pe.Session)
			require.NoError(t, json.Unmarshal(pe.Data, &open))
		case <-deadline:
			t.Fatal("window open event not published")
		}
	}
	assert.Equal(t, "https://trakt.tv/oauth/authorize?client_id=x", open.URL)

	rr := env.do(t, xid.New().String(), http.MethodPost, "/panel/auth/window/"+open.ID, strings.NewReader("status=opened"))
	assert.Equal(t, http.StatusNotFound, rr.Code, "another session cannot ack the window")

	rr = env.do(t, sid, http.MethodPost, "/panel/auth/window/"+open.ID, strings.NewReader("status=opened"))
	assert.Equal(t, http.StatusNoContent, rr.Code)

	select {
	case rr := <-done:
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), `data-step="2"`)
	case <-time.After(3 * time.Second):
		t.Fatal("start did not return")
	}

	rr = env.do(t, sid, http.MethodPost, "/panel/auth/window/"+open.ID, strings.NewReader("status=closed"))
	assert.Equal(t, http.StatusNoContent, rr.Code)

	require.Eventually(t, func() bool {
		rr := env.do(t, sid, http.MethodGet, "/panel/auth", nil)
		return strings.Contains(rr.Body.String(), `data-step="error"`) &&
			strings.Contains(rr.Body.String(), "Authorization window was closed")
	}, 2*time.Second, 10*time.Millisecond)
}

func TestAuthCancel_HidesModal(t *testing.T) {
	env := newTestEnv(t)
	sid := xid.New().String()

	rr := env.do(t, sid, http.MethodPost, "/panel/auth/show", nil)
	assert.Contains(t, rr.Body.String(), `data-step="1"`)

	rr = env.do(t, sid, http.MethodPost, "/panel/auth/cancel", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, `<div id="auth-modal"></div>`, rr.Body.String())
}

func TestWindowReport_UnknownWindow(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(t, xid.New().String(), http.MethodPost, "/panel/auth/window/nope", strings.NewReader("status=opened"))
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.JSONEq(t, `{"detail":"unknown window"}`, rr.Body.String())
}

func TestHealthAndOpenAPI(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, "", http.MethodGet, "/api/v1/health", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok","sse_clients":0}`, rr.Body.String())

	rr = env.do(t, "", http.MethodGet, "/api/v1/openapi.json", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &doc))
	paths, ok := doc["paths"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, paths, "/panel/sync")
	assert.Contains(t, paths, "/panel/auth/window/{id}")
	assert.Contains(t, paths, "/panel/disconnect")
}
