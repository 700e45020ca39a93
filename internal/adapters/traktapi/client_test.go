package traktapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Guilhem-Bonnet/trakt-sync-panel/internal/domain"
	"github.com/Guilhem-Bonnet/trakt-sync-panel/internal/ports"
)

func setupTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(server.URL+"/", 5*time.Second)
}

func TestClient_GetConfig_Connected(t *testing.T) {
	client := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/trakt/config", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"user_id":"alice","is_connected":true,"enabled":true,"sync_interval":"0 */3 * * *","last_sync_time":1700000000,"token_expires_at":null}`))
	})

	cfg, err := client.GetConfig(context.Background())
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, "alice", cfg.UserID)
	assert.True(t, cfg.IsConnected)
	assert.Equal(t, "0 */3 * * *", cfg.SyncInterval)
	require.NotNil(t, cfg.LastSyncTime)
	assert.Equal(t, int64(1700000000), *cfg.LastSyncTime)
	assert.Nil(t, cfg.TokenExpiresAt)
}

func TestClient_GetConfig_AbsentVariants(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"null body": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("null"))
		},
		"empty body": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		},
		"not found": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"detail":"Trakt config not found"}`))
		},
	}
	for name, h := range cases {
		t.Run(name, func(t *testing.T) {
			client := setupTestServer(t, h)
			cfg, err := client.GetConfig(context.Background())
			require.NoError(t, err)
			assert.Nil(t, cfg)
		})
	}
}

func TestClient_UpdateConfig_SendsPayload(t *testing.T) {
	var got map[string]any
	client := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		b, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(b, &got))
		// Le serveur normalise l'intervalle.
		_, _ = w.Write([]byte(`{"user_id":"alice","is_connected":true,"enabled":false,"sync_interval":"0 0 * * *"}`))
	})

	cfg, err := client.UpdateConfig(context.Background(), domain.ConfigUpdate{Enabled: false, SyncInterval: "@daily"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"enabled": false, "sync_interval": "@daily"}, got)
	require.NotNil(t, cfg)
	assert.Equal(t, "0 0 * * *", cfg.SyncInterval)
}

func TestClient_ErrorDetail(t *testing.T) {
	client := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"detail":"Trakt config invalid"}`))
	})

	_, err := client.TriggerSync(context.Background(), domain.ManualSyncRequest{UserID: "u"})
	var be *ports.BackendError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, http.StatusInternalServerError, be.Status)
	assert.Equal(t, "Trakt config invalid", be.Error())
}

func TestClient_ErrorWithoutDetailFallsBackToStatus(t *testing.T) {
	client := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`<html>bad gateway</html>`))
	})

	_, err := client.Disconnect(context.Background())
	require.Error(t, err)
	assert.Equal(t, "HTTP 502", err.Error())
}

func TestClient_ValidationDetailList(t *testing.T) {
	client := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"detail":[{"loc":["body","user_id"],"msg":"field required"},{"msg":"bad type"}]}`))
	})

	_, err := client.InitAuth(context.Background(), domain.AuthInitRequest{})
	require.Error(t, err)
	assert.Equal(t, "field required; bad type", err.Error())
}

func TestClient_History_UsesLimitOffset(t *testing.T) {
	client := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/sync/history", r.URL.Path)
		assert.Equal(t, "20", r.URL.Query().Get("limit"))
		assert.Equal(t, "40", r.URL.Query().Get("offset"))
		_, _ = w.Write([]byte(`{"records":[{"timestamp":1700000000,"source":"trakt","title":"Frieren","season":1,"episode":4,"status":"success","message":"ok"}]}`))
	})

	page, err := client.History(context.Background(), domain.NewHistoryCursor(3))
	require.NoError(t, err)
	require.Len(t, page.Records, 1)
	assert.Equal(t, "Frieren", page.Records[0].Title)
	assert.Equal(t, domain.RecordSuccess, page.Records[0].Status)
}

func TestClient_InitAuth_RequiresAuthURL(t *testing.T) {
	client := setupTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"state":"abc"}`))
	})

	_, err := client.InitAuth(context.Background(), domain.AuthInitRequest{UserID: "u"})
	require.Error(t, err)
}

func TestClient_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := NewClient(url, time.Second).GetSyncStatus(context.Background())
	require.Error(t, err)
	var be *ports.BackendError
	assert.False(t, errors.As(err, &be))
}
