// Package traktapi est le client REST du backend Trakt (config, sync, OAuth, historique).
package traktapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Guilhem-Bonnet/trakt-sync-panel/internal/buildinfo"
	"github.com/Guilhem-Bonnet/trakt-sync-panel/internal/domain"
	"github.com/Guilhem-Bonnet/trakt-sync-panel/internal/ports"
)

const (
	pathConfig     = "/api/trakt/config"
	pathSyncStatus = "/api/trakt/sync/status"
	pathSyncManual = "/api/trakt/sync/manual"
	pathDisconnect = "/api/trakt/disconnect"
	pathAuthInit   = "/api/trakt/auth/init"
	pathHistory    = "/api/sync/history"

	maxErrorBody = 64 << 10
)

type Client struct {
	baseURL string
	http    *http.Client
}

var _ ports.TraktBackend = (*Client)(nil)

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// WithHTTPClient remplace le client HTTP (tests, transport custom).
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	if hc != nil {
		c.http = hc
	}
	return c
}

func (c *Client) GetConfig(ctx context.Context) (*domain.ConnectionConfig, error) {
	var out domain.ConnectionConfig
	present, err := c.do(ctx, http.MethodGet, pathConfig, nil, nil, &out)
	if err != nil {
		var be *ports.BackendError
		if errors.As(err, &be) && be.Status == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}
	if !present {
		return nil, nil
	}
	return &out, nil
}

func (c *Client) UpdateConfig(ctx context.Context, update domain.ConfigUpdate) (*domain.ConnectionConfig, error) {
	var out domain.ConnectionConfig
	present, err := c.do(ctx, http.MethodPut, pathConfig, nil, update, &out)
	if err != nil {
		return nil, err
	}
	if !present {
		return nil, nil
	}
	return &out, nil
}

func (c *Client) GetSyncStatus(ctx context.Context) (domain.SyncStatus, error) {
	var out domain.SyncStatus
	if _, err := c.do(ctx, http.MethodGet, pathSyncStatus, nil, nil, &out); err != nil {
		return domain.SyncStatus{}, err
	}
	return out, nil
}

func (c *Client) TriggerSync(ctx context.Context, req domain.ManualSyncRequest) (domain.MessageResponse, error) {
	var out domain.MessageResponse
	if _, err := c.do(ctx, http.MethodPost, pathSyncManual, nil, req, &out); err != nil {
		return domain.MessageResponse{}, err
	}
	return out, nil
}

func (c *Client) Disconnect(ctx context.Context) (domain.MessageResponse, error) {
	var out domain.MessageResponse
	if _, err := c.do(ctx, http.MethodDelete, pathDisconnect, nil, nil, &out); err != nil {
		return domain.MessageResponse{}, err
	}
	return out, nil
}

func (c *Client) InitAuth(ctx context.Context, req domain.AuthInitRequest) (domain.AuthInitResponse, error) {
	var out domain.AuthInitResponse
	if _, err := c.do(ctx, http.MethodPost, pathAuthInit, nil, req, &out); err != nil {
		return domain.AuthInitResponse{}, err
	}
	if strings.TrimSpace(out.AuthURL) == "" {
		return domain.AuthInitResponse{}, fmt.Errorf("trakt backend returned no auth_url")
	}
	return out, nil
}

func (c *Client) History(ctx context.Context, cursor domain.HistoryCursor) (domain.SyncHistoryPage, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(cursor.Limit()))
	q.Set("offset", strconv.Itoa(cursor.Offset()))

	var out domain.SyncHistoryPage
	if _, err := c.do(ctx, http.MethodGet, pathHistory, q, nil, &out); err != nil {
		return domain.SyncHistoryPage{}, err
	}
	return out, nil
}

// do exécute la requête et décode le corps dans out.
// present vaut false quand le corps est vide ou "null".
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, out any) (present bool, err error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return false, err
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return false, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", buildinfo.UserAgent())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("trakt backend %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return false, &ports.BackendError{Status: resp.StatusCode, Detail: parseDetail(raw)}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, fmt.Errorf("trakt backend %s %s: read body: %w", method, path, err)
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return false, nil
	}
	if out == nil {
		return true, nil
	}
	if err := json.Unmarshal(trimmed, out); err != nil {
		return false, fmt.Errorf("trakt backend %s %s: decode: %w", method, path, err)
	}
	return true, nil
}

type validationIssue struct {
	Msg string `json:"msg"`
}

// parseDetail extrait "detail": une chaîne, ou la liste d'erreurs de validation FastAPI.
func parseDetail(raw []byte) string {
	var body struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(raw, &body); err != nil || len(body.Detail) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(body.Detail, &s); err == nil {
		return strings.TrimSpace(s)
	}

	var issues []validationIssue
	if err := json.Unmarshal(body.Detail, &issues); err == nil {
		msgs := make([]string, 0, len(issues))
		for _, it := range issues {
			if m := strings.TrimSpace(it.Msg); m != "" {
				msgs = append(msgs, m)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return ""
}
