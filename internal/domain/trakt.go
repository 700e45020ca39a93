package domain

import (
	"math"
	"strconv"
	"strings"
)

const (
	// DefaultSyncInterval est l'intervalle cron appliqué quand le backend n'en renvoie pas.
	DefaultSyncInterval = "0 */6 * * *"
	// DefaultUserID est utilisé tant qu'aucun compte Trakt n'est rattaché.
	DefaultUserID = "default_user"
	// HistoryPageSize est fixe: le backend n'expose pas de total.
	HistoryPageSize = 20
)

// ConnectionConfig reflète GET/PUT /api/trakt/config.
type ConnectionConfig struct {
	UserID         string `json:"user_id"`
	IsConnected    bool   `json:"is_connected"`
	Enabled        bool   `json:"enabled"`
	SyncInterval   string `json:"sync_interval"`
	LastSyncTime   *int64 `json:"last_sync_time"`
	TokenExpiresAt *int64 `json:"token_expires_at"`
}

// EffectiveUserID renvoie l'identifiant à transmettre au backend.
func (c *ConnectionConfig) EffectiveUserID() string {
	if c == nil || strings.TrimSpace(c.UserID) == "" {
		return DefaultUserID
	}
	return c.UserID
}

// EffectiveSyncInterval applique l'intervalle par défaut.
func (c *ConnectionConfig) EffectiveSyncInterval() string {
	if c == nil || strings.TrimSpace(c.SyncInterval) == "" {
		return DefaultSyncInterval
	}
	return c.SyncInterval
}

// ConfigUpdate est le corps de PUT /api/trakt/config.
type ConfigUpdate struct {
	Enabled      bool   `json:"enabled"`
	SyncInterval string `json:"sync_interval"`
}

type SyncStatus struct {
	IsRunning    bool   `json:"is_running"`
	LastSyncTime *int64 `json:"last_sync_time"`
	NextSyncTime *int64 `json:"next_sync_time"`
	SuccessCount int    `json:"success_count"`
	TotalCount   int    `json:"total_count"`
}

// SuccessRate renvoie un pourcentage arrondi, 0 quand aucun item n'a été traité.
func (s SyncStatus) SuccessRate() int {
	if s.TotalCount <= 0 {
		return 0
	}
	return int(math.Round(float64(s.SuccessCount) / float64(s.TotalCount) * 100))
}

type RecordStatus string

const (
	RecordSuccess RecordStatus = "success"
	RecordError   RecordStatus = "error"
)

type SyncRecord struct {
	Timestamp *int64       `json:"timestamp"`
	Source    string       `json:"source"`
	Title     string       `json:"title"`
	Season    int          `json:"season"`
	Episode   int          `json:"episode"`
	Status    RecordStatus `json:"status"`
	Message   string       `json:"message"`
}

// EpisodeLabel formate "S<season>E<episode>".
func (r SyncRecord) EpisodeLabel() string {
	return "S" + strconv.Itoa(r.Season) + "E" + strconv.Itoa(r.Episode)
}

type SyncHistoryPage struct {
	Records []SyncRecord `json:"records"`
}

// HistoryCursor est une pagination limit/offset à partir d'un numéro de page (1-based).
type HistoryCursor struct {
	Page     int
	PageSize int
}

func NewHistoryCursor(page int) HistoryCursor {
	if page < 1 {
		page = 1
	}
	return HistoryCursor{Page: page, PageSize: HistoryPageSize}
}

func (c HistoryCursor) Limit() int {
	if c.PageSize <= 0 {
		return HistoryPageSize
	}
	return c.PageSize
}

func (c HistoryCursor) Offset() int {
	if c.Page < 1 {
		return 0
	}
	return (c.Page - 1) * c.Limit()
}

// HasNext est déduit: une page pleine laisse supposer une suite.
func (c HistoryCursor) HasNext(returned int) bool {
	return returned >= c.Limit()
}

type ManualSyncRequest struct {
	UserID   string `json:"user_id"`
	FullSync bool   `json:"full_sync"`
}

// MessageResponse est la réponse de sync/manual et disconnect.
type MessageResponse struct {
	Message string `json:"message"`
}

type AuthInitRequest struct {
	UserID string `json:"user_id"`
}

type AuthInitResponse struct {
	AuthURL string `json:"auth_url"`
	State   string `json:"state"`
}
