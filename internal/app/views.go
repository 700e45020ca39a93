package app

import (
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/Guilhem-Bonnet/trakt-sync-panel/internal/domain"
)

const (
	dateLayout = "2006-01-02 15:04:05"

	textNeverSynced = "Never synced"
	textUnknown     = "Unknown"
)

// Region identifie une zone de la page rechargeable indépendamment.
type Region string

const (
	RegionConfig  Region = "config"
	RegionStatus  Region = "status"
	RegionHistory Region = "history"
)

type NoticeLevel string

const (
	NoticeSuccess NoticeLevel = "success"
	NoticeDanger  NoticeLevel = "danger"
	NoticeWarning NoticeLevel = "warning"
	NoticeInfo    NoticeLevel = "info"
)

// Notification est un toast éphémère.
type Notification struct {
	Level   NoticeLevel   `json:"level"`
	Message string        `json:"message"`
	TTL     time.Duration `json:"ttl"`
}

func (n Notification) IsZero() bool { return n.Message == "" }

// FollowUp demande le rechargement différé d'une région.
type FollowUp struct {
	Region Region        `json:"region"`
	After  time.Duration `json:"after"`
}

type ConnectionState string

const (
	ConnectionDisconnected ConnectionState = "disconnected"
	ConnectionConnected    ConnectionState = "connected"
	ConnectionInvalid      ConnectionState = "invalid"
)

type ConfigForm struct {
	Enabled      bool
	SyncInterval string
	// NextRun est un aperçu calculé localement; vide si l'expression est illisible.
	NextRun         string
	IntervalWarning string
}

type ConfigView struct {
	State    ConnectionState
	Headline string
	Details  string

	UserID       string
	LastSync     string
	TokenExpires string

	ConnectEnabled    bool
	DisconnectEnabled bool
	SaveEnabled       bool

	// Form est nil quand aucune config n'existe: le formulaire garde son état.
	Form *ConfigForm

	Error string
}

// Formatter convertit les timestamps Unix du backend en texte local.
type Formatter struct {
	Location *time.Location
	Now      func() time.Time
}

func DefaultFormatter() Formatter {
	return Formatter{Location: time.Local, Now: time.Now}
}

func (f Formatter) loc() *time.Location {
	if f.Location == nil {
		return time.Local
	}
	return f.Location
}

func (f Formatter) now() time.Time {
	if f.Now == nil {
		return time.Now()
	}
	return f.Now()
}

// Date formate un timestamp Unix (secondes); fallback si absent.
func (f Formatter) Date(ts *int64, fallback string) string {
	if ts == nil || *ts == 0 {
		return fallback
	}
	return time.Unix(*ts, 0).In(f.loc()).Format(dateLayout)
}

// NextRun calcule la prochaine exécution d'une expression cron standard.
func (f Formatter) NextRun(expr string) (string, error) {
	sched, err := cron.ParseStandard(strings.TrimSpace(expr))
	if err != nil {
		return "", err
	}
	return sched.Next(f.now().In(f.loc())).Format(dateLayout), nil
}

func (f Formatter) ConfigView(cfg *domain.ConnectionConfig) ConfigView {
	if cfg == nil {
		return ConfigView{
			State:          ConnectionDisconnected,
			Headline:       "Not connected to Trakt",
			Details:        "Complete the Trakt authorization first",
			ConnectEnabled: true,
		}
	}

	v := ConfigView{UserID: cfg.UserID}
	if cfg.IsConnected {
		v.State = ConnectionConnected
		v.Headline = "Connected to Trakt"
		v.LastSync = f.Date(cfg.LastSyncTime, textNeverSynced)
		v.TokenExpires = f.Date(cfg.TokenExpiresAt, textUnknown)
		v.Details = "User ID: " + cfg.UserID + " | Last sync: " + v.LastSync + " | Token expires: " + v.TokenExpires
		v.DisconnectEnabled = true
		v.SaveEnabled = true
	} else {
		v.State = ConnectionInvalid
		v.Headline = "Connection invalid"
		v.Details = "Trakt authorization expired or invalid"
		v.ConnectEnabled = true
		v.DisconnectEnabled = true
		v.SaveEnabled = true
	}

	form := &ConfigForm{Enabled: cfg.Enabled, SyncInterval: cfg.EffectiveSyncInterval()}
	if next, err := f.NextRun(form.SyncInterval); err == nil {
		form.NextRun = next
	} else {
		form.IntervalWarning = "Unrecognized cron expression, the backend will decide"
	}
	v.Form = form
	return v
}

// ConfigLoadError reproduit l'état affiché quand la config n'a pas pu être lue.
func (f Formatter) ConfigLoadError(err error) ConfigView {
	v := f.ConfigView(nil)
	v.Error = "Failed to load configuration"
	if d := ErrorDetail(err); d != "" {
		v.Error += ": " + d
	}
	return v
}

type StatusView struct {
	Running  bool
	Headline string
	Details  string

	LastSync    string
	NextSync    string
	SuccessRate int

	SyncEnabled bool

	Error string
}

func (v StatusView) SuccessRateLabel() string {
	return strconv.Itoa(v.SuccessRate) + "%"
}

func (f Formatter) StatusView(s domain.SyncStatus) StatusView {
	if s.IsRunning {
		return StatusView{
			Running:  true,
			Headline: "Sync in progress",
			Details:  "Syncing watch history...",
		}
	}
	v := StatusView{
		Headline:    "Sync ready",
		LastSync:    f.Date(s.LastSyncTime, textNeverSynced),
		NextSync:    f.Date(s.NextSyncTime, textUnknown),
		SuccessRate: s.SuccessRate(),
		SyncEnabled: true,
	}
	v.Details = "Last sync: " + v.LastSync + " | Next sync: " + v.NextSync + " | Success rate: " + v.SuccessRateLabel()
	return v
}

func StatusLoadError(err error) StatusView {
	v := StatusView{Error: "Failed to load sync status"}
	if d := ErrorDetail(err); d != "" {
		v.Error += ": " + d
	}
	return v
}

type HistoryRow struct {
	When        string
	Source      string
	Title       string
	Episode     string
	Status      string
	StatusClass string
	StatusIcon  string
	Message     string
}

type HistoryView struct {
	Page        int
	Rows        []HistoryRow
	Empty       bool
	PrevEnabled bool
	NextEnabled bool

	Error string
}

func statusPresentation(s domain.RecordStatus) (class, icon string) {
	switch s {
	case domain.RecordSuccess:
		return "text-success", "bi-check-circle-fill"
	case domain.RecordError:
		return "text-danger", "bi-x-circle-fill"
	default:
		return "text-warning", "bi-exclamation-circle-fill"
	}
}

// HistoryView construit la page; le texte libre reste brut, l'échappement
// est fait par le rendu HTML.
func (f Formatter) HistoryView(cursor domain.HistoryCursor, page domain.SyncHistoryPage) HistoryView {
	v := HistoryView{Page: cursor.Page}
	if len(page.Records) == 0 {
		v.Empty = true
		return v
	}

	v.Rows = make([]HistoryRow, 0, len(page.Records))
	for _, rec := range page.Records {
		class, icon := statusPresentation(rec.Status)
		source := rec.Source
		if strings.TrimSpace(source) == "" {
			source = "unknown"
		}
		v.Rows = append(v.Rows, HistoryRow{
			When:        f.Date(rec.Timestamp, textUnknown),
			Source:      source,
			Title:       rec.Title,
			Episode:     rec.EpisodeLabel(),
			Status:      string(rec.Status),
			StatusClass: class,
			StatusIcon:  icon,
			Message:     rec.Message,
		})
	}
	v.PrevEnabled = cursor.Page > 1
	v.NextEnabled = cursor.HasNext(len(page.Records))
	return v
}

func HistoryLoadError(page int, err error) HistoryView {
	v := HistoryView{Page: page, PrevEnabled: page > 1, Error: "Failed to load sync history"}
	if d := ErrorDetail(err); d != "" {
		v.Error += ": " + d
	}
	return v
}
