package httpapi

import (
	"net/http"
	"strconv"

	"maragu.dev/gomponents"
	hx "maragu.dev/gomponents-htmx"
	"maragu.dev/gomponents/html"

	"github.com/Guilhem-Bonnet/trakt-sync-panel/internal/app"
	"github.com/Guilhem-Bonnet/trakt-sync-panel/internal/domain"
)

const (
	htmxJS         = "https://unpkg.com/htmx.org@1.9.12"
	bootstrapCSS   = "https://cdn.jsdelivr.net/npm/bootstrap@5.3.3/dist/css/bootstrap.min.css"
	bootstrapIcons = "https://cdn.jsdelivr.net/npm/bootstrap-icons@1.11.3/font/bootstrap-icons.min.css"
)

// render écrit un ou plusieurs fragments HTML. Le texte est échappé par gomponents.
func render(w http.ResponseWriter, status int, nodes ...gomponents.Node) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	for _, n := range nodes {
		if n == nil {
			continue
		}
		_ = n.Render(w)
	}
}

func disabledUnless(enabled bool) gomponents.Node {
	return gomponents.If(!enabled, html.Disabled())
}

func regionURL(r app.Region) string {
	switch r {
	case app.RegionConfig:
		return "/panel/config"
	case app.RegionStatus:
		return "/panel/status"
	default:
		return "/panel/history?nav=refresh"
	}
}

func regionID(r app.Region) string { return "region-" + string(r) }

func renderPage(v app.PageView, auth app.AuthView) gomponents.Node {
	return html.Doctype(
		html.HTML(
			html.Lang("en"),
			html.Head(
				html.Meta(html.Charset("utf-8")),
				html.Meta(html.Name("viewport"), html.Content("width=device-width, initial-scale=1")),
				html.TitleEl(gomponents.Text("Trakt sync")),
				html.Link(html.Rel("stylesheet"), html.Href(bootstrapCSS)),
				html.Link(html.Rel("stylesheet"), html.Href(bootstrapIcons)),
				html.Script(html.Src(htmxJS)),
				html.StyleEl(gomponents.Raw(panelCSS)),
			),
			html.Body(
				html.Main(
					html.Class("container py-4"),
					html.H1(html.Class("h3 mb-4"), html.I(html.Class("bi bi-arrow-repeat")), gomponents.Text(" Trakt synchronization")),
					configRegion(v.Config),
					statusRegion(v.Status),
					historyRegion(v.History),
				),
				authModal(auth),
				html.Div(html.ID("toasts"), html.Class("toast-stack")),
				html.Div(html.ID("followups"), html.Style("display:none")),
				html.Script(gomponents.Raw(panelJS)),
			),
		),
	)
}

func stateClass(s app.ConnectionState) (class, icon string) {
	switch s {
	case app.ConnectionConnected:
		return "text-success", "bi-check-circle-fill"
	case app.ConnectionInvalid:
		return "text-warning", "bi-exclamation-triangle-fill"
	default:
		return "text-secondary", "bi-x-circle"
	}
}

func errorAlert(msg string) gomponents.Node {
	return gomponents.If(msg != "", html.Div(html.Class("alert alert-danger py-2"), html.Role("alert"), gomponents.Text(msg)))
}

func configRegion(v app.ConfigView) gomponents.Node {
	form := v.Form
	if form == nil {
		form = &app.ConfigForm{SyncInterval: domain.DefaultSyncInterval}
	}
	class, icon := stateClass(v.State)

	return html.Section(
		html.ID(regionID(app.RegionConfig)),
		html.Class("card mb-4"),
		html.Data("state", string(v.State)),
		html.Div(
			html.Class("card-body"),
			html.H2(html.Class("h5 card-title"), gomponents.Text("Connection")),
			html.P(html.Class("mb-1 fw-semibold "+class), html.I(html.Class("bi "+icon)), gomponents.Text(" "+v.Headline)),
			html.P(html.Class("text-muted small"), gomponents.Text(v.Details)),
			errorAlert(v.Error),
			html.Div(
				html.Class("d-flex gap-2 mb-3"),
				html.Button(
					html.Type("button"), html.ID("btn-connect"), html.Class("btn btn-primary"),
					disabledUnless(v.ConnectEnabled),
					hx.Post("/panel/auth/show"), hx.Target("#auth-modal"), hx.Swap("outerHTML"),
					gomponents.Text("Connect to Trakt"),
				),
				html.Button(
					html.Type("button"), html.ID("btn-disconnect"), html.Class("btn btn-outline-danger"),
					disabledUnless(v.DisconnectEnabled),
					hx.Post("/panel/disconnect"), hx.Vals(`{"confirm":"yes"}`),
					hx.Confirm("Disconnect from Trakt? Automatic sync will stop."),
					hx.Swap("none"),
					gomponents.Text("Disconnect"),
				),
			),
			html.Form(
				html.ID("config-form"),
				hx.Put("/panel/config"), hx.Target("#"+regionID(app.RegionConfig)), hx.Swap("outerHTML"),
				html.Div(
					html.Class("form-check form-switch mb-2"),
					html.Input(
						html.Class("form-check-input"), html.Type("checkbox"), html.ID("sync-enabled"),
						html.Name("enabled"), html.Value("true"),
						gomponents.If(form.Enabled, html.Checked()),
					),
					html.Label(html.Class("form-check-label"), html.For("sync-enabled"), gomponents.Text("Automatic sync")),
				),
				html.Div(
					html.Class("mb-2"),
					html.Label(html.Class("form-label"), html.For("sync-interval"), gomponents.Text("Sync interval (cron)")),
					html.Input(
						html.Class("form-control font-monospace"), html.Type("text"), html.ID("sync-interval"),
						html.Name("sync_interval"), html.Value(form.SyncInterval), html.Placeholder(domain.DefaultSyncInterval),
					),
					gomponents.If(form.NextRun != "", html.Small(html.Class("text-muted"), gomponents.Text("Next run: "+form.NextRun))),
					gomponents.If(form.IntervalWarning != "", html.Small(html.Class("text-warning"), gomponents.Text(form.IntervalWarning))),
				),
				html.Button(html.Type("submit"), html.ID("btn-save"), html.Class("btn btn-success"), disabledUnless(v.SaveEnabled), gomponents.Text("Save")),
			),
		),
	)
}

func statusRegion(v app.StatusView) gomponents.Node {
	icon := "bi-pause-circle"
	if v.Running {
		icon = "bi-arrow-repeat"
	}

	var stats gomponents.Node
	if v.Error == "" && !v.Running {
		stats = html.Dl(
			html.Class("row small mb-3"),
			html.Dt(html.Class("col-sm-3"), gomponents.Text("Last sync")),
			html.Dd(html.Class("col-sm-9"), gomponents.Text(v.LastSync)),
			html.Dt(html.Class("col-sm-3"), gomponents.Text("Next sync")),
			html.Dd(html.Class("col-sm-9"), gomponents.Text(v.NextSync)),
			html.Dt(html.Class("col-sm-3"), gomponents.Text("Success rate")),
			html.Dd(html.Class("col-sm-9"), html.ID("success-rate"), gomponents.Text(v.SuccessRateLabel())),
		)
	}

	return html.Section(
		html.ID(regionID(app.RegionStatus)),
		html.Class("card mb-4"),
		html.Div(
			html.Class("card-body"),
			html.H2(html.Class("h5 card-title"), gomponents.Text("Sync status")),
			gomponents.If(v.Headline != "", html.P(html.Class("mb-1 fw-semibold"), html.I(html.Class("bi "+icon)), gomponents.Text(" "+v.Headline))),
			gomponents.If(v.Running, html.P(html.Class("text-muted small"), gomponents.Text(v.Details))),
			errorAlert(v.Error),
			stats,
			html.Div(
				html.Class("d-flex gap-2"),
				html.Button(
					html.Type("button"), html.ID("btn-sync"), html.Class("btn btn-primary"),
					disabledUnless(v.SyncEnabled),
					hx.Post("/panel/sync"), hx.Swap("none"),
					gomponents.Text("Sync now"),
				),
				html.Button(
					html.Type("button"), html.ID("btn-full-sync"), html.Class("btn btn-outline-primary"),
					disabledUnless(v.SyncEnabled),
					hx.Post("/panel/sync"), hx.Vals(`{"full":"true"}`), hx.Swap("none"),
					gomponents.Text("Full sync"),
				),
				html.Button(
					html.Type("button"), html.Class("btn btn-outline-secondary"),
					hx.Get(regionURL(app.RegionStatus)), hx.Target("#"+regionID(app.RegionStatus)), hx.Swap("outerHTML"),
					html.I(html.Class("bi bi-arrow-clockwise")), gomponents.Text(" Refresh"),
				),
			),
		),
	)
}

func historyRegion(v app.HistoryView) gomponents.Node {
	rows := make([]gomponents.Node, 0, len(v.Rows)+1)
	if v.Empty {
		rows = append(rows, html.Tr(html.Td(gomponents.Attr("colspan", "6"), html.Class("text-center text-muted"), gomponents.Text("No sync history yet"))))
	}
	for _, row := range v.Rows {
		rows = append(rows, html.Tr(
			html.Td(gomponents.Text(row.When)),
			html.Td(gomponents.Text(row.Source)),
			html.Td(gomponents.Text(row.Title)),
			html.Td(gomponents.Text(row.Episode)),
			html.Td(html.Class(row.StatusClass), html.I(html.Class("bi "+row.StatusIcon)), gomponents.Text(" "+row.Status)),
			html.Td(html.Class("small"), gomponents.Text(row.Message)),
		))
	}

	nav := func(id, label string, n app.HistoryNav, enabled bool) gomponents.Node {
		return html.Button(
			html.Type("button"), html.ID(id), html.Class("btn btn-sm btn-outline-secondary"),
			disabledUnless(enabled),
			hx.Get("/panel/history?nav="+string(n)), hx.Target("#"+regionID(app.RegionHistory)), hx.Swap("outerHTML"),
			gomponents.Text(label),
		)
	}

	return html.Section(
		html.ID(regionID(app.RegionHistory)),
		html.Class("card mb-4"),
		html.Data("page", strconv.Itoa(v.Page)),
		html.Div(
			html.Class("card-body"),
			html.Div(
				html.Class("d-flex justify-content-between align-items-center mb-2"),
				html.H2(html.Class("h5 card-title mb-0"), gomponents.Text("Sync history")),
				nav("btn-history-refresh", "Refresh", app.HistoryRefresh, true),
			),
			errorAlert(v.Error),
			html.Div(
				html.Class("table-responsive"),
				html.Table(
					html.Class("table table-sm align-middle"),
					html.THead(html.Tr(
						html.Th(gomponents.Text("Date")),
						html.Th(gomponents.Text("Source")),
						html.Th(gomponents.Text("Title")),
						html.Th(gomponents.Text("Episode")),
						html.Th(gomponents.Text("Status")),
						html.Th(gomponents.Text("Message")),
					)),
					html.TBody(gomponents.Group(rows)),
				),
			),
			html.Div(
				html.Class("d-flex gap-2 align-items-center"),
				nav("btn-history-first", "First", app.HistoryFirst, v.PrevEnabled),
				nav("btn-history-prev", "Previous", app.HistoryPrev, v.PrevEnabled),
				html.Span(html.Class("small text-muted"), gomponents.Text("Page "+strconv.Itoa(v.Page))),
				nav("btn-history-next", "Next", app.HistoryNext, v.NextEnabled),
			),
		),
	)
}

func authModal(v app.AuthView) gomponents.Node {
	if !v.Visible {
		return html.Div(html.ID("auth-modal"))
	}

	cancel := html.Button(
		html.Type("button"), html.Class("btn btn-outline-secondary"),
		hx.Post("/panel/auth/cancel"), hx.Target("#auth-modal"), hx.Swap("outerHTML"),
		gomponents.Text("Cancel"),
	)

	var body, actions gomponents.Node
	switch v.Step {
	case domain.AuthStepPending:
		body = gomponents.Group([]gomponents.Node{
			html.Div(html.Class("spinner-border spinner-border-sm me-2"), html.Role("status")),
			gomponents.Text("Waiting for authorization in the Trakt window..."),
			gomponents.If(v.Polls > 0, html.P(html.Class("small text-muted mt-2"), gomponents.Text("Checks: "+strconv.Itoa(v.Polls)))),
		})
		actions = cancel
	case domain.AuthStepSuccess:
		body = html.P(html.Class("text-success"), html.I(html.Class("bi bi-check-circle-fill")), gomponents.Text(" Trakt account connected"))
		actions = html.Button(
			html.Type("button"), html.Class("btn btn-primary"),
			hx.Post("/panel/auth/cancel"), hx.Target("#auth-modal"), hx.Swap("outerHTML"),
			gomponents.Text("Close"),
		)
	case domain.AuthStepError:
		body = html.Div(html.Class("alert alert-danger"), html.Role("alert"), gomponents.Text(v.Error))
		actions = gomponents.Group([]gomponents.Node{
			html.Button(
				html.Type("button"), html.Class("btn btn-primary"), html.Data("auth-start", "retry"),
				hx.Post("/panel/auth/retry"), hx.Target("#auth-modal"), hx.Swap("outerHTML"),
				gomponents.Text("Retry"),
			),
			cancel,
		})
	default:
		body = html.P(gomponents.Text("A Trakt window will open so you can authorize this application. Keep this page open until the authorization completes."))
		actions = gomponents.Group([]gomponents.Node{
			html.Button(
				html.Type("button"), html.Class("btn btn-primary"), html.Data("auth-start", "start"),
				hx.Post("/panel/auth/start"), hx.Target("#auth-modal"), hx.Swap("outerHTML"),
				gomponents.Text("Start authorization"),
			),
			cancel,
		})
	}

	return html.Div(
		html.ID("auth-modal"),
		html.Class("panel-backdrop"),
		html.Data("step", string(v.Step)),
		html.Div(
			html.Class("card panel-modal"),
			html.Div(
				html.Class("card-body"),
				html.H2(html.Class("h5 card-title"), gomponents.Text("Connect to Trakt")),
				body,
				html.Div(html.Class("d-flex gap-2 justify-content-end mt-3"), actions),
			),
		),
	)
}

func toastOOB(n app.Notification) gomponents.Node {
	if n.IsZero() {
		return nil
	}
	return html.Div(
		html.ID("toasts"),
		gomponents.Attr("hx-swap-oob", "beforeend"),
		html.Div(
			html.Class("toast-item alert alert-"+string(n.Level)),
			html.Role("status"),
			html.Data("dismiss-after", strconv.FormatInt(n.TTL.Milliseconds(), 10)),
			gomponents.Text(n.Message),
		),
	)
}

// followUpsOOB pose des déclencheurs htmx différés qui rechargent une région.
func followUpsOOB(fs []app.FollowUp) gomponents.Node {
	if len(fs) == 0 {
		return nil
	}
	nodes := make([]gomponents.Node, 0, len(fs))
	for _, f := range fs {
		nodes = append(nodes, html.Div(
			html.Class("followup"),
			hx.Get(regionURL(f.Region)),
			hx.Trigger("load delay:"+strconv.FormatInt(f.After.Milliseconds(), 10)+"ms"),
			hx.Target("#"+regionID(f.Region)),
			hx.Swap("outerHTML"),
		))
	}
	return html.Div(html.ID("followups"), gomponents.Attr("hx-swap-oob", "beforeend"), gomponents.Group(nodes))
}
