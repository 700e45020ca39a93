package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/Guilhem-Bonnet/trakt-sync-panel/internal/app"
	"github.com/Guilhem-Bonnet/trakt-sync-panel/internal/domain"
)

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	return t
}

func stateColor(state app.ConnectionState) func(format string, a ...interface{}) string {
	switch state {
	case app.ConnectionConnected:
		return color.GreenString
	case app.ConnectionInvalid:
		return color.YellowString
	default:
		return color.RedString
	}
}

func printConfig(w io.Writer, v app.ConfigView) {
	if v.Error != "" {
		fmt.Fprintln(w, color.RedString("%s", v.Error))
		return
	}

	t := newTable(w)
	t.SetTitle("Trakt connection")
	t.AppendRow(table.Row{"State", stateColor(v.State)("%s", v.Headline)})
	if v.Details != "" {
		t.AppendRow(table.Row{"Details", v.Details})
	}
	if v.UserID != "" {
		t.AppendRow(table.Row{"User", v.UserID})
	}
	if v.LastSync != "" {
		t.AppendRow(table.Row{"Last sync", v.LastSync})
	}
	if v.TokenExpires != "" {
		t.AppendRow(table.Row{"Token expires", v.TokenExpires})
	}
	if v.Form != nil {
		t.AppendRow(table.Row{"Auto sync", onOff(v.Form.Enabled)})
		t.AppendRow(table.Row{"Interval", v.Form.SyncInterval})
		if v.Form.NextRun != "" {
			t.AppendRow(table.Row{"Next run", v.Form.NextRun})
		}
		if v.Form.IntervalWarning != "" {
			t.AppendRow(table.Row{"Warning", color.YellowString("%s", v.Form.IntervalWarning)})
		}
	}
	t.Render()
}

func printStatus(w io.Writer, v app.StatusView) {
	if v.Error != "" {
		fmt.Fprintln(w, color.RedString("%s", v.Error))
		return
	}

	t := newTable(w)
	t.SetTitle("Sync status")
	if v.Running {
		t.AppendRow(table.Row{"State", color.CyanString("%s", v.Headline)})
		t.AppendRow(table.Row{"Details", v.Details})
		t.Render()
		return
	}
	t.AppendRow(table.Row{"State", color.GreenString("%s", v.Headline)})
	t.AppendRow(table.Row{"Last sync", v.LastSync})
	t.AppendRow(table.Row{"Next sync", v.NextSync})
	t.AppendRow(table.Row{"Success rate", v.SuccessRateLabel()})
	t.Render()
}

func printHistory(w io.Writer, v app.HistoryView) {
	if v.Empty {
		fmt.Fprintf(w, "Page %d: no sync history yet\n", v.Page)
		return
	}

	t := newTable(w)
	t.SetTitle(fmt.Sprintf("Sync history, page %d", v.Page))
	t.AppendHeader(table.Row{"When", "Source", "Title", "Episode", "Status", "Message"})
	for _, row := range v.Rows {
		t.AppendRow(table.Row{row.When, row.Source, row.Title, row.Episode, recordStatus(row.Status), row.Message})
	}
	if v.NextEnabled {
		t.AppendFooter(table.Row{"", "", "", "", "", fmt.Sprintf("more: --page %d", v.Page+1)})
	}
	t.Render()
}

func recordStatus(s string) string {
	switch domain.RecordStatus(s) {
	case domain.RecordSuccess:
		return color.GreenString("%s", s)
	case domain.RecordError:
		return color.RedString("%s", s)
	default:
		return color.YellowString("%s", s)
	}
}

func printNotice(w io.Writer, n app.Notification) {
	switch n.Level {
	case app.NoticeSuccess:
		fmt.Fprintln(w, color.GreenString("%s", n.Message))
	case app.NoticeWarning:
		fmt.Fprintln(w, color.YellowString("%s", n.Message))
	case app.NoticeDanger:
		fmt.Fprintln(w, color.RedString("%s", n.Message))
	default:
		fmt.Fprintln(w, n.Message)
	}
}

func printAuth(w io.Writer, userID string, resp domain.AuthInitResponse) {
	fmt.Fprintf(w, "Open this URL to authorize %s:\n", color.CyanString("%s", userID))
	fmt.Fprintln(w, resp.AuthURL)
	fmt.Fprintln(w, "State:", resp.State)
	fmt.Fprintln(w, "Then check the connection with: traktctl status")
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
