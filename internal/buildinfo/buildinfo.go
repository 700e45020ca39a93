package buildinfo

import (
	"runtime/debug"
	"strings"
)

// Injectées via -ldflags, par ex.
//
//	-X github.com/Guilhem-Bonnet/trakt-sync-panel/internal/buildinfo.Version=v0.1.0
var (
	Version = "dev"
	Commit  = ""
	Date    = ""
)

type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	Date      string `json:"date,omitempty"`
	GoVersion string `json:"go_version,omitempty"`
}

// Current complète Commit et Date avec les métadonnées VCS du binaire quand
// elles n'ont pas été injectées.
func Current() Info {
	info := Info{Version: Version, Commit: Commit, Date: Date}
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	info.GoVersion = bi.GoVersion
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.Commit == "" {
				info.Commit = s.Value
			}
		case "vcs.time":
			if info.Date == "" {
				info.Date = s.Value
			}
		}
	}
	return info
}

// String sert de version affichée par traktctl.
func (i Info) String() string {
	var b strings.Builder
	b.WriteString(i.Version)
	if i.Commit != "" {
		c := i.Commit
		if len(c) > 12 {
			c = c[:12]
		}
		b.WriteString(" (" + c + ")")
	}
	if i.Date != "" {
		b.WriteString(" " + i.Date)
	}
	return b.String()
}

// UserAgent est envoyé au backend Trakt.
func UserAgent() string {
	return "trakt-panel/" + Version
}
