package main

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/Guilhem-Bonnet/trakt-sync-panel/internal/adapters/traktapi"
	"github.com/Guilhem-Bonnet/trakt-sync-panel/internal/app"
	"github.com/Guilhem-Bonnet/trakt-sync-panel/internal/buildinfo"
	"github.com/Guilhem-Bonnet/trakt-sync-panel/internal/domain"
	"github.com/Guilhem-Bonnet/trakt-sync-panel/internal/ports"
)

const metaEnv = "env"

// env regroupe les dépendances partagées par les commandes.
type env struct {
	backend ports.TraktBackend
	panel   *app.PanelService
	format  app.Formatter
	out     io.Writer
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "traktctl",
		Usage:   "Pilote la synchronisation Trakt depuis le terminal",
		Version: buildinfo.Current().String(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "backend",
				Usage:   "URL du backend Trakt",
				Value:   "http://127.0.0.1:8000",
				EnvVars: []string{"TRAKT_PANEL_BACKEND_URL"},
			},
			&cli.DurationFlag{
				Name:    "timeout",
				Usage:   "Timeout HTTP",
				Value:   15 * time.Second,
				EnvVars: []string{"TRAKT_PANEL_BACKEND_TIMEOUT"},
			},
			&cli.StringFlag{
				Name:    "tz",
				Usage:   "Fuseau d'affichage des dates",
				Value:   "Local",
				EnvVars: []string{"TRAKT_PANEL_TZ"},
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Logs de debug sur stderr",
			},
		},
		Before: func(c *cli.Context) error {
			loc := time.Local
			if tz := c.String("tz"); tz != "" && !strings.EqualFold(tz, "local") {
				l, err := time.LoadLocation(tz)
				if err != nil {
					return cli.Exit("unknown time zone: "+tz, 2)
				}
				loc = l
			}

			level := zerolog.Disabled
			if c.Bool("verbose") {
				level = zerolog.DebugLevel
			}
			logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()

			backend := traktapi.NewClient(c.String("backend"), c.Duration("timeout"))
			format := app.Formatter{Location: loc, Now: time.Now}
			out := c.App.Writer
			if out == nil {
				out = os.Stdout
			}
			c.App.Metadata[metaEnv] = &env{
				backend: backend,
				panel:   app.NewPanelService(logger, backend, nil, format),
				format:  format,
				out:     out,
			}
			return nil
		},
		Metadata: map[string]any{},
		Commands: []*cli.Command{
			{
				Name:   "status",
				Usage:  "Connexion et état de la synchronisation",
				Action: statusAction,
			},
			{
				Name:  "config",
				Usage: "Configuration de la synchronisation",
				Subcommands: []*cli.Command{
					{
						Name:   "show",
						Usage:  "Affiche la configuration",
						Action: configShowAction,
					},
					{
						Name:  "set",
						Usage: "Modifie la configuration (les valeurs absentes sont conservées)",
						Flags: []cli.Flag{
							&cli.BoolFlag{Name: "enabled", Usage: "Active la synchronisation automatique"},
							&cli.StringFlag{Name: "interval", Usage: "Expression cron (5 champs)"},
						},
						Action: configSetAction,
					},
				},
			},
			{
				Name:  "sync",
				Usage: "Déclenche une synchronisation manuelle",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "full", Usage: "Synchronisation complète"},
				},
				Action: syncAction,
			},
			{
				Name:  "disconnect",
				Usage: "Déconnecte le compte Trakt",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "Confirme la déconnexion"},
				},
				Action: disconnectAction,
			},
			{
				Name:  "history",
				Usage: "Historique des synchronisations",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "page", Aliases: []string{"p"}, Value: 1, Usage: "Page (20 entrées par page)"},
				},
				Action: historyAction,
			},
			{
				Name:   "auth",
				Usage:  "Démarre une autorisation OAuth et affiche l'URL à ouvrir",
				Action: authAction,
			},
		},
	}
}

func envFrom(c *cli.Context) *env {
	return c.App.Metadata[metaEnv].(*env)
}

func statusAction(c *cli.Context) error {
	e := envFrom(c)
	cfg := e.panel.LoadConfig(c.Context)
	st := e.panel.LoadSyncStatus(c.Context)

	printConfig(e.out, cfg)
	printStatus(e.out, st)
	if cfg.Error != "" || st.Error != "" {
		return cli.Exit("", 1)
	}
	return nil
}

func configShowAction(c *cli.Context) error {
	e := envFrom(c)
	cfg := e.panel.LoadConfig(c.Context)
	printConfig(e.out, cfg)
	if cfg.Error != "" {
		return cli.Exit("", 1)
	}
	return nil
}

func configSetAction(c *cli.Context) error {
	e := envFrom(c)
	if !c.IsSet("enabled") && !c.IsSet("interval") {
		return cli.Exit("nothing to change: use --enabled and/or --interval", 2)
	}

	current, err := e.backend.GetConfig(c.Context)
	if err != nil {
		return cli.Exit("Failed to load configuration: "+app.ErrorDetail(err), 1)
	}
	update := domain.ConfigUpdate{
		Enabled:      current != nil && current.Enabled,
		SyncInterval: current.EffectiveSyncInterval(),
	}
	if c.IsSet("enabled") {
		update.Enabled = c.Bool("enabled")
	}
	if c.IsSet("interval") {
		update.SyncInterval = strings.TrimSpace(c.String("interval"))
	}

	res := e.panel.SaveConfig(c.Context, update)
	if err := printResult(e.out, res); err != nil {
		return err
	}
	if res.Config != nil {
		printConfig(e.out, *res.Config)
	}
	return nil
}

func syncAction(c *cli.Context) error {
	e := envFrom(c)
	return printResult(e.out, e.panel.TriggerSync(c.Context, c.Bool("full")))
}

func disconnectAction(c *cli.Context) error {
	e := envFrom(c)
	res := e.panel.Disconnect(c.Context, c.Bool("yes"))
	if res.Err != nil && res.Err.Code == app.CodeConfirmationRequired {
		return cli.Exit("refusing to disconnect without --yes", 2)
	}
	return printResult(e.out, res)
}

func historyAction(c *cli.Context) error {
	e := envFrom(c)
	cursor := domain.NewHistoryCursor(c.Int("page"))
	page, err := e.backend.History(c.Context, cursor)
	if err != nil {
		return cli.Exit(app.HistoryLoadError(cursor.Page, err).Error, 1)
	}
	printHistory(e.out, e.format.HistoryView(cursor, page))
	return nil
}

func authAction(c *cli.Context) error {
	e := envFrom(c)
	ctx := c.Context
	cfg, err := e.backend.GetConfig(ctx)
	if err != nil {
		return cli.Exit("Failed to load configuration: "+app.ErrorDetail(err), 1)
	}
	resp, err := e.backend.InitAuth(ctx, domain.AuthInitRequest{UserID: cfg.EffectiveUserID()})
	if err != nil {
		return cli.Exit("Failed to start authorization: "+app.ErrorDetail(err), 1)
	}
	printAuth(e.out, cfg.EffectiveUserID(), resp)
	return nil
}

// printResult affiche la notification d'une action et convertit un échec en code de sortie.
func printResult(w io.Writer, res app.ActionResult) error {
	if !res.Notice.IsZero() {
		printNotice(w, res.Notice)
	}
	if res.OK() {
		return nil
	}
	if res.Err.Code == app.CodeConfirmationRequired {
		return cli.Exit("", 2)
	}
	return cli.Exit("", 1)
}
