package main

import (
	"context"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/steveyegge/issuebridge/internal/cache"
	"github.com/steveyegge/issuebridge/internal/config"
	"github.com/steveyegge/issuebridge/internal/debug"
	"github.com/steveyegge/issuebridge/internal/telemetry"
	"github.com/steveyegge/issuebridge/internal/tracker"
	"github.com/steveyegge/issuebridge/internal/tracker/adapter"
	"github.com/steveyegge/issuebridge/internal/trackerapi"
	"github.com/steveyegge/issuebridge/internal/ui"
)

// Command group IDs.
const (
	groupIssues  = "issues"
	groupRefData = "refdata"
)

// app carries what the global flags resolve to for one invocation.
type app struct {
	configPath  string
	projectSlug string
	formatFlag  string
	verbose     bool
	quiet       bool

	cfg     *config.Config
	project tracker.Project
	format  ui.Format
	cache   cache.Cache
	closers []func() error
}

// newRootCmd builds the command tree. Run it with app.execute so that
// whatever setup opened is released even when the command fails.
func newRootCmd() (*cobra.Command, *app) {
	a := &app{}

	root := &cobra.Command{
		Use:   "issuebridge",
		Short: "issuebridge - link error groups to tracker issues",
		Long: `Create, link and label tracker issues for error groups of an
error-tracking host, using per-project tracker settings.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "Config file (default: ./issuebridge.yaml or ~/.config/issuebridge/)")
	root.PersistentFlags().StringVarP(&a.projectSlug, "project", "p", "", "Host project slug whose tracker settings apply")
	root.PersistentFlags().StringVarP(&a.formatFlag, "format", "o", "table", "Output format: table, json, yaml, toml")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable verbose/debug output")
	root.PersistentFlags().BoolVarP(&a.quiet, "quiet", "q", false, "Suppress non-essential output (errors only)")

	root.AddGroup(&cobra.Group{ID: groupIssues, Title: "Working With Issues:"})
	root.AddGroup(&cobra.Group{ID: groupRefData, Title: "Tracker Reference Data:"})

	root.AddCommand(
		newStatusCmd(a),
		newIssueCmd(a),
		newProjectsCmd(a),
		newTrackersCmd(a),
		newPrioritiesCmd(a),
		newRefDataCmd(a),
		newVersionCmd(a),
	)
	return root, a
}

// execute runs the command tree, then closes the cache and flushes
// telemetry. Cobra skips post-run hooks after a RunE error, so teardown
// cannot live there.
func (a *app) execute(ctx context.Context, root *cobra.Command) error {
	defer a.teardown()
	return root.ExecuteContext(ctx)
}

func (a *app) setup(cmd *cobra.Command) error {
	debug.SetVerbose(a.verbose)
	debug.SetQuiet(a.quiet)
	ui.InitColor()

	format, err := ui.ParseFormat(a.formatFlag)
	if err != nil {
		return err
	}
	a.format = format

	if cmd.Name() == "version" {
		return nil
	}

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.project = cfg.Project(a.projectSlug)
	debug.Logger().Debug("config loaded", "file", cfg.File(), "project", a.project.Slug)

	ctx := cmd.Context()
	if err := telemetry.Init(ctx, "issuebridge", Version); err != nil {
		return err
	}
	a.closers = append(a.closers, func() error {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		telemetry.Shutdown(shutdownCtx)
		return nil
	})

	c, err := a.openCache(ctx)
	if err != nil {
		return err
	}
	a.cache = telemetry.WrapCache(c)
	return nil
}

func (a *app) openCache(ctx context.Context) (cache.Cache, error) {
	settings := a.cfg.Cache()
	switch settings.Backend {
	case config.BackendRedis:
		if settings.RedisURL == "" {
			return nil, &tracker.ConfigurationError{Key: "cache.redis_url", Err: tracker.ErrNotConfigured}
		}
		r, err := cache.NewRedis(ctx, settings.RedisURL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, r.Close)
		return r, nil
	default:
		return cache.NewMemory(), nil
	}
}

func (a *app) teardown() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			debug.Logger().Warn("cleanup failed", "error", err)
		}
	}
	a.closers = nil
}

// trackerConfig is the tracker option view of the selected project.
func (a *app) trackerConfig(ctx context.Context) *tracker.Config {
	return tracker.NewConfig(ctx, tracker.DefaultPrefix, a.cfg.ProjectConfig(a.project))
}

// client builds an instrumented tracker client for the selected project.
func (a *app) client(ctx context.Context) (telemetry.TrackerAPI, error) {
	cfg := a.trackerConfig(ctx)
	host, err := cfg.GetRequired(tracker.Options.Host)
	if err != nil {
		return nil, err
	}
	key, err := cfg.GetRequired(tracker.Options.Key)
	if err != nil {
		return nil, err
	}
	creds := trackerapi.Credentials{Host: host, APIKey: key}
	debug.Logger().Debug("tracker client", "credentials", creds)
	return telemetry.WrapClient(trackerapi.NewClientFromCredentials(creds)), nil
}

func (a *app) plugin() *adapter.Adapter {
	return adapter.New(a.cfg, a.cache,
		adapter.WithClientFactory(func(creds trackerapi.Credentials) adapter.API {
			return telemetry.WrapClient(trackerapi.NewClientFromCredentials(creds))
		}),
		adapter.WithLogger(debug.Logger()),
		adapter.WithCacheTimeout(a.cfg.Cache().TTL),
	)
}

// render prints v in the selected format.
func (a *app) render(w io.Writer, key string, v any, t *ui.Table) error {
	return ui.Render(w, a.format, key, v, t)
}

// say prints a human-oriented line in table mode unless --quiet is set.
func (a *app) say(w io.Writer, format string, args ...any) {
	if a.format != ui.FormatTable {
		return
	}
	debug.PrintNormal(w, format, args...)
}
