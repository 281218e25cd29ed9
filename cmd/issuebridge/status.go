package main

import (
	"sort"

	"github.com/spf13/cobra"

	"github.com/steveyegge/issuebridge/internal/config"
	"github.com/steveyegge/issuebridge/internal/ui"
)

type statusResult struct {
	Project    string            `json:"project"`
	Configured bool              `json:"configured"`
	ConfigFile string            `json:"config_file,omitempty"`
	Settings   map[string]string `json:"settings"`
	Cache      cacheStatus       `json:"cache"`
}

type cacheStatus struct {
	Backend string `json:"backend"`
	TTL     string `json:"ttl"`
}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether the selected project is configured for the tracker",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			settings, err := a.cfg.ProjectConfig(a.project).GetAllConfig(ctx)
			if err != nil {
				return err
			}
			for k, v := range settings {
				settings[k] = config.Redact(k, v)
			}

			cs := a.cfg.Cache()
			result := statusResult{
				Project:    a.project.Slug,
				Configured: a.plugin().IsConfigured(ctx, a.project),
				ConfigFile: a.cfg.File(),
				Settings:   settings,
				Cache:      cacheStatus{Backend: cs.Backend, TTL: cs.TTL.String()},
			}

			out := cmd.OutOrStdout()
			if a.format != ui.FormatTable {
				return a.render(out, "status", result, nil)
			}

			project := result.Project
			if project == "" {
				project = "(global)"
			}
			if result.Configured {
				a.say(out, "%s %s is configured\n", ui.RenderPassIcon(), project)
			} else {
				a.say(out, "%s %s is not configured (host, key and project_id are required)\n", ui.RenderWarnIcon(), project)
			}
			if result.ConfigFile != "" {
				a.say(out, "%s\n", ui.RenderMuted("config: "+result.ConfigFile))
			}

			keys := make([]string, 0, len(settings))
			for k := range settings {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			table := &ui.Table{Headers: []string{"key", "value"}}
			for _, k := range keys {
				table.Rows = append(table.Rows, []string{k, settings[k]})
			}
			table.Rows = append(table.Rows,
				[]string{"cache.backend", cs.Backend},
				[]string{"cache.ttl", cs.TTL.String()},
			)
			return a.render(out, "status", result, table)
		},
	}
}
