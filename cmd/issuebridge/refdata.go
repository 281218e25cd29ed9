package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/steveyegge/issuebridge/internal/trackerapi"
	"github.com/steveyegge/issuebridge/internal/ui"
)

func newProjectsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "projects",
		Short:   "List tracker projects (all pages)",
		GroupID: groupRefData,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := a.client(cmd.Context())
			if err != nil {
				return err
			}
			projects, err := client.ListProjects(cmd.Context())
			if err != nil {
				return err
			}
			return a.render(cmd.OutOrStdout(), "projects", projects, projectsTable(projects))
		},
	}
}

func newTrackersCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "trackers",
		Short:   "List tracker issue categories",
		GroupID: groupRefData,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := a.client(cmd.Context())
			if err != nil {
				return err
			}
			trackers, err := client.ListTrackers(cmd.Context())
			if err != nil {
				return err
			}
			return a.render(cmd.OutOrStdout(), "trackers", trackers, trackersTable(trackers))
		},
	}
}

func newPrioritiesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "priorities",
		Short:   "List issue priorities",
		GroupID: groupRefData,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := a.client(cmd.Context())
			if err != nil {
				return err
			}
			priorities, err := client.ListPriorities(cmd.Context())
			if err != nil {
				return err
			}
			return a.render(cmd.OutOrStdout(), "priorities", priorities, prioritiesTable(priorities))
		},
	}
}

type refData struct {
	Projects   []trackerapi.Project  `json:"projects"`
	Trackers   []trackerapi.Tracker  `json:"trackers"`
	Priorities []trackerapi.Priority `json:"priorities"`
}

func newRefDataCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "refdata",
		Short:   "Fetch projects, trackers and priorities in one go",
		GroupID: groupRefData,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := a.client(cmd.Context())
			if err != nil {
				return err
			}

			var data refData
			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() (err error) {
				data.Projects, err = client.ListProjects(ctx)
				return err
			})
			g.Go(func() (err error) {
				data.Trackers, err = client.ListTrackers(ctx)
				return err
			})
			g.Go(func() (err error) {
				data.Priorities, err = client.ListPriorities(ctx)
				return err
			})
			if err := g.Wait(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if a.format != ui.FormatTable {
				return a.render(out, "refdata", data, nil)
			}
			sections := []struct {
				title string
				table *ui.Table
			}{
				{"projects", projectsTable(data.Projects)},
				{"trackers", trackersTable(data.Trackers)},
				{"priorities", prioritiesTable(data.Priorities)},
			}
			for i, s := range sections {
				if i > 0 {
					fmt.Fprintln(out)
				}
				fmt.Fprintln(out, ui.RenderCategory(s.title))
				if err := a.render(out, s.title, nil, s.table); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func projectsTable(projects []trackerapi.Project) *ui.Table {
	t := &ui.Table{Headers: []string{"id", "identifier", "name"}}
	for _, p := range projects {
		t.Rows = append(t.Rows, []string{p.ID.String(), p.Identifier, p.Name})
	}
	return t
}

func trackersTable(trackers []trackerapi.Tracker) *ui.Table {
	t := &ui.Table{Headers: []string{"id", "name"}}
	for _, tr := range trackers {
		t.Rows = append(t.Rows, []string{tr.ID.String(), tr.Name})
	}
	return t
}

func prioritiesTable(priorities []trackerapi.Priority) *ui.Table {
	t := &ui.Table{Headers: []string{"id", "name", "default"}}
	for _, p := range priorities {
		def := ""
		if p.IsDefault {
			def = ui.IconPass
		}
		t.Rows = append(t.Rows, []string{p.ID.String(), p.Name, def})
	}
	return t
}
