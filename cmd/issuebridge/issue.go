package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/steveyegge/issuebridge/internal/debug"
	"github.com/steveyegge/issuebridge/internal/tracker"
	"github.com/steveyegge/issuebridge/internal/ui"
)

type issueResult struct {
	Ref       string `json:"ref"`
	URL       string `json:"url,omitempty"`
	Label     string `json:"label,omitempty"`
	Commented bool   `json:"commented,omitempty"`
}

func newIssueCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "issue",
		Short:   "Create, link and inspect tracker issues",
		GroupID: groupIssues,
	}
	cmd.AddCommand(
		newIssueCreateCmd(a),
		newIssueLinkCmd(a),
		newIssueLabelCmd(a),
		newIssueURLCmd(a),
	)
	return cmd
}

// group is the host group the command acts for. Only the project matters
// to the tracker; the rest feeds the create form.
func (a *app) group(title, url string) tracker.Group {
	return tracker.Group{Project: a.project, Title: title, URL: url}
}

func newIssueCreateCmd(a *app) *cobra.Command {
	var (
		title       string
		description string
		groupURL    string
		body        string
		existing    string
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a tracker issue, or adopt an existing one with --existing",
		Long: `Create a tracker issue in the configured tracker project.

Without --description the description is built from --group-url and
--body the same way the host pre-fills its create form. With --existing
the given issue is looked up and adopted instead of creating a new one.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			plugin := a.plugin()
			group := a.group(title, groupURL)

			form := plugin.InitialFormData(group, &tracker.Event{Body: body})
			if description != "" {
				form.Description = description
			}
			if existing != "" {
				form.TaskExists = true
				form.ExistingTaskNumber = existing
			} else if form.Title == "" {
				return fmt.Errorf("--title is required unless --existing is given")
			}

			ref, err := plugin.CreateIssue(ctx, group, form)
			if err != nil {
				return err
			}
			url, err := plugin.IssueURL(ctx, group, ref)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			result := issueResult{Ref: ref, URL: url}
			if a.format != ui.FormatTable {
				return a.render(out, "issue", result, nil)
			}
			if debug.IsQuiet() {
				fmt.Fprintln(out, ref)
				return nil
			}
			verb := "Created"
			if existing != "" {
				verb = "Linked existing"
			}
			fmt.Fprintf(out, "%s %s issue #%s\n", ui.RenderPassIcon(), verb, ref)
			fmt.Fprintf(out, "  %s\n", ui.RenderAccent(url))
			return nil
		},
	}
	cmd.Flags().StringVarP(&title, "title", "t", "", "Issue subject")
	cmd.Flags().StringVarP(&description, "description", "d", "", "Issue description")
	cmd.Flags().StringVar(&groupURL, "group-url", "", "URL of the error group, used in the default description")
	cmd.Flags().StringVar(&body, "body", "", "Event body (stack trace) quoted in the default description")
	cmd.Flags().StringVar(&existing, "existing", "", "Adopt this existing issue number instead of creating one")
	return cmd
}

func newIssueLinkCmd(a *app) *cobra.Command {
	var comment string
	cmd := &cobra.Command{
		Use:   "link <ref>",
		Short: "Link to an existing issue, optionally posting a comment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ref := args[0]
			plugin := a.plugin()
			group := a.group("", "")

			form := tracker.FormData{IssueID: ref, Comment: comment}
			if err := plugin.LinkIssue(ctx, group, form); err != nil {
				return err
			}
			url, err := plugin.IssueURL(ctx, group, ref)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			result := issueResult{Ref: ref, URL: url, Commented: comment != ""}
			if a.format != ui.FormatTable {
				return a.render(out, "issue", result, nil)
			}
			if result.Commented {
				a.say(out, "%s Commented on issue #%s\n", ui.RenderPassIcon(), ref)
			} else {
				a.say(out, "%s Linked issue #%s\n", ui.RenderPassIcon(), ref)
			}
			a.say(out, "  %s\n", ui.RenderAccent(url))
			return nil
		},
	}
	cmd.Flags().StringVarP(&comment, "comment", "m", "", "Comment to post on the issue")
	return cmd
}

func newIssueLabelCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "label <ref>",
		Short: "Show the display label of an issue (cached)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref := args[0]
			label := a.plugin().IssueLabel(cmd.Context(), a.group("", ""), ref)

			out := cmd.OutOrStdout()
			if a.format != ui.FormatTable {
				return a.render(out, "issue", issueResult{Ref: ref, Label: label}, nil)
			}
			fmt.Fprintln(out, label)
			return nil
		},
	}
}

func newIssueURLCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "url <ref>",
		Short: "Print the tracker web URL of an issue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref := args[0]
			url, err := a.plugin().IssueURL(cmd.Context(), a.group("", ""), ref)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if a.format != ui.FormatTable {
				return a.render(out, "issue", issueResult{Ref: ref, URL: url}, nil)
			}
			fmt.Fprintln(out, url)
			return nil
		},
	}
}
