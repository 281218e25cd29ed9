package tracker

import (
	"context"
)

// IssuePlugin is the contract the host platform expects from an issue
// tracker integration. Implementations are parameterized by per-project
// configuration and hold no per-call state.
type IssuePlugin interface {
	// Slug returns the lowercase identifier for this plugin (e.g., "tracker").
	Slug() string

	// Title returns the human-readable name.
	Title() string

	// IsConfigured reports whether the project has enough configuration
	// for the plugin to talk to the tracker. It never makes a remote call.
	IsConfigured(ctx context.Context, project Project) bool

	// NewIssueTitle is the caption of the host's "create issue" action.
	NewIssueTitle() string

	// InitialFormData pre-fills the create-issue form for a group.
	InitialFormData(group Group, event *Event) FormData

	// CreateIssue creates a tracker issue for the group (or adopts an
	// existing one) and returns its reference.
	CreateIssue(ctx context.Context, group Group, form FormData) (string, error)

	// LinkIssue links the group to an existing tracker issue, posting the
	// form's comment to it when one is given.
	LinkIssue(ctx context.Context, group Group, form FormData) error

	// IssueLabel renders the display label for a linked issue. It never
	// fails; lookups that go wrong produce a degraded label.
	IssueLabel(ctx context.Context, group Group, ref string) string

	// IssueURL returns the tracker web URL for a linked issue.
	IssueURL(ctx context.Context, group Group, ref string) (string, error)
}

// ProjectStore hands out the configuration storage of a host project.
type ProjectStore interface {
	ProjectConfig(project Project) ConfigStore
}
