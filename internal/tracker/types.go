// Package tracker defines the contract between the error-tracking host and
// an issue tracker integration: the IssuePlugin capability interface, the
// host-side values it operates on, prefixed configuration access and the
// user-facing error types.
package tracker

// Project is a host-platform project. Plugin configuration is scoped to it.
type Project struct {
	ID   string `json:"id"`
	Slug string `json:"slug"`
	Name string `json:"name,omitempty"`
}

// Group is a host-platform aggregation of related error events. Plugins
// only read it.
type Group struct {
	ID      string  `json:"id"`
	Project Project `json:"project"`
	Title   string  `json:"title"`
	Culprit string  `json:"culprit,omitempty"`
	URL     string  `json:"url"` // Absolute URL of the group in the host UI
}

// Event is a single error event of a group.
type Event struct {
	ID      string `json:"id"`
	Message string `json:"message,omitempty"`
	Body    string `json:"body,omitempty"` // Rendered stack trace or message body
}

// FormData carries the values a user submitted in the create/link forms.
type FormData struct {
	Title       string `json:"title"`
	Description string `json:"description"`

	// Link form
	Comment string `json:"comment,omitempty"`
	IssueID string `json:"issue_id,omitempty"`

	// Create form: adopt an existing issue instead of creating one
	TaskExists         bool   `json:"task_exists,omitempty"`
	ExistingTaskNumber string `json:"existing_task_number,omitempty"`
}

// Option keys read from project configuration.
var Options = struct {
	Host            string
	Key             string
	ProjectID       string
	TrackerID       string
	DefaultPriority string
	ExtraFields     string
}{
	Host:            "host",
	Key:             "key",
	ProjectID:       "project_id",
	TrackerID:       "tracker_id",
	DefaultPriority: "default_priority",
	ExtraFields:     "extra_fields",
}
