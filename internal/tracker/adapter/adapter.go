// Package adapter implements tracker.IssuePlugin on top of the tracker REST
// client. It maps host groups and form submissions to tracker calls and
// caches the display label of linked issues.
package adapter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/steveyegge/issuebridge/internal/cache"
	"github.com/steveyegge/issuebridge/internal/tracker"
	"github.com/steveyegge/issuebridge/internal/trackerapi"
)

const (
	// IssueCacheTimeout is how long a rendered issue label stays cached.
	IssueCacheTimeout = 60 * time.Second

	cacheKeyPrefix = "tracker_issue_status:"
	unknownStatus  = "<unknown>"
)

// API is the subset of the tracker client the adapter calls.
type API interface {
	GetIssue(ctx context.Context, ref trackerapi.Ref) (*trackerapi.Issue, error)
	CreateIssue(ctx context.Context, payload trackerapi.IssuePayload) (*trackerapi.Issue, error)
	AddComment(ctx context.Context, ref trackerapi.Ref, comment string) (*trackerapi.Response, error)
}

// ClientFactory builds a client for one call from freshly read credentials.
type ClientFactory func(creds trackerapi.Credentials) API

// DefaultClientFactory returns a plain *trackerapi.Client.
func DefaultClientFactory(creds trackerapi.Credentials) API {
	return trackerapi.NewClientFromCredentials(creds)
}

// CacheKey is the cache key holding the label of issue ref.
func CacheKey(ref string) string {
	return cacheKeyPrefix + ref
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithClientFactory replaces how tracker clients are built.
func WithClientFactory(f ClientFactory) Option {
	return func(a *Adapter) {
		if f != nil {
			a.newClient = f
		}
	}
}

// WithLogger sets the logger used for cache and lookup diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(a *Adapter) {
		if l != nil {
			a.log = l
		}
	}
}

// WithCacheTimeout overrides IssueCacheTimeout.
func WithCacheTimeout(d time.Duration) Option {
	return func(a *Adapter) {
		if d > 0 {
			a.cacheTimeout = d
		}
	}
}

// Adapter is the tracker issue plugin. It keeps no per-call state; every
// operation reads the project's options and builds its own client.
type Adapter struct {
	store        tracker.ProjectStore
	cache        cache.Cache
	newClient    ClientFactory
	cacheTimeout time.Duration
	log          *slog.Logger
}

var _ tracker.IssuePlugin = (*Adapter)(nil)

// New creates an adapter reading options from store and caching labels in c.
func New(store tracker.ProjectStore, c cache.Cache, opts ...Option) *Adapter {
	a := &Adapter{
		store:        store,
		cache:        c,
		newClient:    DefaultClientFactory,
		cacheTimeout: IssueCacheTimeout,
		log:          slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Adapter) Slug() string  { return "tracker" }
func (a *Adapter) Title() string { return "Issue Tracker" }

func (a *Adapter) NewIssueTitle() string { return "Create Tracker Issue" }

func (a *Adapter) config(ctx context.Context, project tracker.Project) *tracker.Config {
	return tracker.NewConfig(ctx, tracker.DefaultPrefix, a.store.ProjectConfig(project))
}

// client reads the project's credentials and builds a client from them.
func (a *Adapter) client(cfg *tracker.Config) (API, error) {
	host, err := cfg.GetRequired(tracker.Options.Host)
	if err != nil {
		return nil, err
	}
	key, err := cfg.GetRequired(tracker.Options.Key)
	if err != nil {
		return nil, err
	}
	return a.newClient(trackerapi.Credentials{Host: host, APIKey: key}), nil
}

// IsConfigured reports whether host, key and project_id are all set.
func (a *Adapter) IsConfigured(ctx context.Context, project tracker.Project) bool {
	cfg := a.config(ctx, project)
	for _, key := range []string{tracker.Options.Host, tracker.Options.Key, tracker.Options.ProjectID} {
		value, err := cfg.Get(key)
		if err != nil || value == "" {
			return false
		}
	}
	return true
}

// InitialFormData pre-fills the create form with the group's title and a
// description linking back to the group.
func (a *Adapter) InitialFormData(group tracker.Group, event *tracker.Event) tracker.FormData {
	return tracker.FormData{
		Title:       group.Title,
		Description: groupDescription(group, event),
	}
}

func groupDescription(group tracker.Group, event *tracker.Event) string {
	lines := []string{group.URL}
	if event != nil && event.Body != "" {
		lines = append(lines, "", "<pre>", event.Body, "</pre>")
	}
	return strings.Join(lines, "\n")
}

// CreateIssue creates an issue for the group, or adopts an existing one when
// the form says the task already exists.
func (a *Adapter) CreateIssue(ctx context.Context, group tracker.Group, form tracker.FormData) (string, error) {
	cfg := a.config(ctx, group.Project)
	api, err := a.client(cfg)
	if err != nil {
		return "", err
	}

	if form.TaskExists {
		ref := strings.TrimSpace(form.ExistingTaskNumber)
		if ref == "" {
			return "", &tracker.ValidationError{
				Message: "Cannot fetch the specified issue",
				Err:     errors.New("no issue number given"),
			}
		}
		if _, err := api.GetIssue(ctx, trackerapi.Ref(ref)); err != nil {
			a.log.Debug("existing issue lookup failed", "ref", ref, "error", err)
			return "", &tracker.ValidationError{Message: "Cannot fetch the specified issue", Err: err}
		}
		return ref, nil
	}

	payload, err := BuildIssuePayload(cfg, form)
	if err != nil {
		return "", err
	}

	issue, err := api.CreateIssue(ctx, payload)
	if err != nil {
		return "", err
	}
	a.log.Debug("created issue", "ref", issue.ID.String(), "group", group.ID)
	return issue.ID.String(), nil
}

// LinkIssue posts the form's comment to the existing issue. Without a
// comment there is nothing to send.
func (a *Adapter) LinkIssue(ctx context.Context, group tracker.Group, form tracker.FormData) error {
	if form.Comment == "" {
		return nil
	}

	cfg := a.config(ctx, group.Project)
	api, err := a.client(cfg)
	if err != nil {
		return err
	}

	resp, err := api.AddComment(ctx, trackerapi.Ref(form.IssueID), form.Comment)
	if err != nil {
		return &tracker.ValidationError{
			Message: fmt.Sprintf("Unable to add a comment to issue #%s", form.IssueID),
			Err:     err,
		}
	}
	if resp.IsError() {
		return &tracker.ValidationError{
			Message: fmt.Sprintf("Unable to add a comment to issue #%s", form.IssueID),
			Err:     fmt.Errorf("tracker responded with status %d", resp.StatusCode),
		}
	}
	return nil
}

// IssueLabel returns "#<ref> (<status>)", or "#<ref> <unknown>" when the
// issue cannot be fetched. Both forms are cached for the cache timeout.
func (a *Adapter) IssueLabel(ctx context.Context, group tracker.Group, ref string) string {
	key := CacheKey(ref)

	if a.cache != nil {
		cached, ok, err := a.cache.Get(ctx, key)
		switch {
		case err != nil:
			a.log.Warn("label cache read failed", "key", key, "error", err)
		case ok:
			return cached
		}
	}

	label := a.lookupLabel(ctx, group, ref)

	if a.cache != nil {
		if err := a.cache.Set(ctx, key, label, a.cacheTimeout); err != nil {
			a.log.Warn("label cache write failed", "key", key, "error", err)
		}
	}
	return label
}

func (a *Adapter) lookupLabel(ctx context.Context, group tracker.Group, ref string) string {
	num := "#" + ref

	api, err := a.client(a.config(ctx, group.Project))
	if err != nil {
		a.log.Debug("issue label lookup skipped", "ref", ref, "error", err)
		return num + " " + unknownStatus
	}
	issue, err := api.GetIssue(ctx, trackerapi.Ref(ref))
	if err != nil {
		a.log.Debug("issue label lookup failed", "ref", ref, "error", err)
		return num + " " + unknownStatus
	}

	status := issue.StatusName()
	if status == "" {
		status = unknownStatus
	}
	return fmt.Sprintf("%s (%s)", num, status)
}

// IssueURL returns the tracker web page of issue ref.
func (a *Adapter) IssueURL(ctx context.Context, group tracker.Group, ref string) (string, error) {
	host, err := a.config(ctx, group.Project).GetRequired(tracker.Options.Host)
	if err != nil {
		return "", err
	}
	return trackerapi.IssueURL(host, trackerapi.Ref(ref)), nil
}
