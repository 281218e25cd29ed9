// Package trackerapi is a client for the issue tracker's REST API.
package trackerapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// API constants
const (
	DefaultTimeout  = 30 * time.Second
	DefaultPageSize = 100
	DefaultMaxPages = 1000
	APIKeyHeader    = "X-Tracker-API-Key"
)

// Ref is an opaque tracker-assigned issue identifier. The tracker sends
// numeric ids; references typed by users arrive as strings. Both decode
// to the same value.
type Ref string

// UnmarshalJSON accepts either a JSON number or a JSON string.
func (r *Ref) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*r = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = Ref(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("issue reference must be a string or number: %w", err)
	}
	*r = Ref(n.String())
	return nil
}

// String returns the reference as it appears in URLs and labels.
func (r Ref) String() string {
	return strings.TrimSpace(string(r))
}

// NamedRef is the {id, name} pair the tracker uses for nested objects
// (project, tracker, status, priority, users).
type NamedRef struct {
	ID   Ref    `json:"id"`
	Name string `json:"name"`
}

// Project represents a tracker project.
type Project struct {
	ID          Ref       `json:"id"`
	Name        string    `json:"name"`
	Identifier  string    `json:"identifier"`
	Description string    `json:"description,omitempty"`
	Status      int       `json:"status,omitempty"`
	IsPublic    bool      `json:"is_public,omitempty"`
	Parent      *NamedRef `json:"parent,omitempty"`
	CreatedOn   string    `json:"created_on,omitempty"`
	UpdatedOn   string    `json:"updated_on,omitempty"`
}

// Tracker is an issue category (Bug, Feature, Support, ...).
type Tracker struct {
	ID   Ref    `json:"id"`
	Name string `json:"name"`
}

// Priority is an entry of the issue priority enumeration.
type Priority struct {
	ID        Ref    `json:"id"`
	Name      string `json:"name"`
	IsDefault bool   `json:"is_default,omitempty"`
	Active    bool   `json:"active,omitempty"`
}

// Issue represents a tracker issue.
type Issue struct {
	ID          Ref       `json:"id"`
	Subject     string    `json:"subject"`
	Description string    `json:"description,omitempty"`
	Project     *NamedRef `json:"project,omitempty"`
	Tracker     *NamedRef `json:"tracker,omitempty"`
	Status      *NamedRef `json:"status,omitempty"`
	Priority    *NamedRef `json:"priority,omitempty"`
	Author      *NamedRef `json:"author,omitempty"`
	AssignedTo  *NamedRef `json:"assigned_to,omitempty"`
	DoneRatio   int       `json:"done_ratio,omitempty"`
	CreatedOn   string    `json:"created_on,omitempty"`
	UpdatedOn   string    `json:"updated_on,omitempty"`
}

// StatusName returns the issue's status name, or "" when the tracker did
// not include one.
func (i *Issue) StatusName() string {
	if i == nil || i.Status == nil {
		return ""
	}
	return i.Status.Name
}

// IssuePayload maps tracker field names to values for issue creation.
type IssuePayload map[string]any

// Response is an undecoded HTTP response. The body has already been read
// and the underlying connection released.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// IsError reports whether the status indicates a client or server error.
func (r *Response) IsError() bool {
	return r.StatusCode > 399
}

type issueEnvelope struct {
	Issue  *Issue   `json:"issue"`
	Errors []string `json:"errors,omitempty"`
}

type createRequest struct {
	Issue IssuePayload `json:"issue"`
}

type notesUpdate struct {
	Notes string `json:"notes"`
}

type commentRequest struct {
	Issue notesUpdate `json:"issue"`
}
