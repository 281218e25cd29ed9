package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// MockIssue is the fake's stored view of an issue.
type MockIssue struct {
	ID      int
	Subject string
	Status  string
	Fields  map[string]interface{} // fields received on creation
	Notes   []string
}

// TrackerMockServer serves the tracker REST routes from in-memory state.
type TrackerMockServer struct {
	*MockTrackerServer

	mu          sync.Mutex
	projects    []map[string]interface{}
	trackers    []map[string]interface{}
	priorities  []map[string]interface{}
	issues      map[int]*MockIssue
	nextIssueID int
}

// NewTrackerMockServer creates a mock with no projects and the default
// trackers and priorities.
func NewTrackerMockServer() *TrackerMockServer {
	m := &TrackerMockServer{
		MockTrackerServer: NewMockTrackerServer(),
		issues:            make(map[int]*MockIssue),
		nextIssueID:       1000,
		trackers: []map[string]interface{}{
			{"id": 1, "name": "Bug"},
			{"id": 2, "name": "Feature"},
			{"id": 3, "name": "Support"},
		},
		priorities: []map[string]interface{}{
			{"id": 3, "name": "Low", "active": true},
			{"id": 4, "name": "Normal", "is_default": true, "active": true},
			{"id": 5, "name": "High", "active": true},
		},
	}
	m.SetDefaultHandler(m.handleTrackerRequest)
	return m
}

// SetProjectCount replaces the project list with n generated projects.
func (m *TrackerMockServer) SetProjectCount(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.projects = make([]map[string]interface{}, n)
	for i := range m.projects {
		m.projects[i] = MakeProject(i+1, fmt.Sprintf("Project %d", i+1))
	}
}

// AddIssue stores an issue the fake will serve.
func (m *TrackerMockServer) AddIssue(id int, subject, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.issues[id] = &MockIssue{ID: id, Subject: subject, Status: status}
}

// Issue returns a stored issue, or nil.
func (m *TrackerMockServer) Issue(id int) *MockIssue {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.issues[id]
}

// IssueIDs returns the ids of all stored issues in ascending order.
func (m *TrackerMockServer) IssueIDs() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]int, 0, len(m.issues))
	for id := range m.issues {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// MakeProject builds a project object as the tracker would return it.
func MakeProject(id int, name string) map[string]interface{} {
	return map[string]interface{}{
		"id":         id,
		"name":       name,
		"identifier": strings.ToLower(strings.ReplaceAll(name, " ", "-")),
		"status":     1,
	}
}

func (m *TrackerMockServer) handleTrackerRequest(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	switch {
	case path == "/projects.json" && r.Method == http.MethodGet:
		m.handleProjects(w, r)
	case path == "/trackers.json" && r.Method == http.MethodGet:
		m.mu.Lock()
		body := map[string]interface{}{"trackers": m.trackers}
		m.mu.Unlock()
		writeJSON(w, http.StatusOK, body)
	case path == "/enumerations/issue_priorities.json" && r.Method == http.MethodGet:
		m.mu.Lock()
		body := map[string]interface{}{"issue_priorities": m.priorities}
		m.mu.Unlock()
		writeJSON(w, http.StatusOK, body)
	case path == "/issues.json" && r.Method == http.MethodPost:
		m.handleCreateIssue(w, r)
	case strings.HasPrefix(path, "/issues/") && strings.HasSuffix(path, ".json"):
		id, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(path, "/issues/"), ".json"))
		if err != nil {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		switch r.Method {
		case http.MethodGet:
			m.handleGetIssue(w, id)
		case http.MethodPut:
			m.handleUpdateIssue(w, r, id)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Not found"})
	}
}

func (m *TrackerMockServer) handleProjects(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if limit <= 0 {
		limit = 25
	}

	m.mu.Lock()
	total := len(m.projects)
	page := []map[string]interface{}{}
	if offset < total {
		end := offset + limit
		if end > total {
			end = total
		}
		page = append(page, m.projects[offset:end]...)
	}
	m.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"projects":    page,
		"total_count": total,
		"offset":      offset,
		"limit":       limit,
	})
}

func (m *TrackerMockServer) handleGetIssue(w http.ResponseWriter, id int) {
	m.mu.Lock()
	issue, ok := m.issues[id]
	var body map[string]interface{}
	if ok {
		body = map[string]interface{}{"issue": issueJSON(issue)}
	}
	m.mu.Unlock()

	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, body)
}

func (m *TrackerMockServer) handleCreateIssue(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Issue map[string]interface{} `json:"issue"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"errors": []string{"invalid JSON"}})
		return
	}
	subject, _ := req.Issue["subject"].(string)
	if subject == "" {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{"errors": []string{"Subject cannot be blank"}})
		return
	}

	m.mu.Lock()
	m.nextIssueID++
	issue := &MockIssue{ID: m.nextIssueID, Subject: subject, Status: "New", Fields: req.Issue}
	m.issues[issue.ID] = issue
	body := map[string]interface{}{"issue": issueJSON(issue)}
	m.mu.Unlock()

	writeJSON(w, http.StatusCreated, body)
}

func (m *TrackerMockServer) handleUpdateIssue(w http.ResponseWriter, r *http.Request, id int) {
	var req struct {
		Issue struct {
			Notes string `json:"notes"`
		} `json:"issue"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"errors": []string{"invalid JSON"}})
		return
	}

	m.mu.Lock()
	issue, ok := m.issues[id]
	if ok {
		issue.Notes = append(issue.Notes, req.Issue.Notes)
	}
	m.mu.Unlock()

	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func issueJSON(issue *MockIssue) map[string]interface{} {
	return map[string]interface{}{
		"id":      issue.ID,
		"subject": issue.Subject,
		"status":  map[string]interface{}{"id": 1, "name": issue.Status},
		"project": map[string]interface{}{"id": 1, "name": "Project 1"},
	}
}
