package trackerapi_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/issuebridge/internal/tracker/testutil"
	"github.com/steveyegge/issuebridge/internal/trackerapi"
)

func TestNewClient(t *testing.T) {
	client := trackerapi.NewClient("https://tracker.example.com//", "secret")

	if client.Host != "https://tracker.example.com" {
		t.Errorf("Host = %q, want trailing slashes stripped", client.Host)
	}
	if client.HTTPClient == nil {
		t.Fatal("HTTPClient is nil")
	}
	if client.HTTPClient.Timeout != trackerapi.DefaultTimeout {
		t.Errorf("Timeout = %v, want %v", client.HTTPClient.Timeout, trackerapi.DefaultTimeout)
	}
	if client.MaxPages != trackerapi.DefaultMaxPages {
		t.Errorf("MaxPages = %d, want %d", client.MaxPages, trackerapi.DefaultMaxPages)
	}
}

func TestCredentialsRedacted(t *testing.T) {
	creds := trackerapi.Credentials{Host: "https://tracker.example.com/", APIKey: "super-secret"}

	if strings.Contains(creds.String(), "super-secret") {
		t.Errorf("String() leaks the API key: %s", creds.String())
	}
	if strings.Contains(creds.LogValue().String(), "super-secret") {
		t.Errorf("LogValue() leaks the API key: %s", creds.LogValue().String())
	}
}

func TestRequestHeadersAndURL(t *testing.T) {
	for _, host := range []string{"", "/", "///"} {
		t.Run("suffix "+host, func(t *testing.T) {
			var gotPath, gotKey, gotType string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotPath = r.URL.Path
				gotKey = r.Header.Get(trackerapi.APIKeyHeader)
				gotType = r.Header.Get("Content-Type")
				w.Write([]byte(`{"ok": true}`))
			}))
			defer server.Close()

			client := trackerapi.NewClient(server.URL+host, "test-key")
			var out map[string]any
			if err := client.Request(context.Background(), http.MethodGet, "/trackers.json", nil, &out); err != nil {
				t.Fatalf("Request failed: %v", err)
			}

			if gotPath != "/trackers.json" {
				t.Errorf("path = %q, want /trackers.json", gotPath)
			}
			if gotKey != "test-key" {
				t.Errorf("%s = %q, want test-key", trackerapi.APIKeyHeader, gotKey)
			}
			if gotType != "application/json" {
				t.Errorf("Content-Type = %q, want application/json", gotType)
			}
			if out["ok"] != true {
				t.Errorf("decoded body = %v", out)
			}
		})
	}
}

func TestRequestDecodeError(t *testing.T) {
	mock := testutil.NewMockTrackerServer()
	defer mock.Close()
	mock.SetRawResponse("/trackers.json", http.StatusOK, "<html>maintenance</html>")

	client := trackerapi.NewClient(mock.URL(), "k")
	var out map[string]any
	err := client.Request(context.Background(), http.MethodGet, "/trackers.json", nil, &out)

	var decodeErr *trackerapi.DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, "/trackers.json", decodeErr.Path)
	assert.Equal(t, http.StatusOK, decodeErr.StatusCode)
}

func TestRequestTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := trackerapi.NewClient(url, "k")
	var out map[string]any
	err := client.Request(context.Background(), http.MethodGet, "/trackers.json", nil, &out)

	var transportErr *trackerapi.TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, http.MethodGet, transportErr.Method)
}

func TestRequestNoRetry(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("unavailable"))
	}))
	defer server.Close()

	client := trackerapi.NewClient(server.URL, "k")
	var out map[string]any
	if err := client.Request(context.Background(), http.MethodGet, "/trackers.json", nil, &out); err == nil {
		t.Fatal("expected decode error")
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want exactly 1", calls.Load())
	}
}

func TestRawReturnsStatus(t *testing.T) {
	mock := testutil.NewMockTrackerServer()
	defer mock.Close()
	mock.SetResponse("PUT /issues/7.json", http.StatusUnprocessableEntity, map[string]any{"errors": []string{"Notes is invalid"}})

	client := trackerapi.NewClient(mock.URL(), "k")
	resp, err := client.Raw(context.Background(), http.MethodPut, "/issues/7.json", map[string]any{"issue": map[string]any{"notes": "x"}})
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.True(t, resp.IsError())
	assert.Contains(t, string(resp.Body), "Notes is invalid")
}

func TestListProjectsPagination(t *testing.T) {
	mock := testutil.NewTrackerMockServer()
	defer mock.Close()
	mock.SetProjectCount(237)

	client := trackerapi.NewClient(mock.URL(), "k")
	projects, err := client.ListProjects(context.Background())
	require.NoError(t, err)
	assert.Len(t, projects, 237)
	assert.Equal(t, "Project 1", projects[0].Name)
	assert.Equal(t, trackerapi.Ref("237"), projects[236].ID)

	requests := mock.GetRequests()
	require.Len(t, requests, 4)
	for i, wantOffset := range []string{"0", "100", "200", "237"} {
		assert.Contains(t, requests[i].Query, "limit=100", "request %d", i)
		assert.Contains(t, requests[i].Query, "offset="+wantOffset, "request %d", i)
	}
}

func TestListProjectsEmpty(t *testing.T) {
	mock := testutil.NewTrackerMockServer()
	defer mock.Close()

	client := trackerapi.NewClient(mock.URL(), "k")
	projects, err := client.ListProjects(context.Background())
	require.NoError(t, err)
	assert.Empty(t, projects)
	assert.Equal(t, 1, mock.GetRequestCount())
}

func TestListProjectsPageGuard(t *testing.T) {
	// A server that never returns an empty page.
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"projects": [{"id": 1, "name": "Loop"}], "offset": 0, "limit": 100}`))
	}))
	defer server.Close()

	client := trackerapi.NewClient(server.URL, "k", trackerapi.WithMaxPages(5))
	_, err := client.ListProjects(context.Background())
	if !errors.Is(err, trackerapi.ErrTooManyPages) {
		t.Fatalf("err = %v, want ErrTooManyPages", err)
	}
	if calls.Load() != 5 {
		t.Errorf("calls = %d, want 5", calls.Load())
	}
}

func TestListTrackersAndPriorities(t *testing.T) {
	mock := testutil.NewTrackerMockServer()
	defer mock.Close()

	client := trackerapi.NewClient(mock.URL(), "k")
	ctx := context.Background()

	trackers, err := client.ListTrackers(ctx)
	require.NoError(t, err)
	require.Len(t, trackers, 3)
	assert.Equal(t, "Bug", trackers[0].Name)

	priorities, err := client.ListPriorities(ctx)
	require.NoError(t, err)
	require.Len(t, priorities, 3)
	assert.True(t, priorities[1].IsDefault)
	assert.Equal(t, trackerapi.Ref("4"), priorities[1].ID)
}

func TestListingsRejectErrorBodies(t *testing.T) {
	ctx := context.Background()

	for _, status := range []int{http.StatusForbidden, http.StatusInternalServerError} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(status)
				w.Write([]byte(`{"errors": ["You are not authorized"]}`))
			}))
			defer server.Close()
			client := trackerapi.NewClient(server.URL, "k")

			projects, err := client.ListProjects(ctx)
			var statusErr *trackerapi.StatusError
			require.ErrorAs(t, err, &statusErr)
			assert.Equal(t, status, statusErr.StatusCode)
			assert.Equal(t, []string{"You are not authorized"}, statusErr.Errors)
			assert.Nil(t, projects)

			_, err = client.ListTrackers(ctx)
			assert.ErrorAs(t, err, &statusErr)

			_, err = client.ListPriorities(ctx)
			assert.ErrorAs(t, err, &statusErr)
		})
	}
}

func TestListingsRequireCollectionKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"total_count": 0}`))
	}))
	defer server.Close()
	client := trackerapi.NewClient(server.URL, "k")
	ctx := context.Background()

	var decodeErr *trackerapi.DecodeError
	_, err := client.ListProjects(ctx)
	require.ErrorAs(t, err, &decodeErr)
	assert.Contains(t, err.Error(), `missing "projects"`)

	_, err = client.ListTrackers(ctx)
	assert.ErrorAs(t, err, &decodeErr)

	_, err = client.ListPriorities(ctx)
	assert.ErrorAs(t, err, &decodeErr)
}

func TestGetIssue(t *testing.T) {
	mock := testutil.NewTrackerMockServer()
	defer mock.Close()
	mock.AddIssue(123, "Crash on start", "In Progress")

	client := trackerapi.NewClient(mock.URL(), "k")
	issue, err := client.GetIssue(context.Background(), "123")
	require.NoError(t, err)
	assert.Equal(t, trackerapi.Ref("123"), issue.ID)
	assert.Equal(t, "Crash on start", issue.Subject)
	assert.Equal(t, "In Progress", issue.StatusName())
}

func TestGetIssueNotFound(t *testing.T) {
	mock := testutil.NewTrackerMockServer()
	defer mock.Close()
	mock.SetResponse("/issues/9.json", http.StatusOK, map[string]any{"something": "else"})

	client := trackerapi.NewClient(mock.URL(), "k")

	var nf *trackerapi.NotFoundError
	_, err := client.GetIssue(context.Background(), "404")
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, http.StatusNotFound, nf.StatusCode)

	_, err = client.GetIssue(context.Background(), "9")
	require.ErrorAs(t, err, &nf, "unexpected shape is reported as not found")
}

func TestCreateIssue(t *testing.T) {
	var body map[string]map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/issues.json" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"issue": {"id": 42, "subject": "T"}}`))
	}))
	defer server.Close()

	client := trackerapi.NewClient(server.URL, "k")
	issue, err := client.CreateIssue(context.Background(), trackerapi.IssuePayload{"subject": "T", "priority_id": 4})
	require.NoError(t, err)
	assert.Equal(t, trackerapi.Ref("42"), issue.ID)
	assert.Equal(t, "T", body["issue"]["subject"])
	assert.EqualValues(t, 4, body["issue"]["priority_id"])
}

func TestCreateIssueCreationError(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"empty object", http.StatusOK, `{}`},
		{"issue without id", http.StatusOK, `{"issue": {"subject": "T"}}`},
		{"validation errors", http.StatusUnprocessableEntity, `{"errors": ["Subject cannot be blank"]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := trackerapi.NewClient(server.URL, "k")
			_, err := client.CreateIssue(context.Background(), trackerapi.IssuePayload{"subject": "T"})

			var creationErr *trackerapi.CreationError
			require.ErrorAs(t, err, &creationErr)
			assert.Equal(t, tt.status, creationErr.StatusCode)
		})
	}
}

func TestAddComment(t *testing.T) {
	mock := testutil.NewTrackerMockServer()
	defer mock.Close()
	mock.AddIssue(5, "Existing", "New")

	client := trackerapi.NewClient(mock.URL(), "k")
	resp, err := client.AddComment(context.Background(), "5", "Linked from error group")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, []string{"Linked from error group"}, mock.Issue(5).Notes)

	requests := mock.GetRequests()
	require.Len(t, requests, 1)
	assert.Equal(t, http.MethodPut, requests[0].Method)
	assert.JSONEq(t, `{"issue": {"notes": "Linked from error group"}}`, string(requests[0].Body))
}

func TestRefUnmarshal(t *testing.T) {
	var v struct {
		A trackerapi.Ref `json:"a"`
		B trackerapi.Ref `json:"b"`
		C trackerapi.Ref `json:"c"`
	}
	if err := json.Unmarshal([]byte(`{"a": 17, "b": "PROJ-9", "c": null}`), &v); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if v.A != "17" || v.B != "PROJ-9" || v.C != "" {
		t.Errorf("got %+v", v)
	}
	if err := json.Unmarshal([]byte(`{"a": {}}`), &v); err == nil {
		t.Error("expected error for object id")
	}
}

func TestIssueURL(t *testing.T) {
	if got := trackerapi.IssueURL("https://tracker.example.com/", "123"); got != "https://tracker.example.com/issues/123" {
		t.Errorf("IssueURL = %q", got)
	}
}
