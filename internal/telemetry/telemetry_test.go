package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/steveyegge/issuebridge/internal/cache"
	"github.com/steveyegge/issuebridge/internal/trackerapi"
)

type stubClient struct {
	getErr error
}

func (s stubClient) GetIssue(_ context.Context, ref trackerapi.Ref) (*trackerapi.Issue, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return &trackerapi.Issue{ID: ref}, nil
}

func (stubClient) CreateIssue(context.Context, trackerapi.IssuePayload) (*trackerapi.Issue, error) {
	return &trackerapi.Issue{ID: "42"}, nil
}

func (stubClient) AddComment(context.Context, trackerapi.Ref, string) (*trackerapi.Response, error) {
	return &trackerapi.Response{StatusCode: 204}, nil
}

func (stubClient) ListProjects(context.Context) ([]trackerapi.Project, error) {
	return []trackerapi.Project{{ID: "1"}, {ID: "2"}}, nil
}

func (stubClient) ListTrackers(context.Context) ([]trackerapi.Tracker, error) { return nil, nil }

func (stubClient) ListPriorities(context.Context) ([]trackerapi.Priority, error) { return nil, nil }

type providers struct {
	spans  *tracetest.SpanRecorder
	tp     *sdktrace.TracerProvider
	reader *sdkmetric.ManualReader
	mp     *sdkmetric.MeterProvider
}

func newProviders(t *testing.T) providers {
	t.Helper()
	spans := tracetest.NewSpanRecorder()
	reader := sdkmetric.NewManualReader()
	p := providers{
		spans:  spans,
		tp:     sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans)),
		reader: reader,
		mp:     sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)),
	}
	t.Cleanup(func() {
		_ = p.tp.Shutdown(context.Background())
		_ = p.mp.Shutdown(context.Background())
	})
	return p
}

func (p providers) sum(t *testing.T, name string, match ...attribute.KeyValue) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, p.reader.Collect(context.Background(), &rm))

	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			data, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "%s is not an int64 sum", name)
		points:
			for _, dp := range data.DataPoints {
				for _, kv := range match {
					if v, ok := dp.Attributes.Value(kv.Key); !ok || v != kv.Value {
						continue points
					}
				}
				total += dp.Value
			}
		}
	}
	return total
}

func TestWrapClientDisabled(t *testing.T) {
	t.Setenv("ISSUEBRIDGE_OTEL_ENABLED", "")
	c := stubClient{}
	assert.Equal(t, TrackerAPI(c), WrapClient(c))
}

func TestInstrumentedClient(t *testing.T) {
	p := newProviders(t)
	ctx := context.Background()

	c := newInstrumentedClient(stubClient{}, p.tp.Tracer("test"), p.mp.Meter("test"))
	_, err := c.GetIssue(ctx, "7")
	require.NoError(t, err)
	_, err = c.CreateIssue(ctx, trackerapi.IssuePayload{"subject": "T"})
	require.NoError(t, err)
	_, err = c.ListProjects(ctx)
	require.NoError(t, err)

	ended := p.spans.Ended()
	require.Len(t, ended, 3)
	assert.Equal(t, "tracker.GetIssue", ended[0].Name())
	assert.Contains(t, ended[0].Attributes(), attribute.String("tracker.issue.ref", "7"))
	assert.Contains(t, ended[1].Attributes(), attribute.String("tracker.issue.ref", "42"))
	assert.Contains(t, ended[2].Attributes(), attribute.Int("tracker.result.count", 2))

	assert.Equal(t, int64(3), p.sum(t, "issuebridge.tracker.operations"))
	assert.Equal(t, int64(1), p.sum(t, "issuebridge.tracker.operations", attribute.String("tracker.operation", "GetIssue")))
	assert.Equal(t, int64(0), p.sum(t, "issuebridge.tracker.errors"))
}

func TestInstrumentedClientError(t *testing.T) {
	p := newProviders(t)
	c := newInstrumentedClient(stubClient{getErr: errors.New("refused")}, p.tp.Tracer("test"), p.mp.Meter("test"))

	_, err := c.GetIssue(context.Background(), "7")
	require.Error(t, err)

	ended := p.spans.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, codes.Error, ended[0].Status().Code)
	assert.Equal(t, int64(1), p.sum(t, "issuebridge.tracker.errors"))
}

func TestInstrumentedClientNoSecrets(t *testing.T) {
	p := newProviders(t)
	c := newInstrumentedClient(stubClient{}, p.tp.Tracer("test"), p.mp.Meter("test"))
	_, _ = c.AddComment(context.Background(), "7", "secret-comment")

	for _, span := range p.spans.Ended() {
		for _, kv := range span.Attributes() {
			assert.NotContains(t, kv.Value.Emit(), "secret-comment")
		}
	}
}

func TestInstrumentedCache(t *testing.T) {
	p := newProviders(t)
	ctx := context.Background()
	c := newInstrumentedCache(cache.NewMemory(), p.tp.Tracer("test"), p.mp.Meter("test"))

	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "k", "v", time.Minute))
	v, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", v)

	assert.Equal(t, int64(1), p.sum(t, "issuebridge.cache.lookups", attribute.Bool("cache.hit", true)))
	assert.Equal(t, int64(1), p.sum(t, "issuebridge.cache.lookups", attribute.Bool("cache.hit", false)))
	assert.Equal(t, int64(3), p.sum(t, "issuebridge.cache.operations"))
}

func TestInitDisabled(t *testing.T) {
	t.Setenv("ISSUEBRIDGE_OTEL_ENABLED", "")
	require.NoError(t, Init(context.Background(), "issuebridge", "test"))
	assert.Empty(t, shutdownFns)
	Shutdown(context.Background())
}

func TestFirstNonEmpty(t *testing.T) {
	assert.Equal(t, "b", firstNonEmpty("", "b", "c"))
	assert.Equal(t, "", firstNonEmpty("", ""))
}
