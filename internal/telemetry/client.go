package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/steveyegge/issuebridge/internal/tracker/adapter"
	"github.com/steveyegge/issuebridge/internal/trackerapi"
)

const clientScopeName = "github.com/steveyegge/issuebridge/trackerapi"

// TrackerAPI is the tracker client surface the tool uses: the adapter's
// calls plus the reference data listings.
type TrackerAPI interface {
	adapter.API
	ListProjects(ctx context.Context) ([]trackerapi.Project, error)
	ListTrackers(ctx context.Context) ([]trackerapi.Tracker, error)
	ListPriorities(ctx context.Context) ([]trackerapi.Priority, error)
}

var _ TrackerAPI = (*trackerapi.Client)(nil)

// instruments holds the span/metric handles shared by the wrappers.
type instruments struct {
	prefix string
	tracer trace.Tracer
	ops    metric.Int64Counter
	dur    metric.Float64Histogram
	errs   metric.Int64Counter
}

func newInstruments(prefix string, tracer trace.Tracer, m metric.Meter) instruments {
	ops, _ := m.Int64Counter("issuebridge."+prefix+".operations",
		metric.WithDescription("Total "+prefix+" operations executed"),
	)
	dur, _ := m.Float64Histogram("issuebridge."+prefix+".operation.duration",
		metric.WithDescription(prefix+" operation duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	errs, _ := m.Int64Counter("issuebridge."+prefix+".errors",
		metric.WithDescription("Total "+prefix+" operation errors"),
	)
	return instruments{prefix: prefix, tracer: tracer, ops: ops, dur: dur, errs: errs}
}

// op starts a span and counts the named operation.
func (in instruments) op(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span, time.Time) {
	all := append([]attribute.KeyValue{attribute.String(in.prefix+".operation", name)}, attrs...)
	ctx, span := in.tracer.Start(ctx, in.prefix+"."+name,
		trace.WithAttributes(all...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
	in.ops.Add(ctx, 1, metric.WithAttributes(all...))
	return ctx, span, time.Now()
}

// done ends the span, records duration and optional error.
func (in instruments) done(ctx context.Context, span trace.Span, start time.Time, err error, attrs ...attribute.KeyValue) {
	ms := float64(time.Since(start).Milliseconds())
	in.dur.Record(ctx, ms, metric.WithAttributes(attrs...))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		in.errs.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
	span.End()
}

// InstrumentedClient wraps a tracker client with OTel tracing and metrics.
// Attributes carry operation names and issue refs, never credentials.
type InstrumentedClient struct {
	inner TrackerAPI
	in    instruments
}

// WrapClient returns c decorated with OTel instrumentation.
// When telemetry is disabled, c is returned as-is.
func WrapClient(c TrackerAPI) TrackerAPI {
	if !Enabled() {
		return c
	}
	return newInstrumentedClient(c, Tracer(clientScopeName), Meter(clientScopeName))
}

func newInstrumentedClient(c TrackerAPI, tracer trace.Tracer, m metric.Meter) *InstrumentedClient {
	return &InstrumentedClient{inner: c, in: newInstruments("tracker", tracer, m)}
}

func (c *InstrumentedClient) GetIssue(ctx context.Context, ref trackerapi.Ref) (*trackerapi.Issue, error) {
	attrs := []attribute.KeyValue{attribute.String("tracker.issue.ref", ref.String())}
	ctx, span, t := c.in.op(ctx, "GetIssue", attrs...)
	v, err := c.inner.GetIssue(ctx, ref)
	c.in.done(ctx, span, t, err, attrs...)
	return v, err
}

func (c *InstrumentedClient) CreateIssue(ctx context.Context, payload trackerapi.IssuePayload) (*trackerapi.Issue, error) {
	attrs := []attribute.KeyValue{attribute.Int("tracker.payload.fields", len(payload))}
	ctx, span, t := c.in.op(ctx, "CreateIssue", attrs...)
	v, err := c.inner.CreateIssue(ctx, payload)
	if err == nil {
		span.SetAttributes(attribute.String("tracker.issue.ref", v.ID.String()))
	}
	c.in.done(ctx, span, t, err, attrs...)
	return v, err
}

func (c *InstrumentedClient) AddComment(ctx context.Context, ref trackerapi.Ref, comment string) (*trackerapi.Response, error) {
	attrs := []attribute.KeyValue{attribute.String("tracker.issue.ref", ref.String())}
	ctx, span, t := c.in.op(ctx, "AddComment", attrs...)
	v, err := c.inner.AddComment(ctx, ref, comment)
	if err == nil {
		span.SetAttributes(attribute.Int("http.response.status_code", v.StatusCode))
	}
	c.in.done(ctx, span, t, err, attrs...)
	return v, err
}

func (c *InstrumentedClient) ListProjects(ctx context.Context) ([]trackerapi.Project, error) {
	ctx, span, t := c.in.op(ctx, "ListProjects")
	v, err := c.inner.ListProjects(ctx)
	span.SetAttributes(attribute.Int("tracker.result.count", len(v)))
	c.in.done(ctx, span, t, err)
	return v, err
}

func (c *InstrumentedClient) ListTrackers(ctx context.Context) ([]trackerapi.Tracker, error) {
	ctx, span, t := c.in.op(ctx, "ListTrackers")
	v, err := c.inner.ListTrackers(ctx)
	c.in.done(ctx, span, t, err)
	return v, err
}

func (c *InstrumentedClient) ListPriorities(ctx context.Context) ([]trackerapi.Priority, error) {
	ctx, span, t := c.in.op(ctx, "ListPriorities")
	v, err := c.inner.ListPriorities(ctx)
	c.in.done(ctx, span, t, err)
	return v, err
}
