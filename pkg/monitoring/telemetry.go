// Package monitoring exposes OpenTelemetry metrics through a Prometheus endpoint
package monitoring

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	promhttp "github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

var (
	meterProvider          *sdkmetric.MeterProvider
	requestCounter         metric.Int64Counter
	latencyHist            metric.Float64Histogram
	externalCallCounter    metric.Int64Counter
	externalCallLatency    metric.Float64Histogram
	externalCallErrCounter metric.Int64Counter
	businessEventCounter   metric.Int64Counter
	workflowDurationHist   metric.Float64Histogram
	workflowInFlight       metric.Int64UpDownCounter
	compensationCounter    metric.Int64Counter
	initOnce               sync.Once
	httpHandler            http.Handler
)

// Config captures the setup parameters for the meter provider
type Config struct {
	ServiceName   string
	ResourceAttrs map[string]string
}

// Setup configures OpenTelemetry metrics with a Prometheus exporter and runtime instrumentation.
// It returns a shutdown function for the meter provider.
func Setup(ctx context.Context, cfg Config) (func(context.Context) error, error) {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "itic-portal"
	}

	attrs := []attribute.KeyValue{semconv.ServiceName(cfg.ServiceName)}
	for k, v := range cfg.ResourceAttrs {
		attrs = append(attrs, attribute.String(k, v))
	}

	var initErr error
	initOnce.Do(func() {
		initErr = setup(cfg.ServiceName, attrs)
	})
	if initErr != nil {
		return nil, initErr
	}

	return func(ctx context.Context) error {
		if meterProvider != nil {
			return meterProvider.Shutdown(ctx)
		}
		return nil
	}, nil
}

func setup(serviceName string, attrs []attribute.KeyValue) error {
	exp, err := prometheus.New(prometheus.WithoutUnits())
	if err != nil {
		return err
	}

	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(attrs...))
	if err != nil {
		return err
	}

	meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exp),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(meterProvider)
	httpHandler = promhttp.Handler()

	meter := meterProvider.Meter(serviceName)

	if requestCounter, err = meter.Int64Counter("http_requests_total",
		metric.WithDescription("Total number of HTTP requests processed")); err != nil {
		return err
	}
	if latencyHist, err = meter.Float64Histogram("http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds")); err != nil {
		return err
	}
	if externalCallCounter, err = meter.Int64Counter("external_calls_total",
		metric.WithDescription("Calls to the database, identity provider, storage and email services")); err != nil {
		return err
	}
	if externalCallLatency, err = meter.Float64Histogram("external_call_duration_seconds",
		metric.WithDescription("Duration of external calls in seconds")); err != nil {
		return err
	}
	if externalCallErrCounter, err = meter.Int64Counter("external_call_errors_total",
		metric.WithDescription("Number of failed external calls")); err != nil {
		return err
	}
	if businessEventCounter, err = meter.Int64Counter("business_events_total",
		metric.WithDescription("Business event counts by action and outcome")); err != nil {
		return err
	}
	if workflowDurationHist, err = meter.Float64Histogram("workflow_duration_seconds",
		metric.WithDescription("End-to-end provisioning workflow durations")); err != nil {
		return err
	}
	if workflowInFlight, err = meter.Int64UpDownCounter("workflow_inflight",
		metric.WithDescription("Number of workflows currently running")); err != nil {
		return err
	}
	if compensationCounter, err = meter.Int64Counter("workflow_compensations_total",
		metric.WithDescription("Compensating actions run after a failed workflow step")); err != nil {
		return err
	}

	// Go runtime metrics (goroutines, GC, etc.)
	return runtime.Start(
		runtime.WithMinimumReadMemStatsInterval(10*time.Second),
		runtime.WithMeterProvider(meterProvider),
	)
}

// Handler returns the Prometheus /metrics handler
func Handler() http.Handler {
	if httpHandler != nil {
		return httpHandler
	}
	return http.NotFoundHandler()
}

// HTTPMetricsMiddleware records request counts and latency, labelled by the
// matched route pattern rather than the raw path.
func HTTPMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requestCounter == nil || latencyHist == nil {
			next.ServeHTTP(w, r)
			return
		}

		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(recorder, r)

		attrs := attributeSet(r.Method, routePattern(r), recorder.status)
		requestCounter.Add(r.Context(), 1, metric.WithAttributes(attrs...))
		latencyHist.Record(r.Context(), time.Since(start).Seconds(), metric.WithAttributes(attrs...))
	})
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(statusCode int) {
	s.status = statusCode
	s.ResponseWriter.WriteHeader(statusCode)
}

func attributeSet(method, route string, status int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("http.method", method),
		attribute.String("http.route", route),
		attribute.Int("http.status_code", status),
	}
}

// RecordExternalCall tracks latency and errors for downstream dependencies
func RecordExternalCall(ctx context.Context, target, operation string, duration time.Duration, err error) {
	if externalCallCounter == nil || externalCallLatency == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("external.target", target),
		attribute.String("external.operation", operation),
		attribute.Bool("external.success", err == nil),
	}

	externalCallCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
	externalCallLatency.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	if err != nil && externalCallErrCounter != nil {
		externalCallErrCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

// RecordBusinessEvent counts domain events such as contact submissions or user creation
func RecordBusinessEvent(ctx context.Context, action string, success bool) {
	if businessEventCounter == nil {
		return
	}

	businessEventCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("business.action", action),
		attribute.String("business.outcome", outcomeLabel(success)),
	))
}

func outcomeLabel(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

// RecordWorkflowDuration records how long a named workflow took
func RecordWorkflowDuration(ctx context.Context, workflow string, duration time.Duration, success bool) {
	if workflowDurationHist == nil {
		return
	}

	workflowDurationHist.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("workflow.name", workflow),
		attribute.String("workflow.outcome", outcomeLabel(success)),
	))
}

// WorkflowInFlightAdd adjusts the in-flight workflow counter (use delta +1 / -1)
func WorkflowInFlightAdd(ctx context.Context, workflow string, delta int64) {
	if workflowInFlight == nil {
		return
	}

	workflowInFlight.Add(ctx, delta, metric.WithAttributes(
		attribute.String("workflow.name", workflow),
	))
}

// RecordCompensation counts a compensating action and whether it succeeded
func RecordCompensation(ctx context.Context, workflow, step string, err error) {
	if compensationCounter == nil {
		return
	}

	compensationCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("workflow.name", workflow),
		attribute.String("workflow.step", step),
		attribute.String("compensation.outcome", outcomeLabel(err == nil)),
	))
}
