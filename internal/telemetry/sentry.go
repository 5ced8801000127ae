// Package telemetry wraps Sentry tracing for ingestion runs and answers.
// Every helper is a no-op when Sentry was never initialised.
package telemetry

import (
	"context"
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/cloo-solutions/resumeqa/internal/domain"
)

const serverName = "resumeqa"

const flushTimeout = 5 * time.Second

// Config holds the configuration for Sentry initialization.
type Config struct {
	DSN              string
	Environment      string
	TracesSampleRate float64
	Debug            bool
}

// Init starts Sentry and returns a function that flushes pending events.
// An empty DSN or a failed init yields a no-op flush.
func Init(cfg Config, logger *slog.Logger) (func(), error) {
	if cfg.DSN == "" {
		return func() {}, nil
	}
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.TracesSampleRate <= 0 {
		cfg.TracesSampleRate = 1.0
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		EnableTracing:    true,
		TracesSampleRate: cfg.TracesSampleRate,
		Debug:            cfg.Debug,
		ServerName:       serverName,
		TracesSampler: sentry.TracesSampler(func(sc sentry.SamplingContext) float64 {
			return sampleRate(sc.Span, cfg.TracesSampleRate)
		}),
	})
	if err != nil {
		logger.Warn("sentry init failed, tracing disabled", slog.String("error", err.Error()))
		return func() {}, nil
	}

	logger.Info("sentry tracing enabled",
		slog.String("environment", cfg.Environment),
		slog.Float64("sample_rate", cfg.TracesSampleRate))

	return func() { sentry.Flush(flushTimeout) }, nil
}

// sampleRate drops health probes and keeps child spans with their parent.
func sampleRate(span *sentry.Span, base float64) float64 {
	if span == nil {
		return base
	}
	if span.Name == "GET /health" || span.Op == "http.server GET /health" {
		return 0
	}
	var root sentry.SpanID
	if span.ParentSpanID != root {
		if span.Sampled.Bool() {
			return 1
		}
		return 0
	}
	return base
}

// SpanAttributes tag a span with the document or backend it concerns.
type SpanAttributes struct {
	SourceID  string
	Backend   string
	Operation string
}

// Span is a nil-safe handle on a sentry span.
type Span struct {
	inner *sentry.Span
}

// End finishes the span.
func (s *Span) End() {
	if s.inner != nil {
		s.inner.Finish()
	}
}

// SetData attaches a key/value pair to the span.
func (s *Span) SetData(key string, value interface{}) {
	if s.inner != nil {
		s.inner.SetData(key, value)
	}
}

// SetError marks the span failed. Rate limits are expected and only tag the
// span; everything else is also captured as an exception.
func (s *Span) SetError(err error) {
	if s.inner == nil || err == nil {
		return
	}
	kind := domain.KindOf(err)
	s.inner.SetTag("error_kind", string(kind))
	if kind == domain.KindRateLimited {
		s.inner.Status = sentry.SpanStatusResourceExhausted
		return
	}
	s.inner.Status = sentry.SpanStatusInternalError
	if hub := sentry.GetHubFromContext(s.inner.Context()); hub != nil {
		hub.CaptureException(err)
	}
}

func (a SpanAttributes) apply(span *sentry.Span) {
	if span == nil {
		return
	}
	if a.SourceID != "" {
		span.SetTag("source_id", a.SourceID)
	}
	if a.Backend != "" {
		span.SetTag("index_backend", a.Backend)
	}
	if a.Operation != "" {
		span.SetData("operation", a.Operation)
	}
}

// StartSpan opens a child of the span in ctx, or a new transaction when
// there is none.
func StartSpan(ctx context.Context, name string, attrs SpanAttributes) (context.Context, *Span) {
	var span *sentry.Span
	if parent := sentry.SpanFromContext(ctx); parent != nil {
		span = parent.StartChild(name)
	} else {
		span = sentry.StartSpan(ctx, name, sentry.WithTransactionName(name))
	}
	attrs.apply(span)
	return span.Context(), &Span{inner: span}
}

// StartTransaction opens a root span for work with no inbound request, such
// as a scheduled ingestion run.
func StartTransaction(ctx context.Context, name string, op string) (context.Context, *Span) {
	opts := []sentry.SpanOption{sentry.WithTransactionName(name)}
	if op != "" {
		opts = append(opts, sentry.WithOpName(op))
	}
	span := sentry.StartSpan(ctx, op, opts...)
	return span.Context(), &Span{inner: span}
}

// CaptureError reports err with its provider kind as a tag. Rate limits are
// not reported.
func CaptureError(ctx context.Context, err error) {
	if err == nil {
		return
	}
	kind := domain.KindOf(err)
	if kind == domain.KindRateLimited {
		return
	}

	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("error_kind", string(kind))
		hub.CaptureException(err)
	})
}

// AddBreadcrumb records an info breadcrumb on the hub in ctx.
func AddBreadcrumb(ctx context.Context, category, message string) {
	crumb := &sentry.Breadcrumb{
		Type:      "default",
		Category:  category,
		Message:   message,
		Level:     sentry.LevelInfo,
		Timestamp: time.Now(),
	}

	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	hub.AddBreadcrumb(crumb, nil)
}
