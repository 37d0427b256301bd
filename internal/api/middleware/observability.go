package middleware

import (
	"net/http"
	"time"

	"github.com/zatekoja/clinic-reminders/backend/internal/infrastructure/observability"
	"go.opentelemetry.io/otel/attribute"
)

// Observability adds OpenTelemetry tracing and request metrics.
// It must wrap the mux directly so r.Pattern is set when the span is named.
func Observability(metrics *observability.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := observability.StartSpan(r.Context(), r.Method+" "+r.URL.Path)
			defer span.End()

			rw := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
			start := time.Now()
			req := r.WithContext(ctx)
			next.ServeHTTP(rw, req)

			// The mux records the matched pattern on the request it was given.
			route := req.Pattern
			if route == "" {
				route = "unmatched"
			}
			span.SetName(route)
			observability.SetSpanAttributes(span,
				attribute.String("http.method", r.Method),
				attribute.String("http.route", route),
				attribute.String("http.user_agent", r.UserAgent()),
				attribute.Int("http.status_code", rw.statusCode),
			)
			observability.RecordRequestMetric(ctx, metrics, r.Method, route, rw.statusCode, time.Since(start))
		})
	}
}
