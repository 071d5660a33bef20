package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tankyou/internal/config"
	"tankyou/internal/infrastructure"
	"tankyou/internal/shared/testutil"
)

func TestRequestID(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
	}{
		{name: "generated", incoming: ""},
		{name: "propagated", incoming: "req-123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var chiID, traceID string
			handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				chiID = chimw.GetReqID(r.Context())
				traceID = infrastructure.GetTraceID(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
			if tt.incoming != "" {
				req.Header.Set(RequestIDHeader, tt.incoming)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			header := rec.Header().Get(RequestIDHeader)
			require.NotEmpty(t, header)
			if tt.incoming != "" {
				assert.Equal(t, tt.incoming, header)
			} else {
				assert.Len(t, header, 36)
			}
			assert.Equal(t, header, chiID)
			assert.Equal(t, header, traceID)
		})
	}
}

func TestRateLimiter(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	rl := NewRateLimiter(0.001, 2, logger)

	handler := RequestID(rl.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})))

	codes := make([]int, 0, 3)
	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/stations", nil))
		codes = append(codes, rec.Code)
		last = rec
	}

	assert.Equal(t, []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests}, codes)
	assert.Equal(t, "1", last.Header().Get("Retry-After"))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(last.Body.Bytes(), &body))
	assert.Equal(t, float64(http.StatusTooManyRequests), body["status"])
	assert.Equal(t, "/errors/rate-limit-exceeded", body["type"])
	assert.Equal(t, "/api/v1/stations", body["instance"])
	assert.Equal(t, last.Header().Get(RequestIDHeader), body["trace_id"])

	testutil.AssertLogContains(t, logs, slog.LevelWarn, "rate limit exceeded")
}

func TestRateLimiterMinimumBurst(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	rl := NewRateLimiter(1, 0, logger)
	assert.Equal(t, 1, rl.limiter.Burst())
}

func TestSecurityHeaders(t *testing.T) {
	handler := SecurityHeaders(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.Empty(t, rec.Header().Get("Strict-Transport-Security"))
}

func TestOTelMiddleware(t *testing.T) {
	tel, err := infrastructure.InitTelemetry(config.TelemetryConfig{
		ServiceName:   "tankyou-test",
		TraceExporter: "none",
	}, nil, infrastructure.DiscardLogger())
	require.NoError(t, err)
	defer tel.Shutdown(context.Background())

	mw, err := NewOTelMiddleware(tel.Tracer, tel.Meter)
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(mw.Handler)
	r.Get("/api/v1/stations/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("{}"))
	})
	r.Get("/boom", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	for _, path := range []string{"/api/v1/stations/1", "/api/v1/stations/2", "/boom"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}

	families, err := tel.Registry.Gather()
	require.NoError(t, err)

	var requests float64
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
		if !strings.HasPrefix(f.GetName(), "tankyou_http_requests") {
			continue
		}
		for _, m := range f.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "route" && l.GetValue() == "/api/v1/stations/{id}" {
					requests += m.GetCounter().GetValue()
				}
			}
		}
	}
	joined := strings.Join(names, " ")
	assert.Contains(t, joined, "tankyou_http_requests")
	assert.Contains(t, joined, "tankyou_http_request_duration")
	assert.Equal(t, float64(2), requests)
}

func TestRoutePatternFallback(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/unrouted", nil)
	assert.Equal(t, "/unrouted", routePattern(req))
}
