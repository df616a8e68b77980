package middleware //nolint:testpackage // Need access to the unexported visitor limiter

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/davidbz/chatrelay/internal/config"
	"github.com/davidbz/chatrelay/internal/observability"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestChain_Order(t *testing.T) {
	var order []string
	tag := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	handler := Chain(tag("first"), tag("second"), tag("third"))(okHandler())
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, []string{"first", "second", "third"}, order)
}

func TestAuth(t *testing.T) {
	tests := []struct {
		name   string
		secret string
		header string
		status int
	}{
		{name: "disabled without secret", secret: "", header: "", status: http.StatusOK},
		{name: "valid bearer token", secret: "s3cret", header: "Bearer s3cret", status: http.StatusOK},
		{name: "missing header", secret: "s3cret", header: "", status: http.StatusUnauthorized},
		{name: "wrong token", secret: "s3cret", header: "Bearer nope", status: http.StatusUnauthorized},
		{name: "token prefix only", secret: "s3cret", header: "Bearer s3c", status: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/chat-process", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			Auth(tt.secret)(okHandler()).ServeHTTP(rec, req)

			require.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusUnauthorized {
				var body map[string]any
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
				require.Equal(t, "Unauthorized", body["status"])
				require.Nil(t, body["data"])
			}
		})
	}
}

func TestRateLimit(t *testing.T) {
	t.Run("should reject requests over the hourly limit per IP", func(t *testing.T) {
		handler := RateLimit(2)(okHandler())

		send := func(ip string) *httptest.ResponseRecorder {
			req := httptest.NewRequest(http.MethodPost, "/chat-process", nil)
			req.RemoteAddr = ip + ":5555"
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			return rec
		}

		require.Equal(t, http.StatusOK, send("10.0.0.1").Code)
		require.Equal(t, http.StatusOK, send("10.0.0.1").Code)

		rejected := send("10.0.0.1")
		require.Equal(t, http.StatusTooManyRequests, rejected.Code)
		var body map[string]any
		require.NoError(t, json.Unmarshal(rejected.Body.Bytes(), &body))
		require.Equal(t, "Fail", body["status"])
		require.Equal(t, "Too many request from this IP in 1 hour", body["message"])

		require.Equal(t, http.StatusOK, send("10.0.0.2").Code)
	})

	t.Run("should be disabled at zero", func(t *testing.T) {
		handler := RateLimit(0)(okHandler())
		for range 5 {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
			require.Equal(t, http.StatusOK, rec.Code)
		}
	})
}

func TestVisitorLimiter_RefillsAndPrunes(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := newVisitorLimiter(2, func() time.Time { return now })

	require.True(t, limiter.allow("a"))
	require.True(t, limiter.allow("a"))
	require.False(t, limiter.allow("a"))

	now = now.Add(30 * time.Minute)
	require.True(t, limiter.allow("a"))
	require.False(t, limiter.allow("a"))

	limiter.allow("b")
	now = now.Add(2 * time.Hour)
	limiter.allow("c")

	limiter.mu.Lock()
	defer limiter.mu.Unlock()
	require.Len(t, limiter.visitors, 1)
	require.Contains(t, limiter.visitors, "c")
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	require.Equal(t, "192.0.2.1", ClientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	require.Equal(t, "203.0.113.7", ClientIP(req))
}

func TestTrace(t *testing.T) {
	t.Run("should inject ids into the context and headers", func(t *testing.T) {
		var requestID string
		handler := Trace()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID = observability.GetRequestID(r.Context())
			require.NotEmpty(t, observability.GetTraceID(r.Context()))
			_, ok := w.(http.Flusher)
			require.True(t, ok)
			w.WriteHeader(http.StatusAccepted)
		}))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		require.Equal(t, http.StatusAccepted, rec.Code)
		require.NotEmpty(t, requestID)
		require.Equal(t, requestID, rec.Header().Get("X-Request-Id"))
		require.NotEmpty(t, rec.Header().Get("X-Trace-Id"))
	})

	t.Run("should keep an inbound request id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-Id", "client-123")
		rec := httptest.NewRecorder()

		Trace()(okHandler()).ServeHTTP(rec, req)

		require.Equal(t, "client-123", rec.Header().Get("X-Request-Id"))
	})
}

func TestCORS(t *testing.T) {
	cfg := &config.CORSConfig{
		AllowedOrigins: []string{"https://app.example"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         600,
	}

	t.Run("should answer preflight requests", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/chat-process", nil)
		req.Header.Set("Origin", "https://app.example")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		rec := httptest.NewRecorder()

		CORS(cfg)(okHandler()).ServeHTTP(rec, req)

		require.Equal(t, http.StatusNoContent, rec.Code)
		require.Equal(t, "https://app.example", rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("should skip unknown origins", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("Origin", "https://evil.example")
		rec := httptest.NewRecorder()

		CORS(cfg)(okHandler()).ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("should pass through without config", func(t *testing.T) {
		rec := httptest.NewRecorder()
		CORS(nil)(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	})
}
