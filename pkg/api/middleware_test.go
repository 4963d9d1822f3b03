package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goran-ethernal/ChainReplay/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCORSMiddleware(t *testing.T) {
	t.Parallel()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, err := w.Write([]byte("OK"))
		require.NoError(t, err)
	})

	tests := []struct {
		name           string
		allowedOrigins []string
		origin         string
		method         string
		expectedOrigin string
		expectVary     bool
	}{
		{
			name:           "wildcard echoes origin",
			allowedOrigins: []string{"*"},
			origin:         "https://example.com",
			method:         http.MethodGet,
			expectedOrigin: "https://example.com",
			expectVary:     true,
		},
		{
			name:           "wildcard without origin header",
			allowedOrigins: []string{"*"},
			method:         http.MethodGet,
			expectedOrigin: "*",
		},
		{
			name:           "listed origin",
			allowedOrigins: []string{"https://example.com", "https://another.com"},
			origin:         "https://another.com",
			method:         http.MethodPut,
			expectedOrigin: "https://another.com",
			expectVary:     true,
		},
		{
			name:           "unlisted origin",
			allowedOrigins: []string{"https://example.com"},
			origin:         "https://evil.com",
			method:         http.MethodGet,
		},
		{
			name:           "no origins configured",
			allowedOrigins: nil,
			origin:         "https://example.com",
			method:         http.MethodGet,
		},
		{
			name:           "preflight from listed origin",
			allowedOrigins: []string{"https://example.com"},
			origin:         "https://example.com",
			method:         http.MethodOptions,
			expectedOrigin: "https://example.com",
			expectVary:     true,
		},
		{
			name:           "preflight from unlisted origin",
			allowedOrigins: []string{"https://example.com"},
			origin:         "https://evil.com",
			method:         http.MethodOptions,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(tt.method, "/api/v1/events", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			w := httptest.NewRecorder()

			CORSMiddleware(tt.allowedOrigins)(handler).ServeHTTP(w, req)

			require.Equal(t, tt.expectedOrigin, w.Header().Get("Access-Control-Allow-Origin"))
			if tt.expectedOrigin != "" {
				require.Equal(t, "GET, POST, PUT, OPTIONS", w.Header().Get("Access-Control-Allow-Methods"))
				require.Equal(t, "Content-Type, Authorization", w.Header().Get("Access-Control-Allow-Headers"))
				require.Equal(t, corsMaxAge, w.Header().Get("Access-Control-Max-Age"))
			} else {
				require.Empty(t, w.Header().Get("Access-Control-Allow-Methods"))
			}
			if tt.expectVary {
				require.Equal(t, "Origin", w.Header().Get("Vary"))
			} else {
				require.Empty(t, w.Header().Get("Vary"))
			}

			require.Equal(t, http.StatusOK, w.Code)
			if tt.method == http.MethodOptions {
				require.Empty(t, w.Body.String())
			} else {
				require.Equal(t, "OK", w.Body.String())
			}
		})
	}
}

func TestLoggingMiddleware(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		method  string
		status  int
		handler http.HandlerFunc
	}{
		{
			name:   "explicit status",
			method: http.MethodPost,
			status: http.StatusAccepted,
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusAccepted)
			},
		},
		{
			name:   "error status",
			method: http.MethodGet,
			status: http.StatusServiceUnavailable,
			handler: func(w http.ResponseWriter, r *http.Request) {
				respondError(w, http.StatusServiceUnavailable, "node down")
			},
		},
		{
			name:   "implicit 200",
			method: http.MethodGet,
			status: http.StatusOK,
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, err := w.Write([]byte("OK"))
				require.NoError(t, err)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(tt.method, "/api/v1/replay", nil)
			w := httptest.NewRecorder()

			LoggingMiddleware(logger.NewNopLogger())(tt.handler).ServeHTTP(w, req)

			require.Equal(t, tt.status, w.Code)
		})
	}
}

func TestResponseWriter(t *testing.T) {
	t.Parallel()

	t.Run("first status is recorded", func(t *testing.T) {
		t.Parallel()

		w := httptest.NewRecorder()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		rw.WriteHeader(http.StatusConflict)
		rw.WriteHeader(http.StatusBadRequest)

		require.Equal(t, http.StatusConflict, rw.statusCode)
		require.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("write without header keeps 200", func(t *testing.T) {
		t.Parallel()

		w := httptest.NewRecorder()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		_, err := rw.Write([]byte("body"))
		require.NoError(t, err)
		rw.WriteHeader(http.StatusTeapot)

		require.Equal(t, http.StatusOK, rw.statusCode)
		require.True(t, rw.written)
	})

	t.Run("flush reaches the recorder", func(t *testing.T) {
		t.Parallel()

		w := httptest.NewRecorder()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		rw.Flush()
		require.True(t, w.Flushed)
	})

	t.Run("hijack needs a hijacker", func(t *testing.T) {
		t.Parallel()

		rw := &responseWriter{ResponseWriter: httptest.NewRecorder(), statusCode: http.StatusOK}

		conn, buf, err := rw.Hijack()
		require.ErrorContains(t, err, "does not support hijacking")
		require.Nil(t, conn)
		require.Nil(t, buf)
		require.False(t, rw.written)
	})
}

func TestRecoveryMiddleware(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		handler        http.HandlerFunc
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "no panic",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, err := w.Write([]byte("success"))
				require.NoError(t, err)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   "success",
		},
		{
			name:           "panic with string",
			handler:        func(w http.ResponseWriter, r *http.Request) { panic("something went wrong") },
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   "Internal Server Error\n",
		},
		{
			name:           "panic with error",
			handler:        func(w http.ResponseWriter, r *http.Request) { panic(assert.AnError) },
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   "Internal Server Error\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, "/api/v1/events", nil)
			w := httptest.NewRecorder()

			require.NotPanics(t, func() {
				RecoveryMiddleware(logger.NewNopLogger())(tt.handler).ServeHTTP(w, req)
			})

			require.Equal(t, tt.expectedStatus, w.Code)
			require.Equal(t, tt.expectedBody, w.Body.String())
		})
	}
}

func TestMiddlewareChaining(t *testing.T) {
	t.Parallel()

	log := logger.NewNopLogger()
	handler := CORSMiddleware([]string{"*"})(
		LoggingMiddleware(log)(
			RecoveryMiddleware(log)(
				http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { panic("boom") }),
			),
		),
	)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/overview", nil)
	req.Header.Set("Origin", "https://example.com")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.Equal(t, "https://example.com", w.Header().Get("Access-Control-Allow-Origin"))
}
