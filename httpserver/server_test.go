// nolint: funlen
package httpserver_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cinelog/errs"
	"cinelog/httpserver"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	server := httpserver.Default(testConfig())

	assert.NotNil(t, server.Router, "Router should be initialized")
	assert.Equal(t, ":8080", server.Addr)
	assert.Equal(t, []string{"*"}, server.AllowOrigins)
	assert.NotNil(t, server.Logger)
	assert.NotNil(t, server.Router.Validator)
}

func TestDefault_UsesConfiguredPort(t *testing.T) {
	cfg := testConfig()
	cfg.Port = 9191

	server := httpserver.Default(cfg)

	assert.Equal(t, ":9191", server.Addr)
}

func TestServerStartAndShutdown(t *testing.T) {
	server := httpserver.Default(testConfig())
	port := allocateRandomPort(t)
	server.Addr = fmt.Sprintf("127.0.0.1:%d", port)

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Start()
	}()
	waitForServerReady(t, port)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, server.Shutdown(ctx))

	select {
	case err := <-errChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			t.Errorf("unexpected error during shutdown: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("server did not stop within timeout")
	}
}

func TestRegisterGlobalMiddlewares(t *testing.T) {
	server := httpserver.Default(testConfig())
	addTestRoute(server)

	response := makeRequest(server, http.MethodGet, "/test", nil)

	assert.Equal(t, http.StatusOK, response.Code)
	assert.NotEmpty(t, response.Header().Get(echo.HeaderXRequestID), "Request ID middleware should add header")
	assert.NotEmpty(t, response.Header().Get("X-Content-Type-Options"), "Secure middleware should add headers")
}

func TestCORSConfiguration(t *testing.T) {
	tests := []struct {
		name          string
		allowOrigins  string
		requestOrigin string
		expectCORS    bool
	}{
		{name: "wildcard allows all origins", allowOrigins: "*", requestOrigin: "https://example.com", expectCORS: true},
		{name: "specific origin is allowed", allowOrigins: "https://example.com", requestOrigin: "https://example.com", expectCORS: true},
		{name: "other origin is refused", allowOrigins: "https://example.com", requestOrigin: "https://evil.example", expectCORS: false},
		{name: "empty origins disables CORS", allowOrigins: "", requestOrigin: "https://example.com", expectCORS: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.AllowOrigins = tt.allowOrigins
			server := httpserver.Default(cfg)
			addTestRoute(server)

			response := makeRequest(server, http.MethodGet, "/test", map[string]string{"Origin": tt.requestOrigin})

			corsHeader := response.Header().Get(echo.HeaderAccessControlAllowOrigin)
			if tt.expectCORS {
				assert.NotEmpty(t, corsHeader, "CORS header should be present")
			} else {
				assert.Empty(t, corsHeader, "CORS header should not be present")
			}
		})
	}
}

func TestRateLimiter(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = 1
	server := httpserver.Default(cfg)
	addTestRoute(server)

	first := makeRequest(server, http.MethodGet, "/test", nil)
	second := makeRequest(server, http.MethodGet, "/test", nil)

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "100429", decodeAPIResponse(t, second).Code)
}

func TestMiddlewareRecoveryBehavior(t *testing.T) {
	server := httpserver.Default(testConfig())
	server.Router.GET("/panic", func(c echo.Context) error {
		panic("test panic")
	})

	response := makeRequest(server, http.MethodGet, "/panic", nil)

	assert.Equal(t, http.StatusInternalServerError, response.Code, "Should return 500 on panic")
}

func TestCustomErrorHandler(t *testing.T) {
	tests := []struct {
		name            string
		error           error
		expectedStatus  int
		expectedCode    string
		expectedMessage string
	}{
		{
			name:            "invalid error returns 400",
			error:           errs.Errorf(errs.EINVALID, "title is required"),
			expectedStatus:  http.StatusBadRequest,
			expectedCode:    "100010",
			expectedMessage: "title is required",
		},
		{
			name:            "not found error returns 404",
			error:           errs.Errorf(errs.ENOTFOUND, "movie not found"),
			expectedStatus:  http.StatusNotFound,
			expectedCode:    "100404",
			expectedMessage: "movie not found",
		},
		{
			name:            "conflict error returns 409",
			error:           errs.Errorf(errs.ECONFLICT, "movie already exists"),
			expectedStatus:  http.StatusConflict,
			expectedCode:    "100409",
			expectedMessage: "movie already exists",
		},
		{
			name:            "unauthorized error returns 401",
			error:           errs.Errorf(errs.EUNAUTHORIZED, "unauthorized access"),
			expectedStatus:  http.StatusUnauthorized,
			expectedCode:    "100401",
			expectedMessage: "unauthorized access",
		},
		{
			name:            "not implemented error returns 501",
			error:           errs.Errorf(errs.ENOTIMPLEMENTED, "movie service not configured"),
			expectedStatus:  http.StatusNotImplemented,
			expectedCode:    "100501",
			expectedMessage: "movie service not configured",
		},
		{
			name:            "store failure returns 500 with generic message",
			error:           errs.Internal(sql.ErrConnDone, "cannot list movies"),
			expectedStatus:  http.StatusInternalServerError,
			expectedCode:    "100500",
			expectedMessage: "Internal server error",
		},
		{
			name:            "unknown error returns 500 with generic message",
			error:           errors.New("some random error"),
			expectedStatus:  http.StatusInternalServerError,
			expectedCode:    "100500",
			expectedMessage: "Internal server error",
		},
		{
			name:            "context error returns 500",
			error:           context.DeadlineExceeded,
			expectedStatus:  http.StatusInternalServerError,
			expectedCode:    "100500",
			expectedMessage: "Internal server error",
		},
		{
			name:            "echo http error preserves status code",
			error:           echo.NewHTTPError(http.StatusForbidden, "forbidden"),
			expectedStatus:  http.StatusForbidden,
			expectedCode:    "100403",
			expectedMessage: "forbidden",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httpserver.Default(testConfig())
			server.Router.GET("/error", func(c echo.Context) error {
				return tt.error
			})

			response := makeRequest(server, http.MethodGet, "/error", nil)

			assert.Equal(t, tt.expectedStatus, response.Code)
			resp := decodeAPIResponse(t, response)
			assert.Equal(t, tt.expectedCode, resp.Code)
			assert.Equal(t, tt.expectedMessage, resp.Message)
		})
	}
}

func TestUnknownRouteReturns404(t *testing.T) {
	server := httpserver.Default(testConfig())

	response := makeRequest(server, http.MethodGet, "/films", nil)

	assert.Equal(t, http.StatusNotFound, response.Code)
	assert.Equal(t, "100404", decodeAPIResponse(t, response).Code)
}

func allocateRandomPort(t *testing.T) int {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := listener.Addr().(*net.TCPAddr).Port
	listener.Close()
	return port
}

func waitForServerReady(t *testing.T, port int) {
	t.Helper()
	url := fmt.Sprintf("http://127.0.0.1:%d/", port)
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url) // nolint: noctx
		if err == nil {
			resp.Body.Close()
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("server did not become ready")
}

func makeRequest(server *httpserver.Server, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)
	return rec
}

func addTestRoute(server *httpserver.Server) {
	server.Router.GET("/test", func(c echo.Context) error {
		return c.String(http.StatusOK, "test")
	})
}
