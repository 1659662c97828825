package server_test

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/shaharia-lab/formrelay/internal/api"
	"github.com/shaharia-lab/formrelay/internal/logger"
	"github.com/shaharia-lab/formrelay/internal/metrics"
	"github.com/shaharia-lab/formrelay/internal/server"
	"github.com/shaharia-lab/formrelay/internal/service"
	svcmocks "github.com/shaharia-lab/formrelay/internal/service/mocks"
)

const origin = "https://www.example.com"

func newTestServer(t *testing.T, relaySvc service.RelayService) *server.Server {
	t.Helper()
	assets := fstest.MapFS{"favicon.ico": &fstest.MapFile{Data: []byte{0, 0, 1, 0}}}
	return server.New(api.New(relaySvc, logger.Discard()), server.Options{
		AllowedOrigins: []string{origin},
		Assets:         assets,
		Metrics:        metrics.New().Handler(),
	}, logger.Discard())
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRoutes(t *testing.T) {
	srv := newTestServer(t, new(svcmocks.MockRelayService))

	tests := []struct {
		name        string
		path        string
		wantStatus  int
		wantType    string
		wantContain string
	}{
		{"liveness", "/", http.StatusOK, "application/json", "formrelay backend is running"},
		{"readiness", "/healthz", http.StatusOK, "application/json", `"ok"`},
		{"favicon", "/favicon.ico", http.StatusOK, "image/x-icon", ""},
		{"metrics", "/metrics", http.StatusOK, "text/plain", "go_goroutines"},
		{"unknown", "/nope", http.StatusNotFound, "", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := serve(srv.Handler(), httptest.NewRequest(http.MethodGet, tc.path, nil))
			assert.Equal(t, tc.wantStatus, w.Code)
			if tc.wantType != "" {
				assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), tc.wantType), w.Header().Get("Content-Type"))
			}
			if tc.wantContain != "" {
				assert.Contains(t, w.Body.String(), tc.wantContain)
			}
		})
	}
}

func TestFavicon_MissingAsset(t *testing.T) {
	srv := server.New(api.New(new(svcmocks.MockRelayService), logger.Discard()), server.Options{}, logger.Discard())
	w := serve(srv.Handler(), httptest.NewRequest(http.MethodGet, "/favicon.ico", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCORS(t *testing.T) {
	srv := newTestServer(t, new(svcmocks.MockRelayService))

	t.Run("preflight from allowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/contact", nil)
		req.Header.Set("Origin", origin)
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		req.Header.Set("Access-Control-Request-Headers", "Content-Type")

		w := serve(srv.Handler(), req)
		assert.Equal(t, origin, w.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))
	})

	t.Run("preflight from other origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/contact", nil)
		req.Header.Set("Origin", "https://evil.example.net")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)

		w := serve(srv.Handler(), req)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestContact_ThroughMiddleware(t *testing.T) {
	relaySvc := new(svcmocks.MockRelayService)
	relaySvc.On("Submit", mock.Anything, mock.Anything).Return(service.Result{SubmissionID: "id"}, nil)
	srv := newTestServer(t, relaySvc)

	req := httptest.NewRequest(http.MethodPost, "/contact",
		strings.NewReader(`{"name":"Jo","email":"jo@example.com","message":"Hello there"}`))
	req.Header.Set("Origin", origin)
	w := serve(srv.Handler(), req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, origin, w.Header().Get("Access-Control-Allow-Origin"))
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestRecoversFromPanic(t *testing.T) {
	relaySvc := new(svcmocks.MockRelayService)
	relaySvc.On("Submit", mock.Anything, mock.Anything).Run(func(mock.Arguments) { panic("boom") })
	srv := newTestServer(t, relaySvc)

	req := httptest.NewRequest(http.MethodPost, "/contact", strings.NewReader(`{}`))
	w := serve(srv.Handler(), req)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestServe_GracefulShutdown(t *testing.T) {
	srv := newTestServer(t, new(svcmocks.MockRelayService))
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestServe_WriteTimeout(t *testing.T) {
	post := func(t *testing.T, writeTimeout time.Duration) (*http.Response, error) {
		relaySvc := new(svcmocks.MockRelayService)
		relaySvc.On("Submit", mock.Anything, mock.Anything).
			After(300*time.Millisecond).
			Return(service.Result{SubmissionID: "id"}, nil)
		srv := server.New(api.New(relaySvc, logger.Discard()), server.Options{
			AllowedOrigins: []string{origin},
			WriteTimeout:   writeTimeout,
		}, logger.Discard())

		ln, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		ctx, cancel := context.WithCancel(context.Background())
		t.Cleanup(cancel)
		go func() { _ = srv.Serve(ctx, ln) }()

		return http.Post("http://"+ln.Addr().String()+"/contact", "application/json",
			strings.NewReader(`{"name":"Jo","email":"jo@example.com","message":"Hello there"}`))
	}

	t.Run("slow relay outlives a short write timeout", func(t *testing.T) {
		resp, err := post(t, 50*time.Millisecond)
		if err == nil {
			_ = resp.Body.Close()
		}
		assert.Error(t, err)
	})

	t.Run("configured timeout covers the relay", func(t *testing.T) {
		resp, err := post(t, 5*time.Second)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}
