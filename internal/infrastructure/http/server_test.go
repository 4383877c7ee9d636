package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezkam/atlas/internal/access"
	"github.com/rezkam/atlas/internal/application/auth"
	"github.com/rezkam/atlas/internal/domain"
	mw "github.com/rezkam/atlas/internal/infrastructure/http/middleware"
)

type fakeAuthenticator struct {
	keys map[string]access.User
}

func (f fakeAuthenticator) Authenticate(_ context.Context, apiKey string) (*auth.Principal, error) {
	user, ok := f.keys[apiKey]
	if !ok {
		return nil, domain.ErrUnauthorized
	}
	return &auth.Principal{KeyID: "key-" + user.ID, User: user}, nil
}

func newTestServer(maxBody int64) *APIServer {
	api := http.NewServeMux()
	api.HandleFunc("/whoami", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(mw.UserFrom(r.Context()).ID))
	})
	api.HandleFunc("/echo", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	authn := fakeAuthenticator{keys: map[string]access.User{"good-key": {ID: "alice"}}}
	return NewAPIServer(api, authn, ServerConfig{MaxBodyBytes: maxBody})
}

func TestRouter_HealthNeedsNoAuth(t *testing.T) {
	w := httptest.NewRecorder()
	newTestServer(0).Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestRouter_Ready(t *testing.T) {
	tests := []struct {
		name   string
		check  ReadinessCheck
		status int
	}{
		{"no check", nil, http.StatusOK},
		{"dependency up", func(context.Context) error { return nil }, http.StatusOK},
		{"dependency down", func(context.Context) error { return errors.New("connection refused") }, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := NewAPIServer(http.NewServeMux(), fakeAuthenticator{}, ServerConfig{Ready: tt.check})
			w := httptest.NewRecorder()
			srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))

			assert.Equal(t, tt.status, w.Code)
			if tt.status != http.StatusOK {
				assert.Contains(t, w.Body.String(), "NOT_READY")
			}
		})
	}
}

func TestStart_TLSRequiresFiles(t *testing.T) {
	srv := NewAPIServer(http.NewServeMux(), fakeAuthenticator{}, ServerConfig{TLSEnabled: true, Port: "0"})
	assert.ErrorIs(t, srv.Start(), ErrTLSFilesRequired)
}

func TestRouter_APIRequiresBearerKey(t *testing.T) {
	handler := newTestServer(0).Handler()

	tests := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"missing header", "", http.StatusUnauthorized, ""},
		{"wrong scheme", "Basic good-key", http.StatusUnauthorized, ""},
		{"unknown key", "Bearer nope", http.StatusUnauthorized, ""},
		{"valid key", "Bearer good-key", http.StatusOK, "alice"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/whoami", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			if tt.body != "" {
				assert.Equal(t, tt.body, w.Body.String())
			} else {
				assert.Contains(t, w.Body.String(), `"UNAUTHORIZED"`)
			}
		})
	}
}

func TestRouter_RejectsOversizedBodies(t *testing.T) {
	handler := newTestServer(16).Handler()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/echo", strings.NewReader(strings.Repeat("x", 64)))
	req.Header.Set("Authorization", "Bearer good-key")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Contains(t, w.Body.String(), "PAYLOAD_TOO_LARGE")

	req = httptest.NewRequest(http.MethodPost, "/api/v1/echo", strings.NewReader("small"))
	req.Header.Set("Authorization", "Bearer good-key")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestServerConfig_ApplyDefaults(t *testing.T) {
	t.Run("applies all defaults for zero config", func(t *testing.T) {
		cfg := ServerConfig{}
		cfg.applyDefaults()

		assert.Equal(t, DefaultPort, cfg.Port)
		assert.Equal(t, DefaultReadTimeout, cfg.ReadTimeout)
		assert.Equal(t, DefaultWriteTimeout, cfg.WriteTimeout)
		assert.Equal(t, DefaultIdleTimeout, cfg.IdleTimeout)
		assert.Equal(t, DefaultReadHeaderTimeout, cfg.ReadHeaderTimeout)
		assert.Equal(t, DefaultMaxHeaderBytes, cfg.MaxHeaderBytes)
		assert.Equal(t, int64(DefaultMaxBodyBytes), cfg.MaxBodyBytes)
	})

	t.Run("preserves non-zero values", func(t *testing.T) {
		cfg := ServerConfig{Port: "9000", MaxHeaderBytes: 2048, MaxBodyBytes: 4096}
		cfg.applyDefaults()

		assert.Equal(t, "9000", cfg.Port)
		assert.Equal(t, 2048, cfg.MaxHeaderBytes)
		assert.Equal(t, int64(4096), cfg.MaxBodyBytes)
		assert.Equal(t, DefaultReadTimeout, cfg.ReadTimeout)
	})
}
