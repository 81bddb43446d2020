package controllers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openbiocard/openbiocard-backend/internal/identity"
	"github.com/openbiocard/openbiocard-backend/pkg/config"
	"github.com/openbiocard/openbiocard-backend/pkg/logger"
)

type pingerFunc func(context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthReadyStorageDown(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "test"}}
	h := HealthReady(cfg, logger.Nop(), pingerFunc(func(context.Context) error {
		return errors.New("database is locked")
	}), nil)

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	assert.NotContains(t, rec.Body.String(), "database is locked")
}

func TestMeWithoutPrincipal(t *testing.T) {
	rec := httptest.NewRecorder()
	Me(logger.Nop())(rec, httptest.NewRequest(http.MethodGet, "/api/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// unusedService panics if a handler reaches the service.
type unusedService struct {
	identity.Service
}

func TestPublicProfileRejectsMalformedNames(t *testing.T) {
	h := PublicProfile(unusedService{}, logger.Nop())
	for _, name := range []string{"ab", "has.dot", strings.Repeat("x", 33)} {
		req := httptest.NewRequest(http.MethodGet, "/api/users/"+name+"/profile", nil)
		rc := chi.NewRouteContext()
		rc.URLParams.Add("username", name)
		req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))

		rec := httptest.NewRecorder()
		h(rec, req)
		require.Equal(t, http.StatusNotFound, rec.Code, name)
	}
}

func TestSignupRejectsUnknownFields(t *testing.T) {
	h := Signup(unusedService{}, logger.Nop())
	body := `{"username":"alice","password":"secret123","role":"admin"}`
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPost, "/api/signup/create", strings.NewReader(body)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
