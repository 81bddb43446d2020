package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openbiocard/openbiocard-backend/internal/identity"
	"github.com/openbiocard/openbiocard-backend/pkg/enums"
	pkgerrors "github.com/openbiocard/openbiocard-backend/pkg/errors"
	"github.com/openbiocard/openbiocard-backend/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAuthenticator struct {
	tokens map[string]identity.Principal
	err    error
}

func (s stubAuthenticator) Authenticate(_ context.Context, username, token string) (*identity.Principal, error) {
	if s.err != nil {
		return nil, s.err
	}
	p, ok := s.tokens[username+"|"+token]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "Invalid token")
	}
	return &p, nil
}

var stubAuth = stubAuthenticator{tokens: map[string]identity.Principal{
	"alice|tok-alice": {Username: "alice", Type: enums.AccountTypeUser},
	"boss|tok-boss":   {Username: "boss", Type: enums.AccountTypeAdmin},
}}

func authed(method, username, token string) *http.Request {
	req := httptest.NewRequest(method, "/", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if username != "" {
		req.Header.Set(UsernameHeader, username)
	}
	return req
}

func okHandler(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }

func TestAuthRejectsMissingCredentials(t *testing.T) {
	handler := Auth(stubAuth, nil)(http.HandlerFunc(okHandler))

	for _, req := range []*http.Request{
		authed(http.MethodGet, "", ""),
		authed(http.MethodGet, "alice", ""),
		authed(http.MethodGet, "", "tok-alice"),
	} {
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		assert.Equal(t, http.StatusUnauthorized, resp.Code)
	}
}

func TestAuthRejectsTokenForAnotherUser(t *testing.T) {
	handler := Auth(stubAuth, nil)(http.HandlerFunc(okHandler))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authed(http.MethodGet, "boss", "tok-alice"))
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestAuthPropagatesStorageOutage(t *testing.T) {
	auth := stubAuthenticator{err: pkgerrors.Wrap(pkgerrors.CodeUnavailable, errors.New("down"), "read account")}
	handler := Auth(auth, nil)(http.HandlerFunc(okHandler))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authed(http.MethodGet, "alice", "tok-alice"))
	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
	assert.NotEmpty(t, resp.Header().Get("Retry-After"))
}

func TestAuthSeedsPrincipal(t *testing.T) {
	var got identity.Principal
	handler := Auth(stubAuth, logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var ok bool
		got, ok = PrincipalFromContext(r.Context())
		require.True(t, ok)
		assert.Equal(t, "alice", UsernameFromContext(r.Context()))
		assert.Equal(t, enums.AccountTypeUser, RoleFromContext(r.Context()))
		w.WriteHeader(http.StatusOK)
	}))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authed(http.MethodGet, "alice", "tok-alice"))
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "alice", got.Username)
}

func TestRequireRole(t *testing.T) {
	chain := func(h http.Handler) http.Handler {
		return Auth(stubAuth, nil)(RequireRole(nil, enums.AccountTypeAdmin, enums.AccountTypeRoot)(h))
	}
	handler := chain(http.HandlerFunc(okHandler))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authed(http.MethodGet, "alice", "tok-alice"))
	assert.Equal(t, http.StatusForbidden, resp.Code)

	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, authed(http.MethodGet, "boss", "tok-boss"))
	assert.Equal(t, http.StatusOK, resp.Code)

	resp = httptest.NewRecorder()
	RequireRole(nil, enums.AccountTypeAdmin)(http.HandlerFunc(okHandler)).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, resp.Code, "no principal in context")
}

func TestRecovererReturns500(t *testing.T) {
	handler := Recoverer(logger.Nop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("kaboom")
	}))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, resp.Code)
}

func TestRequestIDEchoesOrMints(t *testing.T) {
	var seen string
	handler := RequestID(logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = w.Header().Get(requestIDHeader)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "req-1")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	assert.Equal(t, "req-1", resp.Header().Get(requestIDHeader))
	assert.Equal(t, "req-1", seen)

	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, resp.Header().Get(requestIDHeader), 36)
}
