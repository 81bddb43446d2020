package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	pkgerrors "github.com/openbiocard/openbiocard-backend/pkg/errors"
	pkgredis "github.com/openbiocard/openbiocard-backend/pkg/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	data map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string]string)}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := f.data[key]; ok {
		return v, nil
	}
	return "", pkgredis.Nil
}

func (f *fakeStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	str, _ := value.(string)
	f.data[key] = str
	return true, nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("fake:%s:%s", scope, id)
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(f.data, k)
	}
	return nil
}

const signupPath = "/api/signup/create"

func requestWithPattern(method, url, pattern string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, url, body)
	rc := chi.NewRouteContext()
	rc.RoutePatterns = []string{pattern}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
}

func signupWithKey(body, key string) *http.Request {
	req := requestWithPattern(http.MethodPost, signupPath, signupPath, strings.NewReader(body))
	if key != "" {
		req.Header.Set(IdempotencyHeader, key)
	}
	return req
}

func TestRouteTTLSelection(t *testing.T) {
	ttl, ok := routeTTL(http.MethodPost, signupPath)
	assert.True(t, ok)
	assert.Equal(t, defaultIdempotencyTTL, ttl)

	_, ok = routeTTL(http.MethodPost, "/api/admin/users")
	assert.True(t, ok)

	_, ok = routeTTL(http.MethodGet, "/api/admin/users")
	assert.False(t, ok)
	_, ok = routeTTL(http.MethodPost, "/api/signin")
	assert.False(t, ok)
}

func TestIdempotencyWithoutKeyPassesThrough(t *testing.T) {
	calls := 0
	handler := Idempotency(newFakeStore(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))
	for i := 0; i < 2; i++ {
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, signupWithKey(`{"username":"a"}`, ""))
		assert.Equal(t, http.StatusOK, resp.Code)
	}
	assert.Equal(t, 2, calls)
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	var calls int
	handler := Idempotency(newFakeStore(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"data":{"token":"t-1"}}`))
	}))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, signupWithKey(`{"username":"a"}`, "abc"))
	require.Equal(t, http.StatusOK, first.Code)

	replay := httptest.NewRecorder()
	handler.ServeHTTP(replay, signupWithKey(`{"username":"a"}`, "abc"))
	assert.Equal(t, http.StatusOK, replay.Code)
	assert.Equal(t, "application/json", replay.Header().Get("Content-Type"))
	assert.Equal(t, "true", replay.Header().Get("Idempotent-Replayed"))
	assert.Equal(t, `{"data":{"token":"t-1"}}`, strings.TrimSpace(replay.Body.String()))
	assert.Equal(t, 1, calls)
}

func TestIdempotencyDetectsBodyChange(t *testing.T) {
	handler := Idempotency(newFakeStore(), nil)(http.HandlerFunc(okHandler))
	handler.ServeHTTP(httptest.NewRecorder(), signupWithKey(`{"username":"a"}`, "xyz"))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, signupWithKey(`{"username":"b"}`, "xyz"))
	assert.Equal(t, http.StatusConflict, resp.Code)

	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &payload))
	assert.Equal(t, string(pkgerrors.CodeIdempotency), payload.Error.Code)
}

func TestIdempotencyDoesNotRecordServerErrors(t *testing.T) {
	calls := 0
	handler := Idempotency(newFakeStore(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, signupWithKey(`{"username":"a"}`, "k"))
	assert.Equal(t, http.StatusServiceUnavailable, first.Code)

	retry := httptest.NewRecorder()
	handler.ServeHTTP(retry, signupWithKey(`{"username":"a"}`, "k"))
	assert.Equal(t, http.StatusOK, retry.Code)
	assert.Equal(t, 2, calls)
}
