package middleware

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	pkgAuth "github.com/angelmondragon/carline-backend/pkg/auth"
	"github.com/angelmondragon/carline-backend/pkg/enums"
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
	return "", redis.Nil
}

func (f *fakeStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	str, _ := value.(string)
	f.data[key] = str
	return true, nil
}

func (f *fakeStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	str, _ := value.(string)
	f.data[key] = str
	return nil
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

func requestWithPattern(method, url, pattern string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, url, body)
	rc := chi.NewRouteContext()
	rc.RoutePatterns = []string{pattern}
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rc)
	ctx = WithIdentity(ctx, pkgAuth.Identity{UserID: uuid.MustParse("7b0c53b2-8a51-4c57-9b7c-1b44d7a5c111"), Role: enums.UserRoleDismisser})
	return req.WithContext(ctx)
}

func countingHandler(calls *int, status int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		fmt.Fprintf(w, `{"data":{"call":%d}}`, *calls)
	})
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	store := newFakeStore()
	calls := 0
	handler := Idempotency(store, nil)(countingHandler(&calls, http.StatusCreated))

	for i := 0; i < 2; i++ {
		req := requestWithPattern(http.MethodPost, "/api/dismisser/queue", "/api/dismisser/queue", strings.NewReader(`{"parentId":"p"}`))
		req.Header.Set("Idempotency-Key", "arrival-1")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("attempt %d: expected 201, got %d", i, rec.Code)
		}
		if rec.Body.String() != `{"data":{"call":1}}` {
			t.Fatalf("attempt %d: unexpected body %s", i, rec.Body.String())
		}
	}
	if calls != 1 {
		t.Fatalf("expected handler to run once, ran %d", calls)
	}
}

func TestIdempotencyRejectsKeyReuseWithDifferentBody(t *testing.T) {
	store := newFakeStore()
	calls := 0
	handler := Idempotency(store, nil)(countingHandler(&calls, http.StatusOK))

	first := requestWithPattern(http.MethodPost, "/api/teacher/mark-ready", "/api/teacher/mark-ready", strings.NewReader(`{"studentId":"a"}`))
	first.Header.Set("Idempotency-Key", "k")
	handler.ServeHTTP(httptest.NewRecorder(), first)

	second := requestWithPattern(http.MethodPost, "/api/teacher/mark-ready", "/api/teacher/mark-ready", strings.NewReader(`{"studentId":"b"}`))
	second.Header.Set("Idempotency-Key", "k")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, second)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestIdempotencyPassesThroughWithoutKey(t *testing.T) {
	store := newFakeStore()
	calls := 0
	handler := Idempotency(store, nil)(countingHandler(&calls, http.StatusOK))

	for i := 0; i < 2; i++ {
		req := requestWithPattern(http.MethodPost, "/api/dismisser/dismiss", "/api/dismisser/dismiss", strings.NewReader(`{}`))
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}
	if calls != 2 {
		t.Fatalf("expected two calls without a key, got %d", calls)
	}
	if len(store.data) != 0 {
		t.Fatalf("expected nothing stored, got %v", store.data)
	}
}

func TestIdempotencyIgnoresUnlistedRoutes(t *testing.T) {
	store := newFakeStore()
	calls := 0
	handler := Idempotency(store, nil)(countingHandler(&calls, http.StatusOK))

	for i := 0; i < 2; i++ {
		req := requestWithPattern(http.MethodPost, "/api/auth/login", "/api/auth/login", strings.NewReader(`{}`))
		req.Header.Set("Idempotency-Key", "k")
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}
	if calls != 2 {
		t.Fatalf("expected login to bypass idempotency, got %d calls", calls)
	}
}

func TestIdempotencyDoesNotStoreServerErrors(t *testing.T) {
	store := newFakeStore()
	calls := 0
	handler := Idempotency(store, nil)(countingHandler(&calls, http.StatusInternalServerError))

	req := requestWithPattern(http.MethodPost, "/api/dismisser/queue", "/api/dismisser/queue", strings.NewReader(`{}`))
	req.Header.Set("Idempotency-Key", "k")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if len(store.data) != 0 {
		t.Fatalf("expected 500 response not to be stored")
	}
}

func TestIdempotencyRejectsKeyWhileInFlight(t *testing.T) {
	store := newFakeStore()
	calls := 0
	var handler http.Handler
	handler = Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls > 1 {
			return
		}
		// a duplicate arrives before the first request has finished
		dup := requestWithPattern(http.MethodPost, "/api/dismisser/dismiss", "/api/dismisser/dismiss", strings.NewReader(`{"queueEntryId":"q"}`))
		dup.Header.Set("Idempotency-Key", "dismiss-1")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, dup)
		if rec.Code != http.StatusConflict {
			t.Errorf("expected in-flight duplicate to get 409, got %d", rec.Code)
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := requestWithPattern(http.MethodPost, "/api/dismisser/dismiss", "/api/dismisser/dismiss", strings.NewReader(`{"queueEntryId":"q"}`))
	req.Header.Set("Idempotency-Key", "dismiss-1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected original request to succeed, got %d", rec.Code)
	}
	if calls != 1 {
		t.Fatalf("expected handler to run once, ran %d", calls)
	}
}

func TestIdempotencyMarksReplays(t *testing.T) {
	store := newFakeStore()
	calls := 0
	handler := Idempotency(store, nil)(countingHandler(&calls, http.StatusOK))

	var last *httptest.ResponseRecorder
	for i := 0; i < 2; i++ {
		req := requestWithPattern(http.MethodPost, "/api/teacher/mark-ready/", "/api/teacher/mark-ready", strings.NewReader(`{"studentId":"a"}`))
		req.Header.Set("Idempotency-Key", "ready-1")
		last = httptest.NewRecorder()
		handler.ServeHTTP(last, req)
	}
	if got := last.Header().Get("Idempotent-Replayed"); got != "true" {
		t.Fatalf("expected replay header, got %q", got)
	}
	if got := last.Header().Get("Content-Type"); got != "application/json" {
		t.Fatalf("expected stored content type, got %q", got)
	}
}
