package middleware

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func keyedRequest(method, path, key, body string) *http.Request {
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	req.RemoteAddr = "192.168.1.1:12345"
	return req
}

// countingHandler answers 201 with a fixed body and counts calls
func countingHandler(calls *int32) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Location", "/v1/candidates/candidate:1")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"id":"candidate:1"}}`))
	})
}

func TestNewIdempotencyStore_DefaultConfig(t *testing.T) {
	t.Parallel()
	store := NewIdempotencyStore(IdempotencyConfig{})
	defer store.Stop()

	if store.ttl != 24*time.Hour {
		t.Errorf("expected TTL 24h, got %v", store.ttl)
	}
	if store.maxBody != 10<<20 {
		t.Errorf("expected 10 MiB body cap, got %d", store.maxBody)
	}
	if store.Len() != 0 {
		t.Error("new store should be empty")
	}
}

func TestIdempotencyStore_Stop_IsIdempotent(t *testing.T) {
	t.Parallel()
	store := NewIdempotencyStore(IdempotencyConfig{Cleanup: time.Millisecond})
	time.Sleep(5 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		store.Stop()
		store.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Error("Stop() did not return within timeout")
	}
}

func TestFingerprint_DistinguishesRequests(t *testing.T) {
	t.Parallel()

	base := fingerprint(http.MethodPost, "/v1/jobs", []byte(`{"title":"a"}`))
	if base != fingerprint(http.MethodPost, "/v1/jobs", []byte(`{"title":"a"}`)) {
		t.Error("same inputs should produce the same fingerprint")
	}

	others := []string{
		fingerprint(http.MethodPatch, "/v1/jobs", []byte(`{"title":"a"}`)),
		fingerprint(http.MethodPost, "/v1/accounts", []byte(`{"title":"a"}`)),
		fingerprint(http.MethodPost, "/v1/jobs", []byte(`{"title":"b"}`)),
		fingerprint(http.MethodPost, "/v1/job", []byte(`s{"title":"a"}`)),
	}
	for i, fp := range others {
		if fp == base {
			t.Errorf("variant %d should differ", i)
		}
	}
}

func TestIdempotency_PassesThrough(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		method string
		key    string
	}{
		{"GET with key", http.MethodGet, "k"},
		{"DELETE with key", http.MethodDelete, "k"},
		{"PUT with key", http.MethodPut, "k"},
		{"POST without key", http.MethodPost, ""},
		{"PATCH without key", http.MethodPatch, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			store := NewIdempotencyStore(IdempotencyConfig{})
			defer store.Stop()

			var calls int32
			handler := Idempotency(store)(countingHandler(&calls))
			for i := 0; i < 2; i++ {
				handler.ServeHTTP(httptest.NewRecorder(), keyedRequest(tt.method, "/v1/candidates", tt.key, `{}`))
			}

			if calls != 2 {
				t.Errorf("expected handler called twice, got %d", calls)
			}
			if store.Len() != 0 {
				t.Errorf("nothing should be stored, got %d entries", store.Len())
			}
		})
	}
}

func TestIdempotency_CacheHit_ReplaysResponse(t *testing.T) {
	t.Parallel()
	store := NewIdempotencyStore(IdempotencyConfig{TTL: time.Hour})
	defer store.Stop()

	var calls int32
	handler := Idempotency(store)(countingHandler(&calls))

	rr1 := httptest.NewRecorder()
	handler.ServeHTTP(rr1, keyedRequest(http.MethodPost, "/v1/candidates", "same-key", `{"email":"a@b.co"}`))
	rr2 := httptest.NewRecorder()
	handler.ServeHTTP(rr2, keyedRequest(http.MethodPost, "/v1/candidates", "same-key", `{"email":"a@b.co"}`))

	if calls != 1 {
		t.Errorf("expected handler called once, got %d", calls)
	}
	if rr1.Header().Get("X-Idempotency-Replayed") != "" {
		t.Error("first request should not be marked replayed")
	}
	if rr2.Code != http.StatusCreated || rr2.Body.String() != rr1.Body.String() {
		t.Errorf("replay mismatch: %d %q", rr2.Code, rr2.Body.String())
	}
	if rr2.Header().Get("X-Idempotency-Replayed") != "true" {
		t.Error("replayed request should carry X-Idempotency-Replayed")
	}
	if rr2.Header().Get("Location") != "/v1/candidates/candidate:1" {
		t.Errorf("original headers should be replayed, got %q", rr2.Header().Get("Location"))
	}
}

func TestIdempotency_KeyReusedWithDifferentBody_Returns422(t *testing.T) {
	t.Parallel()
	store := NewIdempotencyStore(IdempotencyConfig{})
	defer store.Stop()

	var calls int32
	handler := Idempotency(store)(countingHandler(&calls))

	handler.ServeHTTP(httptest.NewRecorder(), keyedRequest(http.MethodPost, "/v1/candidates", "k1", `{"email":"a@b.co"}`))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, keyedRequest(http.MethodPost, "/v1/candidates", "k1", `{"email":"other@b.co"}`))

	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", rr.Code)
	}
	if calls != 1 {
		t.Errorf("expected handler called once, got %d", calls)
	}
}

func TestIdempotency_ScopedPerCaller(t *testing.T) {
	t.Parallel()
	store := NewIdempotencyStore(IdempotencyConfig{})
	defer store.Stop()

	var calls int32
	handler := Idempotency(store)(countingHandler(&calls))

	for _, user := range []string{"user:a", "user:b"} {
		req := keyedRequest(http.MethodPost, "/v1/jobs", "shared-key", `{}`)
		req = req.WithContext(context.WithValue(req.Context(), UserIDKey, user))
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}

	if calls != 2 {
		t.Errorf("expected one call per user, got %d", calls)
	}
}

func TestIdempotency_ServerErrorIsNotStored(t *testing.T) {
	t.Parallel()
	store := NewIdempotencyStore(IdempotencyConfig{})
	defer store.Stop()

	var calls int32
	handler := Idempotency(store)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))

	rr1 := httptest.NewRecorder()
	handler.ServeHTTP(rr1, keyedRequest(http.MethodPost, "/v1/candidates/candidate:1/classify", "retry", ``))
	rr2 := httptest.NewRecorder()
	handler.ServeHTTP(rr2, keyedRequest(http.MethodPost, "/v1/candidates/candidate:1/classify", "retry", ``))

	if rr1.Code != http.StatusBadGateway || rr2.Code != http.StatusCreated {
		t.Errorf("expected 502 then 201, got %d then %d", rr1.Code, rr2.Code)
	}
	if rr2.Header().Get("X-Idempotency-Replayed") != "" {
		t.Error("retry after a server error should not be a replay")
	}
}

func TestIdempotency_RestoresRequestBody(t *testing.T) {
	t.Parallel()
	store := NewIdempotencyStore(IdempotencyConfig{})
	defer store.Stop()

	var got string
	handler := Idempotency(store)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		got = string(b)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), keyedRequest(http.MethodPost, "/v1/accounts", "body", `{"name":"Acme"}`))

	if got != `{"name":"Acme"}` {
		t.Errorf("handler saw body %q", got)
	}
}

func TestIdempotency_ExpiredEntry_ProcessesAgain(t *testing.T) {
	t.Parallel()
	store := NewIdempotencyStore(IdempotencyConfig{TTL: time.Minute})
	defer store.Stop()
	clock := newFakeClock()
	store.now = clock.Now

	var calls int32
	handler := Idempotency(store)(countingHandler(&calls))

	handler.ServeHTTP(httptest.NewRecorder(), keyedRequest(http.MethodPost, "/v1/jobs", "k", `{}`))
	clock.Advance(2 * time.Minute)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, keyedRequest(http.MethodPost, "/v1/jobs", "k", `{}`))

	if calls != 2 {
		t.Errorf("expected handler called twice, got %d", calls)
	}
	if rr.Header().Get("X-Idempotency-Replayed") != "" {
		t.Error("expired entry should not be replayed")
	}
}

func TestIdempotencyStore_Cleanup(t *testing.T) {
	t.Parallel()
	store := NewIdempotencyStore(IdempotencyConfig{TTL: time.Minute, Cleanup: time.Hour})
	defer store.Stop()
	clock := newFakeClock()
	store.now = clock.Now

	var calls int32
	handler := Idempotency(store)(countingHandler(&calls))
	handler.ServeHTTP(httptest.NewRecorder(), keyedRequest(http.MethodPost, "/v1/jobs", "old", `{}`))
	clock.Advance(50 * time.Second)
	handler.ServeHTTP(httptest.NewRecorder(), keyedRequest(http.MethodPost, "/v1/jobs", "new", `{}`))
	clock.Advance(20 * time.Second)

	store.cleanup()

	if store.Len() != 1 {
		t.Errorf("expected only the fresh entry to remain, got %d", store.Len())
	}
}

func TestIdempotency_InFlight_SecondRequestWaits(t *testing.T) {
	t.Parallel()
	store := NewIdempotencyStore(IdempotencyConfig{TTL: time.Hour})
	defer store.Stop()

	var calls int32
	started := make(chan struct{})
	proceed := make(chan struct{})

	handler := Idempotency(store)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		close(started)
		<-proceed
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"result":"done"}`))
	}))

	var wg sync.WaitGroup
	results := make([]*httptest.ResponseRecorder, 2)

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0] = httptest.NewRecorder()
		handler.ServeHTTP(results[0], keyedRequest(http.MethodPost, "/v1/placements", "inflight", `{}`))
	}()

	<-started

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[1] = httptest.NewRecorder()
		handler.ServeHTTP(results[1], keyedRequest(http.MethodPost, "/v1/placements", "inflight", `{}`))
	}()

	time.Sleep(50 * time.Millisecond)
	close(proceed)
	wg.Wait()

	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("expected handler called once, got %d", calls)
	}
	for i, rr := range results {
		if rr.Code != http.StatusCreated {
			t.Errorf("request %d: expected 201, got %d", i, rr.Code)
		}
	}
	if results[1].Header().Get("X-Idempotency-Replayed") != "true" {
		t.Error("second request should be a replay")
	}
}

func TestIdempotency_BodyOverLimit_Returns413(t *testing.T) {
	t.Parallel()
	store := NewIdempotencyStore(IdempotencyConfig{MaxBody: 16})
	defer store.Stop()

	var calls int32
	handler := Idempotency(store)(countingHandler(&calls))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, keyedRequest(http.MethodPost, "/v1/imports/candidates", "big", `email\nann@example.com\nbob@example.com\n`))

	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d", rr.Code)
	}
	if calls != 0 {
		t.Errorf("handler should not run, called %d times", calls)
	}
	if store.Len() != 0 {
		t.Error("oversized request should not be stored")
	}

	// Unkeyed requests are left to the handler's own limit
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, keyedRequest(http.MethodPost, "/v1/imports/candidates", "", `email\nann@example.com\nbob@example.com\n`))
	if calls != 1 {
		t.Errorf("unkeyed request should reach the handler, called %d times", calls)
	}
}
