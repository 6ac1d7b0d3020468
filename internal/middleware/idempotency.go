package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/forgo/staffhub/internal/model"
)

// IdempotencyStore keeps responses of keyed POST/PATCH requests
type IdempotencyStore struct {
	mu       sync.Mutex
	entries  map[string]*idempotencyEntry
	ttl      time.Duration
	maxBody  int64
	now      func() time.Time
	stopOnce sync.Once
	stopChan chan struct{}
}

type idempotencyEntry struct {
	fingerprint string
	status      int
	headers     http.Header
	body        []byte
	expiresAt   time.Time
	inFlight    bool
	done        chan struct{}
}

// IdempotencyConfig holds configuration for idempotency middleware
type IdempotencyConfig struct {
	TTL     time.Duration // How long to keep results (default 24h)
	Cleanup time.Duration // Cleanup interval (default 1h)
	MaxBody int64         // Largest keyed body read into memory (default 10 MiB)
}

// NewIdempotencyStore creates a new idempotency store
func NewIdempotencyStore(cfg IdempotencyConfig) *IdempotencyStore {
	if cfg.TTL == 0 {
		cfg.TTL = 24 * time.Hour
	}
	if cfg.Cleanup == 0 {
		cfg.Cleanup = time.Hour
	}
	if cfg.MaxBody <= 0 {
		cfg.MaxBody = 10 << 20
	}

	store := &IdempotencyStore{
		entries:  make(map[string]*idempotencyEntry),
		ttl:      cfg.TTL,
		maxBody:  cfg.MaxBody,
		now:      time.Now,
		stopChan: make(chan struct{}),
	}

	go store.cleanupLoop(cfg.Cleanup)

	return store
}

// Stop stops the cleanup goroutine
func (s *IdempotencyStore) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
}

func (s *IdempotencyStore) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stopChan:
			return
		}
	}
}

func (s *IdempotencyStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for key, entry := range s.entries {
		if !entry.inFlight && entry.expiresAt.Before(now) {
			delete(s.entries, key)
		}
	}
}

// Len returns the number of stored entries
func (s *IdempotencyStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// storeKey scopes a client-supplied key to its caller
func storeKey(callerID, idempotencyKey string) string {
	return callerID + "\x00" + idempotencyKey
}

// fingerprint identifies the request a key was first used with
func fingerprint(method, path string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(method))
	h.Write([]byte{0})
	h.Write([]byte(path))
	h.Write([]byte{0})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// idempotencyResponseWriter captures the response for caching
type idempotencyResponseWriter struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (w *idempotencyResponseWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *idempotencyResponseWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func replay(w http.ResponseWriter, entry *idempotencyEntry) {
	for k, v := range entry.headers {
		for _, val := range v {
			w.Header().Add(k, val)
		}
	}
	w.Header().Set("X-Idempotency-Replayed", "true")
	w.WriteHeader(entry.status)
	_, _ = w.Write(entry.body)
}

func keyReused() *model.ProblemDetails {
	p := model.NewConflictError("Idempotency-Key was already used with a different request")
	p.Status = http.StatusUnprocessableEntity
	return p
}

// Idempotency replays the stored response when a POST or PATCH repeats an
// Idempotency-Key. Server errors are not stored, so the client may retry them.
func Idempotency(store *IdempotencyStore) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost && r.Method != http.MethodPatch {
				next.ServeHTTP(w, r)
				return
			}

			idempotencyKey := r.Header.Get("Idempotency-Key")
			if idempotencyKey == "" {
				next.ServeHTTP(w, r)
				return
			}

			callerID := GetUserID(r.Context())
			if callerID == "" {
				callerID = clientAddr(r)
			}

			body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, store.maxBody))
			if err != nil {
				var tooLarge *http.MaxBytesError
				if errors.As(err, &tooLarge) {
					model.NewBodyTooLargeError(store.maxBody).WriteJSON(w)
					return
				}
				model.NewBadRequestError("could not read request body").WriteJSON(w)
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			key := storeKey(callerID, idempotencyKey)
			fp := fingerprint(r.Method, r.URL.Path, body)

			store.mu.Lock()
			entry, exists := store.entries[key]
			if exists && !entry.inFlight && !entry.expiresAt.After(store.now()) {
				delete(store.entries, key)
				exists = false
			}

			if exists {
				store.mu.Unlock()
				if entry.fingerprint != fp {
					keyReused().WriteJSON(w)
					return
				}

				<-entry.done

				store.mu.Lock()
				current := store.entries[key]
				store.mu.Unlock()
				if current == entry {
					replay(w, entry)
					return
				}
				// The first attempt failed and was discarded
				next.ServeHTTP(w, r)
				return
			}

			entry = &idempotencyEntry{
				fingerprint: fp,
				inFlight:    true,
				done:        make(chan struct{}),
			}
			store.entries[key] = entry
			store.mu.Unlock()

			irw := &idempotencyResponseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(irw, r)

			store.mu.Lock()
			if irw.status >= http.StatusInternalServerError {
				delete(store.entries, key)
			} else {
				entry.status = irw.status
				entry.headers = irw.Header().Clone()
				entry.body = irw.body.Bytes()
				entry.expiresAt = store.now().Add(store.ttl)
			}
			entry.inFlight = false
			close(entry.done)
			store.mu.Unlock()
		})
	}
}
