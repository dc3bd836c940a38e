package middleware

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/josh-kwaku/acquisim/internal/handler"
	"github.com/josh-kwaku/acquisim/internal/logging"
)

const idempotencyTTL = 24 * time.Hour

type idempotencyEntry struct {
	requestHash  string
	pending      bool
	statusCode   int
	contentType  string
	responseBody []byte
	expiresAt    time.Time
}

// IdempotencyStore keeps replayable responses in memory until they expire.
// A key is reserved before the handler runs, so concurrent requests with the
// same key execute the handler once.
type IdempotencyStore struct {
	mu      sync.Mutex
	entries map[string]idempotencyEntry
	ttl     time.Duration
	now     func() time.Time
}

func NewIdempotencyStore(ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = idempotencyTTL
	}
	return &IdempotencyStore{
		entries: make(map[string]idempotencyEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// reserve claims key for the caller. When the key is already held by a live
// entry, that entry is returned instead and reserved is false.
func (s *IdempotencyStore) reserve(key, requestHash string) (existing idempotencyEntry, reserved bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for k, old := range s.entries {
		if now.After(old.expiresAt) {
			delete(s.entries, k)
		}
	}

	if e, ok := s.entries[key]; ok {
		return e, false
	}
	s.entries[key] = idempotencyEntry{
		requestHash: requestHash,
		pending:     true,
		expiresAt:   now.Add(s.ttl),
	}
	return idempotencyEntry{}, true
}

func (s *IdempotencyStore) complete(key string, e idempotencyEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e.pending = false
	e.expiresAt = s.now().Add(s.ttl)
	s.entries[key] = e
}

func (s *IdempotencyStore) release(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
}

// Idempotency replays the stored response for a repeated Idempotency-Key.
// Requests without the header pass through untouched.
func Idempotency(store *IdempotencyStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("Idempotency-Key")
			if key == "" || r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				handler.RespondAppError(w, handler.ErrInvalidRequest, nil)
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			reqHash := computeHash(r.Method, r.URL.Path, body)

			cached, reserved := store.reserve(key, reqHash)
			if !reserved {
				switch {
				case cached.requestHash != reqHash:
					handler.RespondAppError(w, handler.ErrIdempotencyConflict, nil)
				case cached.pending:
					handler.RespondAppError(w, handler.ErrIdempotencyInProgress, nil)
				default:
					w.Header().Set("Content-Type", cached.contentType)
					w.Header().Set("X-Idempotent-Replayed", "true")
					w.WriteHeader(cached.statusCode)
					if _, err := w.Write(cached.responseBody); err != nil {
						logging.FromContext(r.Context()).Error("failed to write idempotent replay", "error", err, "idempotency_key", key)
					}
				}
				return
			}

			completed := false
			defer func() {
				if !completed {
					store.release(key)
				}
			}()

			rec := &responseRecorder{ResponseWriter: w, body: &bytes.Buffer{}, statusCode: http.StatusOK}
			next.ServeHTTP(rec, r)

			// Server faults are not final; the merchant may retry with the same key.
			if rec.statusCode >= http.StatusInternalServerError {
				return
			}
			store.complete(key, idempotencyEntry{
				requestHash:  reqHash,
				statusCode:   rec.statusCode,
				contentType:  w.Header().Get("Content-Type"),
				responseBody: rec.body.Bytes(),
			})
			completed = true
		})
	}
}

func computeHash(method, path string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(method))
	h.Write([]byte(path))
	h.Write(body)
	return fmt.Sprintf("%x", h.Sum(nil))
}

type responseRecorder struct {
	http.ResponseWriter
	statusCode int
	body       *bytes.Buffer
}

func (r *responseRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}
