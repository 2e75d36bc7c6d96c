// Package idempotency replays the stored response for a repeated Idempotency-Key.
package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"
)

// DefaultTTL is how long completed records are replayable.
const DefaultTTL = 24 * time.Hour

// ReservationState describes the outcome of reserving a key.
type ReservationState int

const (
	// ReservationNew means the caller owns the key and should run the handler.
	ReservationNew ReservationState = iota
	// ReservationCompleted means a stored response should be replayed.
	ReservationCompleted
	// ReservationPending means another request holds the key.
	ReservationPending
)

// Response is the captured handler output.
type Response struct {
	Status  int
	Headers http.Header
	Body    []byte
}

type record struct {
	fingerprint string
	completed   bool
	response    Response
	expiresAt   time.Time
}

// ErrFingerprintMismatch is returned when a key is reused for a different request.
var ErrFingerprintMismatch = errors.New("idempotency: key reserved for different request fingerprint")

// MemoryStore keeps records in process memory, matching the lifetime of session state.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]record
}

// NewMemoryStore constructs an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]record)}
}

// Reserve claims key for fingerprint, or reports the state of an earlier claim.
func (s *MemoryStore) Reserve(_ context.Context, key, fingerprint string, now time.Time, ttl time.Duration) (ReservationState, Response, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	id := sha256Hex(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok || !now.Before(rec.expiresAt) {
		s.records[id] = record{fingerprint: fingerprint, expiresAt: now.Add(ttl)}
		return ReservationNew, Response{}, nil
	}
	if rec.fingerprint != fingerprint {
		return 0, Response{}, ErrFingerprintMismatch
	}
	if rec.completed {
		return ReservationCompleted, rec.response, nil
	}
	return ReservationPending, Response{}, nil
}

// SaveResponse completes the reservation for key.
func (s *MemoryStore) SaveResponse(_ context.Context, key, fingerprint string, resp Response, now time.Time, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	id := sha256Hex(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.records[id]; ok && rec.fingerprint != fingerprint {
		return ErrFingerprintMismatch
	}
	s.records[id] = record{
		fingerprint: fingerprint,
		completed:   true,
		response: Response{
			Status:  resp.Status,
			Headers: sanitizeHeaders(resp.Headers),
			Body:    append([]byte(nil), resp.Body...),
		},
		expiresAt: now.Add(ttl),
	}
	return nil
}

// Release drops the reservation so the client may retry.
func (s *MemoryStore) Release(_ context.Context, key string) {
	s.mu.Lock()
	delete(s.records, sha256Hex(key))
	s.mu.Unlock()
}

// CleanupExpired removes up to limit expired records; limit <= 0 means all.
func (s *MemoryStore) CleanupExpired(_ context.Context, now time.Time, limit int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, rec := range s.records {
		if now.Before(rec.expiresAt) {
			continue
		}
		delete(s.records, id)
		removed++
		if limit > 0 && removed >= limit {
			break
		}
	}
	return removed, nil
}

// Len reports the number of records held.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func sha256Hex(value string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(value)))
	return hex.EncodeToString(sum[:])
}

func sanitizeHeaders(header http.Header) http.Header {
	out := make(http.Header, len(header))
	for name, values := range header {
		switch strings.ToLower(name) {
		case "content-length", "date", "connection", "set-cookie", "transfer-encoding":
			continue
		}
		out[http.CanonicalHeaderKey(name)] = append([]string(nil), values...)
	}
	return out
}
