package idempotency

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"finitefield.org/kickshop/internal/platform/httpx"
	"finitefield.org/kickshop/internal/platform/requestctx"
)

const (
	// HeaderName carries the client-chosen key.
	HeaderName       = "Idempotency-Key"
	replayHeaderName = "X-Idempotent-Replay"
	maxKeyLength     = 255

	// DefaultMaxBody caps how much of a keyed request is buffered for fingerprinting.
	DefaultMaxBody int64 = 1 << 20
)

// Middleware replays the first response for requests that repeat an
// Idempotency-Key within the same session. Requests without the header pass through.
type Middleware struct {
	store   *MemoryStore
	ttl     time.Duration
	maxBody int64
	now     func() time.Time
}

// Option customises the middleware.
type Option func(*Middleware)

// WithTTL sets how long completed responses are replayed.
func WithTTL(ttl time.Duration) Option {
	return func(m *Middleware) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

// WithMaxBody limits the request body read before next runs. Larger bodies get 413.
func WithMaxBody(n int64) Option {
	return func(m *Middleware) {
		if n > 0 {
			m.maxBody = n
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Middleware) {
		if now != nil {
			m.now = now
		}
	}
}

// NewMiddleware wraps store.
func NewMiddleware(store *MemoryStore, opts ...Option) *Middleware {
	m := &Middleware{store: store, ttl: DefaultTTL, maxBody: DefaultMaxBody, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Store exposes the backing store for cleanup.
func (m *Middleware) Store() *MemoryStore { return m.store }

// Handler guards next.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimSpace(r.Header.Get(HeaderName))
		if key == "" || m.store == nil {
			next.ServeHTTP(w, r)
			return
		}
		ctx := r.Context()
		if len(key) > maxKeyLength {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_idempotency_key", "idempotency key too long", http.StatusBadRequest))
			return
		}
		body, err := readAndReplayBody(w, r, m.maxBody)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httpx.WriteError(ctx, w, httpx.NewError("request_too_large", fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit), http.StatusRequestEntityTooLarge))
			return
		}
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "unable to read request body", http.StatusBadRequest))
			return
		}

		scoped := key + "|" + requestctx.SessionID(ctx)
		fingerprint := requestFingerprint(r, body)
		state, stored, err := m.store.Reserve(ctx, scoped, fingerprint, m.now().UTC(), m.ttl)
		switch {
		case errors.Is(err, ErrFingerprintMismatch):
			httpx.WriteError(ctx, w, httpx.NewError("idempotency_key_conflict", "idempotency key already used for a different request", http.StatusConflict))
			return
		case err != nil:
			requestctx.Logger(ctx).Error("idempotency reserve failed", zap.Error(err))
			httpx.WriteError(ctx, w, httpx.NewError("idempotency_store_error", "unable to process idempotency key", http.StatusInternalServerError))
			return
		}

		switch state {
		case ReservationCompleted:
			writeStored(w, stored)
			return
		case ReservationPending:
			httpx.WriteError(ctx, w, httpx.NewError("idempotency_in_progress", "another request is processing this idempotency key", http.StatusConflict))
			return
		}

		rec := &recorder{header: make(http.Header)}
		next.ServeHTTP(rec, r)
		resp := Response{Status: rec.statusCode(), Headers: rec.header, Body: rec.body.Bytes()}

		// server errors stay retryable
		if resp.Status >= http.StatusInternalServerError {
			m.store.Release(ctx, scoped)
		} else if err := m.store.SaveResponse(ctx, scoped, fingerprint, resp, m.now().UTC(), m.ttl); err != nil {
			requestctx.Logger(ctx).Warn("idempotency save failed", zap.Error(err))
			m.store.Release(ctx, scoped)
		}
		commit(w, resp)
	})
}

func readAndReplayBody(w http.ResponseWriter, r *http.Request, limit int64) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		return nil, err
	}
	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(data))
	return data, nil
}

func requestFingerprint(r *http.Request, body []byte) string {
	return sha256Hex(fmt.Sprintf("%s|%s|%s|%s", strings.ToUpper(r.Method), r.URL.Path, r.URL.RawQuery, sha256Hex(string(body))))
}

func writeStored(w http.ResponseWriter, resp Response) {
	w.Header().Set(replayHeaderName, "true")
	commit(w, resp)
}

func commit(w http.ResponseWriter, resp Response) {
	dst := w.Header()
	for name, values := range resp.Headers {
		dst[name] = append([]string(nil), values...)
	}
	status := resp.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	if len(resp.Body) > 0 {
		_, _ = w.Write(resp.Body)
	}
}

type recorder struct {
	header http.Header
	status int
	body   bytes.Buffer
}

func (r *recorder) Header() http.Header { return r.header }

func (r *recorder) WriteHeader(status int) {
	if r.status == 0 {
		r.status = status
	}
}

func (r *recorder) Write(p []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.body.Write(p)
}

func (r *recorder) statusCode() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}
