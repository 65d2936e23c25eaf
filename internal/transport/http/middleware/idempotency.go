package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5"

	"tbscrm/internal/platform/db"
	"tbscrm/internal/transport/http/api"
)

const IdempotencyHeader = "Idempotency-Key"

var (
	ErrIdempotencyConflict = errors.New("idempotency key conflicts with existing request")
	ErrIdempotencyInFlight = errors.New("idempotency key is held by a running request")
)

// Replay is a stored response returned again for a repeated request.
type Replay struct {
	Status      int
	ContentType string
	Body        []byte
}

// IdempotencyStore reserves a key before the handler runs. Reserve returns
// found=true with the stored response when the key already completed.
type IdempotencyStore interface {
	Reserve(ctx context.Context, userID, endpoint, key, requestHash string) (Replay, bool, error)
	Complete(ctx context.Context, userID, endpoint, key string, replay Replay) error
	Release(ctx context.Context, userID, endpoint, key string) error
}

// PGIdempotencyStore keeps replays for 24 hours. A reservation whose request
// never completed is given up after a minute.
type PGIdempotencyStore struct {
	DB db.Querier
}

func NewIdempotencyStore(q db.Querier) *PGIdempotencyStore {
	return &PGIdempotencyStore{DB: q}
}

func RequestHash(method, path string, payload []byte) string {
	sum := sha256.New()
	sum.Write([]byte(method + " " + path + "\n"))
	sum.Write(payload)
	return hex.EncodeToString(sum.Sum(nil))
}

func (s *PGIdempotencyStore) Reserve(ctx context.Context, userID, endpoint, key, requestHash string) (Replay, bool, error) {
	tag, err := s.DB.Exec(ctx, `
    INSERT INTO idempotency_keys (user_id, key, endpoint, request_hash)
    VALUES ($1, $2, $3, $4)
    ON CONFLICT (user_id, key, endpoint)
    DO UPDATE SET request_hash = EXCLUDED.request_hash,
                  status = 0,
                  content_type = '',
                  response_body = ''::bytea,
                  created_at = now()
    WHERE idempotency_keys.created_at <= now() - interval '24 hours'
       OR (idempotency_keys.status = 0 AND idempotency_keys.created_at <= now() - interval '1 minute')
  `, userID, key, endpoint, requestHash)
	if err != nil {
		return Replay{}, false, err
	}
	if tag.RowsAffected() == 1 {
		return Replay{}, false, nil
	}

	var storedHash string
	var replay Replay
	err = s.DB.QueryRow(ctx, `
    SELECT request_hash, status, content_type, response_body
    FROM idempotency_keys
    WHERE user_id = $1 AND key = $2 AND endpoint = $3
  `, userID, key, endpoint).Scan(&storedHash, &replay.Status, &replay.ContentType, &replay.Body)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		// released between the insert and this read
		return Replay{}, false, ErrIdempotencyInFlight
	case err != nil:
		return Replay{}, false, err
	case storedHash != requestHash:
		return Replay{}, false, ErrIdempotencyConflict
	case replay.Status == 0:
		return Replay{}, false, ErrIdempotencyInFlight
	}
	return replay, true, nil
}

func (s *PGIdempotencyStore) Complete(ctx context.Context, userID, endpoint, key string, replay Replay) error {
	_, err := s.DB.Exec(ctx, `
    UPDATE idempotency_keys
    SET status = $4, content_type = $5, response_body = $6
    WHERE user_id = $1 AND key = $2 AND endpoint = $3
  `, userID, key, endpoint, replay.Status, replay.ContentType, replay.Body)
	return err
}

func (s *PGIdempotencyStore) Release(ctx context.Context, userID, endpoint, key string) error {
	_, err := s.DB.Exec(ctx, `
    DELETE FROM idempotency_keys
    WHERE user_id = $1 AND key = $2 AND endpoint = $3 AND status = 0
  `, userID, key, endpoint)
	return err
}

type captureWriter struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (c *captureWriter) WriteHeader(code int) {
	c.status = code
	c.ResponseWriter.WriteHeader(code)
}

func (c *captureWriter) Write(b []byte) (int, error) {
	c.body.Write(b)
	return c.ResponseWriter.Write(b)
}

// Idempotent replays the first successful response of a signed-in user's
// JSON POST when the same Idempotency-Key is sent again with the same body.
// The key is reserved before the handler runs, so a concurrent repeat answers
// 409 instead of running twice. Reusing a key with a different body also
// answers 409. A failed request releases its key.
func Idempotent(store IdempotencyStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
			user, signedIn := GetUser(r.Context())
			if store == nil || key == "" || !signedIn || r.Method != http.MethodPost ||
				!strings.Contains(strings.ToLower(r.Header.Get("Content-Type")), "application/json") {
				next.ServeHTTP(w, r)
				return
			}
			reqID := GetRequestID(r.Context())
			if len(key) > 128 {
				api.Fail(w, http.StatusBadRequest, "invalid_idempotency_key", "idempotency key is too long", reqID)
				return
			}

			payload, err := io.ReadAll(r.Body)
			if err != nil {
				api.Fail(w, http.StatusRequestEntityTooLarge, "payload_too_large", "request body too large", reqID)
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(payload))
			endpoint := r.Method + " " + r.URL.Path
			hash := RequestHash(r.Method, r.URL.Path, payload)

			replay, found, err := store.Reserve(r.Context(), user.UserID, endpoint, key, hash)
			switch {
			case errors.Is(err, ErrIdempotencyConflict):
				api.Fail(w, http.StatusConflict, "idempotency_conflict", "idempotency key was used with a different request", reqID)
				return
			case errors.Is(err, ErrIdempotencyInFlight):
				w.Header().Set("Retry-After", "1")
				api.Fail(w, http.StatusConflict, "idempotency_in_progress", "a request with this idempotency key is still running", reqID)
				return
			case err != nil:
				slog.Warn("idempotency reserve failed", "userId", user.UserID, "err", err)
				api.Fail(w, http.StatusServiceUnavailable, "store_unavailable", "idempotency check failed", reqID)
				return
			case found:
				if replay.ContentType != "" {
					w.Header().Set("Content-Type", replay.ContentType)
				}
				w.Header().Set("Idempotent-Replayed", "true")
				w.WriteHeader(replay.Status)
				_, _ = w.Write(replay.Body)
				return
			}

			capture := &captureWriter{ResponseWriter: w, status: http.StatusOK}
			completed := false
			defer func() {
				if completed {
					return
				}
				if err := store.Release(context.WithoutCancel(r.Context()), user.UserID, endpoint, key); err != nil {
					slog.Warn("idempotency release failed", "userId", user.UserID, "endpoint", endpoint, "err", err)
				}
			}()
			next.ServeHTTP(capture, r)
			if capture.status < 200 || capture.status >= 300 {
				return
			}
			completed = true
			saved := Replay{Status: capture.status, ContentType: capture.Header().Get("Content-Type"), Body: capture.body.Bytes()}
			if err := store.Complete(context.WithoutCancel(r.Context()), user.UserID, endpoint, key, saved); err != nil {
				slog.Warn("idempotency save failed", "userId", user.UserID, "endpoint", endpoint, "err", err)
			}
		})
	}
}
