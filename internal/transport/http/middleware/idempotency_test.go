package middleware

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"tbscrm/internal/domain/auth"
)

type replayRow struct {
	hash   string
	done   bool
	replay Replay
}

type memoryReplays struct {
	mu   sync.Mutex
	rows map[string]replayRow
	fail bool
}

func newMemoryReplays() *memoryReplays {
	return &memoryReplays{rows: map[string]replayRow{}}
}

func (m *memoryReplays) Reserve(_ context.Context, userID, endpoint, key, hash string) (Replay, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return Replay{}, false, errors.New("db down")
	}
	id := userID + "|" + endpoint + "|" + key
	row, ok := m.rows[id]
	switch {
	case !ok:
		m.rows[id] = replayRow{hash: hash}
		return Replay{}, false, nil
	case row.hash != hash:
		return Replay{}, false, ErrIdempotencyConflict
	case !row.done:
		return Replay{}, false, ErrIdempotencyInFlight
	}
	return row.replay, true, nil
}

func (m *memoryReplays) Complete(_ context.Context, userID, endpoint, key string, replay Replay) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := userID + "|" + endpoint + "|" + key
	row := m.rows[id]
	row.done, row.replay = true, replay
	m.rows[id] = row
	return nil
}

func (m *memoryReplays) Release(_ context.Context, userID, endpoint, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := userID + "|" + endpoint + "|" + key
	if !m.rows[id].done {
		delete(m.rows, id)
	}
	return nil
}

func idempotentHandler(store IdempotencyStore, calls *int) http.Handler {
	return Idempotent(store)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		*calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"` + strconv.Itoa(*calls) + `"}`))
	}))
}

func postTask(h http.Handler, key, body string, signedIn bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/tasks", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set(IdempotencyHeader, key)
	}
	if signedIn {
		req = req.WithContext(WithUser(req.Context(), auth.UserContext{UserID: "u-1", RoleName: auth.RoleManager}))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestIdempotentReplaysFirstResponse(t *testing.T) {
	calls := 0
	h := idempotentHandler(newMemoryReplays(), &calls)

	first := postTask(h, "k-1", `{"title":"A"}`, true)
	second := postTask(h, "k-1", `{"title":"A"}`, true)
	if calls != 1 {
		t.Fatalf("expected handler to run once, ran %d times", calls)
	}
	if second.Code != http.StatusCreated || second.Body.String() != first.Body.String() {
		t.Fatalf("expected identical replay, got %d %s", second.Code, second.Body.String())
	}
	if second.Header().Get("Idempotent-Replayed") != "true" {
		t.Fatal("expected replay marker header")
	}

	conflict := postTask(h, "k-1", `{"title":"B"}`, true)
	if conflict.Code != http.StatusConflict {
		t.Fatalf("expected 409 for reused key, got %d", conflict.Code)
	}
}

func TestIdempotentPassThrough(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		signedIn bool
	}{
		{name: "no key", key: "", signedIn: true},
		{name: "anonymous", key: "k-2", signedIn: false},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			calls := 0
			h := idempotentHandler(newMemoryReplays(), &calls)
			postTask(h, tc.key, `{"title":"A"}`, tc.signedIn)
			postTask(h, tc.key, `{"title":"A"}`, tc.signedIn)
			if calls != 2 {
				t.Fatalf("expected both requests to reach the handler, got %d", calls)
			}
		})
	}
}

func TestIdempotentStoreFailure(t *testing.T) {
	store := newMemoryReplays()
	store.fail = true
	calls := 0
	rec := postTask(idempotentHandler(store, &calls), "k-3", `{}`, true)
	if rec.Code != http.StatusServiceUnavailable || calls != 0 {
		t.Fatalf("expected 503 without running handler, got %d (calls=%d)", rec.Code, calls)
	}
}

func TestIdempotentConcurrentRepeatWaitsForFirst(t *testing.T) {
	store := newMemoryReplays()
	entered := make(chan struct{})
	release := make(chan struct{})
	var calls int
	var mu sync.Mutex
	h := Idempotent(store)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		mu.Lock()
		calls++
		mu.Unlock()
		close(entered)
		<-release
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"1"}`))
	}))

	done := make(chan *httptest.ResponseRecorder)
	go func() { done <- postTask(h, "k-4", `{"title":"A"}`, true) }()
	<-entered

	concurrent := postTask(h, "k-4", `{"title":"A"}`, true)
	if concurrent.Code != http.StatusConflict || !bytes.Contains(concurrent.Body.Bytes(), []byte("idempotency_in_progress")) {
		t.Fatalf("expected 409 in progress while first runs, got %d %s", concurrent.Code, concurrent.Body.String())
	}

	close(release)
	if first := <-done; first.Code != http.StatusCreated {
		t.Fatalf("first request: expected 201, got %d", first.Code)
	}
	replayed := postTask(h, "k-4", `{"title":"A"}`, true)
	if replayed.Code != http.StatusCreated || replayed.Header().Get("Idempotent-Replayed") != "true" {
		t.Fatalf("expected stored replay after completion, got %d", replayed.Code)
	}
	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Fatalf("handler must run once, ran %d times", calls)
	}
}

func TestIdempotentFailedRequestReleasesKey(t *testing.T) {
	store := newMemoryReplays()
	calls := 0
	h := Idempotent(store)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusUnprocessableEntity)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))

	if rec := postTask(h, "k-5", `{}`, true); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected first failure, got %d", rec.Code)
	}
	if rec := postTask(h, "k-5", `{}`, true); rec.Code != http.StatusCreated || calls != 2 {
		t.Fatalf("expected retry to run the handler again, got %d (calls=%d)", rec.Code, calls)
	}
}

func TestRequestHashCoversPath(t *testing.T) {
	if RequestHash(http.MethodPost, "/api/v1/tasks", []byte("{}")) == RequestHash(http.MethodPost, "/api/v1/employees", []byte("{}")) {
		t.Fatal("hash must differ per path")
	}
}
