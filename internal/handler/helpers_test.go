package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/qrbites/api/internal/ws"
)

// doRequest executes an HTTP request against the router and returns the
// recorded response. A non-nil body is JSON-encoded.
func doRequest(t *testing.T, router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reqBody *bytes.Buffer
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reqBody = bytes.NewBuffer(b)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

// doRawRequest is doRequest with a literal body, for endpoints that read the
// body without decoding it first.
func doRawRequest(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode response body: %v", err)
	}
}

func makeNumeric(val string) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(val)
	return n
}

// recordedEvent is one Broadcast call observed by mockHub.
type recordedEvent struct {
	Topic string
	Event ws.Event
}

// mockHub records broadcasts instead of delivering them.
type mockHub struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (m *mockHub) Broadcast(topic string, event ws.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, recordedEvent{Topic: topic, Event: event})
}

func (m *mockHub) recorded() []recordedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]recordedEvent, len(m.events))
	copy(out, m.events)
	return out
}
