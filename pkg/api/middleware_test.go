package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/segmentio/kafka-go"
)

func Test_requestIDMiddlewareHeaderExists(t *testing.T) {
	api := &API{}
	wantID := "test-req-id-123"
	handler := api.requestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if gotID := GetRequestID(r.Context()); gotID != wantID {
			t.Errorf("want request id in context %q, got %q", wantID, gotID)
		}
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, "ok")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-Id", wantID)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("want status code %v, got %v", http.StatusOK, rr.Code)
	}
	if got := rr.Header().Get("X-Request-Id"); got != wantID {
		t.Errorf("want X-Request-Id header %q, got %q", wantID, got)
	}
}

func Test_requestIDMiddlewareHeaderNotExists(t *testing.T) {
	api := &API{}
	handler := api.requestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetRequestID(r.Context()) == "" {
			t.Error("want non-empty request id in context when header is missing")
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	respID := rr.Header().Get("X-Request-Id")
	if _, err := uuid.FromString(respID); err != nil {
		t.Errorf("want valid UUID for generated request id, got %q", respID)
	}
}

func Test_headerMiddleware(t *testing.T) {
	api := &API{}
	handler := api.headerMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if got := rr.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("want Content-Type application/json, got %q", got)
	}
}

type chanWriter chan kafka.Message

func (c chanWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	for _, m := range msgs {
		c <- m
	}
	return nil
}

func Test_loggingMiddleware(t *testing.T) {
	api := &API{ServiceName: "wordguard"}
	kw := make(chanWriter, 1)
	handler := api.loggingMiddleware(kw)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		io.WriteString(w, "banned")
	}))

	req := httptest.NewRequest(http.MethodPost, "/check", nil)
	req.Header.Set("X-Forwarded-For", "10.0.0.1")
	req = req.WithContext(context.WithValue(req.Context(), RequestIDKey, testRequestID))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	var msg kafka.Message
	select {
	case msg = <-kw:
	case <-time.After(2 * time.Second):
		t.Fatal("log entry was not sent")
	}

	var entry LogEntry
	if err := json.Unmarshal(msg.Value, &entry); err != nil {
		t.Fatalf("failed to unmarshal log entry: %v", err)
	}
	if entry.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("want status code %v, got %v", http.StatusUnprocessableEntity, entry.StatusCode)
	}
	if entry.RequestID != testRequestID || string(msg.Key) != testRequestID {
		t.Errorf("want request id %q, got %q (key %q)", testRequestID, entry.RequestID, msg.Key)
	}
	if entry.IP != "10.0.0.1" || entry.Path != "/check" || entry.Service != "wordguard" {
		t.Errorf("unexpected log entry %+v", entry)
	}
	if entry.Bytes != len("banned") {
		t.Errorf("want %d bytes, got %d", len("banned"), entry.Bytes)
	}
}
