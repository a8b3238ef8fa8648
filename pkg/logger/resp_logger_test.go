package logger

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestResponseLogger(t *testing.T) {
	rr := httptest.NewRecorder()
	l := New(rr)

	if l.Status() != http.StatusOK {
		t.Errorf("want default status %d, got %d", http.StatusOK, l.Status())
	}

	l.Header().Set("Content-Type", "application/json")
	l.WriteHeader(http.StatusUnprocessableEntity)
	if _, err := l.Write([]byte(`{"banned":true}`)); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	if l.Status() != http.StatusUnprocessableEntity {
		t.Errorf("want status %d, got %d", http.StatusUnprocessableEntity, l.Status())
	}
	if l.Written() != len(`{"banned":true}`) {
		t.Errorf("want %d bytes written, got %d", len(`{"banned":true}`), l.Written())
	}
	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("want recorder status %d, got %d", http.StatusUnprocessableEntity, rr.Code)
	}
	if got := rr.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("want header to reach the wrapped writer, got %q", got)
	}
}
