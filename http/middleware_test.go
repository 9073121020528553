package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestTimeoutMiddlewareSlowHandler(t *testing.T) {
	released := make(chan struct{})
	slow := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(80 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("late"))
		close(released)
	})
	handler := TimeoutMiddleware(20 * time.Millisecond)(slow)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/predict", nil))

	if w.Code != http.StatusGatewayTimeout {
		t.Fatalf("expected 504, got %d", w.Code)
	}
	<-released
	if strings.Contains(w.Body.String(), "late") {
		t.Errorf("handler output leaked after timeout: %q", w.Body.String())
	}
}

func TestTimeoutMiddlewareFastHandler(t *testing.T) {
	fast := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	handler := TimeoutMiddleware(time.Second)(fast)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w.Body.String() != "ok" {
		t.Errorf("body = %q", w.Body.String())
	}
}

func TestTimeoutMiddlewareNo504AfterFirstWrite(t *testing.T) {
	released := make(chan struct{})
	partial := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("partial"))
		time.Sleep(80 * time.Millisecond)
		close(released)
	})
	handler := TimeoutMiddleware(20 * time.Millisecond)(partial)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	<-released

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "timeout") {
		t.Errorf("504 appended to a started response: %q", w.Body.String())
	}
}
