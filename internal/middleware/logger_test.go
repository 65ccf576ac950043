package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogger_RecordsRequest(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	logger := zap.New(core)

	var seen string
	h := chimiddleware.RequestID(Logger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = chimiddleware.GetReqID(r.Context())
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	})))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/pot", nil))

	if seen == "" {
		t.Fatalf("request id not in context")
	}

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("log entries = %d, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["status"] != int64(http.StatusTeapot) {
		t.Fatalf("status field = %v", fields["status"])
	}
	if fields["size"] != int64(len("short and stout")) {
		t.Fatalf("size field = %v", fields["size"])
	}
	if fields["request_id"] != seen {
		t.Fatalf("request_id field = %v, want %s", fields["request_id"], seen)
	}
}

func TestLogger_KeepsIncomingRequestID(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)

	h := chimiddleware.RequestID(Logger(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set(chimiddleware.RequestIDHeader, "abc")
	h.ServeHTTP(httptest.NewRecorder(), r)

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("log entries = %d, want 1", len(entries))
	}
	if got := entries[0].ContextMap()["request_id"]; got != "abc" {
		t.Fatalf("request_id field = %v, want abc", got)
	}
}
