package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/reside-hq/reside/internal/logger"
	"github.com/reside-hq/reside/internal/middleware"
)

func TestRequestIDFromHeader(t *testing.T) {
	var got string
	handler := middleware.RequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got = logger.RequestID(r.Context())
	}))

	req := httptest.NewRequest("GET", "/", http.NoBody)
	req.Header.Set("X-Request-ID", "req-abc")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got != "req-abc" {
		t.Fatalf("expected req-abc, got %s", got)
	}
	if rec.Header().Get("X-Request-ID") != "req-abc" {
		t.Fatal("expected id echoed on response")
	}
}

func TestRequestIDGenerated(t *testing.T) {
	var got string
	handler := middleware.RequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got = logger.RequestID(r.Context())
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", http.NoBody))

	if _, err := uuid.Parse(got); err != nil {
		t.Fatalf("expected generated uuid, got %q: %v", got, err)
	}
}
