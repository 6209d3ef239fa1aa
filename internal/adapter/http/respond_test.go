package http_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	rshttp "github.com/reside-hq/reside/internal/adapter/http"
	"github.com/reside-hq/reside/internal/domain"
	"github.com/reside-hq/reside/internal/reqctx"
)

func writeResult(result *rshttp.Result) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/", http.NoBody)
	rshttp.WriteResult(rec, req, result)
	return rec
}

func TestWriteResultJSONDefaults(t *testing.T) {
	rec := writeResult(&rshttp.Result{
		Type:    rshttp.ResultJSON,
		Content: map[string]string{"hello": "world"},
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected json content type, got %s", ct)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["hello"] != "world" {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestWriteResultNoCacheByDefault(t *testing.T) {
	rec := writeResult(&rshttp.Result{Type: rshttp.ResultJSON})

	if cc := rec.Header().Get("Cache-Control"); !strings.Contains(cc, "no-cache") {
		t.Fatalf("expected no-cache headers, got %q", cc)
	}
	if rec.Header().Get("Expires") != "-1" {
		t.Fatal("expected Expires: -1")
	}
	if rec.Header().Get("Pragma") != "no-cache" {
		t.Fatal("expected Pragma: no-cache")
	}
}

func TestWriteResultCacheableOptOut(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/", http.NoBody)
	req = req.WithContext(reqctx.With(req.Context(), &reqctx.Context{Cacheable: true}))
	rshttp.WriteResult(rec, req, &rshttp.Result{Type: rshttp.ResultJSON})

	if cc := rec.Header().Get("Cache-Control"); cc != "" {
		t.Fatalf("expected no cache headers for cacheable route, got %q", cc)
	}
}

func TestWriteResultXML(t *testing.T) {
	rec := writeResult(&rshttp.Result{
		Type:    rshttp.ResultXML,
		Content: "<Response>OK</Response>",
	})

	if ct := rec.Header().Get("Content-Type"); ct != "text/xml" {
		t.Fatalf("expected text/xml, got %s", ct)
	}
	if rec.Body.String() != "<Response>OK</Response>" {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestWriteResultStreamWithFilename(t *testing.T) {
	rec := writeResult(&rshttp.Result{
		Type:     rshttp.ResultStream,
		Stream:   strings.NewReader("id,name\n1,acme\n"),
		Filename: "tenants.csv",
	})

	cd := rec.Header().Get("Content-Disposition")
	if cd != `attachment; filename="tenants.csv"` {
		t.Fatalf("unexpected content disposition: %s", cd)
	}
	if !strings.Contains(rec.Body.String(), "acme") {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestWriteResultRedirect(t *testing.T) {
	rec := writeResult(&rshttp.Result{
		Type:       rshttp.ResultRedirect,
		RedirectTo: "https://acme.example.com",
	})

	if rec.Code != http.StatusMovedPermanently {
		t.Fatalf("expected 301, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "https://acme.example.com" {
		t.Fatalf("unexpected location: %s", loc)
	}
}

func TestWriteResultRedirectWithoutTargetIs404(t *testing.T) {
	rec := writeResult(&rshttp.Result{Type: rshttp.ResultRedirect})

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Token != domain.TokenRouteNotFound {
		t.Fatalf("expected ROUTE_NOT_FOUND, got %s", body.Token)
	}
}

func TestWriteResultUnknownTypeEncodesWholeResult(t *testing.T) {
	// A mistyped handler result stays visible instead of being dropped: the
	// whole Result is JSON-encoded, matching the original dispatcher.
	rec := writeResult(&rshttp.Result{
		Type:    rshttp.ResultType("confetti"),
		Content: "party",
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected json content type, got %s", ct)
	}
	var body struct {
		Type    string `json:"Type"`
		Content string `json:"Content"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Type != "confetti" || body.Content != "party" {
		t.Fatalf("expected the whole result encoded, got %+v", body)
	}
}

func TestWriteErrDomainErrorSurfaced(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/", http.NoBody)
	rshttp.WriteErr(rec, req, domain.ErrInvalidTenant())

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Token != domain.TokenInvalidTenant {
		t.Fatalf("expected INVALID_TENANT, got %s", body.Token)
	}
}

func TestWriteErrUnknownErrorIsGeneric500(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/", http.NoBody)
	req.Header.Set("Authorization", "Bearer secret")
	rshttp.WriteErr(rec, req, errors.New("kaboom"))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	var body struct {
		Token   string `json:"token"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Token != domain.TokenGenericError {
		t.Fatalf("expected GENERIC_ERROR, got %s", body.Token)
	}
	if strings.Contains(body.Message, "kaboom") {
		t.Fatal("internal error details must not leak to clients")
	}
}

func TestHandlerAdapterRoutesErrors(t *testing.T) {
	h := rshttp.Handler(func(_ *http.Request) (*rshttp.Result, error) {
		return nil, domain.ErrUnauthorized()
	})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/", http.NoBody))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestNotFoundHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	rshttp.NotFound(rec, httptest.NewRequest("GET", "/nope", http.NoBody))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
