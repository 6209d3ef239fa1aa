// Package http provides the HTTP adapter: route handlers, the response
// dispatcher and server-level middleware.
package http

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	rsotel "github.com/reside-hq/reside/internal/adapter/otel"
	"github.com/reside-hq/reside/internal/domain"
	"github.com/reside-hq/reside/internal/logger"
	"github.com/reside-hq/reside/internal/reqctx"
)

// ResultType selects how the dispatcher translates a handler result.
type ResultType string

// The closed set of result types handlers may return.
const (
	ResultJSON     ResultType = "json"
	ResultXML      ResultType = "xml"
	ResultHTML     ResultType = "html"
	ResultStream   ResultType = "stream"
	ResultBlob     ResultType = "blob"
	ResultRedirect ResultType = "redirect"
)

// Result is the uniform outcome of a business handler, translated into an
// HTTP response by WriteResult.
type Result struct {
	Type       ResultType
	StatusCode int
	Content    any
	Headers    map[string]string

	// Stream carries the payload for stream/blob results; Filename, when
	// set on a stream, produces a Content-Disposition attachment header.
	Stream   io.Reader
	Filename string

	// RedirectTo is the target of a redirect result.
	RedirectTo string
}

// Action is a business route handler: it consumes the request and produces a
// Result or an error. Errors carrying a domain token are surfaced verbatim;
// anything else becomes a generic 500.
type Action func(r *http.Request) (*Result, error)

// Handler adapts an Action to http.HandlerFunc via the dispatcher.
func Handler(action Action) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := action(r)
		if err != nil {
			WriteErr(w, r, err)
			return
		}
		WriteResult(w, r, result)
	}
}

// WriteResult translates result into a concrete HTTP response. Responses are
// non-cacheable unless the route opted in through the request context.
func WriteResult(w http.ResponseWriter, r *http.Request, result *Result) {
	if result == nil {
		result = &Result{Type: ResultJSON}
	}

	_, span := rsotel.StartDispatchSpan(r.Context(), string(result.Type))
	defer span.End()

	if !reqctx.From(r.Context()).Cacheable {
		w.Header().Set("Cache-Control", "private, no-cache, no-store, must-revalidate")
		w.Header().Set("Expires", "-1")
		w.Header().Set("Pragma", "no-cache")
	}
	for key, value := range result.Headers {
		w.Header().Set(key, value)
	}

	status := result.StatusCode
	if status == 0 {
		status = http.StatusOK
	}

	switch result.Type {
	case ResultXML:
		w.Header().Set("Content-Type", "text/xml")
		w.WriteHeader(status)
		writeContent(w, result.Content)

	case ResultHTML:
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(status)
		writeContent(w, result.Content)

	case ResultStream:
		if result.Filename != "" {
			w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
		}
		w.WriteHeader(status)
		pipe(w, r, result.Stream)

	case ResultBlob:
		w.WriteHeader(status)
		pipe(w, r, result.Stream)

	case ResultRedirect:
		if result.RedirectTo == "" {
			WriteErr(w, r, domain.NewError(domain.TokenRouteNotFound, http.StatusNotFound, "redirect target missing"))
			return
		}
		http.Redirect(w, r, result.RedirectTo, http.StatusMovedPermanently)

	case ResultJSON:
		writeJSON(w, status, result.Content)

	default:
		// Unrecognized types fall back to encoding the whole result, which
		// keeps a mistyped handler visible instead of silently dropped.
		writeJSON(w, status, result)
	}
}

// WriteErr logs err with redacted request context and emits its
// {token, message} body. Errors without a domain token become GENERIC_ERROR.
func WriteErr(w http.ResponseWriter, r *http.Request, err error) {
	e := domain.AsError(err)
	if e.Status >= http.StatusInternalServerError {
		slog.Error("request failed",
			"error", err,
			"method", r.Method,
			"path", r.URL.Path,
			"headers", redactHeaders(r.Header),
			"request_id", logger.RequestID(r.Context()),
		)
	}
	writeJSON(w, e.Status, map[string]string{"token": e.Token, "message": e.Message})
}

// NotFound is the handler for unmatched routes.
func NotFound(w http.ResponseWriter, r *http.Request) {
	slog.Info("route not found", "method", r.Method, "path", r.URL.Path,
		"request_id", logger.RequestID(r.Context()))
	WriteErr(w, r, domain.ErrRouteNotFound())
}

// pipe copies stream to the response. A copy error is logged and terminates
// the response with the error message rather than hanging the connection.
func pipe(w http.ResponseWriter, r *http.Request, stream io.Reader) {
	if stream == nil {
		return
	}
	if _, err := io.Copy(w, stream); err != nil {
		slog.Warn("error while handling stream", "error", err,
			"request_id", logger.RequestID(r.Context()))
		_, _ = io.WriteString(w, err.Error())
	}
}

func writeContent(w http.ResponseWriter, content any) {
	switch c := content.(type) {
	case []byte:
		_, _ = w.Write(c)
	case string:
		_, _ = io.WriteString(w, c)
	default:
		_, _ = fmt.Fprint(w, c)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		data = struct{}{}
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to write JSON response", "error", err)
	}
}

// redactHeaders copies headers for logging with credentials removed.
func redactHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for key := range h {
		if key == "Authorization" {
			out[key] = "[redacted]"
			continue
		}
		out[key] = h.Get(key)
	}
	return out
}
