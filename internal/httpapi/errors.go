package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"

	"lfs-gateway/internal/logging"
)

// errorBody is the normalized JSON shape of every client-facing error.
type errorBody struct {
	Message string `json:"message"`
}

// httpError writes a plain-text error response. The normalization
// middleware turns it into the {"message": ...} JSON shape with the
// table-driven status/text remapping; handlers never emit that shape
// themselves.
func httpError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	w.Write([]byte(message))
}

// errorCapture buffers a response only when its status is an error so
// the middleware can rewrite it. Successful responses (and statuses the
// table passes through, like the 409 lock-conflict body) stream to the
// client untouched.
type errorCapture struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
	buffering   bool
	buf         bytes.Buffer
}

func (c *errorCapture) WriteHeader(status int) {
	if c.wroteHeader {
		return
	}
	c.wroteHeader = true
	c.status = status
	if _, rewrite := normalize(status, ""); rewrite {
		c.buffering = true
		return
	}
	c.ResponseWriter.WriteHeader(status)
}

func (c *errorCapture) Write(p []byte) (int, error) {
	if !c.wroteHeader {
		c.WriteHeader(http.StatusOK)
	}
	if c.buffering {
		return c.buf.Write(p)
	}
	return c.ResponseWriter.Write(p)
}

// normalize maps an inbound status to its client-facing (status,
// message) per the error-shape table. rewrite=false means the response
// passes through unchanged.
func normalize(status int, inner string) (out errorBody, rewrite bool) {
	switch status {
	case http.StatusUnauthorized:
		return errorBody{"Unauthorized"}, true
	case http.StatusForbidden:
		return errorBody{"Missing write authorization"}, true
	case http.StatusNotFound:
		return errorBody{"Not found"}, true
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		if inner != "" {
			return errorBody{inner}, true
		}
		return errorBody{"Invalid payload"}, true
	case http.StatusNotAcceptable:
		return errorBody{"Bad Accept header, should be application/vnd.git-lfs+json"}, true
	case http.StatusRequestEntityTooLarge:
		return errorBody{"Payload too large, try to send less files at the time"}, true
	case http.StatusTooManyRequests:
		return errorBody{"Too many requests, try again later"}, true
	case http.StatusNotImplemented:
		if inner != "" {
			return errorBody{inner}, true
		}
		return errorBody{"Not implemented"}, true
	case http.StatusInsufficientStorage:
		return errorBody{"Insufficient storage"}, true
	case http.StatusMethodNotAllowed:
		return errorBody{"Method not allowed, try GET or POST"}, true
	}
	if status >= 500 {
		return errorBody{"Internal server error"}, true
	}
	return errorBody{}, false
}

// normalizedStatus is the outbound status for a rewritten response:
// 400 collapses into 422 and any unlisted 5xx into 500; everything else
// keeps its inbound status.
func normalizedStatus(status int) int {
	switch {
	case status == http.StatusBadRequest:
		return http.StatusUnprocessableEntity
	case status >= 500 &&
		status != http.StatusNotImplemented &&
		status != http.StatusInsufficientStorage:
		return http.StatusInternalServerError
	default:
		return status
	}
}

// ErrorShape is the normalization middleware: every error response a
// handler produced as plain text is logged with its full inner message
// (warn for client errors, error for server errors) and rewritten to
// the fixed {"message": ...} JSON shape. Server-error detail never
// reaches the client.
func ErrorShape(log *logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			capture := &errorCapture{ResponseWriter: w}
			next.ServeHTTP(capture, r)

			if !capture.buffering {
				return
			}

			inner := strings.TrimSpace(capture.buf.String())
			if capture.status >= 500 {
				log.Error("%s %s -> %d: %s", r.Method, r.URL.Path, capture.status, inner)
			} else {
				log.Warn("%s %s -> %d: %s", r.Method, r.URL.Path, capture.status, inner)
			}

			// Internal detail is logged above, never echoed back; a 501's
			// inner message is a deliberate client-visible text and survives.
			if capture.status >= 500 && capture.status != http.StatusNotImplemented {
				inner = ""
			}
			body, _ := normalize(capture.status, inner)

			w.Header().Set("Content-Type", "application/vnd.git-lfs+json")
			w.WriteHeader(normalizedStatus(capture.status))
			json.NewEncoder(w).Encode(body)
		})
	}
}
