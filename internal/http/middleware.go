package httpapi

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"time"

	"cleantech-console/internal/backend"
	"cleantech-console/internal/listing"
	"cleantech-console/internal/service"
	"cleantech-console/internal/session"
	"cleantech-console/internal/validation"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

const (
	SessionHeader = "X-Session-ID"
	SessionCookie = "console_session"
)

var (
	apiRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "console",
		Subsystem: "api",
		Name:      "requests_total",
		Help:      "Total number of console API requests broken down by endpoint and result.",
	}, []string{"endpoint", "result"})

	apiLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "console",
		Subsystem: "api",
		Name:      "latency_seconds",
		Help:      "Latency distribution for console API requests.",
		Buckets: []float64{
			0.001, 0.002, 0.005,
			0.01, 0.02, 0.05,
			0.1, 0.2, 0.5,
			1, 2, 5, 10,
		},
	}, []string{"endpoint", "result"})
)

type statusRecordingResponseWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusRecordingResponseWriter) WriteHeader(status int) {
	w.status = status
	w.wroteHeader = true
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusRecordingResponseWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

func (w *statusRecordingResponseWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *statusRecordingResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, http.ErrNotSupported
	}
	return h.Hijack()
}

func instrument(endpoint string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecordingResponseWriter{ResponseWriter: w, status: http.StatusOK}

		next(rec, r)

		result := "2xx"
		switch {
		case rec.status >= 500:
			result = "5xx"
		case rec.status >= 400:
			result = "4xx"
		}

		apiRequests.WithLabelValues(endpoint, result).Inc()
		apiLatency.WithLabelValues(endpoint, result).Observe(time.Since(start).Seconds())
	}
}

// sessionID reads the session from the header, then from the cookie.
func sessionID(r *http.Request) string {
	if id := r.Header.Get(SessionHeader); id != "" {
		return id
	}
	if c, err := r.Cookie(SessionCookie); err == nil {
		return c.Value
	}
	return ""
}

// withSession resolves the caller's session and puts it in the request
// context. Requests without a live session get 401.
func (h *ConsoleHandler) withSession(next func(http.ResponseWriter, *http.Request, session.Session)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := h.sessions.Get(r.Context(), sessionID(r))
		if err != nil {
			if !errors.Is(err, session.ErrNoSession) {
				h.logger.Error("session lookup failed", zap.Error(err))
			}
			writeJSON(w, http.StatusUnauthorized, Result[any]{Code: ResultTokenExpired, Type: "error", Message: "session expired"})
			return
		}
		next(w, r.WithContext(session.WithSession(r.Context(), sess)), sess)
	}
}

// errorStatus maps an error to the HTTP status and result code of the reply.
func errorStatus(err error) (int, int) {
	switch {
	case errors.Is(err, session.ErrNoSession), backend.IsUnauthorized(err):
		return http.StatusUnauthorized, ResultTokenExpired
	case validation.IsValidation(err),
		errors.Is(err, listing.ErrPageOutOfRange),
		errors.Is(err, listing.ErrInvalidPageSize),
		errors.Is(err, service.ErrNothingSelected):
		return http.StatusBadRequest, ResultError
	case errors.Is(err, service.ErrConfirmationRequired):
		return http.StatusConflict, ResultError
	case errors.Is(err, service.ErrUnknownScreen):
		return http.StatusNotFound, ResultError
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden, ResultError
	case backend.IsLogical(err):
		return http.StatusOK, ResultError
	case backend.IsTransport(err):
		return http.StatusBadGateway, ResultError
	default:
		return http.StatusInternalServerError, ResultError
	}
}

// writeResult replies with result, or with the mapped failure when err is set.
// The payload travels with the failure so the browser can render the state
// the screen fell back to.
func (h *ConsoleHandler) writeResult(w http.ResponseWriter, r *http.Request, result any, err error) {
	if err == nil {
		writeJSON(w, http.StatusOK, Ok(result))
		return
	}
	status, code := errorStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("console request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	writeJSON(w, status, FailWith(code, err.Error(), result))
}
