package logger

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	headerRequestID = "X-Request-ID"

	fieldRequestID = "request_id"
	fieldMethod    = "method"
	fieldPath      = "path"
	fieldStatus    = "status"
	fieldLatency   = "latency_ms"
	fieldClientIP  = "client_ip"
)

// HTTPMiddleware attaches a child logger carrying request metadata to the
// request context and logs every completed request.
func HTTPMiddleware(l zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			reqID := middleware.GetReqID(r.Context())
			if reqID == "" {
				reqID = r.Header.Get(headerRequestID)
			}
			if reqID == "" {
				reqID = uuid.NewString()
			}

			child := l.With().
				Str(fieldRequestID, reqID).
				Str(fieldMethod, r.Method).
				Str(fieldPath, r.URL.Path).
				Str(fieldClientIP, clientIP(r)).
				Logger()

			w.Header().Set(headerRequestID, reqID)
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r.WithContext(WithLogger(r.Context(), child)))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			child.Info().
				Int(fieldStatus, status).
				Float64(fieldLatency, float64(time.Since(start).Milliseconds())).
				Msg("request completed")
		})
	}
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if ip := strings.TrimSpace(strings.SplitN(xff, ",", 2)[0]); ip != "" {
			return ip
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
