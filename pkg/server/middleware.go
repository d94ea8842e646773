package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"
	"time"

	"github.com/pforte-dev/pforte/pkg/auth"
)

// guard applies the two access-control gates, path-level
// authentication first and per-directory authorization second, and
// translates their decisions into responses. Only a request both gates
// grant reaches the wrapped handler.
func (s *Server) guard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res := s.gate.Authenticate(r)
		if !s.respond(w, r, res) {
			return
		}
		ctx := r.Context()
		if res.Identity != "" {
			ctx = auth.SetIdentity(ctx, res.Identity)
		}

		ares := s.engine.Authorize(s.files.Dir(r.URL.Path), r)
		if !s.respond(w, r, ares) {
			return
		}
		if ares.Identity != "" {
			ctx = auth.SetIdentity(ctx, ares.Identity)
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// respond writes the response for a non-granted gate decision and
// reports whether the request may continue.
func (s *Server) respond(w http.ResponseWriter, r *http.Request, res auth.Result) bool {
	switch res.Decision {
	case auth.Granted:
		return true
	case auth.Challenge:
		auth.WriteChallenge(w, s.cfg.Auth.Realm)
	case auth.Denied:
		http.Error(w, "access denied", http.StatusForbidden)
	default:
		// Fault, and anything unexpected, is deliberately opaque.
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
	return false
}

// requestIDKey is a private type for the request ID context key.
type requestIDKey struct{}

// RequestIDFromContext retrieves the request ID, or empty string.
func RequestIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey{}).(string); ok {
		return v
	}
	return ""
}

// RequestID assigns a unique ID to each request. An incoming
// X-Request-ID header is honored; otherwise a fresh ID is generated.
// The ID lands in the context and on the response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = generateRequestID()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

// generateRequestID creates a new unique request ID as a hex string.
func generateRequestID() string {
	b := make([]byte, 16)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// Logging emits one structured log entry per completed request.
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lw := &loggingWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(lw, r)

		attrs := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", lw.status,
			"duration", time.Since(start),
			"request_id", RequestIDFromContext(r.Context()),
			"remote_addr", r.RemoteAddr,
		}
		if lw.status >= 500 {
			slog.Error("request failed", attrs...)
		} else {
			slog.Info("request completed", attrs...)
		}
	})
}

// loggingWriter captures the response status for the request log.
type loggingWriter struct {
	http.ResponseWriter
	status  int
	written bool
}

func (w *loggingWriter) WriteHeader(status int) {
	if !w.written {
		w.status = status
		w.written = true
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *loggingWriter) Write(b []byte) (int, error) {
	if !w.written {
		w.written = true
	}
	return w.ResponseWriter.Write(b)
}

func (w *loggingWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// Recovery catches panics in the handler chain and converts them to
// opaque server errors. The server keeps accepting requests.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				slog.Error("handler panicked", "path", r.URL.Path, "panic", rec)
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
