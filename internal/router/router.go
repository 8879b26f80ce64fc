package router

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-redacao-go/internal/essay"
	"github.com/ovaphlow/pitchfork/service-redacao-go/internal/identity"
	"github.com/ovaphlow/pitchfork/service-redacao-go/internal/user"
)

// loggingResponseWriter wraps http.ResponseWriter to capture status and size.
type loggingResponseWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.status = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Write(b []byte) (int, error) {
	if lrw.status == 0 {
		lrw.status = http.StatusOK
	}
	n, err := lrw.ResponseWriter.Write(b)
	lrw.size += n
	return n, err
}

// LoggingMiddleware returns a middleware that logs requests at debug level using the provided sugared logger.
func LoggingMiddleware(logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			lrw := &loggingResponseWriter{ResponseWriter: w}
			next.ServeHTTP(lrw, r)
			dur := time.Since(start)
			status := lrw.status
			if status == 0 {
				status = http.StatusOK
			}
			logger.Debugw("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"remote", r.RemoteAddr,
				"status", status,
				"duration_ms", float64(dur.Microseconds())/1000.0,
				"size", lrw.size,
			)
		})
	}
}

// SecurityHeadersMiddleware returns a middleware that sets common HTTP security headers.
func SecurityHeadersMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Prevent MIME sniffing
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "no-referrer-when-downgrade")
			w.Header().Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
			if w.Header().Get("Content-Security-Policy") == "" {
				w.Header().Set("Content-Security-Policy", "default-src 'self'; object-src 'none'; base-uri 'self';")
			}
			// HSTS only over TLS.
			if r.TLS != nil {
				w.Header().Set("Strict-Transport-Security", "max-age=2592000; includeSubDomains")
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CORSMiddleware reflects the request origin (or "*") and answers preflight
// requests with 204.
func CORSMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				origin = "*"
			}
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Add("Vary", "Origin")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Handlers groups the HTTP handlers to mount. Nil groups are skipped.
type Handlers struct {
	Users  *user.Handler
	Essays *essay.Handler
	Auth   *identity.Handler
}

// RegisterRoutes mounts HTTP handlers using the standard library's http.ServeMux.
func RegisterRoutes(logger *zap.SugaredLogger, h Handlers) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	if h.Users != nil {
		mux.HandleFunc("POST /user/new", h.Users.Create)
		mux.HandleFunc("GET /users", h.Users.List)
	}

	if h.Essays != nil {
		mux.HandleFunc("POST /redacao/new", h.Essays.Create)
		mux.HandleFunc("GET /redacao/{id}", h.Essays.Get)
		mux.HandleFunc("PUT /redacao/{id}", h.Essays.Update)
		mux.HandleFunc("GET /redacoes", h.Essays.List)
		mux.HandleFunc("GET /redacao/{id}/comentarios", h.Essays.ListComments)
		mux.HandleFunc("POST /redacao/{id}/comentarios", h.Essays.AddComment)
		mux.HandleFunc("DELETE /redacao/{id}/comentarios/{blockId}/{groupId}/{commentId}", h.Essays.RemoveComment)
		mux.HandleFunc("DELETE /redacao/{id}/comentarios/{blockId}/{groupId}", h.Essays.ClearComments)
	}

	if h.Auth != nil {
		mux.HandleFunc("POST /auth/register", h.Auth.Register)
		mux.HandleFunc("POST /auth/login", h.Auth.Login)
		mux.HandleFunc("POST /auth/google", h.Auth.Google)
		mux.HandleFunc("GET /auth/session", h.Auth.Session)
		mux.HandleFunc("DELETE /auth/session", h.Auth.Logout)
	}

	// CORS outermost so preflights never reach the mux
	handler := LoggingMiddleware(logger)(CORSMiddleware()(SecurityHeadersMiddleware()(mux)))
	return handler
}
