package server

import (
	"context"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"remote-file-manager/internal/adapters/metrics"
	"remote-file-manager/internal/domain"
)

type clientIDKey struct{}

// withClientID определяет клиента: заголовок X-Client-ID, затем cookie client_id.
// Клиенты без идентификатора делят общий буфер обмена default.
func withClientID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderClientID)
		if id == domain.PathEmpty {
			if cookie, err := r.Cookie(CookieClientID); err == nil {
				id = cookie.Value
			}
		}
		if id == domain.PathEmpty {
			id = domain.DefaultClientID
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), clientIDKey{}, id)))
	})
}

func clientIDFrom(ctx context.Context) string {
	if id, ok := ctx.Value(clientIDKey{}).(string); ok && id != domain.PathEmpty {
		return id
	}
	return domain.DefaultClientID
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	wrote  bool
}

func (s *statusRecorder) WriteHeader(code int) {
	if !s.wrote {
		s.status = code
		s.wrote = true
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if !s.wrote {
		s.status = http.StatusOK
		s.wrote = true
	}
	return s.ResponseWriter.Write(b)
}

func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

// withLogging пишет каждый запрос в лог и в метрики. Метка пути берётся из
// шаблона маршрута, чтобы не плодить серии.
func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		route := r.Pattern
		if route == domain.PathEmpty {
			route = "unmatched"
		}
		metrics.RecordRequest(r.Method, route, rec.status, duration)

		logrus.WithFields(logrus.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      rec.status,
			"duration_ms": duration.Milliseconds(),
		}).Debug(LogRequestHandled)
	})
}

func withCORS(origin string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", origin)
		h.Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, "+HeaderClientID)
		if origin != "*" {
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Add("Vary", "Origin")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
