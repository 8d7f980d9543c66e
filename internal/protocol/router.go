// SPDX-License-Identifier: Apache-2.0

package protocol

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/lsqs/lsqs/internal/queue"
)

// NewRouter builds the HTTP surface: a chi router with the teacher's
// standard middleware stack, a health check, and the dual-framing SQS
// endpoint mounted at both "/" (QueueUrl/QueueName in the body) and
// "/{queueName}" (AWS's path-style queue URL), per spec.md §6.
func NewRouter(svc *queue.Service, log *zap.SugaredLogger) http.Handler {
	srv := NewServer(svc, log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(zapRequestLogger(log))
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/", healthCheck)
	r.Get("/health", healthCheck)
	r.Post("/", srv.Dispatch)
	r.Post("/{queueName}", srv.Dispatch)

	return r
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// zapRequestLogger generalizes the teacher's use of chi's stdlib-backed
// middleware.Logger into one that writes through the structured logger
// threaded through the rest of the service.
func zapRequestLogger(log *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Infow("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
