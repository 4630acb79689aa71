package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

// SetupRouter serves the dashboard, the management API and every push channel.
func SetupRouter(h *APIHandler, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(h.logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}).Handler)

	r.Get("/", h.ServeWebUI)
	r.Get("/status", h.HandleStatus)

	r.Get("/alarm", h.HandleListAlarms)
	r.Post("/alarm", h.HandleCreateAlarm)
	r.Post("/delete", h.HandleDeleteAlarm)

	r.Route("/ws", func(r chi.Router) {
		for name := range h.channels {
			r.Get("/"+name, h.HandleWebSocket(name))
		}
	})
	return r
}

// SetupChannelRouter serves a single push channel at "/", for clients that
// expect one port per channel.
func SetupChannelRouter(h *APIHandler, channel string) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/", h.HandleWebSocket(channel))
	return r
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("HTTP request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
