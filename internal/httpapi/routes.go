package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/mirakyux/micept/internal/commands"
	"github.com/mirakyux/micept/internal/hub"
	"github.com/mirakyux/micept/internal/ws"
)

type Options struct {
	OriginPatterns []string
	Logger         *zap.Logger
}

func SetupRoutes(h *hub.Hub, svc *commands.Service, opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", Healthz)
	r.Get("/ws", ws.Handler(h, svc, ws.Options{OriginPatterns: opts.OriginPatterns, Logger: logger}))

	r.Route("/v1", func(r chi.Router) {
		r.Use(requestLogger(logger))
		r.Get("/state", GetState(svc))

		r.Route("/settings", func(r chi.Router) {
			r.Put("/auto-accept", SetSetting(svc.SetAutoAccept))
			r.Put("/mouse-through", SetSetting(svc.SetMouseThrough))
			r.Put("/auto-hide", SetSetting(svc.SetAutoHide))
		})

		r.Route("/window", func(r chi.Router) {
			r.Get("/position", GetWindowPosition(svc))
			r.Put("/position", SaveWindowPosition(svc))
			r.Put("/visible", SaveWindowVisible(svc))
		})

		r.Post("/quit", Quit(svc))
		r.Get("/lcu/auth", LCUAuth(svc, logger))
		r.Get("/privileges", Privileges(svc))
	})
	return r
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("elapsed", time.Since(start)),
			)
		})
	}
}
