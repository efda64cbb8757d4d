package delivery

import (
	"net/http"
	"time"

	"github.com/Vovarama1992/go-utils/httputil"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
)

type RouterOptions struct {
	// RateLimitPerMinute == 0 — без лимита
	RateLimitPerMinute int
	Metrics            http.Handler
}

func NewRouter(h *TranscribeHandler, opts RouterOptions) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders: []string{"X-Request-ID"},
	}))

	RegisterRoutes(r, h, opts)
	return r
}

func RegisterRoutes(r chi.Router, h *TranscribeHandler, opts RouterOptions) {
	r.With(httputil.RecoverMiddleware).Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(200)
		w.Write([]byte("pong"))
	})

	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	r.Group(func(pr chi.Router) {
		pr.Use(httputil.RecoverMiddleware)
		if opts.RateLimitPerMinute > 0 {
			pr.Use(httprate.LimitByIP(opts.RateLimitPerMinute, time.Minute))
		}

		pr.Post("/upload-audio", h.UploadAudio)
	})
}
