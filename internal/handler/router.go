package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"

	"pdfhistory/internal/preview"
)

type RouterConfig struct {
	AllowedOrigins []string
	RequestTimeout time.Duration
}

// NewRouter собирает HTTP-маршруты /v1
func NewRouter(
	cfg RouterConfig,
	files *FileHandler,
	cache *CacheHandler,
	params *ParamsHandler,
	thumbnails *preview.Handler,
) http.Handler {
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 5 * time.Minute
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Route("/v1", func(r chi.Router) {
		r.Post("/files", files.UploadFile)
		r.Get("/files", files.ListLatest)

		r.Route("/files/{id}", func(r chi.Router) {
			r.Delete("/", files.DeleteFile)
			r.Get("/history", files.GetHistory)
			r.Get("/thumbnail", thumbnails.GetThumbnail)
			r.Put("/processed", files.PutProcessed)
			r.Get("/processed", files.GetProcessed)
		})

		r.Get("/history", files.ListBranches)
		r.Get("/history/groups", files.ListGroups)

		r.Route("/cache", func(r chi.Router) {
			r.Get("/", cache.GetStats)
			r.Delete("/", cache.Clear)
		})

		r.Route("/params", func(r chi.Router) {
			r.Get("/", params.List)
			r.Delete("/", params.DeleteAll)
			r.Get("/{tool}", params.Get)
			r.Put("/{tool}", params.Put)
			r.Delete("/{tool}", params.Delete)
		})
	})

	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		log.Info().
			Str("component", "http").
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}
