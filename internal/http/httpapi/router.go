package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"server/internal/http/handlers"
	"server/internal/middleware"
)

// Options carries router-level configuration.
type Options struct {
	CORSAllowedOrigins []string
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		chimw.RealIP,
		chimw.Recoverer,
		middleware.RequestID,
		middleware.Logger(app.Logger),
		middleware.CORS(opts.CORSAllowedOrigins),
	)

	r.Get("/v1/healthz", app.Health)

	r.Route("/api", func(r chi.Router) {
		r.Post("/generate-transcript", app.TranscriptGenerate)
		r.Post("/generate-video", app.VideoGenerate)
		r.Get("/video-status/{job_id}", app.VideoStatus)
		r.Post("/reprompt-video", app.VideoReprompt)
		r.Route("/assets", func(r chi.Router) {
			r.Post("/", app.AssetUpload)
			r.Get("/", app.AssetList)
		})
		r.Post("/upload-youtube", app.Publish)
	})

	return r
}
