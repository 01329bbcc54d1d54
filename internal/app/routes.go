package app

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"
)

var (
	previewRate  = rate.Every(2 * time.Second)
	previewBurst = 5
)

func (app *App) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(securityHeaders)

	r.Get("/api/health", app.healthHandler)
	r.Get("/logo", app.logoHandler)

	// Routes that run the report query
	r.Group(func(r chi.Router) {
		r.Use(rateLimit(previewRate, previewBurst))

		r.Get("/", app.previewHTMLHandler)
		r.Get("/text", app.previewTextHandler)
		r.Get("/api/summary", app.summaryHandler)
	})

	return r
}
