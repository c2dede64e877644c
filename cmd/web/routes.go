package main

import (
	"io"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"finitefield.org/fansite/internal/fanmail"
	"finitefield.org/fansite/internal/handlers"
	"finitefield.org/fansite/internal/identity"
	mw "finitefield.org/fansite/internal/middleware"
	"finitefield.org/fansite/internal/observability"
)

// server holds the long-lived dependencies shared by all handlers.
type server struct {
	site      *handlers.Site
	mail      *fanmail.Service
	sessions  *mw.Sessions
	identity  identity.Provider
	logger    *zap.Logger
	origins   []string
	projectID string
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	// If deployed behind a trusted reverse proxy/load balancer, RealIP will use
	// X-Forwarded-For to determine the client IP. Ensure only trusted proxies
	// can set these headers in production environments.
	r.Use(chimw.RealIP)
	r.Use(observability.InjectLoggerMiddleware(s.logger))
	r.Use(observability.TraceMiddleware(s.projectID))
	r.Use(observability.RecoveryMiddleware(s.logger))
	r.Use(s.sessions.Middleware)
	r.Use(observability.RequestLoggerMiddleware(mw.UserID))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(mw.HTMX)
	r.Use(mw.Locale(s.site.Bundle))
	r.Use(mw.CSRF(s.sessions.Secure()))
	r.Use(mw.VaryLocale)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "ok")
	})

	assets := http.StripPrefix("/assets", mw.AssetsWithCache(filepath.Join(publicDir, "assets")))
	r.Handle("/assets/*", assets)

	r.With(mw.AnonymousSignIn(s.identity)).Get("/", s.home)
	r.Get("/lang/{code}", s.switchLang)

	r.Route("/fragments", func(r chi.Router) {
		r.Get("/stats", s.statsFrag)
		r.Get("/gallery", s.galleryFrag)
		r.Get("/gallery/{id}", s.galleryModalFrag)
		r.Get("/timeline/{index}", s.timelineEventFrag)
		r.Get("/social", s.socialFrag)
	})

	r.Post("/connect", s.connectSubmit)
	r.Post("/connect/reset", s.connectReset)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.origins,
			AllowedMethods: []string{http.MethodGet, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Accept-Language"},
			MaxAge:         300,
		}))
		r.Get("/nav", s.apiNav)
		r.Get("/hero", s.apiHero)
		r.Get("/timeline", s.apiTimeline)
		r.Get("/timeline/markers", s.apiMarkers)
		r.Get("/stats", s.apiStats)
		r.Get("/media", s.apiMedia)
		r.Get("/social", s.apiSocial)
	})
	return r
}
