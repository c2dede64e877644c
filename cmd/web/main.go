package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"finitefield.org/fansite/internal/assets"
	"finitefield.org/fansite/internal/config"
	"finitefield.org/fansite/internal/content"
	"finitefield.org/fansite/internal/fanmail"
	"finitefield.org/fansite/internal/handlers"
	"finitefield.org/fansite/internal/i18n"
	"finitefield.org/fansite/internal/identity"
	mw "finitefield.org/fansite/internal/middleware"
	"finitefield.org/fansite/internal/observability"
	pfirestore "finitefield.org/fansite/internal/platform/firestore"
	"finitefield.org/fansite/internal/platform/jobs"
	"finitefield.org/fansite/internal/platform/ratelimit"
	"finitefield.org/fansite/internal/platform/secrets"
)

var (
	templatesDir = "templates"
	publicDir    = "public"
	// devMode reparses templates on every request (FANSITE_DEV).
	devMode    bool
	tmplCache  *template.Template
	i18nBundle *i18n.Bundle
)

func main() {
	ctx := context.Background()

	baseLogger, err := observability.NewLogger(os.Getenv("LOG_LEVEL"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "web: failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()
	logger := baseLogger.Named("web")
	ctx = observability.WithLogger(ctx, logger)

	if err := run(ctx, logger); err != nil {
		logger.Fatal("web exited", zap.Error(err))
	}
}

func run(ctx context.Context, logger *zap.Logger) error {
	fetcher := secrets.NewFetcher(
		secrets.WithLogger(logger.Named("secrets")),
		secrets.WithProject(firstNonEmpty(os.Getenv("FANSITE_SECRET_PROJECT_ID"), os.Getenv("FANSITE_FIREBASE_PROJECT_ID"))),
		secrets.WithLocalFallback(os.Getenv("FANSITE_SECRET_FALLBACK_FILE")),
	)
	defer func() {
		if err := fetcher.Close(); err != nil {
			logger.Warn("failed to close secret fetcher", zap.Error(err))
		}
	}()

	cfg, err := config.Load(ctx, config.WithSecretResolver(config.SecretResolverFunc(fetcher.Resolve)))
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	var (
		addr     string
		tmplPath string
		pubPath  string
	)
	flag.StringVar(&addr, "addr", cfg.Server.Addr(), "HTTP listen address")
	flag.StringVar(&tmplPath, "templates", cfg.Server.TemplatesDir, "templates directory")
	flag.StringVar(&pubPath, "public", cfg.Server.PublicDir, "public assets directory")
	flag.Parse()

	templatesDir = tmplPath
	publicDir = pubPath
	devMode = cfg.Server.DevMode

	if !devMode {
		tc, err := parseTemplates()
		if err != nil {
			return fmt.Errorf("parse templates: %w", err)
		}
		tmplCache = tc
	}

	store := content.Default()
	bundle, err := i18n.Load(cfg.Server.LocalesDir, "en", store.Languages())
	if err != nil {
		return fmt.Errorf("load locales: %w", err)
	}
	i18nBundle = bundle
	images, err := assets.Load(ctx, cfg.Images.Source)
	if err != nil {
		return fmt.Errorf("load image registry: %w", err)
	}

	idp, err := identity.New(ctx, cfg.Firebase)
	if err != nil {
		return fmt.Errorf("init identity: %w", err)
	}

	opts := []fanmail.Option{fanmail.WithWriteTimeout(cfg.Store.WriteTimeout)}

	msgStore, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Warn("failed to close message store", zap.Error(err))
		}
	}()
	if msgStore != nil {
		opts = append(opts, fanmail.WithStore(msgStore))
	} else {
		logger.Warn("no message store configured; fan mail submissions will fail", zap.String("env", cfg.Env))
	}

	limiter, closeLimiter, err := openLimiter(ctx, cfg.RateLimit)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeLimiter(); err != nil {
			logger.Warn("failed to close rate limiter", zap.Error(err))
		}
	}()
	opts = append(opts, fanmail.WithLimiter(limiter))

	if cfg.Notify.Topic != "" {
		publisher, err := jobs.DialPubSubFanMessagePublisher(ctx, cfg.Notify.ProjectID, cfg.Notify.Topic)
		if err != nil {
			return fmt.Errorf("init pubsub publisher: %w", err)
		}
		defer func() {
			if err := publisher.Close(); err != nil {
				logger.Warn("failed to close pubsub publisher", zap.Error(err))
			}
		}()
		opts = append(opts, fanmail.WithNotifier(publisher))
	}

	srv := &server{
		site: &handlers.Site{
			Content: store,
			Bundle:  bundle,
			Images:  images,
			Map:     handlers.MapSettings{TileURL: cfg.Map.TileURL, Attribution: cfg.Map.Attribution},
			SiteURL: cfg.Server.SiteURL,
		},
		mail:      fanmail.NewService(opts...),
		sessions:  mw.NewSessions(cfg.Session.SigningKey, cfg.Session.Secure, logger.Named("session")),
		identity:  idp,
		logger:    logger,
		origins:   cfg.CORS.AllowedOrigins,
		projectID: cfg.Firebase.ProjectID,
	}

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("web listening",
			zap.String("addr", addr),
			zap.Bool("devMode", devMode),
			zap.String("store", cfg.Store.Driver),
			zap.String("identity", cfg.Firebase.Identity),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	select {
	case err, ok := <-serverErr:
		if ok && err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-shutdown:
	}

	logger.Info("shutdown signal received; draining requests")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

// openStore picks the fan message backend. A nil store means none is configured.
func openStore(ctx context.Context, cfg config.Config) (fanmail.Store, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Store.Driver {
	case config.StoreFirestore:
		provider := pfirestore.NewProvider(cfg.Firestore)
		return fanmail.NewFirestoreStore(provider, cfg.Store.Collection), provider.Close, nil
	case config.StoreSQLite, config.StorePostgres:
		st, err := fanmail.OpenSQL(ctx, cfg.Store.Driver, cfg.Store.DSN, cfg.Store.Collection)
		if err != nil {
			return nil, noop, fmt.Errorf("open %s store: %w", cfg.Store.Driver, err)
		}
		return st, st.Close, nil
	default:
		return nil, noop, nil
	}
}

func openLimiter(ctx context.Context, cfg config.RateLimitConfig) (ratelimit.Limiter, func() error, error) {
	noop := func() error { return nil }
	if cfg.Limit <= 0 {
		return ratelimit.Unlimited{}, noop, nil
	}
	if cfg.RedisURL != "" {
		l, err := ratelimit.NewRedis(ctx, cfg.RedisURL, cfg.Limit, cfg.Window)
		if err != nil {
			return nil, noop, fmt.Errorf("init redis rate limiter: %w", err)
		}
		return l, l.Close, nil
	}
	return ratelimit.NewMemory(cfg.Limit, cfg.Window, time.Now), noop, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func parseTemplates() (*template.Template, error) {
	funcMap := template.FuncMap{
		"now": time.Now,
		"t": func(lang, key string) string {
			if i18nBundle == nil {
				return key
			}
			return i18nBundle.T(lang, key)
		},
		// JSON-LD is produced by encoding/json, never from visitor input.
		"safeJS": func(s string) template.JS {
			return template.JS(s)
		},
	}
	// Recursively discover and parse all .tmpl files. Note: ParseGlob doesn't support **.
	var files []string
	if err := filepath.WalkDir(templatesDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.HasSuffix(d.Name(), ".tmpl") {
			files = append(files, path)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no templates found under %s", templatesDir)
	}
	return template.New("_root").Funcs(funcMap).ParseFiles(files...)
}

func templates() (*template.Template, error) {
	if devMode {
		return parseTemplates()
	}
	if tmplCache == nil {
		return nil, errors.New("template not initialized")
	}
	return tmplCache, nil
}

// render executes the base layout. In dev mode, templates are reparsed on each request.
func render(w http.ResponseWriter, r *http.Request, data any) {
	renderTemplate(w, r, "base", data)
}

// renderTemplate executes a named template, typically an htmx fragment.
func renderTemplate(w http.ResponseWriter, r *http.Request, name string, data any) {
	t, err := templates()
	if err != nil {
		observability.FromContext(r.Context()).Error("templates unavailable", zap.Error(err))
		http.Error(w, fmt.Sprintf("template parse error: %v", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := t.ExecuteTemplate(w, name, data); err != nil {
		observability.FromContext(r.Context()).Error("template exec failed", zap.String("template", name), zap.Error(err))
		http.Error(w, fmt.Sprintf("template exec error: %v", err), http.StatusInternalServerError)
		return
	}
}
