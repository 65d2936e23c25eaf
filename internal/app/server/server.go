package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"tbscrm/internal/app/seed"
	"tbscrm/internal/domain/audit"
	"tbscrm/internal/domain/auth"
	"tbscrm/internal/domain/core"
	"tbscrm/internal/domain/reports"
	"tbscrm/internal/domain/session"
	"tbscrm/internal/domain/tasks"
	"tbscrm/internal/platform/config"
	cryptoutil "tbscrm/internal/platform/crypto"
	"tbscrm/internal/platform/db"
	"tbscrm/internal/platform/email"
	"tbscrm/internal/platform/metrics"
	"tbscrm/internal/platform/storage"
	"tbscrm/internal/platform/tracing"
	audithandler "tbscrm/internal/transport/http/handlers/audit"
	authhandler "tbscrm/internal/transport/http/handlers/auth"
	corehandler "tbscrm/internal/transport/http/handlers/core"
	reportshandler "tbscrm/internal/transport/http/handlers/reports"
	sessionhandler "tbscrm/internal/transport/http/handlers/session"
	taskhandler "tbscrm/internal/transport/http/handlers/tasks"
	"tbscrm/internal/transport/http/middleware"
)

type App struct {
	Config  config.Config
	DB      *db.Pool
	Router  http.Handler
	Metrics *metrics.Collector
}

// New connects to the database, prepares the schema and builds the router.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrations: %w", err)
		}
	}
	if cfg.RunSeed {
		if err := seed.Run(ctx, pool, cfg); err != nil {
			pool.Close()
			return nil, fmt.Errorf("seed: %w", err)
		}
	}
	router, collector, err := NewRouter(cfg, pool)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return &App{Config: cfg, DB: pool, Router: router, Metrics: collector}, nil
}

// NewRouter wires stores, services and handlers on top of an open pool.
func NewRouter(cfg config.Config, pool *db.Pool) (http.Handler, *metrics.Collector, error) {
	crypto, err := cryptoutil.New(cfg.DataEncryptionKey)
	if err != nil {
		return nil, nil, fmt.Errorf("encryption key: %w", err)
	}

	objects := storage.New(cfg.StorageDir, cfg.PublicBaseURL, cfg.MaxUploadBytes)
	collector := metrics.New()
	auditSvc := audit.New(pool)

	authSvc := auth.NewService(auth.NewStore(pool), email.New(cfg), auth.Options{
		Secret:             cfg.JWTSecret,
		TokenTTL:           cfg.TokenTTL,
		ResetTTL:           cfg.ResetTokenTTL,
		DenyWithoutProfile: cfg.ProfileFallback == config.ProfileFallbackDeny,
		ResetURL:           cfg.ResetURL,
		MailFrom:           cfg.EmailFrom,
	})
	coreSvc := core.NewService(core.NewStore(pool, crypto), objects, cfg.CacheTTL)
	taskSvc := tasks.NewService(tasks.NewStore(pool), coreSvc, cfg.CacheTTL, cfg.TaskStrictWorkflow)
	taskSvc.Objects = objects
	sessionSvc := session.NewService(session.NewStore(pool), cfg.AppName)
	renderer := reports.Renderer{FontPath: cfg.ReportFontPath, AppName: cfg.AppName}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(chimw.RealIP)
	router.Use(middleware.Tracing)
	router.Use(middleware.Logger)
	router.Use(chimw.Recoverer)
	router.Use(middleware.SecureHeaders(cfg.IsProduction()))
	router.Use(middleware.Metrics(collector))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	if cfg.MetricsEnabled {
		router.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(collector.Snapshot())
		})
	}

	router.Handle(storage.FilesPrefix+"*", objects.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
		r.Use(middleware.Auth(cfg.JWTSecret, authSvc))
		r.Use(middleware.RateLimit(cfg.RateLimitPerMinute, time.Minute))
		r.Use(middleware.SensitiveMutationRateLimit(cfg.RateLimitPerMinute, time.Minute))
		r.Use(middleware.Idempotent(middleware.NewIdempotencyStore(pool)))

		authhandler.NewHandler(authSvc, sessionSvc, auditSvc, collector).RegisterRoutes(r)
		sessionhandler.NewHandler(authSvc, sessionSvc, auditSvc).RegisterRoutes(r)
		corehandler.NewHandler(coreSvc, taskSvc, objects, cfg.StorageBucket, cfg.MaxUploadBytes, renderer, auditSvc, collector).RegisterRoutes(r)
		taskhandler.NewHandler(taskSvc, coreSvc, objects, cfg.StorageBucket, cfg.MaxUploadBytes, auditSvc, collector).RegisterRoutes(r)
		reportshandler.NewHandler(coreSvc, taskSvc, sessionSvc, renderer).RegisterRoutes(r)
		audithandler.NewHandler(auditSvc).RegisterRoutes(r)
	})

	if cfg.FrontendDir != "" {
		router.Mount("/", spaHandler{staticPath: cfg.FrontendDir, indexPath: "index.html"})
	}

	return router, collector, nil
}

func (a *App) Close() {
	if a.DB != nil {
		a.DB.Close()
	}
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func Run(ctx context.Context, cfg config.Config) error {
	shutdownTracing, err := tracing.Setup(ctx, cfg)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			slog.Warn("trace flush failed", "err", err)
		}
	}()

	app, err := New(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", cfg.Addr, "env", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

type spaHandler struct {
	staticPath string
	indexPath  string
}

func (h spaHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	path := filepath.Join(h.staticPath, filepath.Clean("/"+r.URL.Path))
	info, err := os.Stat(path)
	if err == nil && !info.IsDir() {
		http.FileServer(http.Dir(h.staticPath)).ServeHTTP(w, r)
		return
	}

	if err == nil || os.IsNotExist(err) {
		http.ServeFile(w, r, filepath.Join(h.staticPath, h.indexPath))
		return
	}

	http.NotFound(w, r)
}
