package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/inamate/vecview/internal/asset"
	"github.com/inamate/vecview/internal/auth"
	"github.com/inamate/vecview/internal/config"
	"github.com/inamate/vecview/internal/engine"
	"github.com/inamate/vecview/internal/export"
	mw "github.com/inamate/vecview/internal/middleware"
	"github.com/inamate/vecview/internal/render"
	"github.com/inamate/vecview/internal/session"
	"github.com/inamate/vecview/internal/store"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	docs := store.New(pool)
	if err := docs.Migrate(ctx); err != nil {
		return err
	}

	assets, err := asset.NewStore(cfg.AssetDir)
	if err != nil {
		return err
	}

	renderOpts := render.Options{
		ShowGrid:       cfg.Render.ShowGrid,
		ShowAxes:       cfg.Render.ShowAxes,
		ShowScaleBar:   cfg.Render.ShowScaleBar,
		GridSpacing:    cfg.Render.GridSpacing,
		ScaleBarPixels: cfg.Render.ScaleBarPixels,
	}
	exportDefaults := export.DefaultOptions()
	exportDefaults.Width = cfg.Render.Width
	exportDefaults.Height = cfg.Render.Height
	exportDefaults.Padding = cfg.Render.Padding
	exportDefaults.Render = renderOpts
	exportDefaults.MaxPixels = cfg.Render.MaxExportPixels

	notFound := func(err error) bool { return errors.Is(err, store.ErrNotFound) }

	authService := auth.NewService(cfg.JWTSecret, cfg.AdminUser, cfg.AdminPasswordHash)
	authHandler := auth.NewHandler(authService)
	documentHandler := store.NewHandler(docs)
	assetHandler := asset.NewHandler(assets)
	exportHandler := export.NewHandler(docs, assets, exportDefaults, notFound)

	hub := session.NewHub()
	sessionHandler := session.NewHandler(hub, docs, assets, session.Options{
		Engine: engine.Options{
			Width:       cfg.Render.Width,
			Height:      cfg.Render.Height,
			Render:      renderOpts,
			ZoomHistory: cfg.Render.ZoomHistory,
			Padding:     cfg.Render.Padding,
		},
		MaxFPS:         cfg.Render.MaxFPS,
		MaxPixels:      cfg.Render.MaxExportPixels,
		OriginPatterns: cfg.OriginHosts(),
	}, notFound)

	r := mux.NewRouter()

	// Global middleware
	r.Use(mw.Recovery)
	r.Use(mw.Logger)
	r.Use(mw.CORS(cfg.Origins()))

	r.HandleFunc("/auth/login", authHandler.Login).Methods("POST", "OPTIONS")

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// Public endpoints
	r.HandleFunc("/assets/upload", assetHandler.Upload).Methods("POST", "OPTIONS")
	r.HandleFunc("/assets/{assetId}", assetHandler.Get).Methods("GET")
	r.HandleFunc("/export", exportHandler.ExportDocument).Methods("POST", "OPTIONS")

	// Protected API routes
	api := r.PathPrefix("/api").Subrouter()
	api.Use(authService.AuthMiddleware)

	api.HandleFunc("/documents", documentHandler.List).Methods("GET")
	api.HandleFunc("/documents", documentHandler.Create).Methods("POST")
	api.HandleFunc("/documents/{documentId}", documentHandler.Get).Methods("GET")
	api.HandleFunc("/documents/{documentId}", documentHandler.Save).Methods("PUT")
	api.HandleFunc("/documents/{documentId}", documentHandler.Delete).Methods("DELETE")
	api.HandleFunc("/documents/{documentId}/export", exportHandler.ExportStored).Methods("GET")
	api.HandleFunc("/assets/{assetId}", assetHandler.Delete).Methods("DELETE")

	// Viewport sessions authenticate with ?token=
	r.Handle("/ws/documents/{documentId}", authService.AuthMiddleware(sessionHandler))

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		slog.Info("server starting", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
