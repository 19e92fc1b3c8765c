package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/callatispress/presscomb/app/api"
	"github.com/callatispress/presscomb/app/cfg"
	"github.com/callatispress/presscomb/app/cms"
	"github.com/callatispress/presscomb/app/database"
	"github.com/callatispress/presscomb/app/fallback"
	"github.com/callatispress/presscomb/app/navcache"
	"github.com/callatispress/presscomb/app/page"
	"github.com/callatispress/presscomb/app/tasks"
)

func main() {
	c, err := cfg.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if c == nil {
		// Help was shown
		return
	}

	level := slog.LevelInfo
	if c.Debug {
		level = slog.LevelDebug
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	slog.Info("Starting PressComb", "version", c.Version, "timezone", time.Local.String())

	client := cms.NewClient(cms.Options{
		BaseURL:     c.WPBaseURL,
		UserAgent:   c.UserAgent,
		Tries:       c.FetchTries,
		Timeout:     c.FetchTimeout,
		PageSize:    c.PageSize,
		CategoryTTL: c.CategoryTTL,
	})
	if !client.Configured() {
		slog.Warn("WP_BASE_URL not set, serving fallback content only")
	}

	corpusStore, err := fallback.NewStore(c.FallbackFile, time.Now)
	if err != nil {
		slog.Error("Failed to load fallback corpus", "path", c.FallbackFile, "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := corpusStore.Watch(ctx); err != nil {
			slog.Warn("Fallback corpus watcher stopped", "error", err)
		}
	}()

	db, err := database.Open(c.DBPath)
	if err != nil {
		slog.Error("Failed to open database", "path", c.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "path", db.Path(), "schema_version", version, "dirty", dirty)

	postRepo := database.NewPostRepository(db)
	runRepo := database.NewRefreshRunRepository(db)

	navCache := navcache.New(client, navcache.Options{TTL: c.NavTTL})
	defer navCache.Close()

	scheduler := tasks.NewScheduler(client, postRepo, runRepo, navCache, tasks.SchedulerOptions{
		Interval:    c.SchedulerInterval,
		WorkerCount: c.WorkerCount,
	})
	if client.Configured() {
		scheduler.Start()
		defer scheduler.Stop()
	} else {
		slog.Info("Revalidation scheduler disabled without an upstream")
	}

	policy := fallback.NewPolicy(corpusStore, c.FallbackMinPosts)
	handler := api.NewHandler(client, policy, postRepo, runRepo, navCache, page.DefaultSite(c.BaseUrl), c.Version)
	server := api.NewServer(handler, c.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + c.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // menu events are streamed
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", c.Port, "base_url", c.BaseUrl)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("Shutdown signal received")
	case err := <-serverErrChan:
		slog.Error("HTTP server error", "error", err)
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Streaming clients hold connections open until the cache closes them
	navCache.Close()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}

	slog.Info("PressComb shutdown complete")
}
