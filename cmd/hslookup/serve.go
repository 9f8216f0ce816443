package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"hslookup/internal/cache"
	"hslookup/internal/config"
	"hslookup/internal/dataset"
	"hslookup/internal/handlers"
	"hslookup/internal/metrics"
	"hslookup/internal/middleware"
	"hslookup/internal/render"
	"hslookup/internal/router"
	"hslookup/internal/session"
)

// storePollInterval is how often a db-backed server checks for a newer
// import when DATA_WATCH is on.
var storePollInterval = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Long: `Loads the lookup data once and serves the lookup screen, the JSON API,
/health and /metrics. A failed initial load is not retried: every page shows
the load error until the process is restarted. With DATA_WATCH=true the file
source is reloaded when the file changes and the db source when a newer
import lands; a failed reload keeps the previous data.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	slog.Info("configuration loaded",
		"env", cfg.Env,
		"addr", cfg.Addr(),
		"data_source", cfg.DataSource,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to Valkey (visitor state + fragment cache).
	valkeyClient, err := cache.ConnectValkey(ctx, cfg.ValkeyHost, cfg.ValkeyPort, cfg.ValkeyPassword)
	if err != nil {
		return err
	}
	defer valkeyClient.Close()

	// In non-development environments, mark cookies as Secure (HTTPS-only).
	secureCookies := !cfg.IsDev()
	sessionStore := session.NewStore(valkeyClient, secureCookies)
	pageCache := cache.NewPageCache(valkeyClient, cfg.PageCacheTTL)
	m := metrics.New()

	loader, closeLoader, err := newLoader(cfg)
	if err != nil {
		return err
	}
	defer closeLoader()

	holder := dataset.NewHolder(loader)
	holder.OnReload(func(snap *dataset.Snapshot) {
		if n, err := pageCache.InvalidateAll(context.WithoutCancel(ctx)); err != nil {
			slog.Warn("fragment cache invalidation failed", "error", err)
		} else {
			slog.Info("fragment cache cleared", "removed", n, "version", snap.Version)
		}
		m.DatasetLoaded(snap.Collection.Len(), snap.Collection.Stats().Chapters, snap.LoadedAt)
	})

	// The one-shot load. On failure the server still starts and renders the
	// error page, so the cause is visible to visitors and /health.
	if err := holder.Load(ctx); err != nil {
		m.DatasetLoadFailed()
	}

	if cfg.DataWatch {
		switch cfg.DataSource {
		case config.SourceFile:
			watcher, err := dataset.NewWatcher(cfg.DataPath, holder, cfg.SearchDebounce)
			if err != nil {
				return err
			}
			if err := watcher.Start(ctx); err != nil {
				return err
			}
			defer watcher.Stop()
		case config.SourceDB:
			sl, ok := loader.(dataset.StoreLoader)
			if !ok {
				return errors.New("db data source without a store loader")
			}
			versions, ok := sl.Store.(versionSource)
			if !ok {
				return errors.New("db data source cannot report import versions")
			}
			go pollStore(ctx, versions, holder, m)
		default:
			slog.Warn("DATA_WATCH has no effect for this data source", "data_source", cfg.DataSource)
		}
	}

	renderer, err := render.New(cfg.IsDev())
	if err != nil {
		return err
	}

	limiter := middleware.NewRateLimiter(cfg.APIRateLimit, time.Minute, cache.NewRateCounter(valkeyClient))

	paging := cfg.Paging()
	r := router.New(router.Deps{
		Lookup:        handlers.NewLookup(renderer, holder, sessionStore, pageCache, m, paging, cfg.SearchDebounce, secureCookies),
		API:           handlers.NewAPI(holder, paging),
		Data:          holder,
		Metrics:       m,
		RateLimiter:   limiter,
		SecureCookies: secureCookies,
		DevMode:       cfg.IsDev(),
	})

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Graceful shutdown: wait for SIGINT or SIGTERM, then drain connections.
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	slog.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	slog.Info("server stopped gracefully")
	return nil
}

// versionSource reports the version of the latest import; implemented by
// store.RecordStore.
type versionSource interface {
	LatestVersion(ctx context.Context) (string, error)
}

// pollStore reloads holder whenever the store reports an import whose
// version differs from the served one. It shares the loader's connection
// pool.
func pollStore(ctx context.Context, versions versionSource, holder *dataset.Holder, m *metrics.Metrics) {
	ticker := time.NewTicker(storePollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		// A failed initial load stays failed.
		snap, err := holder.Current()
		if err != nil {
			return
		}
		latest, err := versions.LatestVersion(ctx)
		if err != nil {
			slog.Warn("check store version", "error", err)
			continue
		}
		if latest == "" || latest == snap.Version {
			continue
		}
		slog.Info("newer import found", "version", latest, "serving", snap.Version)
		if err := holder.Load(ctx); err != nil {
			m.DatasetLoadFailed()
		}
	}
}
