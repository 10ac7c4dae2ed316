package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"slices"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/Zachkp/folio/internal/analytics"
	"github.com/Zachkp/folio/internal/config"
	"github.com/Zachkp/folio/internal/content"
	"github.com/Zachkp/folio/internal/media"
	"github.com/Zachkp/folio/internal/store"
	"github.com/Zachkp/folio/internal/store/sqlitekv"
	"github.com/Zachkp/folio/internal/store/wsbus"
)

// env is the storage stack a command works on.
type env struct {
	cfg    config.Config
	logger *slog.Logger
	kv     *sqlitekv.Store
	store  *store.Store

	// Exactly one of hub and peer is set once the store is attached to a bus.
	hub  *wsbus.Hub
	peer *wsbus.Client
}

// openEnv opens the database and builds the store. When cfg.PeerURL is set
// the store joins the bus of the process serving that URL; otherwise this
// process hosts the bus itself.
func openEnv(ctx context.Context, cfg config.Config, logger *slog.Logger, reg prometheus.Registerer) (*env, error) {
	kv, err := sqlitekv.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	e := &env{cfg: cfg, logger: logger, kv: kv}

	var bus store.Bus
	if cfg.PeerURL != "" {
		client, err := wsbus.Dial(ctx, cfg.PeerURL, logger)
		if err != nil {
			_ = kv.Close()
			return nil, fmt.Errorf("attach to %s: %w", cfg.PeerURL, err)
		}
		e.peer = client
		bus = client
	} else {
		e.hub = wsbus.NewHub(logger, originChecker(cfg.AllowedWSOrigins))
		// Browsers listen on the same hub; keep drafts and the inbox out of it.
		e.hub.Redact(content.KeyMessages, content.KeyAdminSessions, content.KeyPosts, content.KeyPages)
		bus = e.hub
	}

	opts := []store.Option{store.WithBus(bus), store.WithLogger(logger)}
	if reg != nil {
		opts = append(opts, store.WithMetrics(store.NewMetrics(reg, "folio")))
	}
	e.store = store.New(kv, opts...)
	return e, nil
}

func (e *env) Close() {
	e.store.Close()
	if e.hub != nil {
		e.hub.Close()
	}
	if e.peer != nil {
		_ = e.peer.Close()
	}
	if err := e.kv.Close(); err != nil {
		e.logger.Warn("closing database", "error", err)
	}
}

// originChecker allows the listed browser origins. Requests without an
// Origin header come from other folio processes and are always allowed.
func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return nil
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || slices.Contains(allowed, origin)
	}
}

func newMediaStorage(cfg config.Config) (media.Storage, error) {
	if cfg.Media.Backend == "s3" {
		return media.NewS3(media.S3Config{
			Bucket:    cfg.S3.Bucket,
			Region:    cfg.S3.Region,
			Endpoint:  cfg.S3.Endpoint,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			PathStyle: cfg.S3.PathStyle,
			PublicURL: cfg.S3.PublicURL,
			Prefix:    cfg.S3.Prefix,
		}, cfg.Media.MaxBytes)
	}
	return media.NewDisk(cfg.Media.Dir, "/media", cfg.Media.MaxBytes)
}

func loadConfig() (config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, err
	}
	logger := cfg.NewLogger(os.Stderr)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func runServe(ctx context.Context) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	gin.SetMode(cfg.GinMode)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	e, err := openEnv(ctx, cfg, logger, reg)
	if err != nil {
		return err
	}
	defer e.Close()

	tracker, err := analytics.New(e.kv.DB(), cfg.HashSalt, logger)
	if err != nil {
		return err
	}
	storage, err := newMediaStorage(cfg)
	if err != nil {
		return err
	}
	feed := content.NewFeed(e.store, logger)
	defer feed.Close()

	srv := newServer(serverDeps{
		cfg:      cfg,
		logger:   logger,
		store:    e.store,
		db:       e.kv.DB(),
		hub:      e.hub,
		feed:     feed,
		tracker:  tracker,
		media:    storage,
		registry: reg,
	})

	httpSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go runMaintenance(ctx, cfg, tracker, content.NewRepo(e.store), logger)

	var peerLost <-chan struct{}
	if e.peer != nil {
		peerLost = e.peer.Done()
		logger.Info("attached to peer", "url", cfg.PeerURL)
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", httpSrv.Addr, "db", cfg.DBPath, "version", version)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-peerLost:
		logger.Error("lost connection to peer, shutting down", "url", cfg.PeerURL)
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

// runMaintenance purges expired visitor records and admin sessions until
// ctx is done.
func runMaintenance(ctx context.Context, cfg config.Config, tracker *analytics.Tracker, repo *content.Repo, logger *slog.Logger) {
	sweep := func() {
		cleanupCtx, cancel := context.WithTimeout(ctx, time.Minute)
		defer cancel()
		if _, err := tracker.Cleanup(cleanupCtx, cfg.VisitorRetention); err != nil {
			logger.Warn("visitor cleanup failed", "error", err)
		}
		if n := repo.PruneSessions(); n > 0 {
			logger.Info("pruned expired admin sessions", "count", n)
		}
	}

	sweep()
	if cfg.CleanupInterval <= 0 {
		return
	}
	ticker := time.NewTicker(cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweep()
		}
	}
}
