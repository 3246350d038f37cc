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

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/vaughan-dsouza/clubhouse/internal/auth"
	"github.com/vaughan-dsouza/clubhouse/internal/config"
	"github.com/vaughan-dsouza/clubhouse/internal/db"
	"github.com/vaughan-dsouza/clubhouse/internal/handlers"
	"github.com/vaughan-dsouza/clubhouse/internal/logging"
	"github.com/vaughan-dsouza/clubhouse/internal/session"
	"github.com/vaughan-dsouza/clubhouse/internal/storage/postgres"
	"github.com/vaughan-dsouza/clubhouse/internal/views"
)

const pruneInterval = 15 * time.Minute

func main() {
	if err := config.LoadDotEnv(); err != nil {
		slog.Info("no .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", "err", err)
		os.Exit(1)
	}

	log := logging.New(os.Stdout, cfg.LogFormat, cfg.LogLevel)
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("server exited with error", "err", err)
		os.Exit(1)
	}
	log.Info("server exited")
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbConn, err := db.Connect(ctx, cfg.DatabaseURL, db.PoolOptions{
		MaxOpen:     cfg.DBMaxOpen,
		MaxIdle:     cfg.DBMaxIdle,
		MaxLifetime: cfg.DBMaxLifetime,
	})
	if err != nil {
		return fmt.Errorf("db connect: %w", err)
	}
	defer dbConn.Close()

	if err := db.Migrate(ctx, dbConn); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	sessions, closeSessions, err := openSessionStore(ctx, cfg, dbConn, log)
	if err != nil {
		return err
	}
	defer closeSessions()

	renderer, err := views.NewRenderer()
	if err != nil {
		return fmt.Errorf("templates: %w", err)
	}

	svc := auth.NewService(postgres.NewUserStore(dbConn), sessions, auth.NewBcryptHasher(auth.DefaultCost), auth.Options{
		SessionTTL: cfg.SessionTTL,
		MemberCode: cfg.MemberCode,
		Logger:     log,
	})

	h := handlers.NewHandler(handlers.Deps{
		Auth:           svc,
		Messages:       postgres.NewMessageStore(dbConn),
		Cookies:        session.NewCookieCodec(cfg.SessionSecret, cfg.CookieSecure),
		Views:          renderer,
		Logger:         log,
		DB:             dbConn,
		RequestTimeout: cfg.RequestTimeout,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddress(),
		Handler:           h.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.RequestTimeout,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", srv.Addr, "session_store", cfg.SessionStore)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}

// openSessionStore builds the configured session backend. The returned func
// releases whatever the backend holds open.
func openSessionStore(ctx context.Context, cfg config.Config, dbConn *sqlx.DB, log *slog.Logger) (session.Store, func(), error) {
	switch cfg.SessionStore {
	case config.SessionStoreRedis:
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("REDIS_URL: %w", err)
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("redis ping: %w", err)
		}
		return session.NewRedisStore(client, "sess"), func() { client.Close() }, nil

	default:
		store, err := session.NewPostgresStore(ctx, dbConn)
		if err != nil {
			return nil, nil, fmt.Errorf("session store: %w", err)
		}
		pruneCtx, cancel := context.WithCancel(ctx)
		go pruneSessions(pruneCtx, store, log)
		return store, cancel, nil
	}
}

// pruneSessions removes expired rows the lazy check in Get never reaches.
func pruneSessions(ctx context.Context, store *session.PostgresStore, log *slog.Logger) {
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.PruneExpired(ctx)
			if err != nil {
				log.Error("prune sessions", "err", err)
				continue
			}
			if n > 0 {
				log.Debug("pruned sessions", "count", n)
			}
		}
	}
}
