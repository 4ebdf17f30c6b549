package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"healthreport/internal/adapter/bigquery"
	"healthreport/internal/adapter/gemini"
	adapthttp "healthreport/internal/adapter/http"
	"healthreport/internal/adapter/memory"
	"healthreport/internal/adapter/oidc"
	"healthreport/internal/adapter/postgres"
	"healthreport/internal/adapter/redis"
	"healthreport/internal/app"
	"healthreport/internal/config"
	"healthreport/internal/domain"
	"healthreport/internal/logger"
)

// warehouse is the set of ports every storage backend provides.
type warehouse interface {
	domain.ActivityRepository
	domain.UserRepository
	domain.ReflectionRepository
	domain.LoadRepository
}

const sessionPurgeInterval = 15 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		// logger is not built yet
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log, err := logger.New(cfg.AppEnv)
	if err != nil {
		os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var closers []io.Closer
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i].Close()
		}
	}()

	mem := memory.New()
	var pg *postgres.DB
	if cfg.Warehouse == config.WarehousePostgres || cfg.SessionStore == config.SessionStorePostgres {
		pg, err = postgres.Open(cfg.DatabaseURL)
		if err != nil {
			log.Fatal("postgres open failed", "error", err)
		}
		closers = append(closers, pg)
	}

	var store warehouse
	switch cfg.Warehouse {
	case config.WarehousePostgres:
		store = pg
	case config.WarehouseBigQuery:
		wh, err := bigquery.Open(ctx, cfg.GCPProjectID, cfg.GCPLocation, cfg.BQDataset, bigquery.Tables{
			Activities:  cfg.BQActivitiesTable,
			Users:       cfg.BQUsersTable,
			Reflections: cfg.BQReflectionsTable,
		})
		if err != nil {
			log.Fatal("bigquery open failed", "error", err)
		}
		closers = append(closers, wh)
		if err := wh.EnsureTables(ctx); err != nil {
			log.Fatal("bigquery table setup failed", "error", err)
		}
		store = wh
	default:
		log.Warn("using in-memory warehouse; data is lost on restart")
		store = mem
	}

	var sessions domain.SessionRepository
	switch cfg.SessionStore {
	case config.SessionStorePostgres:
		sessions = postgres.NewSessionRepo(pg)
	case config.SessionStoreRedis:
		rs, err := redis.Open(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatal("redis open failed", "error", err)
		}
		closers = append(closers, rs)
		sessions = rs
	default:
		sessions = mem.NewSessionRepo()
	}

	var commenter domain.Commenter = app.NoopCommenter{}
	if cfg.GeminiAPIKey != "" {
		gc, err := gemini.New(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			log.Fatal("gemini client failed", "error", err)
		}
		closers = append(closers, gc)
		commenter = gc
	} else {
		log.Warn("GEMINI_API_KEY not set; ai diagnosis is disabled")
	}

	authSvc := app.NewAuthService(store, sessions, app.NewSessionSigner(cfg.SessionSecret), cfg.SessionTTL, log)
	activitySvc := app.NewActivityService(store, log)
	reflectionSvc := app.NewReflectionService(store, store, commenter, log)

	srv := adapthttp.New(activitySvc, reflectionSvc, authSvc, log.With("component", "http"), adapthttp.Options{
		WebDir:         cfg.WebDir,
		CookieSecure:   cfg.CookieSecure,
		CookieSameSite: cfg.CookieSameSite,
		AllowedOrigins: cfg.AllowedOrigins,
	})

	if cfg.OIDCEnabled() {
		provider, err := oidc.New(ctx, oidc.Config{
			Issuer:       cfg.OIDCIssuer,
			ClientID:     cfg.OIDCClientID,
			ClientSecret: cfg.OIDCClientSecret,
			RedirectURL:  cfg.OIDCRedirectURL,
		})
		if err != nil {
			log.Fatal("oidc setup failed", "error", err)
		}
		srv.WithFederatedSignIn(provider)
		log.Info("federated sign-in enabled", "issuer", cfg.OIDCIssuer)
	}

	go purgeSessions(ctx, authSvc, log.With("component", "session-purge"))

	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      srv.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info("listening", "addr", cfg.Addr, "warehouse", cfg.Warehouse, "sessions", cfg.SessionStore)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", "error", err)
		}
	}()

	<-shutdownCh
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}

func purgeSessions(ctx context.Context, auth *app.AuthService, log *logger.Logger) {
	ticker := time.NewTicker(sessionPurgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := auth.PurgeExpiredSessions(ctx); err != nil {
				log.Warn("session purge failed", "error", err)
			}
		}
	}
}
