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

	"github.com/geocoder89/authhub/internal/auth"
	"github.com/geocoder89/authhub/internal/config"
	"github.com/geocoder89/authhub/internal/db"
	httpx "github.com/geocoder89/authhub/internal/http"
	"github.com/geocoder89/authhub/internal/http/handlers"
	"github.com/geocoder89/authhub/internal/http/middlewares"
	"github.com/geocoder89/authhub/internal/notifications"
	"github.com/geocoder89/authhub/internal/observability"
	"github.com/geocoder89/authhub/internal/otp"
	"github.com/geocoder89/authhub/internal/queue/mailqueue"
	"github.com/geocoder89/authhub/internal/queue/redisclient"
	"github.com/geocoder89/authhub/internal/repo/postgres"
	"github.com/geocoder89/authhub/internal/security"
	"github.com/geocoder89/authhub/internal/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	cfg := config.Load()

	log := observability.NewLogger(cfg.Env)
	slog.SetDefault(log)

	ctx := context.Background()

	shutdownTracer, err := observability.InitTracer(ctx, cfg.OTelServiceName, cfg.Env, cfg.OTelEndpoint)
	if err != nil {
		log.Error("tracer init failed", "err", err)
		os.Exit(1)
	}

	pool, err := db.NewPool(cfg.DBURL)
	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	if cfg.DBAutoMigrate {
		applied, err := db.Migrate(ctx, pool)
		if err != nil {
			log.Error("db migrate failed", "err", err)
			os.Exit(1)
		}
		log.Info("db migrated", "applied", applied)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	prom := observability.NewProm(reg)

	users := postgres.NewUsersRepo(pool, prom)
	tenants := postgres.NewTenantsRepo(pool, prom)
	refreshTokens := postgres.NewRefreshTokensRepo(pool, prom)

	hasher := security.NewHasher(cfg.BcryptCost)

	seeded, err := db.EnsureAdminUser(ctx, users, hasher, cfg)
	if err != nil {
		log.Error("admin seed failed", "err", err)
		os.Exit(1)
	}
	if seeded {
		log.Info("admin user created", "email", cfg.AdminEmail)
	}

	privateKey, err := auth.LoadPrivateKey(cfg.PrivateKeyPEM, cfg.PrivateKeyPath)
	if err != nil {
		log.Error("private key unreadable", "err", err)
		os.Exit(1)
	}
	if privateKey == nil {
		log.Warn("no signing key configured; token issuance will fail", "path", cfg.PrivateKeyPath)
	}

	var keys auth.KeyResolver
	if cfg.JWKSURI != "" {
		keys = auth.NewJWKSClient(cfg.JWKSURI, nil, 0)
	}

	manager := auth.NewManager(auth.ManagerConfig{
		PrivateKey:    privateKey,
		KeyID:         cfg.JWTKeyID,
		Issuer:        cfg.JWTIssuer,
		RefreshSecret: cfg.RefreshTokenSecret,
		Keys:          keys,
	})

	checks := []handlers.ReadinessCheck{{Name: "postgres", Ping: pool.Ping}}

	var mailer notifications.Mailer = notifications.NewLogMailer(log)
	if cfg.RedisAddr != "" {
		rdb := redisclient.New(redisclient.Config{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		defer rdb.Close()

		if err := rdb.Probe(ctx); err != nil {
			log.Warn("redis unreachable at startup; mail falls back to log until it recovers", "err", err)
		}

		queue := mailqueue.New(rdb.Raw(), cfg.MailQueueKey)
		mailer = mailqueue.NewQueueMailer(queue, mailer, cfg.MailMaxAttempts, prom, log)
		checks = append(checks, handlers.ReadinessCheck{Name: "redis", Ping: rdb.Ping})
	}

	engine := otp.NewEngine(cfg.HashSecret)
	issuer := service.NewTokenIssuer(refreshTokens, manager, log)
	flowCfg := service.RegistrarConfig{ExposeOTP: cfg.ExposeOTP}

	router := httpx.NewRouter(httpx.RouterConfig{
		Env:            cfg.Env,
		ServiceName:    cfg.OTelServiceName,
		AllowedOrigins: cfg.AllowedOrigins,
	}, httpx.Deps{
		Log:      log,
		Prom:     prom,
		Gatherer: reg,
		Gate:     middlewares.NewAuthMiddleware(manager, manager, issuer, log),
		Auth: handlers.NewAuthHandler(
			service.NewRegistrar(users, hasher, engine, issuer, mailer, prom, log, flowCfg),
			service.NewAuthenticator(users, hasher, issuer, prom, log),
			service.NewPasswordReset(users, hasher, engine, mailer, prom, log, flowCfg),
			handlers.CookieConfig{Domain: cfg.CookieDomain, Secure: cfg.IsProd()},
		),
		Tenants: handlers.NewTenantsHandler(tenants),
		Users:   handlers.NewUsersHandler(service.NewAccounts(users, tenants, hasher), users),
		Health:  handlers.NewHealthHandler(checks...),
		Keys:    manager,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "port", cfg.Port, "env", cfg.Env)
		err := srv.ListenAndServe()

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("server shutting down")

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		ctx, cancel := config.WithTimeout(10 * time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("graceful shutdown failed", "err", err)
		}
		if err := shutdownTracer(ctx); err != nil {
			log.Error("tracer shutdown failed", "err", err)
		}
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")

	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}
}
