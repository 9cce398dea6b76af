package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/geocoder89/authhub/internal/config"
	"github.com/geocoder89/authhub/internal/db"
	"github.com/geocoder89/authhub/internal/notifications"
	"github.com/geocoder89/authhub/internal/observability"
	"github.com/geocoder89/authhub/internal/queue/mailqueue"
	"github.com/geocoder89/authhub/internal/queue/redisclient"
	"github.com/geocoder89/authhub/internal/queue/worker"
	"github.com/geocoder89/authhub/internal/repo/postgres"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg := config.Load()

	log := observability.NewLogger(cfg.Env).With("component", "worker")
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()

	if cfg.RedisAddr == "" {
		log.Error("REDIS_ADDR is required for the mail worker")
		os.Exit(1)
	}

	rdb := redisclient.New(redisclient.Config{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	defer rdb.Close()

	pool, err := db.NewPool(cfg.DBURL)
	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	prom := observability.NewProm(prometheus.DefaultRegisterer)

	var mailer notifications.Mailer = notifications.NewLogMailer(log)
	if cfg.SMTPHost != "" {
		smtp, err := notifications.NewSMTPMailer(notifications.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.MailUser,
			Password: cfg.MailPassword,
			From:     cfg.MailFrom,
		})
		if err != nil {
			log.Error("smtp config invalid", "err", err)
			os.Exit(1)
		}
		mailer = notifications.NewProtectedMailer(smtp, notifications.ProtectedMailerConfig{
			Timeout:          10 * time.Second,
			FailureThreshold: 3,
			Cooldown:         30 * time.Second,
		})
	} else {
		log.Warn("SMTP_HOST not set; mail is logged, not delivered")
	}

	host, _ := os.Hostname()
	workerID := host + "-" + strconv.Itoa(os.Getpid())

	w := worker.New(worker.Config{
		WorkerID:        workerID,
		Concurrency:     4,
		PollTimeout:     2 * time.Second,
		PromoteInterval: time.Second,
		PruneInterval:   cfg.TokenPruneInterval,
		ShutdownGrace:   10 * time.Second,
	}, worker.Deps{
		Queue:  mailqueue.New(rdb.Raw(), cfg.MailQueueKey),
		Mailer: mailer,
		Pruner: postgres.NewRefreshTokensRepo(pool, prom),
		Prom:   prom,
		Stats:  observability.NewMailStats(),
		Log:    log,
	})

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", w.HealthHandler(rdb, pool))
	healthSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.WorkerHealthPort),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		err := healthSrv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("health server failed", "err", err)
		}
	}()

	log.Info("worker has started", "worker_id", workerID, "queue", cfg.MailQueueKey)

	if err := w.Run(ctx); err != nil {
		log.Error("worker stopped with error", "err", err)
	}

	shutdownCtx, cancel := config.WithTimeout(5 * time.Second)
	defer cancel()
	_ = healthSrv.Shutdown(shutdownCtx)

	log.Info("worker shutdown complete")
}
