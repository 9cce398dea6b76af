package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/geocoder89/authhub/internal/jobs"
	"github.com/geocoder89/authhub/internal/notifications"
	"github.com/geocoder89/authhub/internal/observability"
)

type Queue interface {
	Dequeue(ctx context.Context, timeout time.Duration) (jobs.Job, error)
	Retry(ctx context.Context, j jobs.Job, delay time.Duration) error
	PromoteDue(ctx context.Context) (int, error)
}

// TokenPruner removes refresh-token records whose expiry has passed.
type TokenPruner interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type Config struct {
	WorkerID        string
	Concurrency     int
	PollTimeout     time.Duration // BRPOP block per loop
	PromoteInterval time.Duration // how often delayed retries are moved back
	PruneInterval   time.Duration // 0 disables token pruning
	ShutdownGrace   time.Duration
}

type Worker struct {
	cfg     Config
	queue   Queue
	mailer  notifications.Mailer
	pruner  TokenPruner
	prom    *observability.Prom
	stats   *observability.MailStats
	log     *slog.Logger
	backoff func(attempt int) time.Duration
	now     func() time.Time

	readyMu sync.RWMutex
	ready   bool
}

type Deps struct {
	Queue  Queue
	Mailer notifications.Mailer
	Pruner TokenPruner
	Prom   *observability.Prom
	Stats  *observability.MailStats
	Log    *slog.Logger
}

func New(cfg Config, deps Deps) *Worker {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = time.Second
	}
	if cfg.PromoteInterval <= 0 {
		cfg.PromoteInterval = time.Second
	}
	if cfg.ShutdownGrace <= 0 {
		cfg.ShutdownGrace = 10 * time.Second
	}

	stats := deps.Stats
	if stats == nil {
		stats = observability.NewMailStats()
	}
	log := deps.Log
	if log == nil {
		log = slog.Default()
	}

	return &Worker{
		cfg:     cfg,
		queue:   deps.Queue,
		mailer:  deps.Mailer,
		pruner:  deps.Pruner,
		prom:    deps.Prom,
		stats:   stats,
		log:     log.With("worker_id", cfg.WorkerID),
		backoff: ExponentialBackoff,
		now:     time.Now,
	}
}

// Run processes mail jobs until ctx is cancelled. In-flight deliveries get
// ShutdownGrace to finish before Run returns.
func (w *Worker) Run(ctx context.Context) error {
	w.setReady(true)
	w.log.Info("worker.started", "concurrency", w.cfg.Concurrency)

	// deliveries run on their own context so a shutdown signal does not cut
	// an SMTP exchange half way
	workCtx, cancelWork := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelWork()

	var wg sync.WaitGroup

	for i := 0; i < w.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.loop(ctx, workCtx)
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		w.maintenance(ctx)
	}()

	<-ctx.Done()
	w.setReady(false)
	w.log.Info("worker.shutdown_signal")

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(w.cfg.ShutdownGrace):
		w.log.Warn("worker.shutdown_grace_exceeded", "grace", w.cfg.ShutdownGrace)
		cancelWork()
		<-done
	}

	s := w.stats.Snapshot()
	w.log.Info("worker.stopped",
		"received", s.Received,
		"sent", s.Sent,
		"retried", s.Retried,
		"dropped", s.Dropped,
		"avg_send", s.AverageDuration,
		"max_send", s.MaxDuration,
	)

	return nil
}

func (w *Worker) loop(stop, workCtx context.Context) {
	for {
		select {
		case <-stop.Done():
			return
		default:
		}

		if _, err := w.ProcessOne(workCtx); err != nil {
			w.log.Error("worker.process_failed", "err", err)

			// queue trouble; avoid spinning on a dead connection
			select {
			case <-stop.Done():
				return
			case <-time.After(w.cfg.PollTimeout):
			}
		}
	}
}

func (w *Worker) maintenance(ctx context.Context) {
	promote := time.NewTicker(w.cfg.PromoteInterval)
	defer promote.Stop()

	var pruneC <-chan time.Time
	if w.pruner != nil && w.cfg.PruneInterval > 0 {
		prune := time.NewTicker(w.cfg.PruneInterval)
		defer prune.Stop()
		pruneC = prune.C
	}

	for {
		select {
		case <-ctx.Done():
			return

		case <-promote.C:
			if n, err := w.queue.PromoteDue(ctx); err != nil {
				w.log.Error("worker.promote_failed", "err", err)
			} else if n > 0 {
				w.log.Debug("worker.promoted", "count", n)
			}

		case <-pruneC:
			w.PruneTokens(ctx)
		}
	}
}

// PruneTokens deletes expired refresh-token records.
func (w *Worker) PruneTokens(ctx context.Context) {
	if w.pruner == nil {
		return
	}

	n, err := w.pruner.DeleteExpired(ctx, w.now())
	if err != nil {
		w.log.Error("worker.prune_failed", "err", err)
		return
	}
	if n > 0 {
		w.log.Info("worker.pruned_refresh_tokens", "count", n)
	}
}

func (w *Worker) setReady(v bool) {
	w.readyMu.Lock()
	w.ready = v
	w.readyMu.Unlock()
}

func (w *Worker) isReady() bool {
	w.readyMu.RLock()
	defer w.readyMu.RUnlock()
	return w.ready
}
