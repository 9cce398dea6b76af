package worker

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/geocoder89/authhub/internal/jobs"
	"github.com/geocoder89/authhub/internal/notifications"
	"github.com/geocoder89/authhub/internal/observability"
	"github.com/geocoder89/authhub/internal/queue/mailqueue"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

type fakeQueue struct {
	dequeueFn func(ctx context.Context, timeout time.Duration) (jobs.Job, error)
	retried   []jobs.Job
	delays    []time.Duration
	retryErr  error
}

func (f *fakeQueue) Dequeue(ctx context.Context, timeout time.Duration) (jobs.Job, error) {
	return f.dequeueFn(ctx, timeout)
}

func (f *fakeQueue) Retry(ctx context.Context, j jobs.Job, delay time.Duration) error {
	f.retried = append(f.retried, j)
	f.delays = append(f.delays, delay)
	return f.retryErr
}

func (f *fakeQueue) PromoteDue(ctx context.Context) (int, error) {
	return 0, nil
}

type fakeMailer struct {
	mu     sync.Mutex
	sent   []notifications.Message
	sendFn func(msg notifications.Message) error
}

func (f *fakeMailer) SendMail(ctx context.Context, msg notifications.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.sendFn != nil {
		if err := f.sendFn(msg); err != nil {
			return err
		}
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeMailer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func mailJob(t *testing.T, attempts, maxAttempts int) jobs.Job {
	t.Helper()

	b, err := jobs.EncodePayload(jobs.JobSendMail, jobs.SendMailPayload{To: "a@b.com", Subject: "Verify", HTML: "<p>1234</p>"})
	if err != nil {
		t.Fatalf("EncodePayload: %v", err)
	}
	j, err := jobs.NewJob(jobs.JobSendMail, b, maxAttempts)
	if err != nil {
		t.Fatalf("NewJob: %v", err)
	}
	j.Attempts = attempts
	return j
}

func oneJob(j jobs.Job) func(context.Context, time.Duration) (jobs.Job, error) {
	return func(context.Context, time.Duration) (jobs.Job, error) { return j, nil }
}

func newTestWorker(q Queue, m notifications.Mailer) *Worker {
	w := New(Config{WorkerID: "test"}, Deps{Queue: q, Mailer: m})
	w.backoff = func(attempt int) time.Duration { return time.Duration(attempt+1) * time.Second }
	return w
}

func TestProcessOne_Sends(t *testing.T) {
	q := &fakeQueue{dequeueFn: oneJob(mailJob(t, 0, 3))}
	m := &fakeMailer{}
	w := newTestWorker(q, m)

	took, err := w.ProcessOne(context.Background())
	if err != nil || !took {
		t.Fatalf("expected job taken without error, took=%v err=%v", took, err)
	}

	if m.count() != 1 || m.sent[0].To != "a@b.com" {
		t.Fatalf("expected one delivery to a@b.com, got %+v", m.sent)
	}

	s := w.stats.Snapshot()
	if s.Received != 1 || s.Sent != 1 || s.Retried != 0 {
		t.Fatalf("unexpected stats %+v", s)
	}
}

func TestProcessOne_Empty(t *testing.T) {
	q := &fakeQueue{dequeueFn: func(context.Context, time.Duration) (jobs.Job, error) {
		return jobs.Job{}, mailqueue.ErrEmpty
	}}
	w := newTestWorker(q, &fakeMailer{})

	took, err := w.ProcessOne(context.Background())
	if err != nil || took {
		t.Fatalf("empty queue: took=%v err=%v", took, err)
	}
}

func TestProcessOne_QueueError(t *testing.T) {
	q := &fakeQueue{dequeueFn: func(context.Context, time.Duration) (jobs.Job, error) {
		return jobs.Job{}, errors.New("connection refused")
	}}
	w := newTestWorker(q, &fakeMailer{})

	if _, err := w.ProcessOne(context.Background()); err == nil {
		t.Fatalf("expected queue error to surface")
	}
}

func TestProcessOne_FailureOutcomes(t *testing.T) {
	smtpDown := errors.New("smtp down")

	tests := []struct {
		name        string
		job         jobs.Job
		sendErr     error
		wantRetry   bool
		wantDelay   time.Duration
		wantDropped uint64
	}{
		{
			name:      "first failure is retried",
			job:       mailJob(t, 0, 3),
			sendErr:   smtpDown,
			wantRetry: true,
			wantDelay: time.Second,
		},
		{
			name:      "second failure backs off further",
			job:       mailJob(t, 1, 3),
			sendErr:   smtpDown,
			wantRetry: true,
			wantDelay: 2 * time.Second,
		},
		{
			name:        "last attempt is dropped",
			job:         mailJob(t, 2, 3),
			sendErr:     smtpDown,
			wantDropped: 1,
		},
		{
			name:        "invalid message is dropped at once",
			job:         mailJob(t, 0, 3),
			sendErr:     notifications.ErrInvalidMessage,
			wantDropped: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := &fakeQueue{dequeueFn: oneJob(tt.job)}
			m := &fakeMailer{sendFn: func(notifications.Message) error { return tt.sendErr }}
			w := newTestWorker(q, m)

			if _, err := w.ProcessOne(context.Background()); err != nil {
				t.Fatalf("delivery failures must not surface, got %v", err)
			}

			if tt.wantRetry {
				if len(q.retried) != 1 {
					t.Fatalf("expected one retry, got %d", len(q.retried))
				}
				if q.delays[0] != tt.wantDelay {
					t.Fatalf("expected delay %s, got %s", tt.wantDelay, q.delays[0])
				}
				if q.retried[0].Attempts != tt.job.Attempts+1 || q.retried[0].LastError == nil {
					t.Fatalf("retry must count the attempt and keep the error: %+v", q.retried[0])
				}
			} else if len(q.retried) != 0 {
				t.Fatalf("expected no retry, got %d", len(q.retried))
			}

			if got := w.stats.Snapshot().Dropped; got != tt.wantDropped {
				t.Fatalf("expected dropped=%d, got %d", tt.wantDropped, got)
			}
		})
	}
}

func TestProcessOne_RetryParkFails(t *testing.T) {
	q := &fakeQueue{dequeueFn: oneJob(mailJob(t, 0, 3)), retryErr: errors.New("redis down")}
	m := &fakeMailer{sendFn: func(notifications.Message) error { return errors.New("smtp down") }}
	w := newTestWorker(q, m)

	if _, err := w.ProcessOne(context.Background()); err == nil {
		t.Fatalf("expected retry error to surface")
	}
	if w.stats.Snapshot().Dropped != 1 {
		t.Fatalf("job that cannot be parked counts as dropped")
	}
}

type fakePruner struct {
	calls int
	n     int64
	err   error
}

func (f *fakePruner) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	f.calls++
	return f.n, f.err
}

func TestPruneTokens(t *testing.T) {
	p := &fakePruner{n: 3}
	w := New(Config{}, Deps{Queue: &fakeQueue{}, Mailer: &fakeMailer{}, Pruner: p})

	w.PruneTokens(context.Background())

	if p.calls != 1 {
		t.Fatalf("expected one prune call, got %d", p.calls)
	}
}

func TestHealthHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := New(Config{}, Deps{Queue: &fakeQueue{}, Mailer: &fakeMailer{}})
	h := w.HealthHandler()

	get := func(path string) int {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec.Code
	}

	if code := get("/healthz"); code != http.StatusOK {
		t.Fatalf("healthz: expected 200, got %d", code)
	}
	if code := get("/readyz"); code != http.StatusServiceUnavailable {
		t.Fatalf("readyz before Run: expected 503, got %d", code)
	}

	w.setReady(true)
	if code := get("/readyz"); code != http.StatusOK {
		t.Fatalf("readyz when running: expected 200, got %d", code)
	}
}

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempt int
		min     time.Duration
	}{
		{0, 2 * time.Second},
		{1, 4 * time.Second},
		{2, 8 * time.Second},
		{20, 5 * time.Minute},
	}

	for _, tt := range tests {
		got := ExponentialBackoff(tt.attempt)
		if got < tt.min || got >= tt.min+250*time.Millisecond {
			t.Fatalf("attempt %d: expected [%s, %s), got %s", tt.attempt, tt.min, tt.min+250*time.Millisecond, got)
		}
	}
}

func TestRun_DeliversFromRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	q := mailqueue.New(rdb, "test:mail")
	if err := q.Enqueue(context.Background(), mailJob(t, 0, 3)); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	m := &fakeMailer{}
	stats := observability.NewMailStats()
	w := New(Config{WorkerID: "it", PollTimeout: time.Second}, Deps{Queue: q, Mailer: m, Stats: stats})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	deadline := time.Now().Add(3 * time.Second)
	for m.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	cancel()

	if err := <-done; err != nil {
		t.Fatalf("Run returned %v", err)
	}
	if m.count() != 1 {
		t.Fatalf("expected one delivery, got %d", m.count())
	}
	if stats.Snapshot().Sent != 1 {
		t.Fatalf("expected sent=1, got %+v", stats.Snapshot())
	}
}
