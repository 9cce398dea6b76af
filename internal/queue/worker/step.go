package worker

import (
	"context"
	"errors"
	"time"

	"github.com/geocoder89/authhub/internal/jobs"
	"github.com/geocoder89/authhub/internal/notifications"
	"github.com/geocoder89/authhub/internal/queue/mailqueue"
)

// ProcessOne takes at most one job off the queue. It reports whether a job
// was taken; the error is only for queue failures, never for delivery
// failures, which are retried or dropped here.
func (w *Worker) ProcessOne(ctx context.Context) (bool, error) {
	j, err := w.queue.Dequeue(ctx, w.cfg.PollTimeout)
	if err != nil {
		if errors.Is(err, mailqueue.ErrEmpty) {
			return false, nil
		}
		if errors.Is(err, jobs.ErrInvalidJob) || errors.Is(err, jobs.ErrInvalidJobType) {
			w.stats.IncReceived()
			w.drop(ctx, jobs.Job{}, err, 0)
			return true, nil
		}
		return false, err
	}

	w.stats.IncReceived()

	start := w.now()
	err = w.execute(ctx, j)
	took := w.now().Sub(start)
	w.stats.ObserveDuration(took)

	if err != nil {
		return true, w.handleFailure(ctx, j, err, took)
	}

	w.stats.IncSent()
	w.prom.ObserveMail("sent", took)
	w.log.InfoContext(ctx, "mail.sent", "job_id", j.ID, "attempt", j.Attempts+1)

	return true, nil
}

func (w *Worker) execute(ctx context.Context, j jobs.Job) error {
	decoded, err := jobs.DecodePayload(j)
	if err != nil {
		return err
	}

	switch p := decoded.(type) {
	case jobs.SendMailPayload:
		defer w.prom.TrackMailInFlight()()

		return w.mailer.SendMail(ctx, notifications.Message{
			To:      p.To,
			Subject: p.Subject,
			HTML:    p.HTML,
		})
	default:
		return jobs.ErrInvalidJobType
	}
}

func (w *Worker) handleFailure(ctx context.Context, j jobs.Job, cause error, took time.Duration) error {
	j = j.Failed(cause)

	if permanent(cause) || j.Exhausted() {
		w.drop(ctx, j, cause, took)
		return nil
	}

	delay := w.backoff(j.Attempts - 1)

	if err := w.queue.Retry(ctx, j, delay); err != nil {
		// the job is lost if it cannot be parked
		w.drop(ctx, j, cause, took)
		return err
	}

	w.stats.IncRetried()
	w.prom.ObserveMail("retry", took)
	w.log.WarnContext(ctx, "mail.retry_scheduled",
		"job_id", j.ID,
		"attempt", j.Attempts,
		"max_attempts", j.MaxAttempts,
		"delay", delay,
		"err", cause,
	)

	return nil
}

func (w *Worker) drop(ctx context.Context, j jobs.Job, cause error, took time.Duration) {
	w.stats.IncDropped()
	w.prom.ObserveMail("dropped", took)
	w.log.ErrorContext(ctx, "mail.dropped",
		"job_id", j.ID,
		"attempts", j.Attempts,
		"err", cause,
	)
}

// permanent failures will never succeed on retry.
func permanent(err error) bool {
	return errors.Is(err, notifications.ErrInvalidMessage) ||
		errors.Is(err, jobs.ErrInvalidJobPayload) ||
		errors.Is(err, jobs.ErrInvalidJobType)
}
