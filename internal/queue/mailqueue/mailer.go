package mailqueue

import (
	"context"
	"log/slog"

	"github.com/geocoder89/authhub/internal/jobs"
	"github.com/geocoder89/authhub/internal/notifications"
)

type EnqueueMetrics interface {
	MailEnqueueResult(err error)
}

type producer interface {
	Enqueue(ctx context.Context, j jobs.Job) error
}

// QueueMailer hands mail to the worker through Redis. When the push fails the
// message goes to the fallback instead, so callers only see an error when
// both paths fail.
type QueueMailer struct {
	queue       producer
	fallback    notifications.Mailer
	maxAttempts int
	metrics     EnqueueMetrics
	log         *slog.Logger
}

func NewQueueMailer(q producer, fallback notifications.Mailer, maxAttempts int, metrics EnqueueMetrics, log *slog.Logger) *QueueMailer {
	if log == nil {
		log = slog.Default()
	}
	return &QueueMailer{
		queue:       q,
		fallback:    fallback,
		maxAttempts: maxAttempts,
		metrics:     metrics,
		log:         log,
	}
}

func (m *QueueMailer) SendMail(ctx context.Context, msg notifications.Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	err := m.enqueue(ctx, msg)
	if m.metrics != nil {
		m.metrics.MailEnqueueResult(err)
	}
	if err == nil {
		return nil
	}

	m.log.ErrorContext(ctx, "mail.enqueue_failed", "to", msg.To, "subject", msg.Subject, "err", err)

	if m.fallback == nil {
		return err
	}
	return m.fallback.SendMail(ctx, msg)
}

func (m *QueueMailer) enqueue(ctx context.Context, msg notifications.Message) error {
	payload, err := jobs.EncodePayload(jobs.JobSendMail, jobs.SendMailPayload{
		To:      msg.To,
		Subject: msg.Subject,
		HTML:    msg.HTML,
	})
	if err != nil {
		return err
	}

	j, err := jobs.NewJob(jobs.JobSendMail, payload, m.maxAttempts)
	if err != nil {
		return err
	}

	return m.queue.Enqueue(ctx, j)
}
