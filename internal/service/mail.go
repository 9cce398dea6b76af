package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/geocoder89/authhub/internal/notifications"
	"github.com/geocoder89/authhub/internal/otp"
)

const mailDispatchTimeout = 10 * time.Second

// otpMailer renders OTP emails and sends them off the request path. A send
// failure is logged and never reaches the caller.
type otpMailer struct {
	mailer notifications.Mailer
	log    *slog.Logger
	async  bool
}

func (m otpMailer) send(ctx context.Context, to, name string, code int, purpose notifications.OTPPurpose) {
	if m.mailer == nil {
		return
	}

	msg, err := notifications.OTPMessage(to, name, code, otp.TTL, purpose)
	if err != nil {
		m.log.ErrorContext(ctx, "mail.render_failed", "to", to, "purpose", purpose, "err", err)
		return
	}

	deliver := func() {
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), mailDispatchTimeout)
		defer cancel()

		if err := m.mailer.SendMail(sendCtx, msg); err != nil {
			m.log.ErrorContext(sendCtx, "mail.dispatch_failed", "to", to, "purpose", purpose, "err", err)
		}
	}

	if m.async {
		go deliver()
		return
	}
	deliver()
}
