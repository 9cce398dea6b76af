package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/geocoder89/authhub/internal/domain/user"
	"github.com/geocoder89/authhub/internal/notifications"
	"github.com/geocoder89/authhub/internal/otp"
)

type ForgetPasswordResult struct {
	HashOtp string `json:"hashOtp"`
	Email   string `json:"email"`
	Otp     *int   `json:"otp,omitempty"`
}

type SetPasswordInput struct {
	Email           string
	HashOtp         string
	Otp             string
	Password        string
	ConfirmPassword string
}

type PasswordReset struct {
	users     UserStore
	hasher    PasswordHasher
	otp       *otp.Engine
	mail      otpMailer
	metrics   Metrics
	log       *slog.Logger
	exposeOTP bool
}

func NewPasswordReset(users UserStore, hasher PasswordHasher, engine *otp.Engine, mailer notifications.Mailer, metrics Metrics, log *slog.Logger, cfg RegistrarConfig) *PasswordReset {
	if log == nil {
		log = slog.Default()
	}
	return &PasswordReset{
		users:     users,
		hasher:    hasher,
		otp:       engine,
		mail:      otpMailer{mailer: mailer, log: log, async: !cfg.SyncMail},
		metrics:   metricsOrNoop(metrics),
		log:       log,
		exposeOTP: cfg.ExposeOTP,
	}
}

func (p *PasswordReset) Forget(ctx context.Context, email string) (ForgetPasswordResult, error) {
	res, err := p.forget(ctx, email)
	p.metrics.AuthEvent("forget_password", outcome(err))
	return res, err
}

func (p *PasswordReset) forget(ctx context.Context, email string) (ForgetPasswordResult, error) {
	u, err := p.lookup(ctx, email)
	if err != nil {
		return ForgetPasswordResult{}, err
	}

	ticket, err := p.otp.IssueReset(u.Email)
	if err != nil {
		return ForgetPasswordResult{}, err
	}

	p.mail.send(ctx, u.Email, u.FullName, ticket.Code, notifications.PurposePasswordReset)

	res := ForgetPasswordResult{HashOtp: ticket.Token, Email: u.Email}
	if p.exposeOTP {
		code := ticket.Code
		res.Otp = &code
	}
	return res, nil
}

// Set replaces the stored hash once the reset ticket checks out. Existing
// refresh tokens stay valid.
func (p *PasswordReset) Set(ctx context.Context, in SetPasswordInput) (user.User, error) {
	u, err := p.set(ctx, in)
	p.metrics.AuthEvent("set_password", outcome(err))
	return u, err
}

func (p *PasswordReset) set(ctx context.Context, in SetPasswordInput) (user.User, error) {
	if in.Password != in.ConfirmPassword {
		return user.User{}, ErrPasswordMismatch
	}

	u, err := p.lookup(ctx, in.Email)
	if err != nil {
		return user.User{}, err
	}

	if err := p.otp.VerifyReset(in.HashOtp, in.Otp, in.Email); err != nil {
		return user.User{}, err
	}

	hash, err := p.hasher.Hash(in.Password)
	if err != nil {
		return user.User{}, err
	}

	if err := p.users.UpdatePassword(ctx, u.ID, hash); err != nil {
		return user.User{}, fmt.Errorf("update password: %w", err)
	}
	u.PasswordHash = hash

	p.log.InfoContext(ctx, "auth.password_reset", "user_id", u.ID)
	return u, nil
}

func (p *PasswordReset) lookup(ctx context.Context, email string) (user.User, error) {
	u, err := p.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return user.User{}, ErrEmailNotRegistered
		}
		return user.User{}, fmt.Errorf("load user: %w", err)
	}
	return u, nil
}
