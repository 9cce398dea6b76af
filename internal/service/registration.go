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

type SendOtpInput struct {
	FullName        string
	Email           string
	Password        string
	ConfirmPassword string
}

type SendOtpResult struct {
	Email    string `json:"email"`
	HashOtp  string `json:"hashOtp"`
	FullName string `json:"fullName"`
	Otp      *int   `json:"otp,omitempty"`
}

type VerifyOtpInput struct {
	FullName string
	Email    string
	HashOtp  string
	Otp      string
}

type RegistrarConfig struct {
	// ExposeOTP echoes the raw code in the send-otp response.
	ExposeOTP bool
	// SyncMail sends OTP mail on the calling goroutine.
	SyncMail bool
}

// Registrar runs the two-step registration. Between the steps all state lives
// in the signed ticket the client replays; nothing is written until verify
// succeeds, and the user insert is the only write.
type Registrar struct {
	users   UserStore
	hasher  PasswordHasher
	otp     *otp.Engine
	issuer  *TokenIssuer
	mail    otpMailer
	metrics Metrics
	log     *slog.Logger
	cfg     RegistrarConfig
}

func NewRegistrar(users UserStore, hasher PasswordHasher, engine *otp.Engine, issuer *TokenIssuer, mailer notifications.Mailer, metrics Metrics, log *slog.Logger, cfg RegistrarConfig) *Registrar {
	if log == nil {
		log = slog.Default()
	}
	return &Registrar{
		users:   users,
		hasher:  hasher,
		otp:     engine,
		issuer:  issuer,
		mail:    otpMailer{mailer: mailer, log: log, async: !cfg.SyncMail},
		metrics: metricsOrNoop(metrics),
		log:     log,
		cfg:     cfg,
	}
}

func (r *Registrar) SendOtp(ctx context.Context, in SendOtpInput) (SendOtpResult, error) {
	res, err := r.sendOtp(ctx, in)
	r.metrics.AuthEvent("send_otp", outcome(err))
	return res, err
}

func (r *Registrar) sendOtp(ctx context.Context, in SendOtpInput) (SendOtpResult, error) {
	if in.Password != in.ConfirmPassword {
		return SendOtpResult{}, ErrPasswordMismatch
	}

	exists, err := r.users.ExistsByEmail(ctx, in.Email)
	if err != nil {
		return SendOtpResult{}, fmt.Errorf("check email: %w", err)
	}
	if exists {
		return SendOtpResult{}, user.ErrEmailTaken
	}

	hash, err := r.hasher.Hash(in.Password)
	if err != nil {
		return SendOtpResult{}, err
	}

	ticket, err := r.otp.IssueRegistration(in.Email, hash)
	if err != nil {
		return SendOtpResult{}, err
	}

	r.mail.send(ctx, in.Email, in.FullName, ticket.Code, notifications.PurposeRegistration)
	r.log.InfoContext(ctx, "auth.otp_sent", "email", in.Email)

	res := SendOtpResult{
		Email:    in.Email,
		HashOtp:  ticket.Token,
		FullName: in.FullName,
	}
	if r.cfg.ExposeOTP {
		code := ticket.Code
		res.Otp = &code
	}
	return res, nil
}

// VerifyOtp creates the customer and issues its first token pair. A
// concurrent verify for the same email loses at the unique constraint and
// gets user.ErrEmailTaken.
func (r *Registrar) VerifyOtp(ctx context.Context, in VerifyOtpInput) (user.User, Tokens, error) {
	u, tokens, err := r.verifyOtp(ctx, in)
	r.metrics.AuthEvent("verify_otp", outcome(err))
	return u, tokens, err
}

func (r *Registrar) verifyOtp(ctx context.Context, in VerifyOtpInput) (user.User, Tokens, error) {
	exists, err := r.users.ExistsByEmail(ctx, in.Email)
	if err != nil {
		return user.User{}, Tokens{}, fmt.Errorf("check email: %w", err)
	}
	if exists {
		return user.User{}, Tokens{}, user.ErrEmailTaken
	}

	passwordHash, err := r.otp.VerifyRegistration(in.HashOtp, in.Otp, in.Email)
	if err != nil {
		return user.User{}, Tokens{}, err
	}

	// the ticket carries the hash from step one; it is stored as is
	u, err := r.users.Create(ctx, user.CreateParams{
		FullName:     in.FullName,
		Email:        in.Email,
		PasswordHash: passwordHash,
		Role:         user.RoleCustomer,
	})
	if err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			return user.User{}, Tokens{}, err
		}
		return user.User{}, Tokens{}, fmt.Errorf("create user: %w", err)
	}

	tokens, err := r.issuer.Issue(ctx, u)
	if err != nil {
		return user.User{}, Tokens{}, err
	}

	r.log.InfoContext(ctx, "auth.registered", "user_id", u.ID, "email", u.Email)
	return u, tokens, nil
}

// outcome turns an error into a metric label.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrPasswordMismatch):
		return "password_mismatch"
	case errors.Is(err, user.ErrEmailTaken):
		return "email_taken"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrEmailNotRegistered):
		return "email_not_registered"
	case errors.Is(err, otp.ErrMalformed):
		return "otp_malformed"
	case errors.Is(err, otp.ErrExpired):
		return "otp_expired"
	case errors.Is(err, otp.ErrInvalid):
		return "otp_invalid"
	case errors.Is(err, user.ErrNotFound):
		return "user_not_found"
	default:
		return "error"
	}
}
