package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/geocoder89/authhub/internal/auth"
	"github.com/geocoder89/authhub/internal/domain/token"
	"github.com/geocoder89/authhub/internal/domain/user"
)

// Authenticator covers the session flows: login, self, refresh and logout.
type Authenticator struct {
	users   UserStore
	hasher  PasswordHasher
	issuer  *TokenIssuer
	metrics Metrics
	log     *slog.Logger
}

func NewAuthenticator(users UserStore, hasher PasswordHasher, issuer *TokenIssuer, metrics Metrics, log *slog.Logger) *Authenticator {
	if log == nil {
		log = slog.Default()
	}
	return &Authenticator{
		users:   users,
		hasher:  hasher,
		issuer:  issuer,
		metrics: metricsOrNoop(metrics),
		log:     log,
	}
}

// Login never tells an unknown email apart from a wrong password.
func (a *Authenticator) Login(ctx context.Context, email, password string) (user.User, Tokens, error) {
	u, tokens, err := a.login(ctx, email, password)
	a.metrics.AuthEvent("login", outcome(err))
	return u, tokens, err
}

func (a *Authenticator) login(ctx context.Context, email, password string) (user.User, Tokens, error) {
	u, err := a.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return user.User{}, Tokens{}, ErrInvalidCredentials
		}
		return user.User{}, Tokens{}, fmt.Errorf("load user: %w", err)
	}

	ok, err := a.hasher.Compare(password, u.PasswordHash)
	if err != nil {
		return user.User{}, Tokens{}, err
	}
	if !ok {
		return user.User{}, Tokens{}, ErrInvalidCredentials
	}

	tokens, err := a.issuer.Issue(ctx, u)
	if err != nil {
		return user.User{}, Tokens{}, err
	}

	a.log.InfoContext(ctx, "auth.login", "user_id", u.ID)
	return u, tokens, nil
}

// Self loads the user named by an access token's subject.
func (a *Authenticator) Self(ctx context.Context, sub string) (user.User, error) {
	id, err := ParseSubject(sub)
	if err != nil {
		return user.User{}, err
	}
	return a.users.GetByID(ctx, id)
}

// Refresh rotates the presented refresh token: its record is deleted and a
// fresh pair is issued. The caller has already checked revocation.
func (a *Authenticator) Refresh(ctx context.Context, claims *auth.Claims) (user.User, Tokens, error) {
	u, tokens, err := a.refresh(ctx, claims)
	a.metrics.AuthEvent("refresh", outcome(err))
	return u, tokens, err
}

func (a *Authenticator) refresh(ctx context.Context, claims *auth.Claims) (user.User, Tokens, error) {
	recordID, err := token.ParseJTI(claims.ID)
	if err != nil {
		return user.User{}, Tokens{}, err
	}

	u, err := a.Self(ctx, claims.Subject)
	if err != nil {
		return user.User{}, Tokens{}, err
	}

	tokens, err := a.issuer.Rotate(ctx, recordID, u)
	if err != nil {
		return user.User{}, Tokens{}, err
	}
	return u, tokens, nil
}

// Logout deletes the refresh record so the token is rejected on replay.
func (a *Authenticator) Logout(ctx context.Context, claims *auth.Claims) error {
	err := a.logout(ctx, claims)
	a.metrics.AuthEvent("logout", outcome(err))
	return err
}

func (a *Authenticator) logout(ctx context.Context, claims *auth.Claims) error {
	recordID, err := token.ParseJTI(claims.ID)
	if err != nil {
		return err
	}
	if err := a.issuer.Revoke(ctx, recordID); err != nil {
		return err
	}

	a.log.InfoContext(ctx, "auth.logout", "user_id", claims.Subject)
	return nil
}
