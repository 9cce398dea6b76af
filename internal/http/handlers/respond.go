package handlers

import (
	"errors"
	"net/http"

	"github.com/geocoder89/authhub/internal/auth"
	"github.com/geocoder89/authhub/internal/domain/tenant"
	"github.com/geocoder89/authhub/internal/domain/token"
	"github.com/geocoder89/authhub/internal/domain/user"
	"github.com/geocoder89/authhub/internal/http/middlewares"
	"github.com/geocoder89/authhub/internal/otp"
	"github.com/geocoder89/authhub/internal/service"
	"github.com/gin-gonic/gin"
)

// RespondError writes the uniform envelope with a single item.
func RespondError(ctx *gin.Context, status int, message string) {
	RespondErrors(ctx, status, []middlewares.ErrorItem{{
		Type: middlewares.ErrorType(status),
		Msg:  message,
	}})
}

func RespondErrors(ctx *gin.Context, status int, items []middlewares.ErrorItem) {
	ctx.AbortWithStatusJSON(status, gin.H{"error": items})
}

func RespondBadRequest(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusBadRequest, message)
}

func RespondInternal(ctx *gin.Context, err error) {
	// the request logger prints ctx.Errors; the client only sees a generic message
	_ = ctx.Error(err)
	RespondError(ctx, http.StatusInternalServerError, "internal server error")
}

// RespondAppError translates service and domain errors. Anything it does not
// know is a 500 and its text never reaches the client.
func RespondAppError(ctx *gin.Context, err error) {
	status, msg := classify(err)
	if status >= http.StatusInternalServerError {
		RespondInternal(ctx, err)
		return
	}
	RespondError(ctx, status, msg)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrPasswordMismatch):
		return http.StatusBadRequest, "confirm password does not match password"
	case errors.Is(err, user.ErrEmailTaken):
		return http.StatusConflict, "this email is already registered"
	case errors.Is(err, otp.ErrMalformed):
		return http.StatusBadRequest, "otp token is malformed"
	case errors.Is(err, otp.ErrExpired):
		return http.StatusRequestTimeout, "otp is expired"
	case errors.Is(err, otp.ErrInvalid):
		return http.StatusBadRequest, "otp is invalid"
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusBadRequest, "email or password does not match"
	case errors.Is(err, service.ErrEmailNotRegistered):
		return http.StatusUnauthorized, "this email is not registered"
	case errors.Is(err, token.ErrNotFound), errors.Is(err, service.ErrInvalidSubject):
		return http.StatusUnauthorized, "invalid or revoked token"
	case errors.Is(err, user.ErrNotFound):
		return http.StatusBadRequest, "user not found"
	case errors.Is(err, tenant.ErrNotFound):
		return http.StatusBadRequest, "tenant not found"
	case errors.Is(err, user.ErrInvalidRole):
		return http.StatusBadRequest, "invalid role"
	case errors.Is(err, otp.ErrSecretMissing),
		errors.Is(err, auth.ErrSigningKeyMissing),
		errors.Is(err, auth.ErrRefreshSecretMissing):
		return http.StatusInternalServerError, "server is misconfigured"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}
