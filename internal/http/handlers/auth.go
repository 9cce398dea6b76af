package handlers

import (
	"context"
	"net/http"

	"github.com/geocoder89/authhub/internal/auth"
	"github.com/geocoder89/authhub/internal/domain/user"
	"github.com/geocoder89/authhub/internal/http/middlewares"
	"github.com/geocoder89/authhub/internal/otp"
	"github.com/geocoder89/authhub/internal/service"
	"github.com/gin-gonic/gin"
)

type Registrar interface {
	SendOtp(ctx context.Context, in service.SendOtpInput) (service.SendOtpResult, error)
	VerifyOtp(ctx context.Context, in service.VerifyOtpInput) (user.User, service.Tokens, error)
}

type SessionAuthenticator interface {
	Login(ctx context.Context, email, password string) (user.User, service.Tokens, error)
	Self(ctx context.Context, sub string) (user.User, error)
	Refresh(ctx context.Context, claims *auth.Claims) (user.User, service.Tokens, error)
	Logout(ctx context.Context, claims *auth.Claims) error
}

type PasswordResetter interface {
	Forget(ctx context.Context, email string) (service.ForgetPasswordResult, error)
	Set(ctx context.Context, in service.SetPasswordInput) (user.User, error)
}

type AuthHandler struct {
	registrar Registrar
	sessions  SessionAuthenticator
	reset     PasswordResetter
	cookies   CookieConfig
}

func NewAuthHandler(registrar Registrar, sessions SessionAuthenticator, reset PasswordResetter, cookies CookieConfig) *AuthHandler {
	return &AuthHandler{registrar: registrar, sessions: sessions, reset: reset, cookies: cookies}
}

type sendOtpRequest struct {
	FullName        string `json:"fullName" binding:"required,max=100"`
	Email           string `json:"email" binding:"required,email,max=255"`
	Password        string `json:"password" binding:"required,min=8,max=72"`
	ConfirmPassword string `json:"confirmPassword" binding:"required"`
}

type verifyOtpRequest struct {
	FullName string   `json:"fullName" binding:"required,max=100"`
	Email    string   `json:"email" binding:"required,email,max=255"`
	HashOtp  string   `json:"hashOtp" binding:"required"`
	Otp      otp.Code `json:"otp" binding:"required,min=4"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type forgetPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type setPasswordRequest struct {
	Email           string   `json:"email" binding:"required,email"`
	HashOtp         string   `json:"hashOtp" binding:"required"`
	Otp             otp.Code `json:"otp" binding:"required,min=4"`
	Password        string   `json:"password" binding:"required,min=8,max=72"`
	ConfirmPassword string   `json:"confirmPassword" binding:"required"`
}

// POST /api/auth/register/send-otp
func (h *AuthHandler) SendOtp(ctx *gin.Context) {
	var req sendOtpRequest
	if !BindJSON(ctx, &req) {
		return
	}

	res, err := h.registrar.SendOtp(ctx.Request.Context(), service.SendOtpInput{
		FullName:        req.FullName,
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		RespondAppError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, res)
}

// POST /api/auth/register/verify-otp
func (h *AuthHandler) VerifyOtp(ctx *gin.Context) {
	var req verifyOtpRequest
	if !BindJSON(ctx, &req) {
		return
	}

	u, tokens, err := h.registrar.VerifyOtp(ctx.Request.Context(), service.VerifyOtpInput{
		FullName: req.FullName,
		Email:    req.Email,
		HashOtp:  req.HashOtp,
		Otp:      string(req.Otp),
	})
	if err != nil {
		RespondAppError(ctx, err)
		return
	}

	h.cookies.setTokens(ctx, tokens)
	ctx.JSON(http.StatusCreated, gin.H{"user": u.DTO()})
}

// POST /api/auth/login
func (h *AuthHandler) Login(ctx *gin.Context) {
	var req loginRequest
	if !BindJSON(ctx, &req) {
		return
	}

	u, tokens, err := h.sessions.Login(ctx.Request.Context(), req.Email, req.Password)
	if err != nil {
		RespondAppError(ctx, err)
		return
	}

	h.cookies.setTokens(ctx, tokens)
	ctx.JSON(http.StatusOK, gin.H{"user": u.DTO()})
}

// GET /api/auth/self
func (h *AuthHandler) Self(ctx *gin.Context) {
	p, ok := middlewares.PrincipalFromContext(ctx)
	if !ok {
		RespondError(ctx, http.StatusUnauthorized, "missing identity context")
		return
	}

	u, err := h.sessions.Self(ctx.Request.Context(), p.UserID)
	if err != nil {
		RespondAppError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"user": u.DTO()})
}

// GET /api/auth/refresh
func (h *AuthHandler) Refresh(ctx *gin.Context) {
	claims, ok := middlewares.RefreshClaimsFromContext(ctx)
	if !ok {
		RespondError(ctx, http.StatusUnauthorized, "missing refresh token")
		return
	}

	u, tokens, err := h.sessions.Refresh(ctx.Request.Context(), claims)
	if err != nil {
		RespondAppError(ctx, err)
		return
	}

	h.cookies.setTokens(ctx, tokens)
	ctx.JSON(http.StatusOK, gin.H{"user": u.DTO()})
}

// GET /api/auth/logout
func (h *AuthHandler) Logout(ctx *gin.Context) {
	claims, ok := middlewares.RefreshClaimsFromContext(ctx)
	if !ok {
		RespondError(ctx, http.StatusUnauthorized, "missing refresh token")
		return
	}

	if err := h.sessions.Logout(ctx.Request.Context(), claims); err != nil {
		RespondAppError(ctx, err)
		return
	}

	h.cookies.clearTokens(ctx)
	ctx.JSON(http.StatusOK, gin.H{"user": nil})
}

// POST /api/auth/forget-password
func (h *AuthHandler) ForgetPassword(ctx *gin.Context) {
	var req forgetPasswordRequest
	if !BindJSON(ctx, &req) {
		return
	}

	res, err := h.reset.Forget(ctx.Request.Context(), req.Email)
	if err != nil {
		RespondAppError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, res)
}

// POST /api/auth/set-password
func (h *AuthHandler) SetPassword(ctx *gin.Context) {
	var req setPasswordRequest
	if !BindJSON(ctx, &req) {
		return
	}

	u, err := h.reset.Set(ctx.Request.Context(), service.SetPasswordInput{
		Email:           req.Email,
		HashOtp:         req.HashOtp,
		Otp:             string(req.Otp),
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		RespondAppError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"user": u.DTO()})
}
