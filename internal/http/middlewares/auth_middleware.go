package middlewares

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/geocoder89/authhub/internal/actorctx"
	"github.com/geocoder89/authhub/internal/auth"
	"github.com/gin-gonic/gin"
)

// Keep these small so tests can fake them easily.
type AccessVerifier interface {
	VerifyAccessToken(ctx context.Context, token string) (*auth.Claims, error)
}

type RefreshVerifier interface {
	VerifyRefreshToken(token string) (*auth.Claims, error)
}

type RevocationChecker interface {
	IsRevoked(ctx context.Context, jti, sub string) bool
}

type AuthMiddleware struct {
	access      AccessVerifier
	refresh     RefreshVerifier
	revocations RevocationChecker
	log         *slog.Logger
}

func NewAuthMiddleware(access AccessVerifier, refresh RefreshVerifier, revocations RevocationChecker, log *slog.Logger) *AuthMiddleware {
	if log == nil {
		log = slog.Default()
	}
	return &AuthMiddleware{access: access, refresh: refresh, revocations: revocations, log: log}
}

// RequireAccessToken accepts a Bearer header or, failing that, the access
// cookie. Browsers that lost their token send "Bearer undefined"; that is
// treated as no header.
func (m *AuthMiddleware) RequireAccessToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := accessTokenFrom(c)
		if raw == "" {
			abortWithError(c, http.StatusUnauthorized, "missing access token")
			return
		}

		claims, err := m.access.VerifyAccessToken(c.Request.Context(), raw)
		if err != nil {
			m.log.InfoContext(c.Request.Context(), "auth.access_rejected", "error", err)
			abortWithError(c, http.StatusUnauthorized, "invalid or expired access token")
			return
		}

		p := actorctx.Principal{UserID: claims.Subject, Role: claims.Role}

		c.Set(CtxAccessClaims, claims)
		c.Set(CtxPrincipal, p)
		c.Request = c.Request.WithContext(actorctx.WithPrincipal(c.Request.Context(), p))

		c.Next()
	}
}

// RequireRefreshToken reads the refresh cookie only. A token with a valid
// signature whose record is gone counts as revoked.
func (m *AuthMiddleware) RequireRefreshToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := c.Cookie(RefreshCookie)
		if err != nil || raw == "" {
			abortWithError(c, http.StatusUnauthorized, "missing refresh token")
			return
		}

		claims, err := m.refresh.VerifyRefreshToken(raw)
		if err != nil {
			m.log.InfoContext(c.Request.Context(), "auth.refresh_rejected", "error", err)
			abortWithError(c, http.StatusUnauthorized, "invalid or expired refresh token")
			return
		}

		if m.revocations.IsRevoked(c.Request.Context(), claims.ID, claims.Subject) {
			m.log.InfoContext(c.Request.Context(), "auth.refresh_revoked", "user_id", claims.Subject)
			abortWithError(c, http.StatusUnauthorized, "refresh token has been revoked")
			return
		}

		c.Set(CtxRefreshClaims, claims)

		// refresh-only routes still need a principal for logging
		if _, ok := PrincipalFromContext(c); !ok {
			p := actorctx.Principal{UserID: claims.Subject, Role: claims.Role}
			c.Set(CtxPrincipal, p)
			c.Request = c.Request.WithContext(actorctx.WithPrincipal(c.Request.Context(), p))
		}

		c.Next()
	}
}

// RejectIfLoggedIn stops a login when the caller already holds a refresh
// token that verifies.
func (m *AuthMiddleware) RejectIfLoggedIn() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := c.Cookie(RefreshCookie)
		if err == nil && raw != "" {
			if _, err := m.refresh.VerifyRefreshToken(raw); err == nil {
				abortWithError(c, http.StatusBadRequest, "user already logged in")
				return
			}
		}
		c.Next()
	}
}

func accessTokenFrom(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		raw := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		if raw != "" && raw != "undefined" {
			return raw
		}
	}

	raw, err := c.Cookie(AccessCookie)
	if err != nil {
		return ""
	}
	return raw
}

// Helpers so handlers don't need to know the keys.

func PrincipalFromContext(c *gin.Context) (actorctx.Principal, bool) {
	v, ok := c.Get(CtxPrincipal)
	if !ok {
		return actorctx.Principal{}, false
	}
	p, ok := v.(actorctx.Principal)
	return p, ok && p.UserID != ""
}

func AccessClaimsFromContext(c *gin.Context) (*auth.Claims, bool) {
	return claimsFrom(c, CtxAccessClaims)
}

func RefreshClaimsFromContext(c *gin.Context) (*auth.Claims, bool) {
	return claimsFrom(c, CtxRefreshClaims)
}

func claimsFrom(c *gin.Context, key string) (*auth.Claims, bool) {
	v, ok := c.Get(key)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*auth.Claims)
	return claims, ok && claims != nil
}
