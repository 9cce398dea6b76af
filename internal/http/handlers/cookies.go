package handlers

import (
	"net/http"

	"github.com/geocoder89/authhub/internal/http/middlewares"
	"github.com/geocoder89/authhub/internal/service"
	"github.com/gin-gonic/gin"
)

// The access cookie outlives the 1h token it carries; an expired token in a
// live cookie simply fails verification.
const (
	accessCookieMaxAge  = 24 * 60 * 60
	refreshCookieMaxAge = 365 * 24 * 60 * 60
)

type CookieConfig struct {
	Domain string
	Secure bool
}

func (cc CookieConfig) setTokens(ctx *gin.Context, tokens service.Tokens) {
	ctx.SetSameSite(http.SameSiteStrictMode)
	ctx.SetCookie(middlewares.AccessCookie, tokens.Access, accessCookieMaxAge, "/", cc.Domain, cc.Secure, true)
	ctx.SetCookie(middlewares.RefreshCookie, tokens.Refresh, refreshCookieMaxAge, "/", cc.Domain, cc.Secure, true)
}

func (cc CookieConfig) clearTokens(ctx *gin.Context) {
	ctx.SetSameSite(http.SameSiteStrictMode)
	ctx.SetCookie(middlewares.AccessCookie, "", -1, "/", cc.Domain, cc.Secure, true)
	ctx.SetCookie(middlewares.RefreshCookie, "", -1, "/", cc.Domain, cc.Secure, true)
}
