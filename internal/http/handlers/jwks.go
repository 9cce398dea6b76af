package handlers

import (
	"net/http"

	"github.com/geocoder89/authhub/internal/auth"
	"github.com/gin-gonic/gin"
)

type KeyPublisher interface {
	PublishedKeys() auth.JWKSet
}

// JWKS serves GET /.well-known/jwks.json.
func JWKS(keys KeyPublisher) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ctx.Header("Cache-Control", "public, max-age=300")
		RespondJSONWithETag(ctx, http.StatusOK, keys.PublishedKeys())
	}
}
