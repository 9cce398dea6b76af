package handlers

import (
	"net/http"
	"strconv"

	"github.com/geocoder89/authhub/internal/utils"
	"github.com/gin-gonic/gin"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

type page struct {
	AfterID int64
	Limit   int
}

// parsePage reads ?limit and ?cursor. Callers ask the store for Limit+1 rows
// so they know whether another page exists.
func parsePage(ctx *gin.Context) (page, bool) {
	limit := defaultPageLimit
	if raw := ctx.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			RespondBadRequest(ctx, "limit must be a positive integer")
			return page{}, false
		}
		limit = min(n, maxPageLimit)
	}

	afterID, err := utils.DecodeIDCursor(ctx.Query("cursor"))
	if err != nil {
		RespondBadRequest(ctx, "invalid cursor")
		return page{}, false
	}

	return page{AfterID: afterID, Limit: limit}, true
}

// nextCursor trims the look-ahead row and returns the cursor for the next
// page, or nil on the last one.
func nextCursor(n, limit int, lastID func(i int) int64) (int, *string) {
	if n <= limit {
		return n, nil
	}
	c, err := utils.EncodeIDCursor(lastID(limit - 1))
	if err != nil {
		return limit, nil
	}
	return limit, &c
}

func parseIDParam(ctx *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		RespondError(ctx, http.StatusBadRequest, "invalid id param")
		return 0, false
	}
	return id, true
}
