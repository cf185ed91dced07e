package controllers

import (
	"strconv"

	"github.com/franciscosanchezn/gin-recipes-api/internal/middleware"
	"github.com/gin-gonic/gin"
)

// parseID reads a positive numeric path parameter, answering 400 when it is malformed
func parseID(ctx *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(ctx.Param(name), 10, 32)
	if err != nil || id == 0 {
		respondBadRequest(ctx, "Invalid "+name+" format")
		return 0, false
	}
	return uint(id), true
}

// callerID returns the authenticated user or 0 for anonymous requests
func callerID(ctx *gin.Context) uint {
	userID, _ := middleware.UserID(ctx)
	return userID
}

// queryFlag reads boolean query flags written as 1/0 or true/false
func queryFlag(ctx *gin.Context, name string) bool {
	value, err := strconv.ParseBool(ctx.Query(name))
	return err == nil && value
}

// recipesLimit reads ?recipes_limit; anything but a non-negative integer means no limit
func recipesLimit(ctx *gin.Context) *int {
	limit, err := strconv.Atoi(ctx.Query("recipes_limit"))
	if err != nil || limit < 0 {
		return nil
	}
	return &limit
}
