package middleware

import (
	"net/http"

	"github.com/franciscosanchezn/gin-recipes-api/internal/models"
	"github.com/gin-gonic/gin"
)

// RequireAuth rejects anonymous requests. It must run after BearerIdentity.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := UserID(c); !ok {
			c.Header("WWW-Authenticate", "Bearer")
			c.JSON(http.StatusUnauthorized, models.NewAPIError(
				models.ErrUnauthorized, "Authentication credentials were not provided"))
			c.Abort()
			return
		}

		c.Next()
	}
}
