package controllers

import (
	"errors"
	"net/http"

	"github.com/franciscosanchezn/gin-recipes-api/internal/models"
	"github.com/franciscosanchezn/gin-recipes-api/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

var log = logrus.New()

func init() {
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetLevel(logrus.InfoLevel)
}

// retryAfterSeconds is advertised on 503 responses caused by store contention
const retryAfterSeconds = "1"

// respondWithError maps service errors onto HTTP responses
func respondWithError(ctx *gin.Context, err error) {
	var (
		validationErr *services.ValidationError
		conflictErr   *services.ConflictError
		notFoundErr   *services.NotFoundError
		authErr       *services.AuthorizationError
		transientErr  *services.TransientStoreError
	)

	switch {
	case errors.As(err, &validationErr):
		ctx.JSON(http.StatusBadRequest, models.NewAPIError(models.ErrValidationFailed, validationErr.Error(),
			map[string]interface{}{"field": validationErr.Field}))
	case errors.As(err, &conflictErr):
		ctx.JSON(http.StatusConflict, models.NewAPIError(models.ErrConflict, conflictErr.Error()))
	case errors.As(err, &notFoundErr):
		details := map[string]interface{}{"entity": notFoundErr.Entity}
		if len(notFoundErr.IDs) > 0 {
			details["ids"] = notFoundErr.IDs
		}
		ctx.JSON(http.StatusNotFound, models.NewAPIError(models.ErrNotFound, notFoundErr.Error(), details))
	case errors.As(err, &authErr):
		ctx.JSON(http.StatusForbidden, models.NewAPIError(models.ErrForbidden, authErr.Error()))
	case errors.As(err, &transientErr):
		log.WithError(err).WithField("path", ctx.FullPath()).Warn("Store temporarily unavailable")
		ctx.Header("Retry-After", retryAfterSeconds)
		ctx.JSON(http.StatusServiceUnavailable, models.NewAPIError(models.ErrStoreUnavailable,
			"The store is busy, retry the request"))
	default:
		log.WithError(err).WithField("path", ctx.FullPath()).Error("Unhandled error")
		ctx.JSON(http.StatusInternalServerError, models.NewAPIError(models.ErrInternalServer, "Internal server error"))
	}
}

func respondBadRequest(ctx *gin.Context, message string) {
	ctx.JSON(http.StatusBadRequest, models.NewAPIError(models.ErrBadRequest, message))
}
