package handler

import (
	"errors"
	"net/http"

	"account_service/internal/repository"
	"account_service/internal/service"
	"account_service/internal/validation"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// respondError maps service errors to HTTP responses. Unknown errors are
// logged and reported as 500 without detail.
func respondError(c *gin.Context, log *zap.Logger, err error) {
	var verrs validation.Errors
	var conflict *repository.ConflictError
	switch {
	case errors.As(err, &verrs):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "validation failed", "details": verrs})
	case errors.As(err, &conflict):
		c.JSON(http.StatusBadRequest, gin.H{"error": conflict.Error(), "field": conflict.Field})
	case errors.Is(err, service.ErrNoUpdateData):
		c.JSON(http.StatusBadRequest, gin.H{"error": service.ErrNoUpdateData.Error()})
	case errors.Is(err, service.ErrAvatarDecode):
		c.JSON(http.StatusBadRequest, gin.H{"error": service.ErrAvatarDecode.Error()})
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusBadRequest, gin.H{"error": service.ErrInvalidCredentials.Error()})
	case errors.Is(err, service.ErrUnauthenticated):
		c.Header("WWW-Authenticate", "Bearer")
		c.JSON(http.StatusUnauthorized, gin.H{"error": service.ErrUnauthenticated.Error()})
	case errors.Is(err, service.ErrInactiveUser):
		c.JSON(http.StatusForbidden, gin.H{"error": service.ErrInactiveUser.Error()})
	default:
		_ = c.Error(err)
		log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// badPayload answers a body that could not be bound at all.
func badPayload(c *gin.Context, err error) {
	c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid request: " + err.Error()})
}
