package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"account_service/internal/model"
	"account_service/internal/service"
	"account_service/internal/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	AuthSubjectKey = "authSubject"
	AuthUserKey    = "authUser"
)

// UserResolver loads the active user behind a token subject.
type UserResolver interface {
	CurrentUser(ctx context.Context, subject string) (*model.User, error)
}

func unauthorized(c *gin.Context, message string) {
	c.Header("WWW-Authenticate", "Bearer")
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": message})
}

// JWTAuthMiddleware creates a middleware for JWT authentication
func JWTAuthMiddleware(jwtUtil *utils.JWTUtil) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			unauthorized(c, "Not authenticated")
			return
		}

		scheme, tokenString, ok := strings.Cut(authHeader, " ")
		if !ok || !strings.EqualFold(scheme, "bearer") || tokenString == "" {
			unauthorized(c, "Not authenticated")
			return
		}

		subject, err := jwtUtil.ValidateToken(tokenString)
		if err != nil {
			unauthorized(c, service.ErrUnauthenticated.Error())
			return
		}

		c.Set(AuthSubjectKey, subject)
		c.Next()
	}
}

// ActiveUserMiddleware resolves the token subject to an active user.
// It must run after JWTAuthMiddleware.
func ActiveUserMiddleware(users UserResolver, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		subject := c.GetString(AuthSubjectKey)
		if subject == "" {
			unauthorized(c, service.ErrUnauthenticated.Error())
			return
		}

		user, err := users.CurrentUser(c.Request.Context(), subject)
		switch {
		case err == nil:
		case errors.Is(err, service.ErrUnauthenticated):
			unauthorized(c, err.Error())
			return
		case errors.Is(err, service.ErrInactiveUser):
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": err.Error()})
			return
		default:
			log.Error("failed to resolve current user", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			return
		}

		c.Set(AuthUserKey, user)
		c.Next()
	}
}

// CurrentUser returns the user stored by ActiveUserMiddleware.
func CurrentUser(c *gin.Context) (*model.User, bool) {
	v, ok := c.Get(AuthUserKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*model.User)
	return user, ok && user != nil
}
