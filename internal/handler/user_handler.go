package handler

import (
	"net/http"

	"account_service/internal/middleware"
	"account_service/internal/model"
	"account_service/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// UserHandler serves the caller's own profile.
type UserHandler struct {
	service service.UserService
	log     *zap.Logger
}

func NewUserHandler(s service.UserService, log *zap.Logger) *UserHandler {
	return &UserHandler{service: s, log: log}
}

func (h *UserHandler) GetMe(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		respondError(c, h.log, service.ErrUnauthenticated)
		return
	}

	view, err := h.service.GetSelf(c.Request.Context(), user)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *UserHandler) UpdateMe(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		respondError(c, h.log, service.ErrUnauthenticated)
		return
	}

	var req model.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}

	view, err := h.service.UpdateSelf(c.Request.Context(), user, req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusAccepted, view)
}

// RegisterUserRoutes registers /users routes behind the given auth chain.
func (h *UserHandler) RegisterUserRoutes(rg *gin.RouterGroup, auth ...gin.HandlerFunc) {
	users := rg.Group("/users", auth...)
	{
		users.GET("/me", h.GetMe)
		users.PATCH("/me", h.UpdateMe)
	}
}
