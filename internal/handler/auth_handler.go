package handler

import (
	"errors"
	"net/http"

	"account_service/internal/model"
	"account_service/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AuthHandler handles registration and token requests
type AuthHandler struct {
	service service.AuthService
	log     *zap.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(s service.AuthService, log *zap.Logger) *AuthHandler {
	return &AuthHandler{service: s, log: log}
}

// Register creates an account. 207 means the account exists but the avatar
// was rejected.
func (h *AuthHandler) Register(c *gin.Context) {
	var req model.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}

	user, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		if user != nil && errors.Is(err, service.ErrAvatarDecode) {
			c.JSON(http.StatusMultiStatus, user)
			return
		}
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, user)
}

// Token exchanges phone and password for a bearer token.
func (h *AuthHandler) Token(c *gin.Context) {
	var form model.LoginForm
	if err := c.ShouldBind(&form); err != nil {
		badPayload(c, err)
		return
	}

	token, err := h.service.Login(c.Request.Context(), form)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, model.TokenResponse{AccessToken: token, TokenType: "bearer"})
}

// RegisterAuthRoutes registers auth routes; extra handlers run before Token.
func (h *AuthHandler) RegisterAuthRoutes(rg *gin.RouterGroup, tokenMiddleware ...gin.HandlerFunc) {
	rg.POST("/registration", h.Register)
	rg.POST("/token", append(tokenMiddleware, h.Token)...)
}
