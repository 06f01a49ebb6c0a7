package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/paybridge/platform-api/internal/handler"
	"github.com/paybridge/platform-api/internal/model"
	authsvc "github.com/paybridge/platform-api/internal/service/auth"
)

type Handler struct {
	service *authsvc.Service
	logger  zerolog.Logger
}

func NewHandler(service *authsvc.Service, logger zerolog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(c *gin.Context) {
	var req model.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	user, err := h.service.Register(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, authsvc.ErrEmailInUse) {
			c.JSON(http.StatusConflict, handler.NewErrorResponse("email already registered"))
			return
		}
		h.logger.Error().Err(err).Msg("registration failed")
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse("registration failed"))
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(user))
}

func (h *Handler) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	tokens, err := h.service.Login(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, authsvc.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid email or password"))
			return
		}
		h.logger.Error().Err(err).Msg("login failed")
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse("login failed"))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(tokens))
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

func (h *Handler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	tokens, err := h.service.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, authsvc.ErrInvalidToken) {
			c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid or expired token"))
			return
		}
		h.logger.Error().Err(err).Msg("token refresh failed")
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse("token refresh failed"))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(tokens))
}
