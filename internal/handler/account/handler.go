package account

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/paybridge/platform-api/internal/handler"
	"github.com/paybridge/platform-api/internal/middleware"
	accountsvc "github.com/paybridge/platform-api/internal/service/account"
)

type Handler struct {
	service *accountsvc.Service
	logger  zerolog.Logger
}

func NewHandler(service *accountsvc.Service, logger zerolog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

type connectRequest struct {
	Email       string `json:"email" binding:"required,email"`
	StoreDomain string `json:"store_domain" binding:"omitempty,url"`
}

func (h *Handler) Connect(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("unauthorized"))
		return
	}

	var req connectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	account, err := h.service.Connect(c.Request.Context(), userID, req.Email, req.StoreDomain)
	if err != nil {
		if errors.Is(err, accountsvc.ErrAccountExists) {
			c.JSON(http.StatusConflict, handler.NewErrorResponse("user already has a connected account"))
			return
		}
		h.logger.Error().Err(err).Msg("account provisioning failed")
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse("account provisioning failed"))
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(account))
}

func (h *Handler) List(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("unauthorized"))
		return
	}

	accounts, err := h.service.ListForUser(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list accounts")
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse("failed to list accounts"))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(accounts))
}

type updateStoreDomainRequest struct {
	StoreDomain string `json:"store_domain" binding:"required,url"`
}

func (h *Handler) UpdateStoreDomain(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("unauthorized"))
		return
	}

	var req updateStoreDomainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	account, err := h.service.UpdateStoreDomain(c.Request.Context(), userID, c.Param("id"), req.StoreDomain)
	if err != nil {
		switch {
		case errors.Is(err, accountsvc.ErrAccountNotFound):
			c.JSON(http.StatusNotFound, handler.NewErrorResponse("account not found"))
		case errors.Is(err, accountsvc.ErrNotOwner):
			c.JSON(http.StatusForbidden, handler.NewErrorResponse("account does not belong to user"))
		default:
			h.logger.Error().Err(err).Msg("failed to update store domain")
			c.JSON(http.StatusInternalServerError, handler.NewErrorResponse("failed to update store domain"))
		}
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(account))
}
