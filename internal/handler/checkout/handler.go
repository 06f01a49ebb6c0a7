package checkout

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/paybridge/platform-api/internal/handler"
	"github.com/paybridge/platform-api/internal/middleware"
	checkoutsvc "github.com/paybridge/platform-api/internal/service/checkout"
)

type Handler struct {
	service *checkoutsvc.Service
	logger  zerolog.Logger
}

func NewHandler(service *checkoutsvc.Service, logger zerolog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) CreateSession(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("unauthorized"))
		return
	}

	var req checkoutsvc.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	session, err := h.service.CreateSession(c.Request.Context(), userID, &req)
	if err != nil {
		switch {
		case errors.Is(err, checkoutsvc.ErrAccountNotFound):
			c.JSON(http.StatusNotFound, handler.NewErrorResponse("account not found"))
		case errors.Is(err, checkoutsvc.ErrNotOwner):
			c.JSON(http.StatusForbidden, handler.NewErrorResponse("account does not belong to user"))
		default:
			h.logger.Error().Err(err).Msg("failed to create checkout session")
			c.JSON(http.StatusInternalServerError, handler.NewErrorResponse("failed to create checkout session"))
		}
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(session))
}

func (h *Handler) GetSession(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("unauthorized"))
		return
	}

	session, err := h.service.GetSession(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		if errors.Is(err, checkoutsvc.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, handler.NewErrorResponse("checkout session not found"))
			return
		}
		h.logger.Error().Err(err).Msg("failed to fetch checkout session")
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse("failed to fetch checkout session"))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(session))
}
