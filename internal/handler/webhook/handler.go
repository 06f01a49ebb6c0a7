package webhook

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/paybridge/platform-api/internal/handler"
	"github.com/paybridge/platform-api/internal/provider"
	"github.com/paybridge/platform-api/internal/repository"
	webhooksvc "github.com/paybridge/platform-api/internal/service/webhook"
)

// SweepRunner triggers an on-demand reconciliation pass.
type SweepRunner interface {
	RunOnce(ctx context.Context) error
}

type Handler struct {
	service    *webhooksvc.Service
	sweeper    SweepRunner
	events     repository.EventRepository
	dispatches repository.DispatchRepository
	runs       repository.SweepRepository
	logger     zerolog.Logger
}

func NewHandler(
	service *webhooksvc.Service,
	sweeper SweepRunner,
	events repository.EventRepository,
	dispatches repository.DispatchRepository,
	runs repository.SweepRepository,
	logger zerolog.Logger,
) *Handler {
	return &Handler{
		service:    service,
		sweeper:    sweeper,
		events:     events,
		dispatches: dispatches,
		runs:       runs,
		logger:     logger,
	}
}

// HandleWebhook receives provider webhooks. Any outcome of a verified event
// is acknowledged with 200: redelivery cannot fix a duplicate, an irrelevant
// event, or a missing correlation, so asking for it only creates noise.
func (h *Handler) HandleWebhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable_body"})
		return
	}

	result, err := h.service.HandleWebhook(c.Request.Context(), payload, c.GetHeader(provider.SignatureHeader))
	switch {
	case errors.Is(err, webhooksvc.ErrSecretNotConfigured):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "webhook_secret_not_configured"})
	case errors.Is(err, provider.ErrInvalidSignature):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_signature"})
	case err != nil:
		h.logger.Error().Err(err).Msg("webhook processing failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
	default:
		c.JSON(http.StatusOK, gin.H{"status": string(result.Outcome)})
	}
}

// TriggerSweep starts a reconciliation pass in the background and returns
// immediately; a pass can take minutes on large accounts.
func (h *Handler) TriggerSweep(c *gin.Context) {
	go func() {
		if err := h.sweeper.RunOnce(context.Background()); err != nil {
			h.logger.Error().Err(err).Msg("operator-triggered sweep failed")
		}
	}()
	c.JSON(http.StatusAccepted, handler.NewSuccessResponse(gin.H{"triggered": true}))
}

// ListSweepRuns returns recent reconciliation runs for an account.
func (h *Handler) ListSweepRuns(c *gin.Context) {
	accountID := c.Query("account_id")
	if accountID == "" {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("account_id is required"))
		return
	}

	limit := 20
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 100 {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid limit"))
			return
		}
		limit = parsed
	}

	runs, err := h.runs.ListRuns(c.Request.Context(), accountID, limit)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list sweep runs")
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse("failed to list sweep runs"))
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(runs))
}

// GetEventDispatch exposes the ledger and dispatch state for one event id,
// for support tooling.
func (h *Handler) GetEventDispatch(c *gin.Context) {
	eventID := c.Param("id")

	processed, err := h.events.GetProcessedEvent(c.Request.Context(), eventID)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to load processed event")
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse("failed to load event"))
		return
	}
	if processed == nil {
		c.JSON(http.StatusNotFound, handler.NewErrorResponse("event not found"))
		return
	}

	attempt, err := h.dispatches.Get(c.Request.Context(), eventID)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to load dispatch attempt")
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse("failed to load event"))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{
		"event":    processed,
		"dispatch": attempt,
	}))
}
