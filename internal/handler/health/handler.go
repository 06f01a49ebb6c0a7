package health

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/paybridge/platform-api/internal/handler"
)

type Handler struct {
	db        *sqlx.DB
	startedAt time.Time
	version   string
}

func NewHandler(db *sqlx.DB, version string) *Handler {
	return &Handler{db: db, startedAt: time.Now(), version: version}
}

func (h *Handler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready reports whether the service can do useful work, which requires the
// database.
func (h *Handler) Ready(c *gin.Context) {
	if err := h.db.PingContext(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": "database unreachable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{
		"version": h.version,
		"uptime":  time.Since(h.startedAt).Round(time.Second).String(),
	}))
}
