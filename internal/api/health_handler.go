package api

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"taskpulse/internal/calendar"
)

type HealthHandler struct {
	started time.Time
	clock   calendar.Clock
	ping    func(ctx context.Context) error
}

// NewHealthHandler reports uptime since started. ping, when set, checks the
// task store.
func NewHealthHandler(started time.Time, clock calendar.Clock, ping func(ctx context.Context) error) *HealthHandler {
	if clock == nil {
		clock = calendar.SystemClock{}
	}
	return &HealthHandler{started: started, clock: clock, ping: ping}
}

func (h *HealthHandler) Health(c *gin.Context) {
	now := h.clock.Now()
	status, code := "OK", http.StatusOK
	if h.ping != nil {
		if err := h.ping(c.Request.Context()); err != nil {
			log.Printf("[warn] health: store ping failed: %v", err)
			status, code = "DEGRADED", http.StatusServiceUnavailable
		}
	}
	c.JSON(code, gin.H{
		"success":   code == http.StatusOK,
		"status":    status,
		"timestamp": now.UTC().Format(time.RFC3339),
		"uptime":    now.Sub(h.started).Seconds(),
	})
}
