package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/wardenhq/warden/internal/cleanup"
	"github.com/wardenhq/warden/internal/runtime"
)

// Handlers exposes the runtime over a small JSON API.
type Handlers struct {
	service *runtime.Service
}

// NewHandlers creates the API handlers.
func NewHandlers(service *runtime.Service) *Handlers {
	return &Handlers{service: service}
}

// RegisterRoutes installs all routes on the router.
func (h *Handlers) RegisterRoutes(r gin.IRouter) {
	r.GET("/health", h.Health)
	r.GET("/stats", h.Stats)
	r.GET("/cleanup/history", h.History)
	r.POST("/cleanup", h.TriggerPass)
	r.GET("/leak/samples", h.Samples)
}

// Health reports liveness.
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Stats returns a snapshot of registry, pool, pressure, and cleanup state.
func (h *Handlers) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.Stats())
}

// History returns the bounded cleanup pass history, most recent last.
func (h *Handlers) History(c *gin.Context) {
	history := h.service.Orchestrator.History()

	limit := len(history)
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 0 && n < limit {
			limit = n
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"passes": history[len(history)-limit:],
		"total":  len(history),
	})
}

// TriggerPass dispatches a manual cleanup pass at the requested tier.
func (h *Handlers) TriggerPass(c *gin.Context) {
	tierName := c.DefaultQuery("tier", "moderate")
	tier, ok := cleanup.TierFromString(tierName)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown tier: " + tierName})
		return
	}

	result, ran := h.service.Orchestrator.Run(tier, cleanup.TriggerManual, "")
	if !ran {
		c.JSON(http.StatusConflict, gin.H{
			"error": "pass dropped: another pass in progress or cooldown active",
		})
		return
	}

	c.JSON(http.StatusOK, result)
}

// Samples returns the leak detector's retained sample series.
func (h *Handlers) Samples(c *gin.Context) {
	samples := h.service.Detector.Samples()

	out := make([]gin.H, 0, len(samples))
	for _, s := range samples {
		counts := make(map[string]int, len(s.CountsByKind))
		for kind, n := range s.CountsByKind {
			counts[kind.String()] = n
		}
		out = append(out, gin.H{
			"timestamp":   s.Timestamp,
			"used_bytes":  s.UsedBytes,
			"total_bytes": s.TotalBytes,
			"limit_bytes": s.LimitBytes,
			"ratio":       s.Ratio(),
			"counts":      counts,
		})
	}

	c.JSON(http.StatusOK, gin.H{"samples": out})
}
