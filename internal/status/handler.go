package status

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ovdlink/internal/session"
)

// Provider is the session as seen by the status API.
type Provider interface {
	Status() session.Status
	Connected() bool
}

type Handler struct {
	provider Provider
	gatherer prometheus.Gatherer // nil disables /metrics
}

func NewHandler(provider Provider, gatherer prometheus.Gatherer) *Handler {
	return &Handler{provider: provider, gatherer: gatherer}
}

// RegisterRoutes registers the status routes
func (h *Handler) RegisterRoutes(r gin.IRoutes) {
	r.GET("/health", h.Health)
	r.GET("/status", h.GetStatus)
	r.GET("/status/queues", h.GetQueues)
	if h.gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{
			EnableOpenMetrics: true,
		})))
	}
}

// Health always answers 200 while the process serves; the link state is informational.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"connected": h.provider.Connected(),
	})
}

func (h *Handler) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.provider.Status())
}

func (h *Handler) GetQueues(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"queue_depths": h.provider.Status().QueueDepths,
	})
}
