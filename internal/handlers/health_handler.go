package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const healthPingTimeout = 2 * time.Second

// Pinger is the part of the document store the health check needs
type Pinger interface {
	Ping(ctx context.Context) error
}

// Breaker is an outbound dependency guarded by a circuit breaker
type Breaker interface {
	Name() string
	Enabled() bool
	CircuitOpen() bool
}

type HealthHandler struct {
	store    Pinger
	breakers []Breaker
}

// NewHealthHandler checks the store; breakers are reported but never fail
// the check
func NewHealthHandler(store Pinger, breakers ...Breaker) *HealthHandler {
	return &HealthHandler{store: store, breakers: breakers}
}

func (h *HealthHandler) Healthcheck(c *gin.Context) {
	c.Header("Cache-Control", "no-cache, no-store, max-age=0, must-revalidate")

	ctx, cancel := context.WithTimeout(c.Request.Context(), healthPingTimeout)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		attachError(c, err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unavailable",
			"reason": "document store unreachable",
		})
		return
	}

	body := gin.H{"status": "ok"}
	if circuits := h.circuits(); len(circuits) > 0 {
		body["circuits"] = circuits
	}
	c.JSON(http.StatusOK, body)
}

func (h *HealthHandler) circuits() map[string]string {
	out := make(map[string]string, len(h.breakers))
	for _, b := range h.breakers {
		if !b.Enabled() {
			continue
		}
		state := "closed"
		if b.CircuitOpen() {
			state = "open"
		}
		out[b.Name()] = state
	}
	return out
}
