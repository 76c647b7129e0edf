package http

import (
	"errors"
	"net/http"
	"strconv"

	"livemon/internal/core/domain"
	"livemon/internal/core/ports"

	"github.com/gin-gonic/gin"
)

// AlertResolver is the slice of the coordinator the REST edge needs.
type AlertResolver interface {
	ResolveAlert(alertID string) (domain.Alert, error)
}

type DashboardHandler struct {
	store       ports.MetricsStore
	engine      ports.AlertEngine
	resolver    AlertResolver
	broadcaster ports.Broadcaster
	simulator   bool
}

func NewDashboardHandler(
	store ports.MetricsStore,
	engine ports.AlertEngine,
	resolver AlertResolver,
	broadcaster ports.Broadcaster,
	simulatorEnabled bool,
) *DashboardHandler {
	return &DashboardHandler{
		store:       store,
		engine:      engine,
		resolver:    resolver,
		broadcaster: broadcaster,
		simulator:   simulatorEnabled,
	}
}

func (h *DashboardHandler) SetupRoutes(router *gin.Engine) {
	api := router.Group("/api/v1")
	{
		api.GET("/metrics/current", h.CurrentMetrics)
		api.GET("/metrics/history", h.MetricsHistory)
		api.GET("/metrics/snapshot", h.FullSnapshot)
		api.GET("/rooms", h.ListRooms)
		api.GET("/rooms/:id", h.GetRoom)
		api.GET("/alerts", h.ListAlerts)
		api.POST("/alerts/:id/resolve", h.ResolveAlert)
	}

	router.GET("/healthz", h.Health)
}

// CurrentMetrics returns the latest snapshot; before the first tick this is
// an all-zero snapshot rather than an error.
func (h *DashboardHandler) CurrentMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.Snapshot())
}

func (h *DashboardHandler) MetricsHistory(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		limit = parsed
	}

	c.JSON(http.StatusOK, h.store.History(limit))
}

func (h *DashboardHandler) FullSnapshot(c *gin.Context) {
	c.JSON(http.StatusOK, domain.MetricsSnapshot{
		Current: h.store.Snapshot(),
		History: h.store.History(0),
		Rooms:   h.store.Rooms(),
	})
}

func (h *DashboardHandler) ListRooms(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.Rooms())
}

func (h *DashboardHandler) GetRoom(c *gin.Context) {
	room, err := h.store.Room(c.Param("id"))
	if err != nil {
		if errors.Is(err, domain.ErrRoomNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, room)
}

func (h *DashboardHandler) ListAlerts(c *gin.Context) {
	active, resolved := h.engine.Alerts()
	c.JSON(http.StatusOK, gin.H{
		"active":   active,
		"resolved": resolved,
	})
}

func (h *DashboardHandler) ResolveAlert(c *gin.Context) {
	alert, err := h.resolver.ResolveAlert(c.Param("id"))
	if err != nil {
		if errors.Is(err, domain.ErrAlertNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "alert not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, alert)
}

func (h *DashboardHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"observers": h.broadcaster.ObserverCount(),
		"simulator": h.simulator,
	})
}
