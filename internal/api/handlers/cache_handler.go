package handlers

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/gmv-dashboard/backend/internal/cache"
	"github.com/gmv-dashboard/backend/internal/dashboard"
	"github.com/gmv-dashboard/backend/pkg/logger"
)

type CacheHandler struct {
	cache *cache.Cache
	hub   *Hub
}

func NewCacheHandler(c *cache.Cache, hub *Hub) *CacheHandler {
	return &CacheHandler{cache: c, hub: hub}
}

// Invalidate drops every cached table of one source, so the next render
// re-reads it. The path is cleaned the way file sources name themselves.
func (h *CacheHandler) Invalidate(c *fiber.Ctx) error {
	var req struct {
		Source string `json:"source"`
	}
	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
			"kind":  kindInvalid,
		})
	}

	source := strings.TrimSpace(req.Source)
	if source == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "source is required",
			"kind":  kindInvalid,
		})
	}

	source = filepath.Clean(source)
	dropped := h.cache.Invalidate(c.UserContext(), source)
	h.hub.Broadcast(RefreshEvent{Type: "invalidated", Sources: []string{source}, Entries: dropped})

	return c.JSON(fiber.Map{
		"source":  source,
		"dropped": dropped,
	})
}

func (h *CacheHandler) Purge(c *fiber.Ctx) error {
	sources := h.cache.Sources()
	dropped := h.cache.Len()
	h.cache.Purge()
	h.hub.Broadcast(RefreshEvent{Type: "purged", Sources: sources, Entries: dropped})

	return c.JSON(fiber.Map{"dropped": dropped})
}

func (h *CacheHandler) Stats(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"stats":       h.cache.Stats(),
		"sources":     h.cache.Sources(),
		"subscribers": h.hub.Len(),
	})
}

type HealthHandler struct {
	service *dashboard.Service
}

func NewHealthHandler(service *dashboard.Service) *HealthHandler {
	return &HealthHandler{service: service}
}

func (h *HealthHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// Ready reports whether every configured source is reachable.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	if err := h.service.Check(); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "unavailable",
			"error":  err.Error(),
		})
	}
	return c.JSON(fiber.Map{"status": "ready"})
}
