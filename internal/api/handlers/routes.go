package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// Routes mounts the dashboard API on router.
func Routes(router fiber.Router, dash *DashboardHandler, cacheHandler *CacheHandler, health *HealthHandler, ws *WebSocketHandler) {
	router.Get("/health", health.Health)
	router.Get("/ready", health.Ready)

	pages := router.Group("/pages")
	pages.Get("/overview", dash.Overview)
	pages.Get("/exploration", dash.Exploration)
	pages.Get("/kpi", dash.KPI)
	pages.Get("/budget", dash.Budget)

	router.Get("/categories", dash.Categories)
	router.Get("/views/series", dash.Series)
	router.Get("/views/correlation", dash.Correlation)

	router.Get("/cache", cacheHandler.Stats)
	router.Post("/cache/invalidate", cacheHandler.Invalidate)
	router.Post("/cache/purge", cacheHandler.Purge)

	router.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	router.Get("/ws/refresh", websocket.New(ws.HandleConnection))
}
