package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/gmv-dashboard/backend/internal/dashboard"
	"github.com/gmv-dashboard/backend/internal/middleware/validation"
)

// DashboardHandler serves the four dashboard pages and the ad-hoc views.
type DashboardHandler struct {
	service *dashboard.Service
}

func NewDashboardHandler(service *dashboard.Service) *DashboardHandler {
	return &DashboardHandler{service: service}
}

func (h *DashboardHandler) Overview(c *fiber.Ctx) error {
	filter := dashboard.OverviewFilter{
		Categories: validation.SplitNames(c.Query("categories")),
		Period:     c.Query("period"),
	}

	page, err := h.service.Overview(c.UserContext(), filter)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(page)
}

func (h *DashboardHandler) Exploration(c *fiber.Ctx) error {
	page, err := h.service.Exploration(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(page)
}

func (h *DashboardHandler) KPI(c *fiber.Ctx) error {
	page, err := h.service.KPI(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(page)
}

func (h *DashboardHandler) Budget(c *fiber.Ctx) error {
	page, err := h.service.Budget(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(page)
}

func (h *DashboardHandler) Categories(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"categories": h.service.Categories()})
}

func (h *DashboardHandler) Series(c *fiber.Ctx) error {
	metric := c.Query("metric")
	if metric == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "metric is required",
			"kind":  kindInvalid,
		})
	}

	series, err := h.service.Series(c.UserContext(), metric)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(series)
}

func (h *DashboardHandler) Correlation(c *fiber.Ctx) error {
	columns := validation.SplitNames(c.Query("columns"))
	if len(columns) < 2 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "at least two columns are required",
			"kind":  kindInvalid,
		})
	}

	matrix, err := h.service.Correlation(c.UserContext(), columns)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(matrix)
}
