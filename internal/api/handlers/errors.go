package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/gmv-dashboard/backend/internal/dashboard"
	"github.com/gmv-dashboard/backend/internal/dataset"
	"github.com/gmv-dashboard/backend/internal/table"
	"github.com/gmv-dashboard/backend/internal/views"
	"github.com/gmv-dashboard/backend/pkg/logger"
)

// Error kinds reported to the front-end.
const (
	kindDataLoad   = "data_load"
	kindDataParse  = "data_parse"
	kindInvalid    = "invalid_request"
	kindDegenerate = "degenerate_input"
	kindInternal   = "internal"
)

// writeError maps a page or view failure to a status and a structured body.
// Load and parse failures are checked first: they may wrap column errors
// that would otherwise read as a bad request.
func writeError(c *fiber.Ctx, err error) error {
	body := fiber.Map{"error": err.Error()}
	status := fiber.StatusInternalServerError

	var parseErr *dataset.DataParseError
	var loadErr *dataset.DataLoadError
	switch {
	case errors.As(err, &parseErr):
		body["kind"] = kindDataParse
		body["dataset"] = parseErr.Dataset
		body["source"] = parseErr.Source
		body["row"] = parseErr.Row
		body["column"] = parseErr.Column
	case errors.As(err, &loadErr):
		body["kind"] = kindDataLoad
		body["dataset"] = loadErr.Dataset
		body["source"] = loadErr.Source
	case errors.Is(err, dashboard.ErrInvalidFilter),
		errors.Is(err, views.ErrUnknownColumn),
		errors.Is(err, views.ErrInvalidArgument),
		errors.Is(err, table.ErrColumnNotFound):
		status = fiber.StatusBadRequest
		body["kind"] = kindInvalid
	case errors.Is(err, views.ErrDegenerateInput),
		errors.Is(err, views.ErrLengthMismatch),
		errors.Is(err, table.ErrNotNumeric):
		status = fiber.StatusUnprocessableEntity
		body["kind"] = kindDegenerate
	default:
		body["kind"] = kindInternal
	}

	if status >= fiber.StatusInternalServerError {
		logger.Error("Request failed",
			zap.String("path", c.Path()),
			zap.String("kind", body["kind"].(string)),
			zap.Error(err),
		)
	}
	return c.Status(status).JSON(body)
}
