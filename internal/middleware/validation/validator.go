// Package validation rejects malformed dashboard query parameters before
// they reach a page builder.
package validation

import (
	"regexp"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

var (
	periodPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)
	namePattern   = regexp.MustCompile(`^[\pL\pN _.\-/]+$`)
	xssPattern    = regexp.MustCompile(`(?i)(<script|<iframe|javascript:|onerror=|onload=|onclick=)`)
)

// nameParams lists the query parameters holding column or category names; they
// may be comma-separated.
var nameParams = []string{"categories", "columns", "metric", "source"}

type Config struct {
	MaxParamLength      int
	MaxNames            int
	AllowedContentTypes []string
	Logger              *zap.Logger
}

func Middleware(cfg Config) fiber.Handler {
	if cfg.MaxParamLength == 0 {
		cfg.MaxParamLength = 1024
	}
	if cfg.MaxNames == 0 {
		cfg.MaxNames = 64
	}
	if len(cfg.AllowedContentTypes) == 0 {
		cfg.AllowedContentTypes = []string{"application/json"}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return func(c *fiber.Ctx) error {
		if c.Method() == fiber.MethodPost || c.Method() == fiber.MethodPut {
			if ct := c.Get(fiber.HeaderContentType); ct != "" && !allowedType(ct, cfg.AllowedContentTypes) {
				return reject(c, fiber.StatusUnsupportedMediaType, "Unsupported content type")
			}
		}

		if period := c.Query("period"); period != "" && !periodPattern.MatchString(period) {
			return reject(c, fiber.StatusBadRequest, "period must have the form YYYY-MM")
		}

		for _, param := range nameParams {
			raw := c.Query(param)
			if raw == "" {
				continue
			}
			if len(raw) > cfg.MaxParamLength {
				return reject(c, fiber.StatusBadRequest, param+" exceeds maximum length")
			}
			if xssPattern.MatchString(raw) {
				cfg.Logger.Warn("Potential XSS attempt",
					zap.String("ip", c.IP()),
					zap.String("param", param),
				)
				return reject(c, fiber.StatusBadRequest, "Invalid "+param)
			}

			names := SplitNames(raw)
			if len(names) > cfg.MaxNames {
				return reject(c, fiber.StatusBadRequest, "Too many "+param)
			}
			for _, n := range names {
				if !namePattern.MatchString(n) {
					return reject(c, fiber.StatusBadRequest, "Invalid "+param)
				}
			}
		}

		return c.Next()
	}
}

// SplitNames splits a comma-separated parameter, trimming each name and
// dropping empty ones.
func SplitNames(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(strings.ReplaceAll(p, "\x00", "")); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func allowedType(contentType string, allowed []string) bool {
	for _, a := range allowed {
		if strings.Contains(contentType, a) {
			return true
		}
	}
	return false
}

func reject(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{
		"error": msg,
		"kind":  "invalid_request",
	})
}
