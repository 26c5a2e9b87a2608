// Package security sets response headers for the dashboard API.
package security

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

type HeadersConfig struct {
	AllowedOrigins []string
	IsDevelopment  bool
}

// HeadersMiddleware hardens every response. Page documents are rebuilt from
// the current sources on each request, so nothing may be cached downstream.
func HeadersMiddleware(cfg HeadersConfig) fiber.Handler {
	csp := contentSecurityPolicy(cfg.AllowedOrigins)

	return func(c *fiber.Ctx) error {
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("Cache-Control", "no-store")
		c.Set("Content-Security-Policy", csp)

		if !cfg.IsDevelopment {
			c.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		return c.Next()
	}
}

func contentSecurityPolicy(origins []string) string {
	connect := []string{"'self'"}
	for _, o := range origins {
		if o == "" || o == "*" {
			continue
		}
		connect = append(connect, o)
		if ws, ok := websocketOrigin(o); ok {
			connect = append(connect, ws)
		}
	}

	return strings.Join([]string{
		"default-src 'none'",
		"connect-src " + strings.Join(connect, " "),
		"frame-ancestors 'none'",
		"base-uri 'none'",
	}, "; ")
}

// websocketOrigin maps an http(s) origin to the ws(s) origin the refresh
// stream is served from.
func websocketOrigin(origin string) (string, bool) {
	switch {
	case strings.HasPrefix(origin, "https://"):
		return "wss://" + strings.TrimPrefix(origin, "https://"), true
	case strings.HasPrefix(origin, "http://"):
		return "ws://" + strings.TrimPrefix(origin, "http://"), true
	default:
		return "", false
	}
}
