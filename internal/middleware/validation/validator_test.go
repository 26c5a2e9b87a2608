package validation

import (
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newApp() *fiber.App {
	app := fiber.New()
	app.Use(Middleware(Config{MaxNames: 3}))
	app.All("/*", func(c *fiber.Ctx) error { return c.SendString("ok") })
	return app
}

func TestMiddleware(t *testing.T) {
	tests := []struct {
		name   string
		query  url.Values
		status int
	}{
		{"no params", url.Values{}, fiber.StatusOK},
		{"valid period", url.Values{"period": {"2016-03"}}, fiber.StatusOK},
		{"month 13", url.Values{"period": {"2016-13"}}, fiber.StatusBadRequest},
		{"unpadded month", url.Values{"period": {"2016-3"}}, fiber.StatusBadRequest},
		{"valid categories", url.Values{"categories": {"Camera, GameCDDVD"}}, fiber.StatusOK},
		{"spaced column", url.Values{"columns": {"Total_GMV,Stock Index"}}, fiber.StatusOK},
		{"too many names", url.Values{"columns": {"a,b,c,d"}}, fiber.StatusBadRequest},
		{"script", url.Values{"metric": {"<script>alert(1)</script>"}}, fiber.StatusBadRequest},
		{"punctuation", url.Values{"metric": {"NPS;DROP"}}, fiber.StatusBadRequest},
	}
	app := newApp()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/pages/overview?"+tt.query.Encode(), nil))
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestMiddlewareContentType(t *testing.T) {
	app := newApp()

	req := httptest.NewRequest("POST", "/api/v1/cache/invalidate", strings.NewReader("source=a"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnsupportedMediaType, resp.StatusCode)

	req = httptest.NewRequest("POST", "/api/v1/cache/invalidate", strings.NewReader(`{"source":"a"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestSplitNames(t *testing.T) {
	assert.Equal(t, []string{"Camera", "Game CDDVD"}, SplitNames(" Camera ,, Game CDDVD ,"))
	assert.Empty(t, SplitNames(" , "))
}
