package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gmv-dashboard/backend/internal/cache"
	"github.com/gmv-dashboard/backend/internal/dashboard"
	"github.com/gmv-dashboard/backend/internal/dataset"
	"github.com/gmv-dashboard/backend/internal/source"
)

const primaryCSV = `Year,Month,Total_GMV,Camera,GameCDDVD,Has Holiday,NPS,Stock Index,ROI,CLV,CAC,Digital,Delivery_Performance,Procurement_Performance,tavg,Flat
2015,7,100,60,40,0,50,1000,1.0,200,100,10,0.9,0.5,20,3
2015,8,150,90,60,1,52,1010,1.5,210,105,12,0.8,0.6,22,3
2015,9,120,70,50,0,55,1020,2.0,220,110,14,0.95,0.8,18,3
`

type fixture struct {
	app   *fiber.App
	cache *cache.Cache
	hub   *Hub
}

func newFixture(sources dashboard.Sources) *fixture {
	c := cache.New()
	svc := dashboard.NewService(dataset.NewLoader(c), sources, dashboard.Options{
		Categories:     []string{"Camera", "GameCDDVD"},
		Channels:       []string{"Digital"},
		WeatherFactors: []string{"tavg"},
	}, nil)
	hub := NewHub()

	app := fiber.New()
	Routes(app.Group("/api/v1"),
		NewDashboardHandler(svc),
		NewCacheHandler(c, hub),
		NewHealthHandler(svc),
		NewWebSocketHandler(hub),
	)
	return &fixture{app: app, cache: c, hub: hub}
}

func primaryOnly() dashboard.Sources {
	return dashboard.Sources{Primary: &source.Bytes{Label: "merged.csv", Data: []byte(primaryCSV)}}
}

func (f *fixture) do(t *testing.T, req *http.Request) (int, map[string]interface{}) {
	t.Helper()
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var body map[string]interface{}
	if len(data) > 0 && data[0] == '{' {
		require.NoError(t, json.Unmarshal(data, &body))
	}
	return resp.StatusCode, body
}

func (f *fixture) get(t *testing.T, url string) (int, map[string]interface{}) {
	return f.do(t, httptest.NewRequest("GET", url, nil))
}

func TestPages(t *testing.T) {
	f := newFixture(primaryOnly())

	for _, page := range []string{"overview", "exploration", "kpi"} {
		t.Run(page, func(t *testing.T) {
			status, body := f.get(t, "/api/v1/pages/"+page)
			assert.Equal(t, fiber.StatusOK, status)
			assert.Equal(t, page, body["page"])
			assert.NotEmpty(t, body["render_id"])
		})
	}
}

func TestOverviewQuery(t *testing.T) {
	f := newFixture(primaryOnly())

	status, body := f.get(t, "/api/v1/pages/overview?categories=Camera&period=2015-08")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "2015-08", body["period"])
	assert.Equal(t, []interface{}{"Camera"}, body["categories"])

	status, body = f.get(t, "/api/v1/pages/overview?period=2019-01")
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, kindInvalid, body["kind"])
}

func TestBudgetMissingSourceIsDataLoad(t *testing.T) {
	f := newFixture(primaryOnly())

	status, body := f.get(t, "/api/v1/pages/budget")
	assert.Equal(t, fiber.StatusInternalServerError, status)
	assert.Equal(t, kindDataLoad, body["kind"])
}

func TestMalformedPrimaryIsDataLoad(t *testing.T) {
	f := newFixture(dashboard.Sources{Primary: &source.Bytes{Label: "bad.csv", Data: []byte("Year,GMV\n2015,1\n")}})

	status, body := f.get(t, "/api/v1/pages/kpi")
	assert.Equal(t, fiber.StatusInternalServerError, status)
	assert.Equal(t, kindDataLoad, body["kind"])
	assert.Equal(t, "bad.csv", body["source"])
}

func TestSeries(t *testing.T) {
	f := newFixture(primaryOnly())

	status, body := f.get(t, "/api/v1/views/series?metric=NPS")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "NPS", body["name"])
	assert.Len(t, body["points"], 3)

	status, _ = f.get(t, "/api/v1/views/series")
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, body = f.get(t, "/api/v1/views/series?metric=Missing")
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, kindInvalid, body["kind"])
}

func TestCorrelation(t *testing.T) {
	f := newFixture(primaryOnly())

	status, body := f.get(t, "/api/v1/views/correlation?columns=Total_GMV,NPS,Flat")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, []interface{}{"Total_GMV", "NPS", "Flat"}, body["columns"])

	status, _ = f.get(t, "/api/v1/views/correlation?columns=NPS")
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestCacheEndpoints(t *testing.T) {
	f := newFixture(primaryOnly())
	sink := &recorder{}
	f.hub.add(sink)

	status, _ := f.get(t, "/api/v1/pages/overview")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, 1, f.cache.Len())

	status, body := f.get(t, "/api/v1/cache")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, []interface{}{"merged.csv"}, body["sources"])
	assert.Equal(t, float64(1), body["subscribers"])

	req := httptest.NewRequest("POST", "/api/v1/cache/invalidate", strings.NewReader(`{"source":"merged.csv"}`))
	req.Header.Set("Content-Type", "application/json")
	status, body = f.do(t, req)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, float64(1), body["dropped"])
	assert.Equal(t, 0, f.cache.Len())

	events := sink.events()
	require.Len(t, events, 1)
	assert.Equal(t, "invalidated", events[0].Type)
	assert.Equal(t, []string{"merged.csv"}, events[0].Sources)

	req = httptest.NewRequest("POST", "/api/v1/cache/invalidate", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	status, _ = f.do(t, req)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = f.do(t, httptest.NewRequest("POST", "/api/v1/cache/purge", nil))
	assert.Equal(t, fiber.StatusOK, status)
	assert.Len(t, sink.events(), 2)
}

func TestHealthAndReady(t *testing.T) {
	f := newFixture(primaryOnly())
	status, body := f.get(t, "/api/v1/health")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "healthy", body["status"])

	status, _ = f.get(t, "/api/v1/ready")
	assert.Equal(t, fiber.StatusOK, status)

	missing := newFixture(dashboard.Sources{Primary: source.NewFile("/nonexistent/merged.csv", source.IdentityStat)})
	status, body = missing.get(t, "/api/v1/ready")
	assert.Equal(t, fiber.StatusServiceUnavailable, status)
	assert.Equal(t, "unavailable", body["status"])
}

func TestWebSocketRequiresUpgrade(t *testing.T) {
	f := newFixture(primaryOnly())
	status, _ := f.get(t, "/api/v1/ws/refresh")
	assert.Equal(t, fiber.StatusUpgradeRequired, status)
}

type recorder struct {
	mu   sync.Mutex
	got  []RefreshEvent
	fail bool
}

func (r *recorder) WriteJSON(v interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errors.New("closed")
	}
	if ev, ok := v.(RefreshEvent); ok {
		r.got = append(r.got, ev)
	}
	return nil
}

func (r *recorder) events() []RefreshEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]RefreshEvent(nil), r.got...)
}

func TestHubDropsFailedSubscribers(t *testing.T) {
	hub := NewHub()
	ok := &recorder{}
	broken := &recorder{fail: true}
	hub.add(ok)
	hub.add(broken)
	require.Equal(t, 2, hub.Len())

	hub.Broadcast(RefreshEvent{Type: "changed", Sources: []string{"a.csv"}})

	assert.Equal(t, 1, hub.Len())
	events := ok.events()
	require.Len(t, events, 1)
	assert.False(t, events[0].At.IsZero())
}

func TestInvalidateCleansSourcePath(t *testing.T) {
	f := newFixture(dashboard.Sources{Primary: &source.Bytes{Label: "attached_assets/merged.csv", Data: []byte(primaryCSV)}})

	status, _ := f.get(t, "/api/v1/pages/kpi")
	require.Equal(t, fiber.StatusOK, status)
	require.Equal(t, 1, f.cache.Len())

	req := httptest.NewRequest("POST", "/api/v1/cache/invalidate", strings.NewReader(`{"source":"./attached_assets//merged.csv"}`))
	req.Header.Set("Content-Type", "application/json")
	status, body := f.do(t, req)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "attached_assets/merged.csv", body["source"])
	assert.Equal(t, float64(1), body["dropped"])
	assert.Equal(t, 0, f.cache.Len())
}
