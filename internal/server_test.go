package internal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sheetfit/sheetfit/internal/config"
	"github.com/sheetfit/sheetfit/internal/foodscan"
	"github.com/sheetfit/sheetfit/internal/sheets"
	"github.com/sheetfit/sheetfit/internal/telemetry/metrics"

	"github.com/go-redis/redis_rate/v9"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type allowAllLimiter struct {
	allowed int
}

func (l *allowAllLimiter) Allow(_ context.Context, _ string, _ redis_rate.Limit) (*redis_rate.Result, error) {
	return &redis_rate.Result{Allowed: l.allowed, RetryAfter: time.Second}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Environment:                   "development",
		RunSheetName:                  "Run",
		ProfileSheetName:              "Profile",
		FoodSheetName:                 "Food",
		DeficitSheetName:              "Deficit",
		AnalyzeRateLimitAllowedPerMin: 5,
	}
}

func serverFixture(limiter *allowAllLimiter) (*mux.Router, *sheets.TestClient) {
	tc := sheets.NewTestClient()
	tc.AddSheet("Push Day", [][]string{
		{"", "Mon 12 May"},
		{"Bench Press", "100/3/10"},
	})
	tc.AddSheet("Run", [][]string{
		{"Session", "Distance", "Duration", "Pace", "Cadence"},
		{"Morning run", "5.2", "27:10", "5:13/km", "172"},
	})
	tc.AddSheet("Food", nil)
	tc.AddSheet("Deficit", nil)
	tc.AddSheet("Profile", nil)

	metricsManager := metrics.NewTestManager()
	analyzer := foodscan.NewAnalyzer(foodscan.Config{}, metricsManager)
	server := newServerWithDeps(testConfig(), tc, analyzer, limiter, metricsManager, metrics.SetupPrometheus())
	return server.routerSetup(), tc
}

func TestServer_routes(t *testing.T) {
	router, _ := serverFixture(&allowAllLimiter{allowed: 1})

	for name, tc := range map[string]struct {
		method     string
		path       string
		wantStatus int
	}{
		"workout sheets":  {"GET", "/api/workout/sheets", http.StatusOK},
		"workouts":        {"GET", "/api/workout?sheetName=Push+Day", http.StatusOK},
		"history workout": {"GET", "/api/history/workouts?sheet=Push+Day", http.StatusOK},
		"history runs":    {"GET", "/api/history/runs", http.StatusOK},
		"run sessions":    {"GET", "/api/run", http.StatusOK},
		"todays meals":    {"GET", "/api/diet/food", http.StatusOK},
		"deficit":         {"GET", "/api/diet/deficit", http.StatusOK},
		"deficit history": {"GET", "/api/diet/deficit/history", http.StatusOK},
		"profile":         {"GET", "/api/profile", http.StatusOK},
		"calendar":        {"GET", "/api/calendar/activities", http.StatusOK},
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			req.Header.Set("User-Agent", "test-agent")
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)
			assert.Equal(t, tc.wantStatus, rr.Code, rr.Body.String())
		})
	}
}

func TestServer_methodNotAllowed(t *testing.T) {
	router, _ := serverFixture(&allowAllLimiter{allowed: 1})

	req := httptest.NewRequest("DELETE", "/api/profile", nil)
	req.Header.Set("User-Agent", "test-agent")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	var resp struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "method not allowed", resp.Error)
}

func TestServer_analyzeRateLimited(t *testing.T) {
	router, _ := serverFixture(&allowAllLimiter{allowed: 0})

	body := `{"imageBase64":"aW1hZ2U="}`
	req := httptest.NewRequest("POST", "/api/diet/analyze", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "test-agent")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
}

func TestServer_analyzeNotRateLimitedButUnconfigured(t *testing.T) {
	router, _ := serverFixture(&allowAllLimiter{allowed: 1})

	body := `{"imageBase64":"aW1hZ2U="}`
	req := httptest.NewRequest("POST", "/api/diet/analyze", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "test-agent")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	// no API key in the fixture, the analyzer reports misconfiguration
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, rr.Body.String(), "not configured")
}

func TestServer_endToEndMealFlow(t *testing.T) {
	router, tc := serverFixture(&allowAllLimiter{allowed: 1})

	body := `{"name":"Eggs","calories":140}`
	req := httptest.NewRequest("POST", "/api/diet/food", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "test-agent")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	foodRows := tc.Rows("Food")
	require.Len(t, foodRows, 1)
	assert.Equal(t, "Eggs/140/0/0/0", foodRows[0][1])

	deficitRows := tc.Rows("Deficit")
	require.Len(t, deficitRows, 1)
	assert.Equal(t, "140", deficitRows[0][1])
	assert.Equal(t, "1860", deficitRows[0][2])
}
