package workout

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sheetfit/sheetfit/internal/sheets"
	"github.com/sheetfit/sheetfit/internal/telemetry/metrics"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRouter(tc *sheets.TestClient) *mux.Router {
	handler := NewHandler(NewService(tc), NewAnalyzer(tc), metrics.NewTestManager())
	router := mux.NewRouter()
	handler.SetupRoutes(
		router.PathPrefix("/api/workout").Subrouter(),
		router.PathPrefix("/api/history").Subrouter(),
	)
	return router
}

func TestHandler_getSheets(t *testing.T) {
	tc := sheets.NewTestClient()
	tc.AddSheet("Push Day", nil)
	tc.AddSheet("Pull Day", nil)
	router := testRouter(tc)

	req := httptest.NewRequest("GET", "/api/workout/sheets", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var resp struct {
		SheetNames []string `json:"sheetNames"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, []string{"Push Day", "Pull Day"}, resp.SheetNames)
}

func TestHandler_getWorkouts(t *testing.T) {
	tc := sheets.NewTestClient()
	tc.AddSheet("Push Day", [][]string{
		{"", "Mon 12 May"},
		{"Bench Press", "100/3/10"},
	})
	router := testRouter(tc)

	req := httptest.NewRequest("GET", "/api/workout?sheetName=Push+Day", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var resp Definition
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, []string{"Bench Press"}, resp.Workouts)
	require.Len(t, resp.SessionData, 2)
}

func TestHandler_getWorkouts_missingSheetName(t *testing.T) {
	router := testRouter(sheets.NewTestClient())

	req := httptest.NewRequest("GET", "/api/workout", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "sheetName")
}

func TestHandler_saveSession(t *testing.T) {
	tc := sheets.NewTestClient()
	tc.AddSheet("Push Day", [][]string{
		{"", "Mon 12 May"},
		{"Bench Press", "100/3/10"},
	})
	router := testRouter(tc)

	body := `{"sheetName":"Push Day","sessionName":"Wed 14 May","workoutData":["102.5/3/8"]}`
	req := httptest.NewRequest("POST", "/api/workout/session", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var resp struct {
		Success bool   `json:"success"`
		Column  string `json:"column"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "C", resp.Column)

	rows := tc.Rows("Push Day")
	assert.Equal(t, "Wed 14 May", rows[0][2])
	assert.Equal(t, "102.5/3/8", rows[1][2])
}

func TestHandler_saveSession_validation(t *testing.T) {
	router := testRouter(sheets.NewTestClient())

	for name, body := range map[string]string{
		"missing sheet":   `{"sessionName":"Wed 14 May","workoutData":["100/3/10"]}`,
		"missing session": `{"sheetName":"Push Day","workoutData":["100/3/10"]}`,
		"no records":      `{"sheetName":"Push Day","sessionName":"Wed 14 May","workoutData":[]}`,
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/workout/session", strings.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)
			assert.Equal(t, http.StatusBadRequest, rr.Code)
		})
	}
}

func TestHandler_saveSession_wrongContentType(t *testing.T) {
	router := testRouter(sheets.NewTestClient())

	req := httptest.NewRequest("POST", "/api/workout/session", strings.NewReader("sheetName=x"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandler_history_bySheet(t *testing.T) {
	tc := sheets.NewTestClient()
	tc.AddSheet("Push Day", [][]string{
		{"", "Mon 12 May", "Wed 14 May"},
		{"Bench Press", "100/3/10", "110/3/8"},
	})
	router := testRouter(tc)

	req := httptest.NewRequest("GET", "/api/history/workouts?sheet=Push+Day", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Cache-Control"), "no-store")

	var resp struct {
		ExerciseStats []ExerciseStat `json:"exerciseStats"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp.ExerciseStats, 1)
	assert.Equal(t, 2, resp.ExerciseStats[0].TotalSessions)
	assert.Equal(t, 110.0, resp.ExerciseStats[0].MaxWeight)
}

func TestHandler_history_byCategory(t *testing.T) {
	tc := sheets.NewTestClient()
	tc.AddSheet("Push Day", nil)
	tc.AddSheet("Pull Day", nil)
	router := testRouter(tc)

	req := httptest.NewRequest("GET", "/api/history/workouts?category=pull", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var resp struct {
		Sheets []string `json:"sheets"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, []string{"Pull Day"}, resp.Sheets)
}

func TestHandler_history_missingParams(t *testing.T) {
	router := testRouter(sheets.NewTestClient())

	req := httptest.NewRequest("GET", "/api/history/workouts", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
