package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sheetfit/sheetfit/internal/sheets"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func calendarFixture() (*Service, *sheets.TestClient) {
	tc := sheets.NewTestClient()
	tc.AddSheet("Push Day", [][]string{
		{"", "2025-05-12", "Wed 14 May", "not a date"},
		{"Bench Press", "100/3/10", "102.5/3/8", "x"},
	})
	tc.AddSheet("Pull Day", [][]string{
		{"", "2025-05-12", "13/05/2025"},
	})
	tc.AddSheet("Leg Day", nil)
	tc.AddSheet("Notes", [][]string{
		{"", "2025-01-01"},
	})
	tc.AddSheet("Run", [][]string{
		{"Session", "Distance"},
		{"2025-05-11", "5.2"},
		{"morning jog", "3.0"},
		{"2025-05-12", "4.0"},
	})

	service := NewService(tc, "Run")
	service.timeNow = func() time.Time { return time.Date(2025, 5, 14, 10, 0, 0, 0, time.Local) }
	return service, tc
}

func TestService_CalendarActivities(t *testing.T) {
	service, _ := calendarFixture()

	activities, err := service.CalendarActivities(context.Background())
	require.NoError(t, err)

	// deduplicated across push/pull sheets, unparseable labels dropped,
	// the non-workout "Notes" sheet ignored
	assert.ElementsMatch(t,
		[]string{"2025-05-12", "2025-05-13", "2025-05-14"},
		activities.WorkoutDates)
	assert.ElementsMatch(t, []string{"2025-05-11", "2025-05-12"}, activities.RunDates)
}

func TestService_CalendarActivities_runSheetMissing(t *testing.T) {
	tc := sheets.NewTestClient()
	tc.AddSheet("Push Day", [][]string{
		{"", "2025-05-12"},
	})
	service := NewService(tc, "Run")

	activities, err := service.CalendarActivities(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"2025-05-12"}, activities.WorkoutDates)
	assert.Empty(t, activities.RunDates)
}

func TestService_CalendarActivities_titlesError(t *testing.T) {
	_, tc := calendarFixture()
	tc.TitlesErr = errors.New("backend unavailable")
	service := NewService(tc, "Run")

	_, err := service.CalendarActivities(context.Background())
	require.Error(t, err)
}

func TestHandler_getActivities(t *testing.T) {
	service, _ := calendarFixture()
	router := mux.NewRouter()
	NewHandler(service).SetupRoutes(router.PathPrefix("/api/calendar").Subrouter())

	req := httptest.NewRequest("GET", "/api/calendar/activities", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var resp Activities
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.ElementsMatch(t, []string{"2025-05-11", "2025-05-12"}, resp.RunDates)
}
