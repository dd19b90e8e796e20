package foodscan

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sheetfit/sheetfit/internal/diet"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func analyzeTestRouter(t *testing.T, providerHandler http.HandlerFunc) *mux.Router {
	t.Helper()
	analyzer, _ := newTestAnalyzer(t, providerHandler)
	router := mux.NewRouter()
	NewHandler(analyzer).SetupRoutes(router.PathPrefix("/api/diet").Subrouter())
	return router
}

func TestHandler_analyze(t *testing.T) {
	router := analyzeTestRouter(t, func(w http.ResponseWriter, _ *http.Request) {
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{
					"content": `{"name":"Pasta Bolognese","calories":720,"protein":35,"carbs":80,"fat":25}`,
				}},
			},
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	})

	body := `{"imageBase64":"aW1hZ2U=","mimeType":"image/png"}`
	req := httptest.NewRequest("POST", "/api/diet/analyze", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var resp struct {
		Success bool      `json:"success"`
		Meal    diet.Meal `json:"meal"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "Pasta Bolognese", resp.Meal.Name)
	assert.Equal(t, 720.0, resp.Meal.Calories)
}

func TestHandler_analyze_missingImage(t *testing.T) {
	router := analyzeTestRouter(t, func(http.ResponseWriter, *http.Request) {
		t.Fatal("provider must not be called")
	})

	req := httptest.NewRequest("POST", "/api/diet/analyze", strings.NewReader(`{"mimeType":"image/png"}`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "missing image data")
}

func TestHandler_analyze_providerStatusForwarded(t *testing.T) {
	router := analyzeTestRouter(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"error":"upstream exploded"}`))
	})

	body := `{"imageBase64":"aW1hZ2U="}`
	req := httptest.NewRequest("POST", "/api/diet/analyze", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadGateway, rr.Code)
	assert.Contains(t, rr.Body.String(), "AI request failed")
	assert.Contains(t, rr.Body.String(), "upstream exploded")
}
