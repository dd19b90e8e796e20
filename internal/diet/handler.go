package diet

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/sheetfit/sheetfit/internal/telemetry/metrics"
	"github.com/sheetfit/sheetfit/internal/telemetry/tracing"
	"github.com/sheetfit/sheetfit/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

const defaultHistoryViewLimit = 30

type Handler struct {
	service        *Service
	metricsManager *metrics.Manager
}

func NewHandler(service *Service, metricsManager *metrics.Manager) *Handler {
	return &Handler{
		service:        service,
		metricsManager: metricsManager,
	}
}

func (handler *Handler) SetupRoutes(router *mux.Router) {
	router.HandleFunc("/food", handler.handleGetFood).Methods("GET", "OPTIONS")
	router.HandleFunc("/food", handler.handleAddMeal).Methods("POST")
	router.HandleFunc("/deficit", handler.handleGetDeficit).Methods("GET", "OPTIONS")
	router.HandleFunc("/deficit/history", handler.handleDeficitHistory).Methods("GET", "OPTIONS")
}

func (handler *Handler) handleGetFood(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "dietHandler.getFood")
	defer span.End()

	dayMeals, err := handler.service.TodaysMeals(ctx)
	if err != nil {
		log.Errorf("get todays meals: %s", err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "failed to read meals", err.Error())
		return
	}

	resp, err := json.Marshal(dayMeals)
	if err != nil {
		log.Errorf("marshal meals response: %s", err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "internal error", "")
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, resp, http.StatusOK)
}

// addMealRequest keeps calories pointer-typed so a zero-calorie meal (water,
// black coffee) is distinguishable from a missing field.
type addMealRequest struct {
	Name     string   `json:"name"`
	Calories *float64 `json:"calories"`
	Protein  float64  `json:"protein"`
	Carbs    float64  `json:"carbs"`
	Fat      float64  `json:"fat"`
}

func (handler *Handler) handleAddMeal(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "dietHandler.addMeal")
	defer span.End()

	if contentType := r.Header.Get("Content-Type"); !strings.HasPrefix(contentType, "application/json") {
		pkg.WriteJSONError(w, http.StatusBadRequest, "invalid content type", "")
		return
	}

	var mealReq addMealRequest
	if err := json.NewDecoder(r.Body).Decode(&mealReq); err != nil {
		log.Warnf("add meal, decode request: %s", err)
		pkg.WriteJSONError(w, http.StatusBadRequest, "invalid request body", "")
		return
	}
	if mealReq.Name == "" || mealReq.Calories == nil {
		pkg.WriteJSONError(w, http.StatusBadRequest, "name and calories are required", "")
		return
	}

	meal := Meal{
		Name:     mealReq.Name,
		Calories: *mealReq.Calories,
		Protein:  mealReq.Protein,
		Carbs:    mealReq.Carbs,
		Fat:      mealReq.Fat,
	}

	if err := handler.service.AddMeal(ctx, meal); err != nil {
		log.Errorf("add meal [%s]: %s", meal.Name, err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "failed to add meal", err.Error())
		return
	}

	handler.metricsManager.CounterMealsAdded.Inc()

	pkg.WriteJSONResponseOK(w, `{"success":true}`)
}

func (handler *Handler) handleGetDeficit(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "dietHandler.getDeficit")
	defer span.End()

	status, err := handler.service.UpdateDeficit(ctx)
	if err != nil {
		log.Errorf("update deficit: %s", err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "failed to compute deficit", err.Error())
		return
	}

	resp, err := json.Marshal(status)
	if err != nil {
		log.Errorf("marshal deficit response: %s", err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "internal error", "")
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, resp, http.StatusOK)
}

type deficitStats struct {
	Average float64 `json:"average"`
	Max     float64 `json:"max"`
	Min     float64 `json:"min"`
}

func (handler *Handler) handleDeficitHistory(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "dietHandler.deficitHistory")
	defer span.End()

	// bring today's row up to date before reading the trend
	if _, err := handler.service.UpdateDeficit(ctx); err != nil {
		log.Errorf("refresh deficit before history: %s", err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "failed to refresh deficit", err.Error())
		return
	}

	limit := defaultHistoryViewLimit
	if limitParam := r.URL.Query().Get("limit"); limitParam != "" {
		if parsed, err := strconv.Atoi(limitParam); err == nil && parsed > 0 {
			limit = parsed
		} else {
			log.Warnf("deficit history: ignoring unusable limit [%s]", limitParam)
		}
	}

	history, err := handler.service.DeficitHistory(ctx, limit)
	if err != nil {
		log.Errorf("get deficit history: %s", err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "failed to read deficit history", err.Error())
		return
	}
	if history == nil {
		history = []DeficitEntry{}
	}

	var stats deficitStats
	if len(history) > 0 {
		var sum float64
		stats.Max = history[0].Deficit
		stats.Min = history[0].Deficit
		for _, entry := range history {
			sum += entry.Deficit
			stats.Max = math.Max(stats.Max, entry.Deficit)
			stats.Min = math.Min(stats.Min, entry.Deficit)
		}
		stats.Average = sum / float64(len(history))
	}

	resp, err := json.Marshal(struct {
		History []DeficitEntry `json:"history"`
		Stats   deficitStats   `json:"stats"`
	}{History: history, Stats: stats})
	if err != nil {
		log.Errorf("marshal deficit history response: %s", err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "internal error", "")
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, resp, http.StatusOK)
}
