package workout

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/sheetfit/sheetfit/internal/telemetry/metrics"
	"github.com/sheetfit/sheetfit/internal/telemetry/tracing"
	"github.com/sheetfit/sheetfit/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type Handler struct {
	service        *Service
	analyzer       *Analyzer
	metricsManager *metrics.Manager
}

func NewHandler(service *Service, analyzer *Analyzer, metricsManager *metrics.Manager) *Handler {
	return &Handler{
		service:        service,
		analyzer:       analyzer,
		metricsManager: metricsManager,
	}
}

func (handler *Handler) SetupRoutes(router, historyRouter *mux.Router) {
	router.HandleFunc("/sheets", handler.handleGetSheets).Methods("GET", "OPTIONS")
	router.HandleFunc("/session", handler.handleSaveSession).Methods("POST", "OPTIONS")
	router.HandleFunc("", handler.handleGetWorkouts).Methods("GET", "OPTIONS")
	historyRouter.HandleFunc("/workouts", handler.handleGetHistory).Methods("GET", "OPTIONS")
}

func (handler *Handler) handleGetSheets(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "workoutHandler.getSheets")
	defer span.End()

	sheetNames, err := handler.service.SheetNames(ctx)
	if err != nil {
		log.Errorf("get workout sheets: %s", err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "failed to list sheets", err.Error())
		return
	}

	resp, err := json.Marshal(struct {
		SheetNames []string `json:"sheetNames"`
	}{SheetNames: sheetNames})
	if err != nil {
		log.Errorf("marshal workout sheets response: %s", err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "internal error", "")
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, resp, http.StatusOK)
}

func (handler *Handler) handleGetWorkouts(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "workoutHandler.getWorkouts")
	defer span.End()

	sheetName := r.URL.Query().Get("sheetName")
	if sheetName == "" {
		pkg.WriteJSONError(w, http.StatusBadRequest, "sheetName parameter is required", "")
		return
	}

	definition, err := handler.service.Workouts(ctx, sheetName)
	if err != nil {
		log.Errorf("get workouts for [%s]: %s", sheetName, err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "failed to read workout sheet", err.Error())
		return
	}

	resp, err := json.Marshal(definition)
	if err != nil {
		log.Errorf("marshal workouts response: %s", err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "internal error", "")
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, resp, http.StatusOK)
}

type saveSessionRequest struct {
	SheetName      string   `json:"sheetName"`
	SessionName    string   `json:"sessionName"`
	WorkoutData    []string `json:"workoutData"`
	ExistingColumn string   `json:"existingColumn"`
}

func (handler *Handler) handleSaveSession(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "workoutHandler.saveSession")
	defer span.End()

	if contentType := r.Header.Get("Content-Type"); !strings.HasPrefix(contentType, "application/json") {
		pkg.WriteJSONError(w, http.StatusBadRequest, "invalid content type", "")
		return
	}

	var req saveSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Warnf("save session, decode request: %s", err)
		pkg.WriteJSONError(w, http.StatusBadRequest, "invalid request body", "")
		return
	}
	if req.SheetName == "" || req.SessionName == "" || len(req.WorkoutData) == 0 {
		pkg.WriteJSONError(w, http.StatusBadRequest, "sheetName, sessionName and workoutData are required", "")
		return
	}

	column, err := handler.service.SaveSession(ctx, req.SheetName, req.SessionName, req.WorkoutData, req.ExistingColumn)
	if err != nil {
		log.Errorf("save session [%s] to [%s]: %s", req.SessionName, req.SheetName, err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "failed to save session", err.Error())
		return
	}

	handler.metricsManager.CounterWorkoutSessions.Inc()

	resp, err := json.Marshal(struct {
		Success bool   `json:"success"`
		Column  string `json:"column"`
	}{Success: true, Column: column})
	if err != nil {
		log.Errorf("marshal save session response: %s", err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "internal error", "")
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, resp, http.StatusOK)
}

func (handler *Handler) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "workoutHandler.getHistory")
	defer span.End()

	// history responses change whenever a session is saved, keep proxies out
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
	w.Header().Set("Pragma", "no-cache")

	category := r.URL.Query().Get("category")
	sheet := r.URL.Query().Get("sheet")

	switch {
	case sheet != "":
		stats, err := handler.analyzer.ExerciseStats(ctx, sheet)
		if err != nil {
			log.Errorf("exercise stats for [%s]: %s", sheet, err)
			pkg.WriteJSONError(w, http.StatusInternalServerError, "failed to compute exercise stats", err.Error())
			return
		}
		if stats == nil {
			stats = []ExerciseStat{}
		}
		resp, err := json.Marshal(struct {
			ExerciseStats []ExerciseStat `json:"exerciseStats"`
		}{ExerciseStats: stats})
		if err != nil {
			log.Errorf("marshal exercise stats response: %s", err)
			pkg.WriteJSONError(w, http.StatusInternalServerError, "internal error", "")
			return
		}
		pkg.WriteResponseBytes(w, pkg.ContentType.JSON, resp, http.StatusOK)
	case category != "":
		sheetNames, err := handler.service.SheetsByCategory(ctx, category)
		if err != nil {
			log.Errorf("sheets for category [%s]: %s", category, err)
			pkg.WriteJSONError(w, http.StatusInternalServerError, "failed to list sheets", err.Error())
			return
		}
		if sheetNames == nil {
			sheetNames = []string{}
		}
		resp, err := json.Marshal(struct {
			Sheets []string `json:"sheets"`
		}{Sheets: sheetNames})
		if err != nil {
			log.Errorf("marshal category sheets response: %s", err)
			pkg.WriteJSONError(w, http.StatusInternalServerError, "internal error", "")
			return
		}
		pkg.WriteResponseBytes(w, pkg.ContentType.JSON, resp, http.StatusOK)
	default:
		pkg.WriteJSONError(w, http.StatusBadRequest, "category or sheet parameter is required", "")
	}
}
