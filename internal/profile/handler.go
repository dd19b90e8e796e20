package profile

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
	metricsManager *metrics.Manager
}

func NewHandler(service *Service, metricsManager *metrics.Manager) *Handler {
	return &Handler{
		service:        service,
		metricsManager: metricsManager,
	}
}

func (handler *Handler) SetupRoutes(router *mux.Router) {
	router.HandleFunc("", handler.handleGetProfile).Methods("GET", "OPTIONS")
	router.HandleFunc("", handler.handleSaveWeightEntry).Methods("POST")
}

func (handler *Handler) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "profileHandler.getProfile")
	defer span.End()

	data, err := handler.service.ProfileData(ctx)
	if err != nil {
		log.Errorf("get profile data: %s", err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "failed to fetch profile data", err.Error())
		return
	}

	resp, err := json.Marshal(data)
	if err != nil {
		log.Errorf("marshal profile response: %s", err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "internal error", "")
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, resp, http.StatusOK)
}

type saveWeightRequest struct {
	Date   string `json:"date"`
	Weight string `json:"weight"`
	TDEE   string `json:"tdee"`
}

func (handler *Handler) handleSaveWeightEntry(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "profileHandler.saveWeightEntry")
	defer span.End()

	if contentType := r.Header.Get("Content-Type"); !strings.HasPrefix(contentType, "application/json") {
		pkg.WriteJSONError(w, http.StatusBadRequest, "invalid content type", "")
		return
	}

	var req saveWeightRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Warnf("save weight entry, decode request: %s", err)
		pkg.WriteJSONError(w, http.StatusBadRequest, "invalid request body", "")
		return
	}
	if req.Date == "" || req.Weight == "" {
		pkg.WriteJSONError(w, http.StatusBadRequest, "date and weight are required", "")
		return
	}

	row, err := handler.service.SaveWeightEntry(ctx, req.Date, req.Weight, req.TDEE)
	if err != nil {
		log.Errorf("save weight entry [%s]: %s", req.Date, err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "failed to save weight entry", err.Error())
		return
	}

	handler.metricsManager.CounterWeightEntries.Inc()

	resp, err := json.Marshal(struct {
		Success bool `json:"success"`
		Row     int  `json:"row"`
	}{Success: true, Row: row})
	if err != nil {
		log.Errorf("marshal save weight response: %s", err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "internal error", "")
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, resp, http.StatusOK)
}
