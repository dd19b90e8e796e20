package run

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/sheetfit/sheetfit/internal/telemetry/tracing"
	"github.com/sheetfit/sheetfit/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service: service,
	}
}

func (handler *Handler) SetupRoutes(router, historyRouter *mux.Router) {
	router.HandleFunc("", handler.handleGetSessions).Methods("GET", "OPTIONS")
	router.HandleFunc("", handler.handleSaveSession).Methods("POST")
	historyRouter.HandleFunc("/runs", handler.handleGetStats).Methods("GET", "OPTIONS")
}

func (handler *Handler) handleGetSessions(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "runHandler.getSessions")
	defer span.End()

	sessions, err := handler.service.RunSessions(ctx)
	if err != nil {
		log.Errorf("get run sessions: %s", err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "failed to fetch run sessions", err.Error())
		return
	}

	resp, err := json.Marshal(sessions)
	if err != nil {
		log.Errorf("marshal run sessions response: %s", err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "internal error", "")
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, resp, http.StatusOK)
}

func (handler *Handler) handleSaveSession(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "runHandler.saveSession")
	defer span.End()

	if contentType := r.Header.Get("Content-Type"); !strings.HasPrefix(contentType, "application/json") {
		pkg.WriteJSONError(w, http.StatusBadRequest, "invalid content type", "")
		return
	}

	var record Record
	if err := json.NewDecoder(r.Body).Decode(&record); err != nil {
		log.Warnf("save run session, decode request: %s", err)
		pkg.WriteJSONError(w, http.StatusBadRequest, "invalid request body", "")
		return
	}
	if record.Session == "" {
		pkg.WriteJSONError(w, http.StatusBadRequest, "session name is required", "")
		return
	}

	row, err := handler.service.SaveSession(ctx, record)
	if err != nil {
		log.Errorf("save run session [%s]: %s", record.Session, err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "failed to save run session", err.Error())
		return
	}

	resp, err := json.Marshal(struct {
		Success bool `json:"success"`
		Row     int  `json:"row"`
	}{Success: true, Row: row})
	if err != nil {
		log.Errorf("marshal save run response: %s", err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "internal error", "")
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, resp, http.StatusOK)
}

func (handler *Handler) handleGetStats(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "runHandler.getStats")
	defer span.End()

	stats, err := handler.service.RunStats(ctx)
	if err != nil {
		log.Errorf("get run stats: %s", err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "failed to fetch run stats", err.Error())
		return
	}

	resp, err := json.Marshal(stats)
	if err != nil {
		log.Errorf("marshal run stats response: %s", err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "internal error", "")
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, resp, http.StatusOK)
}
