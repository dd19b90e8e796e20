package calendar

import (
	"encoding/json"
	"net/http"

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

func (handler *Handler) SetupRoutes(router *mux.Router) {
	router.HandleFunc("/activities", handler.handleGetActivities).Methods("GET", "OPTIONS")
}

func (handler *Handler) handleGetActivities(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "calendarHandler.getActivities")
	defer span.End()

	activities, err := handler.service.CalendarActivities(ctx)
	if err != nil {
		log.Errorf("get calendar activities: %s", err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "failed to fetch activities", err.Error())
		return
	}

	resp, err := json.Marshal(activities)
	if err != nil {
		log.Errorf("marshal activities response: %s", err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "internal error", "")
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, resp, http.StatusOK)
}
