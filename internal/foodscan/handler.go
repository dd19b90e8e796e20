package foodscan

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/sheetfit/sheetfit/internal/diet"
	"github.com/sheetfit/sheetfit/internal/telemetry/tracing"
	"github.com/sheetfit/sheetfit/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

// maxImagePayloadBytes bounds the request body, the base64 image included.
const maxImagePayloadBytes = 8 << 20

type Handler struct {
	analyzer *Analyzer
}

func NewHandler(analyzer *Analyzer) *Handler {
	return &Handler{
		analyzer: analyzer,
	}
}

func (handler *Handler) SetupRoutes(router *mux.Router) {
	router.HandleFunc("/analyze", handler.handleAnalyze).Methods("POST", "OPTIONS")
}

type analyzeRequest struct {
	ImageBase64 string `json:"imageBase64"`
	MimeType    string `json:"mimeType"`
}

func (handler *Handler) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "foodscanHandler.analyze")
	defer span.End()

	if contentType := r.Header.Get("Content-Type"); !strings.HasPrefix(contentType, "application/json") {
		pkg.WriteJSONError(w, http.StatusBadRequest, "invalid content type", "")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxImagePayloadBytes)

	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			pkg.WriteJSONError(w, http.StatusRequestEntityTooLarge, "image too large", "")
			return
		}
		log.Warnf("analyze image, decode request: %s", err)
		pkg.WriteJSONError(w, http.StatusBadRequest, "invalid request body", "")
		return
	}
	if req.ImageBase64 == "" {
		pkg.WriteJSONError(w, http.StatusBadRequest, "missing image data", "")
		return
	}

	meal, err := handler.analyzer.Analyze(ctx, req.ImageBase64, req.MimeType)
	if err != nil {
		handler.writeAnalyzeError(w, err)
		return
	}

	resp, err := json.Marshal(struct {
		Success bool       `json:"success"`
		Meal    *diet.Meal `json:"meal"`
	}{Success: true, Meal: meal})
	if err != nil {
		log.Errorf("marshal analyze response: %s", err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "internal error", "")
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, resp, http.StatusOK)
}

// writeAnalyzeError maps each analyzer failure mode to its own user-facing
// message, so the page can tell the user to enter the meal manually.
func (handler *Handler) writeAnalyzeError(w http.ResponseWriter, err error) {
	var providerErr *ProviderError
	switch {
	case errors.Is(err, ErrNotConfigured):
		pkg.WriteJSONError(w, http.StatusInternalServerError, "AI service is not configured", "")
	case errors.As(err, &providerErr):
		log.Errorf("analyze image, provider failure: %s", err)
		pkg.WriteJSONError(w, providerErr.StatusCode, "AI request failed", providerErr.Details)
	case errors.Is(err, ErrEmptyCompletion):
		pkg.WriteJSONError(w, http.StatusInternalServerError, "No response from AI service", "")
	case errors.Is(err, ErrInvalidJSON):
		pkg.WriteJSONError(w, http.StatusInternalServerError, "AI response was not valid JSON", err.Error())
	default:
		log.Errorf("analyze image: %s", err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "Failed to analyze food image", err.Error())
	}
}
