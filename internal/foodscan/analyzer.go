// Package foodscan estimates nutrition facts from a meal photo via an
// external multimodal chat-completion endpoint.
//
// Callers are expected to downscale images before upload: neither dimension
// over 768px, re-encoded at ~0.72 quality when downscaling occurs, and
// rejected client-side if still over the size ceiling after compression. The
// server enforces only the hard 8MB request ceiling.
package foodscan

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sheetfit/sheetfit/internal/diet"
	"github.com/sheetfit/sheetfit/internal/telemetry/metrics"
	"github.com/sheetfit/sheetfit/internal/telemetry/tracing"

	"github.com/coocood/freecache"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	defaultBaseURL = "https://api.redpill.ai/v1/chat/completions"
	defaultModel   = "openai/gpt-4.1-nano"

	// analyzing the same photo twice should not cost a second provider call
	cacheSizeBytes    = 20 * 1024 * 1024
	cacheExpirySec    = 3600
	providerTimeout   = 60 * time.Second
	samplingTemp      = 0.15
	defaultMealName   = "Logged meal"
	analyzeSystemRole = "You are an experienced nutrition coach. " +
		"Given a photo of food encoded as base64, identify the most likely dish and estimate calories (kcal), protein (g), carbs (g), and fat (g). " +
		`Respond with strict JSON matching the schema: {"name": string, "calories": number, "protein": number, "carbs": number, "fat": number}. ` +
		"If multiple foods are visible, pick the dominant portion and include everything visible (sauces, sides). " +
		"If unsure, make the best reasonable estimate and still return numbers."
)

var (
	ErrNotConfigured   = errors.New("ai service is not configured")
	ErrEmptyCompletion = errors.New("no response from ai service")
	ErrInvalidJSON     = errors.New("ai response was not valid json")
)

// ProviderError is a non-2xx reply from the completion endpoint. The status
// code is forwarded to the end user as-is.
type ProviderError struct {
	StatusCode int
	Details    string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("ai request failed [%d]: %s", e.StatusCode, e.Details)
}

type Config struct {
	BaseURL    string
	APIKey     string
	Model      string
	HTTPClient *http.Client
}

type Analyzer struct {
	httpClient     *http.Client
	baseURL        string
	apiKey         string
	model          string
	cache          *freecache.Cache
	metricsManager *metrics.Manager
}

func NewAnalyzer(config Config, metricsManager *metrics.Manager) *Analyzer {
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	if config.Model == "" {
		config.Model = defaultModel
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{
			Timeout:   providerTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	return &Analyzer{
		httpClient:     config.HTTPClient,
		baseURL:        config.BaseURL,
		apiKey:         config.APIKey,
		model:          config.Model,
		cache:          freecache.NewCache(cacheSizeBytes),
		metricsManager: metricsManager,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Temperature    float64        `json:"temperature"`
	Messages       []chatMessage  `json:"messages"`
	ResponseFormat responseFormat `json:"response_format"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Analyze sends the photo to the completion endpoint and returns the
// estimated meal. Results are cached by image digest so re-analyzing the same
// photo is free.
func (a *Analyzer) Analyze(ctx context.Context, imageBase64, mimeType string) (_ *diet.Meal, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "foodscan.analyze")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if a.apiKey == "" {
		a.countOutcome("not_configured")
		return nil, ErrNotConfigured
	}

	cacheKey := a.cacheKey(imageBase64, mimeType)
	if cached, err := a.cache.Get(cacheKey); err == nil {
		var meal diet.Meal
		if err := json.Unmarshal(cached, &meal); err == nil {
			a.countOutcome("cache_hit")
			return &meal, nil
		}
	}

	meal, err := a.callProvider(ctx, imageBase64, mimeType)
	if err != nil {
		switch {
		case errors.Is(err, ErrEmptyCompletion):
			a.countOutcome("empty_completion")
		case errors.Is(err, ErrInvalidJSON):
			a.countOutcome("invalid_json")
		default:
			a.countOutcome("provider_error")
		}
		return nil, err
	}

	if mealBytes, err := json.Marshal(meal); err == nil {
		if err := a.cache.Set(cacheKey, mealBytes, cacheExpirySec); err != nil {
			log.Warnf("foodscan: cache analyzed meal: %s", err)
		}
	}

	a.countOutcome("ok")
	return meal, nil
}

func (a *Analyzer) callProvider(ctx context.Context, imageBase64, mimeType string) (*diet.Meal, error) {
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	imageDataURL := fmt.Sprintf("data:%s;base64,%s", mimeType, imageBase64)

	reqPayload := chatRequest{
		Model:       a.model,
		Temperature: samplingTemp,
		Messages: []chatMessage{
			{Role: "system", Content: analyzeSystemRole},
			{Role: "user", Content: []contentPart{
				{Type: "text", Text: "Analyze the attached food photo and respond with JSON only."},
				{Type: "image_url", ImageURL: &imageURL{URL: imageDataURL, Detail: "low"}},
				{Type: "text", Text: "Remember: JSON only, no explanations."},
			}},
		},
		ResponseFormat: responseFormat{Type: "json_object"},
	}

	reqBytes, err := json.Marshal(reqPayload)
	if err != nil {
		return nil, fmt.Errorf("marshal provider request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL, bytes.NewReader(reqBytes))
	if err != nil {
		return nil, fmt.Errorf("create provider request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.apiKey)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("provider call: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Warnf("foodscan: close provider response body: %s", err)
		}
	}()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read provider response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &ProviderError{
			StatusCode: resp.StatusCode,
			Details:    providerErrorDetails(respBytes, resp.Status),
		}
	}

	var completion chatResponse
	if err := json.Unmarshal(respBytes, &completion); err != nil {
		return nil, fmt.Errorf("decode provider response: %w", err)
	}
	if len(completion.Choices) == 0 || completion.Choices[0].Message.Content == "" {
		return nil, ErrEmptyCompletion
	}

	var parsed map[string]any
	if err := json.Unmarshal([]byte(completion.Choices[0].Message.Content), &parsed); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidJSON, err)
	}

	name := strings.TrimSpace(stringField(parsed, "name"))
	if name == "" {
		name = defaultMealName
	}

	return &diet.Meal{
		Name:     name,
		Calories: numberField(parsed, "calories"),
		Protein:  numberField(parsed, "protein"),
		Carbs:    numberField(parsed, "carbs"),
		Fat:      numberField(parsed, "fat"),
	}, nil
}

func (a *Analyzer) cacheKey(imageBase64, mimeType string) []byte {
	digest := sha256.Sum256([]byte(mimeType + "|" + imageBase64))
	return digest[:]
}

func (a *Analyzer) countOutcome(outcome string) {
	a.metricsManager.CounterPhotoAnalyses.WithLabelValues(outcome).Inc()
}

// providerErrorDetails digs a human-readable message out of an error body
// that may or may not be JSON.
func providerErrorDetails(body []byte, fallback string) string {
	var parsed map[string]any
	if err := json.Unmarshal(body, &parsed); err != nil {
		if len(body) > 0 {
			return string(body)
		}
		return fallback
	}
	for _, key := range []string{"error", "message"} {
		switch v := parsed[key].(type) {
		case string:
			return v
		case map[string]any:
			if msg, ok := v["message"].(string); ok {
				return msg
			}
		}
	}
	return string(body)
}

func stringField(parsed map[string]any, key string) string {
	if v, ok := parsed[key].(string); ok {
		return v
	}
	return ""
}

// numberField coerces a JSON value into a sanitized macro: numbers directly,
// numeric strings parsed, everything else 0.
func numberField(parsed map[string]any, key string) float64 {
	switch v := parsed[key].(type) {
	case float64:
		return diet.SanitizeMacro(v)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0
		}
		return diet.SanitizeMacro(f)
	default:
		return 0
	}
}
