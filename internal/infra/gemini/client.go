package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"world-builder/internal/domain"
	"world-builder/internal/infra/metrics"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Client вызывает generateContent моделей генерации изображений Gemini.
type Client struct {
	http    *http.Client
	baseURL string
	apiKey  string
	model   string
}

// NewClient создаёт клиента Gemini.
func NewClient(apiKey, baseURL, model string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
	}
}

// InlineImage — изображение-референс в запросе.
type InlineImage struct {
	MimeType string
	Data     []byte
}

// ImageRequest описывает запрос на генерацию изображения.
type ImageRequest struct {
	SystemPrompt string
	Prompt       string
	Images       []InlineImage
	Temperature  float64
	Seed         int
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature        *float64 `json:"temperature,omitempty"`
	Seed               *int     `json:"seed,omitempty"`
	ResponseModalities []string `json:"responseModalities,omitempty"`
}

type generateRequest struct {
	SystemInstruction *content         `json:"systemInstruction,omitempty"`
	Contents          []content        `json:"contents"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
}

type apiErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// APIError — ошибка API Gemini. 429 распознаётся как domain.ErrRateLimited.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gemini: status %d: %s", e.StatusCode, e.Message)
}

// Unwrap позволяет проверять лимиты через errors.Is.
func (e *APIError) Unwrap() error {
	if e.StatusCode == http.StatusTooManyRequests {
		return domain.ErrRateLimited
	}
	return nil
}

// GenerateImage отправляет референсы и бриф и возвращает байты первого изображения ответа.
// Если изображения в ответе нет, возвращается domain.ErrNoImage.
func (c *Client) GenerateImage(ctx context.Context, req ImageRequest) ([]byte, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("gemini: api key is empty")
	}
	parts := make([]part, 0, len(req.Images)+1)
	for _, img := range req.Images {
		mime := img.MimeType
		if mime == "" {
			mime = http.DetectContentType(img.Data)
		}
		parts = append(parts, part{InlineData: &inlineData{MimeType: mime, Data: base64.StdEncoding.EncodeToString(img.Data)}})
	}
	parts = append(parts, part{Text: req.Prompt})

	temperature := req.Temperature
	seed := req.Seed
	body := generateRequest{
		Contents: []content{{Role: "user", Parts: parts}},
		GenerationConfig: generationConfig{
			Temperature:        &temperature,
			Seed:               &seed,
			ResponseModalities: []string{"IMAGE"},
		},
	}
	if strings.TrimSpace(req.SystemPrompt) != "" {
		body.SystemInstruction = &content{Parts: []part{{Text: req.SystemPrompt}}}
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("gemini: marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("gemini: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		metrics.ObserveNetworkRequest("gemini", "generate_content", c.model, start, err)
		return nil, fmt.Errorf("gemini: do request: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.ObserveNetworkRequest("gemini", "generate_content", c.model, start, err)
		return nil, fmt.Errorf("gemini: read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var payload apiErrorResponse
		if json.Unmarshal(raw, &payload) == nil {
			apiErr.Message = payload.Error.Message
		}
		metrics.ObserveNetworkRequest("gemini", "generate_content", c.model, start, apiErr)
		return nil, apiErr
	}
	metrics.ObserveNetworkRequest("gemini", "generate_content", c.model, start, nil)

	var parsed generateResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("gemini: decode response: %w", err)
	}
	for _, cand := range parsed.Candidates {
		for _, p := range cand.Content.Parts {
			if p.InlineData == nil || p.InlineData.Data == "" {
				continue
			}
			data, err := base64.StdEncoding.DecodeString(p.InlineData.Data)
			if err != nil {
				return nil, fmt.Errorf("gemini: decode image: %w", err)
			}
			return data, nil
		}
	}
	return nil, domain.ErrNoImage
}
