package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"world-builder/internal/domain"
)

func TestGenerateImageReturnsInlineData(t *testing.T) {
	var captured generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/img-model:generateContent" {
			t.Errorf("неожиданный путь %s", r.URL.Path)
		}
		if r.Header.Get("x-goog-api-key") != "key" {
			t.Errorf("нет ключа API")
		}
		_ = json.NewDecoder(r.Body).Decode(&captured)
		enc := base64.StdEncoding.EncodeToString([]byte("PNGDATA"))
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"ok"},{"inlineData":{"mimeType":"image/png","data":"` + enc + `"}}]}}]}`))
	}))
	defer srv.Close()

	c := NewClient("key", srv.URL, "img-model", time.Second)
	out, err := c.GenerateImage(context.Background(), ImageRequest{
		SystemPrompt: "sys",
		Prompt:       "brief",
		Images:       []InlineImage{{MimeType: "image/png", Data: []byte("a")}, {Data: []byte("b")}},
		Temperature:  0.2,
		Seed:         42,
	})
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if string(out) != "PNGDATA" {
		t.Fatalf("неожиданные байты %q", out)
	}
	if len(captured.Contents) != 1 || len(captured.Contents[0].Parts) != 3 {
		t.Fatalf("ожидали два изображения и текст")
	}
	if captured.Contents[0].Parts[2].Text != "brief" {
		t.Fatalf("бриф должен идти последним")
	}
	if captured.GenerationConfig.Seed == nil || *captured.GenerationConfig.Seed != 42 {
		t.Fatalf("seed не передан")
	}
	if captured.GenerationConfig.Temperature == nil || *captured.GenerationConfig.Temperature != 0.2 {
		t.Fatalf("temperature не передана")
	}
	if captured.SystemInstruction == nil || captured.SystemInstruction.Parts[0].Text != "sys" {
		t.Fatalf("системная инструкция не передана")
	}
}

func TestGenerateImageWithoutImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"sorry"}]}}]}`))
	}))
	defer srv.Close()

	c := NewClient("key", srv.URL, "m", time.Second)
	_, err := c.GenerateImage(context.Background(), ImageRequest{Prompt: "x"})
	if !errors.Is(err, domain.ErrNoImage) {
		t.Fatalf("ожидали ErrNoImage, получили %v", err)
	}
}

func TestGenerateImageRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"code":429,"message":"quota","status":"RESOURCE_EXHAUSTED"}}`))
	}))
	defer srv.Close()

	c := NewClient("key", srv.URL, "m", time.Second)
	_, err := c.GenerateImage(context.Background(), ImageRequest{Prompt: "x"})
	if !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("ожидали ErrRateLimited, получили %v", err)
	}
}
