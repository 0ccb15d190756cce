package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"world-builder/internal/domain"
)

func TestCreateChatCompletionSendsJSONMode(t *testing.T) {
	var captured ChatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("неожиданный путь %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer key" {
			t.Errorf("неожиданный заголовок авторизации %q", got)
		}
		_ = json.NewDecoder(r.Body).Decode(&captured)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":" {\"posts\":[\"hi\"]} "}}],"usage":{"prompt_tokens":3,"completion_tokens":2}}`))
	}))
	defer srv.Close()

	c := NewClient("key", srv.URL, time.Second)
	resp, err := c.CreateChatCompletion(context.Background(), ChatCompletionRequest{
		Model:          "m",
		Messages:       []ChatMessage{{Role: RoleSystem, Content: "s"}, {Role: RoleUser, Content: "u"}},
		ResponseFormat: &ChatCompletionResponseFormat{Type: ResponseFormatTypeJSONObject},
	})
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	content, err := resp.FirstContent()
	if err != nil || content != `{"posts":["hi"]}` {
		t.Fatalf("неожиданный ответ %q (%v)", content, err)
	}
	if captured.ResponseFormat == nil || captured.ResponseFormat.Type != ResponseFormatTypeJSONObject {
		t.Fatalf("ожидали json_object в запросе")
	}
	if len(captured.Messages) != 2 || captured.Messages[0].Role != RoleSystem {
		t.Fatalf("сообщения не переданы: %+v", captured.Messages)
	}
}

func TestCreateChatCompletionRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"slow down"}}`))
	}))
	defer srv.Close()

	c := NewClient("key", srv.URL, time.Second)
	_, err := c.CreateChatCompletion(context.Background(), ChatCompletionRequest{Model: "m"})
	if !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("ожидали ErrRateLimited, получили %v", err)
	}
}

func TestCreateChatCompletionServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient("key", srv.URL, time.Second)
	_, err := c.CreateChatCompletion(context.Background(), ChatCompletionRequest{Model: "m"})
	if err == nil || errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("ожидали обычную ошибку, получили %v", err)
	}
}

func TestCreateChatCompletionRequiresKey(t *testing.T) {
	c := NewClient("", "http://127.0.0.1:1", time.Second)
	if _, err := c.CreateChatCompletion(context.Background(), ChatCompletionRequest{}); err == nil {
		t.Fatalf("ожидали ошибку без ключа")
	}
}
