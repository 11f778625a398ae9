package model

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"roast-backend/internal/config"

	"github.com/cloudwego/eino/schema"
)

type capturedRequest struct {
	Path    string
	Header  http.Header
	Payload struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
}

func newUpstream(t *testing.T, status int, body string, captured *capturedRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if captured != nil {
			captured.Path = r.URL.Path
			captured.Header = r.Header.Clone()
			raw, _ := io.ReadAll(r.Body)
			if err := json.Unmarshal(raw, &captured.Payload); err != nil {
				t.Errorf("upstream got invalid json: %v", err)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func upstreamConfig(baseURL string) config.UpstreamConfig {
	return config.UpstreamConfig{
		Provider: config.ProviderOpenRouter,
		APIKey:   "sk-test",
		BaseURL:  baseURL,
		Model:    "qwen/qwen3-235b-a22b-07-25:free",
		SiteURL:  "https://roast.example",
		SiteName: "Roast AI",
		Timeout:  5 * time.Second,
	}
}

func TestGenerateSendsHistoryAndMetadata(t *testing.T) {
	var captured capturedRequest
	srv := newUpstream(t, http.StatusOK, `{"choices":[{"message":{"role":"assistant","content":"Roast text"}}]}`, &captured)

	chatModel, err := NewChatModel(context.Background(), upstreamConfig(srv.URL))
	if err != nil {
		t.Fatalf("NewChatModel: %v", err)
	}

	msg, err := chatModel.Generate(context.Background(), []*schema.Message{
		schema.SystemMessage("be mean"),
		{Role: schema.User, Content: "hello"},
		{Role: schema.Assistant, Content: "you again"},
		schema.UserMessage("I love pineapple pizza"),
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if msg.Content != "Roast text" {
		t.Errorf("expected reply %q, got %q", "Roast text", msg.Content)
	}

	if captured.Path != "/chat/completions" {
		t.Errorf("unexpected path %q", captured.Path)
	}
	if got := captured.Header.Get("Authorization"); got != "Bearer sk-test" {
		t.Errorf("unexpected Authorization %q", got)
	}
	if got := captured.Header.Get("HTTP-Referer"); got != "https://roast.example" {
		t.Errorf("unexpected HTTP-Referer %q", got)
	}
	if got := captured.Header.Get("X-Title"); got != "Roast AI" {
		t.Errorf("unexpected X-Title %q", got)
	}
	if captured.Payload.Model != "qwen/qwen3-235b-a22b-07-25:free" {
		t.Errorf("unexpected model %q", captured.Payload.Model)
	}

	wantRoles := []string{"system", "user", "assistant", "user"}
	if len(captured.Payload.Messages) != len(wantRoles) {
		t.Fatalf("expected %d messages, got %d", len(wantRoles), len(captured.Payload.Messages))
	}
	for i, role := range wantRoles {
		if captured.Payload.Messages[i].Role != role {
			t.Errorf("message %d: expected role %q, got %q", i, role, captured.Payload.Messages[i].Role)
		}
	}
	if captured.Payload.Messages[3].Content != "I love pineapple pizza" {
		t.Errorf("unexpected last message %q", captured.Payload.Messages[3].Content)
	}
}

func TestGenerateNoChoices(t *testing.T) {
	srv := newUpstream(t, http.StatusOK, `{"choices":[]}`, nil)

	chatModel, err := NewChatModel(context.Background(), upstreamConfig(srv.URL))
	if err != nil {
		t.Fatalf("NewChatModel: %v", err)
	}

	msg, err := chatModel.Generate(context.Background(), []*schema.Message{schema.UserMessage("test")})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if msg.Content != "" {
		t.Errorf("expected empty content, got %q", msg.Content)
	}
}

func TestGenerateErrorStatus(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"structured error body", `{"error":{"message":"rate limited","code":429}}`},
		{"unstructured body", `upstream exploded`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := newUpstream(t, http.StatusTooManyRequests, tc.body, nil)

			chatModel, err := NewChatModel(context.Background(), upstreamConfig(srv.URL))
			if err != nil {
				t.Fatalf("NewChatModel: %v", err)
			}

			_, err = chatModel.Generate(context.Background(), []*schema.Message{schema.UserMessage("again")})
			if !errors.Is(err, ErrUpstreamStatus) {
				t.Fatalf("expected ErrUpstreamStatus, got %v", err)
			}
			if !strings.Contains(err.Error(), "429") {
				t.Errorf("expected status code in error, got %q", err.Error())
			}
		})
	}
}

func TestGenerateMalformedBody(t *testing.T) {
	srv := newUpstream(t, http.StatusOK, `{"choices":`, nil)

	chatModel, err := NewChatModel(context.Background(), upstreamConfig(srv.URL))
	if err != nil {
		t.Fatalf("NewChatModel: %v", err)
	}

	_, err = chatModel.Generate(context.Background(), []*schema.Message{schema.UserMessage("hi")})
	if err == nil {
		t.Fatal("expected decode error")
	}
	if errors.Is(err, ErrUpstreamStatus) {
		t.Errorf("malformed body is not a status failure: %v", err)
	}
}

func TestMetadataTransportSkipsEmptyValues(t *testing.T) {
	var captured capturedRequest
	srv := newUpstream(t, http.StatusOK, `{"choices":[{"message":{"content":"ok"}}]}`, &captured)

	cfg := upstreamConfig(srv.URL)
	cfg.SiteURL = ""
	cfg.SiteName = ""
	chatModel, err := NewChatModel(context.Background(), cfg)
	if err != nil {
		t.Fatalf("NewChatModel: %v", err)
	}
	if _, err := chatModel.Generate(context.Background(), []*schema.Message{schema.UserMessage("hi")}); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if _, ok := captured.Header["Http-Referer"]; ok {
		t.Errorf("HTTP-Referer should not be sent when unset")
	}
	if _, ok := captured.Header["X-Title"]; ok {
		t.Errorf("X-Title should not be sent when unset")
	}
}

func TestNewChatModelUnknownProvider(t *testing.T) {
	cfg := upstreamConfig("http://127.0.0.1:0")
	cfg.Provider = "ark"
	if _, err := NewChatModel(context.Background(), cfg); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestIsSensitiveHeader(t *testing.T) {
	for _, name := range []string{"Authorization", "authorization", "Cookie", "X-Api-Key"} {
		if !isSensitiveHeader(name) {
			t.Errorf("%s should be redacted", name)
		}
	}
	if isSensitiveHeader("Content-Type") {
		t.Errorf("Content-Type should not be redacted")
	}
}
