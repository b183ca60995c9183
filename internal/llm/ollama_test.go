package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestOllamaClient_Chat(t *testing.T) {
	var got ollamaRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/chat" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"model":   "qwen2.5",
			"message": map[string]string{"role": "assistant", "content": `{"reply":"hi"}`},
			"done":    true,
		})
	}))
	defer srv.Close()

	c := NewOllamaClient(Config{BaseURL: srv.URL + "/", Model: "qwen2.5"}, nil)
	text, err := c.Chat(context.Background(), []Message{
		{Role: "user", Content: "hello"},
		{Role: "assistant", Content: "earlier reply"},
		{Role: "tool", Content: "odd role"},
	}, "be brief")
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if text != `{"reply":"hi"}` {
		t.Errorf("text = %q", text)
	}

	want := ollamaRequest{
		Model: "qwen2.5",
		Messages: []Message{
			{Role: "system", Content: "be brief"},
			{Role: "user", Content: "hello"},
			{Role: "assistant", Content: "earlier reply"},
			{Role: "user", Content: "odd role"},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("request mismatch (-want +got):\n%s", diff)
	}
}

func TestOllamaClient_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewOllamaClient(Config{BaseURL: srv.URL, Model: "missing"}, nil)
	_, err := c.Chat(context.Background(), []Message{{Role: "user", Content: "x"}}, "")

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusNotFound || apiErr.Provider != ProviderOllama {
		t.Errorf("APIError = %+v", apiErr)
	}
}
