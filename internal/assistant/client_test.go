package assistant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mmeshcher/quickdeliver/internal/model"
)

func newTestClient(url, key string) *Client {
	return NewClient(Config{
		BaseURL: url,
		APIKey:  key,
		Model:   "test/model",
		SiteURL: "https://quickdeliver.app",
		AppName: "QuickDeliver",
	}, nil)
}

func TestAsk_OK(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("method = %s, want POST", r.Method)
		}
		if r.URL.Path != "/chat/completions" {
			t.Fatalf("path = %s, want /chat/completions", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Fatalf("Authorization = %q", got)
		}
		if got := r.Header.Get("HTTP-Referer"); got != "https://quickdeliver.app" {
			t.Fatalf("HTTP-Referer = %q", got)
		}
		if got := r.Header.Get("X-Title"); got != "QuickDeliver" {
			t.Fatalf("X-Title = %q", got)
		}

		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if req.Model != "test/model" {
			t.Fatalf("model = %q", req.Model)
		}
		if req.Temperature != 0.7 || req.MaxTokens != 1000 {
			t.Fatalf("unexpected sampling params: %+v", req)
		}
		if len(req.Messages) != 2 {
			t.Fatalf("messages = %d, want 2", len(req.Messages))
		}
		if req.Messages[0].Role != "system" || req.Messages[0].Content != SystemInstruction {
			t.Fatalf("unexpected system message: %+v", req.Messages[0])
		}
		user := req.Messages[1].Content
		for _, want := range []string{"Name: Alice A", "Subscription: Premium", "Recent Orders: 3 orders", "where is my pizza?"} {
			if !strings.Contains(user, want) {
				t.Fatalf("user message %q does not contain %q", user, want)
			}
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"On its way!"}}]}`))
	}))
	defer ts.Close()

	client := newTestClient(ts.URL, "sk-test")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	got := client.Ask(ctx, UserContext{Name: "Alice A", Subscription: model.TierPremium, OrderCount: 3}, "where is my pizza?")
	if got != "On its way!" {
		t.Fatalf("Ask = %q, want %q", got, "On its way!")
	}
}

func TestAsk_ErrorStatusWithProviderMessage(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid API key","code":401}}`))
	}))
	defer ts.Close()

	got := newTestClient(ts.URL, "sk-bad").Ask(context.Background(), UserContext{}, "hi")
	if got != "Error: 401 - Invalid API key" {
		t.Fatalf("Ask = %q", got)
	}
}

func TestAsk_ErrorStatusWithPlainBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	}))
	defer ts.Close()

	got := newTestClient(ts.URL, "sk-test").Ask(context.Background(), UserContext{}, "hi")
	if got != "Error: 502 - upstream down" {
		t.Fatalf("Ask = %q", got)
	}
}

func TestAsk_MalformedBody(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: "<html>"},
		{name: "no choices", body: `{"id":"x"}`},
		{name: "empty choices", body: `{"choices":[]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))
			defer ts.Close()

			got := newTestClient(ts.URL, "sk-test").Ask(context.Background(), UserContext{}, "hi")
			if !strings.HasPrefix(got, "Unexpected error") {
				t.Fatalf("Ask = %q, want malformed response error", got)
			}
		})
	}
}

func TestAsk_NotConfiguredDoesNotCallProvider(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer ts.Close()

	for _, key := range []string{"", "   ", PlaceholderKey} {
		got := newTestClient(ts.URL, key).Ask(context.Background(), UserContext{}, "hi")
		if !strings.Contains(got, "not configured") {
			t.Fatalf("Ask with key %q = %q", key, got)
		}
	}
	if calls.Load() != 0 {
		t.Fatalf("provider called %d times, want 0", calls.Load())
	}
}

func TestAsk_NetworkError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := ts.URL
	ts.Close()

	got := newTestClient(url, "sk-test").Ask(context.Background(), UserContext{}, "hi")
	if !strings.HasPrefix(got, "Network error") {
		t.Fatalf("Ask = %q, want network error", got)
	}
}

func TestModels(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			t.Fatalf("path = %s, want /models", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"data":[{"id":"anthropic/claude-3.5-sonnet"},{"id":"openai/gpt-4o"}]}`))
	}))
	defer ts.Close()

	ids, err := newTestClient(ts.URL, "sk-test").Models(context.Background())
	if err != nil {
		t.Fatalf("Models error: %v", err)
	}
	if len(ids) != 2 || ids[0] != "anthropic/claude-3.5-sonnet" || ids[1] != "openai/gpt-4o" {
		t.Fatalf("unexpected models: %v", ids)
	}
}

func TestModels_ErrorStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	if _, err := newTestClient(ts.URL, "sk-test").Models(context.Background()); err == nil {
		t.Fatalf("expected error for 500 response")
	}
}

func TestQuickPrompt(t *testing.T) {
	a, ok := QuickPrompt("billing_help")
	if !ok {
		t.Fatalf("billing_help not found")
	}
	if a.Prompt != "I have a question about my monthly bill" {
		t.Fatalf("unexpected prompt: %q", a.Prompt)
	}
	if _, ok := QuickPrompt("unknown"); ok {
		t.Fatalf("unknown action must not resolve")
	}
	if len(QuickActions()) != 4 {
		t.Fatalf("QuickActions = %d, want 4", len(QuickActions()))
	}
}
