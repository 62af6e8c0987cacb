package reasoning

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"

	"wb-analyst/internal/common/logger"
)

// ==========================
// Test Helper Functions
// ==========================

func createTestConfig() *Config {
	return &Config{
		BaseURL:     "http://localhost:8080",
		APIKey:      "test-key",
		Model:       "gpt-4o-mini",
		Timeout:     5 * time.Second,
		MaxTokens:   500,
		Temperature: 0.3,
	}
}

func createTestLogger(t *testing.T) logger.Logger {
	return logger.NewZapAdapter(zaptest.NewLogger(t))
}

func createChatResponse(content string) string {
	response := map[string]interface{}{
		"choices": []map[string]interface{}{
			{"message": map[string]interface{}{"role": "assistant", "content": content}},
		},
	}
	data, _ := json.Marshal(response)
	return string(data)
}

// ==========================
// Core Functionality Tests
// ==========================

func TestComplete_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var reqBody map[string]interface{}
		json.NewDecoder(r.Body).Decode(&reqBody)
		assert.Equal(t, "gpt-4o-mini", reqBody["model"])
		assert.Equal(t, float64(500), reqBody["max_tokens"])
		assert.Equal(t, 0.3, reqBody["temperature"])

		messages := reqBody["messages"].([]interface{})
		assert.Len(t, messages, 2)
		first := messages[0].(map[string]interface{})
		second := messages[1].(map[string]interface{})
		assert.Equal(t, "system", first["role"])
		assert.Equal(t, "Ты аналитик.", first["content"])
		assert.Equal(t, "user", second["role"])
		assert.Equal(t, "Какая маржа за вчера?", second["content"])

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(createChatResponse("Маржа за вчера: 117,500 ₽.")))
	}))
	defer server.Close()

	config := createTestConfig()
	config.BaseURL = server.URL
	client := NewClient(config, createTestLogger(t))

	result, err := client.Complete(context.Background(), "Ты аналитик.", "Какая маржа за вчера?")

	assert.NoError(t, err)
	assert.Equal(t, "Маржа за вчера: 117,500 ₽.", result)
}

func TestComplete_NoAuthHeaderWithoutKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(createChatResponse("ok")))
	}))
	defer server.Close()

	config := createTestConfig()
	config.BaseURL = server.URL
	config.APIKey = ""
	client := NewClient(config, createTestLogger(t))

	result, err := client.Complete(context.Background(), "s", "u")

	assert.NoError(t, err)
	assert.Equal(t, "ok", result)
}

func TestComplete_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
			return
		case <-time.After(10 * time.Second):
			t.Log("test server safety timeout reached")
			return
		}
	}))
	defer server.Close()

	config := createTestConfig()
	config.BaseURL = server.URL
	config.Timeout = 50 * time.Millisecond
	client := NewClient(config, createTestLogger(t))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := client.Complete(ctx, "s", "u")

	assert.Error(t, err)
	assert.ErrorIs(t, err, ErrReasoningTimeout)
}

func TestComplete_APIError(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
	}{
		{"Internal Server Error", http.StatusInternalServerError},
		{"Bad Gateway", http.StatusBadGateway},
		{"Too Many Requests", http.StatusTooManyRequests},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
				w.Write([]byte(`{"error":"upstream failure"}`))
			}))
			defer server.Close()

			config := createTestConfig()
			config.BaseURL = server.URL
			client := NewClient(config, createTestLogger(t))

			_, err := client.Complete(context.Background(), "s", "u")

			assert.Error(t, err)
			assert.ErrorIs(t, err, ErrReasoningUnavailable)
			assert.Contains(t, err.Error(), "upstream failure")
		})
	}
}

func TestComplete_EmptyCompletion(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"no choices", `{"choices":[]}`},
		{"blank content", createChatResponse("   \n")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusOK)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			config := createTestConfig()
			config.BaseURL = server.URL
			client := NewClient(config, createTestLogger(t))

			_, err := client.Complete(context.Background(), "s", "u")

			assert.Error(t, err)
			assert.ErrorIs(t, err, ErrEmptyCompletion)
		})
	}
}

func TestComplete_MalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("invalid json {{{"))
	}))
	defer server.Close()

	config := createTestConfig()
	config.BaseURL = server.URL
	client := NewClient(config, createTestLogger(t))

	_, err := client.Complete(context.Background(), "s", "u")

	assert.Error(t, err)
	assert.ErrorIs(t, err, ErrReasoningUnavailable)
	assert.Contains(t, err.Error(), "decode error")
}

// ==========================
// Benchmark Tests
// ==========================

func BenchmarkComplete(b *testing.B) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(createChatResponse("benchmark response")))
	}))
	defer server.Close()

	config := createTestConfig()
	config.BaseURL = server.URL
	client := NewClient(config, logger.NewNoOpLogger())

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		client.Complete(context.Background(), "s", "u")
	}
}
