package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/joho/godotenv"
)

func testNotification() *Notification {
	return &Notification{
		ID:       "test",
		MatchURL: testMatchURL,
		Events:   sampleEvents(),
		Content:  FormatEvents(testMatchURL, sampleEvents()),
	}
}

// TestWebhookClient_Send tests the HTTP call for an event notification
func TestWebhookClient_Send(t *testing.T) {
	var receivedBody []byte
	var receivedContentType string
	var receivedMethod string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedMethod = r.Method
		receivedContentType = r.Header.Get("Content-Type")
		receivedBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusNoContent) // Discord returns 204 on success
	}))
	defer server.Close()

	client := NewWebhookClient(server.URL)

	if err := client.Send(context.Background(), testNotification()); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if receivedMethod != "POST" {
		t.Errorf("Expected POST method, got: %s", receivedMethod)
	}
	if receivedContentType != "application/json" {
		t.Errorf("Expected application/json content type, got: %s", receivedContentType)
	}

	var payload WebhookPayload
	if err := json.Unmarshal(receivedBody, &payload); err != nil {
		t.Fatalf("Failed to parse sent payload: %v", err)
	}
	if !strings.HasPrefix(payload.Content, Header+"\n") {
		t.Errorf("Expected content to start with header, got: %s", payload.Content)
	}
	if strings.Count(payload.Content, "\n") != 3 {
		t.Errorf("Expected header plus 3 event lines, got: %q", payload.Content)
	}
}

// TestWebhookClient_RateLimited tests retry after a 429
func TestWebhookClient_RateLimited(t *testing.T) {
	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "0.05")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := NewWebhookClient(server.URL)

	if err := client.Send(context.Background(), testNotification()); err != nil {
		t.Fatalf("Expected success after retry, got: %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("Expected 2 calls, got %d", calls.Load())
	}
}

// TestWebhookClient_RateLimitedExhausted tests giving up after maxRetries
func TestWebhookClient_RateLimitedExhausted(t *testing.T) {
	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Retry-After", "0")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewWebhookClient(server.URL)

	err := client.Send(context.Background(), testNotification())
	if err == nil {
		t.Fatal("Expected error after exhausting retries")
	}
	if calls.Load() != maxRetries {
		t.Errorf("Expected %d calls, got %d", maxRetries, calls.Load())
	}
}

// TestWebhookClient_ServerError tests that non-429 failures are not retried
func TestWebhookClient_ServerError(t *testing.T) {
	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	err := NewWebhookClient(server.URL).Send(context.Background(), testNotification())
	if err == nil || !strings.Contains(err.Error(), "400") {
		t.Errorf("Expected status 400 error, got: %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("Expected 1 call, got %d", calls.Load())
	}
}

// TestWebhookClient_LongMessageIsChunked tests that content above 2000 chars is split
func TestWebhookClient_LongMessageIsChunked(t *testing.T) {
	var contents []string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload WebhookPayload
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &payload)
		contents = append(contents, payload.Content)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	events := sampleEvents()
	for len(events) < 40 {
		events = append(events, sampleEvents()...)
	}
	n := &Notification{MatchURL: testMatchURL, Events: events, Content: FormatEvents(testMatchURL, events)}

	if err := NewWebhookClient(server.URL).Send(context.Background(), n); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if len(contents) < 2 {
		t.Fatalf("Expected multiple messages, got %d", len(contents))
	}
	for i, c := range contents {
		if len(c) > maxContentLength {
			t.Errorf("Message %d exceeds %d chars: %d", i, maxContentLength, len(c))
		}
	}
	if strings.Join(contents, "\n") != n.Content {
		t.Error("Chunks should reassemble into the original content")
	}
}

// TestWebhookClient_ContextCancelledDuringBackoff tests that a cancelled context stops retries
func TestWebhookClient_ContextCancelledDuringBackoff(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := NewWebhookClient(server.URL).Send(ctx, testNotification())
	if err == nil {
		t.Fatal("Expected context error")
	}
	if time.Since(start) > 5*time.Second {
		t.Error("Send should return promptly after cancellation")
	}
}

func TestRetryAfter(t *testing.T) {
	tests := []struct {
		header string
		want   time.Duration
	}{
		{"", time.Second},
		{"2", 2 * time.Second},
		{"0.5", 500 * time.Millisecond},
		{"garbage", time.Second},
		{"-1", time.Second},
	}
	for _, tt := range tests {
		if got := retryAfter(tt.header); got != tt.want {
			t.Errorf("retryAfter(%q) = %v, want %v", tt.header, got, tt.want)
		}
	}
}

// TestWebhookClient_Send_Integration sends a real notification to Discord
func TestWebhookClient_Send_Integration(t *testing.T) {
	godotenv.Load("../../.env")

	webhookURL := os.Getenv("DISCORD_WEBHOOK")
	if webhookURL == "" {
		t.Skip("DISCORD_WEBHOOK not set, skipping integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := NewWebhookClient(webhookURL).Send(ctx, testNotification()); err != nil {
		t.Fatalf("Failed to send notification: %v", err)
	}

	t.Log("Successfully sent event notification to Discord")
}
