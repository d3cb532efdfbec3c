package transcript

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
)

type roundTripFunc func(req *http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func jsonResponse(status int, payload any) *http.Response {
	body, _ := json.Marshal(payload)
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(string(body))),
	}
}

func newTestWriter(t *testing.T, transport roundTripFunc, onFallback func(reason string, err error)) *OpenAIWriter {
	t.Helper()
	writer, err := NewOpenAIWriter(OpenAIOptions{
		APIKey:     "test-key",
		BaseURL:    "https://openai.unit.test/v1",
		HTTPClient: &http.Client{Transport: transport},
		Fallback:   NewStaticWriter(),
		OnFallback: onFallback,
	})
	if err != nil {
		t.Fatalf("NewOpenAIWriter: %v", err)
	}
	return writer
}

func TestWriteScriptUsesChatCompletion(t *testing.T) {
	var captured struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	transport := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/v1/chat/completions" {
			t.Fatalf("path = %q", req.URL.Path)
		}
		body, _ := io.ReadAll(req.Body)
		if err := json.Unmarshal(body, &captured); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		return jsonResponse(http.StatusOK, map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": "[00:00] Hello there\n[00:10] Buy now"}},
			},
		}), nil
	})
	writer := newTestWriter(t, transport, nil)

	script, err := writer.WriteScript(context.Background(), "a coffee brand launch")
	if err != nil {
		t.Fatalf("WriteScript: %v", err)
	}
	if !strings.Contains(script, "[00:00]") {
		t.Fatalf("script = %q", script)
	}
	if captured.Model != "gpt-4" {
		t.Fatalf("model = %q, want gpt-4", captured.Model)
	}
	if len(captured.Messages) != 2 || captured.Messages[0].Role != "system" {
		t.Fatalf("messages = %+v", captured.Messages)
	}
	if !strings.Contains(captured.Messages[1].Content, "a coffee brand launch") {
		t.Fatalf("brief missing from prompt: %q", captured.Messages[1].Content)
	}
}

func TestWriteScriptFallsBackOnHTTPError(t *testing.T) {
	var fallbackReason string
	transport := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusTooManyRequests, map[string]any{"error": "rate limited"}), nil
	})
	writer := newTestWriter(t, transport, func(reason string, err error) {
		fallbackReason = reason
	})

	script, err := writer.WriteScript(context.Background(), "a coffee brand launch")
	if err != nil {
		t.Fatalf("WriteScript should fall back, got %v", err)
	}
	if !strings.Contains(script, "[00:00]") {
		t.Fatalf("fallback script = %q", script)
	}
	if fallbackReason != "http_429" {
		t.Fatalf("fallback reason = %q, want http_429", fallbackReason)
	}
}

func TestWriteScriptFallsBackOnEmptyChoices(t *testing.T) {
	transport := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, map[string]any{"choices": []any{}}), nil
	})
	writer := newTestWriter(t, transport, nil)

	script, err := writer.WriteScript(context.Background(), "a product teaser")
	if err != nil {
		t.Fatalf("WriteScript: %v", err)
	}
	if script == "" {
		t.Fatalf("expected fallback script")
	}
}

func TestWriteScriptRejectsEmptyBrief(t *testing.T) {
	calls := 0
	transport := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		calls++
		return jsonResponse(http.StatusOK, map[string]any{}), nil
	})
	writer := newTestWriter(t, transport, nil)

	if _, err := writer.WriteScript(context.Background(), "   "); err == nil {
		t.Fatalf("expected error for empty brief")
	}
	if calls != 0 {
		t.Fatalf("transport calls = %d, want 0", calls)
	}
}

func TestStaticWriterIsDeterministic(t *testing.T) {
	writer := NewStaticWriter()
	first, err := writer.WriteScript(context.Background(), "handmade ceramics shop")
	if err != nil {
		t.Fatalf("WriteScript: %v", err)
	}
	second, err := writer.WriteScript(context.Background(), "handmade ceramics shop")
	if err != nil {
		t.Fatalf("WriteScript: %v", err)
	}
	if first != second {
		t.Fatalf("static writer output varies between calls")
	}
	if !strings.Contains(first, "handmade ceramics shop") {
		t.Fatalf("script = %q", first)
	}
}
