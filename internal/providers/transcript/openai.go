package transcript

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	openAIDefaultTimeout = 30 * time.Second
	defaultOpenAIModel   = "gpt-4"
)

const scriptSystemPrompt = "You are an expert content creator specializing in engaging video scripts. " +
	"You understand pacing, tone, and engagement hooks for video format."

// OpenAIOptions configures the OpenAI script writer.
type OpenAIOptions struct {
	APIKey       string
	Model        string
	BaseURL      string
	Organization string
	HTTPClient   *http.Client
	Fallback     Writer
	OnFallback   func(reason string, err error)
}

// OpenAIWriter generates video scripts through the chat completions API,
// falling back to a static writer when the remote call cannot be completed.
type OpenAIWriter struct {
	apiKey       string
	model        string
	baseURL      string
	organization string
	client       *http.Client
	fallback     Writer
	onFallback   func(reason string, err error)
}

type openAIChatRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Temperature float64         `json:"temperature,omitempty"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func NewOpenAIWriter(opts OpenAIOptions) (*OpenAIWriter, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("openai api key is required")
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultOpenAIModel
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: openAIDefaultTimeout}
	}
	return &OpenAIWriter{
		apiKey:       strings.TrimSpace(opts.APIKey),
		model:        model,
		baseURL:      baseURL,
		organization: strings.TrimSpace(opts.Organization),
		client:       client,
		fallback:     opts.Fallback,
		onFallback:   opts.OnFallback,
	}, nil
}

// WriteScript produces a timed video script for the given campaign brief.
func (o *OpenAIWriter) WriteScript(ctx context.Context, brief string) (string, error) {
	brief = strings.TrimSpace(brief)
	if brief == "" {
		return "", errors.New("transcript: brief is required")
	}
	payload := openAIChatRequest{
		Model:       o.model,
		Temperature: 0.7,
		Messages: []openAIMessage{
			{Role: "system", Content: scriptSystemPrompt},
			{Role: "user", Content: buildScriptPrompt(brief)},
		},
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return o.useFallback(ctx, brief, "encode_request", err)
	}
	endpoint := fmt.Sprintf("%s/chat/completions", o.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return o.useFallback(ctx, brief, "build_request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)
	if o.organization != "" {
		httpReq.Header.Set("OpenAI-Organization", o.organization)
	}
	resp, err := o.client.Do(httpReq)
	if err != nil {
		return o.useFallback(ctx, brief, "http_request", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 300 {
		return o.useFallback(ctx, brief, fmt.Sprintf("http_%d", resp.StatusCode), fmt.Errorf("openai status %d", resp.StatusCode))
	}
	var out openAIChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return o.useFallback(ctx, brief, "decode_response", err)
	}
	if len(out.Choices) == 0 {
		return o.useFallback(ctx, brief, "empty_choices", errors.New("no choices"))
	}
	script := strings.TrimSpace(out.Choices[0].Message.Content)
	if script == "" {
		return o.useFallback(ctx, brief, "empty_response", errors.New("empty response"))
	}
	return script, nil
}

func buildScriptPrompt(brief string) string {
	var b strings.Builder
	b.WriteString("Create a professional video script based on the following campaign details:\n")
	b.WriteString(brief)
	b.WriteString("\n\nConsider the following in your script:\n")
	b.WriteString("1. Start with a strong hook to grab attention\n")
	b.WriteString("2. Include clear call-to-actions\n")
	b.WriteString("3. Maintain an engaging pace\n")
	b.WriteString("4. Use conversational language\n")
	b.WriteString("5. Include timing markers [00:00] for each section\n")
	b.WriteString("6. Keep the total length between 2-3 minutes\n")
	return b.String()
}

func (o *OpenAIWriter) useFallback(ctx context.Context, brief, reason string, cause error) (string, error) {
	if o.onFallback != nil {
		o.onFallback(reason, cause)
	}
	fallback := o.fallback
	if fallback == nil {
		fallback = NewStaticWriter()
	}
	return fallback.WriteScript(ctx, brief)
}

var _ Writer = (*OpenAIWriter)(nil)
