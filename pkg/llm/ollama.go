package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/xhad/shopsage/internal/types"
	"github.com/xhad/shopsage/pkg/vector"
)

const providerOllama = "ollama"

// Ensure the HTTP adapters implement the provider interfaces.
var (
	_ types.Embedder  = (*OllamaEmbedder)(nil)
	_ types.Generator = (*OllamaGenerator)(nil)
)

// embedRequest is the Ollama /api/embeddings request format.
type embedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

// embedResponse is the Ollama /api/embeddings response format.
type embedResponse struct {
	Embedding []float64 `json:"embedding"`
}

// chatRequest is the Ollama /api/chat request format.
type chatRequest struct {
	Model    string        `json:"model"`
	Stream   bool          `json:"stream"`
	Messages []chatMessage `json:"messages"`
	Options  *chatOptions  `json:"options,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
}

// chatResponse is the Ollama /api/chat response format.
type chatResponse struct {
	Message chatMessage `json:"message"`
}

// OllamaEmbedder calls the Ollama embeddings endpoint directly.
type OllamaEmbedder struct {
	client  *http.Client
	baseURL string
	model   string
}

// NewOllamaEmbedder creates an embedder for cfg. Timeouts are applied per
// call by the retry layer, not by the HTTP client.
func NewOllamaEmbedder(cfg EmbedderConfig) *OllamaEmbedder {
	cfg = cfg.withDefaults()
	return &OllamaEmbedder{
		client:  httpClient(cfg.HTTPClient),
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
	}
}

// Embed generates a vector embedding for text.
func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	var resp embedResponse
	if err := postJSON(ctx, e.client, e.baseURL+"/api/embeddings", "embeddings",
		embedRequest{Model: e.model, Prompt: text}, &resp); err != nil {
		return nil, err
	}
	return vector.FromFloat64(resp.Embedding), nil
}

func (e *OllamaEmbedder) ModelName() string { return e.model }

// OllamaGenerator calls the Ollama chat endpoint directly, non-streaming.
type OllamaGenerator struct {
	client      *http.Client
	baseURL     string
	model       string
	temperature float64
}

func NewOllamaGenerator(cfg ChatConfig) *OllamaGenerator {
	cfg = cfg.withDefaults()
	return &OllamaGenerator{
		client:      httpClient(cfg.HTTPClient),
		baseURL:     cfg.BaseURL,
		model:       cfg.Model,
		temperature: cfg.Temperature,
	}
}

// Chat sends the conversation and returns the assistant message verbatim.
func (g *OllamaGenerator) Chat(ctx context.Context, messages []types.ChatMessage) (string, error) {
	req := chatRequest{
		Model:    g.model,
		Stream:   false,
		Messages: make([]chatMessage, len(messages)),
	}
	for i, m := range messages {
		req.Messages[i] = chatMessage{Role: m.Role, Content: m.Content}
	}
	if g.temperature > 0 {
		req.Options = &chatOptions{Temperature: g.temperature}
	}

	var resp chatResponse
	if err := postJSON(ctx, g.client, g.baseURL+"/api/chat", "chat", req, &resp); err != nil {
		return "", err
	}
	return resp.Message.Content, nil
}

func (g *OllamaGenerator) ModelName() string { return g.model }

func postJSON(ctx context.Context, client *http.Client, url, op string, body, out any) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return &UpstreamError{Provider: providerOllama, Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return NewStatusError(providerOllama, op, resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &UpstreamError{Provider: providerOllama, Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func httpClient(c *http.Client) *http.Client {
	if c != nil {
		return c
	}
	return &http.Client{}
}
