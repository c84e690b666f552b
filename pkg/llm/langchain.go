package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"

	"github.com/xhad/shopsage/internal/types"
)

var (
	_ types.Embedder  = (*LangChainEmbedder)(nil)
	_ types.Generator = (*LangChainGenerator)(nil)
)

// LangChainEmbedder embeds through langchaingo's Ollama client.
type LangChainEmbedder struct {
	llm   *ollama.LLM
	model string
}

func NewLangChainEmbedder(cfg EmbedderConfig) (*LangChainEmbedder, error) {
	cfg = cfg.withDefaults()
	emb, err := ollama.New(ollama.WithModel(cfg.Model), ollama.WithServerURL(cfg.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	return &LangChainEmbedder{llm: emb, model: cfg.Model}, nil
}

func (e *LangChainEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := e.llm.CreateEmbedding(ctx, []string{text})
	if err != nil {
		return nil, &UpstreamError{Provider: providerOllama, Op: "embeddings", Err: err}
	}
	if len(embeddings) == 0 {
		return nil, &UpstreamError{Provider: providerOllama, Op: "embeddings", Err: errors.New("empty embedding response")}
	}
	return embeddings[0], nil
}

func (e *LangChainEmbedder) ModelName() string { return e.model }

// LangChainGenerator generates chat completions through langchaingo.
type LangChainGenerator struct {
	llm         llms.Model
	model       string
	temperature float64
}

func NewLangChainGenerator(cfg ChatConfig) (*LangChainGenerator, error) {
	cfg = cfg.withDefaults()
	model, err := ollama.New(ollama.WithModel(cfg.Model), ollama.WithServerURL(cfg.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM: %w", err)
	}
	return &LangChainGenerator{llm: model, model: cfg.Model, temperature: cfg.Temperature}, nil
}

func (g *LangChainGenerator) Chat(ctx context.Context, messages []types.ChatMessage) (string, error) {
	content := make([]llms.MessageContent, 0, len(messages))
	for _, m := range messages {
		content = append(content, llms.TextParts(messageType(m.Role), m.Content))
	}

	var opts []llms.CallOption
	if g.temperature > 0 {
		opts = append(opts, llms.WithTemperature(g.temperature))
	}

	response, err := g.llm.GenerateContent(ctx, content, opts...)
	if err != nil {
		return "", &UpstreamError{Provider: providerOllama, Op: "chat", Err: err}
	}
	if response == nil || len(response.Choices) == 0 {
		return "", nil
	}
	return response.Choices[0].Content, nil
}

func (g *LangChainGenerator) ModelName() string { return g.model }

func messageType(role string) llms.ChatMessageType {
	switch role {
	case types.RoleSystem:
		return llms.ChatMessageTypeSystem
	case "assistant":
		return llms.ChatMessageTypeAI
	default:
		return llms.ChatMessageTypeHuman
	}
}
