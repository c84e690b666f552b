package llm

import (
	"fmt"
	"net/http"

	"github.com/xhad/shopsage/internal/types"
)

// Default configuration values.
const (
	DefaultBaseURL    = "http://localhost:11434"
	DefaultChatModel  = "llama3"
	DefaultEmbedModel = "nomic-embed-text"

	BackendOllama    = "ollama"
	BackendLangChain = "langchaingo"
)

// EmbedderConfig represents the configuration for an embedding provider.
type EmbedderConfig struct {
	Backend    string
	BaseURL    string // Ollama server URL
	Model      string
	Retry      RetryPolicy
	HTTPClient *http.Client // optional; used by the ollama backend
}

func (c EmbedderConfig) withDefaults() EmbedderConfig {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Model == "" {
		c.Model = DefaultEmbedModel
	}
	return c
}

// ChatConfig represents the configuration for a generation provider.
type ChatConfig struct {
	Backend     string
	BaseURL     string // Ollama server URL
	Model       string
	Temperature float64
	Retry       RetryPolicy
	HTTPClient  *http.Client
}

func (c ChatConfig) withDefaults() ChatConfig {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Model == "" {
		c.Model = DefaultChatModel
	}
	return c
}

// NewEmbedderWithConfig builds the configured embedding backend, wrapped in
// the retry layer.
func NewEmbedderWithConfig(cfg EmbedderConfig) (types.Embedder, error) {
	var emb types.Embedder
	switch cfg.Backend {
	case "", BackendOllama:
		emb = NewOllamaEmbedder(cfg)
	case BackendLangChain:
		lc, err := NewLangChainEmbedder(cfg)
		if err != nil {
			return nil, err
		}
		emb = lc
	default:
		return nil, fmt.Errorf("unknown embedding backend %q", cfg.Backend)
	}
	return NewResilientEmbedder(emb, cfg.Retry), nil
}

// NewGeneratorWithConfig builds the configured generation backend, wrapped
// in the retry layer.
func NewGeneratorWithConfig(cfg ChatConfig) (types.Generator, error) {
	if cfg.Temperature < 0 || cfg.Temperature > 2 {
		return nil, fmt.Errorf("temperature must be between 0 and 2")
	}
	var gen types.Generator
	switch cfg.Backend {
	case "", BackendOllama:
		gen = NewOllamaGenerator(cfg)
	case BackendLangChain:
		lc, err := NewLangChainGenerator(cfg)
		if err != nil {
			return nil, err
		}
		gen = lc
	default:
		return nil, fmt.Errorf("unknown chat backend %q", cfg.Backend)
	}
	return NewResilientGenerator(gen, cfg.Retry), nil
}
