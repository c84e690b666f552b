package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Server struct {
		Port        int      `yaml:"port"`
		DefaultShop string   `yaml:"default_shop"`
		CORSOrigins []string `yaml:"cors_origins"`
	} `yaml:"server"`

	Ollama struct {
		BaseURL     string        `yaml:"base_url"`
		Backend     string        `yaml:"backend"`
		ChatModel   string        `yaml:"chat_model"`
		EmbedModel  string        `yaml:"embed_model"`
		Temperature float64       `yaml:"temperature"`
		Timeout     time.Duration `yaml:"timeout"`
		MaxRetries  int           `yaml:"max_retries"`
		Backoff     time.Duration `yaml:"backoff"`
	} `yaml:"ollama"`

	Database struct {
		Driver string `yaml:"driver"`
		Path   string `yaml:"path"`
		URL    string `yaml:"url"`
	} `yaml:"database"`

	Cache struct {
		Path string `yaml:"path"` // empty disables the embedding cache
	} `yaml:"cache"`

	Shopify struct {
		APIVersion string  `yaml:"api_version"`
		RateLimit  float64 `yaml:"rate_limit"`
	} `yaml:"shopify"`
}

// LoadConfig reads path, or the first config file found in the default
// locations. Variables from a .env file in the working directory are
// loaded first; the process environment overrides file values.
func LoadConfig(path string) (*Config, error) {
	// A missing .env file is normal.
	_ = godotenv.Load()

	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"shopsage.yaml",
			"shopsage.yml",
			filepath.Join(os.Getenv("HOME"), ".config/shopsage/config.yaml"),
			"/etc/shopsage/config.yaml",
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path == "" {
		return getDefaultConfig()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	// Merge with environment variables
	mergeWithEnv(&config)

	// Apply defaults for unset values
	applyDefaults(&config)

	return &config, nil
}

func getDefaultConfig() (*Config, error) {
	config := &Config{}
	mergeWithEnv(config)
	applyDefaults(config)
	return config, nil
}

func applyDefaults(config *Config) {
	if config.Server.Port == 0 {
		config.Server.Port = 8787
	}
	if config.Server.DefaultShop == "" {
		config.Server.DefaultShop = "demo-shop"
	}

	if config.Ollama.BaseURL == "" {
		config.Ollama.BaseURL = "http://localhost:11434"
	}
	if config.Ollama.Backend == "" {
		config.Ollama.Backend = "ollama"
	}
	if config.Ollama.ChatModel == "" {
		config.Ollama.ChatModel = "llama3"
	}
	if config.Ollama.EmbedModel == "" {
		config.Ollama.EmbedModel = "nomic-embed-text"
	}
	if config.Ollama.Timeout == 0 {
		config.Ollama.Timeout = 2 * time.Minute
	}
	if config.Ollama.Backoff == 0 {
		config.Ollama.Backoff = 500 * time.Millisecond
	}

	if config.Database.Driver == "" {
		if config.Database.URL != "" {
			config.Database.Driver = DriverPostgres
		} else {
			config.Database.Driver = DriverSQLite
		}
	}
	if config.Database.Path == "" {
		config.Database.Path = "./data.sqlite"
	}

	if config.Shopify.APIVersion == "" {
		config.Shopify.APIVersion = "2025-01"
	}
	if config.Shopify.RateLimit == 0 {
		config.Shopify.RateLimit = 2.0
	}
}

func mergeWithEnv(config *Config) {
	if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
		config.Ollama.BaseURL = baseURL
	}
	if model := os.Getenv("OLLAMA_CHAT_MODEL"); model != "" {
		config.Ollama.ChatModel = model
	}
	if model := os.Getenv("OLLAMA_EMBED_MODEL"); model != "" {
		config.Ollama.EmbedModel = model
	}
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Database.URL = dbURL
	}
	if dbPath := os.Getenv("DB_PATH"); dbPath != "" {
		config.Database.Path = dbPath
	}
	if driver := os.Getenv("DB_DRIVER"); driver != "" {
		config.Database.Driver = driver
	}
}
