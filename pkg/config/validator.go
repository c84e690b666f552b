package config

import (
	"fmt"
	"net/url"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errors = append(errors, ValidationError{
			Field:   "server.port",
			Message: "port must be between 1 and 65535",
		})
	}

	// Validate Ollama config
	if c.Ollama.BaseURL == "" {
		errors = append(errors, ValidationError{
			Field:   "ollama.base_url",
			Message: "Ollama base URL is required",
		})
	} else if u, err := url.Parse(c.Ollama.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errors = append(errors, ValidationError{
			Field:   "ollama.base_url",
			Message: "invalid Ollama base URL",
		})
	}

	if c.Ollama.Backend != "ollama" && c.Ollama.Backend != "langchaingo" {
		errors = append(errors, ValidationError{
			Field:   "ollama.backend",
			Message: fmt.Sprintf("unknown backend %q (want ollama or langchaingo)", c.Ollama.Backend),
		})
	}

	if c.Ollama.Temperature < 0 || c.Ollama.Temperature > 2 {
		errors = append(errors, ValidationError{
			Field:   "ollama.temperature",
			Message: "temperature must be between 0 and 2",
		})
	}

	if c.Ollama.MaxRetries < 0 {
		errors = append(errors, ValidationError{
			Field:   "ollama.max_retries",
			Message: "max_retries cannot be negative",
		})
	}

	// Validate Database config
	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			errors = append(errors, ValidationError{
				Field:   "database.path",
				Message: "path is required for the sqlite driver",
			})
		}
	case DriverPostgres:
		if c.Database.URL == "" {
			errors = append(errors, ValidationError{
				Field:   "database.url",
				Message: "url is required for the postgres driver",
			})
		} else if _, err := url.Parse(c.Database.URL); err != nil {
			errors = append(errors, ValidationError{
				Field:   "database.url",
				Message: "invalid database URL",
			})
		}
	default:
		errors = append(errors, ValidationError{
			Field:   "database.driver",
			Message: fmt.Sprintf("unknown driver %q (want sqlite or postgres)", c.Database.Driver),
		})
	}

	if c.Shopify.RateLimit <= 0 {
		errors = append(errors, ValidationError{
			Field:   "shopify.rate_limit",
			Message: "rate_limit must be positive",
		})
	}

	return errors
}
