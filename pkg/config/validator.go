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

	// LLM
	if c.LLM.BaseURL == "" {
		errors = append(errors, ValidationError{
			Field:   "llm.base_url",
			Message: "Ollama base URL is required",
		})
	} else if u, err := url.Parse(c.LLM.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errors = append(errors, ValidationError{
			Field:   "llm.base_url",
			Message: "invalid Ollama base URL",
		})
	}

	if c.LLM.MaxTokens < 1 || c.LLM.MaxTokens > 8192 {
		errors = append(errors, ValidationError{
			Field:   "llm.max_tokens",
			Message: "max_tokens must be between 1 and 8192",
		})
	}

	if t := c.LLM.Temperature; t != nil && (*t < 0 || *t > 2) {
		errors = append(errors, ValidationError{
			Field:   "llm.temperature",
			Message: "temperature must be between 0 and 2",
		})
	}

	// Database
	if c.Database.URL != "" {
		if u, err := url.Parse(c.Database.URL); err != nil || u.Scheme == "" {
			errors = append(errors, ValidationError{
				Field:   "database.url",
				Message: "invalid database URL",
			})
		}
	}

	if c.Database.VectorDim < 1 {
		errors = append(errors, ValidationError{
			Field:   "database.vector_dim",
			Message: "vector_dim must be positive",
		})
	}

	// Collector
	if u, err := url.Parse(c.Collector.TargetURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		errors = append(errors, ValidationError{
			Field:   "collector.target_url",
			Message: "target_url must be an absolute http(s) URL",
		})
	}

	if c.Collector.RateLimit <= 0 {
		errors = append(errors, ValidationError{
			Field:   "collector.rate_limit",
			Message: "rate_limit must be positive",
		})
	}

	if c.Collector.WriteMode != "replace" && c.Collector.WriteMode != "upsert" {
		errors = append(errors, ValidationError{
			Field:   "collector.write_mode",
			Message: fmt.Sprintf("unknown write mode: %s", c.Collector.WriteMode),
		})
	}

	if c.Collector.Render != "browser" && c.Collector.Render != "http" {
		errors = append(errors, ValidationError{
			Field:   "collector.render",
			Message: fmt.Sprintf("unknown render mode: %s", c.Collector.Render),
		})
	}

	// Classifier
	if c.Classifier.ChunkSize < 1 {
		errors = append(errors, ValidationError{
			Field:   "classifier.chunk_size",
			Message: "chunk_size must be positive",
		})
	}

	if c.Classifier.MaxCandidates < 0 {
		errors = append(errors, ValidationError{
			Field:   "classifier.max_candidates",
			Message: "max_candidates must not be negative",
		})
	}

	// Digest
	if c.Digest.BatchSize < 1 {
		errors = append(errors, ValidationError{
			Field:   "digest.batch_size",
			Message: "batch_size must be positive",
		})
	}

	if c.Digest.MinPrimary > c.Digest.MaxPrimary {
		errors = append(errors, ValidationError{
			Field:   "digest.min_primary",
			Message: "min_primary must not exceed max_primary",
		})
	}

	// Events
	if c.Events.Enabled && c.Events.URL == "" {
		errors = append(errors, ValidationError{
			Field:   "events.url",
			Message: "url is required when events are enabled",
		})
	}

	return errors
}
