package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate performs business-rule validation on the loaded configuration.
// It must be called after loading; Load calls it automatically.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Database.Path) == "" {
		return fmt.Errorf("database.path must not be empty")
	}

	if c.LLM.MaxAttempts < 1 {
		return fmt.Errorf("llm.max_attempts must be >= 1 (got %d)", c.LLM.MaxAttempts)
	}
	if c.LLM.MaxToolTurns < 1 {
		return fmt.Errorf("llm.max_tool_turns must be >= 1 (got %d)", c.LLM.MaxToolTurns)
	}

	if c.Article.MinTextLength < 0 {
		return fmt.Errorf("article.min_text_length must be >= 0 (got %d)", c.Article.MinTextLength)
	}
	if c.Article.MaxBodyBytes <= 0 {
		return fmt.Errorf("article.max_body_bytes must be > 0 (got %d)", c.Article.MaxBodyBytes)
	}

	if c.Audio.Rate <= 0 {
		return fmt.Errorf("audio.rate must be > 0 (got %v)", c.Audio.Rate)
	}
	if c.Audio.Workers < 1 {
		return fmt.Errorf("audio.workers must be >= 1 (got %d)", c.Audio.Workers)
	}

	if _, err := url.ParseRequestURI(c.Anki.URL); err != nil {
		return fmt.Errorf("anki.url: %w", err)
	}

	if c.Defaults.Count < 1 {
		return fmt.Errorf("defaults.count must be >= 1 (got %d)", c.Defaults.Count)
	}

	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json (got %q)", c.Log.Format)
	}

	return nil
}
