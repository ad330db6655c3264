package config

import "time"

// Config is the root application configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	LLM      LLMConfig      `yaml:"llm"`
	Article  ArticleConfig  `yaml:"article"`
	Audio    AudioConfig    `yaml:"audio"`
	Anki     AnkiConfig     `yaml:"anki"`
	Defaults DefaultsConfig `yaml:"defaults"`
	Log      LogConfig      `yaml:"log"`
}

// DatabaseConfig holds SQLite settings.
type DatabaseConfig struct {
	Path        string        `yaml:"path"         env:"VOCAB_DB_PATH"      env-default:"vocab.db"`
	BusyTimeout time.Duration `yaml:"busy_timeout" env:"VOCAB_DB_BUSY_TIMEOUT" env-default:"5s"`
}

// LLMConfig holds language-model settings. The API key is not required at
// load time; commands that need the model fail when it is absent.
type LLMConfig struct {
	APIKey       string        `yaml:"api_key"        env:"ANTHROPIC_API_KEY"`
	BaseURL      string        `yaml:"base_url"       env:"VOCAB_LLM_BASE_URL"`
	Model        string        `yaml:"model"          env:"VOCAB_LLM_MODEL"          env-default:"claude-haiku-4-5-20251001"`
	MaxAttempts  int           `yaml:"max_attempts"   env:"VOCAB_LLM_MAX_ATTEMPTS"   env-default:"3"`
	MaxToolTurns int           `yaml:"max_tool_turns" env:"VOCAB_LLM_MAX_TOOL_TURNS" env-default:"5"`
	Timeout      time.Duration `yaml:"timeout"        env:"VOCAB_LLM_TIMEOUT"        env-default:"60s"`
}

// ArticleConfig holds settings for fetching source articles.
type ArticleConfig struct {
	UserAgent     string        `yaml:"user_agent"      env:"VOCAB_ARTICLE_USER_AGENT"      env-default:"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"`
	Timeout       time.Duration `yaml:"timeout"         env:"VOCAB_ARTICLE_TIMEOUT"         env-default:"30s"`
	MinTextLength int           `yaml:"min_text_length" env:"VOCAB_ARTICLE_MIN_TEXT_LENGTH" env-default:"500"`
	MaxBodyBytes  int64         `yaml:"max_body_bytes"  env:"VOCAB_ARTICLE_MAX_BODY_BYTES"  env-default:"10485760"`
	Cookie        string        `yaml:"cookie"          env:"VOCAB_ARTICLE_COOKIE"`
}

// AudioConfig holds text-to-speech settings.
type AudioConfig struct {
	Dir      string  `yaml:"dir"      env:"VOCAB_AUDIO_DIR"      env-default:"audio"`
	Endpoint string  `yaml:"endpoint" env:"VOCAB_AUDIO_ENDPOINT" env-default:"https://translate.google.com/translate_tts"`
	Rate     float64 `yaml:"rate"     env:"VOCAB_AUDIO_RATE"     env-default:"2"`
	Workers  int     `yaml:"workers"  env:"VOCAB_AUDIO_WORKERS"  env-default:"2"`
}

// AnkiConfig holds AnkiConnect settings.
type AnkiConfig struct {
	URL       string        `yaml:"url"        env:"VOCAB_ANKI_URL"        env-default:"http://localhost:8765"`
	ModelName string        `yaml:"model_name" env:"VOCAB_ANKI_MODEL_NAME" env-default:"Vocab Pipeline"`
	Timeout   time.Duration `yaml:"timeout"    env:"VOCAB_ANKI_TIMEOUT"    env-default:"5s"`
}

// DefaultsConfig holds the defaults used for article ingestion.
type DefaultsConfig struct {
	Theme      string `yaml:"theme"       env:"VOCAB_DEFAULT_THEME"       env-default:"el_pais"`
	Deck       string `yaml:"deck"        env:"VOCAB_DEFAULT_DECK"        env-default:"el-pais"`
	SourceLang string `yaml:"source_lang" env:"VOCAB_DEFAULT_SOURCE_LANG" env-default:"Spanish"`
	TargetLang string `yaml:"target_lang" env:"VOCAB_DEFAULT_TARGET_LANG" env-default:"French"`
	Count      int    `yaml:"count"       env:"VOCAB_DEFAULT_COUNT"       env-default:"20"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"text"`
}
