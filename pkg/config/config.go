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

type Config struct {
	LLM struct {
		BaseURL     string        `yaml:"base_url"`
		Model       string        `yaml:"model"`
		MaxTokens   int           `yaml:"max_tokens"`
		Temperature *float64      `yaml:"temperature"`
		Timeout     time.Duration `yaml:"timeout"`
	} `yaml:"llm"`

	Embedding struct {
		Model string `yaml:"model"`
	} `yaml:"embedding"`

	Database struct {
		URL       string `yaml:"url"`
		TableName string `yaml:"table_name"`
		VectorDim int    `yaml:"vector_dim"`
		Lists     int    `yaml:"lists"`
	} `yaml:"database"`

	Collector struct {
		TargetURL string        `yaml:"target_url"`
		RateLimit float64       `yaml:"rate_limit"`
		Timeout   time.Duration `yaml:"timeout"`
		UserAgent string        `yaml:"user_agent"`
		WriteMode string        `yaml:"write_mode"`
		// Render is "browser" to execute page scripts before collecting
		// links, or "http" for the raw HTML.
		Render      string        `yaml:"render"`
		BrowserPath string        `yaml:"browser_path"`
		RenderWait  time.Duration `yaml:"render_wait"`
	} `yaml:"collector"`

	Classifier struct {
		MaxCandidates int `yaml:"max_candidates"`
		ChunkSize     int `yaml:"chunk_size"`
	} `yaml:"classifier"`

	Extractor struct {
		MinContentLength int `yaml:"min_content_length"`
	} `yaml:"extractor"`

	Enrich struct {
		ExcerptChars int           `yaml:"excerpt_chars"`
		Delay        time.Duration `yaml:"delay"`
	} `yaml:"enrich"`

	Digest struct {
		BatchSize   int      `yaml:"batch_size"`
		MaxPrimary  int      `yaml:"max_primary"`
		MinPrimary  int      `yaml:"min_primary"`
		MaxBackfill int      `yaml:"max_backfill"`
		Temperature *float64 `yaml:"temperature"`
		UserProfile string   `yaml:"user_profile"`
		NewsValues  string   `yaml:"news_values"`
	} `yaml:"digest"`

	Events struct {
		Enabled    bool   `yaml:"enabled"`
		URL        string `yaml:"url"`
		Exchange   string `yaml:"exchange"`
		RoutingKey string `yaml:"routing_key"`
		QueueName  string `yaml:"queue_name"`
	} `yaml:"events"`

	Server struct {
		Addr     string `yaml:"addr"`
		RelatedK int    `yaml:"related_k"`
	} `yaml:"server"`

	Scheduler struct {
		Interval   time.Duration `yaml:"interval"`
		RunTimeout time.Duration `yaml:"run_timeout"`
	} `yaml:"scheduler"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// LoadConfig reads path, or the first default location that exists, and
// layers .env, environment variables and defaults on top.
func LoadConfig(path string) (*Config, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	if path == "" {
		locations := []string{
			"config.yaml",
			"config.yml",
			filepath.Join(os.Getenv("HOME"), ".config/newsbrief/config.yaml"),
			"/etc/newsbrief/config.yaml",
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

	mergeWithEnv(&config)
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
	if config.LLM.Model == "" {
		config.LLM.Model = "llama3.1"
	}
	if config.LLM.MaxTokens == 0 {
		config.LLM.MaxTokens = 2000
	}
	if config.LLM.Temperature == nil {
		config.LLM.Temperature = float(0.7)
	}
	if config.LLM.BaseURL == "" {
		config.LLM.BaseURL = "http://localhost:11434"
	}
	if config.LLM.Timeout == 0 {
		config.LLM.Timeout = 2 * time.Minute
	}

	if config.Embedding.Model == "" {
		config.Embedding.Model = "nomic-embed-text:latest"
	}

	if config.Database.TableName == "" {
		config.Database.TableName = "articles"
	}
	if config.Database.VectorDim == 0 {
		config.Database.VectorDim = 768
	}
	if config.Database.Lists == 0 {
		config.Database.Lists = 100
	}

	if config.Collector.TargetURL == "" {
		config.Collector.TargetURL = "https://www.novinky.cz"
	}
	if config.Collector.RateLimit == 0 {
		config.Collector.RateLimit = 2.0
	}
	if config.Collector.Timeout == 0 {
		config.Collector.Timeout = 30 * time.Second
	}
	if config.Collector.UserAgent == "" {
		config.Collector.UserAgent = "newsbrief/1.0"
	}
	if config.Collector.WriteMode == "" {
		config.Collector.WriteMode = "replace"
	}
	if config.Collector.Render == "" {
		config.Collector.Render = "browser"
	}
	if config.Collector.RenderWait == 0 {
		config.Collector.RenderWait = 2 * time.Second
	}

	if config.Classifier.MaxCandidates == 0 {
		config.Classifier.MaxCandidates = 50
	}
	if config.Classifier.ChunkSize == 0 {
		config.Classifier.ChunkSize = 10
	}

	if config.Extractor.MinContentLength == 0 {
		config.Extractor.MinContentLength = 100
	}

	if config.Enrich.ExcerptChars == 0 {
		config.Enrich.ExcerptChars = 3000
	}
	if config.Enrich.Delay == 0 {
		config.Enrich.Delay = 2 * time.Second
	}

	if config.Digest.BatchSize == 0 {
		config.Digest.BatchSize = 20
	}
	if config.Digest.MaxPrimary == 0 {
		config.Digest.MaxPrimary = 15
	}
	if config.Digest.MinPrimary == 0 {
		config.Digest.MinPrimary = 5
	}
	if config.Digest.MaxBackfill == 0 {
		config.Digest.MaxBackfill = 10
	}
	if config.Digest.Temperature == nil {
		config.Digest.Temperature = float(0.3)
	}

	if config.Events.Exchange == "" {
		config.Events.Exchange = "newsbrief"
	}
	if config.Events.RoutingKey == "" {
		config.Events.RoutingKey = "pipeline"
	}
	if config.Events.QueueName == "" {
		config.Events.QueueName = "newsbrief.events"
	}

	if config.Server.Addr == "" {
		config.Server.Addr = ":8080"
	}
	if config.Server.RelatedK == 0 {
		config.Server.RelatedK = 5
	}

	if config.Scheduler.RunTimeout == 0 {
		config.Scheduler.RunTimeout = time.Hour
	}

	if config.Log.Level == "" {
		config.Log.Level = "info"
	}
	if config.Log.Format == "" {
		config.Log.Format = "text"
	}
}

func float(v float64) *float64 {
	return &v
}

func mergeWithEnv(config *Config) {
	if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
		config.LLM.BaseURL = baseURL
	}
	if model := os.Getenv("LLM_MODEL"); model != "" {
		config.LLM.Model = model
	}
	if model := os.Getenv("EMBED_MODEL"); model != "" {
		config.Embedding.Model = model
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Database.URL = dbURL
	}
	if target := os.Getenv("TARGET_URL"); target != "" {
		config.Collector.TargetURL = target
	}
	if amqpURL := os.Getenv("RABBITMQ_URL"); amqpURL != "" {
		config.Events.URL = amqpURL
		config.Events.Enabled = true
	}
	if delay := os.Getenv("DELAY_BETWEEN_ARTICLES"); delay != "" {
		// Plain numbers are seconds.
		if secs, err := strconv.ParseFloat(delay, 64); err == nil {
			config.Enrich.Delay = time.Duration(secs * float64(time.Second))
		} else if d, err := time.ParseDuration(delay); err == nil {
			config.Enrich.Delay = d
		}
	}
	if render := os.Getenv("COLLECTOR_RENDER"); render != "" {
		config.Collector.Render = render
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.Log.Level = level
	}
	if addr := os.Getenv("HTTP_ADDR"); addr != "" {
		config.Server.Addr = addr
	}
}
