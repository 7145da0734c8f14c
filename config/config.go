package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// LogicalModels are the model slots the pipeline can resolve. A slot is
// configured when its API key is present in the environment.
var LogicalModels = []string{"planner", "writer", "vision"}

// Config holds all configuration for the report generation pipeline.
type Config struct {
	General  GeneralConfig
	LLM      LLMConfig
	Sources  SourcesConfig
	Requests RequestsConfig
	Cache    CacheConfig
}

// GeneralConfig contains general application settings.
type GeneralConfig struct {
	LogLevel string
}

// Verbose reports whether debug logging is enabled.
func (g GeneralConfig) Verbose() bool {
	return strings.EqualFold(g.LogLevel, "debug")
}

// LLMConfig maps logical model names (planner, writer, vision) to endpoints.
type LLMConfig struct {
	Models map[string]ModelConfig
}

// ModelConfig is one OpenAI-compatible endpoint.
type ModelConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// SourcesConfig contains search provider configurations.
type SourcesConfig struct {
	News  NewsSourceConfig
	Image ImageSourceConfig
}

// NewsSourceConfig configures the keyword-news provider. An empty URL means
// the provider is absent and news search yields empty corpora.
type NewsSourceConfig struct {
	URL    string
	APIKey string
}

// ImageSourceConfig configures the image search provider.
type ImageSourceConfig struct {
	URL      string
	Language string
}

// RequestsConfig bounds outbound HTTP behaviour.
type RequestsConfig struct {
	MaxConcurrent int
	Timeout       time.Duration
	// MaxRetries is read for completeness; the pipeline itself never retries.
	MaxRetries int
}

func (r RequestsConfig) Validate() error {
	if r.MaxConcurrent <= 0 {
		return fmt.Errorf("requests.max_concurrent must be > 0")
	}
	if r.Timeout <= 0 {
		return fmt.Errorf("requests.timeout must be > 0")
	}
	return nil
}

// CacheConfig selects the per-topic report cache backend. With an empty
// RedisAddr the cache lives in process memory.
type CacheConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	TTL           time.Duration
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("MAX_CONCURRENT_REQUESTS", 5)
	v.SetDefault("REQUEST_TIMEOUT", 30)
	v.SetDefault("MAX_RETRIES", 3)
	v.SetDefault("LOG_LEVEL", "INFO")
	v.SetDefault("IMAGE_SEARCH_LANGUAGE", "zh-CN")
	v.SetDefault("CACHE_REDIS_DB", 0)
	v.SetDefault("CACHE_TTL", 0)

	cfg := &Config{
		General: GeneralConfig{
			LogLevel: v.GetString("LOG_LEVEL"),
		},
		LLM: LLMConfig{Models: make(map[string]ModelConfig)},
		Sources: SourcesConfig{
			News: NewsSourceConfig{
				URL:    v.GetString("NEWS_API_URL"),
				APIKey: v.GetString("NEWS_API_KEY"),
			},
			Image: ImageSourceConfig{
				URL:      v.GetString("IMAGE_SEARCH_API_URL"),
				Language: v.GetString("IMAGE_SEARCH_LANGUAGE"),
			},
		},
		Requests: RequestsConfig{
			MaxConcurrent: v.GetInt("MAX_CONCURRENT_REQUESTS"),
			Timeout:       time.Duration(v.GetInt("REQUEST_TIMEOUT")) * time.Second,
			MaxRetries:    v.GetInt("MAX_RETRIES"),
		},
		Cache: CacheConfig{
			RedisAddr:     v.GetString("CACHE_REDIS_ADDR"),
			RedisPassword: v.GetString("CACHE_REDIS_PASSWORD"),
			RedisDB:       v.GetInt("CACHE_REDIS_DB"),
			TTL:           time.Duration(v.GetInt("CACHE_TTL")) * time.Second,
		},
	}

	// Partial model configuration is allowed: a slot without an API key is
	// simply absent from the registry.
	for _, name := range LogicalModels {
		prefix := strings.ToUpper(name)
		key := v.GetString(prefix + "_API_KEY")
		if key == "" {
			continue
		}
		cfg.LLM.Models[name] = ModelConfig{
			APIKey:  key,
			BaseURL: v.GetString(prefix + "_BASE_URL"),
			Model:   v.GetString(prefix + "_MODEL"),
		}
	}

	if err := cfg.Requests.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
