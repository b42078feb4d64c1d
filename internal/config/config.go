package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Environment tags. The tag selects the CORS origin policy.
const (
	EnvLocal = "local"
	EnvProd  = "prod"
)

// Memory backend selectors.
const (
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Config holds the application configuration, sourced from environment variables.
type Config struct {
	Env      string `mapstructure:"env"`
	LogLevel string `mapstructure:"log_level"`

	// Ollama runtime configuration.
	OllamaModel   string `mapstructure:"ollama_model"`
	OllamaHost    string `mapstructure:"ollama_host"`
	ModelTimeoutS int    `mapstructure:"model_timeout_s"`
	TitleTimeoutS int    `mapstructure:"title_timeout_s"`

	// Conversation memory configuration.
	MemoryBackend string `mapstructure:"memory_backend"`
	MemoryPath    string `mapstructure:"memory_path"`
	MaxHistory    int    `mapstructure:"max_history"`

	// Server configuration.
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
}

// Load reads the configuration from environment variables, applying defaults
// for anything unset.
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("env", EnvLocal)
	v.SetDefault("log_level", "info")
	v.SetDefault("ollama_model", "llama3.2:3b")
	v.SetDefault("ollama_host", "http://localhost:11434")
	v.SetDefault("model_timeout_s", 60)
	v.SetDefault("title_timeout_s", 10)
	v.SetDefault("memory_backend", BackendSQLite)
	v.SetDefault("memory_path", "data/memory.db")
	v.SetDefault("max_history", 20)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", "8000")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.Env != EnvLocal && cfg.Env != EnvProd {
		return nil, fmt.Errorf("invalid ENV %q (expected %q or %q)", cfg.Env, EnvLocal, EnvProd)
	}
	if cfg.MemoryBackend != BackendSQLite && cfg.MemoryBackend != BackendMemory {
		return nil, fmt.Errorf("invalid MEMORY_BACKEND %q (expected %q or %q)", cfg.MemoryBackend, BackendSQLite, BackendMemory)
	}
	if cfg.MaxHistory <= 0 {
		return nil, fmt.Errorf("invalid MAX_HISTORY %d (must be positive)", cfg.MaxHistory)
	}

	return &cfg, nil
}

// IsProd reports whether the service runs with the production environment tag.
func (c *Config) IsProd() bool {
	return c.Env == EnvProd
}

// ModelTimeout is the per-request timeout for model generation calls.
func (c *Config) ModelTimeout() time.Duration {
	return time.Duration(c.ModelTimeoutS) * time.Second
}

// TitleTimeout is the timeout for best-effort title generation.
func (c *Config) TitleTimeout() time.Duration {
	return time.Duration(c.TitleTimeoutS) * time.Second
}

// Addr is the host:port the HTTP server binds to.
func (c *Config) Addr() string {
	return c.Host + ":" + c.Port
}
