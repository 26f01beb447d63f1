// Package config loads server configuration.
// Priority: config file > environment variables > defaults.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// DefaultConfigFileName is the name of the config file (uavlogd.yaml).
const DefaultConfigFileName = "uavlogd"

// Config holds all configuration for the log viewer app server.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Database DatabaseConfig `mapstructure:"database"`
	Agent    AgentConfig    `mapstructure:"agent"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr           string   `mapstructure:"addr"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	MaxUploadMB    int64    `mapstructure:"max_upload_mb"`
}

// LLMConfig selects and configures the model provider.
type LLMConfig struct {
	Provider       string `mapstructure:"provider"` // "openai" or "anthropic"
	APIKey         string `mapstructure:"api_key"`
	Model          string `mapstructure:"model"`
	Endpoint       string `mapstructure:"endpoint"`
	MaxTokens      int    `mapstructure:"max_tokens"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// DatabaseConfig holds storage settings.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// AgentConfig holds loop settings.
type AgentConfig struct {
	MaxIterations int `mapstructure:"max_iterations"`
	HistoryLimit  int `mapstructure:"history_limit"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

func setDefaults() {
	viper.SetDefault("server.addr", ":8000")
	viper.SetDefault("server.allowed_origins", []string{"*"})
	viper.SetDefault("server.max_upload_mb", 256)

	viper.SetDefault("llm.provider", "openai")
	viper.SetDefault("llm.api_key", "")
	viper.SetDefault("llm.model", "")
	viper.SetDefault("llm.endpoint", "")
	viper.SetDefault("llm.max_tokens", 4096)
	viper.SetDefault("llm.timeout_seconds", 60)

	viper.SetDefault("database.path", "uavlog.db")

	viper.SetDefault("agent.max_iterations", 10)
	viper.SetDefault("agent.history_limit", 20)

	viper.SetDefault("logging.level", "info")
}

// Load reads configuration from the optional config file and the UAVLOG
// environment (UAVLOG_LLM_API_KEY etc). A missing config file is fine; a
// malformed one is not.
func Load(configFile string) (*Config, error) {
	setDefaults()

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName(DefaultConfigFileName)
		viper.AddConfigPath(".")
		viper.AddConfigPath("/etc/uavlog/")
	}

	viper.SetEnvPrefix("UAVLOG")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &config, nil
}
