// Package config loads application configuration from environment
// variables (prefix PULSE) merged over an optional YAML file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server" envconfig:"SERVER"`
	Security SecurityConfig `yaml:"security" envconfig:"SECURITY"`
	Logging  LoggingConfig  `yaml:"logging" envconfig:"LOGGING"`
	Paths    PathsConfig    `yaml:"paths" envconfig:"PATHS"`
	API      APIConfig      `yaml:"api" envconfig:"API"`
	Store    StoreConfig    `yaml:"store" envconfig:"STORE"`
	Pipeline PipelineConfig `yaml:"pipeline" envconfig:"PIPELINE"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"15s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES" default:"1048576"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
	RequestTimeout  time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT" default:"60s"`
}

// SecurityConfig contains inbound protection configuration
type SecurityConfig struct {
	RateLimit RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains inbound HTTP rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED" default:"true"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" default:"100"`
	Burst   int     `yaml:"burst" envconfig:"BURST" default:"50"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Format   string `yaml:"format" envconfig:"FORMAT" default:"json"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/app.log"`
}

// PathsConfig contains file system paths configuration
type PathsConfig struct {
	DataDir     string `yaml:"data_dir" envconfig:"DATA_DIR" default:"data"`
	LogsDir     string `yaml:"logs_dir" envconfig:"LOGS_DIR" default:"logs"`
	LexiconFile string `yaml:"lexicon_file" envconfig:"LEXICON_FILE" default:"models/lexicon.json"`
	ModelFile   string `yaml:"model_file" envconfig:"MODEL_FILE" default:"models/model.json"`
}

// APIConfig contains remote platform API configuration
type APIConfig struct {
	BaseURL       string        `yaml:"base_url" envconfig:"BASE_URL" default:"https://api.vk.com/method"`
	Token         string        `yaml:"token" envconfig:"TOKEN"`
	Version       string        `yaml:"version" envconfig:"VERSION" default:"5.131"`
	Timeout       time.Duration `yaml:"timeout" envconfig:"TIMEOUT" default:"30s"`
	RatePerSecond int           `yaml:"rate_per_second" envconfig:"RATE_PER_SECOND" default:"5"`
}

// StoreConfig contains persistence configuration
type StoreConfig struct {
	Path string `yaml:"path" envconfig:"PATH" default:"data/socialpulse.db"`
}

// PipelineConfig contains pipeline tuning knobs
type PipelineConfig struct {
	MinTextLength int `yaml:"min_text_length" envconfig:"MIN_TEXT_LENGTH" default:"50"`
}

// Load loads configuration from environment variables and config file
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("PULSE", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	// Load from config file if exists
	configFile := getConfigFilePath()
	if configFile != "" {
		fileConfig, err := loadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
		cfg = mergeConfigs(*fileConfig, cfg)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	if err := cfg.ensureDirectories(); err != nil {
		return nil, fmt.Errorf("path setup failed: %w", err)
	}

	return &cfg, nil
}

// loadFromFile loads configuration from YAML file
func loadFromFile(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// mergeConfigs merges file config with env config (env takes precedence)
func mergeConfigs(fileConfig, envConfig Config) Config {
	if envConfig.Server.Port == 0 {
		envConfig.Server.Port = fileConfig.Server.Port
	}
	if envConfig.Server.ReadTimeout == 0 {
		envConfig.Server.ReadTimeout = fileConfig.Server.ReadTimeout
	}
	if envConfig.Server.WriteTimeout == 0 {
		envConfig.Server.WriteTimeout = fileConfig.Server.WriteTimeout
	}
	if envConfig.API.BaseURL == "" {
		envConfig.API.BaseURL = fileConfig.API.BaseURL
	}
	if envConfig.API.Token == "" {
		envConfig.API.Token = fileConfig.API.Token
	}
	if envConfig.API.RatePerSecond == 0 {
		envConfig.API.RatePerSecond = fileConfig.API.RatePerSecond
	}
	if envConfig.Store.Path == "" {
		envConfig.Store.Path = fileConfig.Store.Path
	}
	if envConfig.Pipeline.MinTextLength == 0 {
		envConfig.Pipeline.MinTextLength = fileConfig.Pipeline.MinTextLength
	}
	return envConfig
}

// validate validates the configuration
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}
	if c.API.BaseURL == "" {
		return fmt.Errorf("api base url must be set")
	}
	if c.API.RatePerSecond <= 0 {
		return fmt.Errorf("api rate per second must be positive, got %d", c.API.RatePerSecond)
	}
	if c.Pipeline.MinTextLength < 0 {
		return fmt.Errorf("min text length cannot be negative")
	}
	if c.Store.Path == "" {
		return fmt.Errorf("store path must be set")
	}
	return nil
}

// ensureDirectories creates the directories the application writes to
func (c *Config) ensureDirectories() error {
	dirs := []string{
		c.Paths.DataDir,
		c.Paths.LogsDir,
		filepath.Dir(c.Store.Path),
	}
	for _, dir := range dirs {
		if dir == "" || dir == "." {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	locations := []string{
		"config.yaml",
		"configs/config.yaml",
	}
	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}
	return "" // No config file found, use env vars only
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			MaxHeaderBytes:  1 << 20,
			ShutdownTimeout: 30 * time.Second,
			RequestTimeout:  60 * time.Second,
		},
		Security: SecurityConfig{
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     100,
				Burst:   50,
			},
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "both",
			FilePath: "logs/app.log",
		},
		Paths: PathsConfig{
			DataDir:     "data",
			LogsDir:     "logs",
			LexiconFile: "models/lexicon.json",
			ModelFile:   "models/model.json",
		},
		API: APIConfig{
			BaseURL:       "https://api.vk.com/method",
			Version:       "5.131",
			Timeout:       30 * time.Second,
			RatePerSecond: 5,
		},
		Store: StoreConfig{
			Path: "data/socialpulse.db",
		},
		Pipeline: PipelineConfig{
			MinTextLength: 50,
		},
	}
}
