package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server     HTTPServerConfig `yaml:"server"`
	Store      StoreConfig      `yaml:"store"`
	Mongo      MongoConfig      `yaml:"mongo"`
	Generation GenerationConfig `yaml:"generation"`
	Log        LogConfig        `yaml:"log"`
}

type HTTPServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	APIPrefix    string        `yaml:"api_prefix"`
	MetricsAddr  string        `yaml:"metrics_addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	// RateLimit is requests per minute per client IP; 0 disables it.
	RateLimit int `yaml:"rate_limit"`
	// AllowedOrigins feeds the CORS wrapper.
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type StoreConfig struct {
	// Backend is one of memory, file, mongo.
	Backend      string `yaml:"backend"`
	SettingsFile string `yaml:"settings_file"`
	OutputDir    string `yaml:"output_dir"`
}

type MongoConfig struct {
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
}

type GenerationConfig struct {
	// Generator is one of simulated, anthropic.
	Generator        string        `yaml:"generator"`
	SimulatedDelay   time.Duration `yaml:"simulated_delay"`
	PollInterval     time.Duration `yaml:"poll_interval"`
	JobTimeout       time.Duration `yaml:"job_timeout"`
	AnthropicBaseURL string        `yaml:"anthropic_base_url"`
	Model            string        `yaml:"model"`
	MaxTokens        int           `yaml:"max_tokens"`
	RequestTimeout   time.Duration `yaml:"request_timeout"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

func Default() Config {
	return Config{
		Server: HTTPServerConfig{
			Host:           "0.0.0.0",
			Port:           8080,
			APIPrefix:      "/_api",
			MetricsAddr:    ":2112",
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   30 * time.Second,
			RateLimit:      100,
			AllowedOrigins: []string{"*"},
		},
		Store: StoreConfig{
			Backend:      "memory",
			SettingsFile: "./data/user_config.yaml",
			OutputDir:    "./generated",
		},
		Mongo: MongoConfig{
			URI:      "mongodb://localhost:27017",
			Database: "testgen",
		},
		Generation: GenerationConfig{
			Generator:        "simulated",
			SimulatedDelay:   time.Second,
			PollInterval:     5 * time.Second,
			JobTimeout:       10 * time.Minute,
			AnthropicBaseURL: "https://api.anthropic.com",
			Model:            "claude-3-7-sonnet-latest",
			MaxTokens:        8192,
			RequestTimeout:   5 * time.Minute,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load layers defaults, an optional .env file, an optional YAML file at
// TESTGEN_CONFIG_PATH, and TESTGEN_* environment variables, in that order.
func Load() (Config, error) {
	cfg := Default()

	// .env never overrides variables that are already set
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	if path := os.Getenv("TESTGEN_CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Store.Backend {
	case "memory", "file", "mongo":
	default:
		return fmt.Errorf("invalid store backend %q", c.Store.Backend)
	}
	switch c.Generation.Generator {
	case "simulated", "anthropic":
	default:
		return fmt.Errorf("invalid generator %q", c.Generation.Generator)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("invalid rate limit %d", c.Server.RateLimit)
	}
	if c.Server.APIPrefix != "" && !strings.HasPrefix(c.Server.APIPrefix, "/") {
		return fmt.Errorf("api prefix %q must start with /", c.Server.APIPrefix)
	}
	return nil
}

// SlogLevel maps the configured level name, defaulting to info.
func (c LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(c.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	integer := func(key string, dst *int) error {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", key, err)
			}
			*dst = n
		}
		return nil
	}
	duration := func(key string, dst *time.Duration) error {
		if v := os.Getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", key, err)
			}
			*dst = d
		}
		return nil
	}

	str("TESTGEN_SERVER_HOST", &cfg.Server.Host)
	// PORT is what the original dev setup used; the namespaced key wins
	if err := integer("PORT", &cfg.Server.Port); err != nil {
		return err
	}
	if err := integer("TESTGEN_SERVER_PORT", &cfg.Server.Port); err != nil {
		return err
	}
	if err := integer("TESTGEN_RATE_LIMIT", &cfg.Server.RateLimit); err != nil {
		return err
	}
	str("TESTGEN_API_PREFIX", &cfg.Server.APIPrefix)
	str("TESTGEN_METRICS_ADDR", &cfg.Server.MetricsAddr)
	if v := os.Getenv("TESTGEN_ALLOWED_ORIGINS"); v != "" {
		cfg.Server.AllowedOrigins = strings.Split(v, ",")
	}

	str("TESTGEN_STORE_BACKEND", &cfg.Store.Backend)
	str("TESTGEN_SETTINGS_FILE", &cfg.Store.SettingsFile)
	str("TESTGEN_OUTPUT_DIR", &cfg.Store.OutputDir)

	str("MONGO_URI", &cfg.Mongo.URI)
	str("MONGO_DB", &cfg.Mongo.Database)

	str("TESTGEN_GENERATOR", &cfg.Generation.Generator)
	str("TESTGEN_ANTHROPIC_BASE_URL", &cfg.Generation.AnthropicBaseURL)
	str("TESTGEN_MODEL", &cfg.Generation.Model)
	if err := integer("TESTGEN_MAX_TOKENS", &cfg.Generation.MaxTokens); err != nil {
		return err
	}
	for key, dst := range map[string]*time.Duration{
		"TESTGEN_SIMULATED_DELAY": &cfg.Generation.SimulatedDelay,
		"TESTGEN_POLL_INTERVAL":   &cfg.Generation.PollInterval,
		"TESTGEN_JOB_TIMEOUT":     &cfg.Generation.JobTimeout,
		"TESTGEN_REQUEST_TIMEOUT": &cfg.Generation.RequestTimeout,
	} {
		if err := duration(key, dst); err != nil {
			return err
		}
	}

	str("TESTGEN_LOG_LEVEL", &cfg.Log.Level)
	return nil
}
